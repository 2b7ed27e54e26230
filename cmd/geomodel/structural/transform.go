package structural

import (
	"container/heap"
	"strconv"

	"geo-tools/cmd/geomodel/dsl"

	"github.com/go-playground/validator/v10"
)

// Transformer turns a validated program into a ModelConfig. It is safe for
// concurrent use.
type Transformer struct {
	validate *validator.Validate
}

func NewTransformer() *Transformer {
	return &Transformer{validate: validator.New()}
}

type transformOptions struct {
	extent        ModelExtent
	resolution    ModelResolution
	documentID    *int64
	dslDocumentID *int64
}

// Option adjusts a single Transform call.
type Option func(*transformOptions)

func WithExtent(e ModelExtent) Option {
	return func(o *transformOptions) { o.extent = e }
}

func WithResolution(r ModelResolution) Option {
	return func(o *transformOptions) { o.resolution = r }
}

// WithDocumentIDs records the source document and DSL document ids on the
// resulting config. Either may be nil.
func WithDocumentIDs(documentID, dslDocumentID *int64) Option {
	return func(o *transformOptions) {
		o.documentID = documentID
		o.dslDocumentID = dslDocumentID
	}
}

// Transform extracts surfaces, orders events oldest first and groups them.
// It re-checks the few things it depends on and fails fast with a
// *TransformationError; it does not replace dsl.Validate.
func (t *Transformer) Transform(p *dsl.Program, name string, opts ...Option) (*ModelConfig, error) {
	o := transformOptions{extent: DefaultExtent(), resolution: DefaultResolution()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := t.validate.Struct(o.extent); err != nil {
		return nil, transformErr(ErrInvalidOptions, "invalid extent: %s", describeValidation(err))
	}
	if err := t.validate.Struct(o.resolution); err != nil {
		return nil, transformErr(ErrInvalidOptions, "invalid resolution: %s", describeValidation(err))
	}

	surfaces, err := extractSurfaces(p)
	if err != nil {
		return nil, err
	}
	if len(surfaces) < 2 {
		return nil, transformErr(ErrInsufficientSurfaces,
			"need at least 2 surfaces for the model, but the program only defines %d rock-producing events (DEPOSITION/INTRUSION)",
			len(surfaces))
	}

	order, err := chronologicalOrder(p)
	if err != nil {
		return nil, err
	}

	return &ModelConfig{
		Name:             name,
		DocumentID:       o.documentID,
		DSLDocumentID:    o.dslDocumentID,
		Surfaces:         surfaces,
		StructuralGroups: buildGroups(p, order),
		Extent:           o.extent,
		Resolution:       o.resolution,
		EventOrder:       order,
	}, nil
}

// ---------------------------------------------------------------------------
// Surfaces
// ---------------------------------------------------------------------------

// extractSurfaces yields one surface per deposition, then per intrusion.
func extractSurfaces(p *dsl.Program) ([]SurfaceConfig, error) {
	producers := p.RockProducers()
	surfaces := make([]SurfaceConfig, 0, len(producers))
	for _, e := range producers {
		rock, ok := p.Rock(e.RockRef())
		if !ok {
			return nil, transformErr(ErrRockNotFound, "Rock '%s' not found", e.RockRef())
		}
		s := SurfaceConfig{
			SurfaceID: e.EventID(),
			Name:      rock.Name,
			RockID:    rock.ID,
			RockType:  rock.Type.String(),
		}
		if age, ok := eventAge(p, e); ok {
			s.AgeMa = &age
		}
		surfaces = append(surfaces, s)
	}
	return surfaces, nil
}

// eventAge prefers the event's own time over its rock's age. A present but
// non-numeric event time does not fall back to the rock.
func eventAge(p *dsl.Program, e dsl.Event) (float64, bool) {
	if t := e.EventTime(); t != nil {
		return dsl.AgeMa(t)
	}
	if rp, ok := e.(dsl.RockProducer); ok {
		if rock, ok := p.Rock(rp.RockRef()); ok && rock.Age != nil {
			return dsl.AgeMa(rock.Age)
		}
	}
	return 0, false
}

// ---------------------------------------------------------------------------
// Ordering
// ---------------------------------------------------------------------------

type readyEvent struct {
	id    string
	age   float64
	index int // position in AllEvents, the final tie-break
}

// readyQueue pops the oldest event first.
type readyQueue []readyEvent

func (q readyQueue) Len() int { return len(q) }
func (q readyQueue) Less(i, j int) bool {
	if q[i].age != q[j].age {
		return q[i].age > q[j].age
	}
	return q[i].index < q[j].index
}
func (q readyQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *readyQueue) Push(x any)   { *q = append(*q, x.(readyEvent)) }
func (q *readyQueue) Pop() any {
	old := *q
	last := old[len(old)-1]
	*q = old[:len(old)-1]
	return last
}

// chronologicalOrder is Kahn's algorithm over `after` edges. Among ready
// events the oldest goes first; unknown ages count as 0.
func chronologicalOrder(p *dsl.Program) ([]string, error) {
	events := p.AllEvents()
	byID := make(map[string]dsl.Event, len(events))
	index := make(map[string]int, len(events))
	var ids []string
	for i, e := range events {
		id := e.EventID()
		byID[id] = e
		if _, seen := index[id]; !seen {
			index[id] = i
			ids = append(ids, id)
		}
	}

	dependents := make(map[string][]string)
	inDegree := make(map[string]int, len(ids))
	for _, e := range events {
		for _, dep := range e.Dependencies() {
			if _, ok := byID[dep]; !ok {
				continue
			}
			dependents[dep] = append(dependents[dep], e.EventID())
			inDegree[e.EventID()]++
		}
	}

	ready := func(id string) readyEvent {
		age, _ := eventAge(p, byID[id])
		return readyEvent{id: id, age: age, index: index[id]}
	}

	q := &readyQueue{}
	for _, id := range ids {
		if inDegree[id] == 0 {
			heap.Push(q, ready(id))
		}
	}

	order := make([]string, 0, len(ids))
	for q.Len() > 0 {
		next := heap.Pop(q).(readyEvent)
		order = append(order, next.id)
		for _, d := range dependents[next.id] {
			inDegree[d]--
			if inDegree[d] == 0 {
				heap.Push(q, ready(d))
			}
		}
	}

	if len(order) != len(ids) {
		return nil, transformErr(ErrCyclicOrder, "Circular dependency detected in event ordering (%d of %d events ordered)", len(order), len(ids))
	}
	return order, nil
}

// ---------------------------------------------------------------------------
// Grouping
// ---------------------------------------------------------------------------

// groupBuilder accumulates groups oldest first.
type groupBuilder struct {
	groups  []StructuralGroupConfig
	pending []string
	next    RelationType
}

// flush closes the pending deposition group, if any, and reports whether it
// emitted one.
func (b *groupBuilder) flush() bool {
	if len(b.pending) == 0 {
		return false
	}
	b.groups = append(b.groups, StructuralGroupConfig{
		GroupName: groupName(len(b.groups), b.pending),
		Surfaces:  b.pending,
		Relation:  b.next,
	})
	b.pending = nil
	return true
}

// buildGroups walks events oldest first. Consecutive depositions share a
// group, an erosion closes the group and makes the next one onlap, and an
// intrusion always stands alone. The result is youngest first and the
// oldest group is the basement.
func buildGroups(p *dsl.Program, order []string) []StructuralGroupConfig {
	byID := make(map[string]dsl.Event)
	for _, e := range p.AllEvents() {
		byID[e.EventID()] = e
	}

	b := &groupBuilder{next: RelationErode}
	for _, id := range order {
		switch e := byID[id].(type) {
		case *dsl.ErosionEvent:
			b.flush()
			b.next = RelationOnlap
		case *dsl.DepositionEvent:
			b.pending = append(b.pending, e.ID)
		case *dsl.IntrusionEvent:
			if b.flush() {
				b.next = RelationErode
			}
			b.groups = append(b.groups, StructuralGroupConfig{
				GroupName: groupName(len(b.groups), []string{e.ID}),
				Surfaces:  []string{e.ID},
				Relation:  RelationErode,
			})
		}
	}
	b.flush()

	n := len(b.groups)
	out := make([]StructuralGroupConfig, n)
	for i, g := range b.groups {
		g.GroupIndex = n - 1 - i
		out[n-1-i] = g
	}
	if n > 0 {
		out[n-1].Relation = RelationBasement
	}
	return out
}

// groupName keeps the legacy numbering: n is the number of groups built
// before this one, not the final index.
func groupName(n int, surfaces []string) string {
	if len(surfaces) == 1 {
		return "Group_" + surfaces[0]
	}
	return "Strata_Group_" + strconv.Itoa(n)
}
