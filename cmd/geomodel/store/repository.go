// Package store persists DSL documents and structural models in SQLite.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"geo-tools/cmd/geomodel/structural"
	"geo-tools/pkg/logger"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidStatus = errors.New("invalid model status")
)

// ModelStatus tracks a model through generation and computation.
type ModelStatus string

const (
	StatusPending    ModelStatus = "pending"
	StatusGenerating ModelStatus = "generating"
	StatusComputed   ModelStatus = "computed"
	StatusFailed     ModelStatus = "failed"
)

func ParseModelStatus(s string) (ModelStatus, error) {
	switch st := ModelStatus(s); st {
	case StatusPending, StatusGenerating, StatusComputed, StatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Document is a stored DSL text with the outcome of its last validation.
type Document struct {
	ID               int64
	DocumentID       *int64
	Name             string
	RawDSL           string
	IsValid          bool
	ValidationErrors []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ModelSummary is a stored model without its surfaces and spatial data.
type ModelSummary struct {
	ID                int64
	Name              string
	Status            ModelStatus
	DocumentID        *int64
	DSLDocumentID     *int64
	SurfaceCount      int
	GroupCount        int
	SurfacePointCount int
	OrientationCount  int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Open opens (creating if needed) the SQLite database at path with foreign
// keys enforced.
func Open(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
	}, &gorm.Config{Logger: gormlogger.Discard})
}

// OpenAndMigrate is Open followed by RunMigrations.
func OpenAndMigrate(ctx context.Context, path string) (*gorm.DB, error) {
	db, err := Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		return nil, err
	}
	logger.Debug("database ready", "path", path)
	return db, nil
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func notFound(err error, what string, id int64) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return err
}

// ---------------------------------------------------------------------------
// DSL documents
// ---------------------------------------------------------------------------

// SaveDocument inserts doc, or updates it when doc.ID is set.
func (r *Repository) SaveDocument(ctx context.Context, doc Document) (Document, error) {
	m := dslDocumentModel{
		ID:               doc.ID,
		DocumentID:       doc.DocumentID,
		Name:             doc.Name,
		RawDSL:           doc.RawDSL,
		IsValid:          doc.IsValid,
		ValidationErrors: doc.ValidationErrors,
		CreatedAt:        doc.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Save(&m).Error; err != nil {
		return Document{}, err
	}
	logger.Debug("saved dsl document", "id", m.ID, "valid", m.IsValid)
	return toDocument(m), nil
}

func (r *Repository) GetDocument(ctx context.Context, id int64) (Document, error) {
	var m dslDocumentModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return Document{}, notFound(err, "dsl document", id)
	}
	return toDocument(m), nil
}

// ListDocuments returns the newest documents first. limit <= 0 means all.
func (r *Repository) ListDocuments(ctx context.Context, limit int) ([]Document, error) {
	rows := make([]dslDocumentModel, 0)
	q := r.db.WithContext(ctx).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Document, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDocument(m))
	}
	return out, nil
}

func toDocument(m dslDocumentModel) Document {
	return Document{
		ID:               m.ID,
		DocumentID:       m.DocumentID,
		Name:             m.Name,
		RawDSL:           m.RawDSL,
		IsValid:          m.IsValid,
		ValidationErrors: m.ValidationErrors,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// ---------------------------------------------------------------------------
// Models
// ---------------------------------------------------------------------------

// SaveModel stores a configuration and its spatial data, if any, in one
// transaction and returns the new model id. The status is computed when
// spatial data is present, else pending.
func (r *Repository) SaveModel(ctx context.Context, data *structural.ModelData) (int64, error) {
	cfg := data.Config
	status := StatusPending
	if len(data.SurfacePoints) > 0 {
		status = StatusComputed
	}
	m := geologicalModel{
		Name:          cfg.Name,
		DocumentID:    cfg.DocumentID,
		DSLDocumentID: cfg.DSLDocumentID,
		Status:        string(status),
		Extent:        cfg.Extent,
		Resolution:    cfg.Resolution,
		EventOrder:    cfg.EventOrder,
	}
	for i, s := range cfg.Surfaces {
		m.Surfaces = append(m.Surfaces, surfaceModel{
			Position:  i,
			SurfaceID: s.SurfaceID,
			Name:      s.Name,
			RockID:    s.RockID,
			RockType:  s.RockType,
			AgeMa:     s.AgeMa,
		})
	}
	for _, g := range cfg.StructuralGroups {
		m.Groups = append(m.Groups, groupModel{
			GroupIndex: g.GroupIndex,
			GroupName:  g.GroupName,
			Surfaces:   g.Surfaces,
			Relation:   string(g.Relation),
		})
	}
	for _, p := range data.SurfacePoints {
		m.SurfacePoints = append(m.SurfacePoints, surfacePointModel{X: p.X, Y: p.Y, Z: p.Z, Surface: p.Surface, Series: p.Series})
	}
	for _, o := range data.Orientations {
		m.Orientations = append(m.Orientations, orientationModel{
			X: o.X, Y: o.Y, Z: o.Z,
			Azimuth:  o.Azimuth,
			Dip:      o.Dip,
			Polarity: o.Polarity,
			Surface:  o.Surface,
			Series:   o.Series,
		})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&m).Error
	})
	if err != nil {
		return 0, fmt.Errorf("save model %q: %w", cfg.Name, err)
	}
	logger.Info("saved model", "id", m.ID, "name", m.Name, "surfaces", len(m.Surfaces), "points", len(m.SurfacePoints))
	return m.ID, nil
}

// GetModel loads a model with its configuration and spatial data.
func (r *Repository) GetModel(ctx context.Context, id int64) (ModelSummary, *structural.ModelData, error) {
	var m geologicalModel
	err := r.db.WithContext(ctx).
		Preload("Surfaces", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Groups", func(db *gorm.DB) *gorm.DB { return db.Order("group_index") }).
		Preload("SurfacePoints", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Orientations", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&m, id).Error
	if err != nil {
		return ModelSummary{}, nil, notFound(err, "model", id)
	}

	cfg := structural.ModelConfig{
		Name:          m.Name,
		DocumentID:    m.DocumentID,
		DSLDocumentID: m.DSLDocumentID,
		Extent:        m.Extent,
		Resolution:    m.Resolution,
		EventOrder:    m.EventOrder,
	}
	for _, s := range m.Surfaces {
		cfg.Surfaces = append(cfg.Surfaces, structural.SurfaceConfig{
			SurfaceID: s.SurfaceID,
			Name:      s.Name,
			RockID:    s.RockID,
			RockType:  s.RockType,
			AgeMa:     s.AgeMa,
		})
	}
	for _, g := range m.Groups {
		rel, ok := structural.ParseRelation(g.Relation)
		if !ok {
			return ModelSummary{}, nil, fmt.Errorf("model %d: group %d has unknown relation %q", id, g.GroupIndex, g.Relation)
		}
		cfg.StructuralGroups = append(cfg.StructuralGroups, structural.StructuralGroupConfig{
			GroupIndex: g.GroupIndex,
			GroupName:  g.GroupName,
			Surfaces:   g.Surfaces,
			Relation:   rel,
		})
	}

	data := &structural.ModelData{Config: cfg}
	for _, p := range m.SurfacePoints {
		data.SurfacePoints = append(data.SurfacePoints, structural.SurfacePoint{X: p.X, Y: p.Y, Z: p.Z, Surface: p.Surface, Series: p.Series})
	}
	for _, o := range m.Orientations {
		data.Orientations = append(data.Orientations, structural.Orientation{
			X: o.X, Y: o.Y, Z: o.Z,
			Azimuth:  o.Azimuth,
			Dip:      o.Dip,
			Polarity: o.Polarity,
			Surface:  o.Surface,
			Series:   o.Series,
		})
	}

	summary := toSummary(m)
	summary.SurfaceCount = len(m.Surfaces)
	summary.GroupCount = len(m.Groups)
	summary.SurfacePointCount = len(m.SurfacePoints)
	summary.OrientationCount = len(m.Orientations)
	return summary, data, nil
}

type modelCountRow struct {
	ModelID int64
	N       int
}

// ListModels returns the newest models first with their child counts.
// limit <= 0 means all.
func (r *Repository) ListModels(ctx context.Context, limit int) ([]ModelSummary, error) {
	rows := make([]geologicalModel, 0)
	q := r.db.WithContext(ctx).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []ModelSummary{}, nil
	}

	ids := make([]int64, len(rows))
	for i, m := range rows {
		ids[i] = m.ID
	}
	count := func(model any) (map[int64]int, error) {
		var counts []modelCountRow
		err := r.db.WithContext(ctx).Model(model).
			Select("model_id, COUNT(*) AS n").
			Where("model_id IN ?", ids).
			Group("model_id").
			Scan(&counts).Error
		out := make(map[int64]int, len(counts))
		for _, c := range counts {
			out[c.ModelID] = c.N
		}
		return out, err
	}
	surfaces, err := count(&surfaceModel{})
	if err != nil {
		return nil, err
	}
	groups, err := count(&groupModel{})
	if err != nil {
		return nil, err
	}
	points, err := count(&surfacePointModel{})
	if err != nil {
		return nil, err
	}
	orientations, err := count(&orientationModel{})
	if err != nil {
		return nil, err
	}

	out := make([]ModelSummary, 0, len(rows))
	for _, m := range rows {
		s := toSummary(m)
		s.SurfaceCount = surfaces[m.ID]
		s.GroupCount = groups[m.ID]
		s.SurfacePointCount = points[m.ID]
		s.OrientationCount = orientations[m.ID]
		out = append(out, s)
	}
	return out, nil
}

func (r *Repository) SetModelStatus(ctx context.Context, id int64, status ModelStatus) error {
	if _, err := ParseModelStatus(string(status)); err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&geologicalModel{}).Where("id = ?", id).Update("status", string(status))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("model %d: %w", id, ErrNotFound)
	}
	logger.Debug("model status changed", "id", id, "status", status)
	return nil
}

// DeleteModel removes a model and, by cascade, its children.
func (r *Repository) DeleteModel(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&geologicalModel{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("model %d: %w", id, ErrNotFound)
	}
	return nil
}

func toSummary(m geologicalModel) ModelSummary {
	return ModelSummary{
		ID:            m.ID,
		Name:          m.Name,
		Status:        ModelStatus(m.Status),
		DocumentID:    m.DocumentID,
		DSLDocumentID: m.DSLDocumentID,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// Ping checks that the database answers.
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
