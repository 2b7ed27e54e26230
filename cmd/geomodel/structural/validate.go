package structural

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// ConfigValidator checks a ModelConfig before spatial data is generated.
type ConfigValidator struct{}

func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

func (v *ConfigValidator) Validate(cfg *ModelConfig) *ConfigResult {
	res := &ConfigResult{}
	v.checkMinimumSurfaces(cfg, res)
	v.checkGroupCoverage(cfg, res)
	v.checkRelations(cfg, res)
	v.checkIndices(cfg, res)
	return res
}

func (v *ConfigValidator) checkMinimumSurfaces(cfg *ModelConfig, res *ConfigResult) {
	if len(cfg.Surfaces) < 2 {
		res.addError(ConfigIssue{
			Kind:    ErrTooFewSurfaces,
			Message: fmt.Sprintf("At least 2 surfaces are required for interpolation, but only %d defined", len(cfg.Surfaces)),
		})
	}
}

// checkGroupCoverage requires every surface in exactly one group and no
// group to list a surface that does not exist.
func (v *ConfigValidator) checkGroupCoverage(cfg *ModelConfig, res *ConfigResult) {
	known := make(map[string]bool, len(cfg.Surfaces))
	for _, s := range cfg.Surfaces {
		known[s.SurfaceID] = true
	}
	grouped := make(map[string]bool)
	dupes := make(map[string]bool)
	for _, g := range cfg.StructuralGroups {
		for _, id := range g.Surfaces {
			if grouped[id] {
				dupes[id] = true
			}
			grouped[id] = true
		}
	}

	if ids := setList(dupes); len(ids) > 0 {
		res.addError(ConfigIssue{
			Kind:     ErrSurfaceMultiplyAssigned,
			Message:  "Surfaces assigned to multiple groups: " + strings.Join(ids, ", "),
			Surfaces: ids,
		})
	}

	unassigned := make(map[string]bool)
	for id := range known {
		if !grouped[id] {
			unassigned[id] = true
		}
	}
	if ids := setList(unassigned); len(ids) > 0 {
		res.addError(ConfigIssue{
			Kind:     ErrSurfaceUnassigned,
			Message:  "Surfaces not assigned to any group: " + strings.Join(ids, ", "),
			Surfaces: ids,
		})
	}

	unknown := make(map[string]bool)
	for id := range grouped {
		if !known[id] {
			unknown[id] = true
		}
	}
	if ids := setList(unknown); len(ids) > 0 {
		res.addError(ConfigIssue{
			Kind:     ErrUnknownSurface,
			Message:  "Unknown surfaces in structural groups: " + strings.Join(ids, ", "),
			Surfaces: ids,
		})
	}
}

func (v *ConfigValidator) checkRelations(cfg *ModelConfig, res *ConfigResult) {
	var basement []int
	for _, g := range cfg.StructuralGroups {
		if g.Relation == RelationBasement {
			basement = append(basement, g.GroupIndex)
		}
	}
	switch {
	case len(basement) == 0 && len(cfg.StructuralGroups) > 0:
		res.addWarning("No BASEMENT group defined; the oldest group should typically have BASEMENT relation")
	case len(basement) > 1:
		res.addError(ConfigIssue{
			Kind:    ErrMultipleBasement,
			Message: fmt.Sprintf("Multiple BASEMENT groups defined (%d); only one is allowed", len(basement)),
			Indices: basement,
		})
	}
}

// checkIndices requires the group indices to be a permutation of 0..N-1.
func (v *ConfigValidator) checkIndices(cfg *ModelConfig, res *ConfigResult) {
	if len(cfg.StructuralGroups) == 0 {
		return
	}
	got := make([]int, len(cfg.StructuralGroups))
	for i, g := range cfg.StructuralGroups {
		got[i] = g.GroupIndex
	}
	sort.Ints(got)
	for i, idx := range got {
		if idx != i {
			expected := make([]int, len(got))
			for j := range expected {
				expected[j] = j
			}
			res.addError(ConfigIssue{
				Kind:    ErrGroupIndexGap,
				Message: fmt.Sprintf("Group indices must be sequential starting from 0. Got: %v, expected: %v", got, expected),
				Indices: got,
			})
			return
		}
	}
}

func setList(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ---------------------------------------------------------------------------
// Spatial data
// ---------------------------------------------------------------------------

// DataValidator checks generated or imported spatial data against the
// minimum an interpolation engine needs.
type DataValidator struct{}

func NewDataValidator() *DataValidator {
	return &DataValidator{}
}

func (v *DataValidator) Validate(data *ModelData) *ConfigResult {
	res := &ConfigResult{}
	v.checkPointsPerSurface(data, res)
	v.checkOrientationsPerGroup(data, res)
	v.checkExtent(data, res)
	v.checkDistribution(data, res)
	return res
}

func pointsBySurface(data *ModelData) map[string][]SurfacePoint {
	out := make(map[string][]SurfacePoint)
	for _, pt := range data.SurfacePoints {
		out[pt.Surface] = append(out[pt.Surface], pt)
	}
	return out
}

func (v *DataValidator) checkPointsPerSurface(data *ModelData, res *ConfigResult) {
	points := pointsBySurface(data)
	for _, s := range data.Config.Surfaces {
		n := len(points[s.SurfaceID])
		switch {
		case n < 2:
			res.addError(ConfigIssue{
				Kind:     ErrTooFewPoints,
				Message:  fmt.Sprintf("Surface '%s' has %d point(s); at least 2 are required", s.SurfaceID, n),
				Surfaces: []string{s.SurfaceID},
			})
		case n < 5:
			res.addWarning("Surface '%s' has only %d points; consider adding more for better interpolation", s.SurfaceID, n)
		}
	}
}

func (v *DataValidator) checkOrientationsPerGroup(data *ModelData, res *ConfigResult) {
	oriented := make(map[string]bool)
	for _, o := range data.Orientations {
		oriented[o.Surface] = true
	}
	for _, g := range data.Config.StructuralGroups {
		found := false
		for _, s := range g.Surfaces {
			if oriented[s] {
				found = true
				break
			}
		}
		if !found {
			res.addError(ConfigIssue{
				Kind:     ErrMissingOrientation,
				Message:  fmt.Sprintf("Structural group '%s' has no orientations; at least 1 is required", g.GroupName),
				Surfaces: g.Surfaces,
				Indices:  []int{g.GroupIndex},
			})
		}
	}
}

func (v *DataValidator) checkExtent(data *ModelData, res *ConfigResult) {
	var outside []string
	for _, pt := range data.SurfacePoints {
		if !data.Config.Extent.Contains(pt.X, pt.Y, pt.Z) {
			outside = append(outside, fmt.Sprintf("(%.1f, %.1f, %.1f) for '%s'", pt.X, pt.Y, pt.Z, pt.Surface))
		}
	}
	if len(outside) == 0 {
		return
	}
	shown := outside
	if len(shown) > 3 {
		shown = shown[:3]
	}
	msg := "Points outside model extent: " + strings.Join(shown, ", ")
	if rest := len(outside) - len(shown); rest > 0 {
		msg += fmt.Sprintf(" and %d more", rest)
	}
	res.addWarning("%s", msg)
}

// checkDistribution warns when a surface's points nearly coincide in plan.
func (v *DataValidator) checkDistribution(data *ModelData, res *ConfigResult) {
	points := pointsBySurface(data)
	for _, s := range data.Config.Surfaces {
		pts := points[s.SurfaceID]
		if len(pts) < 2 {
			continue
		}
		minX, maxX := math.Inf(1), math.Inf(-1)
		minY, maxY := math.Inf(1), math.Inf(-1)
		for _, pt := range pts {
			minX, maxX = math.Min(minX, pt.X), math.Max(maxX, pt.X)
			minY, maxY = math.Min(minY, pt.Y), math.Max(maxY, pt.Y)
		}
		if dx, dy := maxX-minX, maxY-minY; dx < 1 && dy < 1 {
			res.addWarning("Surface '%s' has very clustered points (X range: %.1f, Y range: %.1f); this may cause interpolation issues",
				s.SurfaceID, dx, dy)
		}
	}
}
