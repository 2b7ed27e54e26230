package structural

import (
	"math"
	"math/rand/v2"
	"sort"
)

// SpatialGenerator places synthetic surface points and orientations for a
// configuration using simple geological rules. A generator owns its random
// source and is not safe for concurrent use.
type SpatialGenerator struct {
	pointsPerSurface int
	baseDip          float64
	baseAzimuth      float64
	rng              *rand.Rand
}

type SpatialOption func(*SpatialGenerator)

func WithPointsPerSurface(n int) SpatialOption {
	return func(g *SpatialGenerator) { g.pointsPerSurface = n }
}

// WithSeed makes generation reproducible.
func WithSeed(seed uint64) SpatialOption {
	return func(g *SpatialGenerator) { g.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithBaseOrientation sets the regional dip and dip direction in degrees.
func WithBaseOrientation(dip, azimuth float64) SpatialOption {
	return func(g *SpatialGenerator) {
		g.baseDip = dip
		g.baseAzimuth = azimuth
	}
}

func NewSpatialGenerator(opts ...SpatialOption) *SpatialGenerator {
	g := &SpatialGenerator{pointsPerSurface: 10, baseDip: 5}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return g
}

// Generate returns spatial data for cfg. cfg is not modified; the extent in
// the returned config grows to cover the generated points.
func (g *SpatialGenerator) Generate(cfg *ModelConfig) (*ModelData, error) {
	if len(cfg.Surfaces) == 0 {
		return nil, &TransformationError{Cause: ErrSpatialGeneration, Detail: "configuration has no surfaces"}
	}
	if g.pointsPerSurface < 1 {
		return nil, &TransformationError{Cause: ErrSpatialGeneration, Detail: "points per surface must be positive"}
	}

	out := *cfg
	surfaces := g.depthOrder(cfg)

	var points []SurfacePoint
	var orientations []Orientation
	for i, s := range surfaces {
		z := layerBase(i, len(surfaces), cfg.Extent)
		dip, azimuth := g.orientationFor(s)
		series := seriesOf(cfg, s.SurfaceID)
		for _, pt := range g.surfacePoints(s, cfg.Extent, z, dip, azimuth) {
			pt.Series = series
			points = append(points, pt)
		}
		if firstInGroup(cfg, s.SurfaceID) {
			o := centreOrientation(s.SurfaceID, cfg.Extent, z, dip, azimuth)
			o.Series = series
			orientations = append(orientations, o)
		}
	}
	orientations = g.fillGroupOrientations(cfg, points, orientations)

	out.Extent = fitExtent(points, cfg.Extent)
	return &ModelData{Config: out, SurfacePoints: points, Orientations: orientations}, nil
}

// depthOrder sorts surfaces deepest (oldest) first, by event order when
// known, else by age with unknown ages last.
func (g *SpatialGenerator) depthOrder(cfg *ModelConfig) []SurfaceConfig {
	sorted := append([]SurfaceConfig(nil), cfg.Surfaces...)
	if len(cfg.EventOrder) > 0 {
		pos := make(map[string]int, len(cfg.EventOrder))
		for i, id := range cfg.EventOrder {
			pos[id] = i
		}
		sort.SliceStable(sorted, func(i, j int) bool {
			return pos[sorted[i].SurfaceID] < pos[sorted[j].SurfaceID]
		})
		return sorted
	}
	age := func(s SurfaceConfig) float64 {
		if s.AgeMa == nil {
			return math.Inf(-1)
		}
		return *s.AgeMa
	}
	sort.SliceStable(sorted, func(i, j int) bool { return age(sorted[i]) > age(sorted[j]) })
	return sorted
}

// layerBase spreads layers evenly over the inner 80% of the z range.
func layerBase(i, n int, e ModelExtent) float64 {
	zRange := e.ZMax - e.ZMin
	margin := zRange * 0.1
	usable := zRange * 0.8
	if n == 1 {
		return e.ZMin + margin + usable/2
	}
	return e.ZMin + margin + float64(i)*usable/float64(n-1)
}

func (g *SpatialGenerator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

// orientationFor picks dip and azimuth by rock type.
func (g *SpatialGenerator) orientationFor(s SurfaceConfig) (dip, azimuth float64) {
	switch s.RockType {
	case "sedimentary":
		dip = g.baseDip + g.uniform(-2, 2)
		azimuth = g.baseAzimuth + g.uniform(-10, 10)
	case "volcanic":
		dip = g.baseDip + g.uniform(-5, 10)
		azimuth = g.baseAzimuth + g.uniform(-30, 30)
	case "intrusive":
		dip = g.uniform(10, 45)
		azimuth = g.uniform(0, 360)
	case "metamorphic":
		dip = g.uniform(20, 60)
		azimuth = g.baseAzimuth + g.uniform(-45, 45)
	default:
		dip, azimuth = g.baseDip, g.baseAzimuth
	}
	dip = math.Max(0, math.Min(90, dip))
	azimuth = math.Mod(math.Mod(azimuth, 360)+360, 360)
	return dip, azimuth
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// surfacePoints samples a tilted plane through (centre, z) with noise.
func (g *SpatialGenerator) surfacePoints(s SurfaceConfig, e ModelExtent, z, dip, azimuth float64) []SurfacePoint {
	xRange, yRange := e.XMax-e.XMin, e.YMax-e.YMin
	cx, cy := (e.XMax+e.XMin)/2, (e.YMax+e.YMin)/2
	dipRad, azRad := dip*math.Pi/180, azimuth*math.Pi/180

	pts := make([]SurfacePoint, 0, g.pointsPerSurface)
	for range g.pointsPerSurface {
		x := e.XMin + g.uniform(0.1, 0.9)*xRange
		y := e.YMin + g.uniform(0.1, 0.9)*yRange
		along := (x-cx)*math.Cos(azRad) + (y-cy)*math.Sin(azRad)
		pz := z + along*math.Tan(dipRad) + g.rng.NormFloat64()*5
		pts = append(pts, SurfacePoint{X: round2(x), Y: round2(y), Z: round2(pz), Surface: s.SurfaceID})
	}
	return pts
}

// firstInGroup reports whether id leads its group; ungrouped surfaces count.
func firstInGroup(cfg *ModelConfig, id string) bool {
	g, ok := cfg.GroupOf(id)
	if !ok {
		return true
	}
	return g.Surfaces[0] == id
}

func seriesOf(cfg *ModelConfig, id string) string {
	if g, ok := cfg.GroupOf(id); ok {
		return g.GroupName
	}
	return ""
}

func centreOrientation(surface string, e ModelExtent, z, dip, azimuth float64) Orientation {
	return Orientation{
		X:        round2((e.XMax + e.XMin) / 2),
		Y:        round2((e.YMax + e.YMin) / 2),
		Z:        round2(z),
		Azimuth:  round1(azimuth),
		Dip:      round1(dip),
		Polarity: 1,
		Surface:  surface,
	}
}

// fillGroupOrientations gives every group without an orientation one at the
// mean depth of its first surface.
func (g *SpatialGenerator) fillGroupOrientations(cfg *ModelConfig, points []SurfacePoint, orientations []Orientation) []Orientation {
	have := make(map[string]bool)
	for _, o := range orientations {
		have[o.Surface] = true
	}
	for _, grp := range cfg.StructuralGroups {
		covered := false
		for _, s := range grp.Surfaces {
			covered = covered || have[s]
		}
		if covered || len(grp.Surfaces) == 0 {
			continue
		}
		first, ok := cfg.Surface(grp.Surfaces[0])
		if !ok {
			continue
		}
		var sum float64
		var n int
		for _, p := range points {
			if p.Surface == first.SurfaceID {
				sum += p.Z
				n++
			}
		}
		if n == 0 {
			continue
		}
		dip, azimuth := g.orientationFor(first)
		o := centreOrientation(first.SurfaceID, cfg.Extent, sum/float64(n), dip, azimuth)
		o.Series = grp.GroupName
		orientations = append(orientations, o)
		have[first.SurfaceID] = true
	}
	return orientations
}

// fitExtent grows the extent to the data bounds plus a 10% margin (50 when
// the data is flat along an axis).
func fitExtent(points []SurfacePoint, orig ModelExtent) ModelExtent {
	if len(points) == 0 {
		return orig
	}
	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	minZ, maxZ := points[0].Z, points[0].Z
	for _, p := range points[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
		minZ, maxZ = math.Min(minZ, p.Z), math.Max(maxZ, p.Z)
	}
	margin := func(lo, hi float64) float64 {
		if m := (hi - lo) * 0.1; m != 0 {
			return m
		}
		return 50
	}
	mx, my, mz := margin(minX, maxX), margin(minY, maxY), margin(minZ, maxZ)
	return ModelExtent{
		XMin: math.Min(orig.XMin, minX-mx),
		XMax: math.Max(orig.XMax, maxX+mx),
		YMin: math.Min(orig.YMin, minY-my),
		YMax: math.Max(orig.YMax, maxY+my),
		ZMin: math.Min(orig.ZMin, minZ-mz),
		ZMax: math.Max(orig.ZMax, maxZ+mz),
	}
}
