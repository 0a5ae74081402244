package world

import (
	"math"

	"github.com/OCAP2/awareness/internal/cache"
	"github.com/OCAP2/awareness/pkg/core"
)

// Box is an axis-aligned solid obstacle.
type Box struct {
	Mins core.Vec3 `json:"mins" yaml:"mins"`
	Maxs core.Vec3 `json:"maxs" yaml:"maxs"`
}

// Options configures a Sim.
type Options struct {
	// LeafSize is the edge length of one square leaf cell.
	LeafSize float64
	// PVSRadius is how many leaf cells apart two leaves may be and still see each other.
	PVSRadius int
	// FrameTime is the default simulation step in milliseconds.
	FrameTime core.Timestamp
}

// DefaultOptions returns the layout used by the simulator unless configured otherwise.
func DefaultOptions() Options {
	return Options{LeafSize: 512, PVSRadius: 4, FrameTime: 16}
}

// Sim is an in-memory World: entities in an EntityCache, box obstacles traced
// with the slab test, and a uniform grid of leaves standing in for BSP leaves.
type Sim struct {
	entities  *cache.EntityCache
	obstacles []Box
	opts      Options
	now       core.Timestamp
	frame     core.Frame
}

var _ World = (*Sim)(nil)

// NewSim creates an empty world at time 0, frame 0.
func NewSim(opts Options) *Sim {
	def := DefaultOptions()
	if opts.LeafSize <= 0 {
		opts.LeafSize = def.LeafSize
	}
	if opts.PVSRadius <= 0 {
		opts.PVSRadius = def.PVSRadius
	}
	if opts.FrameTime <= 0 {
		opts.FrameTime = def.FrameTime
	}
	return &Sim{
		entities: cache.NewEntityCache(),
		opts:     opts,
	}
}

func (s *Sim) Now() core.Timestamp { return s.now }

func (s *Sim) Frame() core.Frame { return s.frame }

func (s *Sim) FrameTime() core.Timestamp { return s.opts.FrameTime }

// Advance moves the clock by dt and starts a new frame.
func (s *Sim) Advance(dt core.Timestamp) {
	s.now += dt
	s.frame++
}

// SetTime jumps the clock to t and starts a new frame. Time never goes back.
func (s *Sim) SetTime(t core.Timestamp) {
	if t > s.now {
		s.now = t
	}
	s.frame++
}

// Put adds or replaces an entity.
func (s *Sim) Put(e core.EntityState) { s.entities.Put(e) }

// Update mutates a stored entity in place.
func (s *Sim) Update(id core.EntityID, fn func(*core.EntityState)) bool {
	return s.entities.Update(id, fn)
}

func (s *Sim) Remove(id core.EntityID) { s.entities.Remove(id) }

// Entities returns every entity id in ascending order.
func (s *Sim) Entities() []core.EntityID { return s.entities.IDs() }

func (s *Sim) AddObstacle(b Box) { s.obstacles = append(s.obstacles, b) }

func (s *Sim) Entity(id core.EntityID) (core.EntityState, bool) {
	if id == core.NoEntity {
		return core.EntityState{}, false
	}
	return s.entities.Get(id)
}

// IsValidHostile reports whether id is a live, targetable entity that agent
// may treat as an enemy. Team 0 is hostile to everybody.
func (s *Sim) IsValidHostile(agent, id core.EntityID) bool {
	if id == agent {
		return false
	}
	e, ok := s.Entity(id)
	if !ok || !e.InUse || e.Ghosting {
		return false
	}
	if !e.IsClient && e.IntrinsicWeight <= 0 {
		return false
	}
	if self, ok := s.Entity(agent); ok && self.Team != 0 && self.Team == e.Team {
		return false
	}
	return true
}

// LineOfSight traces the segment from..to against obstacles and entity boxes.
func (s *Sim) LineOfSight(from, to core.Vec3, ignore core.EntityID) Trace {
	best := math.Inf(1)
	var tr Trace
	for _, b := range s.obstacles {
		if f, ok := segmentBox(from, to, b.Mins, b.Maxs); ok && f < best {
			best = f
			tr = Trace{Hit: true}
		}
	}
	for _, id := range s.entities.IDs() {
		if id == ignore {
			continue
		}
		e, _ := s.entities.Get(id)
		if !e.InUse || (e.Mins.IsZero() && e.Maxs.IsZero()) {
			continue
		}
		if f, ok := segmentBox(from, to, e.Origin.Add(e.Mins), e.Origin.Add(e.Maxs)); ok && f < best {
			best = f
			tr = Trace{Hit: true, HitEntity: id}
		}
	}
	if tr.Hit {
		tr.HitPoint = from.Add(to.Sub(from).Scale(best))
	}
	return tr
}

// PotentiallyVisible reports whether the leaves of a and b are within the PVS radius.
func (s *Sim) PotentiallyVisible(a, b core.EntityID) bool {
	ea, ok := s.Entity(a)
	if !ok {
		return false
	}
	eb, ok := s.Entity(b)
	if !ok {
		return false
	}
	ax, ay := s.cell(ea.Origin)
	bx, by := s.cell(eb.Origin)
	r := s.opts.PVSRadius
	return abs(ax-bx) <= r && abs(ay-by) <= r
}

// BoxLeafs writes the ids of leaves touched by the box into out and returns how many were written.
func (s *Sim) BoxLeafs(mins, maxs core.Vec3, out []int) int {
	x0, y0 := s.cell(mins)
	x1, y1 := s.cell(maxs)
	n := 0
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			if n == len(out) {
				return n
			}
			out[n] = leafID(x, y)
			n++
		}
	}
	return n
}

// DamageToKill returns +Inf for unknown entities and raw health for non-clients.
func (s *Sim) DamageToKill(id core.EntityID, protection, degradation float64) float64 {
	e, ok := s.Entity(id)
	if !ok {
		return math.Inf(1)
	}
	if !e.IsClient {
		return e.Health
	}
	return core.DamageToKill(e.Health, e.Armor, protection, degradation)
}

func (s *Sim) cell(p core.Vec3) (int, int) {
	return int(math.Floor(p.X / s.opts.LeafSize)), int(math.Floor(p.Y / s.opts.LeafSize))
}

func leafID(x, y int) int {
	return (x+32768)<<16 | (y + 32768)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// segmentBox returns the entry fraction of the segment into the box.
func segmentBox(from, to, mins, maxs core.Vec3) (float64, bool) {
	start := [3]float64{from.X, from.Y, from.Z}
	delta := [3]float64{to.X - from.X, to.Y - from.Y, to.Z - from.Z}
	lo := [3]float64{mins.X, mins.Y, mins.Z}
	hi := [3]float64{maxs.X, maxs.Y, maxs.Z}

	tmin, tmax := 0.0, 1.0
	for i := 0; i < 3; i++ {
		if math.Abs(delta[i]) < 1e-12 {
			if start[i] < lo[i] || start[i] > hi[i] {
				return 0, false
			}
			continue
		}
		t1 := (lo[i] - start[i]) / delta[i]
		t2 := (hi[i] - start[i]) / delta[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}
