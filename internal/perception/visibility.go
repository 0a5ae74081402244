package perception

import (
	"slices"

	"github.com/OCAP2/awareness/internal/world"
	"github.com/OCAP2/awareness/pkg/core"
)

// EyeHeight is the view offset above an entity origin.
const EyeHeight = 22

// DefaultMaxVisible bounds how many entities one scan reports.
const DefaultMaxVisible = 32

// Scanner finds which candidate entities an agent can actually see.
type Scanner struct {
	world      world.World
	pvs        *PVSCache
	maxVisible int
}

func NewScanner(w world.World, pvs *PVSCache) *Scanner {
	return &Scanner{world: w, pvs: pvs, maxVisible: DefaultMaxVisible}
}

type candidate struct {
	id       core.EntityID
	distance float64
}

// Scan returns visible hostile candidates, nearest first. Candidates are
// rejected by field of view and visibility range, then by PVS, and only then
// traced.
func (s *Scanner) Scan(agent core.EntityID, candidates []core.EntityID) []core.EntityID {
	self, ok := s.world.Entity(agent)
	if !ok {
		return nil
	}
	frame := s.world.Frame()
	forward := self.Forward.Normalize()

	var inView []candidate
	for _, id := range candidates {
		if !s.world.IsValidHostile(agent, id) {
			continue
		}
		e, ok := s.world.Entity(id)
		if !ok {
			continue
		}
		toTarget := e.Origin.Sub(self.Origin)
		sq := toTarget.SquaredLength()
		if sq < 1 {
			continue
		}
		if e.VisibilityRange > 0 && sq > e.VisibilityRange*e.VisibilityRange {
			continue
		}
		dist := toTarget.Length()
		if toTarget.Scale(1/dist).Dot(forward) < self.FovDot {
			continue
		}
		inView = append(inView, candidate{id: id, distance: dist})
	}
	slices.SortStableFunc(inView, func(a, b candidate) int {
		switch {
		case a.distance < b.distance:
			return -1
		case a.distance > b.distance:
			return 1
		}
		return 0
	})

	var visible []core.EntityID
	eye := self.Origin.Add(core.Vec3{Z: EyeHeight})
	for _, c := range inView {
		if len(visible) == s.maxVisible {
			break
		}
		if s.pvs != nil && !s.pvs.AreInPVS(frame, agent, c.id) {
			continue
		}
		e, _ := s.world.Entity(c.id)
		if s.isVisible(agent, eye, e) {
			visible = append(visible, c.id)
		}
	}
	return visible
}

// isVisible traces to the target origin first, then to points on its sides
// and at its head and feet.
func (s *Scanner) isVisible(agent core.EntityID, eye core.Vec3, target core.EntityState) bool {
	if world.CanSee(s.world, eye, target.Origin, agent, target.ID) {
		return true
	}
	dir := target.Origin.Sub(eye)
	right := core.Vec3{X: -dir.Y, Y: dir.X}.Normalize()
	side := max(target.Maxs.X, 8.0)
	zOffsets := [...]float64{target.Maxs.Z - 4, target.Mins.Z + 4, 0}
	for _, dz := range zOffsets {
		for _, sign := range [...]float64{-1, 1} {
			p := target.Origin.Add(right.Scale(sign * side)).Add(core.Vec3{Z: dz})
			if world.CanSee(s.world, eye, p, agent, target.ID) {
				return true
			}
		}
	}
	return false
}
