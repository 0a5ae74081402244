package perception

import "github.com/OCAP2/awareness/pkg/core"

// MaxLeafs bounds how many leaves an entity box is tracked in.
const MaxLeafs = 8

// Leafer maps a bounding box to the world leaves it touches.
type Leafer interface {
	BoxLeafs(mins, maxs core.Vec3, out []int) int
}

// LeafSet is the set of leaves an entity's bounding box touches.
type LeafSet struct {
	leafs [MaxLeafs]int
	n     int
}

// ComputeLeafSet collects the leaves touched by e's absolute bounding box.
func ComputeLeafSet(w Leafer, e core.EntityState) LeafSet {
	var ls LeafSet
	ls.n = w.BoxLeafs(e.Origin.Add(e.Mins), e.Origin.Add(e.Maxs), ls.leafs[:])
	return ls
}

func (ls LeafSet) Len() int { return ls.n }

func (ls LeafSet) Leafs() []int { return ls.leafs[:ls.n] }

// Contains reports whether leaf belongs to the set.
func (ls LeafSet) Contains(leaf int) bool {
	for _, l := range ls.Leafs() {
		if l == leaf {
			return true
		}
	}
	return false
}

// Overlaps reports whether both sets share at least one leaf.
func (ls LeafSet) Overlaps(other LeafSet) bool {
	for _, l := range ls.Leafs() {
		if other.Contains(l) {
			return true
		}
	}
	return false
}
