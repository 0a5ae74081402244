package perception

import "github.com/OCAP2/awareness/pkg/core"

// PVSSource answers the raw potentially-visible-set query.
type PVSSource interface {
	PotentiallyVisible(a, b core.EntityID) bool
}

const (
	pvsUnknown uint64 = 0
	pvsFalse   uint64 = 1
	pvsTrue    uint64 = 2

	pvsWordsPerRow = core.MaxEntities * 2 / 64
)

// PVSCache memoizes the symmetric PVS relation between entity pairs for one
// frame. Each pair takes two bits in the row of the lower entity id. A row
// stamped with an older frame reads as unknown and is wiped on first use.
type PVSCache struct {
	source PVSSource
	rows   [core.MaxEntities]*[pvsWordsPerRow]uint64
	stamps [core.MaxEntities]core.Frame

	queries uint64
}

func NewPVSCache(source PVSSource) *PVSCache {
	return &PVSCache{source: source}
}

// AreInPVS reports whether a and b are potentially visible to each other.
// Invalid ids are never in PVS.
func (c *PVSCache) AreInPVS(frame core.Frame, a, b core.EntityID) bool {
	if !a.Valid() || !b.Valid() {
		return false
	}
	if a > b {
		a, b = b, a
	}
	row := c.row(frame, a)
	word, shift := int(b)*2/64, uint(int(b)*2%64)
	switch (row[word] >> shift) & 3 {
	case pvsFalse:
		return false
	case pvsTrue:
		return true
	}

	c.queries++
	visible := c.source.PotentiallyVisible(a, b)
	mark := pvsFalse
	if visible {
		mark = pvsTrue
	}
	row[word] = row[word]&^(3<<shift) | mark<<shift
	return visible
}

// Queries returns how many times the source has been consulted.
func (c *PVSCache) Queries() uint64 { return c.queries }

func (c *PVSCache) row(frame core.Frame, id core.EntityID) *[pvsWordsPerRow]uint64 {
	r := c.rows[id]
	if r == nil {
		r = new([pvsWordsPerRow]uint64)
		c.rows[id] = r
		c.stamps[id] = frame + 1
		return r
	}
	// stamps hold frame+1 so that the zero value never matches frame 0
	if c.stamps[id] != frame+1 {
		*r = [pvsWordsPerRow]uint64{}
		c.stamps[id] = frame + 1
	}
	return r
}
