package cache

import (
	"slices"
	"sync"

	"github.com/OCAP2/awareness/pkg/core"
)

// EntityCache holds the latest snapshot of every simulated entity.
// Reads happen many times per tick from perception and weighting code, so
// lookups go through a map instead of scanning a slice.
type EntityCache struct {
	m        sync.RWMutex
	entities map[core.EntityID]core.EntityState
}

func NewEntityCache() *EntityCache {
	return &EntityCache{
		entities: make(map[core.EntityID]core.EntityState),
	}
}

func (c *EntityCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.entities = make(map[core.EntityID]core.EntityState)
}

func (c *EntityCache) Get(id core.EntityID) (core.EntityState, bool) {
	c.m.RLock()
	defer c.m.RUnlock()
	s, ok := c.entities[id]
	return s, ok
}

// Put stores s under s.ID. Null ids are ignored.
func (c *EntityCache) Put(s core.EntityState) {
	if s.ID == core.NoEntity {
		return
	}
	c.m.Lock()
	defer c.m.Unlock()
	c.entities[s.ID] = s
}

// Update applies fn to the stored snapshot of id. It reports false if id is unknown.
func (c *EntityCache) Update(id core.EntityID, fn func(*core.EntityState)) bool {
	c.m.Lock()
	defer c.m.Unlock()
	s, ok := c.entities[id]
	if !ok {
		return false
	}
	fn(&s)
	c.entities[id] = s
	return true
}

func (c *EntityCache) Remove(id core.EntityID) {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.entities, id)
}

func (c *EntityCache) Len() int {
	c.m.RLock()
	defer c.m.RUnlock()
	return len(c.entities)
}

// IDs returns all known ids in ascending order.
func (c *EntityCache) IDs() []core.EntityID {
	c.m.RLock()
	ids := make([]core.EntityID, 0, len(c.entities))
	for id := range c.entities {
		ids = append(ids, id)
	}
	c.m.RUnlock()
	slices.Sort(ids)
	return ids
}
