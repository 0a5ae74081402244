package attackstats

import (
	"github.com/OCAP2/awareness/internal/util"
	"github.com/OCAP2/awareness/pkg/core"
)

// Pool is a bounded set of Stats records keyed by entity.
type Pool struct {
	records     []Stats
	timeout     core.Timestamp
	damageBound float64
}

// NewPool creates a pool with room for capacity entities. Records idle for
// longer than timeout are cleared on Frame. damageBound saturates the damage
// factor of the replacement score.
func NewPool(capacity int, timeout core.Timestamp, damageBound float64) *Pool {
	if capacity < 1 {
		capacity = 1
	}
	return &Pool{
		records:     make([]Stats, capacity),
		timeout:     timeout,
		damageBound: damageBound,
	}
}

func (p *Pool) Cap() int { return len(p.records) }

// Len returns the number of occupied records.
func (p *Pool) Len() int {
	n := 0
	for i := range p.records {
		if p.records[i].entity != core.NoEntity {
			n++
		}
	}
	return n
}

// SetDamageBound changes the saturation bound used when choosing a record to replace.
func (p *Pool) SetDamageBound(bound float64) { p.damageBound = bound }

// Find returns the record of entity, or nil.
func (p *Pool) Find(entity core.EntityID) *Stats {
	if entity == core.NoEntity {
		return nil
	}
	for i := range p.records {
		if p.records[i].entity == entity {
			return &p.records[i]
		}
	}
	return nil
}

// Enqueue returns the record of entity, creating one if needed. When the pool
// is full the record least worth keeping is replaced: old records with little
// accumulated damage go first.
func (p *Pool) Enqueue(entity core.EntityID, now core.Timestamp) *Stats {
	if entity == core.NoEntity {
		return nil
	}
	if s := p.Find(entity); s != nil {
		return s
	}
	for i := range p.records {
		if p.records[i].entity == core.NoEntity {
			s := &p.records[i]
			s.Clear()
			s.entity = entity
			s.lastTouchAt = now
			return s
		}
	}

	victim := 0
	bestScore := -1.0
	for i := range p.records {
		s := &p.records[i]
		timeFactor := util.BoundedFraction(float64(now-s.LastActivityAt()), float64(p.timeout))
		damageFactor := 1 - util.BoundedFraction(s.totalDamage, p.damageBound)
		score := 0.1 + timeFactor*damageFactor
		if score > bestScore {
			bestScore = score
			victim = i
		}
	}
	s := &p.records[victim]
	s.Clear()
	s.entity = entity
	s.lastTouchAt = now
	return s
}

// OnDamage records damage dealt by or to entity.
func (p *Pool) OnDamage(entity core.EntityID, now core.Timestamp, damage float64) {
	if s := p.Enqueue(entity, now); s != nil {
		s.OnDamage(now, damage)
	}
}

// Touch marks entity as still relevant if it is already pooled.
func (p *Pool) Touch(entity core.EntityID, now core.Timestamp) {
	if s := p.Find(entity); s != nil {
		s.Touch(now)
	}
}

// Frame advances every ring and clears records idle past the timeout.
func (p *Pool) Frame(now core.Timestamp) {
	for i := range p.records {
		s := &p.records[i]
		if s.entity == core.NoEntity {
			continue
		}
		if now-s.LastActivityAt() > p.timeout {
			s.Clear()
			continue
		}
		s.Frame()
	}
}

// Contains reports whether entity is pooled.
func (p *Pool) Contains(entity core.EntityID) bool { return p.Find(entity) != nil }

// LastActivityAt returns the last activity time of entity, or 0.
func (p *Pool) LastActivityAt(entity core.EntityID) core.Timestamp {
	if s := p.Find(entity); s != nil {
		return s.LastActivityAt()
	}
	return 0
}

// TotalDamage returns the damage currently in the ring of entity.
func (p *Pool) TotalDamage(entity core.EntityID) float64 {
	if s := p.Find(entity); s != nil {
		return s.totalDamage
	}
	return 0
}

// Clear empties the pool.
func (p *Pool) Clear() {
	for i := range p.records {
		p.records[i].Clear()
	}
}
