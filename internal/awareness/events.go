package awareness

import (
	"math/rand/v2"

	"github.com/OCAP2/awareness/internal/perception"
	"github.com/OCAP2/awareness/internal/world"
	"github.com/OCAP2/awareness/pkg/core"
)

const (
	eventGuessStaleness  core.Timestamp = 96
	hazardGuessStaleness core.Timestamp = 256

	impactHearingRange   = 512.0
	teleportHearingRange = 512.0
	plasmaImpactChance   = 0.3

	mateNearGuessRange = 300.0
	mateSameDirDot     = 0.9
	mateShadowRange    = 2048.0
)

type guessedOrigin struct {
	entity core.EntityID
	origin core.Vec3
}

type mateVis struct {
	id       core.EntityID
	origin   core.Vec3
	dir      core.Vec3
	distance float64
	viewDot  float64
	// -1 until tested
	visible int8
}

// EventsTracker turns heard world events into guessed enemy origins.
//
// Heard events are queued and applied on the next Think, after checking the
// source is still a valid hostile. In team games a sound is only attributed
// to an enemy when no teammate could have made it.
type EventsTracker struct {
	agent      core.EntityID
	skill      float64
	world      world.World
	pvs        *perception.PVSCache
	candidates func() []core.EntityID
	rng        *rand.Rand
	guess      func(entity core.EntityID, minStaleness core.Timestamp, origin *core.Vec3)

	queue []guessedOrigin

	matesComputed bool
	allMatesInFov bool
	mates         []mateVis
}

// Pending is the number of guesses waiting for the next Think.
func (e *EventsTracker) Pending() int { return len(e.queue) }

// RegisterSound considers a sound heard by the agent.
func (e *EventsTracker) RegisterSound(s core.Sound) {
	self, ok := e.world.Entity(e.agent)
	if !ok || !e.world.IsValidHostile(e.agent, s.Source) {
		return
	}
	r := s.Kind.Range()
	if r == 0 || self.Origin.SquareDistanceTo(s.Origin) > r*r {
		return
	}

	switch {
	case s.Kind.IsImpact():
		e.onImpact(self, s)
	case s.Kind.IsAtPlayer():
		e.push(s.Source, s.Origin)
	default:
		if e.canDistinguishFromTeammates(self, s.Origin) {
			e.push(s.Source, s.Origin)
		}
	}
}

func (e *EventsTracker) onImpact(self core.EntityState, s core.Sound) {
	if s.Kind == core.SoundPlasmaImpact && e.rng.Float64() > plasmaImpactChance {
		return
	}
	eye := self.Origin.Add(core.Vec3{Z: perception.EyeHeight})
	tr := e.world.LineOfSight(eye, s.Origin, e.agent)
	if !tr.Hit || tr.HitPoint.SquareDistanceTo(s.Origin) < 1 {
		// a visible impact gives its owner away
		if owner, ok := e.world.Entity(s.Source); ok {
			e.push(s.Source, owner.Origin)
		}
		return
	}
	if self.Origin.SquareDistanceTo(s.Origin) < impactHearingRange*impactHearingRange {
		e.push(s.Source, s.Origin)
	}
}

// RegisterTeleportOut considers a player seen or heard entering a teleporter.
// The guess is the teleporter destination.
func (e *EventsTracker) RegisterTeleportOut(t core.TeleportOut) {
	self, ok := e.world.Entity(e.agent)
	if !ok || !e.world.IsValidHostile(e.agent, t.Player) {
		return
	}
	r := teleportHearingRange * (2 + e.skill)
	if self.Origin.SquareDistanceTo(t.Origin) > r*r {
		return
	}
	e.push(t.Player, t.Destination)
}

// GuessHazardAttackers reports the attackers of fresh hazards right away,
// at their true origin.
func (e *EventsTracker) GuessHazardAttackers(hazards []core.HazardReport) {
	self, ok := e.world.Entity(e.agent)
	if !ok {
		return
	}
	for _, h := range hazards {
		if !e.world.IsValidHostile(e.agent, h.Attacker) {
			continue
		}
		attacker, ok := e.world.Entity(h.Attacker)
		if !ok {
			continue
		}
		if e.canDistinguishFromTeammates(self, attacker.Origin) {
			e.guess(h.Attacker, hazardGuessStaleness, nil)
		}
	}
}

// Think applies the queued guesses.
func (e *EventsTracker) Think() {
	for _, g := range e.queue {
		if !e.world.IsValidHostile(e.agent, g.entity) {
			continue
		}
		origin := g.origin
		e.guess(g.entity, eventGuessStaleness, &origin)
	}
	e.queue = e.queue[:0]
	e.ResetTeammates()
}

// ResetTeammates drops the per-frame teammate visibility data.
func (e *EventsTracker) ResetTeammates() {
	e.matesComputed = false
	e.mates = e.mates[:0]
}

func (e *EventsTracker) push(entity core.EntityID, origin core.Vec3) {
	e.queue = append(e.queue, guessedOrigin{entity: entity, origin: origin})
}

func (e *EventsTracker) canDistinguishFromTeammates(self core.EntityState, origin core.Vec3) bool {
	if self.Team == 0 {
		return true
	}
	e.computeTeammates(self)

	toEnemy := origin.Sub(self.Origin)
	distance := toEnemy.Length()
	if distance < 1 {
		return true
	}
	dir := toEnemy.Scale(1 / distance)
	if dir.Dot(self.Forward.Normalize()) < self.FovDot {
		// out of view: any mate out of view could have made the sound
		return e.allMatesInFov
	}

	for i := range e.mates {
		m := &e.mates[i]
		if m.viewDot < self.FovDot {
			if m.origin.SquareDistanceTo(origin) < mateNearGuessRange*mateNearGuessRange {
				return false
			}
			continue
		}
		if m.dir.Dot(dir) < mateSameDirDot {
			continue
		}
		if !e.mateVisible(self, m) {
			return false
		}
		// a far mate in the same direction might stand in the line of fire
		if distance > mateShadowRange && m.distance < distance {
			return false
		}
	}
	return true
}

func (e *EventsTracker) computeTeammates(self core.EntityState) {
	if e.matesComputed {
		return
	}
	e.matesComputed = true
	e.allMatesInFov = true
	e.mates = e.mates[:0]
	if e.candidates == nil {
		return
	}

	forward := self.Forward.Normalize()
	for _, id := range e.candidates() {
		if id == e.agent {
			continue
		}
		mate, ok := e.world.Entity(id)
		if !ok || !mate.InUse || !mate.IsClient || mate.Ghosting || mate.Team != self.Team {
			continue
		}
		toMate := mate.Origin.Sub(self.Origin)
		dir := toMate.Normalize()
		dot := dir.Dot(forward)
		if dot < self.FovDot {
			e.allMatesInFov = false
		}
		e.mates = append(e.mates, mateVis{
			id:       id,
			origin:   mate.Origin,
			dir:      dir,
			distance: toMate.Length(),
			viewDot:  dot,
			visible:  -1,
		})
	}
}

func (e *EventsTracker) mateVisible(self core.EntityState, m *mateVis) bool {
	if m.visible < 0 {
		m.visible = 0
		if e.pvs.AreInPVS(e.world.Frame(), e.agent, m.id) {
			eye := self.Origin.Add(core.Vec3{Z: perception.EyeHeight})
			if world.CanSee(e.world, eye, m.origin, e.agent, m.id) {
				m.visible = 1
			}
		}
	}
	return m.visible == 1
}
