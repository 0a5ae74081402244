package awareness

import (
	"github.com/OCAP2/awareness/internal/enemies"
	"github.com/OCAP2/awareness/pkg/core"
)

// agentHooks connects the private table to its tracker.
type agentHooks struct {
	enemies.NopHooks
	tracker *Tracker
}

func (h *agentHooks) OnEnemyRemoved(e *enemies.Enemy) { h.tracker.OnEnemyRemoved(e) }

func (h *agentHooks) OnNewThreat(entity core.EntityID) { h.tracker.onHurtByNewThreat(entity, true) }

func (h *agentHooks) HasQuad() bool {
	s, ok := h.tracker.State()
	return ok && s.HasQuad()
}

func (h *agentHooks) HasShell() bool {
	s, ok := h.tracker.State()
	return ok && s.HasShell()
}

func (h *agentHooks) DamageToBeKilled() float64 {
	tun := h.tracker.own.Tunables()
	return h.tracker.world.DamageToKill(h.tracker.agent, tun.ArmorProtection, tun.ArmorDegradation)
}

func (h *agentHooks) DistanceTo(origin core.Vec3) float64 {
	s, ok := h.tracker.State()
	if !ok {
		return 0
	}
	return s.Origin.DistanceTo(origin)
}
