package awareness

import (
	"github.com/OCAP2/awareness/internal/world"
	"github.com/OCAP2/awareness/pkg/core"
)

// HurtEventTimeout is how long a hurt event stays valid after the last hit.
const HurtEventTimeout core.Timestamp = 350

// HurtEvent remembers who is hurting the agent from outside its view and
// roughly where from. It is checked on every read instead of expiring.
type HurtEvent struct {
	Inflictor      core.EntityID
	LastHitAt      core.Timestamp
	PossibleOrigin core.Vec3
	TotalDamage    float64
}

// IsValidFor reports whether the event still applies to self at now.
func (h HurtEvent) IsValidFor(w world.World, self core.EntityState) bool {
	if h.Inflictor == core.NoEntity {
		return false
	}
	if w.Now()-h.LastHitAt > HurtEventTimeout {
		return false
	}
	inflictor, ok := w.Entity(h.Inflictor)
	if !ok || !inflictor.InUse || inflictor.Ghosting {
		return false
	}
	if !inflictor.IsClient && inflictor.IntrinsicWeight <= 0 {
		return false
	}
	toThreat := inflictor.Origin.Sub(self.Origin).Normalize()
	return toThreat.Dot(self.Forward.Normalize()) < self.FovDot
}
