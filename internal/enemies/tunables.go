package enemies

import (
	"github.com/OCAP2/awareness/internal/util"
	"github.com/OCAP2/awareness/pkg/core"
)

// Tunables are the per-owner limits derived from a skill level in [0, 1].
// They are fixed once a table is built.
type Tunables struct {
	Skill            float64
	Capacity         int
	MaxActive        int
	MaxAttackers     int
	MaxTargets       int
	ReactionTime     core.Timestamp
	NotSeenTimeout   core.Timestamp
	ArmorProtection  float64
	ArmorDegradation float64
}

// TunablesForSkill derives every limit from skill.
func TunablesForSkill(skill float64) Tunables {
	skill = util.Clamp(skill, 0, 1)
	return Tunables{
		Skill:            skill,
		Capacity:         3 + util.From0UpToMax(MaxTrackedEnemies-3, skill),
		MaxActive:        util.From1UpToMax(MaxActiveEnemies, skill),
		MaxAttackers:     util.From1UpToMax(MaxTrackedAttackers, skill),
		MaxTargets:       util.From1UpToMax(MaxTrackedTargets, skill),
		ReactionTime:     core.Timestamp(320 - util.From0UpToMax(300, skill)),
		NotSeenTimeout:   NotSeenUnlinkTimeout,
		ArmorProtection:  defaultArmorProtection,
		ArmorDegradation: defaultArmorDegradation,
	}
}

func (t Tunables) withDefaults() Tunables {
	t.Skill = util.Clamp(t.Skill, 0, 1)
	if t.Capacity < 1 {
		t.Capacity = 1
	}
	if t.Capacity > core.MaxEntities-1 {
		t.Capacity = core.MaxEntities - 1
	}
	t.MaxActive = max(t.MaxActive, 1)
	t.MaxAttackers = max(t.MaxAttackers, 1)
	t.MaxTargets = max(t.MaxTargets, 1)
	if t.ReactionTime < 0 {
		t.ReactionTime = 0
	}
	if t.NotSeenTimeout <= 0 {
		t.NotSeenTimeout = NotSeenUnlinkTimeout
	}
	if t.ArmorProtection == 0 && t.ArmorDegradation == 0 {
		t.ArmorProtection = defaultArmorProtection
		t.ArmorDegradation = defaultArmorDegradation
	}
	return t
}
