package enemies

import "github.com/OCAP2/awareness/pkg/core"

// Capacity limits
const (
	// MaxTrackedEnemies is the slot budget of a table at full skill.
	MaxTrackedEnemies = 16
	// MaxTrackedSnapshots bounds the sighting history of one enemy.
	MaxTrackedSnapshots = 16
	MaxTrackedAttackers = 5
	MaxTrackedTargets   = 5
	MaxActiveEnemies    = 3
)

// Timeouts in milliseconds
const (
	NotSeenUnlinkTimeout  core.Timestamp = 8000
	NotSeenSuggestTimeout core.Timestamp = 4000
	AttackerTimeout       core.Timestamp = 4000
	TargetTimeout         core.Timestamp = 4000

	teleportRefreshWindow     core.Timestamp = 64
	minWeightVisibilityWindow core.Timestamp = 64
	decisionRandomPeriod      core.Timestamp = 1500
)

// Weighting
const (
	// MaxEnemyWeight caps every raw weight.
	MaxEnemyWeight = 5.0

	attackerWeightBonus = 1.55
	targetWeightBonus   = 1.55
	carrierWeightBonus  = 2.0
	maxDamageToKill     = 350.0
	clientBaseWeight    = 0.5
)

// Eviction and selection
const (
	evictionEpsilon        = 0.001
	evictionDistanceBound  = 2500.0
	attackerEvictionBonus  = 0.5
	randomEvictionMaxSkill = 0.66

	activeDistanceBound  = 3500.0
	activeRelevanceCliff = 0.5
	lostDistanceBound    = 2000.0
	lostEnemyMinSkill    = 0.33

	attackerDamageBound = 500.0
	targetDamageBound   = 300.0

	defaultArmorProtection  = 0.66
	defaultArmorDegradation = 0.66
)

// Spot blocking distances
const (
	blockRadius       = 256.0
	blockQuadRadius   = 768.0
	blockNoRailRange  = 1000.0
	blockUnawareRange = 1500.0
	blockAwareDot     = 0.3
)
