package parser

import "github.com/OCAP2/awareness/pkg/core"

// AgentSpec describes a bot to attach an awareness tracker to.
type AgentSpec struct {
	Agent core.EntityID
	Skill float64
}

// SquadMembership names a squad and one of its members.
type SquadMembership struct {
	Squad string
	Agent core.EntityID
}

// RoleWeight sets how much squad mates favour the enemy Agent fights.
type RoleWeight struct {
	Squad  string
	Agent  core.EntityID
	Weight float64
}

// Obstacle is an axis-aligned solid box.
type Obstacle struct {
	Mins core.Vec3
	Maxs core.Vec3
}
