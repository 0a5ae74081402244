// Package world defines the simulation collaborators the awareness engine
// queries and an in-memory implementation of them.
package world

import "github.com/OCAP2/awareness/pkg/core"

// Trace is the result of a solid-world line trace.
// Hit is false when the segment is unobstructed.
type Trace struct {
	Hit       bool
	HitPoint  core.Vec3
	HitEntity core.EntityID
}

// Clock supplies simulation time.
type Clock interface {
	Now() core.Timestamp
	Frame() core.Frame
}

// World is everything the engine needs to know about the simulation.
// All methods are side-effect free queries. Missing data is reported as
// "not visible" or "not found", never as an error.
type World interface {
	Clock
	Entity(id core.EntityID) (core.EntityState, bool)
	IsValidHostile(agent, id core.EntityID) bool
	LineOfSight(from, to core.Vec3, ignore core.EntityID) Trace
	PotentiallyVisible(a, b core.EntityID) bool
	BoxLeafs(mins, maxs core.Vec3, out []int) int
	DamageToKill(id core.EntityID, protection, degradation float64) float64
}

// CanSee reports whether a trace from "from" reaches target unobstructed or
// stops on the target itself.
func CanSee(w World, from, to core.Vec3, ignore, target core.EntityID) bool {
	tr := w.LineOfSight(from, to, ignore)
	return !tr.Hit || tr.HitEntity == target
}
