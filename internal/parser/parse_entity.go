package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/OCAP2/awareness/pkg/core"
)

// ParseEntityState parses a full entity snapshot.
//
//	0 id, 1 name, 2 team, 3 origin, 4 velocity, 5 forward, 6 health, 7 armor,
//	8 isClient, 9 intrinsicWeight, 10 powerups, 11 flags, 12 fovDot,
//	13 visibilityRange, [14 arsenal, 15 mins, 16 maxs]
//
// Flags are '|' separated names out of carrier, teleported, notarget, busy and ghosting.
func (p *Parser) ParseEntityState(data []string) (core.EntityState, error) {
	var state core.EntityState
	if err := need(data, 14, "entity state"); err != nil {
		return state, err
	}
	clean(data)

	id, err := parseEntityID(data[0])
	if err != nil {
		return state, fmt.Errorf("error converting entity id: %w", err)
	}
	state.ID = id
	state.Name = data[1]
	state.InUse = true

	team, err := parseIntFromFloat(data[2])
	if err != nil {
		return state, fmt.Errorf("error converting team to int: %w", err)
	}
	state.Team = int(team)

	if state.Origin, err = core.ParseVec3(data[3]); err != nil {
		return state, fmt.Errorf("error parsing origin: %w", err)
	}
	if state.Velocity, err = core.ParseVec3(data[4]); err != nil {
		return state, fmt.Errorf("error parsing velocity: %w", err)
	}
	if state.Forward, err = core.ParseVec3(data[5]); err != nil {
		return state, fmt.Errorf("error parsing forward: %w", err)
	}

	if state.Health, err = strconv.ParseFloat(data[6], 64); err != nil {
		return state, fmt.Errorf("error converting health to float: %w", err)
	}
	if state.Armor, err = strconv.ParseFloat(data[7], 64); err != nil {
		return state, fmt.Errorf("error converting armor to float: %w", err)
	}
	if state.IsClient, err = strconv.ParseBool(data[8]); err != nil {
		return state, fmt.Errorf("error converting isClient to bool: %w", err)
	}
	if state.IntrinsicWeight, err = strconv.ParseFloat(data[9], 64); err != nil {
		return state, fmt.Errorf("error converting intrinsicWeight to float: %w", err)
	}

	powerups, err := parseUintFromFloat(data[10])
	if err != nil {
		return state, fmt.Errorf("error converting powerups to uint: %w", err)
	}
	state.Powerups = core.Powerups(powerups)

	for flag := range parseFlags(data[11]) {
		switch flag {
		case "carrier":
			state.IsCarrier = true
		case "teleported":
			state.Teleported = true
		case "notarget":
			state.NoTarget = true
		case "busy":
			state.Busy = true
		case "ghosting":
			state.Ghosting = true
		default:
			p.logger.Warn("unknown entity flag", "entity", id, "flag", flag)
		}
	}

	if state.FovDot, err = strconv.ParseFloat(data[12], 64); err != nil {
		return state, fmt.Errorf("error converting fovDot to float: %w", err)
	}
	if state.VisibilityRange, err = strconv.ParseFloat(data[13], 64); err != nil {
		return state, fmt.Errorf("error converting visibilityRange to float: %w", err)
	}

	if len(data) > 14 && data[14] != "" {
		if state.Arsenal, err = parseArsenal(data[14]); err != nil {
			return state, fmt.Errorf("error parsing arsenal: %w", err)
		}
	}
	if len(data) > 16 {
		if state.Mins, err = core.ParseVec3(data[15]); err != nil {
			return state, fmt.Errorf("error parsing mins: %w", err)
		}
		if state.Maxs, err = core.ParseVec3(data[16]); err != nil {
			return state, fmt.Errorf("error parsing maxs: %w", err)
		}
	}

	return state, nil
}

// parseArsenal reads "rockets,waves,instas,bolts,lasers,bullets" with
// optional trailing "plasmas,shells".
func parseArsenal(s string) (core.Arsenal, error) {
	var a core.Arsenal
	parts := strings.Split(strings.Trim(s, "[]"), ",")
	if len(parts) != 6 && len(parts) != 8 {
		return a, fmt.Errorf("want 6 or 8 ammo counters, got %d", len(parts))
	}
	fields := []*int{&a.Rockets, &a.Waves, &a.Instas, &a.Bolts, &a.Lasers, &a.Bullets, &a.Plasmas, &a.Shells}
	for i, part := range parts {
		v, err := parseIntFromFloat(strings.TrimSpace(part))
		if err != nil {
			return a, err
		}
		*fields[i] = int(v)
	}
	return a, nil
}

// ParseObstacle parses mins and maxs of a solid box.
func (p *Parser) ParseObstacle(data []string) (Obstacle, error) {
	var o Obstacle
	if err := need(data, 2, "obstacle"); err != nil {
		return o, err
	}
	clean(data)

	var err error
	if o.Mins, err = core.ParseVec3(data[0]); err != nil {
		return o, fmt.Errorf("error parsing mins: %w", err)
	}
	if o.Maxs, err = core.ParseVec3(data[1]); err != nil {
		return o, fmt.Errorf("error parsing maxs: %w", err)
	}
	if o.Mins.X > o.Maxs.X || o.Mins.Y > o.Maxs.Y || o.Mins.Z > o.Maxs.Z {
		return o, fmt.Errorf("obstacle mins %s exceed maxs %s", o.Mins, o.Maxs)
	}
	return o, nil
}
