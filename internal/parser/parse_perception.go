package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/OCAP2/awareness/pkg/core"
)

// ParseSighting parses agent and the entity it sees.
func (p *Parser) ParseSighting(data []string) (core.Sighting, error) {
	var s core.Sighting
	if err := need(data, 2, "sighting"); err != nil {
		return s, err
	}
	clean(data)

	var err error
	s.Agent, s.Entity, err = parsePair(data)
	return s, err
}

// ParseGuess parses agent, entity, minStaleness and an optional guessed origin.
// Without an origin the entity's true position is used.
func (p *Parser) ParseGuess(data []string) (core.Guess, error) {
	var g core.Guess
	if err := need(data, 3, "guess"); err != nil {
		return g, err
	}
	clean(data)

	var err error
	if g.Agent, g.Entity, err = parsePair(data); err != nil {
		return g, err
	}
	if g.MinStaleness, err = parseTimestamp(data[2]); err != nil {
		return g, fmt.Errorf("error converting minStaleness: %w", err)
	}
	if len(data) > 3 && data[3] != "" {
		origin, err := core.ParseVec3(data[3])
		if err != nil {
			return g, fmt.Errorf("error parsing guessed origin: %w", err)
		}
		g.Origin = &origin
	}
	return g, nil
}

// ParsePain parses agent, attacker, kick and damage.
func (p *Parser) ParsePain(data []string) (core.Pain, error) {
	var pain core.Pain
	if err := need(data, 4, "pain"); err != nil {
		return pain, err
	}
	clean(data)

	var err error
	if pain.Agent, pain.Attacker, err = parsePair(data); err != nil {
		return pain, err
	}
	if pain.Kick, err = strconv.ParseFloat(data[2], 64); err != nil {
		return pain, fmt.Errorf("error converting kick to float: %w", err)
	}
	if pain.Damage, err = strconv.ParseFloat(data[3], 64); err != nil {
		return pain, fmt.Errorf("error converting damage to float: %w", err)
	}
	return pain, nil
}

// ParseDamage parses agent, target and the damage dealt.
func (p *Parser) ParseDamage(data []string) (core.Damage, error) {
	var d core.Damage
	if err := need(data, 3, "damage"); err != nil {
		return d, err
	}
	clean(data)

	var err error
	if d.Agent, d.Target, err = parsePair(data); err != nil {
		return d, err
	}
	if d.Amount, err = strconv.ParseFloat(data[2], 64); err != nil {
		return d, fmt.Errorf("error converting damage to float: %w", err)
	}
	return d, nil
}

// ParseForget parses agent and the entity to drop from memory.
func (p *Parser) ParseForget(data []string) (core.Forget, error) {
	var f core.Forget
	if err := need(data, 2, "forget"); err != nil {
		return f, err
	}
	clean(data)

	var err error
	f.Agent, f.Entity, err = parsePair(data)
	return f, err
}

// ParseHazard parses agent, attacker, damage, hitPoint, direction and splash radius.
func (p *Parser) ParseHazard(data []string) (core.HazardReport, error) {
	var h core.HazardReport
	if err := need(data, 6, "hazard"); err != nil {
		return h, err
	}
	clean(data)

	var err error
	if h.Agent, h.Attacker, err = parsePair(data); err != nil {
		return h, err
	}
	if h.Damage, err = strconv.ParseFloat(data[2], 64); err != nil {
		return h, fmt.Errorf("error converting damage to float: %w", err)
	}
	if h.HitPoint, err = core.ParseVec3(data[3]); err != nil {
		return h, fmt.Errorf("error parsing hit point: %w", err)
	}
	if h.Direction, err = core.ParseVec3(data[4]); err != nil {
		return h, fmt.Errorf("error parsing direction: %w", err)
	}
	if h.SplashRadius, err = strconv.ParseFloat(data[5], 64); err != nil {
		return h, fmt.Errorf("error converting splash radius to float: %w", err)
	}
	if h.Damage <= 0 {
		return h, fmt.Errorf("hazard damage must be positive, got %v", h.Damage)
	}
	return h, nil
}

// ParseSound parses source, kind and origin of an audible event.
func (p *Parser) ParseSound(data []string) (core.Sound, error) {
	var s core.Sound
	if err := need(data, 3, "sound"); err != nil {
		return s, err
	}
	clean(data)

	var err error
	if s.Source, err = parseEntityID(data[0]); err != nil {
		return s, fmt.Errorf("error converting source id: %w", err)
	}
	kind, ok := core.ParseSoundKind(strings.ToLower(data[1]))
	if !ok {
		return s, fmt.Errorf("unknown sound kind %q", data[1])
	}
	s.Kind = kind
	if s.Origin, err = core.ParseVec3(data[2]); err != nil {
		return s, fmt.Errorf("error parsing sound origin: %w", err)
	}
	return s, nil
}

// ParseTeleportOut parses player, teleporter origin and destination.
func (p *Parser) ParseTeleportOut(data []string) (core.TeleportOut, error) {
	var t core.TeleportOut
	if err := need(data, 3, "teleport"); err != nil {
		return t, err
	}
	clean(data)

	var err error
	if t.Player, err = parseEntityID(data[0]); err != nil {
		return t, fmt.Errorf("error converting player id: %w", err)
	}
	if t.Origin, err = core.ParseVec3(data[1]); err != nil {
		return t, fmt.Errorf("error parsing teleport origin: %w", err)
	}
	if t.Destination, err = core.ParseVec3(data[2]); err != nil {
		return t, fmt.Errorf("error parsing teleport destination: %w", err)
	}
	return t, nil
}
