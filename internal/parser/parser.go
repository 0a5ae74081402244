// Package parser converts raw simulator command arguments into core events.
package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/OCAP2/awareness/internal/util"
	"github.com/OCAP2/awareness/pkg/core"
)

// ErrArgCount is returned when a command carries fewer arguments than required.
var ErrArgCount = errors.New("not enough arguments")

// parseUintFromFloat parses a string that may be an integer ("32") or float ("32.00") into uint64.
// Scripted callers often have no integer type, so ids may arrive as floats.
func parseUintFromFloat(s string) (uint64, error) {
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != float64(uint64(f)) {
		return 0, fmt.Errorf("parseUintFromFloat: %q is not a valid uint64", s)
	}
	return uint64(f), nil
}

// parseIntFromFloat parses a string that may be an integer or float into int64.
func parseIntFromFloat(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a valid int64", s)
	}
	return int64(f), nil
}

func parseEntityID(s string) (core.EntityID, error) {
	v, err := parseUintFromFloat(s)
	if err != nil {
		return core.NoEntity, err
	}
	if v >= core.MaxEntities {
		return core.NoEntity, fmt.Errorf("entity id %d out of range", v)
	}
	return core.EntityID(v), nil
}

func parseTimestamp(s string) (core.Timestamp, error) {
	v, err := parseIntFromFloat(s)
	if err != nil {
		return 0, err
	}
	return core.Timestamp(v), nil
}

func need(data []string, n int, what string) error {
	if len(data) < n {
		return fmt.Errorf("%s: got %d of %d: %w", what, len(data), n, ErrArgCount)
	}
	return nil
}

// Service is the parsing surface the worker depends on.
type Service interface {
	ParseEntityState(data []string) (core.EntityState, error)
	ParseEntityRef(data []string) (core.EntityID, error)
	ParseObstacle(data []string) (Obstacle, error)
	ParseAgent(data []string) (AgentSpec, error)
	ParseSighting(data []string) (core.Sighting, error)
	ParseGuess(data []string) (core.Guess, error)
	ParsePain(data []string) (core.Pain, error)
	ParseDamage(data []string) (core.Damage, error)
	ParseForget(data []string) (core.Forget, error)
	ParseHazard(data []string) (core.HazardReport, error)
	ParseSound(data []string) (core.Sound, error)
	ParseTeleportOut(data []string) (core.TeleportOut, error)
	ParseSquadMembership(data []string) (SquadMembership, error)
	ParseRoleWeight(data []string) (RoleWeight, error)
}

var _ Service = (*Parser)(nil)

// Parser provides pure []string -> core struct conversion.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// clean trims and unescapes the arguments in place.
func clean(data []string) []string {
	return util.CleanArgs(data)
}

// ParseAgent parses agent id and skill.
func (p *Parser) ParseAgent(data []string) (AgentSpec, error) {
	var spec AgentSpec
	if err := need(data, 2, "agent"); err != nil {
		return spec, err
	}
	clean(data)

	agent, err := parseEntityID(data[0])
	if err != nil {
		return spec, fmt.Errorf("error converting agent id: %w", err)
	}
	spec.Agent = agent

	spec.Skill, err = strconv.ParseFloat(data[1], 64)
	if err != nil {
		return spec, fmt.Errorf("error converting skill to float: %w", err)
	}
	if spec.Skill < 0 || spec.Skill > 1 {
		p.logger.Warn("skill out of range, clamping", "agent", agent, "skill", spec.Skill)
		spec.Skill = util.Clamp(spec.Skill, 0, 1)
	}
	return spec, nil
}

// ParseEntityRef parses a single entity id, as used by removal commands.
func (p *Parser) ParseEntityRef(data []string) (core.EntityID, error) {
	if err := need(data, 1, "entity"); err != nil {
		return core.NoEntity, err
	}
	clean(data)
	id, err := parseEntityID(data[0])
	if err != nil {
		return core.NoEntity, fmt.Errorf("error converting entity id: %w", err)
	}
	return id, nil
}

// parsePair reads the (agent, entity) prefix shared by perception events.
func parsePair(data []string) (core.EntityID, core.EntityID, error) {
	agent, err := parseEntityID(data[0])
	if err != nil {
		return 0, 0, fmt.Errorf("error converting agent id: %w", err)
	}
	entity, err := parseEntityID(data[1])
	if err != nil {
		return 0, 0, fmt.Errorf("error converting entity id: %w", err)
	}
	return agent, entity, nil
}

func parseFlags(s string) map[string]bool {
	flags := make(map[string]bool)
	for _, f := range strings.Split(s, "|") {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			flags[f] = true
		}
	}
	return flags
}
