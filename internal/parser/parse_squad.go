package parser

import (
	"fmt"
	"strconv"
)

// ParseSquadMembership parses squad name and agent id.
func (p *Parser) ParseSquadMembership(data []string) (SquadMembership, error) {
	var m SquadMembership
	if err := need(data, 2, "squad membership"); err != nil {
		return m, err
	}
	clean(data)

	if data[0] == "" {
		return m, fmt.Errorf("empty squad name")
	}
	m.Squad = data[0]

	agent, err := parseEntityID(data[1])
	if err != nil {
		return m, fmt.Errorf("error converting agent id: %w", err)
	}
	m.Agent = agent
	return m, nil
}

// ParseRoleWeight parses squad name, agent id and role weight.
func (p *Parser) ParseRoleWeight(data []string) (RoleWeight, error) {
	var r RoleWeight
	if err := need(data, 3, "role weight"); err != nil {
		return r, err
	}

	m, err := p.ParseSquadMembership(data[:2])
	if err != nil {
		return r, err
	}
	r.Squad, r.Agent = m.Squad, m.Agent

	clean(data[2:])
	if r.Weight, err = strconv.ParseFloat(data[2], 64); err != nil {
		return r, fmt.Errorf("error converting role weight to float: %w", err)
	}
	if r.Weight < 0 {
		return r, fmt.Errorf("role weight must not be negative, got %v", r.Weight)
	}
	return r, nil
}
