package parser

import (
	"log/slog"
	"strconv"
	"testing"

	"github.com/OCAP2/awareness/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newTestParser() *Parser {
	return NewParser(slog.Default())
}

func TestNewParser(t *testing.T) {
	p := newTestParser()
	require.NotNil(t, p)

	p = NewParser(nil)
	require.NotNil(t, p.logger)
}

// Game side numbers arrive as "32" or "32.00"; both must decode, fractions must not.
func TestWholeNumbers(t *testing.T) {
	tests := []struct {
		input   string
		signed  int64
		unsign  uint64
		signErr bool
		uintErr bool
	}{
		{input: "32", signed: 32, unsign: 32},
		{input: "32.00", signed: 32, unsign: 32},
		{input: "0", signed: 0, unsign: 0},
		{input: "-2", signed: -2, uintErr: true},
		{input: "-2.0", signed: -2, uintErr: true},
		{input: "10.5", signErr: true, uintErr: true},
		{input: "", signErr: true, uintErr: true},
		{input: "team", signErr: true, uintErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			i, err := parseIntFromFloat(tt.input)
			if tt.signErr {
				assert.Error(t, err)
			} else if assert.NoError(t, err) {
				assert.Equal(t, tt.signed, i)
			}

			u, err := parseUintFromFloat(tt.input)
			if tt.uintErr {
				assert.Error(t, err)
			} else if assert.NoError(t, err) {
				assert.Equal(t, tt.unsign, u)
			}
		})
	}
}

func TestWholeNumbers_FormattedFloats(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		v := rapid.Int64Range(-1<<20, 1<<20).Draw(rt, "v")
		s := strconv.FormatFloat(float64(v), 'f', rapid.IntRange(0, 3).Draw(rt, "decimals"), 64)

		got, err := parseIntFromFloat(s)
		if err != nil || got != v {
			rt.Fatalf("parseIntFromFloat(%q) = %d, %v", s, got, err)
		}
		u, err := parseUintFromFloat(s)
		if v < 0 {
			if err == nil {
				rt.Fatalf("parseUintFromFloat(%q) accepted a negative", s)
			}
			return
		}
		if err != nil || u != uint64(v) {
			rt.Fatalf("parseUintFromFloat(%q) = %d, %v", s, u, err)
		}
	})
}

func TestParseEntityID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    core.EntityID
		wantErr bool
	}{
		{"integer", "7", 7, false},
		{"float", "7.0", 7, false},
		{"zero is the null entity", "0", core.NoEntity, false},
		{"last slot", "1023", 1023, false},
		{"out of range", "1024", 0, true},
		{"garbage", "x", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseEntityID(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseAgent(t *testing.T) {
	p := newTestParser()

	spec, err := p.ParseAgent([]string{"3", "0.75"})
	require.NoError(t, err)
	assert.Equal(t, AgentSpec{Agent: 3, Skill: 0.75}, spec)

	spec, err = p.ParseAgent([]string{`"4"`, "1.5"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, spec.Skill, "skill is clamped")

	_, err = p.ParseAgent([]string{"3"})
	assert.ErrorIs(t, err, ErrArgCount)

	_, err = p.ParseAgent([]string{"3", "high"})
	assert.Error(t, err)
}

func TestParseEntityRef(t *testing.T) {
	p := newTestParser()

	id, err := p.ParseEntityRef([]string{" 12 "})
	require.NoError(t, err)
	assert.Equal(t, core.EntityID(12), id)

	_, err = p.ParseEntityRef(nil)
	assert.ErrorIs(t, err, ErrArgCount)
}

func TestParseFlags(t *testing.T) {
	flags := parseFlags("Carrier| busy||ghosting ")
	assert.Equal(t, map[string]bool{"carrier": true, "busy": true, "ghosting": true}, flags)
	assert.Empty(t, parseFlags(""))
}
