package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidVector is returned when a vector string cannot be parsed.
var ErrInvalidVector = errors.New("invalid vector")

// Vec3 is a point or direction in game units.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vec3) SquaredLength() float64 { return v.Dot(v) }

func (v Vec3) Length() float64 { return math.Sqrt(v.SquaredLength()) }

func (v Vec3) SquareDistanceTo(o Vec3) float64 { return v.Sub(o).SquaredLength() }

func (v Vec3) DistanceTo(o Vec3) float64 { return math.Sqrt(v.SquareDistanceTo(o)) }

// Normalize returns the unit vector along v, or the zero vector if v is degenerate.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l < 1e-9 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// IsZero reports whether all components are zero.
func (v Vec3) IsZero() bool { return v.X == 0 && v.Y == 0 && v.Z == 0 }

func (v Vec3) String() string {
	return fmt.Sprintf("%.2f,%.2f,%.2f", v.X, v.Y, v.Z)
}

// ParseVec3 parses "x,y,z" (brackets and spaces tolerated) into a Vec3.
func ParseVec3(s string) (Vec3, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Vec3{}, fmt.Errorf("%w: %q", ErrInvalidVector, s)
	}
	var out [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Vec3{}, fmt.Errorf("%w: %q: %v", ErrInvalidVector, s, err)
		}
		out[i] = f
	}
	return Vec3{X: out[0], Y: out[1], Z: out[2]}, nil
}
