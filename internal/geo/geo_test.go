package geo

import (
	"math"
	"testing"
)

func TestDistanceIdentical(t *testing.T) {
	pts := []Coordinate{
		{0, 0},
		{41.0082, 28.9784},
		{-33.8688, 151.2093},
		{90, 0},
	}
	for _, p := range pts {
		if d := Distance(p, p); d != 0 {
			t.Errorf("Distance(%v, %v) = %v, want 0", p, p, d)
		}
	}
}

func TestDistanceSymmetry(t *testing.T) {
	a := Coordinate{41.0082, 28.9784}
	b := Coordinate{-33.8688, 151.2093}
	if d1, d2 := Distance(a, b), Distance(b, a); math.Abs(d1-d2) > 1e-9 {
		t.Errorf("Distance not symmetric: %v vs %v", d1, d2)
	}
}

func TestDistanceReferencePairs(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Coordinate
		min, max float64
	}{
		{
			name: "adjacent points",
			a:    Coordinate{41.0082, 28.9784},
			b:    Coordinate{41.0083, 28.9785},
			min:  13, max: 15,
		},
		{
			name: "across town",
			a:    Coordinate{41.0082, 28.9784},
			b:    Coordinate{41.0200, 28.9900},
			min:  1500, max: 1600,
		},
		{
			name: "antipodal",
			a:    Coordinate{0, 0},
			b:    Coordinate{0, 180},
			min:  20014000, max: 20016000,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Distance(tt.a, tt.b)
			if d < tt.min || d > tt.max {
				t.Errorf("Distance() = %v, want within [%v, %v]", d, tt.min, tt.max)
			}
		})
	}
}
