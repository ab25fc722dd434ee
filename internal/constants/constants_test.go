package constants

import (
	"math"
	"testing"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		key    string
		name   string
		radius float64
	}{
		{"earth", "Earth", EarthRadiusEquatorial},
		{"moon", "Moon", 1737.4},
		{"sun", "Sun", 695700.0},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			b, ok := Lookup(tt.key)
			if !ok {
				t.Fatalf("Lookup(%q) not found", tt.key)
			}
			if b.Name != tt.name || b.Radius != tt.radius {
				t.Errorf("Lookup(%q) = %+v", tt.key, b)
			}
		})
	}

	if _, ok := Lookup("pluto"); ok {
		t.Error("expected unknown body lookup to fail")
	}
}

// TestEarthCopy verifies callers cannot mutate the shared table.
func TestEarthCopy(t *testing.T) {
	e := Earth()
	e.Mu = 1
	if Earth().Mu != EarthMu {
		t.Fatalf("Earth().Mu changed to %v after caller mutation", Earth().Mu)
	}
}

func TestRotationRate(t *testing.T) {
	// IAU value is 7.2921159e-5 rad/s; the sidereal-day derivation is within 1e-10.
	if math.Abs(EarthRotationRate-7.2921159e-5) > 1e-10 {
		t.Errorf("EarthRotationRate = %.12e", EarthRotationRate)
	}
}
