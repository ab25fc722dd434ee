package orbit

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/liamnightingale/OrbitSim/internal/constants"
	"gonum.org/v1/gonum/floats/scalar"
)

func issParams() Params {
	return Params{
		Name:                 "ISS (ZARYA)",
		CatalogNumber:        25544,
		Epoch:                time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC),
		Inclination:          51.64 * constants.DegreesToRadians,
		RAAN:                 100.0 * constants.DegreesToRadians,
		Eccentricity:         0.0001,
		ArgPerigee:           0,
		MeanAnomaly:          0,
		MeanMotionRevsPerDay: 15.5,
	}
}

// TestNewDerivesSemiMajorAxis checks n^2 a^3 = mu for an ISS-like orbit.
func TestNewDerivesSemiMajorAxis(t *testing.T) {
	el, err := New(issParams())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	wantN := 15.5 * 2 * math.Pi / 86400.0
	if !scalar.EqualWithinAbs(el.MeanMotion(), wantN, 1e-15) {
		t.Errorf("MeanMotion = %.12e, want %.12e", el.MeanMotion(), wantN)
	}

	// ISS orbits at roughly 420 km altitude: a ~ 6796 km.
	if a := el.SemiMajorAxis(); a < 6790 || a > 6800 {
		t.Errorf("SemiMajorAxis = %.1f km, want ~6796 km", a)
	}

	n := el.MeanMotion()
	a := el.SemiMajorAxis()
	if got := n * n * a * a * a; !scalar.EqualWithinRel(got, constants.EarthMu, 1e-12) {
		t.Errorf("n^2 a^3 = %.6f, want %.6f", got, constants.EarthMu)
	}
}

func TestPeriod(t *testing.T) {
	el, err := New(issParams())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	want := 86400.0 / 15.5
	if !scalar.EqualWithinAbs(el.Period(), want, 1e-9) {
		t.Errorf("Period = %.9f s, want %.9f s", el.Period(), want)
	}
}

func TestNewRejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"parabolic", func(p *Params) { p.Eccentricity = 1.0 }},
		{"hyperbolic", func(p *Params) { p.Eccentricity = 1.5 }},
		{"negative eccentricity", func(p *Params) { p.Eccentricity = -0.1 }},
		{"zero mean motion", func(p *Params) { p.MeanMotionRevsPerDay = 0 }},
		{"negative mean motion", func(p *Params) { p.MeanMotionRevsPerDay = -1 }},
		{"inside earth", func(p *Params) { p.MeanMotionRevsPerDay = 18 }},
		{"inclination above pi", func(p *Params) { p.Inclination = 4 }},
		{"nan anomaly", func(p *Params) { p.MeanAnomaly = math.NaN() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := issParams()
			tt.mutate(&p)
			_, err := New(p)
			if !errors.Is(err, ErrInvalidElements) {
				t.Fatalf("New error = %v, want ErrInvalidElements", err)
			}
		})
	}
}

func TestNewNormalizesAngles(t *testing.T) {
	p := issParams()
	p.RAAN = -math.Pi / 2
	p.ArgPerigee = 5 * math.Pi
	p.MeanAnomaly = 2 * math.Pi

	el, err := New(p)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if !scalar.EqualWithinAbs(el.RAAN(), 1.5*math.Pi, 1e-12) {
		t.Errorf("RAAN = %v, want 1.5pi", el.RAAN())
	}
	if !scalar.EqualWithinAbs(el.ArgPerigee(), math.Pi, 1e-12) {
		t.Errorf("ArgPerigee = %v, want pi", el.ArgPerigee())
	}
	if el.MeanAnomaly() != 0 {
		t.Errorf("MeanAnomaly = %v, want 0", el.MeanAnomaly())
	}
}

func TestWrapTwoPi(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{math.Pi, math.Pi},
		{2 * math.Pi, 0},
		{-math.Pi, math.Pi},
		{7 * math.Pi, math.Pi},
		{-1e-20, 0},
	}
	for _, tt := range tests {
		got := WrapTwoPi(tt.in)
		if got < 0 || got >= 2*math.Pi {
			t.Errorf("WrapTwoPi(%v) = %v, outside [0, 2pi)", tt.in, got)
		}
		if !scalar.EqualWithinAbs(got, tt.want, 1e-12) {
			t.Errorf("WrapTwoPi(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestApsides(t *testing.T) {
	p := issParams()
	p.Name = "MOLNIYA 1-91"
	p.Eccentricity = 0.72
	p.Inclination = 63.4 * constants.DegreesToRadians
	p.MeanMotionRevsPerDay = 2.00561

	el, err := New(p)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if !scalar.EqualWithinRel(el.PerigeeRadius(), el.SemiMajorAxis()*0.28, 1e-12) {
		t.Errorf("PerigeeRadius = %.3f", el.PerigeeRadius())
	}
	if !scalar.EqualWithinRel(el.ApogeeRadius(), el.SemiMajorAxis()*1.72, 1e-12) {
		t.Errorf("ApogeeRadius = %.3f", el.ApogeeRadius())
	}
	if el.ApogeeAltitude() < 35000 {
		t.Errorf("ApogeeAltitude = %.1f km, expected a Molniya apogee near 40000 km", el.ApogeeAltitude())
	}
}

func TestReportUnits(t *testing.T) {
	el, err := New(issParams())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	r := el.Report()

	if !scalar.EqualWithinAbs(r.InclinationDeg, 51.64, 1e-9) {
		t.Errorf("InclinationDeg = %v, want 51.64", r.InclinationDeg)
	}
	if !scalar.EqualWithinAbs(r.PeriodHours, 24.0/15.5, 1e-9) {
		t.Errorf("PeriodHours = %v, want %v", r.PeriodHours, 24.0/15.5)
	}
	if !scalar.EqualWithinAbs(r.MeanMotionRevDay, 15.5, 1e-9) {
		t.Errorf("MeanMotionRevDay = %v, want 15.5", r.MeanMotionRevDay)
	}
	if r.Name != "ISS (ZARYA)" || r.CatalogNumber != 25544 {
		t.Errorf("identity fields = %q/%d", r.Name, r.CatalogNumber)
	}
}

func TestString(t *testing.T) {
	el, err := New(issParams())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	s := el.String()
	if !strings.HasPrefix(s, "Spacecraft: ISS (ZARYA), a=") || !strings.Contains(s, "i=51.6°") {
		t.Errorf("String() = %q", s)
	}
}
