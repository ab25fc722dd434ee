package kepler

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/liamnightingale/OrbitSim/internal/constants"
	"github.com/liamnightingale/OrbitSim/internal/orbit"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

const deg = constants.DegreesToRadians

func mustElements(t testing.TB, p orbit.Params) orbit.Elements {
	t.Helper()
	el, err := orbit.New(p)
	if err != nil {
		t.Fatalf("orbit.New(%q) failed: %v", p.Name, err)
	}
	return el
}

func issElements(t testing.TB) orbit.Elements {
	return mustElements(t, orbit.Params{
		Name:                 "ISS (ZARYA)",
		CatalogNumber:        25544,
		Epoch:                time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC),
		Inclination:          51.64 * deg,
		RAAN:                 100.0 * deg,
		Eccentricity:         0.0001,
		ArgPerigee:           30 * deg,
		MeanAnomaly:          45 * deg,
		MeanMotionRevsPerDay: 15.5,
	})
}

func molniyaElements(t testing.TB) orbit.Elements {
	return mustElements(t, orbit.Params{
		Name:                 "MOLNIYA 1-91",
		CatalogNumber:        25485,
		Epoch:                time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC),
		Inclination:          63.4 * deg,
		RAAN:                 300.0 * deg,
		Eccentricity:         0.72,
		ArgPerigee:           270.0 * deg,
		MeanAnomaly:          0,
		MeanMotionRevsPerDay: 2.00561,
	})
}

// TestSolveKeplerResidual checks |M - (E - e sin E)| < 1e-6 over a grid of
// eccentricities and mean anomalies, all within the iteration cap.
func TestSolveKeplerResidual(t *testing.T) {
	eccs := []float64{0, 0.001, 0.1, 0.3, 0.5, 0.7, 0.79, 0.8, 0.9, 0.95, 0.99}
	for _, e := range eccs {
		for k := 0; k < 360; k++ {
			m := float64(k) * 2 * math.Pi / 360
			E, iters, err := SolveKepler(m, e)
			if err != nil {
				t.Fatalf("SolveKepler(M=%v, e=%v) failed: %v", m, e, err)
			}
			if iters > MaxIterations {
				t.Fatalf("SolveKepler(M=%v, e=%v) used %d iterations", m, e, iters)
			}
			if res := math.Abs(m - (E - e*math.Sin(E))); res >= 1e-6 {
				t.Errorf("SolveKepler(M=%v, e=%v) residual %.3e", m, e, res)
			}
		}
	}
}

func TestSolveKeplerWrapsMeanAnomaly(t *testing.T) {
	a, _, err := SolveKepler(1.0, 0.3)
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := SolveKepler(1.0+4*math.Pi, 0.3)
	if err != nil {
		t.Fatal(err)
	}
	if !scalar.EqualWithinAbs(a, b, 1e-9) {
		t.Errorf("E(M) = %v, E(M+4pi) = %v", a, b)
	}
}

func TestSolveKeplerNonFinite(t *testing.T) {
	for _, m := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, _, err := SolveKepler(m, 0.1)
		if !errors.Is(err, ErrConvergence) {
			t.Errorf("SolveKepler(%v) error = %v, want ErrConvergence", m, err)
		}
	}
}

func TestTrueAnomalyQuadrants(t *testing.T) {
	e := 0.5
	tests := []struct {
		name string
		E    float64
		lo   float64
		hi   float64
	}{
		{"perigee", 0, 0, 1e-12},
		{"first half", 1.0, 0, math.Pi},
		{"apogee", math.Pi, math.Pi - 1e-9, math.Pi + 1e-9},
		{"second half", 4.0, math.Pi, 2 * math.Pi},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := TrueAnomaly(tt.E, e)
			if nu < tt.lo || nu > tt.hi {
				t.Errorf("TrueAnomaly(%v, %v) = %v, want in [%v, %v]", tt.E, e, nu, tt.lo, tt.hi)
			}
			// cos(nu) = (cos E - e) / (1 - e cos E)
			want := (math.Cos(tt.E) - e) / (1 - e*math.Cos(tt.E))
			if !scalar.EqualWithinAbs(math.Cos(nu), want, 1e-12) {
				t.Errorf("cos(nu) = %v, want %v", math.Cos(nu), want)
			}
		})
	}
}

// TestCircularOrbit checks that with e = 0 the true, eccentric and mean
// anomalies coincide and the radius never changes.
func TestCircularOrbit(t *testing.T) {
	el := mustElements(t, orbit.Params{
		Name:                 "CIRCULAR",
		Inclination:          0,
		RAAN:                 0,
		Eccentricity:         0,
		ArgPerigee:           0,
		MeanAnomaly:          10 * deg,
		MeanMotionRevsPerDay: 15,
	})

	times := Linspace(0, 2*el.Period(), 97)
	res := Propagate(el, times)
	if len(res.Failures) != 0 {
		t.Fatalf("unexpected failures: %v", res.Failures)
	}

	for i, ts := range times {
		m := orbit.WrapTwoPi(el.MeanAnomaly() + el.MeanMotion()*ts)
		E, _, err := SolveKepler(m, 0)
		if err != nil {
			t.Fatal(err)
		}
		if E != m {
			t.Errorf("t=%v: E = %v, M = %v", ts, E, m)
		}
		if nu := orbit.WrapTwoPi(TrueAnomaly(E, 0)); !scalar.EqualWithinAbs(nu, m, 1e-9) && !scalar.EqualWithinAbs(math.Abs(nu-m), 2*math.Pi, 1e-9) {
			t.Errorf("t=%v: nu = %v, M = %v", ts, nu, m)
		}

		// Equatorial, so the in-plane angle is directly observable.
		angle := orbit.WrapTwoPi(math.Atan2(res.Y[i], res.X[i]))
		if diff := math.Abs(angle - m); diff > 1e-9 && math.Abs(diff-2*math.Pi) > 1e-9 {
			t.Errorf("t=%v: position angle = %v, M = %v", ts, angle, m)
		}
		if !scalar.EqualWithinAbs(res.Radius(i), el.SemiMajorAxis(), 1e-6) {
			t.Errorf("t=%v: radius = %v, a = %v", ts, res.Radius(i), el.SemiMajorAxis())
		}
		if res.Z[i] != 0 {
			t.Errorf("t=%v: z = %v, want 0 for equatorial orbit", ts, res.Z[i])
		}
	}
}

// TestEpochPosition checks that t = 0 reproduces the position implied by M0.
func TestEpochPosition(t *testing.T) {
	for _, el := range []orbit.Elements{issElements(t), molniyaElements(t)} {
		t.Run(el.Name(), func(t *testing.T) {
			res := Propagate(el, []float64{0})
			if !res.Valid[0] {
				t.Fatalf("sample 0 invalid: %v", res.Failures)
			}

			E, _, err := SolveKepler(el.MeanAnomaly(), el.Eccentricity())
			if err != nil {
				t.Fatal(err)
			}
			nu := TrueAnomaly(E, el.Eccentricity())
			r := Radius(el.SemiMajorAxis(), el.Eccentricity(), E)

			// Closed-form perifocal -> ECI.
			O, i, w := el.RAAN(), el.Inclination(), el.ArgPerigee()
			u := w + nu
			want := []float64{
				r * (math.Cos(O)*math.Cos(u) - math.Sin(O)*math.Sin(u)*math.Cos(i)),
				r * (math.Sin(O)*math.Cos(u) + math.Cos(O)*math.Sin(u)*math.Cos(i)),
				r * (math.Sin(u) * math.Sin(i)),
			}
			got := []float64{res.X[0], res.Y[0], res.Z[0]}
			if !floats.EqualApprox(got, want, 1e-9) {
				t.Errorf("epoch position = %v, want %v", got, want)
			}
		})
	}
}

func TestPropagateIdempotent(t *testing.T) {
	el := molniyaElements(t)
	times := Linspace(-3600, 86400, 200)

	first := PropagateState(el, times)
	second := PropagateState(el, times)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated propagation differs (-first +second):\n%s", diff)
	}

	// Sample order must not matter.
	reversed := make([]float64, len(times))
	for i, ts := range times {
		reversed[len(times)-1-i] = ts
	}
	back := Propagate(el, reversed)
	for i := range times {
		j := len(times) - 1 - i
		if first.X[i] != back.X[j] || first.Y[i] != back.Y[j] || first.Z[i] != back.Z[j] {
			t.Fatalf("sample %d differs when times are reversed", i)
		}
	}
}

// TestMolniyaApogee propagates a Molniya-type orbit from perigee and checks
// the radius near half a period greatly exceeds the radius at epoch.
func TestMolniyaApogee(t *testing.T) {
	el := molniyaElements(t)
	times := Linspace(0, 43200, 3)
	res := Propagate(el, times)
	if len(res.Failures) != 0 {
		t.Fatalf("unexpected failures: %v", res.Failures)
	}

	r0 := res.Radius(0)
	rHalf := res.Radius(1)
	rFull := res.Radius(2)

	if !scalar.EqualWithinRel(r0, el.PerigeeRadius(), 1e-9) {
		t.Errorf("epoch radius = %.1f km, want perigee %.1f km", r0, el.PerigeeRadius())
	}
	if rHalf < 5*r0 {
		t.Errorf("radius at t=21600 s = %.1f km, epoch = %.1f km: expected apogee far above perigee", rHalf, r0)
	}
	if !scalar.EqualWithinRel(rHalf, el.ApogeeRadius(), 1e-3) {
		t.Errorf("radius at t=21600 s = %.1f km, apogee radius %.1f km", rHalf, el.ApogeeRadius())
	}
	if rFull > 1.2*r0 {
		t.Errorf("radius after one period = %.1f km, expected back near perigee %.1f km", rFull, r0)
	}
}

func TestPropagateIsolatesBadSamples(t *testing.T) {
	el := issElements(t)
	times := []float64{0, math.NaN(), 60, math.Inf(1), 120}
	res := Propagate(el, times)

	if res.Len() != len(times) {
		t.Fatalf("Len = %d, want %d", res.Len(), len(times))
	}
	wantValid := []bool{true, false, true, false, true}
	if diff := cmp.Diff(wantValid, res.Valid); diff != "" {
		t.Errorf("Valid mismatch (-want +got):\n%s", diff)
	}
	if len(res.Failures) != 2 {
		t.Fatalf("Failures = %d, want 2", len(res.Failures))
	}
	for _, f := range res.Failures {
		if !errors.Is(f.Err, ErrInvalidTime) {
			t.Errorf("failure %d error = %v, want ErrInvalidTime", f.Index, f.Err)
		}
		if !math.IsNaN(res.X[f.Index]) {
			t.Errorf("failed sample %d X = %v, want NaN", f.Index, res.X[f.Index])
		}
	}

	single := Propagate(el, []float64{60})
	if single.X[0] != res.X[2] {
		t.Errorf("neighbour of failed sample changed: %v vs %v", single.X[0], res.X[2])
	}
}

// TestVisViva checks that velocities satisfy v^2 = mu (2/r - 1/a) and that
// the angular momentum vector is constant.
func TestVisViva(t *testing.T) {
	el := molniyaElements(t)
	res := PropagateState(el, Linspace(0, el.Period(), 50))

	var h0 [3]float64
	for i := 0; i < res.Len(); i++ {
		r := res.Radius(i)
		v2 := res.VX[i]*res.VX[i] + res.VY[i]*res.VY[i] + res.VZ[i]*res.VZ[i]
		want := constants.EarthMu * (2/r - 1/el.SemiMajorAxis())
		if !scalar.EqualWithinRel(v2, want, 1e-9) {
			t.Errorf("sample %d: v^2 = %v, vis-viva = %v", i, v2, want)
		}

		h := [3]float64{
			res.Y[i]*res.VZ[i] - res.Z[i]*res.VY[i],
			res.Z[i]*res.VX[i] - res.X[i]*res.VZ[i],
			res.X[i]*res.VY[i] - res.Y[i]*res.VX[i],
		}
		if i == 0 {
			h0 = h
			continue
		}
		if !floats.EqualApprox(h[:], h0[:], 1e-6) {
			t.Errorf("sample %d: angular momentum %v drifted from %v", i, h, h0)
		}
	}
}

func TestFrameOrthonormal(t *testing.T) {
	f := NewFrame(300*deg, 63.4*deg, 270*deg)
	var prod mat.Dense
	prod.Mul(f.Matrix(), f.Matrix().T())
	if !mat.EqualApprox(&prod, mat.NewDiagDense(3, []float64{1, 1, 1}), 1e-12) {
		t.Errorf("Q Q^T != I:\n%v", mat.Formatted(&prod))
	}
}

func TestFrameAxes(t *testing.T) {
	tests := []struct {
		name            string
		raan, inc, argp float64
		in, want        [3]float64
	}{
		{"identity", 0, 0, 0, [3]float64{1, 0, 0}, [3]float64{1, 0, 0}},
		{"node rotated 90", 90 * deg, 0, 0, [3]float64{1, 0, 0}, [3]float64{0, 1, 0}},
		{"polar", 0, 90 * deg, 0, [3]float64{0, 1, 0}, [3]float64{0, 0, 1}},
		{"perigee at 90", 0, 0, 90 * deg, [3]float64{1, 0, 0}, [3]float64{0, 1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, z := NewFrame(tt.raan, tt.inc, tt.argp).Apply(tt.in[0], tt.in[1], tt.in[2])
			if !floats.EqualApprox([]float64{x, y, z}, tt.want[:], 1e-12) {
				t.Errorf("Apply(%v) = [%v %v %v], want %v", tt.in, x, y, z, tt.want)
			}
		})
	}
}

func TestLinspace(t *testing.T) {
	if got := Linspace(0, 10, 0); got != nil {
		t.Errorf("Linspace n=0 = %v, want nil", got)
	}
	if got := Linspace(5, 10, 1); len(got) != 1 || got[0] != 5 {
		t.Errorf("Linspace n=1 = %v, want [5]", got)
	}
	got := Linspace(0, 43200, 3)
	want := []float64{0, 21600, 43200}
	if !floats.Equal(got, want) {
		t.Errorf("Linspace = %v, want %v", got, want)
	}
}

func TestOffsetTime(t *testing.T) {
	epoch := time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		offset float64
		want   time.Time
	}{
		{"zero", 0, epoch},
		{"fractional", 1.5, epoch.Add(1500 * time.Millisecond)},
		{"negative", -0.25, epoch.Add(-250 * time.Millisecond)},
		{"one day", 86400, epoch.AddDate(0, 0, 1)},
		{"max offset", MaxOffset, epoch.AddDate(0, 0, 36525)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OffsetTime(epoch, tt.offset); !got.Equal(tt.want) {
				t.Errorf("OffsetTime(%g) = %v, want %v", tt.offset, got, tt.want)
			}
		})
	}
}

// TestOffsetTimeBeyondDuration uses offsets past the ~292 year range of
// time.Duration, which must move forward in time rather than wrap.
func TestOffsetTimeBeyondDuration(t *testing.T) {
	epoch := time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC)

	got := OffsetTime(epoch, 1e10)
	if !got.After(epoch) || got.Year() != 2341 {
		t.Errorf("OffsetTime(1e10) = %v, want a time in 2341", got)
	}
	if back := OffsetTime(epoch, -1e10); !back.Before(epoch) || back.Year() != 1707 {
		t.Errorf("OffsetTime(-1e10) = %v, want a time in 1707", back)
	}
	if got.Location() != time.UTC {
		t.Errorf("location = %v, want UTC", got.Location())
	}
}

func BenchmarkPropagate500(b *testing.B) {
	el := molniyaElements(b)
	times := Linspace(0, 2*el.Period(), 500)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Propagate(el, times)
	}
}
