package kepler

import (
	"fmt"
	"math"
	"time"

	"github.com/liamnightingale/OrbitSim/internal/constants"
	"github.com/liamnightingale/OrbitSim/internal/orbit"
	"gonum.org/v1/gonum/floats"
)

// SampleFailure records why one time sample produced no position.
type SampleFailure struct {
	Index int
	Time  float64 // seconds from epoch
	Err   error
}

// Result holds ECI positions (km) for each requested time, in request order.
// Samples that failed hold NaN and have Valid[i] == false.
type Result struct {
	X, Y, Z  []float64
	Valid    []bool
	Failures []SampleFailure
}

// Len returns the number of samples.
func (r Result) Len() int { return len(r.X) }

// Radius returns the distance from the Earth's center at sample i, km.
func (r Result) Radius(i int) float64 {
	return math.Sqrt(r.X[i]*r.X[i] + r.Y[i]*r.Y[i] + r.Z[i]*r.Z[i])
}

// StateResult extends Result with ECI velocities (km/s).
type StateResult struct {
	Result
	VX, VY, VZ []float64
}

// Propagate computes ECI positions of el at each offset in times (seconds
// from the element epoch). A sample that cannot be solved is reported in
// Result.Failures and does not affect its neighbours.
func Propagate(el orbit.Elements, times []float64) Result {
	return propagate(el, times, false).Result
}

// PropagateState is Propagate with velocities.
func PropagateState(el orbit.Elements, times []float64) StateResult {
	return propagate(el, times, true)
}

func propagate(el orbit.Elements, times []float64, withVelocity bool) StateResult {
	n := len(times)
	res := StateResult{
		Result: Result{
			X:     make([]float64, n),
			Y:     make([]float64, n),
			Z:     make([]float64, n),
			Valid: make([]bool, n),
		},
	}
	if withVelocity {
		res.VX = make([]float64, n)
		res.VY = make([]float64, n)
		res.VZ = make([]float64, n)
	}

	frame := NewFrame(el.RAAN(), el.Inclination(), el.ArgPerigee())
	a := el.SemiMajorAxis()
	ecc := el.Eccentricity()
	m0 := el.MeanAnomaly()
	mm := el.MeanMotion()

	// Velocity scale mu/h with h = sqrt(mu p), p = a(1-e^2).
	vScale := constants.EarthMu / math.Sqrt(constants.EarthMu*a*(1-ecc*ecc))

	for i, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			res.fail(i, t, fmt.Errorf("%w: sample %d is %v", ErrInvalidTime, i, t))
			continue
		}

		eccAnomaly, _, err := SolveKepler(m0+mm*t, ecc)
		if err != nil {
			res.fail(i, t, err)
			continue
		}

		nu := TrueAnomaly(eccAnomaly, ecc)
		r := Radius(a, ecc, eccAnomaly)
		sinNu, cosNu := math.Sincos(nu)

		res.X[i], res.Y[i], res.Z[i] = frame.Apply(r*cosNu, r*sinNu, 0)
		res.Valid[i] = true

		if withVelocity {
			res.VX[i], res.VY[i], res.VZ[i] = frame.Apply(-vScale*sinNu, vScale*(ecc+cosNu), 0)
		}
	}

	return res
}

func (r *StateResult) fail(i int, t float64, err error) {
	nan := math.NaN()
	r.X[i], r.Y[i], r.Z[i] = nan, nan, nan
	if r.VX != nil {
		r.VX[i], r.VY[i], r.VZ[i] = nan, nan, nan
	}
	r.Failures = append(r.Failures, SampleFailure{Index: i, Time: t, Err: err})
}

// MaxOffset is the largest timeline offset, in seconds, that the CLI and
// HTTP API accept: 100 Julian years.
const MaxOffset = 100 * 365.25 * 86400.0

// OffsetTime returns the instant offset seconds after epoch. Whole seconds
// and the fractional part are added separately, so offsets beyond the
// range of time.Duration do not wrap around.
func OffsetTime(epoch time.Time, offset float64) time.Time {
	const limit = 1 << 62
	offset = math.Max(-limit, math.Min(limit, offset))
	sec, frac := math.Modf(offset)
	ns := int64(epoch.Nanosecond()) + int64(math.Round(frac*1e9))
	return time.Unix(epoch.Unix()+int64(sec), ns).In(epoch.Location())
}

// Linspace returns n evenly spaced time offsets from start to stop inclusive.
func Linspace(start, stop float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{start}
	}
	return floats.Span(make([]float64, n), start, stop)
}
