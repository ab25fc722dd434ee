// Package kepler propagates two-body orbits.
//
// Each time sample is solved independently: the mean anomaly is advanced,
// Kepler's equation is solved by Newton-Raphson for the eccentric anomaly,
// and the resulting perifocal position is rotated into the Earth-centered
// inertial frame. Nothing is cached between calls; every function in this
// package is safe for concurrent use.
package kepler

import (
	"errors"
	"fmt"
	"math"

	"github.com/liamnightingale/OrbitSim/internal/orbit"
)

const (
	// Tolerance is the convergence threshold on successive eccentric anomaly iterates (radians).
	Tolerance = 1e-8
	// MaxIterations caps the Newton-Raphson loop for a single sample.
	MaxIterations = 30

	// At or above this eccentricity the iteration starts from pi instead of M.
	highEccentricity = 0.8
)

var (
	// ErrConvergence marks a sample whose Kepler solve hit MaxIterations.
	ErrConvergence = errors.New("kepler equation did not converge")
	// ErrInvalidTime marks a sample whose time offset is NaN or infinite.
	ErrInvalidTime = errors.New("invalid time offset")
)

// SolveKepler solves M = E - e sin(E) for the eccentric anomaly E.
// M is wrapped into [0, 2pi) first. It returns E, the number of iterations
// used and ErrConvergence if MaxIterations was reached without the step
// dropping below Tolerance.
func SolveKepler(meanAnomaly, ecc float64) (float64, int, error) {
	if math.IsNaN(meanAnomaly) || math.IsInf(meanAnomaly, 0) {
		return math.NaN(), 0, fmt.Errorf("%w: mean anomaly %v", ErrConvergence, meanAnomaly)
	}

	m := orbit.WrapTwoPi(meanAnomaly)
	if ecc == 0 {
		return m, 0, nil
	}

	e := m
	if ecc >= highEccentricity {
		e = math.Pi
	}

	for i := 1; i <= MaxIterations; i++ {
		next := e - (e-ecc*math.Sin(e)-m)/(1-ecc*math.Cos(e))
		if math.Abs(next-e) < Tolerance {
			return next, i, nil
		}
		e = next
	}

	return e, MaxIterations, fmt.Errorf("%w: M=%.9f e=%.9f after %d iterations", ErrConvergence, m, ecc, MaxIterations)
}

// TrueAnomaly converts an eccentric anomaly to the true anomaly using
// tan(nu/2) = sqrt((1+e)/(1-e)) tan(E/2), resolved by atan2 so the result
// lands in the same half-plane as E.
func TrueAnomaly(eccAnomaly, ecc float64) float64 {
	return 2 * math.Atan2(
		math.Sqrt(1+ecc)*math.Sin(eccAnomaly/2),
		math.Sqrt(1-ecc)*math.Cos(eccAnomaly/2),
	)
}

// Radius returns the orbital radius a(1 - e cos E).
func Radius(a, ecc, eccAnomaly float64) float64 {
	return a * (1 - ecc*math.Cos(eccAnomaly))
}
