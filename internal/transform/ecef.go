// Package transform rotates inertial positions into the Earth-fixed frame
// and reduces them to geodetic ground-track points.
//
// The inertial frame is treated as equivalent to TEME and the rotation to
// ECEF uses GMST only. Polar motion and the equation of the equinoxes are
// ignored, which is well below what a visualization can show.
package transform

import (
	"math"
	"time"

	"github.com/liamnightingale/OrbitSim/internal/constants"
	"github.com/liamnightingale/OrbitSim/internal/kepler"
)

// Vector is a Cartesian triple in km or km/s.
type Vector struct {
	X, Y, Z float64
}

// Norm returns the Euclidean length of v.
func (v Vector) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// ECIToECEF rotates an inertial position by the sidereal angle gmst (rad).
func ECIToECEF(r Vector, gmst float64) Vector {
	sinG, cosG := math.Sincos(gmst)
	return Vector{
		X: r.X*cosG + r.Y*sinG,
		Y: -r.X*sinG + r.Y*cosG,
		Z: r.Z,
	}
}

// ECIToECEFVelocity rotates an inertial velocity v at position r and removes
// the Earth's rotation: v_ECEF = R3(θ) v - ω × r_ECEF.
func ECIToECEFVelocity(r, v Vector, gmst float64) Vector {
	rf := ECIToECEF(r, gmst)
	vf := ECIToECEF(v, gmst)
	return Vector{
		X: vf.X + constants.EarthRotationRate*rf.Y,
		Y: vf.Y - constants.EarthRotationRate*rf.X,
		Z: vf.Z,
	}
}

// ToECEF returns a copy of res with every valid sample rotated into the
// Earth-fixed frame. Sample i is taken at epoch + times[i] seconds. Failed
// samples stay NaN and keep their failure records.
func ToECEF(res kepler.StateResult, epoch time.Time, times []float64) kepler.StateResult {
	n := res.Len()
	out := kepler.StateResult{
		Result: kepler.Result{
			X:        make([]float64, n),
			Y:        make([]float64, n),
			Z:        make([]float64, n),
			Valid:    append([]bool(nil), res.Valid...),
			Failures: append([]kepler.SampleFailure(nil), res.Failures...),
		},
	}
	withVelocity := res.VX != nil
	if withVelocity {
		out.VX = make([]float64, n)
		out.VY = make([]float64, n)
		out.VZ = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		if !res.Valid[i] {
			nan := math.NaN()
			out.X[i], out.Y[i], out.Z[i] = nan, nan, nan
			if withVelocity {
				out.VX[i], out.VY[i], out.VZ[i] = nan, nan, nan
			}
			continue
		}

		gmst := GMST(kepler.OffsetTime(epoch, times[i]))
		r := Vector{X: res.X[i], Y: res.Y[i], Z: res.Z[i]}
		rf := ECIToECEF(r, gmst)
		out.X[i], out.Y[i], out.Z[i] = rf.X, rf.Y, rf.Z

		if withVelocity {
			vf := ECIToECEFVelocity(r, Vector{X: res.VX[i], Y: res.VY[i], Z: res.VZ[i]}, gmst)
			out.VX[i], out.VY[i], out.VZ[i] = vf.X, vf.Y, vf.Z
		}
	}
	return out
}
