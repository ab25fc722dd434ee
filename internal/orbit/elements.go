// Package orbit models classical Keplerian orbital elements.
//
// An Elements value is built once from parsed TLE fields and is read-only
// afterwards: all fields are unexported and exposed through accessors, so a
// propagation can never alter the set it was handed. Angles are radians,
// distances kilometers, time seconds. Degrees and hours only appear in Report.
package orbit

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/liamnightingale/OrbitSim/internal/constants"
)

// ErrInvalidElements is returned when derived elements fall outside the
// bounds of a closed orbit around the Earth.
var ErrInvalidElements = errors.New("invalid orbital elements")

// Params holds the raw values used to construct an Elements set.
// Angles are radians; mean motion is revolutions per day as printed in a TLE.
type Params struct {
	Name          string
	CatalogNumber int
	Epoch         time.Time

	Inclination  float64
	RAAN         float64
	Eccentricity float64
	ArgPerigee   float64
	MeanAnomaly  float64

	MeanMotionRevsPerDay float64
	MeanMotionDot        float64 // rev/day^2, reporting only
	BStar                float64 // reporting only
	RevNumber            int
}

// Elements is an immutable classical element set referenced to an epoch.
type Elements struct {
	name          string
	catalogNumber int
	epoch         time.Time

	inclination  float64
	raan         float64
	eccentricity float64
	argPerigee   float64
	meanAnomaly  float64

	meanMotion    float64 // rad/s
	semiMajorAxis float64 // km

	meanMotionDot float64
	bstar         float64
	revNumber     int
}

// New validates p and derives mean motion (rad/s) and semi-major axis (km).
// Angles are normalized: inclination must lie in [0, pi], the remaining
// angles are wrapped into [0, 2pi).
func New(p Params) (Elements, error) {
	for _, v := range []float64{p.Inclination, p.RAAN, p.Eccentricity, p.ArgPerigee, p.MeanAnomaly, p.MeanMotionRevsPerDay} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Elements{}, fmt.Errorf("%w: non-finite field in %q", ErrInvalidElements, p.Name)
		}
	}
	if p.Eccentricity < 0 || p.Eccentricity >= 1 {
		return Elements{}, fmt.Errorf("%w: eccentricity %g outside [0, 1) for %q", ErrInvalidElements, p.Eccentricity, p.Name)
	}
	if p.Inclination < 0 || p.Inclination > math.Pi {
		return Elements{}, fmt.Errorf("%w: inclination %g rad outside [0, pi] for %q", ErrInvalidElements, p.Inclination, p.Name)
	}
	if p.MeanMotionRevsPerDay <= 0 {
		return Elements{}, fmt.Errorf("%w: mean motion %g rev/day must be positive for %q", ErrInvalidElements, p.MeanMotionRevsPerDay, p.Name)
	}

	n := p.MeanMotionRevsPerDay * constants.TwoPi / constants.SecondsPerDay
	a := SemiMajorAxisFromMeanMotion(n, constants.EarthMu)
	if !(a > 0) {
		return Elements{}, fmt.Errorf("%w: semi-major axis %g km for %q", ErrInvalidElements, a, p.Name)
	}
	if a <= constants.MinSemiMajorAxis {
		return Elements{}, fmt.Errorf("%w: semi-major axis %.1f km does not clear the Earth for %q", ErrInvalidElements, a, p.Name)
	}

	return Elements{
		name:          p.Name,
		catalogNumber: p.CatalogNumber,
		epoch:         p.Epoch.UTC(),
		inclination:   p.Inclination,
		raan:          WrapTwoPi(p.RAAN),
		eccentricity:  p.Eccentricity,
		argPerigee:    WrapTwoPi(p.ArgPerigee),
		meanAnomaly:   WrapTwoPi(p.MeanAnomaly),
		meanMotion:    n,
		semiMajorAxis: a,
		meanMotionDot: p.MeanMotionDot,
		bstar:         p.BStar,
		revNumber:     p.RevNumber,
	}, nil
}

// SemiMajorAxisFromMeanMotion solves n^2 a^3 = mu for a. n is in rad/s.
func SemiMajorAxisFromMeanMotion(n, mu float64) float64 {
	return math.Cbrt(mu / (n * n))
}

// WrapTwoPi maps an angle into [0, 2pi).
func WrapTwoPi(angle float64) float64 {
	wrapped := math.Mod(angle, constants.TwoPi)
	if wrapped < 0 {
		wrapped += constants.TwoPi
	}
	// math.Mod of a tiny negative value can round back up to exactly 2pi.
	if wrapped >= constants.TwoPi {
		wrapped = 0
	}
	return wrapped
}

// Name returns the satellite label (name line or catalog number).
func (e Elements) Name() string { return e.name }

func (e Elements) CatalogNumber() int { return e.catalogNumber }

// Epoch returns the reference time of the element set in UTC.
func (e Elements) Epoch() time.Time { return e.epoch }

// Inclination returns i in radians, [0, pi].
func (e Elements) Inclination() float64 { return e.inclination }

// RAAN returns the right ascension of the ascending node in radians.
func (e Elements) RAAN() float64 { return e.raan }

func (e Elements) Eccentricity() float64 { return e.eccentricity }

// ArgPerigee returns the argument of perigee in radians.
func (e Elements) ArgPerigee() float64 { return e.argPerigee }

// MeanAnomaly returns M0, the mean anomaly at epoch, in radians.
func (e Elements) MeanAnomaly() float64 { return e.meanAnomaly }

// MeanMotionDot returns the first derivative of mean motion (rev/day^2)
// as printed in the TLE. It is not used by the two-body propagator.
func (e Elements) MeanMotionDot() float64 { return e.meanMotionDot }

// BStar returns the TLE drag term. Not used by the two-body propagator.
func (e Elements) BStar() float64 { return e.bstar }

func (e Elements) RevNumber() int { return e.revNumber }

// MeanMotion returns n in rad/s.
func (e Elements) MeanMotion() float64 { return e.meanMotion }

// SemiMajorAxis returns a in km.
func (e Elements) SemiMajorAxis() float64 { return e.semiMajorAxis }

// Period returns the orbital period 2pi/n in seconds.
func (e Elements) Period() float64 {
	return constants.TwoPi / e.meanMotion
}

// PerigeeRadius returns a(1-e) in km.
func (e Elements) PerigeeRadius() float64 {
	return e.semiMajorAxis * (1 - e.eccentricity)
}

// ApogeeRadius returns a(1+e) in km.
func (e Elements) ApogeeRadius() float64 {
	return e.semiMajorAxis * (1 + e.eccentricity)
}

// PerigeeAltitude is the perigee height above the equatorial radius, km.
func (e Elements) PerigeeAltitude() float64 {
	return e.PerigeeRadius() - constants.EarthRadiusEquatorial
}

// ApogeeAltitude is the apogee height above the equatorial radius, km.
func (e Elements) ApogeeAltitude() float64 {
	return e.ApogeeRadius() - constants.EarthRadiusEquatorial
}

func (e Elements) String() string {
	return fmt.Sprintf("Spacecraft: %s, a=%.1f km, e=%.4f, i=%.1f°",
		e.name, e.semiMajorAxis, e.eccentricity, e.inclination*constants.RadiansToDegrees)
}
