// Package constants holds the physical constants used by the element model
// and the propagator. Values are compile-time constants so they cannot be
// mutated after startup.
package constants

import "math"

// Earth parameters (WGS-84 / EGM-96 values, km and seconds).
const (
	EarthMu               = 398600.4418 // gravitational parameter, km^3/s^2
	EarthRadiusEquatorial = 6378.137    // km
	EarthRadiusPolar      = 6356.752    // km
	EarthFlattening       = 1.0 / 298.257223563
	EarthJ2               = 0.00108263 // informational only; propagation is two-body
	EarthSiderealDay      = 86164.1    // seconds
	EarthRotationRate     = 2.0 * math.Pi / EarthSiderealDay
	SecondsPerDay         = 86400.0
	SecondsPerHour        = 3600.0
	TwoPi                 = 2.0 * math.Pi
	DegreesToRadians      = math.Pi / 180.0
	RadiansToDegrees      = 180.0 / math.Pi
)

// MinSemiMajorAxis is the smallest semi-major axis (km) accepted for a bound
// Earth orbit. Anything at or below the equatorial radius intersects the body.
const MinSemiMajorAxis = EarthRadiusEquatorial

// Body describes a celestial body by radius and gravitational parameter.
type Body struct {
	Name   string
	Radius float64 // km
	Mu     float64 // km^3/s^2
}

var bodies = map[string]Body{
	"earth": {Name: "Earth", Radius: EarthRadiusEquatorial, Mu: EarthMu},
	"moon":  {Name: "Moon", Radius: 1737.4, Mu: 4902.8},
	"sun":   {Name: "Sun", Radius: 695700.0, Mu: 1.32712440018e11},
}

// Lookup returns the body registered under key ("earth", "moon", "sun").
// The returned value is a copy.
func Lookup(key string) (Body, bool) {
	b, ok := bodies[key]
	return b, ok
}

// Earth returns the Earth body record.
func Earth() Body {
	return bodies["earth"]
}
