package transform

import (
	"math"
	"time"

	"github.com/liamnightingale/OrbitSim/internal/constants"
)

const (
	// j2000 is the Julian Date of the J2000.0 epoch (January 1, 2000, 12:00:00 TT).
	j2000 = 2451545.0
	// unixEpochJD is the Julian Date of 1970-01-01T00:00:00Z.
	unixEpochJD = 2440587.5
)

// JulianDate converts t to a Julian Date. Leap seconds are ignored, so UTC
// stands in for UT1.
func JulianDate(t time.Time) float64 {
	return unixEpochJD + float64(t.UnixNano())/(constants.SecondsPerDay*1e9)
}

// GMST returns Greenwich Mean Sidereal Time in radians, in [0, 2pi), using
// the IAU-82 expression (Vallado Eq 3-47):
//
//	θ = 67310.54841 + (876600h + 8640184.812866)T + 0.093104T² - 6.2e-6T³
//
// with T in Julian centuries of UT1 from J2000.0 and θ in seconds of time.
func GMST(t time.Time) float64 {
	tUT1 := (JulianDate(t) - j2000) / 36525.0

	sec := 67310.54841 + tUT1*((876600.0*constants.SecondsPerHour+8640184.812866)+tUT1*(0.093104-6.2e-6*tUT1))

	sec = math.Mod(sec, constants.SecondsPerDay)
	if sec < 0 {
		sec += constants.SecondsPerDay
	}
	return sec / constants.SecondsPerDay * constants.TwoPi
}
