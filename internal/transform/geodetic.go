package transform

import (
	"math"
	"time"

	"github.com/liamnightingale/OrbitSim/internal/constants"
	"github.com/liamnightingale/OrbitSim/internal/kepler"
)

// wgs84E2 is the first eccentricity squared of the WGS-84 ellipsoid.
const wgs84E2 = constants.EarthFlattening * (2 - constants.EarthFlattening)

// GeodeticPoint is a position over the WGS-84 ellipsoid.
type GeodeticPoint struct {
	Lat float64 `json:"lat_deg"`
	Lon float64 `json:"lon_deg"` // (-180, 180]
	Alt float64 `json:"alt_km"`
}

// ECEFToGeodetic converts an Earth-fixed position (km) to geodetic latitude,
// longitude and height using Bowring's fixed-point iteration. Earth orbits
// converge within a handful of steps.
func ECEFToGeodetic(r Vector) GeodeticPoint {
	a := constants.EarthRadiusEquatorial
	lon := math.Atan2(r.Y, r.X)
	p := math.Hypot(r.X, r.Y)

	lat := math.Atan2(r.Z, p*(1-wgs84E2))
	for i := 0; i < 6; i++ {
		sinLat := math.Sin(lat)
		n := a / math.Sqrt(1-wgs84E2*sinLat*sinLat)
		lat = math.Atan2(r.Z+wgs84E2*n*sinLat, p)
	}

	sinLat, cosLat := math.Sincos(lat)
	n := a / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	var alt float64
	if math.Abs(cosLat) > 1e-10 {
		alt = p/cosLat - n
	} else {
		alt = math.Abs(r.Z)/math.Abs(sinLat) - n*(1-wgs84E2)
	}

	return GeodeticPoint{
		Lat: lat * constants.RadiansToDegrees,
		Lon: lon * constants.RadiansToDegrees,
		Alt: alt,
	}
}

// GroundTrack converts inertial samples to sub-satellite points. Failed
// samples yield NaN points at the same index.
func GroundTrack(res kepler.Result, epoch time.Time, times []float64) []GeodeticPoint {
	points := make([]GeodeticPoint, res.Len())
	for i := range points {
		if !res.Valid[i] {
			nan := math.NaN()
			points[i] = GeodeticPoint{Lat: nan, Lon: nan, Alt: nan}
			continue
		}
		gmst := GMST(kepler.OffsetTime(epoch, times[i]))
		points[i] = ECEFToGeodetic(ECIToECEF(Vector{X: res.X[i], Y: res.Y[i], Z: res.Z[i]}, gmst))
	}
	return points
}
