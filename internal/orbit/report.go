package orbit

import (
	"time"

	"github.com/liamnightingale/OrbitSim/internal/constants"
)

// Report holds the display fields of an element set in user-facing units:
// degrees for angles, hours for the period, kilometers for distances.
type Report struct {
	Name              string    `json:"name"`
	CatalogNumber     int       `json:"catalog_number"`
	Epoch             time.Time `json:"epoch"`
	SemiMajorAxisKm   float64   `json:"semi_major_axis_km"`
	Eccentricity      float64   `json:"eccentricity"`
	InclinationDeg    float64   `json:"inclination_deg"`
	RAANDeg           float64   `json:"raan_deg"`
	ArgPerigeeDeg     float64   `json:"arg_perigee_deg"`
	MeanAnomalyDeg    float64   `json:"mean_anomaly_deg"`
	PeriodHours       float64   `json:"period_hours"`
	PerigeeAltitudeKm float64   `json:"perigee_altitude_km"`
	ApogeeAltitudeKm  float64   `json:"apogee_altitude_km"`
	MeanMotionRevDay  float64   `json:"mean_motion_rev_per_day"`
}

// Report converts e into display units.
func (e Elements) Report() Report {
	return Report{
		Name:              e.name,
		CatalogNumber:     e.catalogNumber,
		Epoch:             e.epoch,
		SemiMajorAxisKm:   e.semiMajorAxis,
		Eccentricity:      e.eccentricity,
		InclinationDeg:    e.inclination * constants.RadiansToDegrees,
		RAANDeg:           e.raan * constants.RadiansToDegrees,
		ArgPerigeeDeg:     e.argPerigee * constants.RadiansToDegrees,
		MeanAnomalyDeg:    e.meanAnomaly * constants.RadiansToDegrees,
		PeriodHours:       e.Period() / constants.SecondsPerHour,
		PerigeeAltitudeKm: e.PerigeeAltitude(),
		ApogeeAltitudeKm:  e.ApogeeAltitude(),
		MeanMotionRevDay:  e.meanMotion * constants.SecondsPerDay / constants.TwoPi,
	}
}
