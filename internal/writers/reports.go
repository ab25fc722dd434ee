package writers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/liamnightingale/OrbitSim/internal/orbit"
)

func init() {
	RegisterReport("text", writeReportsText)
	RegisterReport("csv", writeReportsCSV)
	RegisterReport("json", func(w io.Writer, reports []orbit.Report) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if reports == nil {
			reports = []orbit.Report{}
		}
		return enc.Encode(reports)
	})
}

func writeReportsText(w io.Writer, reports []orbit.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "NAME\tCATNR\tEPOCH\tA (km)\tE\tI (deg)\tPERIOD (h)\tPERIGEE (km)\tAPOGEE (km)\t")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%.1f\t%.6f\t%.2f\t%.3f\t%.1f\t%.1f\t\n",
			r.Name, r.CatalogNumber, r.Epoch.Format(time.RFC3339),
			r.SemiMajorAxisKm, r.Eccentricity, r.InclinationDeg,
			r.PeriodHours, r.PerigeeAltitudeKm, r.ApogeeAltitudeKm)
	}
	return tw.Flush()
}

func writeReportsCSV(w io.Writer, reports []orbit.Report) error {
	cw := csv.NewWriter(w)
	header := []string{
		"name", "catalog_number", "epoch", "semi_major_axis_km", "eccentricity",
		"inclination_deg", "raan_deg", "arg_perigee_deg", "mean_anomaly_deg",
		"period_hours", "perigee_altitude_km", "apogee_altitude_km", "mean_motion_rev_per_day",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range reports {
		err := cw.Write([]string{
			r.Name,
			strconv.Itoa(r.CatalogNumber),
			r.Epoch.Format(time.RFC3339Nano),
			formatFloat(r.SemiMajorAxisKm),
			formatFloat(r.Eccentricity),
			formatFloat(r.InclinationDeg),
			formatFloat(r.RAANDeg),
			formatFloat(r.ArgPerigeeDeg),
			formatFloat(r.MeanAnomalyDeg),
			formatFloat(r.PeriodHours),
			formatFloat(r.PerigeeAltitudeKm),
			formatFloat(r.ApogeeAltitudeKm),
			formatFloat(r.MeanMotionRevDay),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
