package writers

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/liamnightingale/OrbitSim/internal/kepler"
	"github.com/liamnightingale/OrbitSim/internal/propagation"
)

// TrackSet is a batch of tracks sharing one time grid, in one frame.
type TrackSet struct {
	Frame  string    // "eci" or "ecef"
	Times  []float64 // seconds from each satellite's epoch
	Tracks []propagation.Track
}

func init() {
	RegisterTrack("csv", writeTracksCSV)
	RegisterTrack("jsonl", writeTracksJSONL)
	RegisterTrack("json", func(w io.Writer, set TrackSet) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(Document(set))
	})
}

// Floats marshals to a JSON array with null in place of NaN or Inf.
type Floats []float64

// MarshalJSON implements json.Marshaler.
func (f Floats) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("null"), nil
	}
	buf := make([]byte, 0, 2+len(f)*12)
	buf = append(buf, '[')
	for i, v := range f {
		if i > 0 {
			buf = append(buf, ',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf = append(buf, "null"...)
			continue
		}
		buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
	}
	return append(buf, ']'), nil
}

// FailureDoc is one failed sample.
type FailureDoc struct {
	Index int      `json:"index"`
	T     *float64 `json:"t_seconds"`
	Error string   `json:"error"`
}

// TrackDoc is the JSON form of one track. Position arrays are index-aligned
// with the set's times; failed samples are null.
type TrackDoc struct {
	Name          string       `json:"name"`
	CatalogNumber int          `json:"catalog_number"`
	Epoch         time.Time    `json:"epoch"`
	X             Floats       `json:"x_km,omitempty"`
	Y             Floats       `json:"y_km,omitempty"`
	Z             Floats       `json:"z_km,omitempty"`
	VX            Floats       `json:"vx_km_s,omitempty"`
	VY            Floats       `json:"vy_km_s,omitempty"`
	VZ            Floats       `json:"vz_km_s,omitempty"`
	Failures      []FailureDoc `json:"failures,omitempty"`
	Error         string       `json:"error,omitempty"`
}

// SetDoc is the JSON form of a TrackSet.
type SetDoc struct {
	Frame      string     `json:"frame"`
	Times      Floats     `json:"t_seconds"`
	Satellites []TrackDoc `json:"satellites"`
}

// Document converts set to its JSON form.
func Document(set TrackSet) SetDoc {
	doc := SetDoc{
		Frame:      set.Frame,
		Times:      Floats(set.Times),
		Satellites: make([]TrackDoc, 0, len(set.Tracks)),
	}
	for _, tr := range set.Tracks {
		td := TrackDoc{
			Name:          tr.Name(),
			CatalogNumber: tr.Elements.CatalogNumber(),
			Epoch:         tr.Elements.Epoch(),
		}
		if tr.Err != nil {
			td.Error = tr.Err.Error()
			doc.Satellites = append(doc.Satellites, td)
			continue
		}
		res := tr.Result
		td.X, td.Y, td.Z = res.X, res.Y, res.Z
		td.VX, td.VY, td.VZ = res.VX, res.VY, res.VZ
		for _, f := range res.Failures {
			td.Failures = append(td.Failures, FailureDoc{Index: f.Index, T: finite(f.Time), Error: f.Err.Error()})
		}
		doc.Satellites = append(doc.Satellites, td)
	}
	return doc
}

// sampleRow is one line of the jsonl format.
type sampleRow struct {
	Name          string   `json:"name"`
	CatalogNumber int      `json:"catalog_number"`
	Frame         string   `json:"frame"`
	Index         int      `json:"index"`
	T             *float64 `json:"t_seconds"`
	Time          string   `json:"time"`
	X             *float64 `json:"x_km"`
	Y             *float64 `json:"y_km"`
	Z             *float64 `json:"z_km"`
	VX            *float64 `json:"vx_km_s,omitempty"`
	VY            *float64 `json:"vy_km_s,omitempty"`
	VZ            *float64 `json:"vz_km_s,omitempty"`
	Valid         bool     `json:"valid"`
}

func writeTracksJSONL(w io.Writer, set TrackSet) error {
	enc := json.NewEncoder(w)
	for _, tr := range set.Tracks {
		if tr.Err != nil {
			continue
		}
		res := tr.Result
		for i, t := range set.Times {
			row := sampleRow{
				Name:          tr.Name(),
				CatalogNumber: tr.Elements.CatalogNumber(),
				Frame:         set.Frame,
				Index:         i,
				T:             finite(t),
				Time:          sampleTime(tr, t),
				Valid:         res.Valid[i],
			}
			if res.Valid[i] {
				row.X, row.Y, row.Z = &res.X[i], &res.Y[i], &res.Z[i]
				if res.VX != nil {
					row.VX, row.VY, row.VZ = &res.VX[i], &res.VY[i], &res.VZ[i]
				}
			}
			if err := enc.Encode(row); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeTracksCSV(w io.Writer, set TrackSet) error {
	withVelocity := false
	for _, tr := range set.Tracks {
		if tr.Err == nil && tr.Result.VX != nil {
			withVelocity = true
			break
		}
	}

	header := []string{"name", "catalog_number", "frame", "index", "t_seconds", "time", "x_km", "y_km", "z_km"}
	if withVelocity {
		header = append(header, "vx_km_s", "vy_km_s", "vz_km_s")
	}
	header = append(header, "valid")

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for _, tr := range set.Tracks {
		if tr.Err != nil {
			continue
		}
		res := tr.Result
		for i, t := range set.Times {
			record = record[:0]
			record = append(record,
				tr.Name(),
				strconv.Itoa(tr.Elements.CatalogNumber()),
				set.Frame,
				strconv.Itoa(i),
				formatFloat(t),
				sampleTime(tr, t),
				formatFloat(res.X[i]),
				formatFloat(res.Y[i]),
				formatFloat(res.Z[i]),
			)
			switch {
			case withVelocity && res.VX != nil:
				record = append(record, formatFloat(res.VX[i]), formatFloat(res.VY[i]), formatFloat(res.VZ[i]))
			case withVelocity:
				record = append(record, "", "", "")
			}
			record = append(record, strconv.FormatBool(res.Valid[i]))
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// finite returns nil for NaN and Inf, which JSON cannot carry.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// formatFloat writes NaN and Inf as empty fields.
func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func sampleTime(tr propagation.Track, t float64) string {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return ""
	}
	return kepler.OffsetTime(tr.Elements.Epoch(), t).Format(time.RFC3339Nano)
}
