package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/liamnightingale/OrbitSim/internal/kepler"
	"github.com/liamnightingale/OrbitSim/internal/orbit"
	"github.com/liamnightingale/OrbitSim/internal/propagation"
	"github.com/liamnightingale/OrbitSim/internal/tle"
	"github.com/liamnightingale/OrbitSim/internal/transform"
	"github.com/liamnightingale/OrbitSim/internal/writers"
)

const (
	// maxSamples bounds the work a single request can ask for.
	maxSamples = 20000
	// maxUploadBytes matches the fetcher's body limit.
	maxUploadBytes = 50 << 20
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

type failureJSON struct {
	Line  int    `json:"line"`
	Name  string `json:"name,omitempty"`
	Error string `json:"error"`
}

func failuresJSON(failures []tle.RecordFailure) []failureJSON {
	out := make([]failureJSON, 0, len(failures))
	for _, f := range failures {
		out = append(out, failureJSON{Line: f.Line, Name: f.Name, Error: f.Err.Error()})
	}
	return out
}

type satellitesResponse struct {
	Source     string         `json:"source"`
	LoadedAt   time.Time      `json:"loaded_at"`
	EpochRange tle.EpochRange `json:"epoch_range"`
	Count      int            `json:"count"`
	Satellites []orbit.Report `json:"satellites"`
	Failures   []failureJSON  `json:"failures,omitempty"`
}

// satellitesHandler lists the element reports of the current catalog.
func satellitesHandler(catalog *tle.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds := catalog.Get()
		if ds == nil {
			writeError(w, http.StatusServiceUnavailable, "no TLE catalog loaded")
			return
		}

		resp := satellitesResponse{
			Source:     ds.Source,
			LoadedAt:   ds.LoadedAt,
			EpochRange: ds.EpochRange,
			Count:      len(ds.Satellites),
			Satellites: make([]orbit.Report, 0, len(ds.Satellites)),
		}
		for _, el := range ds.Satellites {
			resp.Satellites = append(resp.Satellites, el.Report())
		}
		if len(ds.Failures) > 0 {
			resp.Failures = failuresJSON(ds.Failures)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// lookup resolves the {id} path value, writing 503 or 404 on failure.
func lookup(w http.ResponseWriter, r *http.Request, catalog *tle.Catalog) (orbit.Elements, bool) {
	ds := catalog.Get()
	if ds == nil {
		writeError(w, http.StatusServiceUnavailable, "no TLE catalog loaded")
		return orbit.Elements{}, false
	}
	id := r.PathValue("id")
	el, ok := ds.Find(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("satellite %q not found", id))
		return orbit.Elements{}, false
	}
	return el, true
}

// timeline builds the sample grid from the samples and duration query
// parameters, defaulting to the propagator's sample count over its period
// multiple. It writes a 400 and returns false on bad input.
func timeline(w http.ResponseWriter, r *http.Request, el orbit.Elements, cfg propagation.Config) ([]float64, bool) {
	q := r.URL.Query()

	samples := cfg.Samples
	if v := q.Get("samples"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxSamples {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":       fmt.Sprintf("samples must be an integer in [1, %d]", maxSamples),
				"max_samples": maxSamples,
			})
			return nil, false
		}
		samples = n
	}

	duration := cfg.PeriodMultiple * el.Period()
	if v := q.Get("duration"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil || !(d > 0) || d > kepler.MaxOffset {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("duration must be a positive number of seconds up to %.0f", kepler.MaxOffset))
			return nil, false
		}
		duration = d
	}
	duration = math.Min(duration, kepler.MaxOffset)

	return kepler.Linspace(0, duration, samples), true
}

func boolParam(r *http.Request, name string) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

// runOne propagates a single satellite, writing 503 when the request was
// cancelled mid-flight.
func runOne(w http.ResponseWriter, r *http.Request, logger *slog.Logger, prop *propagation.Propagator, el orbit.Elements, times []float64) (propagation.Track, bool) {
	batch, err := prop.Propagate(r.Context(), []orbit.Elements{el}, times)
	if err != nil {
		logger.Warn("propagation aborted", "component", "api", "name", el.Name(), "error", err)
		writeError(w, http.StatusServiceUnavailable, "propagation aborted")
		return propagation.Track{}, false
	}
	return batch.Tracks[0], true
}

// propagateHandler returns X/Y/Z arrays for one satellite.
//
// Query parameters: samples, duration (seconds), frame (eci|ecef),
// velocity (bool).
func propagateHandler(logger *slog.Logger, catalog *tle.Catalog, prop *propagation.Propagator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		el, ok := lookup(w, r, catalog)
		if !ok {
			return
		}

		frame := r.URL.Query().Get("frame")
		switch frame {
		case "":
			frame = "eci"
		case "eci", "ecef":
		default:
			writeError(w, http.StatusBadRequest, "frame must be eci or ecef")
			return
		}

		velocity, err := boolParam(r, "velocity")
		if err != nil {
			writeError(w, http.StatusBadRequest, "velocity must be a boolean")
			return
		}

		times, ok := timeline(w, r, el, prop.Config())
		if !ok {
			return
		}

		track, ok := runOne(w, r, logger, prop.WithVelocity(velocity), el, times)
		if !ok {
			return
		}
		if frame == "ecef" {
			track.Result = transform.ToECEF(track.Result, el.Epoch(), times)
		}

		writeJSON(w, http.StatusOK, writers.Document(writers.TrackSet{
			Frame:  frame,
			Times:  times,
			Tracks: []propagation.Track{track},
		}))
	}
}

type groundPoint struct {
	Index int       `json:"index"`
	T     float64   `json:"t_seconds"`
	Time  time.Time `json:"time"`
	transform.GeodeticPoint
}

type groundTrackResponse struct {
	Name          string        `json:"name"`
	CatalogNumber int           `json:"catalog_number"`
	Epoch         time.Time     `json:"epoch"`
	Points        []groundPoint `json:"points"`
	Failed        int           `json:"failed"`
}

// groundTrackHandler returns sub-satellite points for one satellite. Failed
// samples are omitted from points and counted in failed.
func groundTrackHandler(logger *slog.Logger, catalog *tle.Catalog, prop *propagation.Propagator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		el, ok := lookup(w, r, catalog)
		if !ok {
			return
		}
		times, ok := timeline(w, r, el, prop.Config())
		if !ok {
			return
		}
		track, ok := runOne(w, r, logger, prop.WithVelocity(false), el, times)
		if !ok {
			return
		}

		points := transform.GroundTrack(track.Result.Result, el.Epoch(), times)
		resp := groundTrackResponse{
			Name:          el.Name(),
			CatalogNumber: el.CatalogNumber(),
			Epoch:         el.Epoch(),
			Points:        make([]groundPoint, 0, len(points)),
			Failed:        track.Failed(),
		}
		for i, p := range points {
			if !track.Result.Valid[i] {
				continue
			}
			resp.Points = append(resp.Points, groundPoint{
				Index:         i,
				T:             times[i],
				Time:          kepler.OffsetTime(el.Epoch(), times[i]),
				GeodeticPoint: p,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type uploadResponse struct {
	Loaded   int           `json:"loaded"`
	Skipped  int           `json:"skipped"`
	Failures []failureJSON `json:"failures,omitempty"`
}

// uploadHandler replaces the catalog with TLE text from the request body.
func uploadHandler(logger *slog.Logger, catalog *tle.Catalog, cache *tle.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
		if err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("body exceeds %d byte limit", maxUploadBytes))
				return
			}
			writeError(w, http.StatusBadRequest, "reading body failed")
			return
		}

		res, err := tle.Parse(bytes.NewReader(data), logger)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, tle.ErrEmptyInput) {
				status = http.StatusUnprocessableEntity
			}
			writeJSON(w, status, map[string]any{
				"error":    err.Error(),
				"failures": failuresJSON(res.Failures),
			})
			return
		}

		now := time.Now()
		ds := catalog.Replace("upload", res, now)
		logger.Info("catalog replaced",
			"component", "api",
			"source", ds.Source,
			"satellites", len(ds.Satellites),
			"skipped", len(ds.Failures),
		)

		if cache != nil {
			if path, err := cache.Write(data, now); err != nil {
				logger.Warn("caching uploaded TLE failed", "component", "api", "error", err)
			} else {
				logger.Debug("uploaded TLE cached", "component", "api", "path", path)
			}
		}

		resp := uploadResponse{Loaded: len(res.Elements), Skipped: len(res.Failures)}
		if len(res.Failures) > 0 {
			resp.Failures = failuresJSON(res.Failures)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
