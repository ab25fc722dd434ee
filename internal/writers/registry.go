package writers

import (
	"fmt"
	"io"
	"sort"

	"github.com/liamnightingale/OrbitSim/internal/orbit"
)

// TrackWriter renders a propagated batch.
type TrackWriter func(w io.Writer, set TrackSet) error

// ReportWriter renders satellite reports.
type ReportWriter func(w io.Writer, reports []orbit.Report) error

// Writer registries (format -> handler), filled from init blocks.
var (
	trackWriters  = map[string]TrackWriter{}
	reportWriters = map[string]ReportWriter{}
)

// RegisterTrack registers fn under format. Last registration wins.
func RegisterTrack(format string, fn TrackWriter) { trackWriters[format] = fn }

// RegisterReport registers fn under format. Last registration wins.
func RegisterReport(format string, fn ReportWriter) { reportWriters[format] = fn }

// WriteTracks renders tracks in the named format.
func WriteTracks(format string, w io.Writer, set TrackSet) error {
	fn, ok := trackWriters[format]
	if !ok {
		return fmt.Errorf("unknown track format %q (no writer registered)", format)
	}
	return fn(w, set)
}

// WriteReports renders reports in the named format.
func WriteReports(format string, w io.Writer, reports []orbit.Report) error {
	fn, ok := reportWriters[format]
	if !ok {
		return fmt.Errorf("unknown report format %q (no writer registered)", format)
	}
	return fn(w, reports)
}

// TrackFormats returns the registered track format names, sorted.
func TrackFormats() []string { return keys(trackWriters) }

// ReportFormats returns the registered report format names, sorted.
func ReportFormats() []string { return keys(reportWriters) }

// HasTrackFormat reports whether a track writer is registered for format.
func HasTrackFormat(format string) bool {
	_, ok := trackWriters[format]
	return ok
}

// HasReportFormat reports whether a report writer is registered for format.
func HasReportFormat(format string) bool {
	_, ok := reportWriters[format]
	return ok
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
