package propagation

import (
	"runtime"
	"time"

	"github.com/liamnightingale/OrbitSim/internal/kepler"
	"github.com/liamnightingale/OrbitSim/internal/orbit"
)

// Default timeline: two periods of the slowest satellite, 500 samples.
const (
	DefaultSamples        = 500
	DefaultPeriodMultiple = 2.0
)

// Config holds batch propagation settings.
type Config struct {
	Workers        int     // worker pool size (default: runtime.NumCPU())
	Samples        int     // samples per timeline (default: 500)
	PeriodMultiple float64 // timeline length in periods of the slowest satellite (default: 2)
	Velocity       bool    // also compute velocities
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{
		Workers:        runtime.NumCPU(),
		Samples:        DefaultSamples,
		PeriodMultiple: DefaultPeriodMultiple,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.Samples <= 0 {
		c.Samples = def.Samples
	}
	if c.PeriodMultiple <= 0 {
		c.PeriodMultiple = def.PeriodMultiple
	}
	return c
}

// Track is one satellite propagated over the batch timeline. Err is set
// only when the satellite was never propagated because the batch was
// cancelled.
type Track struct {
	Elements orbit.Elements
	Result   kepler.StateResult
	Err      error
}

// Name returns the satellite name.
func (t Track) Name() string { return t.Elements.Name() }

// Failed returns the number of samples without a position.
func (t Track) Failed() int { return len(t.Result.Failures) }

// Batch is the output of one batch propagation. Tracks are in input order.
type Batch struct {
	Times    []float64 // seconds from each satellite's epoch
	Tracks   []Track
	Duration time.Duration
}

// SampleCounts returns the number of solved and failed samples across all
// propagated tracks.
func (b *Batch) SampleCounts() (ok, failed int) {
	for _, tr := range b.Tracks {
		if tr.Err != nil {
			continue
		}
		failed += tr.Failed()
		ok += tr.Result.Len() - tr.Failed()
	}
	return ok, failed
}
