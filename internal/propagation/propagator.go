package propagation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/liamnightingale/OrbitSim/internal/kepler"
	"github.com/liamnightingale/OrbitSim/internal/metrics"
	"github.com/liamnightingale/OrbitSim/internal/orbit"
	"github.com/liamnightingale/OrbitSim/internal/tle"
)

// ErrNoCatalog is returned when a catalog propagation is requested before
// any catalog has been loaded.
var ErrNoCatalog = errors.New("no TLE catalog loaded")

// Propagator runs batch propagations with a fixed configuration.
type Propagator struct {
	pool   *WorkerPool
	config Config
	logger *slog.Logger
}

// NewPropagator creates a new propagation orchestrator. Zero fields in
// config take their defaults.
func NewPropagator(config Config, logger *slog.Logger) *Propagator {
	config = config.withDefaults()
	return &Propagator{
		pool:   NewWorkerPool(config.Workers, logger),
		config: config,
		logger: logger,
	}
}

// Config returns the effective configuration.
func (p *Propagator) Config() Config {
	return p.config
}

// WithVelocity returns a Propagator sharing p's pool that computes
// velocities when v is true.
func (p *Propagator) WithVelocity(v bool) *Propagator {
	if p.config.Velocity == v {
		return p
	}
	cp := *p
	cp.config.Velocity = v
	return &cp
}

// Timeline returns Samples offsets spanning PeriodMultiple periods of the
// slowest satellite in elements, starting at zero. It returns nil for an
// empty slice.
func (p *Propagator) Timeline(elements []orbit.Elements) []float64 {
	return Timeline(elements, p.config.PeriodMultiple, p.config.Samples)
}

// Timeline returns samples offsets from 0 to periods times the longest
// period in elements.
func Timeline(elements []orbit.Elements, periods float64, samples int) []float64 {
	if len(elements) == 0 {
		return nil
	}
	maxPeriod := 0.0
	for _, el := range elements {
		maxPeriod = max(maxPeriod, el.Period())
	}
	return kepler.Linspace(0, periods*maxPeriod, samples)
}

// Propagate propagates elements over times. If the context is cancelled
// before every satellite is done, the partial batch is returned with the
// context error.
func (p *Propagator) Propagate(ctx context.Context, elements []orbit.Elements, times []float64) (*Batch, error) {
	p.logger.Debug("propagating",
		"satellite_count", len(elements),
		"samples", len(times),
		"workers", p.config.Workers,
	)

	start := time.Now()
	tracks := p.pool.PropagateBatch(ctx, elements, times, p.config.Velocity)
	batch := &Batch{Times: times, Tracks: tracks, Duration: time.Since(start)}

	ok, failed := batch.SampleCounts()
	metrics.RecordPropagation(batch.Duration, len(tracks), ok, failed)

	p.logger.Debug("propagation complete",
		"samples_ok", ok,
		"samples_failed", failed,
		"duration_ms", batch.Duration.Milliseconds(),
	)

	for _, tr := range tracks {
		if tr.Err != nil {
			return batch, fmt.Errorf("propagation interrupted: %w", tr.Err)
		}
	}
	return batch, nil
}

// PropagateCatalog propagates every satellite in the catalog's current
// dataset over the default timeline.
func (p *Propagator) PropagateCatalog(ctx context.Context, catalog *tle.Catalog) (*Batch, error) {
	ds := catalog.Get()
	if ds == nil {
		return nil, ErrNoCatalog
	}
	return p.Propagate(ctx, ds.Satellites, p.Timeline(ds.Satellites))
}
