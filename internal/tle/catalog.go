package tle

import (
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/liamnightingale/OrbitSim/internal/metrics"
	"github.com/liamnightingale/OrbitSim/internal/orbit"
)

// EpochRange represents the minimum and maximum epoch times in a dataset.
type EpochRange struct {
	Min time.Time `json:"min"`
	Max time.Time `json:"max"`
}

// Dataset is one loaded set of satellites. It is never modified after
// construction; reloading swaps in a new Dataset.
type Dataset struct {
	Source     string
	LoadedAt   time.Time
	EpochRange EpochRange
	Satellites []orbit.Elements
	Failures   []RecordFailure
}

// NewDataset wraps a parse result with its source label and load time.
func NewDataset(source string, res LoadResult, loadedAt time.Time) *Dataset {
	ds := &Dataset{
		Source:     source,
		LoadedAt:   loadedAt,
		Satellites: res.Elements,
		Failures:   res.Failures,
	}
	if len(res.Elements) > 0 {
		ds.EpochRange = EpochRange{Min: res.Elements[0].Epoch(), Max: res.Elements[0].Epoch()}
		for _, el := range res.Elements[1:] {
			if el.Epoch().Before(ds.EpochRange.Min) {
				ds.EpochRange.Min = el.Epoch()
			}
			if el.Epoch().After(ds.EpochRange.Max) {
				ds.EpochRange.Max = el.Epoch()
			}
		}
	}
	return ds
}

// Find returns the first satellite whose catalog number equals id or whose
// name matches id case-insensitively.
func (d *Dataset) Find(id string) (orbit.Elements, bool) {
	id = strings.TrimSpace(id)
	if n, err := strconv.Atoi(id); err == nil {
		for _, el := range d.Satellites {
			if el.CatalogNumber() == n {
				return el, true
			}
		}
	}
	for _, el := range d.Satellites {
		if strings.EqualFold(el.Name(), id) {
			return el, true
		}
	}
	return orbit.Elements{}, false
}

// Catalog provides thread-safe access to the current Dataset.
type Catalog struct {
	dataset atomic.Pointer[Dataset]
	mu      sync.Mutex // serializes Replace
}

// NewCatalog creates an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// Get returns the current dataset, or nil if none has been loaded.
func (c *Catalog) Get() *Dataset {
	return c.dataset.Load()
}

// Set atomically replaces the current dataset.
func (c *Catalog) Set(ds *Dataset) {
	c.dataset.Store(ds)
}

// AgeSeconds returns the age of the current dataset in seconds, or -1 if
// none is loaded.
func (c *Catalog) AgeSeconds() float64 {
	ds := c.dataset.Load()
	if ds == nil {
		return -1
	}
	return time.Since(ds.LoadedAt).Seconds()
}

// Replace installs res as the current dataset and publishes the catalog
// metrics. Concurrent replacements are serialized; readers never block.
func (c *Catalog) Replace(source string, res LoadResult, loadedAt time.Time) *Dataset {
	c.mu.Lock()
	defer c.mu.Unlock()

	ds := NewDataset(source, res, loadedAt)
	c.dataset.Store(ds)
	metrics.SetCatalog(len(ds.Satellites), loadedAt)
	return ds
}
