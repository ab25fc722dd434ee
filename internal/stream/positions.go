package stream

import (
	"time"

	"github.com/liamnightingale/OrbitSim/internal/kepler"
	"github.com/liamnightingale/OrbitSim/internal/orbit"
	"github.com/liamnightingale/OrbitSim/internal/tle"
	"github.com/liamnightingale/OrbitSim/internal/transform"
)

type metadataMessage struct {
	Type       string `json:"type"`
	Source     string `json:"source"`
	LoadedAt   string `json:"loaded_at"`
	CatalogAge int    `json:"catalog_age_seconds"`
	Satellites int    `json:"satellites"`
}

type positionsMessage struct {
	Type   string       `json:"type"`
	T      string       `json:"t"`
	Frame  string       `json:"frame"`
	Sat    []satPayload `json:"sat"`
	Failed int          `json:"failed,omitempty"`
}

type satPayload struct {
	ID   int          `json:"id"`
	Name string       `json:"name"`
	P    [3]float64   `json:"p"`
	Tr   [][3]float64 `json:"tr,omitempty"`
}

func newMetadata(ds *tle.Dataset, now time.Time) metadataMessage {
	return metadataMessage{
		Type:       "metadata",
		Source:     ds.Source,
		LoadedAt:   ds.LoadedAt.UTC().Format(time.RFC3339),
		CatalogAge: int(now.Sub(ds.LoadedAt).Seconds()),
		Satellites: len(ds.Satellites),
	}
}

// snapshot positions the selected satellites at t. With a trail, each
// satellite also carries its positions at the trail previous steps, oldest
// first. Satellites whose current position cannot be solved are counted in
// Failed and left out.
func snapshot(ds *tle.Dataset, p streamParams, t time.Time) positionsMessage {
	selected := ds.Satellites
	if p.id != "" {
		selected = nil
		if el, ok := ds.Find(p.id); ok {
			selected = []orbit.Elements{el}
		}
	}

	instants := make([]time.Time, p.trail+1)
	for j := range instants {
		instants[j] = t.Add(-time.Duration(p.trail-j) * p.step)
	}
	var gmst []float64
	if p.frame == "ecef" {
		gmst = make([]float64, len(instants))
		for j, at := range instants {
			gmst[j] = transform.GMST(at)
		}
	}

	msg := positionsMessage{
		Type:  "positions",
		T:     t.UTC().Format(time.RFC3339),
		Frame: p.frame,
		Sat:   make([]satPayload, 0, len(selected)),
	}

	offsets := make([]float64, len(instants))
	for _, el := range selected {
		for j, at := range instants {
			offsets[j] = at.Sub(el.Epoch()).Seconds()
		}
		res := kepler.Propagate(el, offsets)

		valid := res.Valid
		cur := len(offsets) - 1
		if !valid[cur] {
			msg.Failed++
			continue
		}

		pos := func(j int) [3]float64 {
			v := transform.Vector{X: res.X[j], Y: res.Y[j], Z: res.Z[j]}
			if gmst != nil {
				v = transform.ECIToECEF(v, gmst[j])
			}
			return [3]float64{v.X, v.Y, v.Z}
		}

		sat := satPayload{ID: el.CatalogNumber(), Name: el.Name(), P: pos(cur)}
		for j := 0; j < cur; j++ {
			if valid[j] {
				sat.Tr = append(sat.Tr, pos(j))
			}
		}
		msg.Sat = append(msg.Sat, sat)
	}
	return msg
}
