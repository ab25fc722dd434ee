// Package stream serves live satellite positions as Server-Sent Events.
// Clients connect via GET /api/v1/stream and receive, every step seconds,
// the position of each selected satellite at the current wall-clock time.
//
// SSE message format:
//
//	data: {"type":"positions","t":"2026-02-06T04:00:00Z","frame":"eci","sat":[...]}\n\n
//
// The first message on every connection is metadata describing the loaded
// catalog:
//
//	data: {"type":"metadata","source":"file","loaded_at":"...","catalog_age_seconds":1800,"satellites":2}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval without data.
package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/liamnightingale/OrbitSim/internal/httputil"
	"github.com/liamnightingale/OrbitSim/internal/metrics"
	"github.com/liamnightingale/OrbitSim/internal/tle"
)

// Config holds streaming limits.
type Config struct {
	MaxConcurrentPerIP int           // default 10
	MaxTotal           int           // default 1000
	KeepaliveInterval  time.Duration // default 30s
}

// DefaultConfig returns the streaming defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentPerIP: 10,
		MaxTotal:           1000,
		KeepaliveInterval:  30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxConcurrentPerIP < 1 {
		c.MaxConcurrentPerIP = d.MaxConcurrentPerIP
	}
	if c.MaxTotal < 1 {
		c.MaxTotal = d.MaxTotal
	}
	if c.KeepaliveInterval <= 0 {
		c.KeepaliveInterval = d.KeepaliveInterval
	}
	return c
}

// Handler manages SSE streaming connections.
type Handler struct {
	catalog    *tle.Catalog
	config     Config
	trustProxy bool
	limiter    *streamLimiter
	logger     *slog.Logger
	now        func() time.Time
}

// NewHandler creates a streaming handler over catalog.
func NewHandler(catalog *tle.Catalog, config Config, trustProxy bool, logger *slog.Logger) *Handler {
	config = config.withDefaults()
	return &Handler{
		catalog:    catalog,
		config:     config,
		trustProxy: trustProxy,
		limiter:    newStreamLimiter(config.MaxConcurrentPerIP, config.MaxTotal),
		logger:     logger.With("component", "stream"),
		now:        time.Now,
	}
}

type streamParams struct {
	step  time.Duration
	trail int
	frame string
	id    string
}

func parseParams(r *http.Request) (streamParams, error) {
	p := streamParams{step: 5 * time.Second, frame: "eci", id: r.URL.Query().Get("id")}
	q := r.URL.Query()

	if v := q.Get("step"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 60 {
			return p, fmt.Errorf("invalid step parameter, must be 1-60")
		}
		p.step = time.Duration(n) * time.Second
	}
	if v := q.Get("trail"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 120 {
			return p, fmt.Errorf("invalid trail parameter, must be 0-120")
		}
		p.trail = n
	}
	if v := q.Get("frame"); v != "" {
		if v != "eci" && v != "ecef" {
			return p, fmt.Errorf("invalid frame parameter, must be eci or ecef")
		}
		p.frame = v
	}
	return p, nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// HandlePositions serves the SSE position stream.
// GET /api/v1/stream?step=5&frame=eci&trail=0&id=25544
func (h *Handler) HandlePositions(w http.ResponseWriter, r *http.Request) {
	params, err := parseParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ds := h.catalog.Get()
	if ds == nil {
		writeError(w, http.StatusServiceUnavailable, "no catalog loaded")
		return
	}
	if params.id != "" {
		if _, ok := ds.Find(params.id); !ok {
			writeError(w, http.StatusNotFound, "satellite not found")
			return
		}
	}

	ip := httputil.ClientIP(r, h.trustProxy)
	if !h.limiter.acquire(ip) {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Retry-After", "30")
		writeError(w, http.StatusTooManyRequests, "too many concurrent streams")
		return
	}

	metrics.IncStreamConnections("connect")
	metrics.IncStreamsActive()

	startTime := h.now()
	h.logger.Info("stream connected",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"step_seconds", params.step.Seconds(),
		"frame", params.frame,
		"id", params.id,
	)

	defer func() {
		h.limiter.release(ip)
		metrics.IncStreamConnections("disconnect")
		metrics.DecStreamsActive()
		h.logger.Info("stream disconnected",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// Long-lived: clear the server's WriteTimeout for this connection.
	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		metrics.IncStreamErrors("flush_unsupported")
		h.logger.Error("streaming not supported by response writer", "error", err)
		return
	}
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &client{w: w, rc: rc, ip: ip, logger: h.logger}
	defer func() {
		h.logger.Debug("stream totals", "remote_ip", ip, "messages", c.messagesSent, "bytes", c.bytesSent)
	}()

	// Jittered retry (3-7s) spreads reconnects after a restart.
	if err := c.sendRetry(3000 + rand.Intn(4000)); err != nil {
		metrics.IncStreamErrors("send_error")
		return
	}

	if err := c.sendJSON(newMetadata(ds, h.now())); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
		return
	}

	send := func(t time.Time) error {
		ds := h.catalog.Get()
		if ds == nil {
			metrics.IncStreamErrors("no_catalog")
			return nil
		}
		msg := snapshot(ds, params, t)
		if len(msg.Sat) == 0 && params.id != "" {
			metrics.IncStreamErrors("not_found")
		}
		return c.sendJSON(msg)
	}

	// First positions go out immediately rather than after one step.
	if err := send(h.now()); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
		return
	}

	ticker := time.NewTicker(params.step)
	defer ticker.Stop()

	keepaliveTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer keepaliveTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if err := send(h.now()); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
				return
			}
			keepaliveTicker.Reset(h.config.KeepaliveInterval)

		case <-keepaliveTicker.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}
