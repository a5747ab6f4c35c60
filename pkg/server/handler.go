// Package server exposes the dashboard over HTTP: the status query, the
// reset operation, the static dashboard page, and operational endpoints.
package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/supporttools/blockwatch/pkg/cache"
	"github.com/supporttools/blockwatch/pkg/docker"
	"github.com/supporttools/blockwatch/pkg/logger"
	"github.com/supporttools/blockwatch/pkg/metrics"
	"github.com/supporttools/blockwatch/pkg/snapshot"
	"github.com/supporttools/blockwatch/pkg/state"
)

//go:embed web/index.html
var indexHTML []byte

// ContainerChecker is the existence probe slice of the docker client.
type ContainerChecker interface {
	ContainerExists(ctx context.Context, name string) bool
}

// Poller is the incremental aggregation slice of the aggregator.
type Poller interface {
	Poll(ctx context.Context, container string) state.PersistedState
}

// SnapshotBuilder is the live-view slice of the snapshot builder.
type SnapshotBuilder interface {
	Build(ctx context.Context, container, since string, tail int, st state.PersistedState) *snapshot.Snapshot
}

// Handler serves the dashboard API.
type Handler struct {
	checker ContainerChecker
	poller  Poller
	builder SnapshotBuilder
	cache   *cache.SnapshotCache
	store   *state.Store
	metrics *metrics.Metrics

	defaultContainer string
	defaultTail      int

	startTime time.Time
	log       *logrus.Entry
}

// NewHandler creates the API handler. m may be nil to disable
// instrumentation.
func NewHandler(
	checker ContainerChecker,
	poller Poller,
	builder SnapshotBuilder,
	snapCache *cache.SnapshotCache,
	store *state.Store,
	m *metrics.Metrics,
	defaultContainer string,
	defaultTail int,
) *Handler {
	return &Handler{
		checker:          checker,
		poller:           poller,
		builder:          builder,
		cache:            snapCache,
		store:            store,
		metrics:          m,
		defaultContainer: defaultContainer,
		defaultTail:      defaultTail,
		startTime:        time.Now(),
		log:              logger.WithField("component", "server"),
	}
}

// RegisterRoutes mounts the handler's endpoints on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Index)
	r.Get("/api/status", h.Status)
	r.Post("/api/reset_totals", h.ResetTotals)
	r.Get("/healthz", h.Healthz)
}

// Status handles GET /api/status. A fresh cached snapshot is returned to any
// caller regardless of its own query parameters; on a miss the aggregator
// advances the durable totals and the builder assembles a live view.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	container := r.URL.Query().Get("container")
	if container == "" {
		container = h.defaultContainer
	}
	since := r.URL.Query().Get("since")
	tail := h.defaultTail
	if raw := r.URL.Query().Get("tail"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			tail = n
		}
	}

	snap, cached, err := h.cache.Get(func() (*snapshot.Snapshot, error) {
		if !h.checker.ContainerExists(ctx, container) {
			return nil, fmt.Errorf("%w: %q", docker.ErrContainerNotFound, container)
		}
		start := time.Now()
		st := h.poller.Poll(ctx, container)
		snap := h.builder.Build(ctx, container, since, tail, st)
		if h.metrics != nil {
			h.metrics.SnapshotBuildDuration.Observe(time.Since(start).Seconds())
		}
		return snap, nil
	})
	if err != nil {
		if errors.Is(err, docker.ErrContainerNotFound) {
			h.countPoll("not_found")
			writeError(w, http.StatusNotFound, fmt.Sprintf("Container '%s' not found.", container))
			return
		}
		h.countPoll("error")
		h.log.WithError(err).Error("Status request failed")
		writeError(w, http.StatusInternalServerError, "Failed to build status snapshot.")
		return
	}

	if cached {
		h.countPoll("hit")
	} else {
		h.countPoll("miss")
	}
	writeJSON(w, http.StatusOK, snap)
}

// ResetTotals handles POST /api/reset_totals: durable counters and watermark
// go back to defaults and the response cache is dropped immediately.
func (h *Handler) ResetTotals(w http.ResponseWriter, r *http.Request) {
	h.store.Reset()
	h.cache.Invalidate()
	if h.metrics != nil {
		h.metrics.ResetsTotal.Inc()
	}
	h.log.Info("Running totals reset")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"message": "Totals reset.",
	})
}

// Index serves the embedded dashboard page.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(indexHTML)
}

// Healthz reports process liveness.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(h.startTime).Round(time.Second).String(),
	})
}

func (h *Handler) countPoll(result string) {
	if h.metrics != nil {
		h.metrics.PollsTotal.WithLabelValues(result).Inc()
	}
}
