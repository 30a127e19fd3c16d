package health

import (
	"context"
	"net/http"
	"time"

	httputil "pawwalk/pkg/http"
	kafka_middleware "pawwalk/pkg/kafka/middleware"
	"pawwalk/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

const pingTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status   string                               `json:"status"`
	Database string                               `json:"database,omitempty"`
	Kafka    map[string]kafka_middleware.Snapshot `json:"kafka,omitempty"`
}

type HealthHandler struct {
	db      Pinger
	metrics map[string]*kafka_middleware.Metrics
	log     *logger.Logger
}

func NewHealthHandler(db Pinger, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:      db,
		metrics: make(map[string]*kafka_middleware.Metrics),
		log:     log,
	}
}

// Track adds a Kafka producer or consumer to the health report under name.
func (h *HealthHandler) Track(name string, metrics *kafka_middleware.Metrics) {
	h.metrics[name] = metrics
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Kafka:  h.snapshots(),
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.log.Error("Database health check failed",
			"error", err,
			"path", r.URL.Path,
		)
		if writeErr := httputil.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:   "unavailable",
			Database: "error",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:   "ready",
		Database: "ok",
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) snapshots() map[string]kafka_middleware.Snapshot {
	if len(h.metrics) == 0 {
		return nil
	}
	out := make(map[string]kafka_middleware.Snapshot, len(h.metrics))
	for name, m := range h.metrics {
		out[name] = m.Snapshot()
	}
	return out
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
