package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"pawwalk/pkg/kafka"
	kafka_middleware "pawwalk/pkg/kafka/middleware"
	"pawwalk/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }

func TestReady(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
	}{
		{name: "database up", wantStatus: http.StatusOK},
		{name: "database down", pingErr: errors.New("no reachable servers"), wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := httprouter.New()
			NewHealthHandler(&mockPinger{err: tt.pingErr}, logger.Discard()).RegisterRoutes(router)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestHealth_ReportsKafkaMetrics(t *testing.T) {
	metrics := kafka_middleware.NewMetrics()
	record := metrics.Middleware()
	_ = record(context.Background(), kafka.Message{}, func(context.Context, kafka.Message) error { return nil })
	_ = record(context.Background(), kafka.Message{}, func(context.Context, kafka.Message) error { return errors.New("boom") })

	h := NewHealthHandler(&mockPinger{}, logger.Discard())
	h.Track("notifications", metrics)
	router := httprouter.New()
	h.RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := resp.Kafka["notifications"]
	if got.Processed != 1 || got.Failed != 1 {
		t.Errorf("snapshot = %+v, want 1 processed, 1 failed", got)
	}
}
