package kafka_middleware

import (
	"context"
	"sync/atomic"
	"time"

	"pawwalk/pkg/kafka"
)

// Metrics counts Kafka traffic for one producer or consumer. The health endpoint
// reports a Snapshot.
type Metrics struct {
	processed     atomic.Int64
	failed        atomic.Int64
	durationTotal atomic.Int64
	lastSuccess   atomic.Int64
}

type Snapshot struct {
	Processed     int64     `json:"processed"`
	Failed        int64     `json:"failed"`
	AvgDurationMs float64   `json:"avg_duration_ms"`
	LastSuccessAt time.Time `json:"last_success_at,omitempty"`
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Middleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		m.durationTotal.Add(int64(time.Since(start)))
		if err != nil {
			m.failed.Add(1)
			return err
		}
		m.processed.Add(1)
		m.lastSuccess.Store(time.Now().UnixNano())
		return nil
	}
}

func (m *Metrics) Snapshot() Snapshot {
	processed := m.processed.Load()
	failed := m.failed.Load()

	s := Snapshot{Processed: processed, Failed: failed}
	if total := processed + failed; total > 0 {
		s.AvgDurationMs = float64(m.durationTotal.Load()) / float64(total) / float64(time.Millisecond)
	}
	if last := m.lastSuccess.Load(); last > 0 {
		s.LastSuccessAt = time.Unix(0, last).UTC()
	}
	return s
}
