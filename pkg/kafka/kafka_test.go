package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"pawwalk/pkg/logger"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []int64
	closed    chan struct{}
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{pending: msgs, closed: make(chan struct{})}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.pending) > 0 {
		msg := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case <-r.closed:
		return kafka.Message{}, io.EOF
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	close(r.closed)
	return nil
}

func (r *fakeReader) committedOffsets() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{name: "nil", err: nil, want: ErrorTypeUnknown},
		{name: "explicit transient", err: NewTransientError("db", errors.New("x")), want: ErrorTypeTransient},
		{name: "explicit permanent wrapped", err: errors.Join(errors.New("ctx"), NewPermanentError("bad", nil)), want: ErrorTypePermanent},
		{name: "deadline", err: context.DeadlineExceeded, want: ErrorTypeTransient},
		{name: "network message", err: errors.New("dial tcp: Connection Refused"), want: ErrorTypeTransient},
		{name: "unknown", err: errors.New("boom"), want: ErrorTypePermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMessageBuilder(t *testing.T) {
	msg, err := NewMessage().
		WithKey("b-1").
		WithValue(map[string]string{"booking_id": "b-1"}).
		WithEventType("booking.confirmed").
		WithCorrelationID("").
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if msg.GetEventID() == "" {
		t.Error("expected generated event id")
	}
	if _, ok := msg.Headers[HeaderCorrelationID]; ok {
		t.Error("empty correlation id should not be set")
	}

	msg.IncrementRetryCount()
	msg.IncrementRetryCount()
	if msg.GetRetryCount() != 2 {
		t.Errorf("retry count = %d, want 2", msg.GetRetryCount())
	}

	if _, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build(); err == nil {
		t.Error("expected encoding error")
	}
}

func TestProducer_Publish(t *testing.T) {
	writer := &fakeWriter{}
	producer := NewProducerWithWriter(writer, "pawwalk.notifications")

	var seenTopic string
	producer.Use(func(ctx context.Context, msg Message, next MessageHandler) error {
		seenTopic = msg.Topic
		return next(ctx, msg)
	})

	if err := producer.Publish(context.Background(), Message{Value: []byte("{}")}); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}

	msg, _ := NewMessage().WithKey("b-1").WithRawValue([]byte(`{}`)).Build()
	if err := producer.Publish(context.Background(), msg); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if seenTopic != "pawwalk.notifications" {
		t.Errorf("middleware saw topic %q", seenTopic)
	}
	if len(writer.messages) != 1 || string(writer.messages[0].Key) != "b-1" {
		t.Fatalf("unexpected writes: %+v", writer.messages)
	}

	_ = producer.Close()
	if err := producer.Publish(context.Background(), msg); !errors.Is(err, ErrProducerClosed) {
		t.Errorf("expected ErrProducerClosed, got %v", err)
	}
}

func TestConsumer_RetriesTransientThenParksPermanent(t *testing.T) {
	reader := newFakeReader(
		kafka.Message{Topic: "walks", Offset: 1, Key: []byte("flaky")},
		kafka.Message{Topic: "walks", Offset: 2, Key: []byte("poison")},
	)
	dlq := &fakeWriter{}

	var mu sync.Mutex
	attempts := map[string]int{}
	handler := func(_ context.Context, msg Message) error {
		mu.Lock()
		defer mu.Unlock()
		attempts[msg.Key]++
		switch msg.Key {
		case "flaky":
			if attempts[msg.Key] < 3 {
				return NewTransientError("storage unavailable", nil)
			}
			return nil
		default:
			return NewPermanentError("unknown booking", nil)
		}
	}

	consumer := NewConsumerWithReader(reader, dlq, ConsumerOptions{Topic: "walks", GroupID: "g", DLQTopic: "walks.dlq"}, handler, logger.Discard())
	consumer.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Start(ctx) }()

	deadline := time.After(2 * time.Second)
	for len(reader.committedOffsets()) < 2 {
		select {
		case <-deadline:
			t.Fatalf("timed out, committed %v", reader.committedOffsets())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if attempts["flaky"] != 3 {
		t.Errorf("flaky attempts = %d, want 3", attempts["flaky"])
	}
	if attempts["poison"] != 1 {
		t.Errorf("poison attempts = %d, want 1", attempts["poison"])
	}
	if len(dlq.messages) != 1 {
		t.Fatalf("dlq messages = %d, want 1", len(dlq.messages))
	}
	if got := headerValue(dlq.messages[0], HeaderOriginalTopic); got != "walks" {
		t.Errorf("original topic header = %q", got)
	}
}

func TestConsumer_CloseStopsStart(t *testing.T) {
	reader := newFakeReader()
	consumer := NewConsumerWithReader(reader, nil, ConsumerOptions{Topic: "walks", GroupID: "g"},
		func(context.Context, Message) error { return nil }, logger.Discard())

	done := make(chan error, 1)
	go func() { done <- consumer.Start(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	if err := consumer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrConsumerClosed) {
			t.Errorf("Start() = %v, want ErrConsumerClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Close")
	}
}
