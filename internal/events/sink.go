package events

import (
	"context"
	"sync"
	"time"

	"quiz-funnel-service/internal/domain"
	"quiz-funnel-service/internal/logging"
)

// Sink accepts funnel events without blocking the caller. Delivery is best effort:
// failures are logged and never retried.
type Sink interface {
	Record(ev domain.Event)
	// Flush blocks until every event recorded so far has been handed off.
	Flush()
}

// EventWriter persists one event.
type EventWriter interface {
	RecordEvent(ctx context.Context, ev domain.Event) error
}

// DirectSink writes each event to the store from its own goroutine.
type DirectSink struct {
	writer  EventWriter
	timeout time.Duration
	logger  logging.Logger
	wg      sync.WaitGroup
}

func NewDirectSink(writer EventWriter, timeout time.Duration, logger logging.Logger) *DirectSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DirectSink{writer: writer, timeout: timeout, logger: logger}
}

func (s *DirectSink) Record(ev domain.Event) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.writer.RecordEvent(ctx, ev); err != nil {
			s.logger.Warn("record event failed",
				"error", err,
				"event_type", ev.Type,
				"session_id", ev.SessionID,
				"step_id", ev.StepID)
		}
	}()
}

func (s *DirectSink) Flush() {
	s.wg.Wait()
}

// Close waits for in-flight writes.
func (s *DirectSink) Close() error {
	s.Flush()
	return nil
}
