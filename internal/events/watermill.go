package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"quiz-funnel-service/internal/domain"
	"quiz-funnel-service/internal/logging"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// WatermillSink publishes events as JSON messages on a topic. A Consumer on the same
// topic writes them to the store.
type WatermillSink struct {
	publisher message.Publisher
	topic     string
	logger    logging.Logger
	wg        sync.WaitGroup
}

func NewWatermillSink(publisher message.Publisher, topic string, logger logging.Logger) *WatermillSink {
	return &WatermillSink{publisher: publisher, topic: topic, logger: logger}
}

func (s *WatermillSink) Record(ev domain.Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		payload, err := json.Marshal(ev)
		if err != nil {
			s.logger.LogError(err, "marshal event", "event_type", ev.Type)
			return
		}
		msg := message.NewMessage(ev.ID, payload)
		msg.Metadata.Set("event_type", string(ev.Type))
		msg.Metadata.Set("session_id", ev.SessionID)
		msg.Metadata.Set("timestamp", ev.OccurredAt.UTC().Format(time.RFC3339))
		if err := s.publisher.Publish(s.topic, msg); err != nil {
			s.logger.Warn("publish event failed",
				"error", err,
				"event_id", ev.ID,
				"event_type", ev.Type,
				"topic", s.topic)
		}
	}()
}

func (s *WatermillSink) Flush() {
	s.wg.Wait()
}

// Close waits for in-flight publishes and closes the publisher.
func (s *WatermillSink) Close() error {
	s.Flush()
	return s.publisher.Close()
}

// Consumer drains the event topic into an EventWriter.
type Consumer struct {
	router *message.Router
}

func NewConsumer(subscriber message.Subscriber, topic string, writer EventWriter, logger logging.Logger) (*Consumer, error) {
	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(logger.Slog()))
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}
	router.AddNoPublisherHandler("persist_quiz_events", topic, subscriber, func(msg *message.Message) error {
		var ev domain.Event
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			logger.LogError(err, "drop malformed event message", "message_uuid", msg.UUID)
			return nil
		}
		if err := writer.RecordEvent(msg.Context(), ev); err != nil {
			logger.Warn("persist event failed",
				"error", err,
				"event_id", ev.ID,
				"event_type", ev.Type)
		}
		return nil
	})
	return &Consumer{router: router}, nil
}

// Run blocks until ctx is done or the router is closed.
func (c *Consumer) Run(ctx context.Context) error {
	return c.router.Run(ctx)
}

// Running is closed once the handlers are subscribed.
func (c *Consumer) Running() chan struct{} {
	return c.router.Running()
}

func (c *Consumer) Close() error {
	return c.router.Close()
}
