package events

import (
	"fmt"
	"io"
	"time"

	"quiz-funnel-service/internal/logging"
	"github.com/Shopify/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Config selects the event pipeline.
type Config struct {
	// Publisher is "direct", "gochannel" or "kafka".
	Publisher     string
	KafkaBrokers  []string
	Topic         string
	ConsumerGroup string
	WriteTimeout  time.Duration
}

// Pipeline is a Sink plus, for pub/sub backends, the Consumer that persists events.
type Pipeline struct {
	Sink     Sink
	Consumer *Consumer
	closers  []io.Closer
}

// Close stops the sink first so pending publishes reach the consumer.
func (p *Pipeline) Close() error {
	var firstErr error
	for _, c := range p.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewPipeline builds the pipeline selected by cfg on top of writer.
func NewPipeline(cfg Config, writer EventWriter, logger logging.Logger) (*Pipeline, error) {
	wmLogger := watermill.NewSlogLogger(logger.Slog())

	switch cfg.Publisher {
	case "", "direct":
		logger.Info("using direct event sink")
		sink := NewDirectSink(writer, cfg.WriteTimeout, logger)
		return &Pipeline{Sink: sink, closers: []io.Closer{sink}}, nil

	case "gochannel":
		logger.Info("using in-process event pub/sub", "topic", cfg.Topic)
		pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, wmLogger)
		consumer, err := NewConsumer(pubsub, cfg.Topic, writer, logger)
		if err != nil {
			return nil, err
		}
		sink := &WatermillSink{publisher: pubsub, topic: cfg.Topic, logger: logger}
		return &Pipeline{Sink: sink, Consumer: consumer, closers: []io.Closer{sink, consumer}}, nil

	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("kafka event publisher requires brokers")
		}
		logger.Info("using kafka event pub/sub", "brokers", cfg.KafkaBrokers, "topic", cfg.Topic)
		publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
			Brokers:   cfg.KafkaBrokers,
			Marshaler: kafka.DefaultMarshaler{},
		}, wmLogger)
		if err != nil {
			return nil, fmt.Errorf("create kafka publisher: %w", err)
		}
		saramaCfg := kafka.DefaultSaramaSubscriberConfig()
		saramaCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
		subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
			Brokers:               cfg.KafkaBrokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaCfg,
			ConsumerGroup:         cfg.ConsumerGroup,
		}, wmLogger)
		if err != nil {
			_ = publisher.Close()
			return nil, fmt.Errorf("create kafka subscriber: %w", err)
		}
		consumer, err := NewConsumer(subscriber, cfg.Topic, writer, logger)
		if err != nil {
			_ = publisher.Close()
			return nil, err
		}
		sink := NewWatermillSink(publisher, cfg.Topic, logger)
		return &Pipeline{Sink: sink, Consumer: consumer, closers: []io.Closer{sink, consumer}}, nil

	default:
		return nil, fmt.Errorf("unknown event publisher %q", cfg.Publisher)
	}
}
