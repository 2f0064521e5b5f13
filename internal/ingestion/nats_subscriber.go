package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

// RequestSubscriber consumes allocation requests from JetStream and hands
// them to the worker through a channel.
type RequestSubscriber struct {
	js        jetstream.JetStream
	out       chan<- RawRequest
	consumers []jetstream.ConsumeContext
	logger    zerolog.Logger
}

// RawRequest is an undecoded request message. The worker calls exactly one
// of AckFunc or NakFunc once it is done with the message.
type RawRequest struct {
	Subject  string
	Data     []byte
	Received time.Time
	AckFunc  func()
	NakFunc  func()
}

// SubjectConfig binds a durable consumer to a subject on a stream.
type SubjectConfig struct {
	Subject      string
	ConsumerName string
	StreamName   string
}

// Layout names the streams, subjects and consumer the worker uses.
type Layout struct {
	RequestStream  string
	RequestSubject string
	ResultStream   string
	ResultPrefix   string
	ConsumerName   string
}

// DefaultLayout returns the standard NATS layout.
func DefaultLayout() Layout {
	return Layout{
		RequestStream:  "ALLOC_REQUESTS",
		RequestSubject: "allocator.requests.>",
		ResultStream:   "ALLOC_RESULTS",
		ResultPrefix:   "allocator.results",
		ConsumerName:   "allocator-worker",
	}
}

// Requests returns the consumer binding for the request subject.
func (l Layout) Requests() SubjectConfig {
	return SubjectConfig{
		Subject:      l.RequestSubject,
		ConsumerName: l.ConsumerName,
		StreamName:   l.RequestStream,
	}
}

func NewRequestSubscriber(js jetstream.JetStream, out chan<- RawRequest, logger zerolog.Logger) *RequestSubscriber {
	return &RequestSubscriber{
		js:     js,
		out:    out,
		logger: logger,
	}
}

// Subscribe creates the durable consumer and starts delivering messages.
// Consumers use explicit ACK, max_deliver=5, ack_wait=30s.
func (s *RequestSubscriber) Subscribe(ctx context.Context, cfg SubjectConfig) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, cfg.StreamName, jetstream.ConsumerConfig{
		Durable:       cfg.ConsumerName,
		FilterSubject: cfg.Subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    5,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", cfg.ConsumerName, err)
	}

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		raw := RawRequest{
			Subject:  msg.Subject(),
			Data:     msg.Data(),
			Received: time.Now(),
			AckFunc:  func() { msg.Ack() },
			NakFunc:  func() { msg.Nak() },
		}

		select {
		case s.out <- raw:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", cfg.ConsumerName, err)
	}

	s.consumers = append(s.consumers, consumeCtx)
	s.logger.Info().
		Str("subject", cfg.Subject).
		Str("consumer", cfg.ConsumerName).
		Msg("subscribed")

	return nil
}

// Stop gracefully stops all consumers.
func (s *RequestSubscriber) Stop() {
	for _, cc := range s.consumers {
		cc.Stop()
	}
	s.logger.Info().Msg("NATS subscribers stopped")
}

// EnsureStreams creates the request and result streams if they don't exist.
// Streams use FileStorage, retention=Limits, max_age=72h.
func EnsureStreams(ctx context.Context, js jetstream.JetStream, layout Layout, logger zerolog.Logger) error {
	streams := []jetstream.StreamConfig{
		{
			Name:      layout.RequestStream,
			Subjects:  []string{layout.RequestSubject},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
		{
			Name:      layout.ResultStream,
			Subjects:  []string{layout.ResultPrefix + ".>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
	}

	for _, cfg := range streams {
		if _, err := js.CreateOrUpdateStream(ctx, cfg); err != nil {
			return fmt.Errorf("create stream %s: %w", cfg.Name, err)
		}
		logger.Info().Str("stream", cfg.Name).Msg("ensured stream")
	}

	return nil
}

// ConnectNATS establishes a NATS connection and returns a JetStream context.
func ConnectNATS(url string, logger zerolog.Logger) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.Name("tranche-allocator"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info().Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}

	return nc, js, nil
}
