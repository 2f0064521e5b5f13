package ingestion

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// ReportPublisher sends a rendered report to a subject.
type ReportPublisher interface {
	PublishReport(ctx context.Context, subject string, data []byte) error
}

// JetStreamPublisher publishes reports to JetStream and waits for the ack.
type JetStreamPublisher struct {
	js jetstream.JetStream
}

func NewJetStreamPublisher(js jetstream.JetStream) *JetStreamPublisher {
	return &JetStreamPublisher{js: js}
}

func (p *JetStreamPublisher) PublishReport(ctx context.Context, subject string, data []byte) error {
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}
