package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// Publisher provides typed methods for publishing events to NATS JetStream.
// A nil Publisher is a no-op, so callers need no guard when NATS is disabled.
type Publisher struct {
	js jetstream.JetStream
}

// NewPublisher creates a new Publisher.
func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishCycleCompleted publishes a finished collection cycle.
func (p *Publisher) PublishCycleCompleted(ctx context.Context, evt CycleCompleted) error {
	return p.publish(ctx, SubjectCycleCompleted, evt)
}

// PublishQuotaDenied publishes an admission denial.
func (p *Publisher) PublishQuotaDenied(ctx context.Context, evt QuotaDenied) error {
	return p.publish(ctx, SubjectQuotaDenied, evt)
}

// PublishSummaryGenerated publishes a produced digest.
func (p *Publisher) PublishSummaryGenerated(ctx context.Context, evt SummaryGenerated) error {
	return p.publish(ctx, SubjectSummaryGenerated, evt)
}

// PublishCollectTask enqueues a manual collection run for the scheduler.
func (p *Publisher) PublishCollectTask(ctx context.Context, task CollectTask) error {
	return p.publish(ctx, SubjectCollectTask, task)
}

func (p *Publisher) publish(ctx context.Context, subject string, data any) error {
	if p == nil || p.js == nil {
		return nil
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	if _, err = p.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}
