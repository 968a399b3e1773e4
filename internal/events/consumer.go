package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// Collect tasks call out to the search API, so redeliveries back off
// long enough for a transient quota or network problem to clear.
const taskAckWait = 2 * time.Minute

// ConsumerManager creates the durable consumers the scheduler reads
// task subjects with.
type ConsumerManager struct {
	js jetstream.JetStream
}

func NewConsumerManager(js jetstream.JetStream) *ConsumerManager {
	return &ConsumerManager{js: js}
}

// EnsureConsumer creates or updates a durable pull consumer on the given
// stream. Acks are explicit; an unacked task is redelivered after
// taskAckWait so a crashed scheduler never loses a manual collect.
func (cm *ConsumerManager) EnsureConsumer(ctx context.Context, stream, name, filterSubject string) (jetstream.Consumer, error) {
	consumer, err := cm.js.CreateOrUpdateConsumer(ctx, stream, jetstream.ConsumerConfig{
		Durable:       name,
		FilterSubject: filterSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       taskAckWait,
	})
	if err != nil {
		return nil, fmt.Errorf("ensuring consumer %s on %s: %w", name, stream, err)
	}
	return consumer, nil
}
