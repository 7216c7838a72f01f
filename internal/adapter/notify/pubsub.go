package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"loan-tracker/internal/domain/loan"
)

// PubSubSink publishes each event as JSON, with kind and loan id as attributes.
type PubSubSink struct {
	topic *pubsub.Topic
}

func NewPubSubSink(topic *pubsub.Topic) *PubSubSink { return &PubSubSink{topic: topic} }

func (s *PubSubSink) Name() string { return "pubsub" }

func (s *PubSubSink) Deliver(ctx context.Context, ev loan.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	result := s.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"kind":    string(ev.Kind),
			"loan_id": ev.LoanID,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Kind, err)
	}
	return nil
}
