package messaging

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// OpenTopic connects to projectID and returns topic, creating it when missing.
func OpenTopic(ctx context.Context, projectID, topic string, opts ...option.ClientOption) (*pubsub.Client, *pubsub.Topic, error) {
	if projectID == "" {
		return nil, nil, errors.New("PUBSUB_PROJECT_ID not set")
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub client: %w", err)
	}
	t, err := CreateTopicIfNotExists(ctx, client, topic)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	logrus.WithFields(logrus.Fields{"project": projectID, "topic": topic}).Info("pubsub: topic ready")
	return client, t, nil
}

func CreateTopicIfNotExists(ctx context.Context, c *pubsub.Client, topic string) (*pubsub.Topic, error) {
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	t := c.Topic(topic)
	ok, err := t.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return t, nil
	}
	t, err = c.CreateTopic(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("create topic %q: %w", topic, err)
	}
	return t, nil
}
