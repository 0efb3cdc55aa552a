// Package pubsub publishes harvested items to a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/harvest"
)

// Sink publishes each item as one JSON message. The billing category, when
// present, travels as a message attribute so downstream consumers can
// partition by tier.
type Sink struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// New connects to Pub/Sub and binds the topic.
func New(ctx context.Context, projectID, topicID string) (*Sink, error) {
	if projectID == "" || topicID == "" {
		return nil, fmt.Errorf("pubsub project id and topic id are required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &Sink{client: client, topic: client.Topic(topicID)}, nil
}

// Write publishes the item and waits for the server acknowledgement.
func (s *Sink) Write(ctx context.Context, item harvest.Item, category string) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}

	msg := &pubsub.Message{Data: data}
	if category != "" {
		msg.Attributes = map[string]string{"category": category}
	}
	if _, err := s.topic.Publish(ctx, msg).Get(ctx); err != nil {
		return fmt.Errorf("publish item: %w", err)
	}
	return nil
}

// Close stops the topic's goroutines and closes the client.
func (s *Sink) Close() error {
	s.topic.Stop()
	return s.client.Close()
}
