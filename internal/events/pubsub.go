// Package events fans out post-delivery notifications to downstream
// consumers.
package events

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"
)

// PubsubPublisher publishes to Google Cloud Pub/Sub topics. Topic
// handles are cached per topic name.
type PubsubPublisher struct {
	client *pubsub.Client

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

// NewPubsub connects to the project using ambient credentials.
func NewPubsub(ctx context.Context, projectID string) (*PubsubPublisher, error) {
	if projectID == "" {
		return nil, fmt.Errorf("pubsub project id is required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	return &PubsubPublisher{
		client: client,
		topics: make(map[string]*pubsub.Topic),
	}, nil
}

// Publish sends payload to topic and returns the server message id.
func (p *PubsubPublisher) Publish(ctx context.Context, topic string, payload []byte) (string, error) {
	t := p.topic(topic)
	res := t.Publish(ctx, &pubsub.Message{Data: payload})
	id, err := res.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", topic, err)
	}
	return id, nil
}

func (p *PubsubPublisher) topic(name string) *pubsub.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.topics[name]; ok {
		return t
	}
	t := p.client.Topic(name)
	p.topics[name] = t
	return t
}

// Close flushes cached topics and releases the client.
func (p *PubsubPublisher) Close() error {
	p.mu.Lock()
	for _, t := range p.topics {
		t.Stop()
	}
	p.mu.Unlock()
	return p.client.Close()
}
