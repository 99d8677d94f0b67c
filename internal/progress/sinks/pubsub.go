package sinks

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/kaykas/booth-beacon-app-sub000/internal/progress"
)

// PubSubSink publishes source-completion summaries to a Pub/Sub topic for
// downstream consumers (notification jobs, dashboards). Only
// source_complete events are forwarded; per-batch chatter stays local.
type PubSubSink struct {
	topic *pubsub.Topic
}

// NewPubSubSink connects a client and resolves the topic.
func NewPubSubSink(ctx context.Context, projectID, topicID string) (*PubSubSink, error) {
	if projectID == "" || topicID == "" {
		return nil, fmt.Errorf("pubsub project_id and topic_id are required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &PubSubSink{topic: client.Topic(topicID)}, nil
}

// Consume publishes source_complete events as JSON.
func (s *PubSubSink) Consume(ctx context.Context, evt progress.Event) error {
	if evt.Kind != progress.KindSourceComplete {
		return nil
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal progress event: %w", err)
	}
	result := s.topic.Publish(ctx, &pubsub.Message{Data: data})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish progress event: %w", err)
	}
	return nil
}

// Close stops the topic's publish goroutines.
func (s *PubSubSink) Close(context.Context) error {
	s.topic.Stop()
	return nil
}
