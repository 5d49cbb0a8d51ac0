package publishers

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

type pubsubSender struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	log    Logger
}

func newPubSubSender(ctx context.Context, cfg *GCPConfig, log Logger) (queueSender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("gcp configuration is missing")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &pubsubSender{client: client, topic: client.Topic(cfg.Topic), log: ensureLogger(log)}, nil
}

// Send blocks until the server acknowledges the message.
func (s *pubsubSender) Send(ctx context.Context, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	id, err := s.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: evt.attributes()}).Get(ctx)
	if err != nil {
		return fmt.Errorf("pubsub publish: %w", err)
	}
	s.log.DebugObj("event sent to pubsub", "publisher_pubsub_delivery", map[string]any{
		"event_id":   evt.ID,
		"message_id": id,
	})
	return nil
}

func (s *pubsubSender) Close() error {
	s.topic.Stop()
	return s.client.Close()
}
