package alerts

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type pubsubSink struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

func newPubSubSink(ctx context.Context, cfg PubSubConfig) (*pubsubSink, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID, cfg.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &pubsubSink{client: client, topic: client.Topic(cfg.Topic)}, nil
}

// clientOptions points the client at an emulator over plaintext gRPC
// without credentials, or at GCP with an optional key file.
func (c PubSubConfig) clientOptions() []option.ClientOption {
	if c.EmulatorHost != "" {
		return []option.ClientOption{
			option.WithEndpoint(c.EmulatorHost),
			option.WithoutAuthentication(),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		}
	}
	if c.CredentialsFile != "" {
		return []option.ClientOption{option.WithCredentialsFile(c.CredentialsFile)}
	}
	return nil
}

func (p *pubsubSink) Kind() string { return KindPubSub }

// Deliver waits for the server to acknowledge the message.
func (p *pubsubSink) Deliver(ctx context.Context, a Alert) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	res := p.topic.Publish(ctx, &pubsub.Message{Data: body, Attributes: a.attributes()})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("pubsub publish: %w", err)
	}
	return nil
}

// Close flushes pending messages and releases the client.
func (p *pubsubSink) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
