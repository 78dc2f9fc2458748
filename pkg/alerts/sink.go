package alerts

import (
	"context"
	"fmt"
)

// Sink delivers alerts to one downstream system.
type Sink interface {
	Kind() string
	Deliver(ctx context.Context, a Alert) error
}

type opener func(ctx context.Context, rc RouteConfig) (Sink, error)

var openers = map[string]opener{
	KindWebhook: func(_ context.Context, rc RouteConfig) (Sink, error) { return newWebhookSink(*rc.Webhook), nil },
	KindSQS:     func(ctx context.Context, rc RouteConfig) (Sink, error) { return newSQSSink(ctx, *rc.SQS) },
	KindSNS:     func(ctx context.Context, rc RouteConfig) (Sink, error) { return newSNSSink(ctx, *rc.SNS) },
	KindPubSub:  func(ctx context.Context, rc RouteConfig) (Sink, error) { return newPubSubSink(ctx, *rc.PubSub) },
}

// Open builds the sink of every route and returns a Dispatcher over them.
// Routes must come from Load. Already opened sinks are closed on error.
func Open(ctx context.Context, routes []RouteConfig, source, environment string) (*Dispatcher, error) {
	d := &Dispatcher{source: source, environment: environment}
	for _, rc := range routes {
		open, ok := openers[rc.Sink]
		if !ok {
			d.Close()
			return nil, fmt.Errorf("route %q: unknown sink %q", rc.ID, rc.Sink)
		}
		sink, err := open(ctx, rc)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("route %q: open %s sink: %w", rc.ID, rc.Sink, err)
		}
		d.routes = append(d.routes, Route{ID: rc.ID, When: rc.When, Sink: sink})
	}
	return d, nil
}
