package alerts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samvad-hq/samvad-devgate/pkg/apiclient"
)

type webhookSink struct {
	cfg    WebhookConfig
	client *resty.Client
}

func newWebhookSink(cfg WebhookConfig) *webhookSink {
	client := apiclient.NewRestyHTTPClient(time.Duration(cfg.TimeoutSeconds) * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeaders(cfg.Headers)
	return &webhookSink{cfg: cfg, client: client}
}

func (w *webhookSink) Kind() string { return KindWebhook }

func (w *webhookSink) Deliver(ctx context.Context, a Alert) error {
	resp, err := w.client.R().SetContext(ctx).SetBody(a).Execute(w.cfg.Method, w.cfg.URL)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	if resp.IsError() {
		body := resp.Body()
		if len(body) > 256 {
			body = body[:256]
		}
		return fmt.Errorf("webhook answered %d: %s", resp.StatusCode(), strings.TrimSpace(string(body)))
	}
	return nil
}
