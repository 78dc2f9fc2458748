package alerts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, raw string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestLoadReadsAlertsBesideRules(t *testing.T) {
	path := writeFile(t, "proxy.yaml", `
rules:
  - id: api
    prefix: /api
alerts:
  - id: team-hook
    sink: Webhook
    when:
      min_status: 500
    webhook:
      url: " https://hooks.example.com/devgate "
  - id: queue
    sink: sqs
    when:
      rules: [api]
    sqs:
      queue_url: http://localhost:4566/000000000000/devgate
      region: us-east-1
      endpoint: http://localhost:4566
  - id: muted
    sink: webhook
    enabled: false
    webhook:
      url: https://hooks.example.com/muted
`)

	routes, err := Load(path, []string{"api"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("expected 2 enabled routes, got %d", len(routes))
	}
	hook := routes[0]
	if hook.Sink != KindWebhook || hook.Webhook.URL != "https://hooks.example.com/devgate" {
		t.Fatalf("unexpected webhook route %+v", hook.Webhook)
	}
	if hook.Webhook.Method != "POST" || hook.Webhook.TimeoutSeconds != defaultWebhookTimeout {
		t.Fatalf("expected webhook defaults, got %+v", hook.Webhook)
	}
	if hook.When.MinStatus != 500 || hook.When.Outcomes[0] != "failed" {
		t.Fatalf("unexpected filter %+v", hook.When)
	}
	if routes[1].SQS.Region != "us-east-1" || routes[1].SQS.Endpoint != "http://localhost:4566" {
		t.Fatalf("unexpected sqs route %+v", routes[1].SQS)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "proxy.json", `{"rules":[{"id":"api","prefix":"/api"}],
"alerts":[{"id":"topic","sink":"sns","sns":{"topic_arn":"arn:aws:sns:eu-west-1:1:devgate","region":"eu-west-1"}}]}`)

	routes, err := Load(path, []string{"api"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(routes) != 1 || routes[0].SNS.Region != "eu-west-1" {
		t.Fatalf("unexpected routes %+v", routes)
	}
}

func TestLoadWithoutAlertsSection(t *testing.T) {
	path := writeFile(t, "proxy.yaml", "rules:\n  - id: api\n    prefix: /api\n")
	routes, err := Load(path, []string{"api"})
	if err != nil || len(routes) != 0 {
		t.Fatalf("expected no routes, got %+v err=%v", routes, err)
	}
}

func TestLoadRejectsInvalidRoutes(t *testing.T) {
	cases := map[string]string{
		"unknown rule": `
alerts:
  - id: a
    sink: webhook
    when: {rules: [legacy]}
    webhook: {url: https://x}`,
		"missing block": `
alerts:
  - id: a
    sink: sqs`,
		"sqs without region": `
alerts:
  - id: a
    sink: sqs
    sqs: {queue_url: https://sqs/q}`,
		"half static keys": `
alerts:
  - id: a
    sink: sns
    sns: {topic_arn: arn, region: eu-west-1, access_key_id: AKIA}`,
		"pubsub without topic": `
alerts:
  - id: a
    sink: pubsub
    pubsub: {project_id: dev}`,
		"unknown sink": `
alerts:
  - id: a
    sink: kafka`,
		"duplicate id": `
alerts:
  - id: a
    sink: webhook
    webhook: {url: https://x}
  - id: a
    sink: webhook
    webhook: {url: https://y}`,
	}
	for name, raw := range cases {
		path := writeFile(t, "alerts.yaml", raw)
		if _, err := Load(path, []string{"api"}); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	path := writeFile(t, "alerts.toml", "")
	if _, err := Load(path, nil); err == nil || !strings.Contains(err.Error(), "not recognized") {
		t.Fatalf("expected format error, got %v", err)
	}
}
