package alerts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sink kinds.
const (
	KindWebhook = "webhook"
	KindSQS     = "sqs"
	KindSNS     = "sns"
	KindPubSub  = "pubsub"
)

const (
	defaultWebhookMethod  = "POST"
	defaultWebhookTimeout = 5
)

// alertsSection is the part of a proxy rules file this package reads.
// The rules themselves are decoded by the proxy.
type alertsSection struct {
	Alerts []RouteConfig `json:"alerts" yaml:"alerts"`
}

// RouteConfig binds a Filter to one sink.
type RouteConfig struct {
	ID      string `json:"id" yaml:"id"`
	Sink    string `json:"sink" yaml:"sink"`
	Enabled *bool  `json:"enabled" yaml:"enabled"`
	When    Filter `json:"when" yaml:"when"`

	Webhook *WebhookConfig `json:"webhook" yaml:"webhook"`
	SQS     *SQSConfig     `json:"sqs" yaml:"sqs"`
	SNS     *SNSConfig     `json:"sns" yaml:"sns"`
	PubSub  *PubSubConfig  `json:"pubsub" yaml:"pubsub"`
}

// WebhookConfig posts the alert as JSON.
type WebhookConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// AWSConfig is shared by the SQS and SNS sinks. Empty keys fall back to the
// default credential chain; Endpoint targets LocalStack and the like.
type AWSConfig struct {
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
}

// SQSConfig sends alerts to a queue.
type SQSConfig struct {
	QueueURL  string `json:"queue_url" yaml:"queue_url"`
	AWSConfig `yaml:",inline"`
}

// SNSConfig publishes alerts to a topic.
type SNSConfig struct {
	TopicARN  string `json:"topic_arn" yaml:"topic_arn"`
	AWSConfig `yaml:",inline"`
}

// PubSubConfig publishes alerts to a GCP topic. EmulatorHost connects
// without TLS or credentials.
type PubSubConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
	EmulatorHost    string `json:"emulator_host" yaml:"emulator_host"`
}

// Load reads the alerts section of path and returns the enabled routes.
// knownRules are the ids of the loaded proxy rules; a route naming any
// other rule is rejected. A file without an alerts section yields nil.
func Load(path string, knownRules []string) ([]RouteConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alerts file: %w", err)
	}

	var section alertsSection
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(raw, &section)
	case ".yaml", ".yml", "":
		err = yaml.Unmarshal(raw, &section)
	default:
		return nil, fmt.Errorf("alerts file format %q not recognized (expected YAML or JSON)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode alerts: %w", err)
	}

	seen := make(map[string]struct{}, len(section.Alerts))
	routes := make([]RouteConfig, 0, len(section.Alerts))
	for i, rc := range section.Alerts {
		if err := rc.normalize(knownRules); err != nil {
			return nil, fmt.Errorf("alerts[%d]: %w", i, err)
		}
		if _, dup := seen[rc.ID]; dup {
			return nil, fmt.Errorf("duplicate alert route id %q", rc.ID)
		}
		seen[rc.ID] = struct{}{}
		if rc.Enabled != nil && !*rc.Enabled {
			continue
		}
		routes = append(routes, rc)
	}
	return routes, nil
}

func (rc *RouteConfig) normalize(knownRules []string) error {
	rc.ID = strings.TrimSpace(rc.ID)
	rc.Sink = strings.ToLower(strings.TrimSpace(rc.Sink))
	if rc.ID == "" {
		return errors.New("id is required")
	}
	if err := rc.When.normalize(knownRules); err != nil {
		return fmt.Errorf("route %q: %w", rc.ID, err)
	}

	var err error
	switch rc.Sink {
	case KindWebhook:
		err = requireBlock(rc.Webhook, func(c *WebhookConfig) error { return c.normalize() })
	case KindSQS:
		err = requireBlock(rc.SQS, func(c *SQSConfig) error { return c.normalize() })
	case KindSNS:
		err = requireBlock(rc.SNS, func(c *SNSConfig) error { return c.normalize() })
	case KindPubSub:
		err = requireBlock(rc.PubSub, func(c *PubSubConfig) error { return c.normalize() })
	case "":
		err = errors.New("sink is required")
	default:
		err = fmt.Errorf("unknown sink %q", rc.Sink)
	}
	if err != nil {
		return fmt.Errorf("route %q: %w", rc.ID, err)
	}
	return nil
}

func requireBlock[T any](block *T, normalize func(*T) error) error {
	if block == nil {
		return errors.New("sink settings block is missing")
	}
	return normalize(block)
}

func (c *WebhookConfig) normalize() error {
	c.URL = strings.TrimSpace(c.URL)
	if c.URL == "" {
		return errors.New("webhook.url is required")
	}
	c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
	if c.Method == "" {
		c.Method = defaultWebhookMethod
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultWebhookTimeout
	}
	headers := make(map[string]string, len(c.Headers))
	for k, v := range c.Headers {
		if k, v = strings.TrimSpace(k), strings.TrimSpace(v); k != "" && v != "" {
			headers[k] = v
		}
	}
	c.Headers = headers
	return nil
}

func (c *AWSConfig) normalize(kind string) error {
	c.Region = strings.TrimSpace(c.Region)
	c.AccessKeyID = strings.TrimSpace(c.AccessKeyID)
	c.SecretAccessKey = strings.TrimSpace(c.SecretAccessKey)
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	if c.Region == "" {
		return fmt.Errorf("%s.region is required", kind)
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return fmt.Errorf("%s.access_key_id and %s.secret_access_key must be set together", kind, kind)
	}
	return nil
}

func (c *SQSConfig) normalize() error {
	c.QueueURL = strings.TrimSpace(c.QueueURL)
	if c.QueueURL == "" {
		return errors.New("sqs.queue_url is required")
	}
	return c.AWSConfig.normalize(KindSQS)
}

func (c *SNSConfig) normalize() error {
	c.TopicARN = strings.TrimSpace(c.TopicARN)
	if c.TopicARN == "" {
		return errors.New("sns.topic_arn is required")
	}
	return c.AWSConfig.normalize(KindSNS)
}

func (c *PubSubConfig) normalize() error {
	c.ProjectID = strings.TrimSpace(c.ProjectID)
	c.Topic = strings.TrimSpace(c.Topic)
	c.CredentialsFile = strings.TrimSpace(c.CredentialsFile)
	c.EmulatorHost = strings.TrimSpace(c.EmulatorHost)
	if c.ProjectID == "" || c.Topic == "" {
		return errors.New("pubsub.project_id and pubsub.topic are required")
	}
	if c.EmulatorHost != "" && c.CredentialsFile != "" {
		return errors.New("pubsub.credentials_file cannot be combined with pubsub.emulator_host")
	}
	return nil
}
