package alerts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNS rejects subjects longer than this.
const maxSNSSubject = 100

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type snsSink struct {
	topicARN string
	api      snsAPI
}

func newSNSSink(ctx context.Context, cfg SNSConfig) (*snsSink, error) {
	awsCfg, err := cfg.load(ctx)
	if err != nil {
		return nil, err
	}
	api := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		o.BaseEndpoint = cfg.baseEndpoint()
	})
	return &snsSink{topicARN: cfg.TopicARN, api: api}, nil
}

func (s *snsSink) Kind() string { return KindSNS }

func (s *snsSink) Deliver(ctx context.Context, a Alert) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	_, err = s.api.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Subject:  aws.String(snsSubject(a)),
		Message:  aws.String(string(body)),
		MessageAttributes: stringAttributes(a, func(v string) snstypes.MessageAttributeValue {
			return snstypes.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
		}),
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}

func snsSubject(a Alert) string {
	subject := fmt.Sprintf("[devgate] %s %s %s", a.Reason, a.Event.Method, a.Event.Path)
	if len(subject) > maxSNSSubject {
		subject = subject[:maxSNSSubject]
	}
	return subject
}
