package alerts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type sqsSink struct {
	queueURL string
	api      sqsAPI
}

func newSQSSink(ctx context.Context, cfg SQSConfig) (*sqsSink, error) {
	awsCfg, err := cfg.load(ctx)
	if err != nil {
		return nil, err
	}
	api := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		o.BaseEndpoint = cfg.baseEndpoint()
	})
	return &sqsSink{queueURL: cfg.QueueURL, api: api}, nil
}

func (s *sqsSink) Kind() string { return KindSQS }

func (s *sqsSink) Deliver(ctx context.Context, a Alert) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	_, err = s.api.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: stringAttributes(a, func(v string) sqstypes.MessageAttributeValue {
			return sqstypes.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
		}),
	})
	if err != nil {
		return fmt.Errorf("sqs send: %w", err)
	}
	return nil
}
