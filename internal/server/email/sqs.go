package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newSQSClientFromConfig = func(cfg aws.Config, optFns ...func(*sqs.Options)) SQSAPI {
		return sqs.NewFromConfig(cfg, optFns...)
	}
)

// SQSAPI is the subset of the SQS client the sender uses.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type SQSConfig struct {
	QueueURL        string
	Region          string
	BaseEndpoint    string
	AccessKeyID     string
	SecretAccessKey string
}

// SQSSender hands messages to a mail worker through an SQS queue.
type SQSSender struct {
	client   SQSAPI
	queueURL string
}

func NewSQSSender(client SQSAPI, queueURL string) *SQSSender {
	return &SQSSender{client: client, queueURL: queueURL}
}

// NewSQSSenderFromConfig builds the client from the default AWS chain.
// Static credentials and a custom endpoint (localstack) are applied when set.
func NewSQSSenderFromConfig(ctx context.Context, c SQSConfig) (*SQSSender, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(c.Region)}
	if c.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, ""),
		))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := newSQSClientFromConfig(cfg, func(o *sqs.Options) {
		if c.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.BaseEndpoint)
		}
	})

	return NewSQSSender(client, c.QueueURL), nil
}

func (s *SQSSender) Send(ctx context.Context, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	out, err := s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("sqs send: %w", err)
	}
	if out == nil || out.MessageId == nil {
		return errors.New("sqs send: no message id returned")
	}
	return nil
}
