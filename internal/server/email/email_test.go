package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewConsoleSender(&buf)

	err := s.Send(context.Background(), &Message{
		ToEmails: []string{"a@b.c", "d@e.f"},
		Subject:  "Hi",
		Body:     "plain",
		HTMLBody: "<p>html</p>",
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "From: "+defaultFrom)
	assert.Contains(t, out, "To: a@b.c, d@e.f")
	assert.Contains(t, out, "Subject: Hi")
	assert.Contains(t, out, "plain")
	assert.Contains(t, out, "<p>html</p>")
	assert.Equal(t, 1, s.Count())
}

type fakeSQS struct {
	in  *sqs.SendMessageInput
	out *sqs.SendMessageOutput
	err error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.in = in
	return f.out, f.err
}

func TestSQSSender_Send(t *testing.T) {
	fake := &fakeSQS{out: &sqs.SendMessageOutput{MessageId: aws.String("m-1")}}
	s := NewSQSSender(fake, "https://sqs.local/queue")

	err := s.Send(context.Background(), &Message{ToEmails: []string{"a@b.c"}, Subject: "S", Body: "B"})
	require.NoError(t, err)

	assert.Equal(t, "https://sqs.local/queue", aws.ToString(fake.in.QueueUrl))

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(fake.in.MessageBody)), &got))
	assert.Equal(t, []any{"a@b.c"}, got["to_emails"])
	assert.Equal(t, "S", got["subject"])
	assert.Equal(t, "B", got["body"])
	assert.NotContains(t, got, "html_body", "empty optional fields are omitted")
	assert.NotContains(t, got, "from_email")
}

func TestSQSSender_Errors(t *testing.T) {
	s := NewSQSSender(&fakeSQS{err: errors.New("throttled")}, "q")
	err := s.Send(context.Background(), &Message{})
	assert.ErrorContains(t, err, "throttled")

	s = NewSQSSender(&fakeSQS{out: &sqs.SendMessageOutput{}}, "q")
	err = s.Send(context.Background(), &Message{})
	assert.ErrorContains(t, err, "no message id")
}

func TestNewSQSSenderFromConfig(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newSQSClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newSQSClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-west-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		creds, err := lo.Credentials.Retrieve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "AKID", creds.AccessKeyID)
		return aws.Config{}, nil
	}

	var endpoint string
	fake := &fakeSQS{}
	newSQSClientFromConfig = func(cfg aws.Config, optFns ...func(*sqs.Options)) SQSAPI {
		var o sqs.Options
		for _, fn := range optFns {
			fn(&o)
		}
		endpoint = aws.ToString(o.BaseEndpoint)
		return fake
	}

	s, err := NewSQSSenderFromConfig(context.Background(), SQSConfig{
		QueueURL: "q", Region: "eu-west-1", BaseEndpoint: "http://localstack:4566",
		AccessKeyID: "AKID", SecretAccessKey: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localstack:4566", endpoint)
	assert.Same(t, fake, s.client)
	assert.Equal(t, "q", s.queueURL)
}

func TestNewSQSSenderFromConfig_LoadError(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })

	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no region")
	}

	_, err := NewSQSSenderFromConfig(context.Background(), SQSConfig{})
	assert.ErrorContains(t, err, "loading aws config")
}

func TestTemplates_Render(t *testing.T) {
	tpl, err := NewTemplates()
	require.NoError(t, err)

	text, html, err := tpl.Render("user_verification", map[string]string{
		"UserName":        "Alice",
		"VerificationURL": "http://front/verify-email?token=abc&x=1",
	})
	require.NoError(t, err)
	assert.Contains(t, text, "Hello Alice,")
	assert.Contains(t, text, "http://front/verify-email?token=abc&x=1")
	assert.Contains(t, html, "token=abc&amp;x=1", "html variant is escaped")

	text, html, err = tpl.Render("duplicate_registration_warning", map[string]string{
		"Email":    "<b>a@b.c</b>",
		"LoginURL": "http://front/sign-in",
	})
	require.NoError(t, err)
	assert.Contains(t, text, "<b>a@b.c</b>")
	assert.Contains(t, html, "&lt;b&gt;a@b.c&lt;/b&gt;")

	_, _, err = tpl.Render("missing", nil)
	assert.Error(t, err)
}
