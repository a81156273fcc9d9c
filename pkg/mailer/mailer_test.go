package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/rewards-ledger-api/pkg/config"
)

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("m-1")}, nil
}

func TestSESSenderBuildsInput(t *testing.T) {
	client := &fakeSES{}
	sender := newSESSender(client, "rewards@example.com", "Rewards")

	err := sender.Send(context.Background(), Message{To: []string{"s1@up.edu.mx", "admin@up.edu.mx"}, Subject: "Receipt", Body: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Rewards <rewards@example.com>", aws.ToString(client.input.FromEmailAddress))
	assert.Equal(t, []string{"s1@up.edu.mx", "admin@up.edu.mx"}, client.input.Destination.ToAddresses)
	assert.Equal(t, "Receipt", aws.ToString(client.input.Content.Simple.Subject.Data))
}

func TestSESSenderPropagatesFailure(t *testing.T) {
	sender := newSESSender(&fakeSES{err: errors.New("throttled")}, "rewards@example.com", "")
	err := sender.Send(context.Background(), Message{To: []string{"s1@up.edu.mx"}, Subject: "Receipt"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestMessageValidate(t *testing.T) {
	assert.Error(t, Message{Subject: "x"}.Validate())
	assert.Error(t, Message{To: []string{"nobody"}, Subject: "x"}.Validate())
	assert.Error(t, Message{To: []string{"a@b.c"}}.Validate())
	assert.NoError(t, Message{To: []string{"a@b.c"}, Subject: "x"}.Validate())
}

func TestNewSelectsLogDriver(t *testing.T) {
	sender, err := New(context.Background(), config.MailConfig{Driver: config.MailDriverLog}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, sender)
	assert.NoError(t, sender.Send(context.Background(), Message{To: []string{"a@b.c"}, Subject: "x"}))

	_, err = New(context.Background(), config.MailConfig{Driver: "pigeon"}, nil)
	assert.Error(t, err)
}
