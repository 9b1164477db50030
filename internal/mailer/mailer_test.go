package mailer

import (
	"bytes"
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"residentportal/internal/config"
	"residentportal/internal/logging"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}

type MockSESClient struct {
	mock.Mock
}

func (m *MockSESClient) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sesv2.SendEmailOutput), args.Error(1)
}

func TestTemplateMailer_SendVerification(t *testing.T) {
	sender := new(MockSender)
	m := NewTemplateMailer(sender, "https://portal.example/", 24*time.Hour, time.Hour)

	sender.On("Send", mock.Anything, "alice@example.com", verificationSubject, mock.MatchedBy(func(body string) bool {
		return strings.Contains(body, "https://portal.example/verify-email?token=abc123") &&
			strings.Contains(body, "24 hours")
	})).Return(nil)

	require.NoError(t, m.SendVerification(context.Background(), "alice@example.com", "abc123"))
	sender.AssertExpectations(t)
}

func TestTemplateMailer_SendResetPropagatesFailure(t *testing.T) {
	sender := new(MockSender)
	m := NewTemplateMailer(sender, "https://portal.example", 24*time.Hour, time.Hour)

	sender.On("Send", mock.Anything, "alice@example.com", resetSubject, mock.MatchedBy(func(body string) bool {
		return strings.Contains(body, "https://portal.example/reset-password?token=def456") &&
			strings.Contains(body, "1 hour")
	})).Return(errors.New("relay down"))

	err := m.SendReset(context.Background(), "alice@example.com", "def456")
	assert.EqualError(t, err, "relay down")
	sender.AssertExpectations(t)
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "1 hour", humanize(time.Hour))
	assert.Equal(t, "24 hours", humanize(24*time.Hour))
	assert.Equal(t, "30 minutes", humanize(30*time.Minute))
	assert.Equal(t, "45s", humanize(45*time.Second))
}

func TestSMTPMailer_Send(t *testing.T) {
	m := NewSMTPMailer(config.SMTPConfig{Host: "smtp.example", Port: 587, Username: "u", Password: "p"}, "no-reply@portal.example", logging.Discard())
	assert.NotNil(t, m.auth)

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	require.NoError(t, m.Send(context.Background(), "alice@example.com", "Hi", "line1\nline2"))
	assert.Equal(t, "smtp.example:587", gotAddr)
	assert.Equal(t, "no-reply@portal.example", gotFrom)
	assert.Equal(t, []string{"alice@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Hi\r\n")
	assert.True(t, strings.HasSuffix(string(gotMsg), "line1\r\nline2"))
}

func TestSMTPMailer_SendError(t *testing.T) {
	m := NewSMTPMailer(config.SMTPConfig{Host: "localhost", Port: 2525}, "from@example", logging.Discard())
	assert.Nil(t, m.auth)
	m.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("dial failed") }

	err := m.Send(context.Background(), "alice@example.com", "Hi", "body")
	assert.ErrorContains(t, err, "dial failed")
}

func TestSESMailer_Send(t *testing.T) {
	client := new(MockSESClient)
	m := newSESMailer(client, "no-reply@portal.example", logging.Discard())

	client.On("SendEmail", mock.Anything, mock.MatchedBy(func(in *sesv2.SendEmailInput) bool {
		return *in.FromEmailAddress == "no-reply@portal.example" &&
			in.Destination.ToAddresses[0] == "alice@example.com" &&
			*in.Content.Simple.Subject.Data == "Hi" &&
			*in.Content.Simple.Body.Text.Data == "body"
	})).Return(&sesv2.SendEmailOutput{}, nil).Once()
	client.On("SendEmail", mock.Anything, mock.Anything).Return(nil, errors.New("throttled")).Once()

	require.NoError(t, m.Send(context.Background(), "alice@example.com", "Hi", "body"))
	assert.ErrorContains(t, m.Send(context.Background(), "alice@example.com", "Hi", "body"), "throttled")
	client.AssertExpectations(t)
}

func TestNew_SelectsSender(t *testing.T) {
	base := config.Config{FrontendURL: "http://localhost:3000", VerificationTTL: 24 * time.Hour, ResetTTL: time.Hour}

	tests := []struct {
		mailerType string
		want       interface{}
	}{
		{"log", &LogMailer{}},
		{"smtp", &SMTPMailer{}},
		{"carrier-pigeon", &LogMailer{}},
	}
	for _, tt := range tests {
		t.Run(tt.mailerType, func(t *testing.T) {
			cfg := base
			cfg.MailerType = tt.mailerType
			m, err := New(context.Background(), &cfg, logging.Discard())
			require.NoError(t, err)
			tm, ok := m.(*TemplateMailer)
			require.True(t, ok)
			assert.IsType(t, tt.want, tm.sender)
		})
	}
}

func TestLogMailer_Send(t *testing.T) {
	assert.NoError(t, NewLogMailer(logging.Discard()).Send(context.Background(), "a@b.c", "s", "b"))
}

func TestLogMailer_BodyOnlyAtDebug(t *testing.T) {
	body := "Reset here: http://localhost:3000/reset-password?token=deadbeef"

	var info bytes.Buffer
	require.NoError(t, NewLogMailer(logging.NewWithWriter(&info, "info", "json")).Send(context.Background(), "a@b.c", "Reset your password", body))
	assert.Contains(t, info.String(), "a@b.c")
	assert.Contains(t, info.String(), "Reset your password")
	assert.NotContains(t, info.String(), "deadbeef")

	var debug bytes.Buffer
	require.NoError(t, NewLogMailer(logging.NewWithWriter(&debug, "debug", "json")).Send(context.Background(), "a@b.c", "Reset your password", body))
	assert.Contains(t, debug.String(), "deadbeef")
}
