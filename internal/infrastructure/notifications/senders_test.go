package notifications

import (
	"bytes"
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/identitysvc/internal/logging"
)

func TestSMTPSender_Send(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  []byte
	)
	sender := NewSMTPSender("smtp.example.com", 587, "user", "pass", "no-reply@example.com", logging.Discard())
	sender.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		assert.NotNil(t, a)
		return nil
	}

	err := sender.Send(context.Background(), "a@x.com", Message{Subject: "Hello", Body: "Body text"})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "no-reply@example.com", gotFrom)
	assert.Equal(t, []string{"a@x.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Hello\r\n")
	assert.Contains(t, string(gotMsg), "\r\n\r\nBody text")
}

func TestSMTPSender_SendError(t *testing.T) {
	sender := NewSMTPSender("smtp.example.com", 25, "", "", "no-reply@example.com", logging.Discard())
	sender.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := sender.Send(context.Background(), "a@x.com", Message{Subject: "s", Body: "b"})
	assert.ErrorContains(t, err, "failed to send email")
}

func TestSenders_Unconfigured_DropWithoutSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.Setup("identitysvc", "test", "json", &buf)

	smtpSender := NewSMTPSender("", 587, "", "", "", logger)
	twilioSender := NewTwilioSender("", "", "", logger)
	assert.False(t, smtpSender.Configured())
	assert.False(t, twilioSender.Configured())

	msg := Message{Subject: "Your verification code", Body: "Your code is 654321"}
	require.NoError(t, smtpSender.Send(context.Background(), "someone@example.com", msg))
	require.NoError(t, twilioSender.Send(context.Background(), "+15551234567", msg))

	out := buf.String()
	assert.Contains(t, out, "message dropped")
	assert.Contains(t, out, "****4567")
	assert.NotContains(t, out, "654321")
	assert.NotContains(t, out, "someone@example.com")
}

func TestMaskDestination(t *testing.T) {
	assert.Equal(t, "****", maskDestination("abc"))
	assert.Equal(t, "****.com", maskDestination("a@x.com"))
}
