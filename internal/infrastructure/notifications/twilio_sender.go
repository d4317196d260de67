package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioSender delivers SMS messages through the Twilio REST API
type TwilioSender struct {
	client     *twilio.RestClient
	fromNumber string
	logger     *slog.Logger
}

// NewTwilioSender creates a new Twilio SMS sender
func NewTwilioSender(accountSID, authToken, fromNumber string, logger *slog.Logger) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioSender{
		client:     client,
		fromNumber: fromNumber,
		logger:     logger,
	}
}

// Configured reports whether messages will actually leave the process
func (t *TwilioSender) Configured() bool {
	return t.fromNumber != ""
}

// Send implements Sender
func (t *TwilioSender) Send(ctx context.Context, to string, msg Message) error {
	// Without credentials the message is dropped and only its envelope is logged
	if !t.Configured() {
		t.logger.InfoContext(ctx, "sms transport not configured; message dropped",
			"to", maskDestination(to), "subject", msg.Subject)
		return nil
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.fromNumber)
	params.SetBody(msg.Body)

	if _, err := t.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}

	return nil
}

// maskDestination keeps enough of an address to correlate logs without exposing it
func maskDestination(to string) string {
	if len(to) <= 4 {
		return "****"
	}
	return "****" + to[len(to)-4:]
}
