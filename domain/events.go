package domain

import "time"

// TemplateKind defines which message a notification renders
type TemplateKind string

const (
	TemplateVerificationCode TemplateKind = "VERIFICATION_CODE"
	TemplateWelcome          TemplateKind = "WELCOME"
	TemplatePasswordReset    TemplateKind = "PASSWORD_RESET"
)

// Notification is a delivery request handed to the notification sink
type Notification struct {
	ID          string            `json:"id"`
	Channel     Channel           `json:"channel"`
	Destination string            `json:"destination"`
	Template    TemplateKind      `json:"template"`
	Data        map[string]string `json:"data,omitempty"`
	AccountID   uint              `json:"account_id,omitempty"`
	Attempt     int               `json:"attempt,omitempty"`
	RequestedAt time.Time         `json:"requested_at"`
}

// NewNotification creates a notification with common fields populated
func NewNotification(template TemplateKind, channel Channel, destination string) *Notification {
	return &Notification{
		Channel:     channel,
		Destination: destination,
		Template:    template,
		Data:        make(map[string]string),
		RequestedAt: time.Now().UTC(),
	}
}

// WithAccount sets the account the notification concerns
func (n *Notification) WithAccount(accountID uint) *Notification {
	n.AccountID = accountID
	return n
}

// WithData adds a template variable
func (n *Notification) WithData(key, value string) *Notification {
	if n.Data == nil {
		n.Data = make(map[string]string)
	}
	n.Data[key] = value
	return n
}
