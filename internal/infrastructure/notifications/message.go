package notifications

import (
	"context"
	"fmt"

	"github.com/you/identitysvc/domain"
)

// Message is a rendered notification ready for a transport
type Message struct {
	Subject string
	Body    string
}

// Sender delivers a rendered message to one destination over one channel
type Sender interface {
	Send(ctx context.Context, to string, msg Message) error
}

// Template data keys
const (
	DataCode        = "code"
	DataPurpose     = "purpose"
	DataTTLMinutes  = "ttl_minutes"
	DataDisplayName = "display_name"
	DataLink        = "link"
)

// Render turns a notification into subject and body text
func Render(n *domain.Notification) (Message, error) {
	switch n.Template {
	case domain.TemplateVerificationCode:
		code := n.Data[DataCode]
		if code == "" {
			return Message{}, fmt.Errorf("notification %s: missing code", n.ID)
		}
		return Message{
			Subject: "Your verification code",
			Body: fmt.Sprintf("Your %s code is %s. It expires in %s minutes. If you did not request it, ignore this message.",
				purposeLabel(domain.Purpose(n.Data[DataPurpose])), code, orDefault(n.Data[DataTTLMinutes], "5")),
		}, nil

	case domain.TemplateWelcome:
		return Message{
			Subject: "Welcome",
			Body:    fmt.Sprintf("Hi %s, your account is verified and ready to use.", orDefault(n.Data[DataDisplayName], "there")),
		}, nil

	case domain.TemplatePasswordReset:
		link := n.Data[DataLink]
		if link == "" {
			return Message{}, fmt.Errorf("notification %s: missing reset link", n.ID)
		}
		return Message{
			Subject: "Reset your password",
			Body: fmt.Sprintf("Use this link to choose a new password: %s\nThe link expires in %s minutes. If you did not ask for a reset, you can ignore this message.",
				link, orDefault(n.Data[DataTTLMinutes], "15")),
		}, nil
	}
	return Message{}, fmt.Errorf("notification %s: unknown template %q", n.ID, n.Template)
}

func purposeLabel(p domain.Purpose) string {
	switch p {
	case domain.PurposeSignup:
		return "signup"
	case domain.PurposeLogin:
		return "sign-in"
	case domain.PurposePasswordReset:
		return "password reset"
	case domain.PurposePhoneVerify:
		return "phone verification"
	}
	return "verification"
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
