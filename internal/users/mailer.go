package users

import (
	"context"
	"strings"

	"cvpro-backend/internal/shared/telemetry"
)

// Mail is an outgoing message.
type Mail struct {
	To      []string
	Subject string
	Body    string
}

// Mailer delivers outgoing messages.
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	// Redact hides message bodies, which may carry reset codes.
	Redact bool
}

func (l LogMailer) Send(ctx context.Context, m Mail) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fields := map[string]any{
		"to":      strings.Join(m.To, ","),
		"subject": m.Subject,
	}
	if !l.Redact {
		fields["body"] = m.Body
	}
	telemetry.Info("mail.send", fields)
	return nil
}
