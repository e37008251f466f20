package notification

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Console logs rendered messages instead of delivering them. It is the
// default dispatcher for local development and handler tests.
type Console struct {
	logger *slog.Logger
}

func NewConsole(logger *slog.Logger) *Console {
	return &Console{logger: logger}
}

func (c *Console) Send(ctx context.Context, kind Kind, payload Payload) Result {
	email, err := Render(kind, payload)
	if err != nil {
		return Result{Err: err.Error()}
	}
	c.logger.InfoContext(ctx, "console notification",
		"kind", kind,
		"application_id", payload.ApplicationID,
		"to", payload.RecipientEmail,
		"subject", email.Subject,
		"body", email.Body,
	)
	return Result{Success: true, ProviderMessageID: "console-" + uuid.NewString()}
}
