package otp

import (
	"context"
	"log/slog"
)

// LogSender writes codes to the log instead of an SMS gateway. The code is
// only logged at debug level so production logs never carry it.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, contact, code string) error {
	s.logger.InfoContext(ctx, "one-time code dispatched", "contact_hint", ContactHint(contact))
	s.logger.DebugContext(ctx, "one-time code", "contact_hint", ContactHint(contact), "code", code)
	return nil
}

// ContactHint returns the last four characters of contact for display.
func ContactHint(contact string) string {
	if len(contact) <= 4 {
		return contact
	}
	return contact[len(contact)-4:]
}
