package users

import (
	"context"
	"time"

	"runner-service/internal/logging"
)

// Mailer delivers password reset codes.
type Mailer interface {
	SendResetCode(ctx context.Context, userName, code string, expires time.Time) error
}

// LogMailer only logs. The code itself is logged at debug level.
type LogMailer struct {
	log logging.Logger
}

func NewLogMailer(log logging.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendResetCode(ctx context.Context, userName, code string, expires time.Time) error {
	m.log.Info(ctx, "password reset code issued", "user", userName, "expires", expires.Format(time.RFC3339))
	m.log.Debug(ctx, "password reset code", "user", userName, "code", code)
	return nil
}
