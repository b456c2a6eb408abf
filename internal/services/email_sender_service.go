package services

import (
	"context"

	"go.uber.org/zap"
)

// LogMailer is the development fallback used when no Brevo key is
// configured: it logs the email instead of delivering it.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, to, subject, html string) error {
	m.logger.Info("email delivery skipped (no mailer configured)",
		zap.String("to", to),
		zap.String("subject", subject))
	return nil
}
