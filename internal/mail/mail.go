// Package mail delivers MFA codes. The SMTP sender covers production; the
// log sender covers development, where the code lands in the server log.
package mail

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"keepup/internal/config"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (s SMTPSender) Send(_ context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", s.From, to, subject, body)
	return smtp.SendMail(addr, auth, s.From, []string{to}, []byte(msg))
}

type LogSender struct {
	Log *zap.Logger
}

func (s LogSender) Send(_ context.Context, to, subject, body string) error {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("mail (log mode)", zap.String("to", to), zap.String("subject", subject), zap.String("body", body))
	return nil
}

// FromConfig picks the sender for the configured mail mode.
func FromConfig(cfg *config.Config, log *zap.Logger) Sender {
	if cfg != nil && cfg.Mail.Mode == "smtp" {
		return SMTPSender{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		}
	}
	return LogSender{Log: log}
}
