package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"regexp"

	"gopkg.in/gomail.v2"

	"github.com/urovital/clinic-api/internal/config"
)

type Service interface {
	Send(ctx context.Context, to, subject, content string) error
}

var htmlTag = regexp.MustCompile("<[^>]+>")

type smtpService struct {
	cfg  config.MailConfig
	send func(...*gomail.Message) error
}

func NewSMTPService(cfg config.MailConfig) Service {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.TLSConfig = &tls.Config{
		ServerName: cfg.Host,
		MinVersion: tls.VersionTLS12,
	}

	return &smtpService{
		cfg:  cfg,
		send: dialer.DialAndSend,
	}
}

// Send returns when the SMTP exchange finishes or ctx is done, whichever
// is first. gomail takes no context, so an abandoned exchange runs on in
// the background until the server answers or the dial times out.
func (s *smtpService) Send(ctx context.Context, to, subject, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildMessage(s.cfg, to, subject, content)
	done := make(chan error, 1)
	go func() {
		done <- s.send(msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildMessage(cfg config.MailConfig, to, subject, content string) *gomail.Message {
	msg := gomail.NewMessage(
		gomail.SetCharset("UTF-8"),
		gomail.SetEncoding(gomail.Base64),
	)

	msg.SetAddressHeader("From", cfg.From, cfg.FromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)

	if htmlTag.MatchString(content) {
		msg.SetBody("text/html", content)
	} else {
		msg.SetBody("text/plain", content)
	}
	return msg
}

type nopService struct{}

// NewNopService is used when mail is disabled.
func NewNopService() Service {
	return nopService{}
}

func (nopService) Send(context.Context, string, string, string) error { return nil }
