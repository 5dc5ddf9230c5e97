// Package mailer delivers certificate emails with PDF attachments over SMTP.
package mailer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"

	"github.com/sepiri/certhub-api/pkg/config"
	"github.com/sepiri/certhub-api/pkg/limiter"
)

// Message describes a single outbound email.
type Message struct {
	To             string
	Subject        string
	HTMLBody       string
	AttachmentPath string
	AttachmentName string
}

// Mailer sends messages through a configured SMTP relay. The dialer is built
// once at startup so a missing configuration fails fast instead of surfacing
// on the first send.
type Mailer struct {
	dialer  *gomail.Dialer
	from    string
	slots   *limiter.Limiter
	logger  *zap.Logger
	timeout time.Duration
}

// New constructs a Mailer from SMTP configuration.
func New(cfg config.SMTPConfig, slots *limiter.Limiter, logger *zap.Logger) (*Mailer, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("smtp configuration incomplete")
	}
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.SSL = cfg.Secure

	from := cfg.From
	if from == "" {
		from = cfg.Username
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Mailer{
		dialer:  dialer,
		from:    from,
		slots:   slots,
		logger:  logger,
		timeout: timeout,
	}, nil
}

// Send delivers a single message, honouring context cancellation.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if err := m.slots.Acquire(ctx); err != nil {
		return fmt.Errorf("acquire smtp slot: %w", err)
	}

	email := gomail.NewMessage()
	email.SetHeader("From", m.from)
	email.SetHeader("To", msg.To)
	email.SetHeader("Subject", msg.Subject)
	email.SetBody("text/html", msg.HTMLBody)
	if msg.AttachmentPath != "" {
		if msg.AttachmentName != "" {
			email.Attach(msg.AttachmentPath, gomail.Rename(msg.AttachmentName))
		} else {
			email.Attach(msg.AttachmentPath)
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	// The slot is released by the goroutine, not the caller: on timeout the
	// abandoned transport may still hold an SMTP connection, and it must keep
	// counting against MaxConcurrent until it actually returns.
	done := make(chan error, 1)
	go func() {
		defer m.slots.Release()
		done <- m.dialer.DialAndSend(email)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send email: %w", err)
		}
		m.logger.Debug("email_sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
		return nil
	case <-sendCtx.Done():
		return fmt.Errorf("send email: %w", sendCtx.Err())
	}
}

// Verify opens and closes an SMTP connection to prove the relay is reachable
// with the configured credentials.
func (m *Mailer) Verify(ctx context.Context) error {
	verifyCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		closer, err := m.dialer.Dial()
		if err != nil {
			done <- err
			return
		}
		done <- closer.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("verify smtp: %w", err)
		}
		return nil
	case <-verifyCtx.Done():
		return fmt.Errorf("verify smtp: %w", verifyCtx.Err())
	}
}
