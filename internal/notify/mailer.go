// Package notify holds the outbound notice senders used by the notice worker.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dustbinpro/internal/config"
	"dustbinpro/internal/events"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

const dateLayout = "Monday, 2 January 2006"

// SMTPMailer sends customer notices through an SMTP relay.
type SMTPMailer struct {
	from   string
	send   func(m ...*gomail.Message) error
	logger *zerolog.Logger
}

func NewSMTPMailer(cfg config.MailConfig, logger *zerolog.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("mail host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("mail sender address is required")
	}
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return newSMTPMailer(cfg.From, dialer.DialAndSend, logger), nil
}

func newSMTPMailer(from string, send func(m ...*gomail.Message) error, logger *zerolog.Logger) *SMTPMailer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &SMTPMailer{from: from, send: send, logger: logger}
}

func (m *SMTPMailer) SendBookingConfirmation(ctx context.Context, b events.BookingEventPayload) error {
	subject, body := confirmationMail(b)
	return m.deliver(ctx, b.CustomerEmail, subject, body)
}

func (m *SMTPMailer) SendCancellationNotice(ctx context.Context, b events.BookingEventPayload) error {
	subject, body := cancellationMail(b)
	return m.deliver(ctx, b.CustomerEmail, subject, body)
}

func (m *SMTPMailer) deliver(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return errors.New("recipient address is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.send(msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	m.logger.Info().Str("to", to).Str("subject", subject).Msg("mail sent")
	return nil
}

func confirmationMail(b events.BookingEventPayload) (string, string) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Hello %s,\n\n", greetingName(b.CustomerName))
	fmt.Fprintf(&sb, "We have received your %s cleaning request for %s.\n", serviceLabel(b.ServiceType), b.Date.UTC().Format(dateLayout))
	fmt.Fprintf(&sb, "Address: %s\n", b.Address)
	if b.PreferredTime != "" {
		fmt.Fprintf(&sb, "Preferred time: %s\n", b.PreferredTime)
	}
	fmt.Fprintf(&sb, "Reference: %s\n\n", b.BookingID)
	sb.WriteString("We will let you know once a crew has been assigned.\n")
	return "Booking received", sb.String()
}

func cancellationMail(b events.BookingEventPayload) (string, string) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Hello %s,\n\n", greetingName(b.CustomerName))
	fmt.Fprintf(&sb, "Your %s cleaning on %s has been cancelled.\n", serviceLabel(b.ServiceType), b.Date.UTC().Format(dateLayout))
	fmt.Fprintf(&sb, "Reference: %s\n\n", b.BookingID)
	sb.WriteString("You can book a new date from your dashboard at any time.\n")
	return "Booking cancelled", sb.String()
}

func greetingName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "there"
	}
	return name
}

func serviceLabel(serviceType string) string {
	if serviceType == "" {
		return "bin"
	}
	return serviceType
}
