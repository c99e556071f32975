package notify

import (
	"context"

	"dustbinpro/internal/events"

	"github.com/rs/zerolog"
)

// LogNotifier writes notices to the log instead of delivering them. It
// stands in for mail and ops alerts in development.
type LogNotifier struct {
	logger *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendBookingConfirmation(ctx context.Context, b events.BookingEventPayload) error {
	subject, _ := confirmationMail(b)
	n.logger.Info().Str("to", b.CustomerEmail).Str("booking_id", b.BookingID).Msg(subject)
	return nil
}

func (n *LogNotifier) SendCancellationNotice(ctx context.Context, b events.BookingEventPayload) error {
	subject, _ := cancellationMail(b)
	n.logger.Info().Str("to", b.CustomerEmail).Str("booking_id", b.BookingID).Msg(subject)
	return nil
}

func (n *LogNotifier) NotifyTicket(ctx context.Context, t events.TicketEventPayload) error {
	n.logger.Info().Str("ticket_id", t.TicketID).Str("subject", t.Subject).Msg("support ticket opened")
	return nil
}
