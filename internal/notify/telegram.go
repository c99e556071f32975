package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dustbinpro/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// MessageSender is the slice of the Telegram bot API the notifier needs.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts support ticket alerts to the operations chat.
type TelegramNotifier struct {
	api    MessageSender
	chatID int64
	logger *zerolog.Logger
}

func NewTelegramNotifier(token string, chatID int64, logger *zerolog.Logger) (*TelegramNotifier, error) {
	if token == "" || chatID == 0 {
		return nil, errors.New("telegram bot token and ops chat are required")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return NewTelegramNotifierWithSender(api, chatID, logger), nil
}

func NewTelegramNotifierWithSender(api MessageSender, chatID int64, logger *zerolog.Logger) *TelegramNotifier {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &TelegramNotifier{api: api, chatID: chatID, logger: logger}
}

func (n *TelegramNotifier) NotifyTicket(ctx context.Context, t events.TicketEventPayload) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, ticketText(t))
	msg.DisableWebPagePreview = true
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	n.logger.Debug().Str("ticket_id", t.TicketID).Int64("chat_id", n.chatID).Msg("ticket alert sent")
	return nil
}

func ticketText(t events.TicketEventPayload) string {
	var sb strings.Builder
	sb.WriteString("New support ticket\n")
	fmt.Fprintf(&sb, "Subject: %s\n", t.Subject)
	if t.Priority != "" {
		fmt.Fprintf(&sb, "Priority: %s\n", t.Priority)
	}
	fmt.Fprintf(&sb, "Customer: %s\n", t.CustomerID)
	fmt.Fprintf(&sb, "Ticket: %s", t.TicketID)
	return sb.String()
}
