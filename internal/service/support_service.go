package service

import (
	"context"
	"fmt"
	"time"

	"dustbinpro/internal/domain"
	"dustbinpro/internal/events"
	"dustbinpro/internal/logging"
	"dustbinpro/internal/models"

	"github.com/rs/zerolog"
)

type SupportService struct {
	tickets       domain.TicketStore
	notifications domain.NotificationStore
	profiles      domain.ProfileService
	eventBus      domain.EventPublisher
	logger        *zerolog.Logger
	now           func() time.Time
}

var _ domain.SupportService = (*SupportService)(nil)

func NewSupportService(tickets domain.TicketStore, notifications domain.NotificationStore, profiles domain.ProfileService, eventBus domain.EventPublisher, logger *zerolog.Logger) *SupportService {
	return &SupportService{
		tickets:       tickets,
		notifications: notifications,
		profiles:      profiles,
		eventBus:      eventBus,
		logger:        logger,
		now:           time.Now,
	}
}

// Submit opens a ticket and leaves the customer a notification about it.
// The notification is written after the ticket; failing to write it is
// logged and does not fail the submission.
func (s *SupportService) Submit(ctx context.Context, req models.SupportRequest) (*models.SupportTicket, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	ticket := &models.SupportTicket{
		CustomerID:   req.CustomerID,
		CustomerName: s.profiles.DisplayName(ctx, req.CustomerID),
		Subject:      req.Subject,
		Message:      req.Message,
		Priority:     req.Priority,
		Status:       models.TicketStatusOpen,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.tickets.CreateTicket(ctx, ticket); err != nil {
		return nil, err
	}

	notification := &models.Notification{
		CustomerID: req.CustomerID,
		Title:      "Support Ticket Created",
		Message:    fmt.Sprintf("We've received your support request: %s", req.Subject),
		Type:       models.NotificationInfo,
		IsRead:     false,
		CreatedAt:  now,
	}
	log := logging.Ctx(ctx, s.logger)
	if err := s.notifications.CreateNotification(ctx, notification); err != nil {
		log.Error().Err(err).Str("ticket_id", ticket.ID).Msg("ticket notification write error")
	}

	if s.eventBus != nil {
		payload := events.TicketEventPayload{
			TicketID:   ticket.ID,
			CustomerID: ticket.CustomerID,
			Subject:    ticket.Subject,
			Priority:   ticket.Priority,
		}
		if err := s.eventBus.PublishJSON(events.EventSupportTicketOpen, payload); err != nil {
			log.Error().Err(err).Str("ticket_id", ticket.ID).Msg("publish event error")
		}
	}
	return ticket, nil
}
