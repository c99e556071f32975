package service

import (
	"context"
	"time"

	"dustbinpro/internal/domain"
	"dustbinpro/internal/logging"
	"dustbinpro/internal/models"

	"github.com/rs/zerolog"
)

type NotificationService struct {
	store  domain.NotificationStore
	limit  int
	logger *zerolog.Logger
	now    func() time.Time
}

var _ domain.NotificationService = (*NotificationService)(nil)

func NewNotificationService(store domain.NotificationStore, limit int, logger *zerolog.Logger) *NotificationService {
	if limit <= 0 {
		limit = models.DefaultNotificationsLimit
	}
	return &NotificationService{store: store, limit: limit, logger: logger, now: time.Now}
}

// Recent returns the newest notifications for the customer. When the store
// cannot be read it returns the sample notifications instead.
func (s *NotificationService) Recent(ctx context.Context, customerID string, limit int) []*models.Notification {
	if limit <= 0 {
		limit = s.limit
	}

	list, err := s.store.RecentNotifications(ctx, customerID, limit)
	if err != nil {
		logging.Ctx(ctx, s.logger).Warn().Err(err).Msg("notifications unavailable, serving samples")
		return SampleNotifications(s.now())
	}

	if len(list) > limit {
		list = list[:limit]
	}
	now := s.now()
	for _, n := range list {
		if n.Title == "" {
			n.Title = "Notification"
		}
		if n.Type == "" {
			n.Type = models.NotificationInfo
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
	}
	return list
}

// MarkRead flags a notification as read. Failures are reported in the result.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID string) models.MarkReadResult {
	if notificationID == "" {
		return models.MarkReadResult{Error: "notification id is required"}
	}
	if err := s.store.MarkNotificationRead(ctx, notificationID); err != nil {
		logging.Ctx(ctx, s.logger).Warn().Err(err).Str("notification_id", notificationID).Msg("mark notification read error")
		return models.MarkReadResult{Error: err.Error()}
	}
	return models.MarkReadResult{Success: true}
}

// SampleNotifications is the fixed list shown when the customer's
// notifications cannot be loaded.
func SampleNotifications(now time.Time) []*models.Notification {
	return []*models.Notification{
		{
			Title:     "Welcome to DustbinPro!",
			Message:   "Thank you for choosing our waste management services.",
			Type:      models.NotificationSuccess,
			CreatedAt: now.Add(-time.Hour),
		},
		{
			Title:     "Quick Tip",
			Message:   "Book your cleaning in advance for better slot availability.",
			Type:      models.NotificationInfo,
			CreatedAt: now.Add(-3 * time.Hour),
		},
	}
}
