package domain

import (
	"context"
	"time"

	"dustbinpro/internal/models"
)

type BookingStore interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	FindBookingsByCustomer(ctx context.Context, customerID string) ([]*models.Booking, error)
	FindBookingsByCustomerAndDate(ctx context.Context, customerID string, date time.Time) ([]*models.Booking, error)
	FindPayableBookings(ctx context.Context, customerID string) ([]*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id, status string) error
	MarkBookingPaid(ctx context.Context, id string) error
}

// BookingLocker guards the one-active-booking-per-day rule with a conditional
// write. AcquireBookingLock returns ErrConflict when the day is already held.
// ReleaseBookingLock only removes a lock held by bookingID.
type BookingLocker interface {
	AcquireBookingLock(ctx context.Context, customerID string, date time.Time, bookingID string) error
	ReleaseBookingLock(ctx context.Context, customerID string, date time.Time, bookingID string) error
}

type UserStore interface {
	GetProfile(ctx context.Context, uid string) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, uid string, update models.ProfileUpdate) error
}

type NotificationStore interface {
	RecentNotifications(ctx context.Context, customerID string, limit int) ([]*models.Notification, error)
	CreateNotification(ctx context.Context, n *models.Notification) error
	MarkNotificationRead(ctx context.Context, id string) error
}

type PaymentStore interface {
	CreatePayment(ctx context.Context, payment *models.Payment) error
}

type TicketStore interface {
	CreateTicket(ctx context.Context, ticket *models.SupportTicket) error
}

// Store is the full document store used by the portal.
type Store interface {
	BookingStore
	BookingLocker
	UserStore
	NotificationStore
	PaymentStore
	TicketStore
	Ping(ctx context.Context) error
}

type SessionStore interface {
	GetSession(ctx context.Context, id string) (*models.Session, error)
	SetSession(ctx context.Context, session *models.Session) error
	DeleteSession(ctx context.Context, id string) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// TaskQueue accepts best-effort side effects for background delivery.
type TaskQueue interface {
	EnqueueTask(ctx context.Context, taskType, reference string, payload interface{}) error
}

type BookingService interface {
	CreateBooking(ctx context.Context, req models.BookingRequest) (*models.Booking, error)
	HasActiveBooking(ctx context.Context, customerID string, date time.Time) (bool, error)
	ListBookings(ctx context.Context, customerID string) ([]models.BookingView, error)
	CancelBooking(ctx context.Context, customerID, bookingID string) error
}

type StatsService interface {
	ComputeStats(ctx context.Context, customerID string) (models.CustomerStats, error)
}

type NotificationService interface {
	Recent(ctx context.Context, customerID string, limit int) []*models.Notification
	MarkRead(ctx context.Context, notificationID string) models.MarkReadResult
}

type PaymentService interface {
	ListPayable(ctx context.Context, customerID string) ([]models.PayableBooking, error)
	RecordPayment(ctx context.Context, req models.PaymentRequest) (*models.Payment, error)
}

type ProfileService interface {
	Get(ctx context.Context, customerID string) (*models.UserProfile, error)
	Update(ctx context.Context, customerID string, update models.ProfileUpdate) error
	DisplayName(ctx context.Context, customerID string) string
	LegacyName(ctx context.Context, customerID string) string
}

type SupportService interface {
	Submit(ctx context.Context, req models.SupportRequest) (*models.SupportTicket, error)
}
