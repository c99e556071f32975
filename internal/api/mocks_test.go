package api

import (
	"context"
	"time"

	"dustbinpro/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockBookings struct{ mock.Mock }

func (m *mockBookings) CreateBooking(ctx context.Context, req models.BookingRequest) (*models.Booking, error) {
	args := m.Called(ctx, req)
	if b, ok := args.Get(0).(*models.Booking); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookings) HasActiveBooking(ctx context.Context, customerID string, date time.Time) (bool, error) {
	args := m.Called(ctx, customerID, date)
	return args.Bool(0), args.Error(1)
}

func (m *mockBookings) ListBookings(ctx context.Context, customerID string) ([]models.BookingView, error) {
	args := m.Called(ctx, customerID)
	v, _ := args.Get(0).([]models.BookingView)
	return v, args.Error(1)
}

func (m *mockBookings) CancelBooking(ctx context.Context, customerID, bookingID string) error {
	return m.Called(ctx, customerID, bookingID).Error(0)
}

type mockStats struct{ mock.Mock }

func (m *mockStats) ComputeStats(ctx context.Context, customerID string) (models.CustomerStats, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).(models.CustomerStats), args.Error(1)
}

type mockNotifications struct{ mock.Mock }

func (m *mockNotifications) Recent(ctx context.Context, customerID string, limit int) []*models.Notification {
	v, _ := m.Called(ctx, customerID, limit).Get(0).([]*models.Notification)
	return v
}

func (m *mockNotifications) MarkRead(ctx context.Context, notificationID string) models.MarkReadResult {
	return m.Called(ctx, notificationID).Get(0).(models.MarkReadResult)
}

type mockPayments struct{ mock.Mock }

func (m *mockPayments) ListPayable(ctx context.Context, customerID string) ([]models.PayableBooking, error) {
	args := m.Called(ctx, customerID)
	v, _ := args.Get(0).([]models.PayableBooking)
	return v, args.Error(1)
}

func (m *mockPayments) RecordPayment(ctx context.Context, req models.PaymentRequest) (*models.Payment, error) {
	args := m.Called(ctx, req)
	if p, ok := args.Get(0).(*models.Payment); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockProfiles struct{ mock.Mock }

func (m *mockProfiles) Get(ctx context.Context, customerID string) (*models.UserProfile, error) {
	args := m.Called(ctx, customerID)
	if p, ok := args.Get(0).(*models.UserProfile); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProfiles) Update(ctx context.Context, customerID string, update models.ProfileUpdate) error {
	return m.Called(ctx, customerID, update).Error(0)
}

func (m *mockProfiles) DisplayName(ctx context.Context, customerID string) string {
	return m.Called(ctx, customerID).String(0)
}

func (m *mockProfiles) LegacyName(ctx context.Context, customerID string) string {
	return m.Called(ctx, customerID).String(0)
}

type mockSupport struct{ mock.Mock }

func (m *mockSupport) Submit(ctx context.Context, req models.SupportRequest) (*models.SupportTicket, error) {
	args := m.Called(ctx, req)
	if t, ok := args.Get(0).(*models.SupportTicket); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }
