package service

import (
	"context"
	"errors"
	"time"

	"dustbinpro/internal/domain"
	"dustbinpro/internal/events"
	"dustbinpro/internal/logging"
	"dustbinpro/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type BookingService struct {
	store    domain.BookingStore
	locker   domain.BookingLocker
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
	now      func() time.Time
}

var _ domain.BookingService = (*BookingService)(nil)

// NewBookingService builds the booking manager. A nil locker keeps the plain
// query-then-insert conflict check; a non-nil one also claims the day with a
// conditional write before inserting.
func NewBookingService(store domain.BookingStore, locker domain.BookingLocker, eventBus domain.EventPublisher, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		store:    store,
		locker:   locker,
		eventBus: eventBus,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *BookingService) CreateBooking(ctx context.Context, req models.BookingRequest) (*models.Booking, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	day := models.BookingDay(req.Date)
	active, err := s.HasActiveBooking(ctx, req.CustomerID, day)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, domain.ErrConflict
	}

	now := s.now().UTC()
	booking := &models.Booking{
		ID:             uuid.NewString(),
		CustomerID:     req.CustomerID,
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		Address:        req.Address,
		Date:           day,
		PreferredTime:  req.PreferredTime,
		Status:         models.StatusPending,
		ServiceType:    req.ServiceType,
		EstimatedPrice: req.EstimatedPrice,
		FinalPrice:     0,
		IsPriceSet:     false,
		PaymentStatus:  models.PaymentStatusPending,
		BinSize:        req.Options.BinSize,
		CarpetSize:     req.Options.CarpetSize,
		SpecialRequest: req.Options.SpecialRequest,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if s.locker != nil {
		if err := s.locker.AcquireBookingLock(ctx, booking.CustomerID, day, booking.ID); err != nil {
			return nil, err
		}
	}

	if err := s.store.CreateBooking(ctx, booking); err != nil {
		s.releaseLock(ctx, booking)
		return nil, err
	}

	s.publishEvent(ctx, events.EventBookingCreated, booking)
	return booking, nil
}

// HasActiveBooking reports whether the customer holds a pending, approved or
// assigned booking on the given day.
func (s *BookingService) HasActiveBooking(ctx context.Context, customerID string, date time.Time) (bool, error) {
	bookings, err := s.store.FindBookingsByCustomerAndDate(ctx, customerID, models.BookingDay(date))
	if err != nil {
		return false, err
	}
	for _, b := range bookings {
		if models.IsActiveStatus(b.Status) {
			return true, nil
		}
	}
	return false, nil
}

func (s *BookingService) ListBookings(ctx context.Context, customerID string) ([]models.BookingView, error) {
	bookings, err := s.store.FindBookingsByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]models.BookingView, 0, len(bookings))
	for _, b := range bookings {
		views = append(views, models.NewBookingView(b, now))
	}
	return views, nil
}

// CancelBooking sets a customer's own booking to cancelled. Cancelling an
// already cancelled booking succeeds.
func (s *BookingService) CancelBooking(ctx context.Context, customerID, bookingID string) error {
	if bookingID == "" {
		return &domain.ValidationError{Field: "bookingId", Message: "Invalid booking ID."}
	}

	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.CustomerID != customerID {
		return domain.ErrForbidden
	}

	if err := s.store.UpdateBookingStatus(ctx, bookingID, models.StatusCancelled); err != nil {
		return err
	}
	booking.Status = models.StatusCancelled
	booking.UpdatedAt = s.now().UTC()

	s.releaseLock(ctx, booking)
	s.publishEvent(ctx, events.EventBookingCancelled, booking)
	return nil
}

func (s *BookingService) releaseLock(ctx context.Context, booking *models.Booking) {
	if s.locker == nil {
		return
	}
	err := s.locker.ReleaseBookingLock(ctx, booking.CustomerID, models.BookingDay(booking.Date), booking.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		logging.Ctx(ctx, s.logger).Error().Err(err).Str("booking_id", booking.ID).Msg("release booking lock error")
	}
}

func (s *BookingService) publishEvent(ctx context.Context, eventType string, booking *models.Booking) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:     booking.ID,
		CustomerID:    booking.CustomerID,
		CustomerName:  booking.CustomerName,
		CustomerEmail: booking.CustomerEmail,
		Address:       booking.Address,
		Date:          booking.Date,
		PreferredTime: booking.PreferredTime,
		ServiceType:   booking.ServiceType,
		Status:        booking.Status,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		logging.Ctx(ctx, s.logger).Error().Err(err).Str("event_type", eventType).Str("booking_id", booking.ID).Msg("publish event error")
	}
}
