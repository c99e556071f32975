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

type PaymentService struct {
	bookings domain.BookingStore
	payments domain.PaymentStore
	users    domain.UserStore
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
	now      func() time.Time
}

var _ domain.PaymentService = (*PaymentService)(nil)

func NewPaymentService(bookings domain.BookingStore, payments domain.PaymentStore, users domain.UserStore, eventBus domain.EventPublisher, logger *zerolog.Logger) *PaymentService {
	return &PaymentService{
		bookings: bookings,
		payments: payments,
		users:    users,
		eventBus: eventBus,
		logger:   logger,
		now:      time.Now,
	}
}

// ListPayable returns priced, unpaid bookings that are approved or assigned.
func (s *PaymentService) ListPayable(ctx context.Context, customerID string) ([]models.PayableBooking, error) {
	bookings, err := s.bookings.FindPayableBookings(ctx, customerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]models.PayableBooking, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, models.NewPayableBooking(b, now))
	}
	return out, nil
}

// RecordPayment marks the referenced booking paid, when there is one and it
// belongs to the payer, and stores the payment.
func (s *PaymentService) RecordPayment(ctx context.Context, req models.PaymentRequest) (*models.Payment, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	payment := &models.Payment{
		CustomerID:    req.CustomerID,
		CustomerName:  s.payerName(ctx, req.CustomerID),
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		Reference:     req.Reference,
		Description:   req.Description,
		BookingID:     req.BookingID,
		PaymentDate:   s.now().UTC(),
		Status:        models.PaymentRecordCompleted,
	}
	if payment.Description == "" {
		payment.Description = fmt.Sprintf("Payment for %s cleaning", req.ServiceType)
	}

	if req.BookingID != "" {
		booking, err := s.bookings.GetBooking(ctx, req.BookingID)
		if err != nil {
			return nil, err
		}
		if booking.CustomerID != req.CustomerID {
			return nil, domain.ErrForbidden
		}
		if err := s.bookings.MarkBookingPaid(ctx, req.BookingID); err != nil {
			return nil, err
		}
	}

	if err := s.payments.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, payment)
	return payment, nil
}

// payerName resolves the name stored on the payment. Lookup failures are
// logged and yield "Unknown Customer".
func (s *PaymentService) payerName(ctx context.Context, customerID string) string {
	profile, err := s.users.GetProfile(ctx, customerID)
	if err != nil {
		logging.Ctx(ctx, s.logger).Warn().Err(err).Str("customer_id", customerID).Msg("payer name lookup error")
		return models.UnknownCustomerName
	}
	if name := profile.FullName(); name != "" {
		return name
	}
	if profile.Name != "" {
		return profile.Name
	}
	return models.UnknownCustomerName
}

func (s *PaymentService) publishEvent(ctx context.Context, payment *models.Payment) {
	if s.eventBus == nil {
		return
	}
	payload := events.PaymentEventPayload{
		PaymentID:  payment.ID,
		CustomerID: payment.CustomerID,
		BookingID:  payment.BookingID,
		Amount:     payment.Amount,
		Method:     payment.PaymentMethod,
	}
	if err := s.eventBus.PublishJSON(events.EventPaymentRecorded, payload); err != nil {
		logging.Ctx(ctx, s.logger).Error().Err(err).Str("payment_id", payment.ID).Msg("publish event error")
	}
}
