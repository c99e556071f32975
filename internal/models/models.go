package models

import "time"

// CustomerStats tallies a customer's bookings by status for the dashboard.
type CustomerStats struct {
	TotalBookings   int `json:"total_bookings"`
	ScheduledCount  int `json:"scheduled_count"`
	CompletedCount  int `json:"completed_count"`
	PendingCount    int `json:"pending_count"`
	InProgressCount int `json:"in_progress_count"`
}

// BookingView is the display projection of a booking in the history list.
type BookingView struct {
	BookingID     string    `json:"booking_id"`
	Date          time.Time `json:"date"`
	Address       string    `json:"address"`
	Status        string    `json:"status"`
	FinalPrice    float64   `json:"final_price"`
	ServiceType   string    `json:"service_type"`
	PaymentStatus string    `json:"payment_status"`
}

// PayableBooking is a priced, unpaid booking offered on the payment page.
type PayableBooking struct {
	BookingID   string    `json:"booking_id"`
	ServiceType string    `json:"service_type"`
	Address     string    `json:"address"`
	BookingDate time.Time `json:"booking_date"`
	TimeSlot    string    `json:"time_slot"`
	FinalPrice  float64   `json:"final_price"`
}

// NewBookingView projects a stored booking with display defaults for empty
// fields. now is used when the booking has no date.
func NewBookingView(b *Booking, now time.Time) BookingView {
	v := BookingView{
		BookingID:     b.ID,
		Date:          b.Date,
		Address:       b.Address,
		Status:        b.Status,
		FinalPrice:    b.FinalPrice,
		ServiceType:   b.ServiceType,
		PaymentStatus: b.PaymentStatus,
	}
	if v.Date.IsZero() {
		v.Date = now
	}
	if v.Status == "" {
		v.Status = "Unknown"
	}
	if v.ServiceType == "" {
		v.ServiceType = "Unknown"
	}
	if v.PaymentStatus == "" {
		v.PaymentStatus = PaymentStatusPending
	}
	return v
}

// NewPayableBooking projects a stored booking for the payment page.
func NewPayableBooking(b *Booking, now time.Time) PayableBooking {
	p := PayableBooking{
		BookingID:   b.ID,
		ServiceType: b.ServiceType,
		Address:     b.Address,
		BookingDate: b.Date,
		TimeSlot:    b.PreferredTime,
		FinalPrice:  b.FinalPrice,
	}
	if p.ServiceType == "" {
		p.ServiceType = "Unknown"
	}
	if p.BookingDate.IsZero() {
		p.BookingDate = now
	}
	return p
}
