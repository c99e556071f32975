package models

import (
	"strings"
	"time"
)

// Booking is a cleaning-service booking document in the bookings collection.
// Field keys match the documents written by the portal since its first release.
type Booking struct {
	ID             string    `bson:"_id" json:"id"`
	CustomerID     string    `bson:"CustomerId" json:"customer_id"`
	CustomerName   string    `bson:"CustomerName" json:"customer_name"`
	CustomerEmail  string    `bson:"CustomerEmail,omitempty" json:"customer_email,omitempty"`
	Address        string    `bson:"BookingAddress" json:"address"`
	Date           time.Time `bson:"BookingDate" json:"date"`
	PreferredTime  string    `bson:"PreferredTime" json:"preferred_time"`
	Status         string    `bson:"Status" json:"status"` // pending, approved, assigned, in progress, completed, cancelled
	ServiceType    string    `bson:"ServiceType" json:"service_type"`
	EstimatedPrice float64   `bson:"EstimatedPrice" json:"estimated_price"`
	FinalPrice     float64   `bson:"FinalPrice" json:"final_price"`
	IsPriceSet     bool      `bson:"IsPriceSet" json:"is_price_set"`
	PaymentStatus  string    `bson:"PaymentStatus" json:"payment_status"`
	BinSize        string    `bson:"BinSize,omitempty" json:"bin_size,omitempty"`
	CarpetSize     string    `bson:"CarpetSize,omitempty" json:"carpet_size,omitempty"`
	SpecialRequest string    `bson:"SpecialRequest,omitempty" json:"special_request,omitempty"`
	CreatedAt      time.Time `bson:"CreatedAt" json:"created_at"`
	UpdatedAt      time.Time `bson:"UpdatedAt" json:"updated_at"`

	coerced []string
}

// BookingOptions carries the optional, service-specific booking fields.
type BookingOptions struct {
	BinSize        string
	CarpetSize     string
	SpecialRequest string
}

// BookingRequest is a customer's booking submission.
type BookingRequest struct {
	CustomerID     string    `validate:"required"`
	CustomerName   string    `validate:"required"`
	CustomerEmail  string    `validate:"omitempty,email"`
	Date           time.Time `validate:"required"`
	PreferredTime  string    `validate:"required"`
	Address        string    `validate:"required"`
	ServiceType    string    `validate:"required"`
	EstimatedPrice float64   `validate:"gte=0"`
	Options        BookingOptions
}

// NormalizeStatus folds a stored status for comparison.
func NormalizeStatus(status string) string {
	return strings.ToLower(status)
}

// IsActiveStatus reports whether a booking in this status blocks another
// booking for the same customer and date.
func IsActiveStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusApproved, StatusPending, StatusAssigned:
		return true
	default:
		return false
	}
}

// BookingDay truncates a submitted date to the UTC calendar day that is
// stored in BookingDate.
func BookingDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
