package models

import "time"

type Payment struct {
	ID            string    `bson:"_id" json:"id"`
	CustomerID    string    `bson:"CustomerId" json:"customer_id"`
	CustomerName  string    `bson:"CustomerName" json:"customer_name"`
	Amount        float64   `bson:"Amount" json:"amount"`
	PaymentMethod string    `bson:"PaymentMethod" json:"payment_method"`
	Reference     string    `bson:"Reference" json:"reference"`
	Description   string    `bson:"Description" json:"description"`
	BookingID     string    `bson:"BookingId,omitempty" json:"booking_id,omitempty"`
	PaymentDate   time.Time `bson:"PaymentDate" json:"payment_date"`
	Status        string    `bson:"Status" json:"status"`
}

// PaymentRequest is a customer's payment submission. BookingID is optional;
// an empty value records a payment that is not tied to a booking.
type PaymentRequest struct {
	CustomerID    string  `validate:"required"`
	BookingID     string
	Amount        float64 `validate:"gt=0"`
	PaymentMethod string  `validate:"required"`
	Reference     string
	Description   string
	ServiceType   string
}
