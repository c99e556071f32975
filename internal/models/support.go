package models

import "time"

type SupportTicket struct {
	ID           string    `bson:"_id" json:"id"`
	CustomerID   string    `bson:"CustomerId" json:"customer_id"`
	CustomerName string    `bson:"CustomerName" json:"customer_name"`
	Subject      string    `bson:"Subject" json:"subject"`
	Message      string    `bson:"Message" json:"message"`
	Priority     string    `bson:"Priority" json:"priority"`
	Status       string    `bson:"Status" json:"status"`
	CreatedAt    time.Time `bson:"CreatedAt" json:"created_at"`
	UpdatedAt    time.Time `bson:"UpdatedAt" json:"updated_at"`
}

type SupportRequest struct {
	CustomerID string `validate:"required"`
	Subject    string `validate:"required"`
	Message    string `validate:"required"`
	Priority   string `validate:"required"`
}
