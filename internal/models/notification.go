package models

import "time"

type Notification struct {
	ID         string    `bson:"_id" json:"id"`
	CustomerID string    `bson:"CustomerId" json:"customer_id"`
	Title      string    `bson:"Title" json:"title"`
	Message    string    `bson:"Message" json:"message"`
	Type       string    `bson:"Type" json:"type"`
	CreatedAt  time.Time `bson:"CreatedAt" json:"created_at"`
	IsRead     bool      `bson:"IsRead" json:"is_read"`
}

// MarkReadResult is the JSON body returned by the mark-read endpoint.
type MarkReadResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
