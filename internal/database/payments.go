package database

import (
	"context"

	"dustbinpro/internal/domain"
	"dustbinpro/internal/models"
)

func (db *DB) CreatePayment(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = newID()
	}
	_, err := db.collection(CollectionPayments).InsertOne(ctx, payment)
	return domain.NewStoreError("insert", CollectionPayments, err)
}

func (db *DB) CreateTicket(ctx context.Context, ticket *models.SupportTicket) error {
	if ticket.ID == "" {
		ticket.ID = newID()
	}
	_, err := db.collection(CollectionSupportTickets).InsertOne(ctx, ticket)
	return domain.NewStoreError("insert", CollectionSupportTickets, err)
}
