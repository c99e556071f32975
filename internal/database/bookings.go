package database

import (
	"context"
	"time"

	"dustbinpro/internal/domain"
	"dustbinpro/internal/models"

	"go.mongodb.org/mongo-driver/bson"
)

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = newID()
	}
	_, err := db.collection(CollectionBookings).InsertOne(ctx, booking)
	return domain.NewStoreError("insert", CollectionBookings, err)
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	err := db.collection(CollectionBookings).FindOne(ctx, idFilter(id)).Decode(&booking)
	if err != nil {
		return nil, notFoundOr("get", CollectionBookings, err)
	}
	logCoerced(db.logger, CollectionBookings, &booking)
	return &booking, nil
}

func (db *DB) FindBookingsByCustomer(ctx context.Context, customerID string) ([]*models.Booking, error) {
	return db.findBookings(ctx, bson.M{"CustomerId": customerID})
}

// FindBookingsByCustomerAndDate matches the stored BookingDate exactly, as a
// datetime or as a YYYY-MM-DD string written by the back office.
func (db *DB) FindBookingsByCustomerAndDate(ctx context.Context, customerID string, date time.Time) ([]*models.Booking, error) {
	date = date.UTC()
	return db.findBookings(ctx, bson.M{
		"CustomerId":  customerID,
		"BookingDate": bson.M{"$in": bson.A{date, date.Format(models.DateLayout)}},
	})
}

func (db *DB) FindPayableBookings(ctx context.Context, customerID string) ([]*models.Booking, error) {
	return db.findBookings(ctx, bson.M{
		"CustomerId":    customerID,
		"IsPriceSet":    true,
		"PaymentStatus": models.PaymentStatusPending,
		"Status":        bson.M{"$in": bson.A{models.StatusApproved, models.StatusAssigned}},
	})
}

func (db *DB) findBookings(ctx context.Context, filter bson.M) ([]*models.Booking, error) {
	cur, err := db.collection(CollectionBookings).Find(ctx, filter)
	if err != nil {
		return nil, domain.NewStoreError("find", CollectionBookings, err)
	}
	return decodeAll[models.Booking](ctx, cur, db.logger, CollectionBookings)
}

func (db *DB) UpdateBookingStatus(ctx context.Context, id, status string) error {
	return db.updateBooking(ctx, id, bson.M{"Status": status, "UpdatedAt": db.now().UTC()})
}

func (db *DB) MarkBookingPaid(ctx context.Context, id string) error {
	return db.updateBooking(ctx, id, bson.M{"PaymentStatus": models.PaymentStatusPaid, "UpdatedAt": db.now().UTC()})
}

func (db *DB) updateBooking(ctx context.Context, id string, set bson.M) error {
	res, err := db.collection(CollectionBookings).UpdateOne(ctx, idFilter(id), bson.M{"$set": set})
	if err != nil {
		return domain.NewStoreError("update", CollectionBookings, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
