package database

import (
	"context"
	"errors"
	"time"

	"dustbinpro/internal/domain"
	"dustbinpro/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// bookingLock holds a customer's booking day. The unique _id turns the
// insert into a conditional write.
type bookingLock struct {
	ID         string    `bson:"_id"`
	CustomerID string    `bson:"CustomerId"`
	Date       time.Time `bson:"BookingDate"`
	BookingID  string    `bson:"BookingId"`
	CreatedAt  time.Time `bson:"CreatedAt"`
}

func lockKey(customerID string, date time.Time) string {
	return customerID + ":" + date.UTC().Format(models.DateLayout)
}

// AcquireBookingLock claims the (customer, day) slot for bookingID. A lock
// whose booking is no longer active is taken over with a compare-and-swap on
// the previous holder.
func (db *DB) AcquireBookingLock(ctx context.Context, customerID string, date time.Time, bookingID string) error {
	coll := db.collection(CollectionBookingLocks)
	lock := bookingLock{
		ID:         lockKey(customerID, date),
		CustomerID: customerID,
		Date:       date.UTC(),
		BookingID:  bookingID,
		CreatedAt:  db.now().UTC(),
	}

	_, err := coll.InsertOne(ctx, lock)
	if err == nil {
		return nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return domain.NewStoreError("insert", CollectionBookingLocks, err)
	}

	var held bookingLock
	if err := coll.FindOne(ctx, bson.M{"_id": lock.ID}).Decode(&held); err != nil {
		return notFoundOr("get", CollectionBookingLocks, err)
	}

	holder, err := db.GetBooking(ctx, held.BookingID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return err
	case models.IsActiveStatus(holder.Status):
		return domain.ErrConflict
	}

	res, err := coll.ReplaceOne(ctx, bson.M{"_id": lock.ID, "BookingId": held.BookingID}, lock)
	if err != nil {
		return domain.NewStoreError("replace", CollectionBookingLocks, err)
	}
	if res.ModifiedCount == 0 {
		return domain.ErrConflict
	}
	db.logger.Info().Str("lock", lock.ID).Str("stale_booking", held.BookingID).Msg("took over stale booking lock")
	return nil
}

func (db *DB) ReleaseBookingLock(ctx context.Context, customerID string, date time.Time, bookingID string) error {
	_, err := db.collection(CollectionBookingLocks).DeleteOne(ctx, bson.M{
		"_id":       lockKey(customerID, date),
		"BookingId": bookingID,
	})
	return domain.NewStoreError("delete", CollectionBookingLocks, err)
}
