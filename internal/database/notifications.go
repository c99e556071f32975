package database

import (
	"context"

	"dustbinpro/internal/domain"
	"dustbinpro/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RecentNotifications returns up to limit notifications, newest first.
func (db *DB) RecentNotifications(ctx context.Context, customerID string, limit int) ([]*models.Notification, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "CreatedAt", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := db.collection(CollectionNotifications).Find(ctx, bson.M{"CustomerId": customerID}, opts)
	if err != nil {
		return nil, domain.NewStoreError("find", CollectionNotifications, err)
	}
	return decodeAll[models.Notification](ctx, cur, db.logger, CollectionNotifications)
}

func (db *DB) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = newID()
	}
	_, err := db.collection(CollectionNotifications).InsertOne(ctx, n)
	return domain.NewStoreError("insert", CollectionNotifications, err)
}

func (db *DB) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := db.collection(CollectionNotifications).UpdateOne(ctx, idFilter(id), bson.M{"$set": bson.M{"IsRead": true}})
	if err != nil {
		return domain.NewStoreError("update", CollectionNotifications, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
