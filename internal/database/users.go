package database

import (
	"context"

	"dustbinpro/internal/domain"
	"dustbinpro/internal/models"

	"go.mongodb.org/mongo-driver/bson"
)

func (db *DB) GetProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := db.collection(CollectionUsers).FindOne(ctx, bson.M{"_id": uid}).Decode(&profile); err != nil {
		return nil, notFoundOr("get", CollectionUsers, err)
	}
	return &profile, nil
}

// UpdateProfile writes the editable profile fields of an existing user.
func (db *DB) UpdateProfile(ctx context.Context, uid string, update models.ProfileUpdate) error {
	res, err := db.collection(CollectionUsers).UpdateOne(ctx, bson.M{"_id": uid}, bson.M{"$set": bson.M{
		"firstName": update.FirstName,
		"lastName":  update.LastName,
		"phone":     update.Phone,
		"address":   update.Address,
		"updatedAt": db.now().UTC(),
	}})
	if err != nil {
		return domain.NewStoreError("update", CollectionUsers, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
