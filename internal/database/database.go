package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dustbinpro/internal/domain"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionBookings       = "bookings"
	CollectionUsers          = "users"
	CollectionNotifications  = "notifications"
	CollectionPayments       = "payments"
	CollectionSupportTickets = "support_tickets"
	CollectionBookingLocks   = "booking_locks"
)

// DB is the MongoDB-backed document store.
type DB struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zerolog.Logger
	now    func() time.Time
}

var _ domain.Store = (*DB)(nil)

// NewDB connects to uri and verifies the connection with a ping.
func NewDB(ctx context.Context, uri, database string, timeout time.Duration, logger *zerolog.Logger) (*DB, error) {
	opts := options.Client().ApplyURI(uri)
	if timeout > 0 {
		opts.SetTimeout(timeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to store: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping store: %w", err)
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	logger.Info().Str("database", database).Msg("document store connected")

	return &DB{client: client, db: client.Database(database), logger: logger, now: time.Now}, nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.client.Ping(ctx, nil)
}

func (db *DB) Close(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}

// EnsureIndexes creates the lookup indexes the portal queries rely on.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		CollectionBookings: {
			{Keys: bson.D{{Key: "CustomerId", Value: 1}, {Key: "BookingDate", Value: 1}}},
			{Keys: bson.D{{Key: "CustomerId", Value: 1}, {Key: "PaymentStatus", Value: 1}, {Key: "Status", Value: 1}}},
		},
		CollectionNotifications: {
			{Keys: bson.D{{Key: "CustomerId", Value: 1}, {Key: "CreatedAt", Value: -1}}},
		},
		CollectionPayments: {
			{Keys: bson.D{{Key: "CustomerId", Value: 1}, {Key: "PaymentDate", Value: -1}}},
		},
		CollectionSupportTickets: {
			{Keys: bson.D{{Key: "CustomerId", Value: 1}, {Key: "CreatedAt", Value: -1}}},
		},
	}

	for coll, models := range indexes {
		names, err := db.db.Collection(coll).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
		db.logger.Info().Str("collection", coll).Strs("indexes", names).Msg("indexes ensured")
	}
	return nil
}

func (db *DB) collection(name string) *mongo.Collection {
	return db.db.Collection(name)
}

// newID returns a fresh document identifier.
func newID() string {
	return primitive.NewObjectID().Hex()
}

// idFilter matches documents written with either string or ObjectID keys.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{id, oid}}}
	}
	return bson.M{"_id": id}
}

func notFoundOr(op, collection string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	return domain.NewStoreError(op, collection, err)
}

// decodeAll decodes every document in cur, skipping documents that are not
// even valid BSON. Fields a type coerced on decode are logged with the
// document id.
func decodeAll[T any](ctx context.Context, cur *mongo.Cursor, logger *zerolog.Logger, collection string) ([]*T, error) {
	defer cur.Close(ctx)

	var out []*T
	for cur.Next(ctx) {
		var doc T
		if err := cur.Decode(&doc); err != nil {
			logger.Warn().Err(err).
				Str("collection", collection).
				Str("doc_id", fmt.Sprint(cur.Current.Lookup("_id"))).
				Msg("skip malformed document")
			continue
		}
		logCoerced(logger, collection, &doc)
		out = append(out, &doc)
	}
	if err := cur.Err(); err != nil {
		return nil, domain.NewStoreError("iterate", collection, err)
	}
	return out, nil
}

type coercible interface {
	CoercedFields() []string
}

func logCoerced(logger *zerolog.Logger, collection string, doc any) {
	c, ok := doc.(coercible)
	if !ok || len(c.CoercedFields()) == 0 {
		return
	}
	logger.Warn().
		Str("collection", collection).
		Strs("fields", c.CoercedFields()).
		Msg("defaulted fields with unexpected types")
}
