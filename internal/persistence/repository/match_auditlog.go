package repository

import (
	"context"
	"time"

	"github.com/hilthontt/codeclash/internal/domain"
	"github.com/hilthontt/codeclash/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// auditRetention is how long match audit documents live before the TTL
// index removes them.
const auditRetention = 90 * 24 * time.Hour

type matchAuditLogRepository struct {
	db *mongo.Database
}

func NewMatchAuditLogRepository(db *mongo.Database) domain.MatchAuditRepository {
	return &matchAuditLogRepository{
		db: db,
	}
}

func (r *matchAuditLogRepository) collection() *mongo.Collection {
	return r.db.Collection(db.MatchAuditLogsCollection)
}

func (r *matchAuditLogRepository) Log(ctx context.Context, log *domain.MatchAuditLog) error {
	_, err := r.collection().InsertOne(ctx, log)
	return err
}

func (r *matchAuditLogRepository) GetByRoomID(ctx context.Context, roomID string, limit int) ([]domain.MatchAuditLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	return r.find(ctx, bson.M{"room_id": roomID}, opts)
}

func (r *matchAuditLogRepository) GetByEventType(ctx context.Context, eventType domain.MatchEventType, from time.Time, to time.Time) ([]domain.MatchAuditLog, error) {
	filter := bson.M{
		"event_type": eventType,
		"timestamp": bson.M{
			"$gte": from,
			"$lte": to,
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})

	return r.find(ctx, filter, opts)
}

func (r *matchAuditLogRepository) DeleteOlderThan(ctx context.Context, before time.Time) error {
	filter := bson.M{
		"timestamp": bson.M{
			"$lt": before,
		},
	}

	_, err := r.collection().DeleteMany(ctx, filter)
	return err
}

func (r *matchAuditLogRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "room_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "event_type", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		{
			Keys:    bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(auditRetention / time.Second)),
		},
	}

	_, err := r.collection().Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *matchAuditLogRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.MatchAuditLog, error) {
	cursor, err := r.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	logs := []domain.MatchAuditLog{}
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}

	return logs, nil
}
