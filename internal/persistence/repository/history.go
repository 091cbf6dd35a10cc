package repository

import (
	"context"
	"errors"

	"github.com/confabhq/confab/internal/domain"
	"github.com/confabhq/confab/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type historyRepository struct {
	db *mongo.Database
}

func NewHistoryRepository(database *mongo.Database) domain.HistoryRepository {
	return &historyRepository{
		db: database,
	}
}

func (r *historyRepository) Insert(ctx context.Context, record *domain.HistoricalMeeting) error {
	collection := r.db.Collection(db.HistoryCollection)

	_, err := collection.InsertOne(ctx, record)
	return err
}

func (r *historyRepository) LatestVersion(ctx context.Context, roomID string) (int, error) {
	collection := r.db.Collection(db.HistoryCollection)

	opts := options.FindOne().
		SetSort(bson.D{{Key: "version", Value: -1}}).
		SetProjection(bson.M{"version": 1})

	var record struct {
		Version int `bson:"version"`
	}

	err := collection.FindOne(ctx, bson.M{"room_id": roomID}, opts).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return record.Version, nil
}

func (r *historyRepository) GetByIdentity(ctx context.Context, creatorID, username string) ([]domain.HistoricalMeeting, error) {
	collection := r.db.Collection(db.HistoryCollection)

	filter := bson.M{
		"$or": bson.A{
			bson.M{"creator": creatorID},
			bson.M{"participants": username},
		},
	}

	opts := options.Find().SetSort(bson.D{{Key: "ended_at", Value: -1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []domain.HistoricalMeeting
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}

	return records, nil
}
