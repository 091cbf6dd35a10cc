package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/confabhq/confab/internal/domain"
	"github.com/confabhq/confab/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type whiteboardRepository struct {
	db *mongo.Database
}

func NewWhiteboardRepository(database *mongo.Database) domain.WhiteboardRepository {
	return &whiteboardRepository{
		db: database,
	}
}

func (r *whiteboardRepository) Insert(ctx context.Context, obj *domain.BoardObject) error {
	collection := r.db.Collection(db.WhiteboardCollection)

	_, err := collection.InsertOne(ctx, obj)
	return err
}

func (r *whiteboardRepository) UpdateOwned(ctx context.Context, roomID, objectID, ownerID string, shape json.RawMessage) (bool, error) {
	collection := r.db.Collection(db.WhiteboardCollection)

	filter := bson.M{
		"room_id":   roomID,
		"object_id": objectID,
		"owner_id":  ownerID,
	}

	res, err := collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"shape": shape}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *whiteboardRepository) RemoveOwned(ctx context.Context, roomID, objectID, ownerID string) (bool, error) {
	collection := r.db.Collection(db.WhiteboardCollection)

	filter := bson.M{
		"room_id":   roomID,
		"object_id": objectID,
		"owner_id":  ownerID,
	}

	res, err := collection.DeleteOne(ctx, filter)
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *whiteboardRepository) ReplaceOwned(ctx context.Context, roomID, ownerID string, shapes []json.RawMessage) error {
	collection := r.db.Collection(db.WhiteboardCollection)

	if _, err := collection.DeleteMany(ctx, bson.M{"room_id": roomID, "owner_id": ownerID}); err != nil {
		return err
	}

	if len(shapes) == 0 {
		return nil
	}

	docs := make([]any, 0, len(shapes))
	for _, shape := range shapes {
		objectID, err := domain.ShapeObjectID(shape)
		if err != nil {
			return err
		}
		docs = append(docs, &domain.BoardObject{
			ObjectID:  objectID,
			RoomID:    roomID,
			OwnerID:   ownerID,
			Shape:     shape,
			CreatedAt: time.Now().UTC(),
		})
	}

	_, err := collection.InsertMany(ctx, docs)
	return err
}

func (r *whiteboardRepository) GetByRoomID(ctx context.Context, roomID string) ([]domain.BoardObject, error) {
	collection := r.db.Collection(db.WhiteboardCollection)

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := collection.Find(ctx, bson.M{"room_id": roomID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var objects []domain.BoardObject
	if err := cursor.All(ctx, &objects); err != nil {
		return nil, err
	}

	return objects, nil
}

func (r *whiteboardRepository) DeleteByRoomID(ctx context.Context, roomID string) error {
	collection := r.db.Collection(db.WhiteboardCollection)

	_, err := collection.DeleteMany(ctx, bson.M{"room_id": roomID})
	return err
}
