package repository

import (
	"context"

	"github.com/confabhq/confab/internal/domain"
	"github.com/confabhq/confab/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type messageRepository struct {
	db *mongo.Database
}

func NewMessageRepository(database *mongo.Database) domain.MessageRepository {
	return &messageRepository{
		db: database,
	}
}

func (r *messageRepository) Insert(ctx context.Context, msg *domain.ChatMessage) error {
	collection := r.db.Collection(db.MessagesCollection)

	_, err := collection.InsertOne(ctx, msg)
	return err
}

func (r *messageRepository) GetByRoomID(ctx context.Context, roomID string) ([]domain.ChatMessage, error) {
	collection := r.db.Collection(db.MessagesCollection)

	opts := options.Find().SetSort(bson.D{{Key: "sent_at", Value: 1}})

	cursor, err := collection.Find(ctx, bson.M{"room_id": roomID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []domain.ChatMessage
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *messageRepository) DeleteByRoomID(ctx context.Context, roomID string) error {
	collection := r.db.Collection(db.MessagesCollection)

	_, err := collection.DeleteMany(ctx, bson.M{"room_id": roomID})
	return err
}
