package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ChatMessage is a persisted chat line. Immutable once created; purged at
// archival after being copied into the historical record.
type ChatMessage struct {
	ID         string    `bson:"_id" json:"id"`
	RoomID     string    `bson:"room_id" json:"roomId"`
	SenderID   string    `bson:"sender_id" json:"senderId"`
	SenderName string    `bson:"sender_name" json:"senderName"`
	Body       string    `bson:"body" json:"body"`
	SentAt     time.Time `bson:"sent_at" json:"sentAt"`
}

type MessageRepository interface {
	Insert(ctx context.Context, msg *ChatMessage) error
	// GetByRoomID returns the room's messages in persisted order.
	GetByRoomID(ctx context.Context, roomID string) ([]ChatMessage, error)
	DeleteByRoomID(ctx context.Context, roomID string) error
}

func NewChatMessage(roomID, senderID, senderName, body string) *ChatMessage {
	return &ChatMessage{
		ID:         uuid.NewString(),
		RoomID:     roomID,
		SenderID:   senderID,
		SenderName: senderName,
		Body:       body,
		SentAt:     time.Now().UTC(),
	}
}
