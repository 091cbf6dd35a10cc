package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ArchivedMessage is a chat line frozen into a historical record.
type ArchivedMessage struct {
	SenderID   string    `bson:"sender_id" json:"senderId"`
	SenderName string    `bson:"sender_name" json:"senderName"`
	Body       string    `bson:"body" json:"body"`
	SentAt     time.Time `bson:"sent_at" json:"sentAt"`
}

// HistoricalMeeting is an immutable archived meeting. Version strictly
// increases by 1 across successive archived instances of the same room id.
type HistoricalMeeting struct {
	ID           string            `bson:"_id" json:"id"`
	RoomID       string            `bson:"room_id" json:"roomId"`
	Version      int               `bson:"version" json:"version"`
	Creator      string            `bson:"creator" json:"creator"`
	Participants []string          `bson:"participants" json:"participants"`
	Messages     []ArchivedMessage `bson:"messages" json:"messages"`
	Whiteboard   []json.RawMessage `bson:"whiteboard" json:"whiteboard"`
	StartedAt    time.Time         `bson:"started_at" json:"startedAt"`
	EndedAt      time.Time         `bson:"ended_at" json:"endedAt"`
}

type HistoryRepository interface {
	Insert(ctx context.Context, record *HistoricalMeeting) error
	// LatestVersion returns the highest archived version for the room
	// id, or 0 when the id has never been archived. Derived from the
	// durable store, never from memory.
	LatestVersion(ctx context.Context, roomID string) (int, error)
	// GetByIdentity returns records where the requester is the creator
	// or appears in the participant list, newest first.
	GetByIdentity(ctx context.Context, creatorID, username string) ([]HistoricalMeeting, error)
}

func NewHistoricalMeeting(room *Room, version int, participants []string, messages []ArchivedMessage, whiteboard []json.RawMessage) *HistoricalMeeting {
	return &HistoricalMeeting{
		ID:           uuid.NewString(),
		RoomID:       room.RoomID,
		Version:      version,
		Creator:      room.Creator,
		Participants: participants,
		Messages:     messages,
		Whiteboard:   whiteboard,
		StartedAt:    room.CreatedAt,
		EndedAt:      time.Now().UTC(),
	}
}
