package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// BoardObject is one drawable shape on the shared canvas. The shape payload
// is an opaque blob: only the client-generated object id and the owner
// identity are structurally significant to the engine.
type BoardObject struct {
	ObjectID  string          `bson:"object_id" json:"objectId"`
	RoomID    string          `bson:"room_id" json:"roomId"`
	OwnerID   string          `bson:"owner_id" json:"ownerId"`
	Shape     json.RawMessage `bson:"shape" json:"shape"`
	CreatedAt time.Time       `bson:"created_at" json:"createdAt"`
}

type WhiteboardRepository interface {
	Insert(ctx context.Context, obj *BoardObject) error
	// UpdateOwned overwrites the shape where both object id and owner
	// match. Returns false when nothing matched.
	UpdateOwned(ctx context.Context, roomID, objectID, ownerID string, shape json.RawMessage) (bool, error)
	// RemoveOwned deletes the object where both object id and owner
	// match. Returns false when nothing matched.
	RemoveOwned(ctx context.Context, roomID, objectID, ownerID string) (bool, error)
	// ReplaceOwned atomically swaps one owner's full object set.
	ReplaceOwned(ctx context.Context, roomID, ownerID string, shapes []json.RawMessage) error
	GetByRoomID(ctx context.Context, roomID string) ([]BoardObject, error)
	DeleteByRoomID(ctx context.Context, roomID string) error
}

// shapeIdentity is the only part of a shape payload the server reads.
type shapeIdentity struct {
	ID string `json:"id"`
}

// ShapeObjectID extracts the client-generated object id embedded in an
// opaque shape payload.
func ShapeObjectID(shape json.RawMessage) (string, error) {
	var ident shapeIdentity
	if err := json.Unmarshal(shape, &ident); err != nil {
		return "", err
	}
	return ident.ID, nil
}

func NewBoardObject(roomID, ownerID string, shape json.RawMessage) (*BoardObject, error) {
	objectID, err := ShapeObjectID(shape)
	if err != nil {
		return nil, err
	}
	if objectID == "" {
		return nil, errors.New("shape is missing an id")
	}

	return &BoardObject{
		ObjectID:  objectID,
		RoomID:    roomID,
		OwnerID:   ownerID,
		Shape:     shape,
		CreatedAt: time.Now().UTC(),
	}, nil
}
