package domain

import (
	"context"
	"errors"
	"time"

	"github.com/confabhq/confab/internal/infrastructure/validate"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomAlreadyExists = errors.New("room already exists")
	ErrInvalidPassword   = errors.New("invalid password")
)

// Room is a live meeting namespace. A room id is only unique among live
// rooms: once an instance is archived and deleted the id may be reused.
type Room struct {
	RoomID       string    `bson:"room_id" json:"roomId"`
	PasswordHash string    `bson:"password_hash,omitempty" json:"-"`
	Creator      string    `bson:"creator" json:"creator"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
}

type RoomRepository interface {
	// Create fails with ErrRoomAlreadyExists when a live room with the
	// same id exists; the store's uniqueness constraint is the final
	// arbiter under concurrent creates.
	Create(ctx context.Context, room *Room) error
	GetByRoomID(ctx context.Context, roomID string) (*Room, error)
	Delete(ctx context.Context, roomID string) error
}

var validateRoomID = validate.Field("room id",
	validate.Required(),
	validate.LengthBetween(4, 12),
	validate.Alphanumeric(),
)

var validatePassword = validate.Field("password",
	validate.LengthBetween(6, 20),
	validate.NoSpaces(),
)

func ValidateRoomID(roomID string) error {
	return validateRoomID(roomID)
}

// NewRoom builds a room with the password, if any, stored only as a
// one-way hash.
func NewRoom(roomID, password, creatorID string) (*Room, error) {
	if err := validateRoomID(roomID); err != nil {
		return nil, err
	}

	room := &Room{
		RoomID:    roomID,
		Creator:   creatorID,
		CreatedAt: time.Now().UTC(),
	}

	if password != "" {
		if err := validatePassword(password); err != nil {
			return nil, err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
		if err != nil {
			return nil, err
		}
		room.PasswordHash = string(hash)
	}

	return room, nil
}

func (r *Room) RequiresPassword() bool {
	return r.PasswordHash != ""
}

// VerifyPassword compares the candidate against the stored hash. bcrypt's
// comparison does not short-circuit on length.
func (r *Room) VerifyPassword(candidate string) error {
	if !r.RequiresPassword() {
		return nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(r.PasswordHash), []byte(candidate)); err != nil {
		return ErrInvalidPassword
	}
	return nil
}
