package domain

import (
	"context"
	"errors"
)

var ErrUserNotFound = errors.New("user not found")

// User is an identity issued by the external auth service. This core only
// resolves ids to display names; it never writes the users collection.
type User struct {
	ID       string `bson:"_id" json:"id"`
	Username string `bson:"username" json:"username"`
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
}
