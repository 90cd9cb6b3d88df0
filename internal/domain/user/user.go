package user

import (
	"errors"
	"time"
)

var (
	ErrDuplicateEmail = errors.New("user with this email already exists")
	ErrEmptyPassword  = errors.New("password must not be empty")
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	CreatedAt    time.Time `json:"createdAt"`
}

// Identity is the public view of a user returned to clients.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (u User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email}
}
