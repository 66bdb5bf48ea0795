package domain

import (
	"strings"
	"time"
)

// User is the credential record owned by the credential store.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity returns the minimal claims embedded into tokens for this user.
func (u *User) Identity() UserIdentity {
	return UserIdentity{ID: u.ID, Username: u.Username}
}

// UserIdentity is the payload carried (encrypted) inside every token and
// handed to downstream handlers once a request is authenticated.
type UserIdentity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Valid reports whether the identity is well-formed.
func (i UserIdentity) Valid() bool {
	return i.ID > 0 && strings.TrimSpace(i.Username) != ""
}

// TokenPair is issued on a successful login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
