package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is one registered user. The handle is globally unique and also
// keys the account's private emotion log table.
type Account struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Handle       string    `json:"handle" db:"handle"`
	PasswordHash string    `json:"-" db:"password_hash"`
	AvatarKey    string    `json:"avatar_key" db:"avatar_key"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// LogEntry is one appended classification. Entries are never mutated or
// reordered; the id is assigned by the owning log table and grows
// monotonically.
type LogEntry struct {
	ID    int64     `json:"id" db:"id"`
	Date  time.Time `json:"date" db:"entry_date"`
	Time  string    `json:"time" db:"entry_time"`
	Label string    `json:"label" db:"label"`
}

// SimilarEntry is a log entry ranked by mood-profile similarity.
type SimilarEntry struct {
	LogEntry
	Score float32 `json:"score"`
}
