package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// StoredDocument is one persisted passage: its text, JSON metadata, and
// embedding vector.
type StoredDocument struct {
	ID        string
	Content   string
	Metadata  string // JSON object stored as text
	Embedding []float32
	CreatedAt time.Time
}
