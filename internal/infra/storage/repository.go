// Package storage provides the persistence layer for the game server.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/MRamiBalles/ReactorIdle/server/internal/events"
)

// StoredEvent is a ledger record as read back from storage. The payload
// stays raw JSON; readers decode only what they need.
type StoredEvent struct {
	ID        string          `json:"id" db:"id"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
	EventType string          `json:"event_type" db:"event_type"`
	Payload   json.RawMessage `json:"payload" db:"payload"`
}

// EventRepository defines the interface for event persistence.
// The bus ledger writes through it; the history endpoint reads from it.
type EventRepository interface {
	// Append adds a record to the immutable ledger.
	Append(ctx context.Context, rec events.Record) error

	// Recent returns the newest limit events, oldest first.
	Recent(ctx context.Context, limit int) ([]StoredEvent, error)

	// Since returns every event at or after t, oldest first.
	Since(ctx context.Context, t time.Time) ([]StoredEvent, error)

	// ByEventType returns the newest limit events of one type, oldest first.
	ByEventType(ctx context.Context, eventType string, limit int) ([]StoredEvent, error)
}

// SaveInfo describes a stored save without its payload.
type SaveInfo struct {
	ID            string    `json:"id" db:"id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	SchemaVersion int       `json:"schema_version" db:"schema_version"`
	Checksum      string    `json:"checksum" db:"checksum"`
	RawSize       int       `json:"raw_size" db:"raw_size"`
}

// ErrChecksumMismatch means a save's payload no longer matches the digest
// recorded when it was written.
var ErrChecksumMismatch = errors.New("save checksum mismatch")
