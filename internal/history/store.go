// Package history persists conversations and their ordered messages.
// SQLite is the default backend; if the database cannot be opened the package
// falls back to in-memory storage.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/comigor/echoal-go/internal/config"
	"github.com/comigor/echoal-go/internal/logger"
)

// MaxTitleLen bounds conversation titles, marker included.
const MaxTitleLen = 50

const titleMarker = "..."

var (
	// ErrNotFound is returned when a conversation id does not resolve.
	ErrNotFound = errors.New("conversation not found")

	// ErrInvariant is returned when a write observes an inconsistent store.
	ErrInvariant = errors.New("conversation store invariant violated")
)

// Store owns conversations and their message sequences.
type Store interface {
	Create(ctx context.Context, seedTitle string) (string, error)
	Get(ctx context.Context, id string) (Conversation, error)
	List(ctx context.Context) ([]Conversation, error)
	Append(ctx context.Context, id string, role Role, content string) (Message, error)
	Messages(ctx context.Context, id string) ([]Message, error)
	SetTitle(ctx context.Context, id, title string) error
	Delete(ctx context.Context, id string) error
	// Rollback removes the trailing message of a conversation, which must be messageID.
	Rollback(ctx context.Context, id, messageID string) error
	Close() error
}

// TruncateTitle bounds s to MaxTitleLen runes, ending truncated titles with "...".
func TruncateTitle(s string) string {
	r := []rune(s)
	if len(r) <= MaxTitleLen {
		return s
	}
	return string(r[:MaxTitleLen-len(titleMarker)]) + titleMarker
}

// Open returns the store selected by cfg. A SQLite store that fails to open
// degrades to memory.
func Open(cfg config.HistoryConfig) (Store, error) {
	switch cfg.Driver {
	case config.HistoryDriverMemory:
		logger.L.Info("using in-memory history")
		return NewMemoryStore(), nil
	case config.HistoryDriverSQLite, "":
		s, err := NewSQLiteStore(cfg.Path)
		if err != nil {
			logger.L.Warn("sqlite open failed; using in-memory history", "error", err, "path", cfg.Path)
			return NewMemoryStore(), nil
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown history driver %q", cfg.Driver)
	}
}

// nextTimestamp keeps per-conversation timestamps non-decreasing.
func nextTimestamp(now, last time.Time) time.Time {
	if now.Before(last) {
		return last
	}
	return now
}
