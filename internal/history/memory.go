package history

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type thread struct {
	conv     Conversation
	messages []Message
}

// MemoryStore keeps conversations in process memory. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string]*thread
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		threads: make(map[string]*thread),
		now:     time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, seedTitle string) (string, error) {
	now := s.now()
	id := uuid.NewString()

	s.mu.Lock()
	s.threads[id] = &thread{conv: Conversation{
		ID:        id,
		Title:     TruncateTitle(seedTitle),
		CreatedAt: now,
		UpdatedAt: now,
	}}
	s.mu.Unlock()
	return id, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.threads[id]
	if !ok {
		return Conversation{}, ErrNotFound
	}
	return t.conv, nil
}

func (s *MemoryStore) List(_ context.Context) ([]Conversation, error) {
	s.mu.RLock()
	out := make([]Conversation, 0, len(s.threads))
	for _, t := range s.threads {
		out = append(out, t.conv)
	}
	s.mu.RUnlock()

	sortByUpdatedDesc(out)
	return out, nil
}

func (s *MemoryStore) Append(_ context.Context, id string, role Role, content string) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.threads[id]
	if !ok {
		return Message{}, ErrNotFound
	}

	ts := s.now()
	if n := len(t.messages); n > 0 {
		ts = nextTimestamp(ts, t.messages[n-1].Timestamp)
	}
	msg := Message{
		ID:             uuid.NewString(),
		ConversationID: id,
		Role:           role,
		Content:        content,
		Timestamp:      ts,
	}
	t.messages = append(t.messages, msg)
	t.conv.MessageCount = len(t.messages)
	t.conv.UpdatedAt = ts
	return msg, nil
}

func (s *MemoryStore) Messages(_ context.Context, id string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.threads[id]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(t.messages), nil
}

func (s *MemoryStore) SetTitle(_ context.Context, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.threads[id]
	if !ok {
		return ErrNotFound
	}
	t.conv.Title = TruncateTitle(title)
	t.conv.UpdatedAt = nextTimestamp(s.now(), t.conv.UpdatedAt)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.threads[id]; !ok {
		return ErrNotFound
	}
	delete(s.threads, id)
	return nil
}

func (s *MemoryStore) Rollback(_ context.Context, id, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.threads[id]
	if !ok {
		return ErrNotFound
	}
	n := len(t.messages)
	if n == 0 || t.messages[n-1].ID != messageID {
		return ErrInvariant
	}
	t.messages = t.messages[:n-1]
	t.conv.MessageCount = len(t.messages)
	t.conv.UpdatedAt = t.conv.CreatedAt
	if n > 1 {
		t.conv.UpdatedAt = t.messages[n-2].Timestamp
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func sortByUpdatedDesc(convs []Conversation) {
	slices.SortStableFunc(convs, func(a, b Conversation) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}
