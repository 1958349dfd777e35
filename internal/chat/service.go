// Package chat composes the conversation store and a response generator into
// the submit-a-message workflow.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/comigor/echoal-go/internal/agent"
	"github.com/comigor/echoal-go/internal/history"
	"github.com/comigor/echoal-go/internal/logger"
)

var (
	// ErrEmptyContent rejects a submission whose content is blank.
	ErrEmptyContent = errors.New("message content must not be empty")

	// ErrEmptyTitle rejects a blank conversation title.
	ErrEmptyTitle = errors.New("title must not be empty")
)

// Reply is the result of one submission.
type Reply struct {
	ConversationID string          `json:"conversationId"`
	Message        history.Message `json:"message"`
}

// Service serializes work per conversation and runs the exchange.
type Service struct {
	store history.Store
	gen   agent.Generator
	locks *keyedLocks
}

// New creates a chat service.
func New(store history.Store, gen agent.Generator) *Service {
	return &Service{store: store, gen: gen, locks: newKeyedLocks()}
}

// Submit appends content as a user message to conversationID, creating a new
// conversation when the id is empty or unknown, generates a reply and appends
// it. Either both messages are stored or neither is.
func (s *Service) Submit(ctx context.Context, conversationID, content string) (Reply, error) {
	if strings.TrimSpace(content) == "" {
		return Reply{}, ErrEmptyContent
	}

	id, created, unlock, err := s.resolve(ctx, conversationID, content)
	if err != nil {
		return Reply{}, err
	}
	defer unlock()

	// undo leaves the store as it was before this submission.
	undo := func(userMsgID string) {
		wctx := context.WithoutCancel(ctx)
		var uerr error
		switch {
		case created:
			uerr = s.store.Delete(wctx, id)
		case userMsgID != "":
			uerr = s.store.Rollback(wctx, id, userMsgID)
		}
		if uerr != nil {
			logger.L.Error("failed to undo partial submission", "conversation_id", id, "error", uerr)
		}
	}

	prior, err := s.store.Messages(ctx, id)
	if err != nil {
		undo("")
		return Reply{}, fmt.Errorf("loading history: %w", err)
	}

	userMsg, err := s.store.Append(ctx, id, history.RoleUser, content)
	if err != nil {
		undo("")
		return Reply{}, fmt.Errorf("appending user message: %w", err)
	}

	text := s.gen.Generate(ctx, content, agent.Window(prior))

	// The exchange completes even if the caller went away mid generation.
	assistantMsg, err := s.store.Append(context.WithoutCancel(ctx), id, history.RoleAssistant, text)
	if err != nil {
		undo(userMsg.ID)
		return Reply{}, fmt.Errorf("appending assistant message: %w", err)
	}

	logger.L.Debug("exchange stored", "conversation_id", id, "created", created, "reply_len", len(text))
	return Reply{ConversationID: id, Message: assistantMsg}, nil
}

// resolve returns the conversation to write to, holding its write lock.
func (s *Service) resolve(ctx context.Context, conversationID, content string) (string, bool, func(), error) {
	if conversationID != "" {
		unlock := s.locks.Lock(conversationID)
		_, err := s.store.Get(ctx, conversationID)
		if err == nil {
			return conversationID, false, unlock, nil
		}
		unlock()
		if !errors.Is(err, history.ErrNotFound) {
			return "", false, nil, err
		}
		logger.L.Info("unknown conversation; starting a new one", "conversation_id", conversationID)
	}

	title := s.gen.TitleFor(ctx, content)
	for {
		id, err := s.store.Create(ctx, title)
		if err != nil {
			return "", false, nil, fmt.Errorf("creating conversation: %w", err)
		}
		// A delete may slip in between Create and Lock; once locked it cannot.
		unlock := s.locks.Lock(id)
		_, err = s.store.Get(ctx, id)
		if err == nil {
			return id, true, unlock, nil
		}
		unlock()
		if !errors.Is(err, history.ErrNotFound) {
			return "", false, nil, err
		}
		logger.L.Warn("new conversation deleted before first message; creating another", "conversation_id", id)
	}
}

// Conversations lists every conversation, most recently updated first.
func (s *Service) Conversations(ctx context.Context) ([]history.Conversation, error) {
	return s.store.List(ctx)
}

// Conversation returns one conversation's metadata.
func (s *Service) Conversation(ctx context.Context, id string) (history.Conversation, error) {
	defer s.locks.RLock(id)()
	return s.store.Get(ctx, id)
}

// Messages returns the messages of id in order. It never observes half of an
// exchange.
func (s *Service) Messages(ctx context.Context, id string) ([]history.Message, error) {
	defer s.locks.RLock(id)()
	return s.store.Messages(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	defer s.locks.Lock(id)()
	return s.store.Delete(ctx, id)
}

func (s *Service) SetTitle(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	defer s.locks.Lock(id)()
	return s.store.SetTitle(ctx, id, title)
}
