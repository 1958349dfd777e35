// Package api exposes the chat service and settings over JSON HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/comigor/echoal-go/internal/chat"
	"github.com/comigor/echoal-go/internal/history"
	"github.com/comigor/echoal-go/internal/settings"
)

// ChatService is what the handlers need from the chat layer.
type ChatService interface {
	Submit(ctx context.Context, conversationID, content string) (chat.Reply, error)
	Conversations(ctx context.Context) ([]history.Conversation, error)
	Messages(ctx context.Context, id string) ([]history.Message, error)
	Delete(ctx context.Context, id string) error
	SetTitle(ctx context.Context, id, title string) error
}

type Handler struct {
	chat     ChatService
	settings *settings.Store
	now      func() time.Time
}

func NewHandler(chatSvc ChatService, st *settings.Store) *Handler {
	return &Handler{chat: chatSvc, settings: st, now: time.Now}
}

type sendRequest struct {
	Content        string `json:"content"`
	ConversationID string `json:"conversationId,omitempty"`
}

type messageView struct {
	ID        string       `json:"id"`
	Content   string       `json:"content"`
	Role      history.Role `json:"role"`
	Timestamp time.Time    `json:"timestamp"`
}

type sendResponse struct {
	ConversationID string      `json:"conversationId"`
	Message        messageView `json:"message"`
}

type titleRequest struct {
	Title string `json:"title"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type settingsUpdateResponse struct {
	Message  string            `json:"message"`
	Settings settings.Settings `json:"settings"`
	Updated  []string          `json:"updatedFields"`
}

type settingsResetResponse struct {
	Message  string            `json:"message"`
	Settings settings.Settings `json:"settings"`
}

func viewOf(m history.Message) messageView {
	return messageView{ID: m.ID, Content: m.Content, Role: m.Role, Timestamp: m.Timestamp}
}

// Routes returns the router with logging applied.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.health)

	mux.HandleFunc("POST /api/chat/send", h.send)
	mux.HandleFunc("GET /api/conversations", h.conversations)
	mux.HandleFunc("GET /api/conversations/{id}/messages", h.messages)
	mux.HandleFunc("DELETE /api/conversations/{id}", h.deleteConversation)
	mux.HandleFunc("PUT /api/conversations/{id}/title", h.setTitle)

	mux.HandleFunc("GET /api/settings", h.getSettings)
	mux.HandleFunc("PUT /api/settings", h.updateSettings)
	mux.HandleFunc("POST /api/settings/reset", h.resetSettings)
	mux.HandleFunc("GET /api/settings/themes", h.themes)
	mux.HandleFunc("GET /api/settings/languages", h.languages)
	mux.HandleFunc("GET /api/settings/ai-models", h.models)

	return LoggingMiddleware(mux)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "timestamp": h.now()})
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reply, err := h.chat.Submit(r.Context(), req.ConversationID, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sendResponse{ConversationID: reply.ConversationID, Message: viewOf(reply.Message)})
}

func (h *Handler) conversations(w http.ResponseWriter, r *http.Request) {
	convs, err := h.chat.Conversations(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if convs == nil {
		convs = []history.Conversation{}
	}
	writeJSON(w, http.StatusOK, convs)
}

func (h *Handler) messages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.chat.Messages(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, viewOf(m))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) deleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := h.chat.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Conversation deleted successfully"})
}

// setTitle takes the title from the JSON body or, failing that, ?title=.
func (h *Handler) setTitle(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if title == "" {
		var req titleRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		title = req.Title
	}
	if err := h.chat.SetTitle(r.Context(), r.PathValue("id"), title); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Title updated successfully"})
}

func (h *Handler) getSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.settings.Get())
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var u settings.Update
	if err := decode(r, &u); err != nil {
		writeError(w, r, err)
		return
	}
	st, updated, err := h.settings.Apply(u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if updated == nil {
		updated = []string{}
	}
	writeJSON(w, http.StatusOK, settingsUpdateResponse{
		Message:  "Settings updated successfully",
		Settings: st,
		Updated:  updated,
	})
}

func (h *Handler) resetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, settingsResetResponse{
		Message:  "Settings reset to default",
		Settings: h.settings.Reset(),
	})
}

func (h *Handler) themes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"themes": settings.Themes})
}

func (h *Handler) languages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"languages": settings.Languages})
}

func (h *Handler) models(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"models": settings.Models})
}

// decode reads a JSON body into v. An empty body is treated as {}.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: %v", errBadRequest, err)
}
