// Package settings holds the runtime-adjustable application settings, including
// the generation parameters the remote responder reads on every request.
package settings

import (
	"fmt"
	"slices"
	"sync"

	"github.com/comigor/echoal-go/internal/config"
)

// Validated ranges for generation parameters.
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
	MinMaxTokens   = 1
	MaxMaxTokens   = 4000
)

// Version is reported by the settings endpoint.
const Version = "1.0.0"

// DefaultModelName is the display name of the built-in assistant.
const DefaultModelName = "ECHOAL Assistant"

// ValidationError reports a rejected settings value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Settings is the full settings document.
type Settings struct {
	AIModel       string   `json:"aiModel"`
	Theme         string   `json:"theme"`
	Language      string   `json:"language"`
	MaxTokens     int      `json:"maxTokens"`
	Temperature   float64  `json:"temperature"`
	AutoSave      bool     `json:"autoSave"`
	Notifications bool     `json:"notifications"`
	Version       string   `json:"version"`
	Features      []string `json:"features"`
}

// Update is a partial settings change; nil fields are left untouched.
type Update struct {
	AIModel       *string  `json:"aiModel,omitempty"`
	Theme         *string  `json:"theme,omitempty"`
	Language      *string  `json:"language,omitempty"`
	MaxTokens     *int     `json:"maxTokens,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	AutoSave      *bool    `json:"autoSave,omitempty"`
	Notifications *bool    `json:"notifications,omitempty"`
}

// Defaults derives the initial settings from the LLM configuration.
func Defaults(cfg config.LLMConfig) Settings {
	return Settings{
		AIModel:       DefaultModelName,
		Theme:         "light",
		Language:      "en",
		MaxTokens:     cfg.MaxTokens,
		Temperature:   cfg.Temperature,
		AutoSave:      true,
		Notifications: true,
		Version:       Version,
		Features:      []string{"chat", "conversations", "settings", "themes", "languages"},
	}
}

// Store guards the current settings. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	current  Settings
	defaults Settings
}

// New validates defaults and returns a store holding them.
func New(defaults Settings) (*Store, error) {
	if err := validate(defaults); err != nil {
		return nil, err
	}
	return &Store{current: clone(defaults), defaults: clone(defaults)}, nil
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.current)
}

// Apply validates u against the current settings and commits it only when every
// field is valid. It returns the new settings and the names of the changed fields.
func (s *Store) Apply(u Update) (Settings, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := clone(s.current)
	var updated []string
	if u.AIModel != nil {
		next.AIModel = *u.AIModel
		updated = append(updated, "aiModel")
	}
	if u.Theme != nil {
		next.Theme = *u.Theme
		updated = append(updated, "theme")
	}
	if u.Language != nil {
		next.Language = *u.Language
		updated = append(updated, "language")
	}
	if u.MaxTokens != nil {
		next.MaxTokens = *u.MaxTokens
		updated = append(updated, "maxTokens")
	}
	if u.Temperature != nil {
		next.Temperature = *u.Temperature
		updated = append(updated, "temperature")
	}
	if u.AutoSave != nil {
		next.AutoSave = *u.AutoSave
		updated = append(updated, "autoSave")
	}
	if u.Notifications != nil {
		next.Notifications = *u.Notifications
		updated = append(updated, "notifications")
	}

	if err := validate(next); err != nil {
		return clone(s.current), nil, err
	}
	s.current = next
	return clone(next), updated, nil
}

// Reset restores the defaults.
func (s *Store) Reset() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = clone(s.defaults)
	return clone(s.current)
}

// Generation returns the per-request generation parameters.
func (s *Store) Generation() (maxTokens int, temperature float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.MaxTokens, s.current.Temperature
}

func validate(st Settings) error {
	if st.Temperature < MinTemperature || st.Temperature > MaxTemperature {
		return &ValidationError{Field: "temperature", Reason: "must be between 0.0 and 2.0"}
	}
	if st.MaxTokens < MinMaxTokens || st.MaxTokens > MaxMaxTokens {
		return &ValidationError{Field: "maxTokens", Reason: "must be between 1 and 4000"}
	}
	if !slices.ContainsFunc(Themes, func(o Option) bool { return o.ID == st.Theme }) {
		return &ValidationError{Field: "theme", Reason: "must be 'light', 'dark', or 'auto'"}
	}
	if !slices.ContainsFunc(Languages, func(l Language) bool { return l.Code == st.Language }) {
		return &ValidationError{Field: "language", Reason: fmt.Sprintf("unsupported language %q", st.Language)}
	}
	if st.AIModel == "" {
		return &ValidationError{Field: "aiModel", Reason: "must not be empty"}
	}
	return nil
}

func clone(st Settings) Settings {
	st.Features = slices.Clone(st.Features)
	return st
}
