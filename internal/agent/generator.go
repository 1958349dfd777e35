package agent

import (
	"context"
	"fmt"

	"github.com/comigor/echoal-go/internal/config"
	"github.com/comigor/echoal-go/internal/history"
	"github.com/comigor/echoal-go/internal/llm"
	"github.com/comigor/echoal-go/internal/logger"
	"github.com/comigor/echoal-go/pkg/tools"
)

// HistoryWindow is the number of prior messages handed to a generator.
const HistoryWindow = 10

// ApologyMarker starts every reply produced after a failed remote generation.
const ApologyMarker = "I apologize, but I'm having trouble processing your request right now."

// Generator turns a user message plus bounded history into reply text.
// Implementations never fail; they degrade to fallback text instead.
type Generator interface {
	Generate(ctx context.Context, content string, history []history.Message) string
	TitleFor(ctx context.Context, firstMessage string) string
}

// ParamsSource supplies per-request generation parameters.
type ParamsSource interface {
	Generation() (maxTokens int, temperature float64)
}

// Apology is the fallback reply embedding the failure reason.
func Apology(err error) string {
	return fmt.Sprintf("%s Error: %v", ApologyMarker, err)
}

// Window returns at most the last HistoryWindow messages, oldest first.
func Window(msgs []history.Message) []history.Message {
	if len(msgs) <= HistoryWindow {
		return msgs
	}
	return msgs[len(msgs)-HistoryWindow:]
}

// Select picks the generator once at startup: the remote agent when an API key
// is configured, the offline responder otherwise.
func Select(cfg config.LLMConfig, params ParamsSource, toolset *tools.ToolManager) Generator {
	if cfg.APIKey == "" {
		logger.L.Info("no API key configured; using offline responder")
		return NewOffline()
	}
	logger.L.Info("using remote responder", "model", cfg.Model, "base_url", cfg.BaseURL, "tools", toolset.Len())
	return New(llm.NewClient(cfg), cfg, params, toolset)
}
