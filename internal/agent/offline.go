package agent

import (
	"context"
	"math/rand/v2"
	"strings"

	"github.com/comigor/echoal-go/internal/history"
)

// Templates are the canned offline replies; {topic} is substituted.
var Templates = []string{
	"I understand you're asking about {topic}. Let me help you with that.",
	"That's an interesting question! Here's what I think about {topic}...",
	"I'd be happy to assist you with {topic}. Let me provide some insights.",
	"Great question! Regarding {topic}, here's my perspective...",
	"I can definitely help you explore {topic}. Let me share some thoughts on this.",
	"Thanks for sharing that with me. I'd be glad to help you with {topic}.",
	"That's a great point about {topic}. Let me elaborate on that for you.",
	"I appreciate you asking about {topic}. Here's what I can tell you...",
	"Interesting! When it comes to {topic}, I have some thoughts to share.",
	"I'm here to help with {topic}. Let me provide some guidance on this.",
}

// Offline is the deterministic responder used without an external model.
type Offline struct {
	pick func(n int) int
}

// NewOffline returns an offline responder choosing templates uniformly at random.
func NewOffline() *Offline {
	return &Offline{pick: rand.IntN}
}

// Topic is the first three whitespace separated words of msg, lower-cased.
func Topic(msg string) string {
	words := strings.Fields(strings.ToLower(msg))
	if len(words) == 0 {
		return "your question"
	}
	if len(words) > 3 {
		words = words[:3]
	}
	return strings.Join(words, " ")
}

func (o *Offline) Generate(_ context.Context, content string, _ []history.Message) string {
	tpl := Templates[o.pick(len(Templates))]
	return strings.ReplaceAll(tpl, "{topic}", Topic(content))
}

func (o *Offline) TitleFor(_ context.Context, firstMessage string) string {
	return history.TruncateTitle(firstMessage)
}
