package agent

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/qmuntal/stateless"
	"github.com/sashabaranov/go-openai"

	"github.com/comigor/echoal-go/internal/config"
	"github.com/comigor/echoal-go/internal/history"
	"github.com/comigor/echoal-go/internal/llm"
	"github.com/comigor/echoal-go/internal/logger"
	"github.com/comigor/echoal-go/pkg/tools"
)

// FSM States
type fsmState string

const (
	StateReadyToCallLLM fsmState = "ReadyToCallLLM"
	StateExecutingTools fsmState = "ExecutingTools"
	StateDone           fsmState = "Done"  // Terminal: reply available
	StateError          fsmState = "Error" // Terminal: lastError set
)

// FSM Triggers
type fsmTrigger string

const (
	TriggerProcessInput            fsmTrigger = "ProcessInput"
	TriggerLLMRespondedWithContent fsmTrigger = "LLMRespondedWithContent"
	TriggerLLMRequestedTools       fsmTrigger = "LLMRequestedTools"
	TriggerToolsExecutionCompleted fsmTrigger = "ToolsExecutionCompleted"
	TriggerErrorOccurred           fsmTrigger = "ErrorOccurred"
)

const (
	defaultSystemPrompt = "You are ECHOAL, a helpful AI assistant. Be friendly, informative, and engaging in your responses. Keep responses concise but helpful."
	titleSystemPrompt   = "Generate a short, descriptive title (max 50 characters) for a conversation that starts with this message. Return only the title, no quotes or extra text."

	defaultTimeout   = 30 * time.Second
	defaultMaxTurns  = 5
	titleMaxTokens   = 20
	titleTemperature = 0.5
)

var (
	ErrNoChoices   = errors.New("malformed response: no choices returned")
	ErrEmptyReply  = errors.New("malformed response: empty reply")
	ErrTurnsExceed = errors.New("exceeded maximum interaction turns")
)

// Agent is the remote responder backed by an OpenAI-compatible chat model.
type Agent struct {
	llmClient    llm.Client
	model        string
	systemPrompt string
	timeout      time.Duration
	maxTurns     int
	params       ParamsSource
	tools        *tools.ToolManager
	toolDefs     []openai.Tool
}

type staticParams struct {
	maxTokens   int
	temperature float64
}

func (p staticParams) Generation() (int, float64) { return p.maxTokens, p.temperature }

// New creates a remote agent. params may be nil, in which case the configured
// max tokens and temperature are used for every request. toolset may be nil.
func New(llmClient llm.Client, cfg config.LLMConfig, params ParamsSource, toolset *tools.ToolManager) *Agent {
	if params == nil {
		params = staticParams{maxTokens: cfg.MaxTokens, temperature: cfg.Temperature}
	}
	a := &Agent{
		llmClient:    llmClient,
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		timeout:      cfg.Timeout,
		maxTurns:     defaultMaxTurns,
		params:       params,
		tools:        toolset,
	}
	if a.systemPrompt == "" {
		a.systemPrompt = defaultSystemPrompt
	}
	if a.timeout <= 0 {
		a.timeout = defaultTimeout
	}
	for _, t := range toolset.List() {
		a.toolDefs = append(a.toolDefs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Schema(),
			},
		})
	}
	return a
}

// Generate returns the model reply, or an apology embedding the failure.
func (a *Agent) Generate(ctx context.Context, content string, hist []history.Message) string {
	reply, err := a.Process(ctx, content, hist)
	if err != nil {
		logger.L.Warn("generation failed; replying with fallback", "error", err)
		return Apology(err)
	}
	return reply
}

// TitleFor asks the model for a short conversation title, falling back to the
// truncated first message.
func (a *Agent) TitleFor(ctx context.Context, firstMessage string) string {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.llmClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: titleSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: firstMessage},
		},
		MaxTokens:   titleMaxTokens,
		Temperature: titleTemperature,
	})
	if err != nil || len(resp.Choices) == 0 {
		logger.L.Debug("title generation failed; truncating first message", "error", err)
		return history.TruncateTitle(firstMessage)
	}

	title := strings.TrimSpace(strings.Trim(strings.TrimSpace(resp.Choices[0].Message.Content), `"'`))
	if title == "" {
		return history.TruncateTitle(firstMessage)
	}
	return history.TruncateTitle(title)
}

// Process runs one chat turn through a state machine: call the model, execute
// any requested tools and call it again, until it answers with content.
func (a *Agent) Process(ctx context.Context, content string, hist []history.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	type fsmContext struct {
		messages    []openai.ChatCompletionMessage
		reply       openai.ChatCompletionMessage
		lastError   error
		currentTurn int
	}
	fc := &fsmContext{messages: a.prompt(content, hist)}
	maxTokens, temperature := a.params.Generation()

	fsm := stateless.NewStateMachine(StateReadyToCallLLM)

	fail := func(ctx context.Context, err error) error {
		fc.lastError = err
		return fsm.FireCtx(ctx, TriggerErrorOccurred)
	}

	fsm.Configure(StateReadyToCallLLM).
		PermitReentry(TriggerProcessInput).
		OnEntry(func(ctx context.Context, _ ...any) error {
			if fc.currentTurn >= a.maxTurns {
				return fail(ctx, ErrTurnsExceed)
			}
			fc.currentTurn++
			logger.L.Debug("calling model", "turn", fc.currentTurn, "messages", len(fc.messages))

			resp, err := a.llmClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model:       a.model,
				Messages:    fc.messages,
				MaxTokens:   maxTokens,
				Temperature: wireTemperature(temperature),
				Tools:       a.toolDefs,
			})
			if err != nil {
				return fail(ctx, err)
			}
			if len(resp.Choices) == 0 {
				return fail(ctx, ErrNoChoices)
			}
			fc.reply = resp.Choices[0].Message

			if len(fc.reply.ToolCalls) > 0 {
				return fsm.FireCtx(ctx, TriggerLLMRequestedTools)
			}
			if strings.TrimSpace(fc.reply.Content) == "" {
				return fail(ctx, ErrEmptyReply)
			}
			return fsm.FireCtx(ctx, TriggerLLMRespondedWithContent)
		}).
		Permit(TriggerLLMRequestedTools, StateExecutingTools).
		Permit(TriggerLLMRespondedWithContent, StateDone).
		Permit(TriggerErrorOccurred, StateError)

	fsm.Configure(StateExecutingTools).
		OnEntry(func(ctx context.Context, _ ...any) error {
			fc.messages = append(fc.messages, fc.reply)
			for _, call := range fc.reply.ToolCalls {
				out, err := a.tools.Run(ctx, call.Function.Name, call.Function.Arguments)
				if err != nil {
					logger.L.Warn("tool call failed", "tool", call.Function.Name, "error", err)
					out = "Error: " + err.Error()
				}
				fc.messages = append(fc.messages, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    out,
					ToolCallID: call.ID,
					Name:       call.Function.Name,
				})
			}
			return fsm.FireCtx(ctx, TriggerToolsExecutionCompleted)
		}).
		Permit(TriggerToolsExecutionCompleted, StateReadyToCallLLM).
		Permit(TriggerErrorOccurred, StateError)

	fsm.Configure(StateDone)
	fsm.Configure(StateError)

	fireErr := fsm.FireCtx(ctx, TriggerProcessInput)
	if fc.lastError != nil {
		return "", fc.lastError
	}
	if fireErr != nil {
		return "", fmt.Errorf("state machine: %w", fireErr)
	}

	state, err := fsm.State(ctx)
	if err != nil {
		return "", fmt.Errorf("state machine: %w", err)
	}
	switch {
	case state == StateDone:
		return strings.TrimSpace(fc.reply.Content), nil
	default:
		return "", fmt.Errorf("state machine ended in unexpected state %v", state)
	}
}

// wireTemperature converts t for the request. go-openai drops a zero
// temperature (omitempty), so 0 is sent as the smallest non-zero float32.
func wireTemperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

// prompt builds system instruction + bounded history + current message.
func (a *Agent) prompt(content string, hist []history.Message) []openai.ChatCompletionMessage {
	hist = Window(hist)
	msgs := make([]openai.ChatCompletionMessage, 0, len(hist)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: a.systemPrompt})
	for _, m := range hist {
		role := openai.ChatMessageRoleUser
		if m.Role == history.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: content})
}
