package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/comigor/echoal-go/internal/config"
	"github.com/comigor/echoal-go/internal/history"
	"github.com/comigor/echoal-go/internal/llm"
	"github.com/comigor/echoal-go/pkg/tools"
)

type mockLLM struct {
	calls    []openai.ChatCompletionResponse
	err      error
	requests []openai.ChatCompletionRequest
	block    bool
}

func (m *mockLLM) CreateChatCompletion(ctx context.Context, r openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.requests = append(m.requests, r)
	if m.block {
		<-ctx.Done()
		return openai.ChatCompletionResponse{}, ctx.Err()
	}
	if m.err != nil {
		return openai.ChatCompletionResponse{}, m.err
	}
	if len(m.calls) == 0 {
		panic("mockLLM: no more responses configured for request: " + r.Messages[0].Content)
	}
	resp := m.calls[0]
	m.calls = m.calls[1:]
	return resp, nil
}

func contentResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{
		Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
	}}}
}

type fixedParams struct {
	maxTokens   int
	temperature float64
}

func (p fixedParams) Generation() (int, float64) { return p.maxTokens, p.temperature }

type weatherTool struct{ gotArgs string }

func (w *weatherTool) Name() string            { return "get_weather" }
func (w *weatherTool) Description() string     { return "Gets the weather for a location" }
func (w *weatherTool) Schema() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (w *weatherTool) Run(_ context.Context, args string) (string, error) {
	w.gotArgs = args
	return "sunny, 21C", nil
}

func testLLMConfig() config.LLMConfig {
	return config.LLMConfig{Model: "test-model", APIKey: "k", MaxTokens: 500, Temperature: 0.7, Timeout: time.Second}
}

func makeHistory(n int) []history.Message {
	msgs := make([]history.Message, n)
	for i := range msgs {
		role := history.RoleUser
		if i%2 == 1 {
			role = history.RoleAssistant
		}
		msgs[i] = history.Message{Role: role, Content: fmt.Sprintf("m%d", i)}
	}
	return msgs
}

// TestAgentProcess_LLMRespondsDirectly tests the scenario where the LLM responds directly without tool usage.
func TestAgentProcess_LLMRespondsDirectly(t *testing.T) {
	llm := &mockLLM{calls: []openai.ChatCompletionResponse{contentResponse("  Hello there!  ")}}
	a := New(llm, testLLMConfig(), nil, nil)

	out, err := a.Process(context.Background(), "hi", nil)
	require.NoError(t, err)
	require.Equal(t, "Hello there!", out)
	require.Len(t, llm.requests, 1)

	req := llm.requests[0]
	require.Equal(t, "test-model", req.Model)
	require.Equal(t, 500, req.MaxTokens)
	require.InDelta(t, 0.7, req.Temperature, 1e-6)
	require.Empty(t, req.Tools)
}

func TestAgentProcess_ZeroTemperatureIsSent(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"cold"}}]}`)
	}))
	defer srv.Close()

	cfg := testLLMConfig()
	cfg.BaseURL = srv.URL
	a := New(llm.NewClient(cfg), cfg, fixedParams{maxTokens: 100, temperature: 0}, nil)

	out, err := a.Process(context.Background(), "hi", nil)
	require.NoError(t, err)
	require.Equal(t, "cold", out)

	temp, ok := body["temperature"]
	require.True(t, ok, "temperature missing from request body")
	require.InDelta(t, 0, temp, 1e-6)
}

func TestWireTemperature(t *testing.T) {
	require.NotZero(t, wireTemperature(0))
	require.InDelta(t, 0.7, wireTemperature(0.7), 1e-6)
	require.InDelta(t, 2.0, wireTemperature(2.0), 1e-6)
}

func TestAgentProcess_PromptShape(t *testing.T) {
	llm := &mockLLM{calls: []openai.ChatCompletionResponse{contentResponse("ok")}}
	a := New(llm, testLLMConfig(), fixedParams{maxTokens: 1200, temperature: 1.2}, nil)

	_, err := a.Process(context.Background(), "current", makeHistory(14))
	require.NoError(t, err)

	req := llm.requests[0]
	require.Equal(t, 1200, req.MaxTokens)
	require.InDelta(t, 1.2, req.Temperature, 1e-6)

	// system + last 10 history + current
	require.Len(t, req.Messages, 12)
	require.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	require.Equal(t, defaultSystemPrompt, req.Messages[0].Content)
	require.Equal(t, "m4", req.Messages[1].Content)
	require.Equal(t, openai.ChatMessageRoleUser, req.Messages[1].Role)
	require.Equal(t, openai.ChatMessageRoleAssistant, req.Messages[2].Role)
	require.Equal(t, "m13", req.Messages[10].Content)
	require.Equal(t, openai.ChatMessageRoleUser, req.Messages[11].Role)
	require.Equal(t, "current", req.Messages[11].Content)
}

func TestAgentProcess_CustomSystemPrompt(t *testing.T) {
	llm := &mockLLM{calls: []openai.ChatCompletionResponse{contentResponse("ok")}}
	cfg := testLLMConfig()
	cfg.SystemPrompt = "Answer in haiku."
	a := New(llm, cfg, nil, nil)

	_, err := a.Process(context.Background(), "hi", nil)
	require.NoError(t, err)
	require.Equal(t, "Answer in haiku.", llm.requests[0].Messages[0].Content)
}

func TestAgentProcess_ToolCall(t *testing.T) {
	weather := &weatherTool{}
	toolset := tools.NewToolManager()
	require.NoError(t, toolset.RegisterTool(weather))

	llm := &mockLLM{calls: []openai.ChatCompletionResponse{
		{Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleAssistant,
			ToolCalls: []openai.ToolCall{{
				ID:       "call_1",
				Type:     openai.ToolTypeFunction,
				Function: openai.FunctionCall{Name: "get_weather", Arguments: `{"location":"London"}`},
			}},
		}}}},
		contentResponse("It is sunny in London."),
	}}
	a := New(llm, testLLMConfig(), nil, toolset)

	out, err := a.Process(context.Background(), "weather in London?", nil)
	require.NoError(t, err)
	require.Equal(t, "It is sunny in London.", out)
	require.Equal(t, `{"location":"London"}`, weather.gotArgs)

	require.Len(t, llm.requests, 2)
	require.Len(t, llm.requests[0].Tools, 1)
	require.Equal(t, "get_weather", llm.requests[0].Tools[0].Function.Name)

	second := llm.requests[1].Messages
	last := second[len(second)-1]
	require.Equal(t, openai.ChatMessageRoleTool, last.Role)
	require.Equal(t, "call_1", last.ToolCallID)
	require.Equal(t, "sunny, 21C", last.Content)
}

func TestAgentProcess_UnknownToolReportedToModel(t *testing.T) {
	llm := &mockLLM{calls: []openai.ChatCompletionResponse{
		{Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleAssistant,
			ToolCalls: []openai.ToolCall{{
				ID:       "call_x",
				Type:     openai.ToolTypeFunction,
				Function: openai.FunctionCall{Name: "nope", Arguments: `{}`},
			}},
		}}}},
		contentResponse("Sorry, I could not do that."),
	}}
	a := New(llm, testLLMConfig(), nil, nil)

	out, err := a.Process(context.Background(), "do it", nil)
	require.NoError(t, err)
	require.Equal(t, "Sorry, I could not do that.", out)

	second := llm.requests[1].Messages
	require.True(t, strings.HasPrefix(second[len(second)-1].Content, "Error: "))
}

func TestAgentProcess_TurnLimit(t *testing.T) {
	toolCall := openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleAssistant,
		ToolCalls: []openai.ToolCall{{
			ID:       "loop",
			Type:     openai.ToolTypeFunction,
			Function: openai.FunctionCall{Name: "get_weather", Arguments: `{}`},
		}},
	}}}}
	toolset := tools.NewToolManager()
	require.NoError(t, toolset.RegisterTool(&weatherTool{}))

	calls := make([]openai.ChatCompletionResponse, defaultMaxTurns)
	for i := range calls {
		calls[i] = toolCall
	}
	llm := &mockLLM{calls: calls}
	a := New(llm, testLLMConfig(), nil, toolset)

	_, err := a.Process(context.Background(), "loop forever", nil)
	require.ErrorIs(t, err, ErrTurnsExceed)
	require.Len(t, llm.requests, defaultMaxTurns)
}

func TestAgentProcess_NoChoices(t *testing.T) {
	llm := &mockLLM{calls: []openai.ChatCompletionResponse{{}}}
	a := New(llm, testLLMConfig(), nil, nil)

	_, err := a.Process(context.Background(), "hi", nil)
	require.ErrorIs(t, err, ErrNoChoices)
}

func TestAgentProcess_EmptyReply(t *testing.T) {
	llm := &mockLLM{calls: []openai.ChatCompletionResponse{contentResponse("   ")}}
	a := New(llm, testLLMConfig(), nil, nil)

	_, err := a.Process(context.Background(), "hi", nil)
	require.ErrorIs(t, err, ErrEmptyReply)
}

func TestAgentGenerate_ErrorBecomesApology(t *testing.T) {
	llm := &mockLLM{err: errors.New("401 unauthorized")}
	a := New(llm, testLLMConfig(), nil, nil)

	out := a.Generate(context.Background(), "hi", nil)
	require.True(t, strings.HasPrefix(out, ApologyMarker))
	require.Contains(t, out, "401 unauthorized")
}

func TestAgentGenerate_Timeout(t *testing.T) {
	llm := &mockLLM{block: true}
	cfg := testLLMConfig()
	cfg.Timeout = 20 * time.Millisecond
	a := New(llm, cfg, nil, nil)

	start := time.Now()
	out := a.Generate(context.Background(), "hi", nil)
	require.Less(t, time.Since(start), 2*time.Second)
	require.True(t, strings.HasPrefix(out, ApologyMarker))
	require.Contains(t, out, context.DeadlineExceeded.Error())
}

func TestAgentTitleFor(t *testing.T) {
	llm := &mockLLM{calls: []openai.ChatCompletionResponse{contentResponse(`"Planning a Trip to Lisbon"`)}}
	a := New(llm, testLLMConfig(), nil, nil)

	title := a.TitleFor(context.Background(), "I want to go to Lisbon next spring, any tips?")
	require.Equal(t, "Planning a Trip to Lisbon", title)

	req := llm.requests[0]
	require.Equal(t, titleMaxTokens, req.MaxTokens)
	require.InDelta(t, titleTemperature, req.Temperature, 1e-6)
	require.Equal(t, titleSystemPrompt, req.Messages[0].Content)
}

func TestAgentTitleFor_Fallback(t *testing.T) {
	long := strings.Repeat("word ", 20)
	a := New(&mockLLM{err: errors.New("down")}, testLLMConfig(), nil, nil)

	title := a.TitleFor(context.Background(), long)
	require.Equal(t, history.TruncateTitle(long), title)
	require.Len(t, []rune(title), history.MaxTitleLen)
}

func TestAgentTitleFor_LongModelTitleIsBounded(t *testing.T) {
	llm := &mockLLM{calls: []openai.ChatCompletionResponse{contentResponse(strings.Repeat("x", 80))}}
	a := New(llm, testLLMConfig(), nil, nil)

	title := a.TitleFor(context.Background(), "hello")
	require.LessOrEqual(t, len([]rune(title)), history.MaxTitleLen)
	require.True(t, strings.HasSuffix(title, "..."))
}

func TestOffline_Generate(t *testing.T) {
	for i := range Templates {
		o := &Offline{pick: func(int) int { return i }}
		out := o.Generate(context.Background(), "Tell me about Rust ownership rules", nil)
		require.Equal(t, strings.ReplaceAll(Templates[i], "{topic}", "tell me about"), out)
	}
}

func TestOffline_ReplyIsOneOfTemplates(t *testing.T) {
	o := NewOffline()
	out := o.Generate(context.Background(), "hello world", nil)

	matched := false
	for _, tpl := range Templates {
		if out == strings.ReplaceAll(tpl, "{topic}", "hello world") {
			matched = true
		}
	}
	require.True(t, matched, "unexpected reply %q", out)
}

func TestTopic(t *testing.T) {
	require.Equal(t, "tell me about", Topic("Tell me about rust ownership"))
	require.Equal(t, "hi", Topic("  Hi  "))
	require.Equal(t, "your question", Topic("   "))
}

func TestOffline_TitleFor(t *testing.T) {
	o := NewOffline()
	require.Equal(t, "short", o.TitleFor(context.Background(), "short"))

	long := strings.Repeat("a", 60)
	require.Equal(t, strings.Repeat("a", 47)+"...", o.TitleFor(context.Background(), long))
}

func TestWindow(t *testing.T) {
	require.Len(t, Window(makeHistory(3)), 3)
	w := Window(makeHistory(25))
	require.Len(t, w, HistoryWindow)
	require.Equal(t, "m15", w[0].Content)
	require.Equal(t, "m24", w[len(w)-1].Content)
}

func TestSelect(t *testing.T) {
	cfg := testLLMConfig()
	cfg.APIKey = ""
	_, ok := Select(cfg, nil, nil).(*Offline)
	require.True(t, ok)

	cfg.APIKey = "sk-test"
	_, ok = Select(cfg, nil, nil).(*Agent)
	require.True(t, ok)
}
