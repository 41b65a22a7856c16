package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkoid/srag-ai/pkg/config"
	"github.com/ilkoid/srag-ai/pkg/datasus"
	"github.com/ilkoid/srag-ai/pkg/events"
	"github.com/ilkoid/srag-ai/pkg/llm"
	"github.com/ilkoid/srag-ai/pkg/srag"
	"github.com/ilkoid/srag-ai/pkg/sragdb"
	"github.com/ilkoid/srag-ai/pkg/state"
	"github.com/ilkoid/srag-ai/pkg/tools"
	"github.com/ilkoid/srag-ai/pkg/tools/std"
)

// scriptedProvider returns canned replies in order.
type scriptedProvider struct {
	replies []llm.Message
	calls   int
}

func (p *scriptedProvider) Generate(ctx context.Context, messages []llm.Message, toolsArgs ...any) (llm.Message, error) {
	if p.calls >= len(p.replies) {
		return llm.Message{Role: llm.RoleAssistant, Content: "out of script"}, nil
	}
	reply := p.replies[p.calls]
	p.calls++
	return reply, nil
}

// countingTool records whether Execute ran.
type countingTool struct {
	executed int
	output   string
	err      error
}

func (t *countingTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "generate_statistical_report",
		Description: "test stand-in",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"year": map[string]interface{}{"type": "integer"},
			},
			"required": []string{"year"},
		},
	}
}

func (t *countingTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	t.executed++
	return t.output, t.err
}

func newTestState(t *testing.T) *state.CoreState {
	t.Helper()
	store, err := sragdb.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	client, err := datasus.NewFromConfig(config.DataSusConfig{Demo: true})
	require.NoError(t, err)

	st := state.NewCoreState(&config.AppConfig{}, store, client, nil)
	st.SetToolsRegistry(tools.NewRegistry())
	return st
}

func toolCallReply(name, args string) llm.Message {
	return llm.Message{
		Role: llm.RoleAssistant,
		ToolCalls: []llm.ToolCall{
			{ID: "call_1", Name: name, Args: args},
		},
	}
}

func TestDispatchPlainAnswer(t *testing.T) {
	st := newTestState(t)
	provider := &scriptedProvider{replies: []llm.Message{
		{Role: llm.RoleAssistant, Content: "SRAG — это тяжёлые острые респираторные заболевания."},
	}}

	d := NewDispatcher(provider, st, DefaultSystemPrompt)
	outcome, err := d.Dispatch(context.Background(), "Что такое SRAG?")
	require.NoError(t, err)

	assert.Empty(t, outcome.ToolName)
	assert.Nil(t, outcome.Result)
	assert.Contains(t, outcome.Content, "SRAG")
	assert.Equal(t, 1, provider.calls, "no second generation without a tool call")

	history := st.GetHistory()
	require.Len(t, history, 2)
	assert.Equal(t, llm.RoleUser, history[0].Role)
	assert.Equal(t, llm.RoleAssistant, history[1].Role)
}

func TestDispatchToolFlow(t *testing.T) {
	st := newTestState(t)
	tool := &countingTool{output: `{"status":"success","message":"ok","result":{"kind":"table","table":{"columns":["Metric","Value"],"rows":[["Total cases","5"]]}}}`}
	require.NoError(t, st.GetToolsRegistry().Register(tool))

	provider := &scriptedProvider{replies: []llm.Message{
		toolCallReply("generate_statistical_report", `{"year": 2024}`),
		{Role: llm.RoleAssistant, Content: "В 2024 году зарегистрировано 5 случаев."},
	}}

	d := NewDispatcher(provider, st, DefaultSystemPrompt)
	outcome, err := d.Dispatch(context.Background(), "Отчёт за 2024")
	require.NoError(t, err)

	assert.Equal(t, 1, tool.executed)
	assert.Equal(t, "generate_statistical_report", outcome.ToolName)
	assert.Contains(t, outcome.Content, "5 случаев")
	require.NotNil(t, outcome.Result)
	assert.Equal(t, srag.ResultTable, outcome.Result.Kind)

	// History: user, assistant(tool call), tool, assistant(final)
	history := st.GetHistory()
	require.Len(t, history, 4)
	assert.Equal(t, llm.RoleTool, history[2].Role)
	assert.Equal(t, "call_1", history[2].ToolCallID)
}

func TestDispatchUnknownToolNeverExecutes(t *testing.T) {
	st := newTestState(t)
	tool := &countingTool{output: "{}"}
	require.NoError(t, st.GetToolsRegistry().Register(tool))

	provider := &scriptedProvider{replies: []llm.Message{
		toolCallReply("drop_database", `{}`),
	}}

	d := NewDispatcher(provider, st, DefaultSystemPrompt)
	_, err := d.Dispatch(context.Background(), "сломай базу")

	var valErr *tools.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "drop_database", valErr.Tool)
	assert.Equal(t, 0, tool.executed, "handler must not run for unknown tool")
}

func TestDispatchInvalidArgsNeverExecute(t *testing.T) {
	st := newTestState(t)
	tool := &countingTool{output: "{}"}
	require.NoError(t, st.GetToolsRegistry().Register(tool))

	provider := &scriptedProvider{replies: []llm.Message{
		// year is required and must be an integer
		toolCallReply("generate_statistical_report", `{"year": "not-a-number"}`),
	}}

	d := NewDispatcher(provider, st, DefaultSystemPrompt)
	_, err := d.Dispatch(context.Background(), "Отчёт")

	var valErr *tools.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.NotEmpty(t, valErr.Issues)
	assert.Equal(t, 0, tool.executed, "handler must not run on schema violation")
}

func TestDispatchToolErrorIsPhrasedByLLM(t *testing.T) {
	st := newTestState(t)
	tool := &countingTool{err: srag.NewDataError("no cases in 2021")}
	require.NoError(t, st.GetToolsRegistry().Register(tool))

	provider := &scriptedProvider{replies: []llm.Message{
		toolCallReply("generate_statistical_report", `{"year": 2021}`),
		{Role: llm.RoleAssistant, Content: "Данных за 2021 год нет, сначала загрузите датасет."},
	}}

	d := NewDispatcher(provider, st, DefaultSystemPrompt)
	outcome, err := d.Dispatch(context.Background(), "Отчёт за 2021")
	require.NoError(t, err)

	assert.Equal(t, 1, tool.executed)
	assert.Nil(t, outcome.Result)
	assert.Contains(t, outcome.Content, "2021")

	// The tool error text reaches the LLM through the tool message
	history := st.GetHistory()
	assert.Contains(t, history[2].Content, "no cases in 2021")
}

func TestDispatchMarkdownWrappedArgs(t *testing.T) {
	st := newTestState(t)
	tool := &countingTool{output: `{"status":"success"}`}
	require.NoError(t, st.GetToolsRegistry().Register(tool))

	provider := &scriptedProvider{replies: []llm.Message{
		toolCallReply("generate_statistical_report", "```json\n{\"year\": 2024}\n```"),
		{Role: llm.RoleAssistant, Content: "Готово."},
	}}

	d := NewDispatcher(provider, st, DefaultSystemPrompt)
	outcome, err := d.Dispatch(context.Background(), "Отчёт")
	require.NoError(t, err)

	assert.Equal(t, 1, tool.executed)
	assert.JSONEq(t, `{"year": 2024}`, outcome.ToolArgs)
}

func TestDispatchEmitsEvents(t *testing.T) {
	st := newTestState(t)
	tool := &countingTool{output: `{"status":"success"}`}
	require.NoError(t, st.GetToolsRegistry().Register(tool))

	provider := &scriptedProvider{replies: []llm.Message{
		toolCallReply("generate_statistical_report", `{"year": 2024}`),
		{Role: llm.RoleAssistant, Content: "Готово."},
	}}

	emitter := events.NewChanEmitter(16)
	d := NewDispatcher(provider, st, DefaultSystemPrompt)
	d.SetEmitter(emitter)

	_, err := d.Dispatch(context.Background(), "Отчёт")
	require.NoError(t, err)
	emitter.Close()

	var types []events.EventType
	for ev := range emitter.Subscribe().Events() {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []events.EventType{
		events.EventThinking,
		events.EventToolCall,
		events.EventToolResult,
		events.EventDone,
	}, types)
}

func TestExecuteWithTimeout(t *testing.T) {
	st := newTestState(t)
	slow := &slowTool{delay: 200 * time.Millisecond}
	require.NoError(t, st.GetToolsRegistry().Register(slow))

	provider := &scriptedProvider{replies: []llm.Message{
		toolCallReply("slow_tool", `{}`),
		{Role: llm.RoleAssistant, Content: "Инструмент не успел."},
	}}

	d := NewDispatcher(provider, st, DefaultSystemPrompt)
	d.SetToolTimeout("slow_tool", 20*time.Millisecond)

	outcome, err := d.Dispatch(context.Background(), "медленный запрос")
	require.NoError(t, err)

	// Timeout surfaces through the tool message, agent still answers
	history := st.GetHistory()
	assert.Contains(t, history[2].Content, "exceeded timeout")
	assert.Equal(t, "Инструмент не успел.", outcome.Content)
}

// slowTool blocks longer than the test timeout.
type slowTool struct {
	delay time.Duration
}

func (t *slowTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "slow_tool",
		Description: "sleeps",
		Parameters: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
			"required":   []string{},
		},
	}
}

func (t *slowTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	select {
	case <-time.After(t.delay):
		return "{}", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Compile-time checks that the real tools satisfy the registry contract.
var (
	_ tools.Tool = (*std.SummarizeTool)(nil)
	_ tools.Tool = (*std.ReportTool)(nil)
	_ tools.Tool = (*std.GraphTool)(nil)
	_ tools.Tool = (*std.StoreDatasetsTool)(nil)
	_ tools.Tool = (*std.DataDictTool)(nil)
)
