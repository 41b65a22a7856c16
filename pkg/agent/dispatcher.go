// Package agent содержит диспетчер разговорного агента SRAG.
//
// Диспетчер связывает LLM, реестр инструментов и состояние:
// выбор инструмента делегируется LLM через function calling,
// аргументы проверяются JSON схемой ДО запуска обработчика,
// результат пересказывается второй генерацией.
//
// Один запрос пользователя — не более одного вызова инструмента.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ilkoid/srag-ai/pkg/events"
	"github.com/ilkoid/srag-ai/pkg/llm"
	"github.com/ilkoid/srag-ai/pkg/srag"
	"github.com/ilkoid/srag-ai/pkg/state"
	"github.com/ilkoid/srag-ai/pkg/tools"
	"github.com/ilkoid/srag-ai/pkg/tools/std"
	"github.com/ilkoid/srag-ai/pkg/utils"
)

// DefaultToolTimeout — защитный timeout выполнения инструмента.
//
// Загрузка полной выгрузки DataSus занимает минуты, поэтому дефолт щедрый.
const DefaultToolTimeout = 5 * time.Minute

// Outcome — результат обработки одного запроса пользователя.
type Outcome struct {
	// ToolName — выполненный инструмент; "" если LLM ответила без инструмента
	ToolName string

	// ToolArgs — аргументы вызова (санитизированный JSON)
	ToolArgs string

	// Content — финальный текстовый ответ агента
	Content string

	// Result — типизированный результат инструмента для рендера; nil для текста
	Result *srag.Result
}

// Dispatcher — диспетчер запросов пользователя.
//
// Thread-safe настолько, насколько thread-safe его зависимости;
// Dispatch не предназначен для конкурентных вызовов в одной сессии.
type Dispatcher struct {
	provider     llm.Provider
	registry     *tools.Registry
	state        *state.CoreState
	emitter      events.Emitter
	systemPrompt string

	toolTimeout  time.Duration
	toolTimeouts map[string]time.Duration
}

// NewDispatcher создает диспетчер.
//
// registry берётся из state; systemPrompt описывает роль агента.
func NewDispatcher(provider llm.Provider, st *state.CoreState, systemPrompt string) *Dispatcher {
	return &Dispatcher{
		provider:     provider,
		registry:     st.GetToolsRegistry(),
		state:        st,
		systemPrompt: systemPrompt,
		toolTimeout:  DefaultToolTimeout,
		toolTimeouts: make(map[string]time.Duration),
	}
}

// SetEmitter подключает эмиттер событий для UI.
func (d *Dispatcher) SetEmitter(e events.Emitter) {
	d.emitter = e
}

// SetToolTimeout переопределяет timeout для конкретного инструмента.
func (d *Dispatcher) SetToolTimeout(toolName string, timeout time.Duration) {
	d.toolTimeouts[toolName] = timeout
}

// Dispatch обрабатывает один запрос пользователя.
//
// Поток: LLM выбирает инструмент → аргументы валидируются схемой →
// обработчик выполняется с защитным timeout → вторая генерация
// формулирует ответ. При невалидном вызове (неизвестный инструмент,
// аргументы не по схеме) обработчик НЕ запускается и возвращается
// *tools.ValidationError.
func (d *Dispatcher) Dispatch(ctx context.Context, prompt string) (*Outcome, error) {
	d.emit(ctx, events.Event{
		Type:      events.EventThinking,
		Data:      events.ThinkingData{Query: prompt},
		Timestamp: time.Now(),
	})

	d.state.AppendMessage(llm.Message{Role: llm.RoleUser, Content: prompt})

	messages := d.state.BuildAgentContext(d.systemPrompt)
	reply, err := d.provider.Generate(ctx, messages, d.registry.GetDefinitions())
	if err != nil {
		d.emitError(ctx, err)
		return nil, fmt.Errorf("llm generate: %w", err)
	}

	// LLM ответила текстом — инструмент не нужен
	if len(reply.ToolCalls) == 0 {
		d.state.AppendMessage(reply)
		d.emitDone(ctx, reply.Content)
		return &Outcome{Content: reply.Content}, nil
	}

	// Не более одного инструмента на запрос
	call := reply.ToolCalls[0]
	cleanArgs := utils.CleanJsonBlock(call.Args)
	if cleanArgs == "" {
		cleanArgs = "{}"
	}

	// Валидация ДО выполнения: обработчик невалидного вызова не запускается
	if err := d.registry.ValidateCall(call.Name, cleanArgs); err != nil {
		d.emitError(ctx, err)
		var valErr *tools.ValidationError
		if errors.As(err, &valErr) {
			utils.Warn("Tool call rejected", "tool", call.Name, "issues", valErr.Issues)
		}
		return nil, err
	}

	d.emit(ctx, events.Event{
		Type:      events.EventToolCall,
		Data:      events.ToolCallData{ToolName: call.Name, Args: cleanArgs},
		Timestamp: time.Now(),
	})

	start := time.Now()
	output, execErr := d.executeWithTimeout(ctx, call.Name, cleanArgs)
	duration := time.Since(start)

	toolContent := output
	var result *srag.Result
	if execErr != nil {
		// Ошибка инструмента (включая DataError о пустом срезе) уходит
		// в LLM как содержимое tool message — агент объяснит её словами
		toolContent = fmt.Sprintf("Error: %v", execErr)
		utils.Error("Tool execution failed", "tool", call.Name, "error", execErr)
	} else if parsed, ok := std.ParseResult(output); ok {
		result = parsed
	}

	d.emit(ctx, events.Event{
		Type:      events.EventToolResult,
		Data:      events.ToolResultData{ToolName: call.Name, Result: toolContent, Duration: duration},
		Timestamp: time.Now(),
	})

	// Диалог: assistant c tool call → tool result → финальная генерация
	d.state.AppendMessage(reply)
	d.state.AppendMessage(llm.Message{
		Role:       llm.RoleTool,
		ToolCallID: call.ID,
		Content:    toolContent,
	})

	final, err := d.provider.Generate(ctx, d.state.BuildAgentContext(d.systemPrompt))
	if err != nil {
		d.emitError(ctx, err)
		return nil, fmt.Errorf("llm finalize: %w", err)
	}
	d.state.AppendMessage(final)
	d.emitDone(ctx, final.Content)

	return &Outcome{
		ToolName: call.Name,
		ToolArgs: cleanArgs,
		Content:  final.Content,
		Result:   result,
	}, nil
}

// executeWithTimeout запускает инструмент в отдельной горутине.
//
// Tool Timeout Protection: зависший инструмент не блокирует агента.
func (d *Dispatcher) executeWithTimeout(ctx context.Context, name, argsJSON string) (string, error) {
	tool, err := d.registry.Get(name)
	if err != nil {
		return "", err
	}

	timeout := d.toolTimeout
	if custom, exists := d.toolTimeouts[name]; exists {
		timeout = custom
	}

	toolCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type execResult struct {
		output string
		err    error
	}
	resultChan := make(chan execResult, 1)

	go func() {
		output, execErr := tool.Execute(toolCtx, argsJSON)
		resultChan <- execResult{output, execErr}
	}()

	select {
	case <-toolCtx.Done():
		if toolCtx.Err() == context.DeadlineExceeded {
			utils.Warn("Tool execution timeout", "tool", name, "timeout", timeout)
			return "", fmt.Errorf("tool %q exceeded timeout of %v", name, timeout)
		}
		return "", fmt.Errorf("tool execution cancelled: %w", toolCtx.Err())
	case res := <-resultChan:
		return res.output, res.err
	}
}

func (d *Dispatcher) emit(ctx context.Context, event events.Event) {
	if d.emitter != nil {
		d.emitter.Emit(ctx, event)
	}
}

func (d *Dispatcher) emitError(ctx context.Context, err error) {
	d.emit(ctx, events.Event{
		Type:      events.EventError,
		Data:      events.ErrorData{Err: err},
		Timestamp: time.Now(),
	})
}

func (d *Dispatcher) emitDone(ctx context.Context, content string) {
	d.emit(ctx, events.Event{
		Type:      events.EventDone,
		Data:      events.MessageData{Content: content},
		Timestamp: time.Now(),
	})
}
