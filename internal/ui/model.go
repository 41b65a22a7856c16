// Package ui реализует Model компонент Bubble Tea TUI.
//
// Содержит структуру UI и функцию инициализации.
package ui

import (
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ilkoid/srag-ai/pkg/agent"
	"github.com/ilkoid/srag-ai/pkg/events"
	"github.com/ilkoid/srag-ai/pkg/state"
	"github.com/ilkoid/srag-ai/pkg/tui"
)

// agentResultMsg — сообщение с результатом работы диспетчера.
type agentResultMsg struct {
	outcome *agent.Outcome
	err     error
}

// MainModel представляет главную модель UI (Bubble Tea Model).
//
// Содержит все компоненты TUI:
//   - viewport: область лога чата (только для чтения)
//   - textarea: поле ввода пользователя
//   - spinner: индикатор работы агента
//   - coreState: ссылка на core состояние
//   - dispatcher: AI агент
//   - eventSub: подписчик на события агента (Port & Adapter)
type MainModel struct {
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	coreState  *state.CoreState
	dispatcher *agent.Dispatcher

	currentModel string // Имя LLM модели для отображения в хедере
	isProcessing bool   // Флаг занятости для spinner

	// err хранит ошибку запуска, если была.
	// atomic.Value для thread-safe доступа из tea.Cmd горутин.
	err atomic.Value

	// ready флаг для первой инициализации размеров
	ready bool

	// Port & Adapter: подписчик на события агента
	eventSub events.Subscriber
}

// getErr возвращает ошибку thread-safe.
func (m *MainModel) getErr() error {
	if v := m.err.Load(); v != nil {
		if err, ok := v.(error); ok {
			return err
		}
	}
	return nil
}

// InitialModel создает начальное состояние UI.
//
// Инициализирует:
//   - Поле ввода с placeholder'ом
//   - Вьюпорт для лога с приветственным сообщением
//   - Спиннер для индикации работы агента
//
// Принимает CoreState, Dispatcher и events.Subscriber для работы с агентом.
func InitialModel(coreState *state.CoreState, dispatcher *agent.Dispatcher, currentModel string, eventSub events.Subscriber) MainModel {
	// 1. Настройка поля ввода
	ta := textarea.New()
	ta.Placeholder = "Спросите про датасет SRAG (например: сколько смертей в 2024 году?)..."
	ta.Focus()
	ta.Prompt = "┃ "
	ta.CharLimit = 500
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	// 2. Настройка вьюпорта (лог чата)
	// Размеры (0,0) обновятся при первом событии WindowSizeMsg
	vp := viewport.New(0, 0)
	vp.SetContent(fmt.Sprintf("%s\n%s\n",
		systemMsgStyle("SRAG AI v0.1 Initialized."),
		systemMsgStyle("System ready. Waiting for input..."),
	))

	// 3. Спиннер
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return MainModel{
		textarea:     ta,
		viewport:     vp,
		spinner:      sp,
		coreState:    coreState,
		dispatcher:   dispatcher,
		currentModel: currentModel,
		isProcessing: false,
		ready:        false,
		eventSub:     eventSub,
	}
}

// Init запускается один раз при старте Bubble Tea программы.
//
// Возвращает команду для:
//   - Запуска мигания курсора в поле ввода
//   - Чтения событий из агента (Port & Adapter)
func (m MainModel) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		tui.ReceiveEventCmd(m.eventSub, func(event events.Event) tea.Msg {
			return tui.EventMsg(event)
		}),
	)
}
