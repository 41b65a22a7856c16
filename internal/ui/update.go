// Логика - обрабатывает нажатия клавиш, события агента и результаты запросов.

package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ilkoid/srag-ai/pkg/agent"
	"github.com/ilkoid/srag-ai/pkg/events"
	"github.com/ilkoid/srag-ai/pkg/tui"
)

// queryTimeout ограничивает время обработки одного запроса пользователя.
const queryTimeout = 10 * time.Minute

func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)

	switch msg := msg.(type) {

	// 1. Изменение размера окна терминала
	case tea.WindowSizeMsg:
		headerHeight := 1
		footerHeight := m.textarea.Height() + 2 // + граница

		// Вычисляем высоту для области контента
		vpHeight := msg.Height - headerHeight - footerHeight
		if vpHeight < 0 {
			vpHeight = 0
		}

		m.viewport.Width = msg.Width
		m.viewport.Height = vpHeight

		if !m.ready {
			m.ready = true
		}

		m.textarea.SetWidth(msg.Width)

	// 2. Клавиши
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			input := m.textarea.Value()
			if strings.TrimSpace(input) == "" {
				return m, nil
			}
			if m.isProcessing {
				// Агент занят, не запускаем второй запрос
				return m, nil
			}

			m.textarea.Reset()
			m.appendLog(userMsgStyle("USER > ") + input)
			m.isProcessing = true

			// Запускаем запрос асинхронно + крутим спиннер
			return m, tea.Batch(performQuery(m.dispatcher, input), m.spinner.Tick)
		}

	// 3. Тики спиннера пока агент работает
	case spinner.TickMsg:
		if m.isProcessing {
			m.spinner, spCmd = m.spinner.Update(msg)
			return m, spCmd
		}

	// 4. События агента (Port & Adapter)
	case tui.EventMsg:
		m.handleAgentEvent(events.Event(msg))
		// Продолжаем слушать события
		return m, tui.WaitForEvent(m.eventSub, func(event events.Event) tea.Msg {
			return tui.EventMsg(event)
		})

	// 5. Результат работы диспетчера (прилетел асинхронно)
	case agentResultMsg:
		m.isProcessing = false
		if msg.err != nil {
			m.appendLog(errorMsgStyle("ERROR: ") + msg.err.Error())
		} else if msg.outcome != nil {
			// Типизированный результат (таблица/график) рендерим отдельно
			if rendered := RenderResult(msg.outcome.Result, m.viewport.Width); rendered != "" {
				m.appendLog(rendered)
			}
			m.appendLog(systemMsgStyle("AGENT: ") + msg.outcome.Content)
		}
		m.textarea.Focus()
	}

	return m, tea.Batch(tiCmd, vpCmd)
}

// handleAgentEvent добавляет событие агента в лог чата.
func (m *MainModel) handleAgentEvent(event events.Event) {
	switch event.Type {
	case events.EventThinking:
		m.appendLog(systemMsgStyle("SYSTEM: thinking..."))

	case events.EventToolCall:
		if data, ok := event.Data.(events.ToolCallData); ok {
			m.appendLog(toolMsgStyle(fmt.Sprintf("TOOL > %s %s", data.ToolName, data.Args)))
		}

	case events.EventToolResult:
		if data, ok := event.Data.(events.ToolResultData); ok {
			m.appendLog(toolMsgStyle(fmt.Sprintf("TOOL < %s (%s)", data.ToolName, data.Duration.Round(time.Millisecond))))
		}

	case events.EventIngest:
		if data, ok := event.Data.(events.IngestData); ok {
			m.appendLog(systemMsgStyle(fmt.Sprintf(
				"SYSTEM: year %d ingested (%d new, %d duplicates)",
				data.Year, data.Inserted, data.Skipped,
			)))
		}

	case events.EventError:
		if data, ok := event.Data.(events.ErrorData); ok {
			m.appendLog(errorMsgStyle("ERROR: ") + data.Err.Error())
		}
	}
	// EventMessage/EventDone не дублируем: финальный ответ
	// придёт через agentResultMsg.
}

// Хелпер для добавления строки в лог и прокрутки вниз
func (m *MainModel) appendLog(str string) {
	newContent := fmt.Sprintf("%s\n%s", m.viewport.View(), str)
	m.viewport.SetContent(newContent)
	m.viewport.GotoBottom()
}

// performQuery запускает запрос к агенту асинхронно, чтобы не завис UI.
func performQuery(dispatcher *agent.Dispatcher, input string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		defer cancel()

		outcome, err := dispatcher.Dispatch(ctx, input)
		return agentResultMsg{outcome: outcome, err: err}
	}
}
