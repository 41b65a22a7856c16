// Package std содержит стандартные инструменты агента SRAG.
//
// Инструменты — тонкие обёртки над pkg/srag, pkg/sragdb и pkg/datasus
// для LLM function calling. Каждый инструмент возвращает JSON конверт
// toolPayload: message для LLM плюс типизированный Result для рендера.
package std

import (
	"encoding/json"

	"github.com/ilkoid/srag-ai/pkg/srag"
)

// toolPayload — JSON конверт ответа инструмента.
//
// Message — человекочитаемое резюме, которое LLM перескажет пользователю.
// Data — доменные данные для LLM (сводка, отчёт, счётчики).
// Result — типизированный результат для рендера в UI.
type toolPayload struct {
	Status  string       `json:"status"`
	Message string       `json:"message,omitempty"`
	Data    any          `json:"data,omitempty"`
	Result  *srag.Result `json:"result,omitempty"`
}

// marshalPayload сериализует конверт успешного ответа.
func marshalPayload(message string, data any, result srag.Result) (string, error) {
	out, err := json.Marshal(toolPayload{
		Status:  "success",
		Message: message,
		Data:    data,
		Result:  &result,
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ParseResult извлекает типизированный результат из ответа инструмента.
//
// Возвращает false если ответ — не наш конверт (инструмент стороннего
// пакета) или конверт без Result.
func ParseResult(output string) (*srag.Result, bool) {
	var payload toolPayload
	if err := json.Unmarshal([]byte(output), &payload); err != nil {
		return nil, false
	}
	if payload.Result == nil || payload.Result.Kind == "" {
		return nil, false
	}
	return payload.Result, true
}
