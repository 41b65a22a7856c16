// Интерфейс Провайдера через который работает всё приложение.

package llm

import "context"

// Provider — абстракция над LLM API.
//
// Все адаптеры (OpenAI-совместимые API, ollama и т.д.) реализуют
// этот интерфейс. Приложение никогда не зависит от конкретного SDK.
type Provider interface {
	// Generate принимает контекст и историю сообщений.
	// Возвращает ответ модели в унифицированном формате Message.
	// tools — опциональный список определений функций
	// (если провайдер поддерживает Function Calling).
	Generate(ctx context.Context, messages []Message, tools ...any) (Message, error)
}
