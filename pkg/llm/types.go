// Базовые типы — определяем универсальный язык общения с моделями.
package llm

// Role — роль участника диалога.
type Role string

// Константы ролей.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message — одно сообщение диалога.
//
// Унифицированный формат: провайдеры конвертируют его
// в свой SDK-специфичный вид и обратно.
type Message struct {
	Role    Role   // system / user / assistant / tool
	Content string // Текст сообщения

	// ToolCalls — вызовы инструментов, если модель решила их сделать.
	// Заполняется только для Role == RoleAssistant.
	ToolCalls []ToolCall

	// ToolCallID — идентификатор вызова, на который отвечает это сообщение.
	// Заполняется только для Role == RoleTool.
	ToolCallID string
}

// ToolCall — запрос модели на вызов инструмента.
//
// Args — это сырой JSON с аргументами, как его прислала LLM.
// Валидация аргументов происходит на стороне диспетчера, не здесь.
type ToolCall struct {
	ID   string
	Name string
	Args string
}
