package srag

import "fmt"

// DataError — валидный вызов, но запрошенный срез данных пуст или непригоден.
//
// Отличается от ошибки валидации: аргументы корректны по схеме,
// просто данных под них нет (пустое окно дат, незагруженный год,
// штат без записей). Показывается пользователю как сообщение,
// повторных попыток не делается.
type DataError struct {
	Reason string
}

// Error реализует интерфейс error.
func (e *DataError) Error() string {
	return e.Reason
}

// NewDataError создаёт DataError с форматированным сообщением.
func NewDataError(format string, args ...any) *DataError {
	return &DataError{Reason: fmt.Sprintf(format, args...)}
}
