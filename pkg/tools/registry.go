// Реестр для хранения, поиска и валидации инструментов.
package tools

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationError — отклонённый вызов инструмента.
//
// Возвращается когда имя инструмента неизвестно или аргументы
// не прошли валидацию по JSON Schema. Handler при этом НЕ вызывается:
// вызов отклоняется целиком, частичное выполнение невозможно.
type ValidationError struct {
	Tool   string   // Имя инструмента из вызова
	Issues []string // Список нарушений схемы (пустой для unknown tool)
	msg    string
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	return e.msg
}

// newUnknownToolError создаёт ValidationError для незарегистрированного инструмента.
func newUnknownToolError(name string) *ValidationError {
	return &ValidationError{
		Tool: name,
		msg:  fmt.Sprintf("tool '%s' is not registered", name),
	}
}

// newArgsError создаёт ValidationError для аргументов не прошедших схему.
func newArgsError(name string, issues []string) *ValidationError {
	return &ValidationError{
		Tool:   name,
		Issues: issues,
		msg:    fmt.Sprintf("tool '%s': invalid arguments: %v", name, issues),
	}
}

// entry — зарегистрированный инструмент вместе со скомпилированной схемой.
type entry struct {
	tool   Tool
	schema *gojsonschema.Schema
}

// Registry — потокобезопасное хранилище инструментов.
//
// Регистрация происходит один раз при старте приложения, после чего
// реестр используется только для чтения (Get / ValidateCall / GetDefinitions).
type Registry struct {
	mu    sync.RWMutex
	tools map[string]entry
}

// NewRegistry создает новый пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]entry),
	}
}

// compileDefinition проверяет что ToolDefinition корректна и компилирует схему.
//
// Валидирует:
//   - Name не пустой
//   - Parameters является JSON объектом со структурой type == "object"
//   - Схема компилируется gojsonschema (битые enum/required ловятся здесь)
func compileDefinition(def ToolDefinition) (*gojsonschema.Schema, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("tool name cannot be empty")
	}

	if def.Parameters == nil {
		return nil, fmt.Errorf("tool '%s': parameters cannot be nil", def.Name)
	}

	typeVal, ok := def.Parameters["type"]
	if !ok {
		return nil, fmt.Errorf("tool '%s': parameters must have 'type' field", def.Name)
	}
	typeStr, ok := typeVal.(string)
	if !ok || typeStr != "object" {
		return nil, fmt.Errorf("tool '%s': parameters.type must be 'object', got: %v", def.Name, typeVal)
	}

	schemaJSON, err := json.Marshal(def.Parameters)
	if err != nil {
		return nil, fmt.Errorf("tool '%s': failed to marshal parameters: %w", def.Name, err)
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("tool '%s': invalid parameters schema: %w", def.Name, err)
	}

	return schema, nil
}

// Register добавляет инструмент в реестр с валидацией схемы.
//
// Возвращает ошибку если определение инструмента не валидно.
func (r *Registry) Register(tool Tool) error {
	def := tool.Definition()

	schema, err := compileDefinition(def)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[def.Name] = entry{tool: tool, schema: schema}
	return nil
}

// Get ищет инструмент по имени.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.tools[name]
	if !ok {
		return nil, newUnknownToolError(name)
	}
	return e.tool, nil
}

// ValidateCall проверяет вызов инструмента до выполнения.
//
// Инвариант: имя должно ссылаться на зарегистрированный инструмент,
// аргументы — удовлетворять его схеме. Любое нарушение возвращает
// *ValidationError, и вызывающая сторона обязана НЕ выполнять handler.
func (r *Registry) ValidateCall(name string, argsJSON string) error {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return newUnknownToolError(name)
	}

	// Пустые аргументы трактуем как пустой объект — LLM часто
	// опускает "{}" для инструментов без параметров.
	if argsJSON == "" {
		argsJSON = "{}"
	}

	result, err := e.schema.Validate(gojsonschema.NewStringLoader(argsJSON))
	if err != nil {
		// Аргументы не являются валидным JSON
		return newArgsError(name, []string{fmt.Sprintf("invalid JSON: %v", err)})
	}

	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, resErr := range result.Errors() {
			issues = append(issues, resErr.String())
		}
		return newArgsError(name, issues)
	}

	return nil
}

// GetDefinitions возвращает список всех определений для отправки в LLM.
func (r *Registry) GetDefinitions() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]ToolDefinition, 0, len(r.tools))
	for _, e := range r.tools {
		defs = append(defs, e.tool.Definition())
	}
	return defs
}

// Names возвращает имена всех зарегистрированных инструментов.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}
