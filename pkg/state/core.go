// Package state предоставляет thread-safe core состояние для AI-агента.
//
// CoreState содержит переиспользуемую бизнес-логику фреймворка:
// - Конфигурацию приложения
// - Локальное sqlite хранилище датасета SRAG
// - Клиент открытых данных DataSus
// - Опциональное S3 зеркало CSV выгрузок
// - Реестр инструментов (tools registry)
// - Историю диалога
// - Кэш датасета (Working Memory)
//
// Все изменения runtime полей защищены мьютексом; пакет не зависит
// от internal/ и готов к переиспользованию в CLI, TUI и HTTP API.
package state

import (
	"context"
	"sync"

	"github.com/ilkoid/srag-ai/pkg/config"
	"github.com/ilkoid/srag-ai/pkg/datasus"
	"github.com/ilkoid/srag-ai/pkg/llm"
	"github.com/ilkoid/srag-ai/pkg/s3storage"
	"github.com/ilkoid/srag-ai/pkg/srag"
	"github.com/ilkoid/srag-ai/pkg/sragdb"
	"github.com/ilkoid/srag-ai/pkg/tools"
)

// CoreState представляет thread-safe core состояние AI-агента.
//
// Может использоваться в различных приложениях: CLI, TUI, HTTP API.
type CoreState struct {
	// Config - конфигурация приложения (YAML with ENV support)
	Config *config.AppConfig

	// Store - локальное sqlite хранилище записей SRAG
	Store *sragdb.Store

	// DataSus - клиент открытых данных (скачивание выгрузок)
	DataSus *datasus.Client

	// S3 - опциональное зеркало CSV выгрузок; nil если s3.enabled=false
	S3 s3storage.ClientInterface

	// ToolsRegistry - реестр инструментов
	// Все инструменты регистрируются через Registry.Register()
	ToolsRegistry *tools.Registry

	// mu защищает доступ к History и кэшу датасета
	mu sync.RWMutex

	// History - хронология диалога (User <-> Agent)
	History []llm.Message

	// dataset - кэш записей из Store (Working Memory)
	// Инструменты читают его вместо повторных запросов к sqlite;
	// сбрасывается после загрузки новых выгрузок.
	dataset []srag.Record
	loaded  bool
}

// NewCoreState создает новое thread-safe core состояние.
//
// ToolsRegistry устанавливается после создания, когда инструменты
// зарегистрированы.
func NewCoreState(cfg *config.AppConfig, store *sragdb.Store, client *datasus.Client, s3Client s3storage.ClientInterface) *CoreState {
	return &CoreState{
		Config:  cfg,
		Store:   store,
		DataSus: client,
		S3:      s3Client,
		History: make([]llm.Message, 0),
	}
}

// SetToolsRegistry устанавливает реестр инструментов.
func (s *CoreState) SetToolsRegistry(registry *tools.Registry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ToolsRegistry = registry
}

// GetToolsRegistry возвращает реестр инструментов.
func (s *CoreState) GetToolsRegistry() *tools.Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ToolsRegistry
}

// --- Thread-Safe History Methods ---

// AppendMessage безопасно добавляет сообщение в историю диалога.
func (s *CoreState) AppendMessage(msg llm.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.History = append(s.History, msg)
}

// GetHistory возвращает копию истории диалога.
//
// Возвращает копию слайса, чтобы избежать race condition при изменении.
// Используется для рендера в UI, отправки в LLM и логирования.
func (s *CoreState) GetHistory() []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dst := make([]llm.Message, len(s.History))
	copy(dst, s.History)
	return dst
}

// ClearHistory очищает историю диалога.
//
// Используется для начала новой сессии или сброса контекста.
func (s *CoreState) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.History = make([]llm.Message, 0)
}

// --- Dataset Cache (Working Memory Pattern) ---

// GetDataset возвращает записи датасета, лениво загружая их из Store.
//
// "Working Memory" паттерн: sqlite читается один раз, дальше инструменты
// работают с кэшем в памяти. После загрузки новых выгрузок кэш
// сбрасывается через InvalidateDataset().
func (s *CoreState) GetDataset(ctx context.Context) ([]srag.Record, error) {
	s.mu.RLock()
	if s.loaded {
		records := s.dataset
		s.mu.RUnlock()
		return records, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	// Перепроверка после получения write-блокировки
	if s.loaded {
		return s.dataset, nil
	}

	records, err := s.Store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	s.dataset = records
	s.loaded = true
	return records, nil
}

// InvalidateDataset сбрасывает кэш датасета.
//
// Вызывается после вставки новых записей в Store.
func (s *CoreState) InvalidateDataset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataset = nil
	s.loaded = false
}

// --- Context Building ---

// BuildAgentContext собирает полный контекст для генеративного запроса.
//
// Объединяет системный промпт и историю диалога.
// Возвращаемый массив сообщений готов для передачи в LLM.
func (s *CoreState) BuildAgentContext(systemPrompt string) []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := make([]llm.Message, 0, len(s.History)+1)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: systemPrompt,
	})
	messages = append(messages, s.History...)

	return messages
}
