// Package app предоставляет переиспользуемые компоненты для инициализации
// и выполнения AI-агента в разных контекстах (CLI, TUI, HTTP и т.д.).
//
// Entry points (cmd/) делают только парсинг флагов и orchestration,
// вся инициализация инкапсулирована здесь.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ilkoid/srag-ai/pkg/agent"
	"github.com/ilkoid/srag-ai/pkg/config"
	"github.com/ilkoid/srag-ai/pkg/datasus"
	"github.com/ilkoid/srag-ai/pkg/events"
	"github.com/ilkoid/srag-ai/pkg/llm"
	"github.com/ilkoid/srag-ai/pkg/models"
	"github.com/ilkoid/srag-ai/pkg/s3storage"
	"github.com/ilkoid/srag-ai/pkg/sragdb"
	"github.com/ilkoid/srag-ai/pkg/state"
	"github.com/ilkoid/srag-ai/pkg/tools"
	"github.com/ilkoid/srag-ai/pkg/utils"
)

// Components содержит все компоненты приложения для переиспользования.
//
// Одна структура инициализации для TUI чата и HTTP API,
// чтобы не дублировать wiring между entry points.
type Components struct {
	Config     *config.AppConfig
	State      *state.CoreState
	LLM        llm.Provider
	Models     *models.Registry
	DataSus    *datasus.Client
	Store      *sragdb.Store
	Dispatcher *agent.Dispatcher
}

// Close освобождает ресурсы компонентов.
func (c *Components) Close() error {
	if c.Store != nil {
		return c.Store.Close()
	}
	return nil
}

// SetEmitter подключает эмиттер событий к диспетчеру и ко всем
// инструментам которые умеют отправлять события прогресса.
func (c *Components) SetEmitter(e events.Emitter) {
	c.Dispatcher.SetEmitter(e)

	registry := c.State.GetToolsRegistry()
	for _, name := range registry.Names() {
		tool, err := registry.Get(name)
		if err != nil {
			continue
		}
		if aware, ok := tool.(interface{ SetEmitter(events.Emitter) }); ok {
			aware.SetEmitter(e)
		}
	}
}

// ConfigPathFinder определяет стратегию поиска пути к config.yaml.
//
// По умолчанию используется DefaultConfigPathFinder, но можно
// реализовать свою стратегию для тестов или специальных случаев.
type ConfigPathFinder interface {
	FindConfigPath() string
}

// DefaultConfigPathFinder реализует стандартную стратегию поиска config.yaml.
//
// Порядок поиска:
// 1. Флаг -config (если указан)
// 2. Текущая директория (./config.yaml)
// 3. Директория бинарника
// 4. Родительские директории (для запуска из cmd/)
type DefaultConfigPathFinder struct {
	// ConfigFlag - значение флага -config, если указан
	ConfigFlag string
}

// FindConfigPath находит путь к config.yaml.
func (f *DefaultConfigPathFinder) FindConfigPath() string {
	if f.ConfigFlag != "" {
		return resolveAbsPath(f.ConfigFlag)
	}

	cfgPath := "config.yaml"
	if _, err := os.Stat(cfgPath); err == nil {
		return resolveAbsPath(cfgPath)
	}

	if execPath, err := os.Executable(); err == nil {
		binDir := filepath.Dir(execPath)
		cfgPath = filepath.Join(binDir, "config.yaml")
		if _, err := os.Stat(cfgPath); err == nil {
			return cfgPath
		}
	}

	for _, candidate := range []string{
		filepath.Join("..", "config.yaml"),
		filepath.Join("..", "..", "config.yaml"),
	} {
		if _, err := os.Stat(candidate); err == nil {
			return resolveAbsPath(candidate)
		}
	}

	// Дефолтный путь (даже если не существует)
	return resolveAbsPath("config.yaml")
}

func resolveAbsPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// InitializeConfig инициализирует и загружает конфигурацию.
//
// Все настройки в YAML с поддержкой ENV-переменных (${VAR}).
func InitializeConfig(finder ConfigPathFinder) (*config.AppConfig, string, error) {
	cfgPath := finder.FindConfigPath()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config from %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}

// Initialize создаёт и инициализирует все компоненты приложения.
//
// systemPrompt == "" использует agent.DefaultSystemPrompt.
func Initialize(cfg *config.AppConfig, systemPrompt string) (*Components, error) {
	utils.Info("Initializing components", "db", cfg.DB.Path, "demo", cfg.DataSus.Demo)

	// 1. Локальное sqlite хранилище датасета
	dbPath := cfg.DB.Path
	if dbPath == "" {
		dbPath = "data_sus.db"
	}
	store, err := sragdb.Open(dbPath)
	if err != nil {
		utils.Error("Store open failed", "path", dbPath, "error", err)
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	utils.Info("Store opened", "path", dbPath)

	// 2. Клиент открытых данных DataSus
	dsClient, err := datasus.NewFromConfig(cfg.DataSus)
	if err != nil {
		_ = store.Close()
		utils.Error("DataSus client creation failed", "error", err)
		return nil, fmt.Errorf("failed to create datasus client: %w", err)
	}
	if dsClient.IsDemo() {
		log.Println("Warning: datasus demo mode is on - using generated dataset")
		utils.Info("DataSus client in demo mode")
	}

	// 3. Опциональное S3 зеркало CSV выгрузок
	var s3Client s3storage.ClientInterface
	if cfg.S3.Enabled {
		client, err := s3storage.New(cfg.S3)
		if err != nil {
			_ = store.Close()
			utils.Error("S3 client creation failed", "error", err)
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		s3Client = client
		utils.Info("S3 mirror enabled", "bucket", cfg.S3.Bucket)
	}

	// 4. Thread-safe состояние
	st := state.NewCoreState(cfg, store, dsClient, s3Client)
	st.SetToolsRegistry(tools.NewRegistry())

	// 5. Регистрируем инструменты
	if err := SetupTools(st, cfg); err != nil {
		_ = store.Close()
		utils.Error("Tools registration failed", "error", err)
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	utils.Info("Tools registered", "names", st.GetToolsRegistry().Names())

	// 6. Реестр LLM провайдеров из конфигурации
	modelRegistry, err := models.NewRegistryFromConfig(cfg)
	if err != nil {
		_ = store.Close()
		utils.Error("Model registry creation failed", "error", err)
		return nil, fmt.Errorf("failed to create model registry: %w", err)
	}
	llmProvider, modelDef, err := modelRegistry.Get(cfg.Models.DefaultChat)
	if err != nil {
		_ = store.Close()
		utils.Error("Default chat model not found", "name", cfg.Models.DefaultChat)
		return nil, fmt.Errorf("default chat model: %w", err)
	}
	utils.Info("LLM provider created",
		"provider", modelDef.Provider,
		"model", modelDef.ModelName,
		"registered", modelRegistry.ListNames(),
	)

	// 7. Диспетчер
	if systemPrompt == "" {
		systemPrompt = agent.DefaultSystemPrompt
	}
	dispatcher := agent.NewDispatcher(llmProvider, st, systemPrompt)
	for name, toolCfg := range cfg.Tools {
		if toolCfg.Timeout > 0 {
			dispatcher.SetToolTimeout(name, toolCfg.Timeout)
		}
	}

	return &Components{
		Config:     cfg,
		State:      st,
		LLM:        llmProvider,
		Models:     modelRegistry,
		DataSus:    dsClient,
		Store:      store,
		Dispatcher: dispatcher,
	}, nil
}

// Execute выполняет один запрос пользователя через диспетчер.
//
// Переиспользуется TUI и HTTP API.
func Execute(c *Components, query string, timeout time.Duration) (*agent.Outcome, error) {
	start := time.Now()
	utils.Info("Executing query", "query", query, "timeout", timeout)

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	outcome, err := c.Dispatcher.Dispatch(ctx, query)
	if err != nil {
		utils.Error("Query failed", "error", err, "duration", time.Since(start))
		return nil, err
	}

	utils.Info("Query done", "tool", outcome.ToolName, "duration", time.Since(start))
	return outcome, nil
}
