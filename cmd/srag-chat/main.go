// SRAG AI TUI Application
// Основная точка входа для интерактивного чата с датасетом SRAG
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ilkoid/srag-ai/internal/ui"
	appcomponents "github.com/ilkoid/srag-ai/pkg/app"
	"github.com/ilkoid/srag-ai/pkg/config"
	"github.com/ilkoid/srag-ai/pkg/events"
	"github.com/ilkoid/srag-ai/pkg/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configFlag := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	// 0. Инициализируем логгер
	if err := utils.InitLogger(); err != nil {
		log.Printf("Warning: failed to init logger: %v", err)
	}
	defer utils.Close()

	utils.Info("Application started", "app", "srag-chat")

	// 1. Конфигурация
	cfg, cfgPath, err := appcomponents.InitializeConfig(&appcomponents.DefaultConfigPathFinder{
		ConfigFlag: *configFlag,
	})
	if err != nil {
		utils.Error("Failed to load config", "error", err, "path", cfgPath)
		return err
	}

	log.Printf("Config loaded successfully from %s", cfgPath)
	utils.Info("Config loaded", "path", cfgPath, "default_model", cfg.Models.DefaultChat)
	logKeysInfo(cfg)

	// 2. Все компоненты приложения (store, datasus, tools, LLM, dispatcher)
	components, err := appcomponents.Initialize(cfg, cfg.App.SystemPrompt)
	if err != nil {
		utils.Error("Components initialization failed", "error", err)
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer components.Close()

	// 3. Emitter для событий агента и инструментов (Port & Adapter)
	emitter := events.NewChanEmitter(100)
	components.SetEmitter(emitter)
	defer emitter.Close()

	// 4. TUI модель с подписчиком на события
	tuiModel := ui.InitialModel(
		components.State,
		components.Dispatcher,
		cfg.Models.DefaultChat,
		emitter.Subscribe(),
	)

	// 5. Запускаем Bubble Tea программу
	log.Println("Starting TUI...")
	utils.Info("Starting TUI")

	p := tea.NewProgram(
		tuiModel,
		// Без AltScreen - позволяет выделять текст мышкой и копировать в буфер обмена
	)

	if _, err := p.Run(); err != nil {
		utils.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	utils.Info("Application exited normally")
	return nil
}

// maskKey показывает первые 8 символов ключа для идентификации.
func maskKey(key string) string {
	if key == "" {
		return "NOT SET"
	}
	if len(key) <= 8 {
		return key + "..."
	}
	return key[:8] + "..."
}

// logKeysInfo логирует информацию о загруженных API ключах.
func logKeysInfo(cfg *config.AppConfig) {
	log.Println("=== API Keys Status ===")

	if len(cfg.Models.Definitions) > 0 {
		for name, modelDef := range cfg.Models.Definitions {
			log.Printf("  API key (model: %s): %s", name, maskKey(modelDef.APIKey))
			break // Показываем только первый
		}
	}

	if cfg.S3.Enabled {
		log.Printf("  S3_ACCESS_KEY: %s", maskKey(cfg.S3.AccessKey))
		log.Printf("  S3_SECRET_KEY: %s", maskKey(cfg.S3.SecretKey))
	}

	log.Println("======================")
}
