// SRAG AI HTTP API Application
// Точка входа для HTTP API поверх агента и датасета SRAG
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ilkoid/srag-ai/internal/api"
	appcomponents "github.com/ilkoid/srag-ai/pkg/app"
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
	addrFlag := flag.String("addr", "", "listen address (overrides config)")
	flag.Parse()

	// 0. Инициализируем логгер
	if err := utils.InitLogger(); err != nil {
		log.Printf("Warning: failed to init logger: %v", err)
	}
	defer utils.Close()

	utils.Info("Application started", "app", "srag-api")

	// 1. Конфигурация
	cfg, cfgPath, err := appcomponents.InitializeConfig(&appcomponents.DefaultConfigPathFinder{
		ConfigFlag: *configFlag,
	})
	if err != nil {
		utils.Error("Failed to load config", "error", err, "path", cfgPath)
		return err
	}
	log.Printf("Config loaded successfully from %s", cfgPath)

	// 2. Все компоненты приложения
	components, err := appcomponents.Initialize(cfg, cfg.App.SystemPrompt)
	if err != nil {
		utils.Error("Components initialization failed", "error", err)
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer components.Close()

	// 3. Graceful shutdown по SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer utils.SetupGracefulShutdown(cancel)()

	// 4. HTTP сервер
	addr := *addrFlag
	if addr == "" {
		addr = cfg.API.Addr
	}

	server := api.New(components.State, components.Dispatcher)
	log.Printf("Starting API server on %s", addr)
	if err := server.Run(ctx, addr); err != nil {
		utils.Error("API server error", "error", err)
		return fmt.Errorf("server error: %w", err)
	}

	utils.Info("Application exited normally")
	return nil
}
