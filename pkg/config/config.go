// Package config загружает конфигурацию приложения из YAML.
//
// Поддерживает подстановку переменных окружения вида ${VAR}
// и валидацию критических настроек при загрузке.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig — корневая структура конфигурации.
// Она зеркалит структуру config.yaml.
type AppConfig struct {
	Models  ModelsConfig          `yaml:"models"`
	Tools   map[string]ToolConfig `yaml:"tools"`
	DataSus DataSusConfig         `yaml:"datasus"`
	S3      S3Config              `yaml:"s3"`
	DB      DBConfig              `yaml:"db"`
	API     APIConfig             `yaml:"api"`
	App     AppSpecific           `yaml:"app"`
}

// ModelsConfig — настройки AI моделей.
type ModelsConfig struct {
	DefaultChat string              `yaml:"default_chat"` // Алиас модели по умолчанию
	Definitions map[string]ModelDef `yaml:"definitions"`  // Словарь определений моделей
}

// ModelDef — параметры конкретной модели.
type ModelDef struct {
	Provider    string        `yaml:"provider"`   // "openai", "ollama", "deepseek" и т.д.
	ModelName   string        `yaml:"model_name"` // Реальное имя в API
	APIKey      string        `yaml:"api_key"`    // Поддерживает ${VAR}
	BaseURL     string        `yaml:"base_url"`   // Для OpenAI-совместимых API (ollama и т.п.)
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"` // Парсится из строк вида "60s", "1m"
}

// ToolConfig — настройки инструментов.
type ToolConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Description string        `yaml:"description"` // Переопределение описания для LLM
	Timeout     time.Duration `yaml:"timeout"`
}

// DataSusConfig — настройки клиента открытых данных DataSus.
type DataSusConfig struct {
	BaseURL       string `yaml:"base_url"`       // Страница датасета SRAG
	DictionaryURL string `yaml:"dictionary_url"` // Словарь данных
	UserAgent     string `yaml:"user_agent"`
	RateLimit     int    `yaml:"rate_limit"`     // Запросов в минуту
	BurstLimit    int    `yaml:"burst_limit"`    // Burst для rate limiter
	RetryAttempts int    `yaml:"retry_attempts"` // Количество retry попыток
	Timeout       string `yaml:"timeout"`        // Timeout для HTTP запросов (например, "30s")
	Demo          bool   `yaml:"demo"`           // Сгенерированный датасет вместо сети
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *DataSusConfig) GetDefaults() DataSusConfig {
	result := *c // Копируем текущие значения

	if result.BaseURL == "" {
		result.BaseURL = "https://opendatasus.saude.gov.br/dataset/srag-2021-a-2024"
	}
	if result.DictionaryURL == "" {
		result.DictionaryURL = "https://opendatasus.saude.gov.br/dataset/srag-2021-a-2024/dicionario-de-dados"
	}
	if result.UserAgent == "" {
		result.UserAgent = "srag-ai/1.0"
	}
	if result.RateLimit == 0 {
		result.RateLimit = 30 // запросов в минуту
	}
	if result.BurstLimit == 0 {
		result.BurstLimit = 3
	}
	if result.RetryAttempts == 0 {
		result.RetryAttempts = 3
	}
	if result.Timeout == "" {
		result.Timeout = "60s"
	}

	return result
}

// S3Config — настройки объектного хранилища для зеркала CSV файлов.
//
// Опционально: если Enabled == false, CSV скачиваются напрямую по HTTP.
type S3Config struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"` // Поддерживает ${VAR}
	SecretKey string `yaml:"secret_key"` // Поддерживает ${VAR}
	UseSSL    bool   `yaml:"use_ssl"`
}

// DBConfig — настройки локального sqlite хранилища датасета.
type DBConfig struct {
	Path string `yaml:"path"` // Путь к файлу базы, ":memory:" для тестов
}

// APIConfig — настройки HTTP API сервера.
type APIConfig struct {
	Addr string `yaml:"addr"` // Адрес вида ":8000"
}

// AppSpecific — общие настройки приложения.
type AppSpecific struct {
	Debug        bool   `yaml:"debug"`
	SystemPrompt string `yaml:"system_prompt"` // Переопределение системного промпта агента
}

// Load читает YAML файл, подставляет ENV переменные и возвращает готовую структуру.
func Load(path string) (*AppConfig, error) {
	// 1. Проверяем существование файла
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found at: %s", path)
	}

	// 2. Читаем файл целиком
	rawBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// 3. Подставляем переменные окружения.
	// os.ExpandEnv заменяет ${VAR} или $VAR на значение из системы.
	contentWithEnv := os.ExpandEnv(string(rawBytes))

	// 4. Парсим YAML в структуру
	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(contentWithEnv), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	// 5. Валидируем критические настройки
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// validate проверяет обязательные поля.
func (c *AppConfig) validate() error {
	if c.DB.Path == "" {
		c.DB.Path = "data_sus.db"
	}
	if c.API.Addr == "" {
		c.API.Addr = ":8000"
	}
	if c.Models.DefaultChat != "" {
		if _, ok := c.Models.Definitions[c.Models.DefaultChat]; !ok {
			return fmt.Errorf("default_chat model '%s' is not defined in definitions", c.Models.DefaultChat)
		}
	}
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("s3.bucket is required when s3.enabled")
		}
		if c.S3.Endpoint == "" {
			return fmt.Errorf("s3.endpoint is required when s3.enabled")
		}
	}
	return nil
}

// GetChatModel возвращает конфигурацию модели по умолчанию или по имени.
func (c *AppConfig) GetChatModel(name string) (ModelDef, bool) {
	if name == "" {
		name = c.Models.DefaultChat
	}
	m, ok := c.Models.Definitions[name]
	return m, ok
}

// GetToolConfig возвращает конфигурацию инструмента по имени.
//
// Если секция не задана, возвращает включённый по умолчанию инструмент.
func (c *AppConfig) GetToolConfig(name string) ToolConfig {
	if c.Tools == nil {
		return ToolConfig{Enabled: true}
	}
	tc, ok := c.Tools[name]
	if !ok {
		return ToolConfig{Enabled: true}
	}
	return tc
}
