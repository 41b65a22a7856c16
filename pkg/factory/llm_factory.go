package factory

import (
	"fmt"

	"github.com/ilkoid/srag-ai/pkg/config"
	"github.com/ilkoid/srag-ai/pkg/llm"
	"github.com/ilkoid/srag-ai/pkg/llm/openai"
)

// NewLLMProvider создает провайдера на основе конфигурации модели.
//
// ollama поднимает OpenAI-совместимый endpoint (/v1), поэтому все
// поддерживаемые провайдеры идут через один адаптер.
func NewLLMProvider(modelDef config.ModelDef) (llm.Provider, error) {
	switch modelDef.Provider {
	case "openai", "ollama", "deepseek", "zai":
		return openai.NewClient(modelDef), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s", modelDef.Provider)
	}
}
