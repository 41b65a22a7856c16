package app

import (
	"fmt"

	"github.com/ilkoid/srag-ai/pkg/config"
	"github.com/ilkoid/srag-ai/pkg/state"
	"github.com/ilkoid/srag-ai/pkg/tools"
	"github.com/ilkoid/srag-ai/pkg/tools/std"
	"github.com/ilkoid/srag-ai/pkg/utils"
)

// SetupTools регистрирует инструменты агента в registry состояния.
//
// Каждый инструмент можно выключить или переопределить его описание
// через секцию tools в config.yaml. Не указанные в конфиге инструменты
// включены по умолчанию.
func SetupTools(st *state.CoreState, cfg *config.AppConfig) error {
	registry := st.GetToolsRegistry()
	if registry == nil {
		registry = tools.NewRegistry()
		st.SetToolsRegistry(registry)
	}

	// Конструкторы отложены в замыкания, чтобы не создавать
	// выключенные инструменты.
	toolFactories := map[string]func(config.ToolConfig) tools.Tool{
		"store_datasets": func(tc config.ToolConfig) tools.Tool {
			return std.NewStoreDatasetsTool(st.DataSus, st.Store, st.S3, st.InvalidateDataset, tc)
		},
		"get_data_dict": func(tc config.ToolConfig) tools.Tool {
			return std.NewDataDictTool(st.DataSus, tc)
		},
		"summarize_numerical_data": func(tc config.ToolConfig) tools.Tool {
			return std.NewSummarizeTool(st.GetDataset, tc)
		},
		"generate_statistical_report": func(tc config.ToolConfig) tools.Tool {
			return std.NewReportTool(st.GetDataset, tc)
		},
		"generate_temporal_graphical_report": func(tc config.ToolConfig) tools.Tool {
			return std.NewGraphTool(st.GetDataset, tc)
		},
	}

	for name, build := range toolFactories {
		tc := cfg.GetToolConfig(name)
		if !tc.Enabled {
			utils.Info("Tool disabled by config", "tool", name)
			continue
		}
		if err := registry.Register(build(tc)); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", name, err)
		}
	}

	return nil
}
