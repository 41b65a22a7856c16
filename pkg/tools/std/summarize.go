package std

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ilkoid/srag-ai/pkg/config"
	"github.com/ilkoid/srag-ai/pkg/srag"
	"github.com/ilkoid/srag-ai/pkg/tools"
)

// DatasetFunc отдаёт текущий датасет инструментам анализа.
//
// Обычно это state.CoreState.GetDataset (кэш поверх sqlite).
type DatasetFunc func(ctx context.Context) ([]srag.Record, error)

// SummarizeTool — инструмент суммаризации категориальных колонок.
//
// Считает медиану и частоты значений по годам.
type SummarizeTool struct {
	dataset     DatasetFunc
	description string
}

// NewSummarizeTool создает инструмент суммаризации.
func NewSummarizeTool(dataset DatasetFunc, cfg config.ToolConfig) *SummarizeTool {
	return &SummarizeTool{
		dataset:     dataset,
		description: cfg.Description,
	}
}

func (t *SummarizeTool) Definition() tools.ToolDefinition {
	description := t.description
	if description == "" {
		description = "Суммаризирует категориальные колонки датасета SRAG: медиана и частоты значений по годам. Колонки: " + strings.Join(srag.NumericColumns, ", ") + "."
	}
	return tools.ToolDefinition{
		Name:        "summarize_numerical_data",
		Description: description,
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"columns": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Колонки для суммаризации: " + strings.Join(srag.NumericColumns, ", ") + ".",
				},
				"years": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "integer"},
					"description": "Годы данных. Если пользователь не уточнил — не передавай, возьмутся все доступные (2021-2025).",
				},
			},
			"required": []string{"columns"},
		},
	}
}

func (t *SummarizeTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	var args struct {
		Columns []string `json:"columns"`
		Years   []int    `json:"years"`
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	// Пользователи пишут колонки в любом регистре
	for i, c := range args.Columns {
		args.Columns[i] = strings.ToUpper(strings.TrimSpace(c))
	}

	records, err := t.dataset(ctx)
	if err != nil {
		return "", fmt.Errorf("load dataset: %w", err)
	}

	summary, err := srag.Summarize(records, args.Columns, args.Years)
	if err != nil {
		return "", err
	}

	message := fmt.Sprintf("Сводка по колонкам %s.", strings.Join(args.Columns, ", "))
	return marshalPayload(message, summary, srag.TableResult(summary.Table()))
}
