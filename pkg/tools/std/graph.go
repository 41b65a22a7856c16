package std

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ilkoid/srag-ai/pkg/config"
	"github.com/ilkoid/srag-ai/pkg/srag"
	"github.com/ilkoid/srag-ai/pkg/tools"
)

// GraphTool — инструмент временного графика случаев SRAG.
//
// Возвращает точки ряда; отрисовка — забота рендера (TUI или API).
type GraphTool struct {
	dataset     DatasetFunc
	description string
}

// NewGraphTool создает инструмент временного графика.
func NewGraphTool(dataset DatasetFunc, cfg config.ToolConfig) *GraphTool {
	return &GraphTool{
		dataset:     dataset,
		description: cfg.Description,
	}
}

func (t *GraphTool) Definition() tools.ToolDefinition {
	description := t.description
	if description == "" {
		description = "Строит временной график количества случаев SRAG за год с выбранной гранулярностью, опционально по одному штату. Вызывай когда пользователь просит график, динамику или тренд."
	}
	return tools.ToolDefinition{
		Name:        "generate_temporal_graphical_report",
		Description: description,
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"year": map[string]interface{}{
					"type":        "integer",
					"description": "Год анализа. Доступны 2021-2025. Если пользователь не уточнил — 2025.",
				},
				"state": map[string]interface{}{
					"type":        "string",
					"description": "Двухбуквенный код штата Бразилии ('SP', 'PE', 'CE'). Отсутствие — вся страна.",
				},
				"granularity": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"D", "W", "ME", "Q", "A"},
					"description": "Гранулярность графика: D (день), W (неделя), ME (месяц), Q (квартал), A (год). По умолчанию ME.",
				},
			},
			"required": []string{},
		},
	}
}

func (t *GraphTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	args := struct {
		Year        int    `json:"year"`
		State       string `json:"state"`
		Granularity string `json:"granularity"`
	}{
		Year:        2025,
		Granularity: string(srag.GranularityMonth),
	}
	if argsJSON != "" && argsJSON != "{}" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
	}
	if args.Year == 0 {
		args.Year = 2025
	}
	if args.Granularity == "" {
		args.Granularity = string(srag.GranularityMonth)
	}

	records, err := t.dataset(ctx)
	if err != nil {
		return "", fmt.Errorf("load dataset: %w", err)
	}

	series, err := srag.BuildSeries(records, args.Year, normalizeState(args.State), srag.Granularity(args.Granularity))
	if err != nil {
		return "", err
	}

	message := fmt.Sprintf(
		"График случаев SRAG за %d (%s, гранулярность %s): %d точек.",
		series.Year, series.State, series.Granularity, series.TotalPoints(),
	)
	return marshalPayload(message, series, srag.SeriesResult(series))
}
