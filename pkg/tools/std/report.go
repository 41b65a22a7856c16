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

// ReportTool — инструмент генерации статистического отчёта за окно дат.
type ReportTool struct {
	dataset     DatasetFunc
	description string
}

// NewReportTool создает инструмент статистического отчёта.
func NewReportTool(dataset DatasetFunc, cfg config.ToolConfig) *ReportTool {
	return &ReportTool{
		dataset:     dataset,
		description: cfg.Description,
	}
}

func (t *ReportTool) Definition() tools.ToolDefinition {
	description := t.description
	if description == "" {
		description = "Генерирует статистический отчёт по SRAG за выбранные месяцы года: число случаев и смертей, летальность, госпитализации, доля реанимации и вакцинации, скорость роста случаев."
	}
	return tools.ToolDefinition{
		Name:        "generate_statistical_report",
		Description: description,
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"year": map[string]interface{}{
					"type":        "integer",
					"description": "Год анализа. Доступны 2021-2025.",
				},
				"starting_month": map[string]interface{}{
					"type":        "integer",
					"description": "Первый месяц окна анализа (1-12). По умолчанию 1.",
				},
				"ending_month": map[string]interface{}{
					"type":        "integer",
					"description": "Последний месяц окна анализа (1-12). По умолчанию 12.",
				},
				"state": map[string]interface{}{
					"type":        "string",
					"description": "Двухбуквенный код штата Бразилии ('SP', 'PE', 'CE'). 'all' или отсутствие — вся страна.",
				},
				"granularity": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"D", "W", "ME", "Q", "A"},
					"description": "Гранулярность под-периодов для расчёта роста: D (день), W (неделя), ME (месяц), Q (квартал), A (год). По умолчанию ME.",
				},
			},
			"required": []string{"year"},
		},
	}
}

func (t *ReportTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	args := struct {
		Year        int    `json:"year"`
		StartMonth  int    `json:"starting_month"`
		EndMonth    int    `json:"ending_month"`
		State       string `json:"state"`
		Granularity string `json:"granularity"`
	}{
		StartMonth:  1,
		EndMonth:    12,
		Granularity: string(srag.GranularityMonth),
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	records, err := t.dataset(ctx)
	if err != nil {
		return "", fmt.Errorf("load dataset: %w", err)
	}

	report, err := srag.BuildReport(
		records,
		args.Year,
		args.StartMonth,
		args.EndMonth,
		normalizeState(args.State),
		srag.Granularity(args.Granularity),
	)
	if err != nil {
		return "", err
	}

	message := fmt.Sprintf(
		"Отчёт за %d-%02d..%d-%02d (%s): случаев %d, смертей %d, летальность %.2f%%.",
		report.Year, report.StartMonth, report.Year, report.EndMonth, report.State,
		report.TotalCases, report.DeathCount, report.DeathRate*100,
	)
	return marshalPayload(message, report, srag.TableResult(report.Table()))
}

// normalizeState приводит фильтр штата к виду, который понимает pkg/srag:
// коды UF в верхнем регистре, "all" — в нижнем.
func normalizeState(state string) string {
	state = strings.TrimSpace(state)
	if strings.EqualFold(state, "all") {
		return "all"
	}
	return strings.ToUpper(state)
}
