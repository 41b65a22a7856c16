package std

import (
	"context"

	"github.com/ilkoid/srag-ai/pkg/config"
	"github.com/ilkoid/srag-ai/pkg/datasus"
	"github.com/ilkoid/srag-ai/pkg/srag"
	"github.com/ilkoid/srag-ai/pkg/tools"
)

// DataDictTool — инструмент чтения словаря данных SRAG.
//
// Возвращает описание колонок датасета и ссылку на официальный PDF.
type DataDictTool struct {
	client      *datasus.Client
	description string
}

// NewDataDictTool создает инструмент словаря данных.
func NewDataDictTool(client *datasus.Client, cfg config.ToolConfig) *DataDictTool {
	return &DataDictTool{
		client:      client,
		description: cfg.Description,
	}
}

func (t *DataDictTool) Definition() tools.ToolDefinition {
	description := t.description
	if description == "" {
		description = "Возвращает словарь данных датасета SRAG: названия колонок, их смысл и коды значений. Вызывай когда пользователь спрашивает что означает колонка или код."
	}
	return tools.ToolDefinition{
		Name:        "get_data_dict",
		Description: description,
		Parameters: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
			"required":   []string{},
		},
	}
}

func (t *DataDictTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	entries := datasus.Dictionary()

	table := &srag.Table{Columns: []string{"Column", "Description", "Values"}}
	for _, e := range entries {
		table.Rows = append(table.Rows, []string{e.Column, e.Description, e.Values})
	}

	data := map[string]any{
		"columns":        entries,
		"dictionary_url": t.client.DictionaryURL(),
	}
	return marshalPayload("Словарь данных датасета SRAG.", data, srag.TableResult(table))
}
