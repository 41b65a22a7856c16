// Package ui тесты для рендеринга результатов инструментов
package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/ilkoid/srag-ai/pkg/srag"
)

func TestRenderTable(t *testing.T) {
	tests := []struct {
		name            string
		table           *srag.Table
		expectedSubstrs []string
	}{
		{
			name:  "nil table renders empty",
			table: nil,
		},
		{
			name: "report table",
			table: &srag.Table{
				Columns: []string{"Metric", "Value"},
				Rows: [][]string{
					{"Total cases", "1520"},
					{"Death rate", "12.50%"},
				},
			},
			expectedSubstrs: []string{"Metric", "Value", "Total cases", "1520", "12.50%"},
		},
		{
			name: "long cell is truncated",
			table: &srag.Table{
				Columns: []string{"Description"},
				Rows: [][]string{
					{strings.Repeat("x", 100)},
				},
			},
			expectedSubstrs: []string{"…"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RenderTable(tt.table, 120)

			if tt.table == nil {
				if result != "" {
					t.Errorf("expected empty output for nil table, got: %q", result)
				}
				return
			}

			for _, expected := range tt.expectedSubstrs {
				if !strings.Contains(result, expected) {
					t.Errorf("RenderTable() output does not contain %q.\nGot:\n%s", expected, result)
				}
			}
		})
	}
}

func TestRenderChart(t *testing.T) {
	series := &srag.Series{
		X: []time.Time{
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		Y:           []int{10, 0, 5},
		State:       "SP",
		Year:        2024,
		Granularity: srag.GranularityMonth,
	}

	result := RenderChart(series, 80)

	expectedStrings := []string{
		"year 2024",
		"state SP",
		"2024-01-01",
		"2024-02-01",
		"2024-03-01",
		"█",
	}
	for _, expected := range expectedStrings {
		if !strings.Contains(result, expected) {
			t.Errorf("RenderChart() output does not contain %q.\nGot:\n%s", expected, result)
		}
	}

	// Нулевой бакет рисуется без столбика, но с числом
	if !strings.Contains(result, " 0\n") {
		t.Errorf("expected zero bucket line in chart output:\n%s", result)
	}

	// Print output for visual verification
	t.Logf("Rendered output:\n%s", result)
}

func TestRenderChartEmpty(t *testing.T) {
	if got := RenderChart(nil, 80); got != "" {
		t.Errorf("expected empty output for nil series, got %q", got)
	}
	if got := RenderChart(&srag.Series{}, 80); got != "" {
		t.Errorf("expected empty output for empty series, got %q", got)
	}
}

func TestRenderResultDispatch(t *testing.T) {
	table := &srag.Table{Columns: []string{"A"}, Rows: [][]string{{"1"}}}

	res := srag.TableResult(table)
	if got := RenderResult(&res, 80); !strings.Contains(got, "A") {
		t.Errorf("expected table rendering, got %q", got)
	}

	text := srag.TextResult()
	if got := RenderResult(&text, 80); got != "" {
		t.Errorf("text result must render empty (content comes from agent), got %q", got)
	}

	if got := RenderResult(nil, 80); got != "" {
		t.Errorf("nil result must render empty, got %q", got)
	}
}
