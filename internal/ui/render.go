// Рендер типизированных результатов инструментов в терминал.

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/ilkoid/srag-ai/pkg/srag"
)

// maxColumnWidth ограничивает ширину колонки чтобы таблица влезла в терминал.
const maxColumnWidth = 40

// RenderResult превращает типизированный результат инструмента в строку
// для вывода в лог чата.
//
// Текстовые результаты рендерит вызывающая сторона (ответ агента),
// здесь обрабатываются таблицы и графики.
func RenderResult(res *srag.Result, width int) string {
	if res == nil {
		return ""
	}
	switch res.Kind {
	case srag.ResultTable:
		return RenderTable(res.Table, width)
	case srag.ResultSeries:
		return RenderChart(res.Series, width)
	default:
		return ""
	}
}

// RenderTable рендерит таблицу с выровненными колонками.
func RenderTable(table *srag.Table, width int) string {
	if table == nil || len(table.Columns) == 0 {
		return ""
	}

	// Ширина каждой колонки по самой длинной ячейке
	widths := make([]int, len(table.Columns))
	for i, col := range table.Columns {
		widths[i] = len([]rune(col))
	}
	for _, row := range table.Rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			if l := len([]rune(cell)); l > widths[i] {
				widths[i] = l
			}
		}
	}
	for i := range widths {
		if widths[i] > maxColumnWidth {
			widths[i] = maxColumnWidth
		}
	}

	var b strings.Builder
	b.WriteString(renderRow(table.Columns, widths, tableHeaderStyle))
	b.WriteString("\n")

	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("─", w)
	}
	b.WriteString(lipgloss.NewStyle().Foreground(grayColor).Render(strings.Join(sep, "─┼─")))
	b.WriteString("\n")

	for _, row := range table.Rows {
		b.WriteString(renderRow(row, widths, tableCellStyle))
		b.WriteString("\n")
	}

	return wordwrap.String(b.String(), width)
}

// renderRow выравнивает ячейки по ширинам колонок.
func renderRow(cells []string, widths []int, style lipgloss.Style) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		runes := []rune(cell)
		if len(runes) > w {
			cell = string(runes[:w-1]) + "…"
		}
		parts[i] = style.Render(fmt.Sprintf("%-*s", w, cell))
	}
	return strings.Join(parts, " │ ")
}

// RenderChart рендерит горизонтальный bar chart временного ряда.
//
// Каждая строка — один бакет: дата, столбик из '█' пропорциональный
// количеству случаев, и число.
func RenderChart(series *srag.Series, width int) string {
	if series == nil || series.TotalPoints() == 0 {
		return ""
	}

	maxY := 0
	for _, y := range series.Y {
		if y > maxY {
			maxY = y
		}
	}

	// Место под столбик: ширина минус дата, число и разделители
	barWidth := width - 26
	if barWidth < 10 {
		barWidth = 10
	}

	title := fmt.Sprintf("SRAG cases, year %d, state %s, granularity %s",
		series.Year, series.State, series.Granularity)

	var b strings.Builder
	b.WriteString(tableHeaderStyle.Render(title))
	b.WriteString("\n")

	for i, x := range series.X {
		y := series.Y[i]
		barLen := 0
		if maxY > 0 {
			barLen = y * barWidth / maxY
		}
		if y > 0 && barLen == 0 {
			barLen = 1
		}
		bar := chartBarStyle.Render(strings.Repeat("█", barLen))
		b.WriteString(fmt.Sprintf("%s │%s %d\n", x.Format(srag.DateLayout), bar, y))
	}

	return b.String()
}
