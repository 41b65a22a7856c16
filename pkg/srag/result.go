package srag

import "time"

// ResultKind — дискриминатор типизированного результата инструмента.
type ResultKind string

// Виды результатов.
const (
	ResultText   ResultKind = "text"
	ResultTable  ResultKind = "table"
	ResultSeries ResultKind = "series"
)

// Table — табличный результат (суммаризация, статистический отчёт).
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Series — точки для линейного графика количества случаев.
type Series struct {
	X           []time.Time `json:"x"`
	Y           []int       `json:"y"`
	State       string      `json:"state"`       // "all" если фильтра не было
	Year        int         `json:"year"`
	Granularity Granularity `json:"granularity"`
}

// TotalPoints возвращает количество точек графика.
func (s *Series) TotalPoints() int {
	return len(s.X)
}

// Result — tagged union результата инструмента: текст, таблица или график.
//
// Заполнено ровно одно из полей Table/Series (для ResultText — ни одного,
// текст живёт в Outcome диспетчера).
type Result struct {
	Kind   ResultKind `json:"kind"`
	Table  *Table     `json:"table,omitempty"`
	Series *Series    `json:"series,omitempty"`
}

// TextResult создаёт текстовый результат.
func TextResult() Result {
	return Result{Kind: ResultText}
}

// TableResult создаёт табличный результат.
func TableResult(t *Table) Result {
	return Result{Kind: ResultTable, Table: t}
}

// SeriesResult создаёт результат-график.
func SeriesResult(s *Series) Result {
	return Result{Kind: ResultSeries, Series: s}
}
