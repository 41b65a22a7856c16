package datasus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ilkoid/srag-ai/pkg/srag"
)

// ParseStats — статистика парсинга одной выгрузки.
type ParseStats struct {
	TotalRows int // Строк данных в файле (без заголовка)
	Parsed    int // Успешно распознанных
	Skipped   int // Пропущенных битых строк
}

// ParseCSV читает выгрузку DataSus (разделитель ';') в записи SRAG.
//
// Битые строки (нераспознаваемая дата, пустой штат) пропускаются и
// считаются в ParseStats — выгрузки DataSus регулярно содержат мусор.
// Пустые ячейки категориальных колонок становятся ValueMissing.
func ParseCSV(r io.Reader, year int) ([]srag.Record, *ParseStats, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToUpper(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"SG_UF_NOT", "DT_NOTIFIC"} {
		if _, ok := idx[required]; !ok {
			return nil, nil, fmt.Errorf("csv is missing required column %s", required)
		}
	}

	stats := &ParseStats{}
	var records []srag.Record

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			// Строка с несбалансированными кавычками и т.п.
			stats.TotalRows++
			stats.Skipped++
			continue
		}
		if err != nil {
			// Ошибка самого ридера (обрыв соединения) повторяется на
			// каждом вызове — пропуск строки зациклил бы парсер
			return nil, nil, fmt.Errorf("read csv row %d: %w", stats.TotalRows+1, err)
		}
		stats.TotalRows++

		rec, ok := parseRow(row, idx, year)
		if !ok {
			stats.Skipped++
			continue
		}
		records = append(records, rec)
		stats.Parsed++
	}

	return records, stats, nil
}

func parseRow(row []string, idx map[string]int, year int) (srag.Record, bool) {
	state := strings.TrimSpace(field(row, idx, "SG_UF_NOT"))
	if state == "" || !srag.IsValidState(state) || state == "all" {
		return srag.Record{}, false
	}

	notified, ok := parseDate(field(row, idx, "DT_NOTIFIC"))
	if !ok {
		return srag.Record{}, false
	}

	return srag.Record{
		Year:         year,
		State:        state,
		Notified:     notified,
		Week:         parseCode(field(row, idx, "SEM_NOT")),
		Evolution:    parseCode(field(row, idx, "EVOLUCAO")),
		ICU:          parseCode(field(row, idx, "UTI")),
		Vaccinated:   parseCode(field(row, idx, "VACINA_COV")),
		Hospitalized: parseCode(field(row, idx, "HOSPITAL")),
	}, true
}

func field(row []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// dateLayouts — форматы дат, встречающиеся в выгрузках разных лет.
var dateLayouts = []string{
	srag.DateLayout, // 2006-01-02
	"02/01/2006",
	"2006-01-02T15:04:05",
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseCode парсит категориальный код; пустая ячейка — ValueMissing.
//
// Выгрузки пишут коды и как "1", и как "1.0" — парсим через float.
func parseCode(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return srag.ValueMissing
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return srag.ValueMissing
	}
	return int(f)
}
