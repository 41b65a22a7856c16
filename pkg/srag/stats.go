package srag

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// ColumnSummary — медиана и частоты значений одной колонки за один год.
type ColumnSummary struct {
	Median float64     `json:"median"`
	Freq   map[int]int `json:"freq"` // значение → количество случаев
}

// Summary — результат summarize_numerical_data: год → колонка → сводка.
type Summary map[int]map[string]ColumnSummary

// Summarize считает медиану и частоты по указанным колонкам и годам.
//
// Пропущенные значения (ValueMissing) участвуют в частотах как отдельная
// категория — так ведёт себя исходный датасет после fillna(-1).
// Возвращает DataError если ни одна запись не попала в срез.
func Summarize(records []Record, columns []string, years []int) (Summary, error) {
	if len(columns) == 0 {
		return nil, NewDataError("no columns requested")
	}
	for _, col := range columns {
		if !IsNumericColumn(col) {
			return nil, NewDataError("column '%s' is not summarizable; numeric columns: %v", col, NumericColumns)
		}
	}
	if len(years) == 0 {
		years = ValidYears
	}

	result := make(Summary)
	matched := 0

	for _, year := range years {
		perColumn := make(map[string][]float64)
		freqs := make(map[string]map[int]int)
		for _, col := range columns {
			perColumn[col] = nil
			freqs[col] = make(map[int]int)
		}

		for _, rec := range records {
			if rec.Year != year {
				continue
			}
			matched++
			for _, col := range columns {
				v, err := rec.NumericValue(col)
				if err != nil {
					return nil, err
				}
				perColumn[col] = append(perColumn[col], float64(v))
				freqs[col][v]++
			}
		}

		if len(perColumn[columns[0]]) == 0 {
			// Год без записей не попадает в сводку
			continue
		}

		yearSummary := make(map[string]ColumnSummary, len(columns))
		for _, col := range columns {
			values := perColumn[col]
			sort.Float64s(values)
			yearSummary[col] = ColumnSummary{
				Median: stat.Quantile(0.5, stat.Empirical, values, nil),
				Freq:   freqs[col],
			}
		}
		result[year] = yearSummary
	}

	if matched == 0 {
		return nil, NewDataError("no records found for years %v", years)
	}

	return result, nil
}

// Table конвертирует сводку в табличный результат.
//
// Формат строк повторяет исходный дашборд: Year / Column / Metric / Value.
func (s Summary) Table() *Table {
	t := &Table{Columns: []string{"Year", "Column", "Metric", "Value"}}

	years := make([]int, 0, len(s))
	for y := range s {
		years = append(years, y)
	}
	sort.Ints(years)

	for _, year := range years {
		cols := make([]string, 0, len(s[year]))
		for c := range s[year] {
			cols = append(cols, c)
		}
		sort.Strings(cols)

		for _, col := range cols {
			cs := s[year][col]
			t.Rows = append(t.Rows, []string{
				fmt.Sprintf("%d", year), col, "Median", fmt.Sprintf("%.1f", cs.Median),
			})

			values := make([]int, 0, len(cs.Freq))
			for v := range cs.Freq {
				values = append(values, v)
			}
			sort.Ints(values)
			for _, v := range values {
				t.Rows = append(t.Rows, []string{
					fmt.Sprintf("%d", year), col,
					fmt.Sprintf("Category %d", v),
					fmt.Sprintf("%d", cs.Freq[v]),
				})
			}
		}
	}

	return t
}

// ReportBucket — количество случаев за один под-период отчёта.
type ReportBucket struct {
	Start time.Time `json:"start"`
	Cases int       `json:"cases"`
}

// Report — статистический отчёт за окно дат.
//
// Все rate поля — доли в диапазоне [0, 1]. Инвариант:
// DeathCount + SurvivalCount == TotalCases.
type Report struct {
	Year        int         `json:"year"`
	StartMonth  int         `json:"starting_month"`
	EndMonth    int         `json:"ending_month"`
	State       string      `json:"state"`
	Granularity Granularity `json:"granularity"`

	TotalCases        int `json:"total_cases"`
	DeathCount        int `json:"death_count"`
	SurvivalCount     int `json:"survival_count"`
	CasesHospitalized int `json:"cases_hospitalized"`
	ICUCount          int `json:"icu_count"`
	VaccinatedCount   int `json:"vaccinated_count"`

	DeathRate       float64 `json:"death_rate"`
	ICURate         float64 `json:"icu_rate"`
	VaccinationRate float64 `json:"vaccination_rate"`

	// GrowthRate — скорость роста новых случаев: наклон линейной регрессии
	// количества случаев по под-периодам (случаев за под-период).
	GrowthRate float64 `json:"growth_rate"`

	Buckets []ReportBucket `json:"buckets"`
}

// BuildReport строит статистический отчёт за окно [startMonth, endMonth] года.
//
// state == "" или "all" — без фильтра по штату.
// Возвращает DataError если окно пусто.
func BuildReport(records []Record, year, startMonth, endMonth int, state string, g Granularity) (*Report, error) {
	if !IsValidYear(year) {
		return nil, NewDataError("invalid year %d, available: %v", year, ValidYears)
	}
	if startMonth < 1 || startMonth > 12 || endMonth < 1 || endMonth > 12 || startMonth > endMonth {
		return nil, NewDataError("invalid month window [%d, %d]", startMonth, endMonth)
	}
	if !IsValidState(state) {
		return nil, NewDataError("unknown state '%s'", state)
	}
	if !g.Valid() {
		return nil, NewDataError("invalid granularity '%s', available: %v", g, Granularities)
	}

	report := &Report{
		Year:        year,
		StartMonth:  startMonth,
		EndMonth:    endMonth,
		State:       normalizeState(state),
		Granularity: g,
	}

	counts := make(map[time.Time]int)

	for _, rec := range records {
		if rec.Notified.Year() != year {
			continue
		}
		month := int(rec.Notified.Month())
		if month < startMonth || month > endMonth {
			continue
		}
		if !stateMatches(state, rec.State) {
			continue
		}

		report.TotalCases++
		if rec.Evolution == EvolutionDeath {
			report.DeathCount++
		}
		if rec.Hospitalized == FlagYes {
			report.CasesHospitalized++
		}
		if rec.ICU == FlagYes {
			report.ICUCount++
		}
		if rec.Vaccinated == FlagYes {
			report.VaccinatedCount++
		}
		counts[g.Bucket(rec.Notified)]++
	}

	if report.TotalCases == 0 {
		return nil, NewDataError("no cases in %d-%02d..%d-%02d for state '%s'",
			year, startMonth, year, endMonth, report.State)
	}

	report.SurvivalCount = report.TotalCases - report.DeathCount
	total := float64(report.TotalCases)
	report.DeathRate = float64(report.DeathCount) / total
	report.ICURate = float64(report.ICUCount) / total
	report.VaccinationRate = float64(report.VaccinatedCount) / total

	report.Buckets = fillBuckets(counts, g)
	report.GrowthRate = growthRate(report.Buckets)

	return report, nil
}

// growthRate считает наклон линейной регрессии случаев по под-периодам.
//
// Меньше двух под-периодов — рост не определён, возвращается 0.
func growthRate(buckets []ReportBucket) float64 {
	if len(buckets) < 2 {
		return 0
	}
	xs := make([]float64, len(buckets))
	ys := make([]float64, len(buckets))
	for i, b := range buckets {
		xs[i] = float64(i)
		ys[i] = float64(b.Cases)
	}
	_, beta := stat.LinearRegression(xs, ys, nil, false)
	return beta
}

// Table конвертирует отчёт в табличный результат.
func (r *Report) Table() *Table {
	percent := func(v float64) string { return fmt.Sprintf("%.2f%%", v*100) }

	return &Table{
		Columns: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Total cases", fmt.Sprintf("%d", r.TotalCases)},
			{"Deaths", fmt.Sprintf("%d", r.DeathCount)},
			{"Death rate", percent(r.DeathRate)},
			{"Hospitalized", fmt.Sprintf("%d", r.CasesHospitalized)},
			{"ICU rate", percent(r.ICURate)},
			{"Vaccination rate", percent(r.VaccinationRate)},
			{"Case growth per period", fmt.Sprintf("%.2f", r.GrowthRate)},
		},
	}
}

// normalizeState приводит пустой фильтр к "all".
func normalizeState(state string) string {
	if state == "" {
		return "all"
	}
	return state
}

// stateMatches проверяет фильтр по штату.
func stateMatches(filter, state string) bool {
	return filter == "" || filter == "all" || filter == state
}
