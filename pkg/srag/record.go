// Package srag определяет доменную модель датасета SRAG (DataSus).
//
// SRAG — Síndrome Respiratória Aguda Grave, национальный надзор Бразилии
// за тяжёлыми острыми респираторными заболеваниями (включая COVID-19).
// Пакет содержит запись наблюдения, фиксированный список колонок,
// статистические агрегации и типизированные результаты инструментов.
//
// Пакет не зависит от хранилища и от LLM — чистая бизнес-логика.
package srag

import (
	"fmt"
	"time"
)

// Коды значения EVOLUCAO (исход случая) по словарю DataSus.
const (
	EvolutionCure       = 1 // Выздоровление
	EvolutionDeath      = 2 // Смерть от SRAG
	EvolutionDeathOther = 3 // Смерть от других причин
	EvolutionUnknown    = 9 // Не заполнено
)

// Коды бинарных полей (UTI, VACINA_COV, HOSPITAL).
const (
	FlagYes     = 1
	FlagNo      = 2
	FlagUnknown = 9
	// ValueMissing подставляется при пустой ячейке CSV.
	ValueMissing = -1
)

// Record — один случай наблюдения. Иммутабелен после загрузки.
type Record struct {
	Year         int       // Год датасета (из имени файла выгрузки)
	State        string    // SG_UF_NOT — UF уведомления ("SP", "PE", ...)
	Notified     time.Time // DT_NOTIFIC — дата уведомления
	Week         int       // SEM_NOT — эпидемиологическая неделя
	Evolution    int       // EVOLUCAO — исход случая
	ICU          int       // UTI — госпитализация в реанимацию
	Vaccinated   int       // VACINA_COV — вакцинация от COVID-19
	Hospitalized int       // HOSPITAL — госпитализация
}

// Columns — фиксированный allow-list колонок датасета.
// Порядок соответствует выгрузке CSV.
var Columns = []string{
	"SG_UF_NOT",
	"DT_NOTIFIC",
	"SEM_NOT",
	"EVOLUCAO",
	"UTI",
	"VACINA_COV",
	"HOSPITAL",
}

// NumericColumns — колонки, доступные для summarize_numerical_data.
var NumericColumns = []string{
	"SEM_NOT",
	"EVOLUCAO",
	"UTI",
	"VACINA_COV",
	"HOSPITAL",
}

// ValidYears — годы, доступные в выгрузках DataSus.
var ValidYears = []int{2021, 2022, 2023, 2024, 2025}

// States — 27 федеральных единиц Бразилии (коды UF).
var States = []string{
	"AC", "AL", "AP", "AM", "BA", "CE", "DF", "ES", "GO",
	"MA", "MT", "MS", "MG", "PA", "PB", "PR", "PE", "PI",
	"RJ", "RN", "RS", "RO", "RR", "SC", "SP", "SE", "TO",
}

// IsValidYear проверяет что год присутствует в выгрузках.
func IsValidYear(year int) bool {
	for _, y := range ValidYears {
		if y == year {
			return true
		}
	}
	return false
}

// IsValidState проверяет код UF. Пустая строка означает "все штаты".
func IsValidState(state string) bool {
	if state == "" || state == "all" {
		return true
	}
	for _, s := range States {
		if s == state {
			return true
		}
	}
	return false
}

// IsNumericColumn проверяет что колонка доступна для суммаризации.
func IsNumericColumn(column string) bool {
	for _, c := range NumericColumns {
		if c == column {
			return true
		}
	}
	return false
}

// NumericValue возвращает числовое значение колонки записи.
//
// Для нечисловых колонок (SG_UF_NOT, DT_NOTIFIC) возвращает ошибку.
func (r Record) NumericValue(column string) (int, error) {
	switch column {
	case "SEM_NOT":
		return r.Week, nil
	case "EVOLUCAO":
		return r.Evolution, nil
	case "UTI":
		return r.ICU, nil
	case "VACINA_COV":
		return r.Vaccinated, nil
	case "HOSPITAL":
		return r.Hospitalized, nil
	default:
		return 0, fmt.Errorf("column '%s' is not numeric", column)
	}
}

// Granularity — шаг временной агрегации.
//
// Сигнатуры совпадают с pandas resample, как их знает исходный датасет:
// D (день), W (неделя), ME (месяц), Q (квартал), A (год).
type Granularity string

// Поддерживаемые значения Granularity.
const (
	GranularityDay     Granularity = "D"
	GranularityWeek    Granularity = "W"
	GranularityMonth   Granularity = "ME"
	GranularityQuarter Granularity = "Q"
	GranularityYear    Granularity = "A"
)

// Granularities — все поддерживаемые значения в порядке возрастания шага.
var Granularities = []Granularity{
	GranularityDay,
	GranularityWeek,
	GranularityMonth,
	GranularityQuarter,
	GranularityYear,
}

// Valid проверяет что значение поддерживается.
func (g Granularity) Valid() bool {
	for _, known := range Granularities {
		if g == known {
			return true
		}
	}
	return false
}

// Bucket приводит момент времени к началу своего временного интервала.
//
// Например, для GranularityMonth любая дата октября даст 1 октября 00:00 UTC.
func (g Granularity) Bucket(t time.Time) time.Time {
	t = t.UTC()
	switch g {
	case GranularityDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case GranularityWeek:
		// Неделя начинается с понедельника
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		weekday := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -weekday)
	case GranularityMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case GranularityQuarter:
		quarterStart := time.Month(((int(t.Month())-1)/3)*3 + 1)
		return time.Date(t.Year(), quarterStart, 1, 0, 0, 0, 0, time.UTC)
	case GranularityYear:
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// Next возвращает начало следующего временного интервала.
func (g Granularity) Next(t time.Time) time.Time {
	switch g {
	case GranularityDay:
		return t.AddDate(0, 0, 1)
	case GranularityWeek:
		return t.AddDate(0, 0, 7)
	case GranularityMonth:
		return t.AddDate(0, 1, 0)
	case GranularityQuarter:
		return t.AddDate(0, 3, 0)
	case GranularityYear:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// DateLayout — формат дат DT_NOTIFIC в выгрузках DataSus.
const DateLayout = "2006-01-02"
