package srag

import (
	"sort"
	"time"
)

// BuildSeries строит временной ряд количества случаев за год.
//
// Под-периоды без случаев между первым и последним заполняются нулями,
// чтобы график не скрывал провалы в данных. state == "" или "all" —
// без фильтра. Возвращает DataError если срез пуст.
func BuildSeries(records []Record, year int, state string, g Granularity) (*Series, error) {
	if !IsValidYear(year) {
		return nil, NewDataError("invalid year %d, available: %v", year, ValidYears)
	}
	if !IsValidState(state) {
		return nil, NewDataError("unknown state '%s'", state)
	}
	if !g.Valid() {
		return nil, NewDataError("invalid granularity '%s', available: %v", g, Granularities)
	}

	counts := make(map[time.Time]int)
	for _, rec := range records {
		if rec.Notified.Year() != year {
			continue
		}
		if !stateMatches(state, rec.State) {
			continue
		}
		counts[g.Bucket(rec.Notified)]++
	}

	if len(counts) == 0 {
		return nil, NewDataError("no cases in %d for state '%s'", year, normalizeState(state))
	}

	buckets := fillBuckets(counts, g)
	series := &Series{
		X:           make([]time.Time, len(buckets)),
		Y:           make([]int, len(buckets)),
		State:       normalizeState(state),
		Year:        year,
		Granularity: g,
	}
	for i, b := range buckets {
		series.X[i] = b.Start
		series.Y[i] = b.Cases
	}

	return series, nil
}

// fillBuckets раскладывает счётчики в упорядоченный ряд без пропусков.
func fillBuckets(counts map[time.Time]int, g Granularity) []ReportBucket {
	if len(counts) == 0 {
		return nil
	}

	starts := make([]time.Time, 0, len(counts))
	for t := range counts {
		starts = append(starts, t)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	var buckets []ReportBucket
	last := starts[len(starts)-1]
	for t := starts[0]; !t.After(last); t = g.Next(t) {
		buckets = append(buckets, ReportBucket{Start: t, Cases: counts[t]})
	}
	return buckets
}
