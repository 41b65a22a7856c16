package srag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSeriesMonthly(t *testing.T) {
	series, err := BuildSeries(sampleRecords(), 2024, "all", GranularityMonth)
	require.NoError(t, err)

	require.Equal(t, 3, series.TotalPoints())
	assert.Equal(t, []int{2, 2, 1}, series.Y)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), series.X[0])
	assert.Equal(t, "all", series.State)
	assert.Equal(t, GranularityMonth, series.Granularity)
}

func TestBuildSeriesFillsGapsWithZero(t *testing.T) {
	records := []Record{
		makeRecord("2024-01-10", "SP", EvolutionCure, FlagNo, FlagNo, FlagYes),
		makeRecord("2024-04-10", "SP", EvolutionCure, FlagNo, FlagNo, FlagYes),
	}

	series, err := BuildSeries(records, 2024, "SP", GranularityMonth)
	require.NoError(t, err)

	// Jan..Apr with empty Feb and Mar present as zeros
	assert.Equal(t, []int{1, 0, 0, 1}, series.Y)
}

func TestBuildSeriesStateFilter(t *testing.T) {
	series, err := BuildSeries(sampleRecords(), 2024, "PE", GranularityMonth)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 1}, series.Y)
	assert.Equal(t, "PE", series.State)
}

func TestBuildSeriesEmptyIsDataError(t *testing.T) {
	_, err := BuildSeries(sampleRecords(), 2021, "all", GranularityMonth)

	var dataErr *DataError
	require.ErrorAs(t, err, &dataErr)
}

func TestBuildSeriesRejectsBadArguments(t *testing.T) {
	records := sampleRecords()

	var dataErr *DataError

	_, err := BuildSeries(records, 1999, "all", GranularityMonth)
	assert.ErrorAs(t, err, &dataErr)

	_, err = BuildSeries(records, 2024, "??", GranularityMonth)
	assert.ErrorAs(t, err, &dataErr)

	_, err = BuildSeries(records, 2024, "all", Granularity("X"))
	assert.ErrorAs(t, err, &dataErr)
}

func TestGranularityBucket(t *testing.T) {
	// 2024-02-15 is a Thursday
	ts := time.Date(2024, 2, 15, 13, 45, 0, 0, time.UTC)

	tests := []struct {
		g    Granularity
		want time.Time
	}{
		{GranularityDay, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)},
		{GranularityWeek, time.Date(2024, 2, 12, 0, 0, 0, 0, time.UTC)},
		{GranularityMonth, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{GranularityQuarter, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{GranularityYear, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(string(tt.g), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.g.Bucket(ts))
		})
	}
}

func TestGranularityNext(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), GranularityDay.Next(start))
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), GranularityWeek.Next(start))
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), GranularityMonth.Next(start))
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), GranularityQuarter.Next(start))
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), GranularityYear.Next(start))
}
