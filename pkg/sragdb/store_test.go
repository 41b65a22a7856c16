package sragdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkoid/srag-ai/pkg/srag"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testRecord(date, state string) srag.Record {
	ts, _ := time.Parse(srag.DateLayout, date)
	return srag.Record{
		Year:         ts.Year(),
		State:        state,
		Notified:     ts,
		Week:         3,
		Evolution:    srag.EvolutionCure,
		ICU:          srag.FlagNo,
		Vaccinated:   srag.FlagYes,
		Hospitalized: srag.FlagYes,
	}
}

func TestInsertBatchAndLoad(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	inserted, err := store.InsertBatch(ctx, []srag.Record{
		testRecord("2024-01-15", "SP"),
		testRecord("2024-02-20", "PE"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	records, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Ordered by notification date
	assert.Equal(t, "SP", records[0].State)
	assert.Equal(t, "PE", records[1].State)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), records[0].Notified)
	assert.Equal(t, srag.FlagYes, records[0].Vaccinated)
}

func TestInsertBatchIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	batch := []srag.Record{testRecord("2024-01-15", "SP")}

	inserted, err := store.InsertBatch(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	// Re-running the same ingestion must not create duplicates
	inserted, err = store.InsertBatch(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	total, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestInsertBatchEmpty(t *testing.T) {
	store := openTestStore(t)

	inserted, err := store.InsertBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
}

func TestLoadYearsFilters(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.InsertBatch(ctx, []srag.Record{
		testRecord("2023-05-01", "SP"),
		testRecord("2024-05-01", "SP"),
		testRecord("2024-06-01", "RJ"),
	})
	require.NoError(t, err)

	records, err := store.LoadYears(ctx, []int{2024})
	require.NoError(t, err)
	assert.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, 2024, rec.Year)
	}
}

func TestStoredYearsAndCounts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.InsertBatch(ctx, []srag.Record{
		testRecord("2023-05-01", "SP"),
		testRecord("2024-05-01", "SP"),
		testRecord("2024-06-01", "RJ"),
	})
	require.NoError(t, err)

	years, err := store.StoredYears(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2023, 2024}, years)

	counts, err := store.CountByYear(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{2023: 1, 2024: 2}, counts)
}
