package datasus

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkoid/srag-ai/pkg/srag"
)

func TestParseCSV(t *testing.T) {
	input := strings.Join([]string{
		"SG_UF_NOT;DT_NOTIFIC;SEM_NOT;EVOLUCAO;UTI;VACINA_COV;HOSPITAL",
		"SP;2024-01-15;3;1.0;2;1;1",
		"PE;2024-02-20;8;2;1;2;1",
	}, "\n")

	records, stats, err := ParseCSV(strings.NewReader(input), 2024)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalRows)
	assert.Equal(t, 2, stats.Parsed)
	assert.Equal(t, 0, stats.Skipped)

	require.Len(t, records, 2)
	assert.Equal(t, "SP", records[0].State)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), records[0].Notified)
	assert.Equal(t, srag.EvolutionCure, records[0].Evolution, "float-formatted code '1.0' parses to 1")
	assert.Equal(t, 2024, records[0].Year)
	assert.Equal(t, srag.EvolutionDeath, records[1].Evolution)
}

func TestParseCSVSkipsMalformedRows(t *testing.T) {
	input := strings.Join([]string{
		"SG_UF_NOT;DT_NOTIFIC;EVOLUCAO",
		"SP;2024-01-15;1",
		";2024-01-16;1",      // empty state
		"RJ;not-a-date;1",    // broken date
		"XX;2024-01-17;1",    // unknown state code
		"PE;2024-01-18;1",
	}, "\n")

	records, stats, err := ParseCSV(strings.NewReader(input), 2024)
	require.NoError(t, err)

	assert.Equal(t, 5, stats.TotalRows)
	assert.Equal(t, 2, stats.Parsed)
	assert.Equal(t, 3, stats.Skipped)
	require.Len(t, records, 2)
}

func TestParseCSVEmptyCellsBecomeMissing(t *testing.T) {
	input := strings.Join([]string{
		"SG_UF_NOT;DT_NOTIFIC;SEM_NOT;EVOLUCAO;UTI;VACINA_COV;HOSPITAL",
		"SP;2024-01-15;;;;;",
	}, "\n")

	records, _, err := ParseCSV(strings.NewReader(input), 2024)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, srag.ValueMissing, rec.Week)
	assert.Equal(t, srag.ValueMissing, rec.Evolution)
	assert.Equal(t, srag.ValueMissing, rec.ICU)
	assert.Equal(t, srag.ValueMissing, rec.Vaccinated)
	assert.Equal(t, srag.ValueMissing, rec.Hospitalized)
}

func TestParseCSVAlternateDateFormats(t *testing.T) {
	input := strings.Join([]string{
		"SG_UF_NOT;DT_NOTIFIC;EVOLUCAO",
		"SP;15/01/2024;1",
	}, "\n")

	records, _, err := ParseCSV(strings.NewReader(input), 2024)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), records[0].Notified)
}

// brokenReader отдает ошибку на каждом чтении, как оборвавшееся
// посреди скачивания соединение.
type brokenReader struct{ err error }

func (r brokenReader) Read([]byte) (int, error) { return 0, r.err }

func TestParseCSVAbortsOnReaderError(t *testing.T) {
	head := strings.Join([]string{
		"SG_UF_NOT;DT_NOTIFIC;EVOLUCAO",
		"SP;2024-01-15;1",
		"", // заставляет ридер дочитать остаток из brokenReader
	}, "\n")
	resetErr := errors.New("read tcp: connection reset by peer")
	input := io.MultiReader(strings.NewReader(head), brokenReader{err: resetErr})

	done := make(chan struct{})
	var records []srag.Record
	var err error
	go func() {
		defer close(done)
		records, _, err = ParseCSV(input, 2024)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ParseCSV did not return on a persistent reader error")
	}

	require.Error(t, err)
	assert.ErrorIs(t, err, resetErr)
	assert.Nil(t, records)
}

func TestParseCSVMissingRequiredColumn(t *testing.T) {
	input := "DT_NOTIFIC;EVOLUCAO\n2024-01-15;1\n"

	_, _, err := ParseCSV(strings.NewReader(input), 2024)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SG_UF_NOT")
}
