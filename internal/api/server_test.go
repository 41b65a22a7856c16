package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkoid/srag-ai/pkg/agent"
	"github.com/ilkoid/srag-ai/pkg/config"
	"github.com/ilkoid/srag-ai/pkg/datasus"
	"github.com/ilkoid/srag-ai/pkg/llm"
	"github.com/ilkoid/srag-ai/pkg/srag"
	"github.com/ilkoid/srag-ai/pkg/sragdb"
	"github.com/ilkoid/srag-ai/pkg/state"
	"github.com/ilkoid/srag-ai/pkg/tools"
	"github.com/ilkoid/srag-ai/pkg/tools/std"
)

// echoProvider — LLM заглушка: всегда отвечает одним и тем же текстом.
type echoProvider struct {
	reply string
}

func (p *echoProvider) Generate(ctx context.Context, messages []llm.Message, extraTools ...any) (llm.Message, error) {
	return llm.Message{Role: llm.RoleAssistant, Content: p.reply}, nil
}

func newTestServer(t *testing.T) (*Server, *state.CoreState) {
	t.Helper()

	store, err := sragdb.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	client, err := datasus.NewFromConfig(config.DataSusConfig{Demo: true})
	require.NoError(t, err)

	st := state.NewCoreState(&config.AppConfig{}, store, client, nil)
	registry := tools.NewRegistry()
	st.SetToolsRegistry(registry)

	require.NoError(t, registry.Register(std.NewStoreDatasetsTool(
		client, store, nil, st.InvalidateDataset, config.ToolConfig{},
	)))

	dispatcher := agent.NewDispatcher(&echoProvider{reply: "hello from agent"}, st, "")
	return New(st, dispatcher), st
}

func seedRecords(t *testing.T, st *state.CoreState) {
	t.Helper()

	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	records := []srag.Record{
		{Year: 2024, State: "SP", Notified: base, Week: 2, Evolution: srag.EvolutionDeath, ICU: srag.FlagYes, Vaccinated: srag.FlagYes, Hospitalized: srag.FlagYes},
		{Year: 2024, State: "SP", Notified: base.AddDate(0, 1, 0), Week: 6, Evolution: srag.EvolutionCure, ICU: srag.FlagNo, Vaccinated: srag.FlagNo, Hospitalized: srag.FlagYes},
		{Year: 2024, State: "PE", Notified: base.AddDate(0, 2, 0), Week: 11, Evolution: srag.EvolutionCure, ICU: srag.FlagNo, Vaccinated: srag.FlagYes, Hospitalized: srag.FlagNo},
	}
	inserted, err := st.Store.InsertBatch(context.Background(), records)
	require.NoError(t, err)
	require.Equal(t, len(records), inserted)
}

func doRequest(t *testing.T, handler http.Handler, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "body: %s", rec.Body.String())
	return rec, body
}

func TestHandlePrompt(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	t.Run("returns agent answer", func(t *testing.T) {
		rec, body := doRequest(t, handler, http.MethodPost, "/prompt?user_input=hi")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "success", body["status"])
		assert.Equal(t, "hello from agent", body["content"])
	})

	t.Run("missing user_input", func(t *testing.T) {
		rec, body := doRequest(t, handler, http.MethodPost, "/prompt")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "error", body["status"])
	})

	t.Run("GET is rejected", func(t *testing.T) {
		rec, _ := doRequest(t, handler, http.MethodGet, "/prompt?user_input=hi")
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestHandleStore(t *testing.T) {
	srv, st := newTestServer(t)
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/store", strings.NewReader(`{"years": [2024]}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body["status"])

	// Данные реально оказались в базе
	years, err := st.Store.StoredYears(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2024}, years)
}

func TestHandleSummary(t *testing.T) {
	srv, st := newTestServer(t)
	seedRecords(t, st)
	handler := srv.Handler()

	t.Run("success", func(t *testing.T) {
		rec, body := doRequest(t, handler, http.MethodGet, "/summary?columns=evolucao,uti&years=2024")
		require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
		assert.Equal(t, "success", body["status"])

		summaries, ok := body["summaries"].(map[string]any)
		require.True(t, ok)
		year, ok := summaries["2024"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, year, "EVOLUCAO")
		assert.Contains(t, year, "UTI")
	})

	t.Run("missing columns", func(t *testing.T) {
		rec, _ := doRequest(t, handler, http.MethodGet, "/summary?years=2024")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown column is a data error", func(t *testing.T) {
		rec, _ := doRequest(t, handler, http.MethodGet, "/summary?columns=NOPE&years=2024")
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleReport(t *testing.T) {
	srv, st := newTestServer(t)
	seedRecords(t, st)
	handler := srv.Handler()

	t.Run("rates are percentages", func(t *testing.T) {
		rec, body := doRequest(t, handler, http.MethodGet, "/report?year=2024")
		require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

		assert.Equal(t, "success", body["status"])
		assert.EqualValues(t, 3, body["total_cases"])
		assert.EqualValues(t, 1, body["death_count"])
		assert.EqualValues(t, 2, body["survival_count"])
		// 1 смерть из 3 случаев = 33.33...%
		assert.InDelta(t, 100.0/3, body["death_rate"].(float64), 0.01)
		assert.InDelta(t, 100.0/3, body["perc_uti"].(float64), 0.01)
	})

	t.Run("state filter", func(t *testing.T) {
		// Lowercase UF codes are accepted, same as in the agent tools
		rec, body := doRequest(t, handler, http.MethodGet, "/report?year=2024&state=sp")
		require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
		assert.EqualValues(t, 2, body["total_cases"])
	})

	t.Run("state all is case-insensitive", func(t *testing.T) {
		rec, body := doRequest(t, handler, http.MethodGet, "/report?year=2024&state=ALL")
		require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
		assert.EqualValues(t, 3, body["total_cases"])
	})

	t.Run("empty window is a data error", func(t *testing.T) {
		rec, _ := doRequest(t, handler, http.MethodGet, "/report?year=2024&starting_month=11&ending_month=12")
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid year", func(t *testing.T) {
		rec, _ := doRequest(t, handler, http.MethodGet, "/report?year=1999")
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("year must be integer", func(t *testing.T) {
		rec, _ := doRequest(t, handler, http.MethodGet, "/report?year=abc")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleGraphicalReport(t *testing.T) {
	srv, st := newTestServer(t)
	seedRecords(t, st)
	handler := srv.Handler()

	rec, body := doRequest(t, handler, http.MethodGet, "/graphical_report?year=2024&granularity=ME")
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	assert.Equal(t, "success", body["status"])
	assert.EqualValues(t, 3, body["total_points"])
	assert.Equal(t, "all", body["state"])
	assert.Equal(t, "ME", body["granularity"])

	x, ok := body["x"].([]any)
	require.True(t, ok)
	require.Len(t, x, 3)
	assert.Equal(t, "2024-01-01", x[0])

	// Lowercase UF codes are accepted, same as in the agent tools
	rec, body = doRequest(t, handler, http.MethodGet, "/graphical_report?year=2024&state=pe")
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	assert.Equal(t, "PE", body["state"])
	assert.EqualValues(t, 1, body["total_points"])
}

func TestHandleStatus(t *testing.T) {
	srv, st := newTestServer(t)
	seedRecords(t, st)

	rec, body := doRequest(t, srv.Handler(), http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 3, body["stored_rows"])
}
