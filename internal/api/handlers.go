package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ilkoid/srag-ai/pkg/srag"
	"github.com/ilkoid/srag-ai/pkg/tools"
)

// promptResponse — ответ агента: текст плюс типизированные данные
// для рендера на стороне клиента.
type promptResponse struct {
	Status   string       `json:"status"`
	Content  string       `json:"content"`
	ToolName string       `json:"tool_name,omitempty"`
	Data     *srag.Result `json:"data,omitempty"`
}

// handlePrompt передает вопрос пользователя AI агенту.
func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrJSON(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}

	userInput := strings.TrimSpace(r.URL.Query().Get("user_input"))
	if userInput == "" {
		writeErrJSON(w, http.StatusBadRequest, "missing_user_input", "missing user_input query parameter")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), promptTimeout)
	defer cancel()

	outcome, err := s.dispatcher.Dispatch(ctx, userInput)
	if err != nil {
		var valErr *tools.ValidationError
		if errors.As(err, &valErr) {
			writeErrJSON(w, http.StatusUnprocessableEntity, "validation_error", valErr.Error())
			return
		}
		writeErrJSON(w, http.StatusInternalServerError, "agent_error", err.Error())
		return
	}

	writeJSON(w, promptResponse{
		Status:   "success",
		Content:  outcome.Content,
		ToolName: outcome.ToolName,
		Data:     outcome.Result,
	})
}

// storeRequest — тело запроса загрузки датасета.
type storeRequest struct {
	Years []int `json:"years"`
}

// handleStore скачивает выгрузки DataSus и сохраняет в локальную базу.
//
// Использует тот же инструмент что и агент, чтобы загрузка через API
// и через чат вела себя одинаково (зеркало, сброс кэша, события).
func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrJSON(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}

	// Пустое тело допустимо — загружаются все доступные годы
	var req storeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeErrJSON(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}

	tool, err := s.state.GetToolsRegistry().Get("store_datasets")
	if err != nil {
		writeErrJSON(w, http.StatusServiceUnavailable, "tool_unavailable", "store_datasets tool is disabled")
		return
	}

	argsJSON, err := json.Marshal(req)
	if err != nil {
		writeErrJSON(w, http.StatusInternalServerError, "marshal_error", err.Error())
		return
	}

	output, err := tool.Execute(r.Context(), string(argsJSON))
	if err != nil {
		writeErrJSON(w, http.StatusBadGateway, "store_failed", err.Error())
		return
	}

	// Инструмент возвращает JSON конверт {status, message, ...} —
	// отдаем релевантные поля как есть.
	var payload struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    any    `json:"data"`
	}
	if err := json.Unmarshal([]byte(output), &payload); err != nil {
		writeErrJSON(w, http.StatusInternalServerError, "invalid_tool_output", err.Error())
		return
	}
	writeJSON(w, map[string]any{
		"status":  payload.Status,
		"message": payload.Message,
		"data":    payload.Data,
	})
}

// handleSummary считает медианы и частоты значений колонок.
//
// Query параметры: columns=EVOLUCAO,UTI (обязательный),
// years=2024,2025 (опциональный, по умолчанию все валидные годы).
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrJSON(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	columns := splitParam(r.URL.Query().Get("columns"))
	if len(columns) == 0 {
		writeErrJSON(w, http.StatusBadRequest, "missing_columns", "missing columns query parameter")
		return
	}
	for i := range columns {
		columns[i] = strings.ToUpper(columns[i])
	}

	years, err := parseYears(r.URL.Query().Get("years"))
	if err != nil {
		writeErrJSON(w, http.StatusBadRequest, "invalid_years", err.Error())
		return
	}
	if len(years) == 0 {
		years = srag.ValidYears
	}

	records, err := s.state.GetDataset(r.Context())
	if err != nil {
		writeErrJSON(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	summary, err := srag.Summarize(records, columns, years)
	if err != nil {
		writeDomainErr(w, err)
		return
	}

	writeJSON(w, map[string]any{
		"status":    "success",
		"summaries": summary,
	})
}

// reportResponse повторяет схему оригинального статистического отчёта:
// проценты (0..100), а не доли.
type reportResponse struct {
	Status            string  `json:"status"`
	TotalCases        int     `json:"total_cases"`
	DeathCount        int     `json:"death_count"`
	SurvivalCount     int     `json:"survival_count"`
	DeathRate         float64 `json:"death_rate"`
	CasesHospitalized int     `json:"cases_hospitalized"`
	PercUTI           float64 `json:"perc_uti"`
	PercVaccinated    float64 `json:"perc_vaccinated"`
	GrowthRate        float64 `json:"growth_rate"`
}

// handleReport строит статистический отчёт за окно дат.
//
// Query параметры: year (обязательный), starting_month, ending_month,
// state, granularity.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrJSON(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	q := r.URL.Query()
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		writeErrJSON(w, http.StatusBadRequest, "invalid_year", "year must be an integer")
		return
	}
	startMonth := intParam(q.Get("starting_month"), 1)
	endMonth := intParam(q.Get("ending_month"), 12)
	state := normalizeState(q.Get("state"))
	granularity := srag.Granularity(q.Get("granularity"))
	if granularity == "" {
		granularity = srag.GranularityMonth
	}

	records, err := s.state.GetDataset(r.Context())
	if err != nil {
		writeErrJSON(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	report, err := srag.BuildReport(records, year, startMonth, endMonth, state, granularity)
	if err != nil {
		writeDomainErr(w, err)
		return
	}

	writeJSON(w, reportResponse{
		Status:            "success",
		TotalCases:        report.TotalCases,
		DeathCount:        report.DeathCount,
		SurvivalCount:     report.SurvivalCount,
		DeathRate:         report.DeathRate * 100,
		CasesHospitalized: report.CasesHospitalized,
		PercUTI:           report.ICURate * 100,
		PercVaccinated:    report.VaccinationRate * 100,
		GrowthRate:        report.GrowthRate,
	})
}

// graphicalResponse повторяет схему оригинального графического отчёта.
type graphicalResponse struct {
	Status      string   `json:"status"`
	X           []string `json:"x"`
	Y           []int    `json:"y"`
	TotalPoints int      `json:"total_points"`
	State       string   `json:"state"`
	Year        int      `json:"year"`
	Granularity string   `json:"granularity"`
}

// handleGraphicalReport строит временной ряд случаев для графика.
//
// Query параметры: year (обязательный), state, granularity.
func (s *Server) handleGraphicalReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrJSON(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	q := r.URL.Query()
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		writeErrJSON(w, http.StatusBadRequest, "invalid_year", "year must be an integer")
		return
	}
	state := normalizeState(q.Get("state"))
	granularity := srag.Granularity(q.Get("granularity"))
	if granularity == "" {
		granularity = srag.GranularityMonth
	}

	records, err := s.state.GetDataset(r.Context())
	if err != nil {
		writeErrJSON(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	series, err := srag.BuildSeries(records, year, state, granularity)
	if err != nil {
		writeDomainErr(w, err)
		return
	}

	x := make([]string, len(series.X))
	for i, ts := range series.X {
		x[i] = ts.Format(srag.DateLayout)
	}

	writeJSON(w, graphicalResponse{
		Status:      "success",
		X:           x,
		Y:           series.Y,
		TotalPoints: series.TotalPoints(),
		State:       series.State,
		Year:        series.Year,
		Granularity: string(series.Granularity),
	})
}

// writeDomainErr различает DataError (пустой/невалидный срез, 404) и
// остальные ошибки домена.
func writeDomainErr(w http.ResponseWriter, err error) {
	var dataErr *srag.DataError
	if errors.As(err, &dataErr) {
		writeErrJSON(w, http.StatusNotFound, "data_error", dataErr.Reason)
		return
	}
	writeErrJSON(w, http.StatusInternalServerError, "internal_error", err.Error())
}

// normalizeState приводит фильтр штата к виду, который понимает pkg/srag:
// коды UF в верхнем регистре, "all" — в нижнем.
func normalizeState(state string) string {
	state = strings.TrimSpace(state)
	if strings.EqualFold(state, "all") {
		return "all"
	}
	return strings.ToUpper(state)
}

// splitParam разбирает comma-separated параметр в список непустых значений.
func splitParam(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseYears разбирает comma-separated список годов.
func parseYears(raw string) ([]int, error) {
	parts := splitParam(raw)
	years := make([]int, 0, len(parts))
	for _, p := range parts {
		y, err := strconv.Atoi(p)
		if err != nil {
			return nil, errors.New("years must be a comma-separated list of integers")
		}
		years = append(years, y)
	}
	return years, nil
}

// intParam разбирает integer параметр с дефолтом.
func intParam(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
