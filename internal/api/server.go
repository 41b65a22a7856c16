// Package api реализует HTTP API поверх агента и датасета SRAG.
//
// Endpoints:
//   - POST /prompt?user_input=...  — вопрос к AI агенту
//   - POST /store                  — загрузка датасета ({"years": [2024]})
//   - GET  /summary                — медианы и частоты колонок
//   - GET  /report                 — статистический отчёт за окно дат
//   - GET  /graphical_report       — временной ряд для графика
//
// Агент нужен только для /prompt; остальные endpoints работают
// с датасетом напрямую, без LLM.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ilkoid/srag-ai/pkg/agent"
	"github.com/ilkoid/srag-ai/pkg/state"
	"github.com/ilkoid/srag-ai/pkg/utils"
)

// promptTimeout ограничивает время обработки одного /prompt запроса.
const promptTimeout = 10 * time.Minute

// Server — HTTP API сервер.
type Server struct {
	state      *state.CoreState
	dispatcher *agent.Dispatcher
}

// New создает сервер поверх готовых компонентов.
func New(st *state.CoreState, dispatcher *agent.Dispatcher) *Server {
	return &Server{state: st, dispatcher: dispatcher}
}

// Handler возвращает корневой http.Handler со всеми маршрутами.
//
// Отдельно от Run чтобы тесты могли использовать httptest.Server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/prompt", s.handlePrompt)
	mux.HandleFunc("/store", s.handleStore)
	mux.HandleFunc("/summary", s.handleSummary)
	mux.HandleFunc("/report", s.handleReport)
	mux.HandleFunc("/graphical_report", s.handleGraphicalReport)

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		count, err := s.state.Store.Count(r.Context())
		if err != nil {
			writeErrJSON(w, http.StatusInternalServerError, "store_error", err.Error())
			return
		}
		years, err := s.state.Store.StoredYears(r.Context())
		if err != nil {
			writeErrJSON(w, http.StatusInternalServerError, "store_error", err.Error())
			return
		}
		writeJSON(w, map[string]any{
			"status":       "ok",
			"stored_rows":  count,
			"stored_years": years,
		})
	})

	return logMiddleware(mux)
}

// Run запускает сервер и блокируется до отмены контекста.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	utils.Info("API server listening", "addr", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// logMiddleware логирует каждый запрос с кодом ответа и длительностью.
func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		utils.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration", time.Since(start),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrJSON(w http.ResponseWriter, code int, kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "error",
		"error":  map[string]any{"kind": kind, "message": msg},
	})
}
