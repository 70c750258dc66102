package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/calc"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/consts"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/display"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/history"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/suite"
)

type calculateRequest struct {
	ID         string `json:"id,omitempty"`
	Expression string `json:"expression"`
}

type calculateResponse struct {
	ID         string     `json:"id,omitempty"`
	Expression string     `json:"expression"`
	Result     *float64   `json:"result,omitempty"`
	Formatted  string     `json:"formatted,omitempty"`
	Error      *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Class    string `json:"class"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Position *int   `json:"position,omitempty"`
}

type suiteSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Cases       int    `json:"cases"`
	Source      string `json:"source"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, class, kind, message string) {
	writeJSON(w, status, map[string]*errorBody{
		"error": {Class: class, Kind: kind, Message: message},
	})
}

// statusFor maps an evaluation outcome to an HTTP status: input the
// caller must fix is 400, a well-formed expression without a value is 422.
func statusFor(class calc.Class) int {
	switch class {
	case calc.ClassNone:
		return http.StatusOK
	case calc.ClassLexical, calc.ClassSyntax:
		return http.StatusBadRequest
	case calc.ClassEvaluation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// evaluate runs expr through the current evaluator, records metrics and
// history, and builds the response.
func (s *Server) evaluate(id, expr, source string) (*calculateResponse, calc.Class) {
	start := time.Now()
	value, err := s.evaluator.Load().Calculate(expr)
	evaluationDuration.Observe(time.Since(start).Seconds())
	expressionBytes.Observe(float64(len(expr)))

	class, kind := calc.Classify(err)
	classLabel := string(class)
	if class == calc.ClassNone {
		classLabel = "ok"
	}
	evaluationsTotal.WithLabelValues(classLabel, source).Inc()

	resp := &calculateResponse{ID: id, Expression: expr}
	entry := &history.Entry{Expression: expr, Source: source}

	if err != nil {
		body := &errorBody{Class: string(class), Kind: kind, Message: err.Error()}
		if pos := display.Position(err); pos >= 0 {
			body.Position = &pos
		}
		resp.Error = body
		entry.ErrorClass = string(class)
		entry.ErrorKind = kind
		entry.ErrorMessage = err.Error()
		s.log.Debug("%s %q: %v", source, expr, err)
	} else {
		resp.Result = &value
		resp.Formatted = display.Number(value, int(s.precision.Load()))
		entry.Result = &value
	}

	if s.store != nil {
		if err := s.store.Record(entry); err != nil {
			s.log.Error("failed to record evaluation: %v", err)
		}
	}
	return resp, class
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"time":    time.Now().Format(time.RFC3339),
		"uptime":  time.Since(s.started).Round(time.Second).String(),
		"history": s.store != nil,
	})
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	var req calculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request", "body_too_large", err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "request", "invalid_json", err.Error())
		return
	}

	resp, class := s.evaluate(req.ID, req.Expression, history.SourceHTTP)
	writeJSON(w, statusFor(class), resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "request", "history_disabled", "history is disabled")
		return
	}

	limit := consts.DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "request", "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = min(n, consts.MaxHistoryLimit)
	}

	var (
		entries []*history.Entry
		err     error
	)
	if expr := r.URL.Query().Get("expression"); expr != "" {
		entries, err = s.store.ByFingerprint(expr)
		if len(entries) > limit {
			entries = entries[:limit]
		}
	} else {
		entries, err = s.store.Recent(limit)
	}
	if err != nil {
		s.log.Error("failed to query history: %v", err)
		writeError(w, http.StatusInternalServerError, "request", "storage", "failed to query history")
		return
	}

	stats, err := s.store.Stats()
	if err != nil {
		s.log.Error("failed to query history stats: %v", err)
		writeError(w, http.StatusInternalServerError, "request", "storage", "failed to query history")
		return
	}

	if entries == nil {
		entries = []*history.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"stats":   stats,
	})
}

func (s *Server) handleSuites(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	suites, err := s.suites.List()
	if err != nil {
		s.log.Error("failed to list suites: %v", err)
		writeError(w, http.StatusInternalServerError, "request", "suites", err.Error())
		return
	}

	summaries := make([]suiteSummary, 0, len(suites))
	for _, st := range suites {
		summaries = append(summaries, suiteSummary{
			ID:          st.ID,
			Name:        st.Name,
			Description: st.Description,
			Cases:       len(st.Cases),
			Source:      st.Source,
		})
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleSuiteRun(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	st, err := s.suites.Load(ps.ByName("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "request", "suite_not_found", err.Error())
		return
	}

	var store suite.Store
	if s.store != nil {
		store = s.store
	}
	runner := suite.NewRunner(store, s.evaluator.Load().Options(), s.workers)
	runner.OnResult = func(suiteID string, res *history.SuiteResult) {
		result := "passed"
		if !res.Passed {
			result = "failed"
		}
		suiteCasesTotal.WithLabelValues(suiteID, result).Inc()
	}

	report, err := runner.Run(r.Context(), st)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "request", "suite_run", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "request", "history_disabled", "history is disabled")
		return
	}

	runID := ps.ByName("run_id")
	run, err := s.store.GetRun(runID)
	if err != nil {
		s.log.Error("failed to load run %s: %v", runID, err)
		writeError(w, http.StatusInternalServerError, "request", "storage", "failed to load run")
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "request", "run_not_found", "run not found: "+runID)
		return
	}

	results, err := s.store.Results(runID)
	if err != nil {
		s.log.Error("failed to load results for %s: %v", runID, err)
		writeError(w, http.StatusInternalServerError, "request", "storage", "failed to load run")
		return
	}
	if results == nil {
		results = []*history.SuiteResult{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run":     run,
		"results": results,
	})
}
