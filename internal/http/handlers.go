package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"peatracker/internal/core"
	"peatracker/internal/log"
	"peatracker/internal/store"
)

// decode reads the request body into v, answering 400 on malformed JSON and
// 422 on a malformed date. It returns false when a response was written.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := decodeJSON(r, v)
	switch {
	case err == nil:
		return true
	case errors.Is(err, core.ErrInvalidDate):
		writeValidationError(w, r, err)
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady reports whether the tracker is wired and whether an account is configured.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.tracker == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ready",
		"configured": s.tracker.Config() != nil,
		"requests":   s.tracer.GetMetrics(),
		"rate_limit": s.rateLimiter.GetMetrics(),
		"security":   s.detector.GetMetrics(),
	})
}

type configResponse struct {
	Configured bool                `json:"configured"`
	Config     *core.AccountConfig `json:"config"`
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.tracker.Config()
	writeJSON(w, http.StatusOK, configResponse{Configured: cfg != nil, Config: cfg})
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var cfg core.AccountConfig
	if !s.decode(w, r, &cfg) {
		return
	}
	if err := s.tracker.SetConfig(r.Context(), cfg); err != nil {
		writeValidationError(w, r, err)
		return
	}
	s.structured.LogMutation(r.Context(), log.OpUpdate, string(store.CollectionConfig), "config")
	writeJSON(w, http.StatusOK, configResponse{Configured: true, Config: &cfg})
}

func (s *Server) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	s.tracker.ClearConfig(r.Context())
	s.structured.LogMutation(r.Context(), log.OpDelete, string(store.CollectionConfig), "config")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries := s.tracker.Entries()
	if entries == nil {
		entries = []core.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type entryRequest struct {
	Capital *decimal.Decimal `json:"capital"`
	Note    string           `json:"note"`
}

// handlePutEntry records the capital of the day in the path, replacing any
// entry of that day.
func (s *Server) handlePutEntry(w http.ResponseWriter, r *http.Request) {
	date, err := pathDate(r, "date")
	if err != nil {
		writeValidationError(w, r, err)
		return
	}
	var req entryRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Capital == nil {
		writeValidationError(w, r, errors.New("capital is required"))
		return
	}

	e := core.Entry{Date: date, Capital: *req.Capital, Note: req.Note}
	if err := s.tracker.AddEntry(r.Context(), e); err != nil {
		writeValidationError(w, r, err)
		return
	}
	s.structured.LogMutation(r.Context(), log.OpUpdate, string(store.CollectionEntries), date.String())
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	date, err := pathDate(r, "date")
	if err != nil {
		writeValidationError(w, r, err)
		return
	}
	if s.tracker.DeleteEntry(r.Context(), date) {
		s.structured.LogMutation(r.Context(), log.OpDelete, string(store.CollectionEntries), date.String())
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListDeposits(w http.ResponseWriter, r *http.Request) {
	deposits := s.tracker.DepositsNewestFirst()
	if deposits == nil {
		deposits = []core.Deposit{}
	}
	writeJSON(w, http.StatusOK, deposits)
}

type depositRequest struct {
	Date   core.Date        `json:"date"`
	Amount *decimal.Decimal `json:"amount"`
	Note   string           `json:"note"`
}

// handleCreateDeposit records a deposit. An omitted date means today.
func (s *Server) handleCreateDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Amount == nil {
		writeValidationError(w, r, errors.New("amount is required"))
		return
	}
	if req.Date.IsZero() {
		req.Date = s.tracker.Today()
	}

	d, err := s.tracker.AddDeposit(r.Context(), req.Date, *req.Amount, req.Note)
	if err != nil {
		writeValidationError(w, r, err)
		return
	}
	s.structured.LogMutation(r.Context(), log.OpCreate, string(store.CollectionDeposits), d.ID)
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleDeleteDeposit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if s.tracker.DeleteDeposit(r.Context(), id) {
		s.structured.LogMutation(r.Context(), log.OpDelete, string(store.CollectionDeposits), id)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetDCA(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.DCA())
}

func (s *Server) handlePatchDCA(w http.ResponseWriter, r *http.Request) {
	var patch core.DCAPatch
	if !s.decode(w, r, &patch) {
		return
	}
	cfg, err := s.tracker.UpdateDCA(r.Context(), patch)
	if err != nil {
		writeValidationError(w, r, err)
		return
	}
	s.structured.LogMutation(r.Context(), log.OpUpdate, string(store.CollectionSchedule), "schedule")
	writeJSON(w, http.StatusOK, cfg)
}

type datesResponse struct {
	Year  int         `json:"year"`
	Month int         `json:"month"`
	Dates []core.Date `json:"dates"`
}

func (s *Server) handleDCADates(w http.ResponseWriter, r *http.Request) {
	year, month, err := queryYearMonth(r, s.tracker.Today())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dates := s.tracker.DCADates(year, month)
	if dates == nil {
		dates = []core.Date{}
	}
	writeJSON(w, http.StatusOK, datesResponse{Year: year, Month: month, Dates: dates})
}

func (s *Server) handleDayPerformance(w http.ResponseWriter, r *http.Request) {
	date, err := pathDate(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, ok := s.tracker.DayPerformance(date)
	if !ok {
		writeError(w, http.StatusNotFound, "no performance for "+date.String())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePerformanceRange(w http.ResponseWriter, r *http.Request) {
	start, end, err := queryRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	perfs := s.tracker.PerformancesInRange(start, end)
	if perfs == nil {
		perfs = []core.DayPerformance{}
	}
	writeJSON(w, http.StatusOK, perfs)
}

type gainResponse struct {
	Start core.Date       `json:"start"`
	End   core.Date       `json:"end"`
	Gain  decimal.Decimal `json:"gain"`
}

func (s *Server) handlePeriodGain(w http.ResponseWriter, r *http.Request) {
	start, end, err := queryRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, gainResponse{Start: start, End: end, Gain: s.tracker.PeriodGain(start, end)})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Summary())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Stats())
}

func (s *Server) handleCeiling(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Ceiling())
}
