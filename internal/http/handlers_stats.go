package http

import (
	"net/http"
	"time"

	"autocare/internal/core"
	applog "autocare/internal/log"
	"autocare/internal/stats"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	period := core.PeriodAll
	if v := r.URL.Query().Get("period"); v != "" {
		period = core.StatsPeriod(v)
	}
	if !period.Valid() {
		writeError(w, http.StatusBadRequest, "period must be one of: all, month, quarter, year")
		return
	}

	key := string(period)
	if summary, ok := s.statsCache.Get(key); ok {
		applog.FromContext(r.Context()).Debug("Stats cache hit", applog.FieldPeriod, key)
		writeJSON(w, http.StatusOK, summary)
		return
	}

	records, err := s.svc.ListExpenses(r.Context())
	if err != nil {
		applog.FromContext(r.Context()).Error("List expenses for stats failed", applog.FieldError, err)
		writeDomainError(w, err)
		return
	}

	summary := stats.Compute(records, period, time.Now())
	s.statsCache.Set(key, summary)
	writeJSON(w, http.StatusOK, summary)
}
