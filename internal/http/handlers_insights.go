package http

import (
	"errors"
	"net/http"

	"autocare/internal/advisor"
	"autocare/internal/core"
	applog "autocare/internal/log"
)

type insightsResponse struct {
	Insights []core.InsightCard `json:"insights"`
	Reason   string             `json:"reason,omitempty"`
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.ListExpenses(r.Context())
	if err != nil {
		applog.FromContext(r.Context()).Error("List expenses for insights failed", applog.FieldError, err)
		writeDomainError(w, err)
		return
	}

	if len(records) < advisor.MinRecordsForAnalysis {
		writeJSON(w, http.StatusOK, insightsResponse{
			Insights: []core.InsightCard{},
			Reason:   "insufficient_data",
		})
		return
	}

	// Without a configured backend the analysis degrades to the fixed
	// warning card, same as a failed call.
	if s.analyzer == nil {
		writeJSON(w, http.StatusOK, insightsResponse{Insights: advisor.FallbackCards()})
		return
	}

	ctx, cancel := s.aiContext(r.Context())
	defer cancel()

	cards, err := s.analyzer.Analyze(ctx, records)
	if err != nil {
		if errors.Is(err, advisor.ErrInsufficientData) {
			writeJSON(w, http.StatusOK, insightsResponse{
				Insights: []core.InsightCard{},
				Reason:   "insufficient_data",
			})
			return
		}
		applog.FromContext(r.Context()).Error("Insight analysis failed", applog.FieldError, err)
		writeJSON(w, http.StatusOK, insightsResponse{Insights: advisor.FallbackCards()})
		return
	}

	if cards == nil {
		cards = []core.InsightCard{}
	}
	writeJSON(w, http.StatusOK, insightsResponse{Insights: cards})
}
