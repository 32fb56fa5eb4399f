package http

import (
	"net/http"

	"autocare/internal/core"
	applog "autocare/internal/log"
)

type expenseRequest struct {
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Mileage     *int    `json:"mileage,omitempty"`
}

func (req expenseRequest) toRecord() (core.ExpenseRecord, error) {
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	return core.ExpenseRecord{
		Date:        date,
		Amount:      req.Amount,
		Category:    core.Category(sanitizeInput(req.Category)),
		Description: sanitizeInput(req.Description),
		Mileage:     req.Mileage,
	}, nil
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.ListExpenses(r.Context())
	if err != nil {
		applog.FromContext(r.Context()).Error("List expenses failed", applog.FieldError, err)
		writeDomainError(w, err)
		return
	}
	if records == nil {
		records = []core.ExpenseRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	record, err := req.toRecord()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	created, err := s.svc.CreateExpense(r.Context(), record)
	if err != nil {
		applog.FromContext(r.Context()).Error("Create expense failed", applog.FieldError, err)
		writeDomainError(w, err)
		return
	}

	s.invalidateStats()
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	record, err := req.toRecord()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	record.ID = r.PathValue("id")

	if err := s.svc.UpdateExpense(r.Context(), record); err != nil {
		applog.FromContext(r.Context()).Error("Update expense failed",
			applog.FieldExpenseID, record.ID, applog.FieldError, err)
		writeDomainError(w, err)
		return
	}

	s.invalidateStats()
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.svc.DeleteExpense(r.Context(), id); err != nil {
		applog.FromContext(r.Context()).Error("Delete expense failed",
			applog.FieldExpenseID, id, applog.FieldError, err)
		writeDomainError(w, err)
		return
	}

	s.invalidateStats()
	w.WriteHeader(http.StatusNoContent)
}
