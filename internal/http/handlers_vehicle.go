package http

import (
	"net/http"

	"autocare/internal/core"
	applog "autocare/internal/log"
)

func (s *Server) handleGetVehicle(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.Vehicle(r.Context())
	if err != nil {
		applog.FromContext(r.Context()).Error("Load vehicle failed", applog.FieldError, err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleSaveVehicle(w http.ResponseWriter, r *http.Request) {
	var v core.VehicleProfile
	if err := decodeJSON(r, &v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	v.Brand = sanitizeInput(v.Brand)
	v.Model = sanitizeInput(v.Model)
	v.Year = sanitizeInput(v.Year)
	v.Plate = sanitizeInput(v.Plate)
	v.VIN = sanitizeInput(v.VIN)

	if err := s.svc.SaveVehicle(r.Context(), v); err != nil {
		applog.FromContext(r.Context()).Error("Save vehicle failed", applog.FieldError, err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
