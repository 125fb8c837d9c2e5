package insight

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"medical-matrix/internal/platform/apperrors"
	"medical-matrix/internal/platform/httpx"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

type AnalyzeRequest struct {
	PatientID int64 `json:"patient_id"`
	SymptomProfile
}

type NotesRequest struct {
	PractitionerNotes string `json:"practitioner_notes"`
}

func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Symptoms) == "" {
		httpx.RespondWithAppError(w, r, apperrors.NewValidationError("symptoms are required"))
		return
	}

	suggestions := h.svc.Analyze(r.Context(), req.PatientID, req.SymptomProfile)

	httpx.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": suggestions,
		"count":       len(suggestions),
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	httpx.RespondWithJSON(w, http.StatusOK, rec)
}

func (h *Handler) ListForPatient(w http.ResponseWriter, r *http.Request) {
	patientID, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	records, err := h.svc.ListForPatient(r.Context(), patientID)
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	httpx.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"diagnostics": records,
		"count":       len(records),
	})
}

func (h *Handler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	var req NotesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	if err := h.svc.UpdateNotes(r.Context(), id, req.PractitionerNotes); err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SendReport(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	if err := h.svc.SendReport(r.Context(), id); err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	httpx.RespondWithJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/diagnostics/insights", h.Analyze)
	r.Get("/diagnostics/{id}", h.Get)
	r.Patch("/diagnostics/{id}/notes", h.UpdateNotes)
	r.Delete("/diagnostics/{id}", h.Delete)
	r.Post("/diagnostics/{id}/report", h.SendReport)
	r.Get("/patients/{id}/diagnostics", h.ListForPatient)
}
