package matrix

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"medical-matrix/internal/insight"
	"medical-matrix/internal/platform/apperrors"
	"medical-matrix/internal/platform/httpx"
	"medical-matrix/internal/platform/validation"
)

type Handler struct {
	svc       Service
	validator *validation.Validator
}

func NewHandler(svc Service, v *validation.Validator) *Handler {
	return &Handler{svc: svc, validator: v}
}

type ConditionRequest struct {
	System     string `json:"system" validate:"required"`
	Name       string `json:"name" validate:"notblank"`
	Confidence *int   `json:"confidence" validate:"omitempty,min=0,max=100"`
	Source     string `json:"source"`
}

type SuggestionRequest struct {
	System     string             `json:"system" validate:"required"`
	Suggestion insight.Suggestion `json:"suggestion"`
}

type AnnotationRequest struct {
	System string `json:"system"`
	Text   string `json:"text" validate:"notblank"`
}

type Response struct {
	Matrix  Matrix  `json:"matrix"`
	Summary Summary `json:"summary"`
}

func newResponse(m *Matrix) Response {
	return Response{Matrix: *m, Summary: m.Summary()}
}

func (h *Handler) Systems(w http.ResponseWriter, r *http.Request) {
	httpx.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"systems": FunctionalSystems(),
	})
}

func (h *Handler) ForPatient(w http.ResponseWriter, r *http.Request) {
	patientID, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	m, err := h.svc.ForPatient(r.Context(), patientID)
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	httpx.RespondWithJSON(w, http.StatusOK, newResponse(m))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	m, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	httpx.RespondWithJSON(w, http.StatusOK, newResponse(m))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req Matrix
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	req.ID = 0

	m, err := h.svc.Save(r.Context(), req)
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	httpx.RespondWithJSON(w, http.StatusCreated, newResponse(m))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	var req Matrix
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	req.ID = id

	m, err := h.svc.Save(r.Context(), req)
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	httpx.RespondWithJSON(w, http.StatusOK, newResponse(m))
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

func (h *Handler) AddCondition(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	var req ConditionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	m, err := h.svc.AddCondition(r.Context(), id, req.System, Condition{
		Name:       req.Name,
		Confidence: req.Confidence,
		Source:     req.Source,
	})
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	httpx.RespondWithJSON(w, http.StatusCreated, newResponse(m))
}

// RemoveCondition expects the system name path-escaped, e.g. Mind%2FSpirit.
func (h *Handler) RemoveCondition(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	system, err := url.PathUnescape(chi.URLParam(r, "system"))
	if err != nil {
		httpx.RespondWithAppError(w, r, apperrors.NewValidationError("invalid system"))
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httpx.RespondWithAppError(w, r, apperrors.NewValidationError("invalid index"))
		return
	}

	m, err := h.svc.RemoveCondition(r.Context(), id, system, index)
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	httpx.RespondWithJSON(w, http.StatusOK, newResponse(m))
}

func (h *Handler) AddSuggestion(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	var req SuggestionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	m, err := h.svc.AddSuggestion(r.Context(), id, req.System, req.Suggestion)
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	httpx.RespondWithJSON(w, http.StatusCreated, newResponse(m))
}

func (h *Handler) Annotate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	var req AnnotationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	m, err := h.svc.Annotate(r.Context(), id, req.System, req.Text)
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	httpx.RespondWithJSON(w, http.StatusCreated, newResponse(m))
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/patients/{id}/matrix", h.ForPatient)

	r.Route("/matrix", func(r chi.Router) {
		r.Get("/systems", h.Systems)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/conditions", h.AddCondition)
		r.Delete("/{id}/conditions/{system}/{index}", h.RemoveCondition)
		r.Post("/{id}/suggestions", h.AddSuggestion)
		r.Post("/{id}/annotations", h.Annotate)
	})
}
