package patient

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"medical-matrix/internal/platform/httpx"
)

type Handler struct {
	svc Service
	now func() time.Time
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

// Response adds the derived age to a patient.
type Response struct {
	Patient
	Age *int `json:"age,omitempty"`
}

func (h *Handler) toResponse(p Patient) Response {
	resp := Response{Patient: p}
	if age, ok := p.Age(h.now()); ok {
		resp.Age = &age
	}
	return resp
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	patients, err := h.svc.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	out := make([]Response, len(patients))
	for i, p := range patients {
		out[i] = h.toResponse(p)
	}
	httpx.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"patients": out,
		"count":    len(out),
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	httpx.RespondWithJSON(w, http.StatusOK, h.toResponse(*p))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req Patient
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	p, err := h.svc.Create(r.Context(), req)
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	httpx.RespondWithJSON(w, http.StatusCreated, h.toResponse(*p))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	var req Patient
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	p, err := h.svc.Update(r.Context(), id, req)
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	httpx.RespondWithJSON(w, http.StatusOK, h.toResponse(*p))
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

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/patients", h.List)
	r.Post("/patients", h.Create)
	r.Get("/patients/{id}", h.Get)
	r.Put("/patients/{id}", h.Update)
	r.Delete("/patients/{id}", h.Delete)
}
