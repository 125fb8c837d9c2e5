package intake

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"medical-matrix/internal/platform/apperrors"
	"medical-matrix/internal/platform/httpx"
)

type Handler struct {
	svc      Service
	sessions *SessionManager
}

func NewHandler(svc Service, sessions *SessionManager) *Handler {
	return &Handler{svc: svc, sessions: sessions}
}

type OpenSessionRequest struct {
	FormID int64 `json:"form_id"`
}

type EditFieldRequest struct {
	Path  string `json:"path"`
	Value string `json:"value"`
}

type AddQuestionRequest struct {
	Type QuestionType `json:"type"`
}

type MoveQuestionRequest struct {
	Direction Direction `json:"direction"`
}

type SetRequiredRequest struct {
	Required bool `json:"required"`
}

type SetOptionsRequest struct {
	Options []string `json:"options"`
}

type SessionResponse struct {
	SessionID string         `json:"session_id"`
	Form      FormDefinition `json:"form"`
	State     State          `json:"state"`
	JustSaved bool           `json:"just_saved"`
	LastError string         `json:"last_error,omitempty"`
}

// AddQuestionResponse carries the id assigned to the new question.
type AddQuestionResponse struct {
	SessionResponse
	QuestionID int `json:"question_id"`
}

func newSessionResponse(sess *Session) SessionResponse {
	resp := SessionResponse{
		SessionID: sess.ID,
		Form:      sess.Form(),
		State:     sess.State(),
		JustSaved: sess.JustSaved(),
	}
	if err := sess.LastError(); err != nil {
		resp.LastError = apperrors.PublicMessage(err)
	}
	return resp
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	forms, err := h.svc.List(r.Context())
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	httpx.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"forms": forms,
		"count": len(forms),
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	form, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	httpx.RespondWithJSON(w, http.StatusOK, form)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req FormDefinition
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	form, err := h.svc.Create(r.Context(), req)
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	httpx.RespondWithJSON(w, http.StatusCreated, form)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	var req FormDefinition
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	form, err := h.svc.Update(r.Context(), id, req)
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	httpx.RespondWithJSON(w, http.StatusOK, form)
}

func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	form, err := h.svc.Publish(r.Context(), id)
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	httpx.RespondWithJSON(w, http.StatusOK, form)
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

func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondWithAppError(w, r, err)
			return
		}
	}
	if req.FormID < 0 {
		httpx.RespondWithAppError(w, r, apperrors.NewValidationError("invalid form_id"))
		return
	}

	sess, err := h.sessions.Open(r.Context(), req.FormID)
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	httpx.RespondWithJSON(w, http.StatusCreated, newSessionResponse(sess))
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	httpx.RespondWithJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(chi.URLParam(r, "sid")); err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) EditField(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req EditFieldRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	sess.EditField(req.Path, req.Value)
	httpx.RespondWithJSON(w, http.StatusAccepted, newSessionResponse(sess))
}

func (h *Handler) AddQuestion(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req AddQuestionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	qid, err := sess.AddQuestion(r.Context(), req.Type)
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	httpx.RespondWithJSON(w, http.StatusCreated, AddQuestionResponse{
		SessionResponse: newSessionResponse(sess),
		QuestionID:      qid,
	})
}

func (h *Handler) RemoveQuestion(w http.ResponseWriter, r *http.Request) {
	sess, qid, ok := h.sessionQuestion(w, r)
	if !ok {
		return
	}

	if err := sess.RemoveQuestion(r.Context(), qid); err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	httpx.RespondWithJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (h *Handler) MoveQuestion(w http.ResponseWriter, r *http.Request) {
	sess, qid, ok := h.sessionQuestion(w, r)
	if !ok {
		return
	}

	var req MoveQuestionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	if err := sess.MoveQuestion(r.Context(), qid, req.Direction); err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	httpx.RespondWithJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (h *Handler) SetRequired(w http.ResponseWriter, r *http.Request) {
	sess, qid, ok := h.sessionQuestion(w, r)
	if !ok {
		return
	}

	var req SetRequiredRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	if err := sess.SetRequired(r.Context(), qid, req.Required); err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	httpx.RespondWithJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (h *Handler) SetOptions(w http.ResponseWriter, r *http.Request) {
	sess, qid, ok := h.sessionQuestion(w, r)
	if !ok {
		return
	}

	var req SetOptionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}

	if err := sess.SetOptions(r.Context(), qid, req.Options); err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	httpx.RespondWithJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Reload(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return
	}
	httpx.RespondWithJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sess, err := h.sessions.Get(chi.URLParam(r, "sid"))
	if err != nil {
		httpx.RespondWithAppError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (h *Handler) sessionQuestion(w http.ResponseWriter, r *http.Request) (*Session, int, bool) {
	sess, ok := h.session(w, r)
	if !ok {
		return nil, 0, false
	}
	qid, err := strconv.Atoi(chi.URLParam(r, "qid"))
	if err != nil {
		httpx.RespondWithAppError(w, r, apperrors.NewValidationError("invalid question id"))
		return nil, 0, false
	}
	return sess, qid, true
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/forms", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.OpenSession)
			r.Get("/{sid}", h.GetSession)
			r.Delete("/{sid}", h.CloseSession)
			r.Patch("/{sid}/fields", h.EditField)
			r.Post("/{sid}/reload", h.Reload)
			r.Post("/{sid}/questions", h.AddQuestion)
			r.Delete("/{sid}/questions/{qid}", h.RemoveQuestion)
			r.Post("/{sid}/questions/{qid}/move", h.MoveQuestion)
			r.Put("/{sid}/questions/{qid}/required", h.SetRequired)
			r.Put("/{sid}/questions/{qid}/options", h.SetOptions)
		})

		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/publish", h.Publish)
	})
}
