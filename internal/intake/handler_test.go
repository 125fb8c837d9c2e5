package intake

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medical-matrix/internal/platform/validation"
)

func newTestRouter(t *testing.T) (http.Handler, *memoryRepo) {
	t.Helper()
	repo := newMemoryRepo()
	svc := NewService(repo, validation.New())
	sessions := NewSessionManager(svc, nil, WithDelay(testDelay), WithAckWindow(time.Hour))
	t.Cleanup(sessions.CloseAll)

	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(svc, sessions))
	return r, repo
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeSession(t *testing.T, w *httptest.ResponseRecorder) SessionResponse {
	t.Helper()
	var resp SessionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestHandler_CreateAndPublish(t *testing.T) {
	router, _ := newTestRouter(t)

	body := `{"title":"Intake","questions":[{"id":1,"type":"select","label":"Diet","options":["Vegan"]}]}`
	w := do(t, router, http.MethodPost, "/forms", body)
	require.Equal(t, http.StatusCreated, w.Code)

	var created FormDefinition
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, StatusDraft, created.Status)

	w = do(t, router, http.MethodPost, "/forms/1/publish", "")
	require.Equal(t, http.StatusOK, w.Code)
	var published FormDefinition
	require.NoError(t, json.NewDecoder(w.Body).Decode(&published))
	assert.Equal(t, StatusPublished, published.Status)

	w = do(t, router, http.MethodGet, "/forms", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
}

func TestHandler_CreateValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	cases := map[string]string{
		"blank title":       `{"title":"  "}`,
		"choice no options": `{"title":"T","questions":[{"id":1,"type":"checkbox","label":"Pick"}]}`,
		"duplicate ids":     `{"title":"T","questions":[{"id":1,"type":"text","label":"a"},{"id":1,"type":"text","label":"b"}]}`,
		"inverted scale":    `{"title":"T","questions":[{"id":1,"type":"scale","label":"a","scale":{"min":5,"max":1}}]}`,
		"unknown type":      `{"title":"T","questions":[{"id":1,"type":"matrix","label":"a"}]}`,
		"malformed json":    `{"title":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/forms", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandler_GetMissingForm(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(t, router, http.MethodGet, "/forms/77", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodGet, "/forms/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_SessionLifecycle(t *testing.T) {
	router, repo := newTestRouter(t)

	w := do(t, router, http.MethodPost, "/forms/sessions", `{"form_id":0}`)
	require.Equal(t, http.StatusCreated, w.Code)
	sess := decodeSession(t, w)
	require.NotEmpty(t, sess.SessionID)
	assert.Equal(t, "New Intake Form", sess.Form.Title)
	assert.Equal(t, StateClean, sess.State)
	base := "/forms/sessions/" + sess.SessionID

	w = do(t, router, http.MethodPost, base+"/questions", `{"type":"select"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var added AddQuestionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&added))
	assert.Equal(t, 1, added.QuestionID)
	assert.Equal(t, StateSaved, added.State)
	assert.True(t, added.JustSaved)
	assert.Equal(t, int64(1), added.Form.ID)

	w = do(t, router, http.MethodPut, base+"/questions/1/options", `{"options":["Yes","No","Maybe"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Yes", "No", "Maybe"}, repo.stored(1).Questions[0].Options)

	w = do(t, router, http.MethodPut, base+"/questions/1/required", `{"required":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, repo.stored(1).Questions[0].Required)

	w = do(t, router, http.MethodPatch, base+"/fields", `{"path":"questions.1.label","value":"Any allergies?"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, StatePending, decodeSession(t, w).State)
	require.Eventually(t, func() bool {
		return repo.stored(1).Questions[0].Label == "Any allergies?"
	}, time.Second, 5*time.Millisecond)

	w = do(t, router, http.MethodPost, base+"/questions/1/move", `{"direction":"sideways"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodDelete, base+"/questions/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, repo.stored(1).Questions)

	w = do(t, router, http.MethodPost, base+"/reload", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, StateClean, decodeSession(t, w).State)

	w = do(t, router, http.MethodDelete, base, "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_OpenStoredForm(t *testing.T) {
	router, repo := newTestRouter(t)
	form := sampleForm()
	require.NoError(t, repo.Create(context.Background(), &form))

	w := do(t, router, http.MethodPost, "/forms/sessions", `{"form_id":1}`)
	require.Equal(t, http.StatusCreated, w.Code)
	sess := decodeSession(t, w)
	assert.Len(t, sess.Form.Questions, 3)

	w = do(t, router, http.MethodPut, "/forms/sessions/"+sess.SessionID+"/questions/1/options", `{"options":["x"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "text questions take no options")

	w = do(t, router, http.MethodPost, "/forms/sessions", `{"form_id":9}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
