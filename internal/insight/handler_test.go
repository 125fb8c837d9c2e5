package insight_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medical-matrix/internal/insight"
	"medical-matrix/internal/platform/apperrors"
)

type stubService struct {
	analyzed []insight.SymptomProfile
	notes    map[int64]string
}

func (s *stubService) Analyze(ctx context.Context, patientID int64, p insight.SymptomProfile) []insight.Suggestion {
	s.analyzed = append(s.analyzed, p)
	return insight.Evaluate(p)
}

func (s *stubService) Get(ctx context.Context, id int64) (*insight.DiagnosticRecord, error) {
	if id != 1 {
		return nil, apperrors.NewNotFoundError("diagnostic not found")
	}
	return &insight.DiagnosticRecord{ID: 1, PatientID: 9}, nil
}

func (s *stubService) ListForPatient(ctx context.Context, patientID int64) ([]insight.DiagnosticRecord, error) {
	return []insight.DiagnosticRecord{{ID: 1, PatientID: patientID}}, nil
}

func (s *stubService) UpdateNotes(ctx context.Context, id int64, notes string) error {
	s.notes[id] = notes
	return nil
}

func (s *stubService) Delete(ctx context.Context, id int64) error  { return nil }
func (s *stubService) SendReport(ctx context.Context, id int64) error { return nil }

func newRouter(svc insight.Service) http.Handler {
	r := chi.NewRouter()
	insight.RegisterRoutes(r, insight.NewHandler(svc))
	return r
}

func TestHandler_Analyze(t *testing.T) {
	svc := &stubService{}
	router := newRouter(svc)

	body := `{"patient_id":9,"symptoms":"Bloating and joint PAIN","lifestyle":"desk job"}`
	req := httptest.NewRequest(http.MethodPost, "/diagnostics/insights", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Suggestions []insight.Suggestion `json:"suggestions"`
		Count       int                  `json:"count"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "Small Intestinal Bacterial Overgrowth (SIBO)", resp.Suggestions[0].Condition)
	assert.Equal(t, "desk job", svc.analyzed[0].Lifestyle)
}

func TestHandler_Analyze_RequiresSymptoms(t *testing.T) {
	svc := &stubService{}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/diagnostics/insights", strings.NewReader(`{"symptoms":"  "}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.analyzed)
}

func TestHandler_Get(t *testing.T) {
	router := newRouter(&stubService{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/diagnostics/1", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/diagnostics/2", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/diagnostics/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_UpdateNotes(t *testing.T) {
	svc := &stubService{notes: map[int64]string{}}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodPatch, "/diagnostics/1/notes", strings.NewReader(`{"practitioner_notes":"order GI-MAP"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "order GI-MAP", svc.notes[1])
}

func TestHandler_ListForPatient(t *testing.T) {
	router := newRouter(&stubService{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/patients/9/diagnostics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
}
