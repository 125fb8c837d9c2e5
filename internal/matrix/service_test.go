package matrix

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medical-matrix/internal/insight"
	"medical-matrix/internal/platform/apperrors"
)

type memoryRepo struct {
	mu       sync.Mutex
	nextID   int64
	matrices map[int64]Matrix
	updates  int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{matrices: map[int64]Matrix{}}
}

func clone(m Matrix) Matrix {
	out := m
	out.Systems = map[string][]Condition{}
	for k, v := range m.Systems {
		out.Systems[k] = append([]Condition(nil), v...)
	}
	out.Annotations = append([]Annotation{}, m.Annotations...)
	return out
}

func (r *memoryRepo) Create(ctx context.Context, m *Matrix) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.matrices {
		if existing.PatientID == m.PatientID {
			return apperrors.NewConflictError("patient already has a matrix")
		}
	}
	r.nextID++
	m.ID = r.nextID
	r.matrices[m.ID] = clone(*m)
	return nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id int64) (*Matrix, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matrices[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("matrix not found")
	}
	m = clone(m)
	return &m, nil
}

func (r *memoryRepo) GetByPatient(ctx context.Context, patientID int64) (*Matrix, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.matrices {
		if m.PatientID == patientID {
			m = clone(m)
			return &m, nil
		}
	}
	return nil, apperrors.NewNotFoundError("matrix not found")
}

func (r *memoryRepo) Update(ctx context.Context, m *Matrix) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.matrices[m.ID]; !ok {
		return apperrors.NewNotFoundError("matrix not found")
	}
	r.matrices[m.ID] = clone(*m)
	r.updates++
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.matrices, id)
	return nil
}

func TestService_ForPatient_DraftWhenMissing(t *testing.T) {
	svc := NewService(newMemoryRepo())

	m, err := svc.ForPatient(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, int64(0), m.ID)
	assert.Equal(t, int64(8), m.PatientID)
	assert.Equal(t, StatusDraft, m.Status)
	assert.Empty(t, m.Systems)
	assert.False(t, m.LastModified.IsZero())
}

func TestService_SaveCreatesThenUpdates(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	draft, err := svc.ForPatient(ctx, 8)
	require.NoError(t, err)
	saved, err := svc.Save(ctx, *draft)
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.ID)

	found, err := svc.ForPatient(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, int64(1), found.ID)

	found.Status = StatusPublished
	_, err = svc.Save(ctx, *found)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.updates)

	_, err = svc.Save(ctx, Matrix{})
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))
}

func TestService_ConditionEdits(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()
	saved, err := svc.Save(ctx, NewDraft(1))
	require.NoError(t, err)

	m, err := svc.AddCondition(ctx, saved.ID, "Gastrointestinal", Condition{Name: "SIBO"})
	require.NoError(t, err)
	assert.Len(t, m.Systems["Gastrointestinal"], 1)

	_, err = svc.AddCondition(ctx, saved.ID, "Cardio", Condition{Name: "x"})
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))

	updates := repo.updates
	m, err = svc.RemoveCondition(ctx, saved.ID, "Gastrointestinal", 3)
	require.NoError(t, err)
	assert.Len(t, m.Systems["Gastrointestinal"], 1)
	assert.Equal(t, updates, repo.updates, "out of range removal writes nothing")

	m, err = svc.RemoveCondition(ctx, saved.ID, "Gastrointestinal", 0)
	require.NoError(t, err)
	assert.Empty(t, m.Systems["Gastrointestinal"])

	m, err = svc.Annotate(ctx, saved.ID, "Energy", "Recheck in 6 weeks")
	require.NoError(t, err)
	require.Len(t, m.Annotations, 1)
	assert.False(t, m.Annotations[0].CreatedAt.IsZero())

	_, err = svc.AddCondition(ctx, 404, "Energy", Condition{Name: "x"})
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNotFound))
}

func TestService_AddSuggestion(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()
	saved, err := svc.Save(ctx, NewDraft(1))
	require.NoError(t, err)

	suggestions := insight.Evaluate(insight.SymptomProfile{Symptoms: "always tired"})
	require.Len(t, suggestions, 1)

	m, err := svc.AddSuggestion(ctx, saved.ID, "Energy", suggestions[0])
	require.NoError(t, err)

	c := m.Systems["Energy"][0]
	assert.Equal(t, "Mitochondrial Dysfunction", c.Name)
	require.NotNil(t, c.Confidence)
	assert.Equal(t, 85, *c.Confidence)
	assert.Equal(t, SuggestionSource, c.Source)
}

func TestService_ConcurrentEditsAreNotLost(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()
	saved, err := svc.Save(ctx, NewDraft(1))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.AddCondition(ctx, saved.ID, "Immune", Condition{Name: "c"})
		}()
	}
	wg.Wait()

	m, err := svc.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, m.Summary().TotalConditions)
}
