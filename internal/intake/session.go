package intake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"medical-matrix/internal/platform/apperrors"
)

// FormSavedChannel carries a FormSavedEvent after every successful editor save.
const FormSavedChannel = "intake:forms:saved"

// Notifier publishes events to other processes.
type Notifier interface {
	Publish(ctx context.Context, channel string, event interface{}) error
}

type FormSavedEvent struct {
	SessionID string    `json:"session_id"`
	FormID    int64     `json:"form_id"`
	Title     string    `json:"title"`
	Questions int       `json:"questions"`
	SavedAt   time.Time `json:"saved_at"`
}

// Session is one open editor on one form.
type Session struct {
	ID       string
	OpenedAt time.Time
	*Controller
}

type SessionManager struct {
	svc      Service
	notifier Notifier
	opts     []ControllerOption

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionManager creates a manager. notifier may be nil.
func NewSessionManager(svc Service, notifier Notifier, opts ...ControllerOption) *SessionManager {
	return &SessionManager{
		svc:      svc,
		notifier: notifier,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Open starts editing the stored form formID, or a new unsaved draft when
// formID is 0.
func (m *SessionManager) Open(ctx context.Context, formID int64) (*Session, error) {
	form := NewDraft()
	if formID != 0 {
		stored, err := m.svc.Get(ctx, formID)
		if err != nil {
			return nil, err
		}
		form = *stored
	}

	sess := &Session{
		ID:       uuid.NewString(),
		OpenedAt: time.Now().UTC(),
	}
	logger := log.With().Str("session_id", sess.ID).Logger()

	opts := append([]ControllerOption{
		WithErrorHandler(func(err error) {
			logger.Warn().Err(err).Msg("intake form save failed")
		}),
	}, m.opts...)
	sess.Controller = NewController(form, m.persist(sess), opts...)

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	logger.Info().Int64("form_id", form.ID).Msg("intake editor opened")
	return sess, nil
}

func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("editor session %s not found", id))
	}
	return sess, nil
}

// Close discards the session. Edits still waiting for their delay are dropped.
func (m *SessionManager) Close(id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("editor session %s not found", id))
	}
	sess.Controller.Close()
	return nil
}

// CloseAll closes every open session.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.Controller.Close()
	}
}

// Reload replaces the working copy with the stored form.
func (m *SessionManager) Reload(ctx context.Context, id string) (*Session, error) {
	sess, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	formID := sess.Form().ID
	if formID == 0 {
		return nil, apperrors.NewValidationError("form has not been saved yet")
	}

	stored, err := m.svc.Get(ctx, formID)
	if err != nil {
		return nil, err
	}
	sess.Replace(*stored)
	return sess, nil
}

func (m *SessionManager) persist(sess *Session) SaveFunc {
	return func(ctx context.Context, form FormDefinition) error {
		if err := m.svc.Save(ctx, &form); err != nil {
			return err
		}
		sess.AssignID(form.ID)

		if m.notifier == nil {
			return nil
		}
		event := FormSavedEvent{
			SessionID: sess.ID,
			FormID:    form.ID,
			Title:     form.Title,
			Questions: len(form.Questions),
			SavedAt:   form.LastModified,
		}
		if err := m.notifier.Publish(ctx, FormSavedChannel, event); err != nil {
			log.Warn().Err(err).Str("session_id", sess.ID).Int64("form_id", form.ID).Msg("failed to publish form saved event")
		}
		return nil
	}
}
