package intake

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"medical-matrix/internal/platform/apperrors"
)

// State of the working copy relative to storage.
type State string

const (
	StateClean       State = "clean"
	StatePending     State = "pending"
	StateSaved       State = "saved"
	StateUnconfirmed State = "unconfirmed"
)

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

const (
	DefaultDelay       = 3 * time.Second
	DefaultAckWindow   = 600 * time.Millisecond
	DefaultSaveTimeout = 10 * time.Second
)

var ErrControllerClosed = errors.New("form editor is closed")

// SaveFunc persists a full snapshot of the working copy.
type SaveFunc func(ctx context.Context, form FormDefinition) error

type ControllerOption func(*Controller)

func WithDelay(d time.Duration) ControllerOption {
	return func(c *Controller) { c.delay = d }
}

func WithAckWindow(d time.Duration) ControllerOption {
	return func(c *Controller) { c.ackWindow = d }
}

// WithSaveTimeout bounds debounced saves, which run without a caller context.
func WithSaveTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) { c.saveTimeout = d }
}

// WithErrorHandler is called with every failed save, outside the controller lock.
func WithErrorHandler(fn func(error)) ControllerOption {
	return func(c *Controller) { c.onError = fn }
}

// Controller owns the editable working copy of one open form.
//
// Text edits are debounced: each one restarts the delay and only the last
// working copy is saved once edits stop. Structural edits save immediately
// and cancel any pending debounced save. Every scheduled save carries the
// generation it was scheduled in; a save whose generation is no longer
// current does nothing.
type Controller struct {
	save        SaveFunc
	delay       time.Duration
	ackWindow   time.Duration
	saveTimeout time.Duration
	onError     func(error)

	// saveMu orders calls to save; mu guards everything below it.
	saveMu sync.Mutex

	mu       sync.Mutex
	form     FormDefinition
	state    State
	gen      uint64
	timer    *time.Timer
	ackTimer *time.Timer
	lastErr  error
	closed   bool
}

func NewController(form FormDefinition, save SaveFunc, opts ...ControllerOption) *Controller {
	c := &Controller{
		save:        save,
		delay:       DefaultDelay,
		ackWindow:   DefaultAckWindow,
		saveTimeout: DefaultSaveTimeout,
		form:        form.Clone(),
		state:       StateClean,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Form returns a copy of the working copy.
func (c *Controller) Form() FormDefinition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form.Clone()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// JustSaved reports whether a save completed within the acknowledgment window.
func (c *Controller) JustSaved() bool {
	return c.State() == StateSaved
}

// LastError returns the error of the most recent failed save, cleared by the
// next successful one.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// EditField applies a text edit and (re)starts the save delay. Paths:
// title, description, questions.<id>.label, questions.<id>.options.<index>.
// Unknown paths are ignored.
func (c *Controller) EditField(path, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !applyFieldEdit(&c.form, path, value) {
		return
	}

	c.stopTimersLocked()
	c.gen++
	gen := c.gen
	c.state = StatePending
	c.timer = time.AfterFunc(c.delay, func() { c.flush(gen) })
}

// AddQuestion appends a question with type defaults and returns its id.
func (c *Controller) AddQuestion(ctx context.Context, t QuestionType) (int, error) {
	if !t.Valid() {
		return 0, apperrors.NewValidationError("unknown question type " + strconv.Quote(string(t)))
	}

	var id int
	err := c.commit(ctx, func(f *FormDefinition) bool {
		id = nextQuestionID(f.Questions)
		f.Questions = append(f.Questions, newQuestion(id, t))
		return true
	})
	return id, err
}

// RemoveQuestion deletes a question by id; unknown ids are a no-op.
func (c *Controller) RemoveQuestion(ctx context.Context, id int) error {
	return c.commit(ctx, func(f *FormDefinition) bool {
		i := f.indexOf(id)
		if i < 0 {
			return false
		}
		f.Questions = append(f.Questions[:i:i], f.Questions[i+1:]...)
		return true
	})
}

// MoveQuestion swaps a question with its neighbour; a no-op at either end.
func (c *Controller) MoveQuestion(ctx context.Context, id int, dir Direction) error {
	if dir != DirectionUp && dir != DirectionDown {
		return apperrors.NewValidationError("direction must be up or down")
	}

	return c.commit(ctx, func(f *FormDefinition) bool {
		i := f.indexOf(id)
		if i < 0 {
			return false
		}
		j := i - 1
		if dir == DirectionDown {
			j = i + 1
		}
		if j < 0 || j >= len(f.Questions) {
			return false
		}
		f.Questions[i], f.Questions[j] = f.Questions[j], f.Questions[i]
		return true
	})
}

func (c *Controller) SetRequired(ctx context.Context, id int, required bool) error {
	return c.commit(ctx, func(f *FormDefinition) bool {
		i := f.indexOf(id)
		if i < 0 || f.Questions[i].Required == required {
			return false
		}
		f.Questions[i].Required = required
		return true
	})
}

// SetOptions replaces the option list of a choice question.
func (c *Controller) SetOptions(ctx context.Context, id int, options []string) error {
	if len(options) == 0 {
		return apperrors.NewValidationError("choice questions need at least one option")
	}

	var invalid error
	err := c.commit(ctx, func(f *FormDefinition) bool {
		i := f.indexOf(id)
		if i < 0 {
			return false
		}
		if !f.Questions[i].Type.IsChoice() {
			invalid = apperrors.NewValidationError("question " + strconv.Itoa(id) + " does not take options")
			return false
		}
		f.Questions[i].Options = append([]string(nil), options...)
		return true
	})
	if invalid != nil {
		return invalid
	}
	return err
}

// Replace swaps in a newly supplied definition, dropping any pending edit.
func (c *Controller) Replace(form FormDefinition) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTimersLocked()
	c.gen++
	c.form = form.Clone()
	c.state = StateClean
	c.lastErr = nil
}

// AssignID records the storage id of a form that was saved for the first time.
func (c *Controller) AssignID(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.form.ID == 0 {
		c.form.ID = id
	}
}

// Close cancels pending work. Later edits are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTimersLocked()
	c.gen++
	c.closed = true
}

// commit applies a structural edit and saves synchronously. mutate reports
// whether anything changed; unchanged forms are not saved.
func (c *Controller) commit(ctx context.Context, mutate func(*FormDefinition) bool) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrControllerClosed
	}
	if !mutate(&c.form) {
		c.mu.Unlock()
		return nil
	}
	c.stopTimersLocked()
	c.gen++
	gen := c.gen
	snapshot := c.form.Clone()
	c.mu.Unlock()

	err := c.save(ctx, snapshot)
	c.finish(gen, err)
	return err
}

func (c *Controller) flush(gen uint64) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	snapshot := c.form.Clone()
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.saveTimeout)
	defer cancel()

	c.finish(gen, c.save(ctx, snapshot))
}

func (c *Controller) finish(gen uint64, err error) {
	c.mu.Lock()
	current := gen == c.gen && !c.closed
	switch {
	case err != nil && current:
		c.lastErr = err
		c.state = StateUnconfirmed
	case err == nil && current:
		c.lastErr = nil
		c.state = StateSaved
		c.ackTimer = time.AfterFunc(c.ackWindow, func() { c.acknowledge(gen) })
	}
	onError := c.onError
	c.mu.Unlock()

	if err != nil && onError != nil {
		onError(err)
	}
}

func (c *Controller) acknowledge(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen == c.gen && c.state == StateSaved {
		c.state = StateClean
		c.ackTimer = nil
	}
}

func (c *Controller) stopTimersLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.ackTimer != nil {
		c.ackTimer.Stop()
		c.ackTimer = nil
	}
}

func applyFieldEdit(f *FormDefinition, path, value string) bool {
	switch path {
	case "title":
		f.Title = value
		return true
	case "description":
		f.Description = value
		return true
	}

	parts := strings.Split(path, ".")
	if len(parts) < 3 || parts[0] != "questions" {
		return false
	}
	id, err := strconv.Atoi(parts[1])
	if err != nil {
		return false
	}
	i := f.indexOf(id)
	if i < 0 {
		return false
	}
	q := &f.Questions[i]

	switch {
	case len(parts) == 3 && parts[2] == "label":
		q.Label = value
		return true
	case len(parts) == 4 && parts[2] == "options":
		idx, err := strconv.Atoi(parts[3])
		if err != nil || idx < 0 || idx >= len(q.Options) {
			return false
		}
		q.Options[idx] = value
		return true
	}
	return false
}
