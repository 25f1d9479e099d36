// Package session keeps the host-side state of one form run: the value map,
// the upload records, and the submit count. A Session is the receiver for
// the form and attachment callbacks, so the map it holds is always the
// latest replacement emitted by the controller.
package session

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-runform/pkg/form"
	"github.com/goliatone/go-runform/pkg/model"
	"github.com/goliatone/go-runform/pkg/vision"
)

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	ID        string                `json:"id"`
	FormID    string                `json:"form_id"`
	Values    model.Values          `json:"inputs"`
	Files     []vision.Attachment   `json:"files"`
	Uploads   []vision.UploadRecord `json:"uploads,omitempty"`
	Runs      int                   `json:"runs"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// Option configures a new Session.
type Option func(*Session)

// WithID fixes the session id instead of generating one.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// WithValues seeds values over the descriptor defaults.
func WithValues(values model.Values) Option {
	return func(s *Session) {
		for key, value := range values {
			s.values[key] = value
		}
	}
}

// WithOnSubmit registers a handler invoked with the snapshot on every run.
func WithOnSubmit(fn func(Snapshot)) Option {
	return func(s *Session) {
		s.onSubmit = fn
	}
}

// WithDefaultMaxLength caps text variables without their own limit.
func WithDefaultMaxLength(n int) Option {
	return func(s *Session) {
		s.defaultMaxLength = n
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// Session owns the value map and attachments of one form run.
type Session struct {
	id               string
	form             model.Form
	defaultMaxLength int
	onSubmit         func(Snapshot)
	now              func() time.Time
	uploader         *vision.Uploader

	// ops serialises controller operations so concurrent edits never start
	// from the same base map.
	ops sync.Mutex

	mu        sync.RWMutex
	values    model.Values
	files     []vision.Attachment
	runs      int
	updatedAt time.Time
}

// New starts a session for f. Values start from the descriptor defaults.
func New(f model.Form, options ...Option) *Session {
	s := &Session{
		id:     uuid.NewString(),
		form:   f,
		values: form.Initial(f.Variables),
		now:    time.Now,
	}
	s.form.Variables = slices.Clone(f.Variables)
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	s.updatedAt = s.now()
	s.uploader = vision.NewUploader(vision.Control{
		Settings:      f.Vision,
		OnFilesChange: s.setFiles,
	})
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Form returns the form the session runs.
func (s *Session) Form() model.Form {
	f := s.form
	f.Variables = slices.Clone(s.form.Variables)
	return f
}

// Uploader exposes the attachment tracker bound to this session.
func (s *Session) Uploader() *vision.Uploader { return s.uploader }

// Controller returns a form controller bound to the current values. The
// callbacks write back into the session.
func (s *Session) Controller() form.Controller {
	return form.Controller{
		Descriptors:      s.form.Variables,
		Values:           s.Values(),
		OnValuesChange:   s.setValues,
		OnSubmit:         s.submitted,
		DefaultMaxLength: s.defaultMaxLength,
	}
}

// Change edits one variable through the controller.
func (s *Session) Change(key, value string) error {
	s.ops.Lock()
	defer s.ops.Unlock()
	return s.Controller().Change(key, value)
}

// ChangeAll applies edits in key order and stops at the first rejection.
func (s *Session) ChangeAll(values map[string]string) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	s.ops.Lock()
	defer s.ops.Unlock()
	for _, key := range keys {
		if err := s.Controller().Change(key, values[key]); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears every variable and drops tracked uploads.
func (s *Session) Reset() {
	s.ops.Lock()
	defer s.ops.Unlock()
	s.Controller().Reset()
	s.uploader.Clear()
}

// Submit runs the form and returns the snapshot handed to the submit
// handler. Values are submitted as they are, required or not.
func (s *Session) Submit() Snapshot {
	s.ops.Lock()
	defer s.ops.Unlock()
	s.Controller().Submit()
	return s.Snapshot()
}

// Values returns a copy of the current value map.
func (s *Session) Values() model.Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.Clone()
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		ID:        s.id,
		FormID:    s.form.ID,
		Values:    s.values.Clone(),
		Files:     slices.Clone(s.files),
		Uploads:   s.uploader.Records(),
		Runs:      s.runs,
		UpdatedAt: s.updatedAt,
	}
}

func (s *Session) setValues(next model.Values) {
	s.mu.Lock()
	s.values = next
	s.updatedAt = s.now()
	s.mu.Unlock()
}

func (s *Session) setFiles(next []vision.Attachment) {
	s.mu.Lock()
	s.files = next
	s.updatedAt = s.now()
	s.mu.Unlock()
}

func (s *Session) submitted() {
	s.mu.Lock()
	s.runs++
	s.updatedAt = s.now()
	s.mu.Unlock()

	if s.onSubmit != nil {
		s.onSubmit(s.Snapshot())
	}
}
