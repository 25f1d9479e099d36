package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/goliatone/go-runform/pkg/model"
)

// ErrFormNotFound is returned by lookups for unknown ids.
var ErrFormNotFound = errors.New("config: form not found")

// Store holds loaded forms keyed by id. It is read-only once loading returns.
type Store struct {
	forms   map[string]model.Form
	sources map[string]string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		forms:   make(map[string]model.Form),
		sources: make(map[string]string),
	}
}

// Add registers f. Duplicate ids fail and name both sources.
func (s *Store) Add(f model.Form, source string) error {
	id := strings.TrimSpace(f.ID)
	if id == "" {
		return fmt.Errorf("config: form in %s has an empty id", source)
	}
	if prev, exists := s.sources[id]; exists {
		return fmt.Errorf("config: duplicate form %q (files %s and %s)", id, prev, source)
	}
	f.ID = id
	s.forms[id] = f
	s.sources[id] = source
	return nil
}

// Form returns the form registered under id.
func (s *Store) Form(id string) (model.Form, bool) {
	if s == nil {
		return model.Form{}, false
	}
	f, ok := s.forms[strings.TrimSpace(id)]
	if !ok {
		return model.Form{}, false
	}
	f.Variables = slices.Clone(f.Variables)
	return f, true
}

// Lookup mirrors Form but returns ErrFormNotFound for unknown ids.
func (s *Store) Lookup(id string) (model.Form, error) {
	f, ok := s.Form(id)
	if !ok {
		return model.Form{}, fmt.Errorf("%w: %q", ErrFormNotFound, id)
	}
	return f, nil
}

// Source reports which file defined id.
func (s *Store) Source(id string) string {
	if s == nil {
		return ""
	}
	return s.sources[strings.TrimSpace(id)]
}

// IDs returns the registered ids, sorted.
func (s *Store) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.forms))
	for id := range s.forms {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len reports the number of forms.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.forms)
}

// Empty reports whether the store holds any forms.
func (s *Store) Empty() bool {
	return s.Len() == 0
}
