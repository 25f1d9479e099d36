package session

import (
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/goliatone/go-runform/pkg/model"
)

// DefaultCapacity bounds the number of live sessions kept in memory.
const DefaultCapacity = 1024

// ErrNotFound is returned for unknown or evicted session ids.
var ErrNotFound = errors.New("session: not found")

// StoreOption configures a Store.
type StoreOption func(*storeConfig)

type storeConfig struct {
	capacity int
	logger   *zap.Logger
	onEvict  func(*Session)
}

// WithCapacity sets the LRU capacity.
func WithCapacity(n int) StoreOption {
	return func(cfg *storeConfig) {
		if n > 0 {
			cfg.capacity = n
		}
	}
}

// WithLogger sets the logger used for eviction notices.
func WithLogger(logger *zap.Logger) StoreOption {
	return func(cfg *storeConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithEvictHook is called for every session leaving the store, whether
// evicted for capacity or deleted.
func WithEvictHook(fn func(*Session)) StoreOption {
	return func(cfg *storeConfig) {
		cfg.onEvict = fn
	}
}

// Store keeps the most recently used sessions in memory.
type Store struct {
	cache  *lru.Cache[string, *Session]
	logger *zap.Logger
}

// NewStore builds an LRU-backed store.
func NewStore(options ...StoreOption) (*Store, error) {
	cfg := storeConfig{capacity: DefaultCapacity, logger: zap.NewNop()}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	logger := cfg.logger
	onEvict := cfg.onEvict
	cache, err := lru.NewWithEvict(cfg.capacity, func(id string, s *Session) {
		logger.Debug("session evicted", zap.String("session", id), zap.String("form", s.form.ID))
		if onEvict != nil {
			onEvict(s)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("session: new store: %w", err)
	}
	return &Store{cache: cache, logger: logger}, nil
}

// Create starts a session for f and stores it.
func (st *Store) Create(f model.Form, options ...Option) *Session {
	s := New(f, options...)
	st.cache.Add(s.ID(), s)
	st.logger.Debug("session created", zap.String("session", s.ID()), zap.String("form", f.ID))
	return s
}

// Get returns the session with id and marks it recently used.
func (st *Store) Get(id string) (*Session, error) {
	s, ok := st.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Delete drops id. It reports whether the session existed.
func (st *Store) Delete(id string) bool {
	return st.cache.Remove(id)
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	return st.cache.Len()
}
