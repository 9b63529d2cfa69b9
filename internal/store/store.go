// Package store provides durable key/value persistence for session state.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/capitalize-ai/assistant-session/pkg/logger"
)

// Keys under which session state is persisted.
const (
	KeyMessages    = "session.messages"
	KeyPreferences = "session.preferences"
)

// ErrNotFound is returned by a Backend when a key has no value.
var ErrNotFound = errors.New("key not found")

// Backend stores raw values by key.
type Backend interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Store encodes values as JSON over a Backend. Load never fails: a missing
// or corrupted value reads as absent.
type Store struct {
	backend Backend
	logger  *logger.Logger
}

// New creates a store over the given backend.
func New(backend Backend, log *logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{backend: backend, logger: log}
}

// Save serializes v under key, replacing any previous value.
func (s *Store) Save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := s.backend.Put(ctx, key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// Load decodes the value under key into v and reports whether it was present
// and well formed.
func (s *Store) Load(ctx context.Context, key string, v any) bool {
	data, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("failed to read stored value", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Warn("discarding corrupted stored value", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Clear removes the value under key. Clearing a missing key is not an error.
func (s *Store) Clear(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to clear %s: %w", key, err)
	}
	return nil
}
