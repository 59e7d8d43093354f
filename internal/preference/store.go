// Package preference keeps per-user settings for the lifetime of the process.
package preference

import (
	"sync"

	"github.com/ytget/rip-bot/internal/model"
)

// Store holds the selected output format per user. Nothing is persisted.
type Store struct {
	mu      sync.RWMutex
	formats map[int64]model.Format
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{formats: make(map[int64]model.Format)}
}

// Format returns the format stored for userID, or model.DefaultFormat
func (s *Store) Format(userID int64) model.Format {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if f, ok := s.formats[userID]; ok {
		return f
	}
	return model.DefaultFormat
}

// SetFormat stores format for userID. Unsupported formats are ignored and
// reported with false.
func (s *Store) SetFormat(userID int64, format model.Format) bool {
	if !format.Valid() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.formats[userID] = format
	return true
}
