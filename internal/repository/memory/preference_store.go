package memory

import (
	"context"
	"sync"

	"club-hipico-be/internal/model"

	"github.com/google/uuid"
)

// PreferenceStore is an in-memory repository.PreferenceRepository with
// the same missing-row default as the Postgres implementation.
type PreferenceStore struct {
	mu    sync.Mutex
	prefs map[uuid.UUID]model.UserAlertPreferences
}

func NewPreferenceStore() *PreferenceStore {
	return &PreferenceStore{prefs: make(map[uuid.UUID]model.UserAlertPreferences)}
}

func (s *PreferenceStore) Get(_ context.Context, userID uuid.UUID) (*model.UserAlertPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.prefs[userID]; ok {
		out := p
		return &out, nil
	}
	return &model.UserAlertPreferences{UserID: userID, SystemEnabled: true}, nil
}

func (s *PreferenceStore) Upsert(_ context.Context, prefs *model.UserAlertPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[prefs.UserID] = *prefs
	return nil
}
