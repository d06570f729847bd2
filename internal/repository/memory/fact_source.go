package memory

import (
	"context"
	"sync"
	"time"

	"club-hipico-be/pkg/alert/facts"

	"github.com/google/uuid"
)

// FactSource is an in-memory facts.Source. It backs the admin send-test
// endpoint (fixed sample facts, no club data touched) and the service
// tests.
type FactSource struct {
	mu        sync.RWMutex
	snapshots map[string][]facts.Snapshot
	owners    map[facts.EntityRef]uuid.UUID
	byRole    map[string][]uuid.UUID
	emails    map[uuid.UUID]string
}

func NewFactSource() *FactSource {
	return &FactSource{
		snapshots: make(map[string][]facts.Snapshot),
		owners:    make(map[facts.EntityRef]uuid.UUID),
		byRole:    make(map[string][]uuid.UUID),
		emails:    make(map[uuid.UUID]string),
	}
}

func (s *FactSource) SetSnapshots(category string, snaps []facts.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[category] = snaps
}

func (s *FactSource) SetOwner(ref facts.EntityRef, userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[ref] = userID
}

func (s *FactSource) SetRole(role string, userIDs ...uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byRole[role] = userIDs
}

func (s *FactSource) SetEmail(userID uuid.UUID, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emails[userID] = email
}

func (s *FactSource) FactsForCategory(_ context.Context, category string, _ time.Time) ([]facts.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshots[category], nil
}

func (s *FactSource) Owner(_ context.Context, ref facts.EntityRef) (*uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.owners[ref]; ok {
		owner := id
		return &owner, nil
	}
	return nil, nil
}

func (s *FactSource) ActiveUserIDsWithRole(_ context.Context, role string) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byRole[role], nil
}

func (s *FactSource) ActiveUserEmail(_ context.Context, userID uuid.UUID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.emails[userID], nil
}
