package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"club-hipico-be/internal/model"

	"github.com/google/uuid"
)

// TypeStore is an in-memory repository.AlertTypeRepository.
type TypeStore struct {
	mu    sync.Mutex
	types map[uuid.UUID]model.AlertTypeConfig
}

func NewTypeStore() *TypeStore {
	return &TypeStore{types: make(map[uuid.UUID]model.AlertTypeConfig)}
}

func (s *TypeStore) Create(_ context.Context, cfg *model.AlertTypeConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = time.Now()
	}
	s.types[cfg.ID] = *cfg
	return nil
}

func (s *TypeStore) Update(_ context.Context, cfg *model.AlertTypeConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.types[cfg.ID]; !ok {
		return errors.New("tipo de alerta no encontrado")
	}
	cfg.UpdatedAt = time.Now()
	s.types[cfg.ID] = *cfg
	return nil
}

func (s *TypeStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.types[id]; !ok {
		return errors.New("tipo de alerta no encontrado")
	}
	delete(s.types, id)
	return nil
}

func (s *TypeStore) GetByID(_ context.Context, id uuid.UUID) (*model.AlertTypeConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.types[id]
	if !ok {
		return nil, errors.New("tipo de alerta no encontrado")
	}
	out := cfg
	return &out, nil
}

func (s *TypeStore) List(_ context.Context) ([]model.AlertTypeConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.AlertTypeConfig, 0, len(s.types))
	for _, cfg := range s.types {
		out = append(out, cfg)
	}
	return out, nil
}

func (s *TypeStore) ListActive(_ context.Context) ([]model.AlertTypeConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.AlertTypeConfig
	for _, cfg := range s.types {
		if cfg.Active {
			out = append(out, cfg)
		}
	}
	return out, nil
}

func (s *TypeStore) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.types[id]
	if !ok {
		return errors.New("tipo de alerta no encontrado")
	}
	cfg.Active = active
	cfg.UpdatedAt = time.Now()
	s.types[id] = cfg
	return nil
}
