package memory

import (
	"context"
	"sync"
	"time"

	"club-hipico-be/internal/model"

	"github.com/google/uuid"
)

// DeliveryStore is an in-memory repository.DeliveryRepository.
type DeliveryStore struct {
	mu      sync.Mutex
	records []model.DeliveryRecord
}

func NewDeliveryStore() *DeliveryStore {
	return &DeliveryStore{}
}

func (s *DeliveryStore) Create(_ context.Context, rec *model.DeliveryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	s.records = append(s.records, *rec)
	return nil
}

func (s *DeliveryStore) ListForAlert(_ context.Context, alertID uuid.UUID) ([]model.DeliveryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.DeliveryRecord
	for _, rec := range s.records {
		if rec.AlertID == alertID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *DeliveryStore) MarkRead(_ context.Context, alertID uuid.UUID, channel model.AlertChannel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for i := range s.records {
		rec := &s.records[i]
		if rec.AlertID == alertID && rec.Channel == channel && rec.Status != model.DeliveryRead {
			rec.Status = model.DeliveryRead
			rec.ReadAt = &now
		}
	}
	return nil
}

// All returns a copy of every record, for test assertions.
func (s *DeliveryStore) All() []model.DeliveryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.DeliveryRecord, len(s.records))
	copy(out, s.records)
	return out
}
