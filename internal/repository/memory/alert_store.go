package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"club-hipico-be/internal/model"
	"club-hipico-be/internal/repository"

	"github.com/google/uuid"
)

// AlertStore is an in-memory repository.AlertRepository with the same
// dedup contract as the Postgres implementation: one insert wins per
// dedup key, later ones observe the stored instance. Used by the service
// tests and by local development without a database.
type AlertStore struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*model.Alert
	byDedup map[string]uuid.UUID
}

func NewAlertStore() *AlertStore {
	return &AlertStore{
		byID:    make(map[uuid.UUID]*model.Alert),
		byDedup: make(map[string]uuid.UUID),
	}
}

func (s *AlertStore) CreateIfAbsent(_ context.Context, alert *model.Alert) (*model.Alert, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	if alert.DedupKey == "" {
		alert.DedupKey = alert.ID.String()
	}

	if existingID, ok := s.byDedup[alert.DedupKey]; ok {
		existing := *s.byID[existingID]
		return &existing, false, nil
	}

	stored := *alert
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.byID[stored.ID] = &stored
	s.byDedup[stored.DedupKey] = stored.ID

	out := stored
	return &out, true, nil
}

func (s *AlertStore) GetByID(_ context.Context, id uuid.UUID) (*model.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	alert, ok := s.byID[id]
	if !ok {
		return nil, errors.New("alerta no encontrada")
	}
	out := *alert
	return &out, nil
}

func (s *AlertStore) ListForUser(_ context.Context, userID uuid.UUID, f repository.AlertFilters) ([]model.Alert, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []model.Alert
	for _, alert := range s.byID {
		if alert.UserID != userID {
			continue
		}
		if f.Category != nil && alert.Category != *f.Category {
			continue
		}
		if f.Priority != nil && alert.Priority != *f.Priority {
			continue
		}
		if f.Read != nil && alert.Read != *f.Read {
			continue
		}
		if f.From != nil && alert.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && alert.CreatedAt.After(*f.To) {
			continue
		}
		matched = append(matched, *alert)
	}

	sortAlerts(matched)
	total := int64(len(matched))

	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			return nil, total, nil
		}
		matched = matched[f.Offset:]
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (s *AlertStore) ListUnread(_ context.Context, userID uuid.UUID, limit int) ([]model.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var unread []model.Alert
	for _, alert := range s.byID {
		if alert.UserID == userID && !alert.Read {
			unread = append(unread, *alert)
		}
	}
	sortAlerts(unread)
	if limit > 0 && len(unread) > limit {
		unread = unread[:limit]
	}
	return unread, nil
}

func (s *AlertStore) CountUnread(_ context.Context, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, alert := range s.byID {
		if alert.UserID == userID && !alert.Read {
			count++
		}
	}
	return count, nil
}

func (s *AlertStore) MarkRead(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	alert, ok := s.byID[id]
	if !ok {
		return errors.New("alerta no encontrada")
	}
	if !alert.Read {
		now := time.Now()
		alert.Read = true
		alert.ReadAt = &now
	}
	return nil
}

func (s *AlertStore) MarkAllRead(_ context.Context, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var affected int64
	for _, alert := range s.byID {
		if alert.UserID == userID && !alert.Read {
			alert.Read = true
			alert.ReadAt = &now
			affected++
		}
	}
	return affected, nil
}

func (s *AlertStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	alert, ok := s.byID[id]
	if !ok {
		return errors.New("alerta no encontrada")
	}
	delete(s.byDedup, alert.DedupKey)
	delete(s.byID, id)
	return nil
}

func (s *AlertStore) Snooze(_ context.Context, id uuid.UUID, days int) (*model.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	alert, ok := s.byID[id]
	if !ok {
		return nil, errors.New("alerta no encontrada")
	}
	base := time.Now()
	if alert.ExpiresAt != nil {
		base = *alert.ExpiresAt
	}
	next := base.AddDate(0, 0, days)
	alert.ExpiresAt = &next
	out := *alert
	return &out, nil
}

func (s *AlertStore) LastFiringTime(_ context.Context, typeID uuid.UUID, entityType *string, entityID *uuid.UUID) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var last *time.Time
	for _, alert := range s.byID {
		if alert.AlertTypeID == nil || *alert.AlertTypeID != typeID {
			continue
		}
		if entityType != nil && entityID != nil {
			if alert.RelatedEntityType == nil || *alert.RelatedEntityType != *entityType {
				continue
			}
			if alert.RelatedEntityID == nil || *alert.RelatedEntityID != *entityID {
				continue
			}
		} else if alert.RelatedEntityID != nil {
			continue
		}
		if last == nil || alert.CreatedAt.After(*last) {
			created := alert.CreatedAt
			last = &created
		}
	}
	return last, nil
}

func (s *AlertStore) Stats(_ context.Context, userID uuid.UUID, now time.Time) (*repository.AlertStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &repository.AlertStats{
		ByPriority: make(map[model.AlertPriority]int64),
		ByCategory: make(map[model.AlertCategory]int64),
	}
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startOfWeek := startOfDay.AddDate(0, 0, -int(now.Weekday()))

	for _, alert := range s.byID {
		if alert.UserID != userID {
			continue
		}
		stats.Total++
		if !alert.Read {
			stats.Unread++
		}
		if alert.ExpiresAt != nil && alert.ExpiresAt.Before(now) {
			stats.Overdue++
		}
		if !alert.CreatedAt.Before(startOfDay) {
			stats.Today++
		}
		if !alert.CreatedAt.Before(startOfWeek) {
			stats.ThisWeek++
		}
		stats.ByPriority[alert.Priority]++
		stats.ByCategory[alert.Category]++
	}
	return stats, nil
}

// sortAlerts orders by priority rank, then most recent first.
func sortAlerts(alerts []model.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].Priority.Rank() != alerts[j].Priority.Rank() {
			return alerts[i].Priority.Rank() < alerts[j].Priority.Rank()
		}
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})
}
