package repository

import (
	"context"
	"time"

	"club-hipico-be/internal/model"

	"github.com/google/uuid"
)

// AlertFilters narrows ListForUser. Zero values mean "no filter".
type AlertFilters struct {
	Category *model.AlertCategory
	Priority *model.AlertPriority
	Read     *bool
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// AlertStats aggregates inbox counters for one user.
type AlertStats struct {
	Total      int64                           `json:"total_alertas"`
	Unread     int64                           `json:"alertas_no_leidas"`
	Overdue    int64                           `json:"alertas_vencidas"`
	Today      int64                           `json:"alertas_hoy"`
	ThisWeek   int64                           `json:"alertas_esta_semana"`
	ByPriority map[model.AlertPriority]int64   `json:"alertas_por_prioridad"`
	ByCategory map[model.AlertCategory]int64   `json:"alertas_por_tipo"`
}

// AlertRepository is the alert inbox: the sole mutation point of alert
// instances. CreateIfAbsent must be atomic per dedup key at the storage
// layer so overlapping evaluation passes cannot double-fire.
type AlertRepository interface {
	// CreateIfAbsent inserts the alert unless its DedupKey already exists.
	// On conflict the stored instance is returned with created=false; this
	// is the intended idempotence path, not an error.
	CreateIfAbsent(ctx context.Context, alert *model.Alert) (stored *model.Alert, created bool, err error)

	GetByID(ctx context.Context, id uuid.UUID) (*model.Alert, error)
	ListForUser(ctx context.Context, userID uuid.UUID, filters AlertFilters) ([]model.Alert, int64, error)
	ListUnread(ctx context.Context, userID uuid.UUID, limit int) ([]model.Alert, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)

	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Snooze advances fecha_vencimiento by days; repeated snoozes stack.
	Snooze(ctx context.Context, id uuid.UUID, days int) (*model.Alert, error)

	// LastFiringTime returns the creation instant of the most recent
	// instance for a (type, entity) pair, nil if it never fired.
	LastFiringTime(ctx context.Context, typeID uuid.UUID, entityType *string, entityID *uuid.UUID) (*time.Time, error)

	Stats(ctx context.Context, userID uuid.UUID, now time.Time) (*AlertStats, error)
}

// AlertTypeRepository persists the rule templates read by the scheduler.
type AlertTypeRepository interface {
	Create(ctx context.Context, cfg *model.AlertTypeConfig) error
	Update(ctx context.Context, cfg *model.AlertTypeConfig) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.AlertTypeConfig, error)
	List(ctx context.Context) ([]model.AlertTypeConfig, error)
	ListActive(ctx context.Context) ([]model.AlertTypeConfig, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// DeliveryRepository records per-channel delivery outcomes.
type DeliveryRepository interface {
	Create(ctx context.Context, rec *model.DeliveryRecord) error
	ListForAlert(ctx context.Context, alertID uuid.UUID) ([]model.DeliveryRecord, error)
	MarkRead(ctx context.Context, alertID uuid.UUID, channel model.AlertChannel) error
}

// PreferenceRepository stores per-user delivery opt-ins.
type PreferenceRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*model.UserAlertPreferences, error)
	Upsert(ctx context.Context, prefs *model.UserAlertPreferences) error
}
