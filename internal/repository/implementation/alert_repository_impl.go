package implementation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"club-hipico-be/internal/model"
	"club-hipico-be/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// priorityOrder sorts critica > alta > media > baja in SQL.
const priorityOrder = "CASE prioridad WHEN 'critica' THEN 0 WHEN 'alta' THEN 1 WHEN 'media' THEN 2 ELSE 3 END"

type AlertRepositoryImpl struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) repository.AlertRepository {
	return &AlertRepositoryImpl{db: db}
}

func (r *AlertRepositoryImpl) CreateIfAbsent(ctx context.Context, alert *model.Alert) (*model.Alert, bool, error) {
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	if alert.DedupKey == "" {
		// ad-hoc alerts never dedupe
		alert.DedupKey = alert.ID.String()
	}

	// atomic insert-if-not-exists on the dedup unique index
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "clave_dedup"}},
			DoNothing: true,
		}).
		Create(alert)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return alert, true, nil
	}

	// conflict: somebody else won the race, return the stored instance
	var existing model.Alert
	if err := r.db.WithContext(ctx).Where("clave_dedup = ?", alert.DedupKey).First(&existing).Error; err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

func (r *AlertRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*model.Alert, error) {
	var alert model.Alert
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&alert).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *AlertRepositoryImpl) ListForUser(ctx context.Context, userID uuid.UUID, f repository.AlertFilters) ([]model.Alert, int64, error) {
	db := r.db.WithContext(ctx).Model(&model.Alert{}).Where("usuario_id = ?", userID)

	if f.Category != nil {
		db = db.Where("tipo = ?", *f.Category)
	}
	if f.Priority != nil {
		db = db.Where("prioridad = ?", *f.Priority)
	}
	if f.Read != nil {
		db = db.Where("leida = ?", *f.Read)
	}
	if f.From != nil {
		db = db.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		db = db.Where("created_at <= ?", *f.To)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}

	var alerts []model.Alert
	err := db.Order(priorityOrder).
		Order("created_at DESC").
		Limit(limit).
		Offset(f.Offset).
		Find(&alerts).Error

	return alerts, total, err
}

func (r *AlertRepositoryImpl) ListUnread(ctx context.Context, userID uuid.UUID, limit int) ([]model.Alert, error) {
	var alerts []model.Alert
	err := r.db.WithContext(ctx).
		Where("usuario_id = ? AND leida = ?", userID, false).
		Order(priorityOrder).
		Order("created_at DESC").
		Limit(limit).
		Find(&alerts).Error
	return alerts, err
}

func (r *AlertRepositoryImpl) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Alert{}).
		Where("usuario_id = ? AND leida = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *AlertRepositoryImpl) MarkRead(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&model.Alert{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"leida":         true,
			"fecha_lectura": now,
			"updated_at":    now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("alerta no encontrada")
	}
	return nil
}

func (r *AlertRepositoryImpl) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&model.Alert{}).
		Where("usuario_id = ? AND leida = ?", userID, false).
		Updates(map[string]interface{}{
			"leida":         true,
			"fecha_lectura": now,
			"updated_at":    now,
		})
	return res.RowsAffected, res.Error
}

func (r *AlertRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Alert{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("alerta no encontrada")
	}
	return nil
}

func (r *AlertRepositoryImpl) Snooze(ctx context.Context, id uuid.UUID, days int) (*model.Alert, error) {
	// single-statement so concurrent snoozes stack instead of losing one
	res := r.db.WithContext(ctx).
		Model(&model.Alert{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"fecha_vencimiento": gorm.Expr("COALESCE(fecha_vencimiento, NOW()) + make_interval(days => ?)", days),
			"updated_at":        time.Now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errors.New("alerta no encontrada")
	}
	return r.GetByID(ctx, id)
}

func (r *AlertRepositoryImpl) LastFiringTime(ctx context.Context, typeID uuid.UUID, entityType *string, entityID *uuid.UUID) (*time.Time, error) {
	db := r.db.WithContext(ctx).
		Model(&model.Alert{}).
		Where("tipo_alerta_id = ?", typeID)

	if entityType != nil && entityID != nil {
		db = db.Where("entidad_relacionada_tipo = ? AND entidad_relacionada_id = ?", *entityType, *entityID)
	} else {
		db = db.Where("entidad_relacionada_id IS NULL")
	}

	// MAX over zero rows is NULL, scan through a pointer
	var last *time.Time
	if err := db.Select("MAX(created_at)").Scan(&last).Error; err != nil {
		return nil, err
	}
	return last, nil
}

func (r *AlertRepositoryImpl) Stats(ctx context.Context, userID uuid.UUID, now time.Time) (*repository.AlertStats, error) {
	stats := &repository.AlertStats{
		ByPriority: make(map[model.AlertPriority]int64),
		ByCategory: make(map[model.AlertCategory]int64),
	}

	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.Alert{}).Where("usuario_id = ?", userID)
	}

	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("contando alertas: %w", err)
	}
	if err := base().Where("leida = ?", false).Count(&stats.Unread).Error; err != nil {
		return nil, err
	}
	if err := base().Where("fecha_vencimiento IS NOT NULL AND fecha_vencimiento < ?", now).Count(&stats.Overdue).Error; err != nil {
		return nil, err
	}

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := base().Where("created_at >= ?", startOfDay).Count(&stats.Today).Error; err != nil {
		return nil, err
	}
	if err := base().Where("created_at >= ?", startOfDay.AddDate(0, 0, -int(now.Weekday()))).Count(&stats.ThisWeek).Error; err != nil {
		return nil, err
	}

	type bucket struct {
		Key   string
		Count int64
	}

	var byPriority []bucket
	if err := base().Select("prioridad AS key, COUNT(*) AS count").Group("prioridad").Scan(&byPriority).Error; err != nil {
		return nil, err
	}
	for _, b := range byPriority {
		stats.ByPriority[model.AlertPriority(b.Key)] = b.Count
	}

	var byCategory []bucket
	if err := base().Select("tipo AS key, COUNT(*) AS count").Group("tipo").Scan(&byCategory).Error; err != nil {
		return nil, err
	}
	for _, b := range byCategory {
		stats.ByCategory[model.AlertCategory(b.Key)] = b.Count
	}

	return stats, nil
}
