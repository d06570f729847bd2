package implementation

import (
	"context"
	"time"

	"club-hipico-be/internal/model"
	"club-hipico-be/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DeliveryRepositoryImpl struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) repository.DeliveryRepository {
	return &DeliveryRepositoryImpl{db: db}
}

func (r *DeliveryRepositoryImpl) Create(ctx context.Context, rec *model.DeliveryRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *DeliveryRepositoryImpl) ListForAlert(ctx context.Context, alertID uuid.UUID) ([]model.DeliveryRecord, error) {
	var recs []model.DeliveryRecord
	err := r.db.WithContext(ctx).
		Where("alerta_id = ?", alertID).
		Order("created_at ASC").
		Find(&recs).Error
	return recs, err
}

func (r *DeliveryRepositoryImpl) MarkRead(ctx context.Context, alertID uuid.UUID, channel model.AlertChannel) error {
	// idempotent: marking an already-read record again keeps the first timestamp
	return r.db.WithContext(ctx).
		Model(&model.DeliveryRecord{}).
		Where("alerta_id = ? AND canal = ? AND estado <> ?", alertID, channel, model.DeliveryRead).
		Updates(map[string]interface{}{
			"estado":        model.DeliveryRead,
			"fecha_lectura": time.Now(),
		}).Error
}
