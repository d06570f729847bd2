package implementation

import (
	"context"
	"errors"
	"time"

	"club-hipico-be/internal/model"
	"club-hipico-be/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AlertTypeRepositoryImpl struct {
	db *gorm.DB
}

func NewAlertTypeRepository(db *gorm.DB) repository.AlertTypeRepository {
	return &AlertTypeRepositoryImpl{db: db}
}

func (r *AlertTypeRepositoryImpl) Create(ctx context.Context, cfg *model.AlertTypeConfig) error {
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(cfg).Error
}

func (r *AlertTypeRepositoryImpl) Update(ctx context.Context, cfg *model.AlertTypeConfig) error {
	res := r.db.WithContext(ctx).
		Model(&model.AlertTypeConfig{}).
		Where("id = ?", cfg.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(cfg)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("tipo de alerta no encontrado")
	}
	return nil
}

func (r *AlertTypeRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.AlertTypeConfig{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("tipo de alerta no encontrado")
	}
	return nil
}

func (r *AlertTypeRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*model.AlertTypeConfig, error) {
	var cfg model.AlertTypeConfig
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&cfg).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *AlertTypeRepositoryImpl) List(ctx context.Context) ([]model.AlertTypeConfig, error) {
	var cfgs []model.AlertTypeConfig
	err := r.db.WithContext(ctx).
		Order("tipo ASC").
		Order("nombre ASC").
		Find(&cfgs).Error
	return cfgs, err
}

func (r *AlertTypeRepositoryImpl) ListActive(ctx context.Context) ([]model.AlertTypeConfig, error) {
	var cfgs []model.AlertTypeConfig
	err := r.db.WithContext(ctx).
		Where("activo = ?", true).
		Order("tipo ASC").
		Find(&cfgs).Error
	return cfgs, err
}

func (r *AlertTypeRepositoryImpl) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&model.AlertTypeConfig{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"activo":     active,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("tipo de alerta no encontrado")
	}
	return nil
}
