package implementation

import (
	"context"
	"errors"
	"time"

	"club-hipico-be/internal/model"
	"club-hipico-be/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PreferenceRepositoryImpl struct {
	db *gorm.DB
}

func NewPreferenceRepository(db *gorm.DB) repository.PreferenceRepository {
	return &PreferenceRepositoryImpl{db: db}
}

// Get returns the stored preferences, or the defaults (system on,
// email/push off, no window) when the user never saved any.
func (r *PreferenceRepositoryImpl) Get(ctx context.Context, userID uuid.UUID) (*model.UserAlertPreferences, error) {
	var prefs model.UserAlertPreferences
	err := r.db.WithContext(ctx).Where("usuario_id = ?", userID).First(&prefs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.UserAlertPreferences{
			UserID:        userID,
			SystemEnabled: true,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}

func (r *PreferenceRepositoryImpl) Upsert(ctx context.Context, prefs *model.UserAlertPreferences) error {
	prefs.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "usuario_id"}},
			UpdateAll: true,
		}).
		Create(prefs).Error
}
