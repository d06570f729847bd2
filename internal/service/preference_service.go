package service

import (
	"context"
	"fmt"

	"club-hipico-be/internal/dto"
	"club-hipico-be/internal/model"
	"club-hipico-be/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type IPreferenceService interface {
	Get(ctx context.Context, userID uuid.UUID) (*model.UserAlertPreferences, error)
	Update(ctx context.Context, userID uuid.UUID, req dto.PreferencesRequest) (*model.UserAlertPreferences, error)
}

type PreferenceService struct {
	prefRepo repository.PreferenceRepository
	validate *validator.Validate
}

func NewPreferenceService(prefRepo repository.PreferenceRepository) IPreferenceService {
	return &PreferenceService{
		prefRepo: prefRepo,
		validate: validator.New(),
	}
}

func (s *PreferenceService) Get(ctx context.Context, userID uuid.UUID) (*model.UserAlertPreferences, error) {
	return s.prefRepo.Get(ctx, userID)
}

// Update applies a partial preferences payload on top of the stored (or
// default) record, so clients can toggle a single flag.
func (s *PreferenceService) Update(ctx context.Context, userID uuid.UUID, req dto.PreferencesRequest) (*model.UserAlertPreferences, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}
	if err := validateWindow(req.HorarioInicio); err != nil {
		return nil, err
	}
	if err := validateWindow(req.HorarioFin); err != nil {
		return nil, err
	}

	prefs, err := s.prefRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	prefs.UserID = userID

	if req.AlertasSistema != nil {
		prefs.SystemEnabled = *req.AlertasSistema
	}
	if req.AlertasEmail != nil {
		prefs.EmailEnabled = *req.AlertasEmail
	}
	if req.AlertasPush != nil {
		prefs.PushEnabled = *req.AlertasPush
	}
	if req.TiposAlertas != nil {
		prefs.CategoryOptIn = req.TiposAlertas
	}
	if req.HorarioInicio != nil {
		prefs.WindowStart = req.HorarioInicio
	}
	if req.HorarioFin != nil {
		prefs.WindowEnd = req.HorarioFin
	}
	if req.DiasSemana != nil {
		prefs.Weekdays = datatypes.NewJSONSlice(req.DiasSemana)
	}
	if req.AgruparAlertas != nil {
		prefs.Digest = *req.AgruparAlertas
	}
	if req.IntervaloAgrupacion != nil {
		prefs.DigestInterval = req.IntervaloAgrupacion
	}

	if err := s.prefRepo.Upsert(ctx, prefs); err != nil {
		return nil, err
	}
	return prefs, nil
}

func validateWindow(hhmm *string) error {
	if hhmm == nil {
		return nil
	}
	if _, err := minutesOfDay(*hhmm); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}
	return nil
}
