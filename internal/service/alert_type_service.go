package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"club-hipico-be/internal/dto"
	"club-hipico-be/internal/model"
	"club-hipico-be/internal/pkg/logger"
	"club-hipico-be/internal/repository"
	"club-hipico-be/pkg/alert/condition"
	"club-hipico-be/pkg/alert/recurrence"
	"club-hipico-be/pkg/alert/template"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type IAlertTypeService interface {
	Create(ctx context.Context, req dto.AlertTypeRequest) (*model.AlertTypeConfig, error)
	Update(ctx context.Context, id uuid.UUID, req dto.AlertTypeRequest) (*model.AlertTypeConfig, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.AlertTypeConfig, error)
	List(ctx context.Context) ([]model.AlertTypeConfig, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	SendTest(ctx context.Context, id uuid.UUID, toUser uuid.UUID) (*model.Alert, error)
}

type AlertTypeService struct {
	typeRepo  repository.AlertTypeRepository
	alertRepo repository.AlertRepository
	pubSub    *gochannel.GoChannel
	topicName string
	validate  *validator.Validate
	logger    logger.ILogger
}

func NewAlertTypeService(
	typeRepo repository.AlertTypeRepository,
	alertRepo repository.AlertRepository,
	pubSub *gochannel.GoChannel,
	topicName string,
	log logger.ILogger,
) IAlertTypeService {
	return &AlertTypeService{
		typeRepo:  typeRepo,
		alertRepo: alertRepo,
		pubSub:    pubSub,
		topicName: topicName,
		validate:  validator.New(),
		logger:    log,
	}
}

// Create persists a new alert type after full validation; the scheduler
// must never read a config the calculator would reject.
func (s *AlertTypeService) Create(ctx context.Context, req dto.AlertTypeRequest) (*model.AlertTypeConfig, error) {
	cfg, err := s.buildConfig(req)
	if err != nil {
		return nil, err
	}
	cfg.ID = uuid.New()
	if err := s.typeRepo.Create(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *AlertTypeService) Update(ctx context.Context, id uuid.UUID, req dto.AlertTypeRequest) (*model.AlertTypeConfig, error) {
	existing, err := s.typeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	cfg, err := s.buildConfig(req)
	if err != nil {
		return nil, err
	}
	cfg.ID = existing.ID
	cfg.CreatedAt = existing.CreatedAt
	if req.Activo == nil {
		cfg.Active = existing.Active
	}

	if err := s.typeRepo.Update(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *AlertTypeService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.typeRepo.Delete(ctx, id)
}

func (s *AlertTypeService) GetByID(ctx context.Context, id uuid.UUID) (*model.AlertTypeConfig, error) {
	return s.typeRepo.GetByID(ctx, id)
}

func (s *AlertTypeService) List(ctx context.Context) ([]model.AlertTypeConfig, error) {
	return s.typeRepo.List(ctx)
}

func (s *AlertTypeService) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.typeRepo.SetActive(ctx, id, active)
}

// SendTest creates one immediate instance of the type for the requesting
// admin, bypassing conditions and recurrence. Sample placeholder data is
// used so templates can be previewed.
func (s *AlertTypeService) SendTest(ctx context.Context, id uuid.UUID, toUser uuid.UUID) (*model.Alert, error) {
	cfg, err := s.typeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	sample := map[string]interface{}{
		"caballo_nombre":         "Relámpago",
		"cliente_nombre":         "Cliente de prueba",
		"evento_nombre":          "Evento de prueba",
		"monto":                  150000,
		"dias_hasta_vencimiento": 7,
		"dias_vencido":           0,
	}

	title := cfg.Name
	if cfg.TitleTemplate != nil {
		title = template.Render(*cfg.TitleTemplate, sample)
	}
	msg := fmt.Sprintf("Alerta de prueba del tipo %s", cfg.Name)
	if cfg.MessageTemplate != nil {
		msg = template.Render(*cfg.MessageTemplate, sample)
	}

	alert := &model.Alert{
		ID:          uuid.New(),
		AlertTypeID: &cfg.ID,
		UserID:      toUser,
		Category:    cfg.Category,
		Priority:    cfg.DefaultPriority,
		Title:       "[PRUEBA] " + title,
		Message:     msg,
		PeriodKey:   "prueba",
	}

	stored, _, err := s.alertRepo.CreateIfAbsent(ctx, alert)
	if err != nil {
		return nil, err
	}

	s.publishDispatch(dto.DispatchAlertMessage{
		Alert:        *stored,
		CanalSistema: cfg.ChannelSystem,
		CanalEmail:   cfg.ChannelEmail,
		CanalPush:    cfg.ChannelPush,
	})
	return stored, nil
}

func (s *AlertTypeService) publishDispatch(msg dto.DispatchAlertMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := s.pubSub.Publish(s.topicName, message.NewMessage(watermill.NewUUID(), data)); err != nil {
		s.logger.Error("AlertTypeService", "No se pudo publicar el despacho de prueba", map[string]interface{}{"error": err.Error()})
	}
}

// buildConfig validates the request (shape, recurrence, conditions) and
// maps it onto the persistence model.
func (s *AlertTypeService) buildConfig(req dto.AlertTypeRequest) (*model.AlertTypeConfig, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}

	category := model.AlertCategory(req.Tipo)
	if !category.Valid() {
		return nil, fmt.Errorf("%w: tipo %q", ErrInvalidRequest, req.Tipo)
	}

	priority := model.PriorityMedium
	if req.PrioridadDefault != "" {
		priority = model.AlertPriority(req.PrioridadDefault)
	}

	cfg := &model.AlertTypeConfig{
		Name:            req.Nombre,
		Category:        category,
		Description:     req.Descripcion,
		Active:          true,
		DefaultPriority: priority,
		Frequency:       req.Frecuencia,
		LeadDays:        req.DiasAnticipacion,
		IntervalDays:    req.IntervaloDias,
		SendTime:        req.HoraEnvio,
		Weekdays:        datatypes.NewJSONSlice(req.DiasSemana),

		SendToRoles:  datatypes.NewJSONSlice(req.EnviarARoles),
		SendToUsers:  datatypes.NewJSONSlice(req.EnviarAUsuarios),
		SendToOwners: req.EnviarAResponsables,

		ChannelSystem: true,
		ChannelEmail:  req.CanalEmail,
		ChannelPush:   req.CanalPush,

		TitleTemplate:   req.PlantillaTitulo,
		MessageTemplate: req.PlantillaMensaje,
		Conditions:      req.Condiciones,
	}
	if req.Activo != nil {
		cfg.Active = *req.Activo
	}
	if req.CanalSistema != nil {
		cfg.ChannelSystem = *req.CanalSistema
	}

	// the calculator owns recurrence validation
	spec, err := RecurrenceSpec(cfg, time.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}

	if _, err := condition.Parse(cfg.Conditions); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}

	return cfg, nil
}

// RecurrenceSpec maps a persisted config onto the calculator's input.
// activatedAt anchors mensual and cada_x_dias grids; for stored configs
// that is their creation time.
func RecurrenceSpec(cfg *model.AlertTypeConfig, activatedAt time.Time) (recurrence.Spec, error) {
	freq, err := recurrence.ParseFrequency(cfg.Frequency)
	if err != nil {
		return recurrence.Spec{}, err
	}

	sendAt := recurrence.TimeOfDay{}
	if cfg.SendTime != nil {
		sendAt, err = recurrence.ParseTimeOfDay(*cfg.SendTime)
		if err != nil {
			return recurrence.Spec{}, err
		}
	}

	spec := recurrence.Spec{
		Frequency:   freq,
		SendAt:      sendAt,
		ActivatedAt: activatedAt,
	}
	if cfg.LeadDays != nil {
		spec.LeadDays = *cfg.LeadDays
	}
	if cfg.IntervalDays != nil {
		spec.IntervalDays = *cfg.IntervalDays
	}
	for _, d := range cfg.Weekdays {
		if d >= 0 && d <= 6 {
			spec.Weekdays = append(spec.Weekdays, time.Weekday(d))
		}
	}
	return spec, nil
}
