package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"club-hipico-be/internal/dto"
	"club-hipico-be/internal/model"
	"club-hipico-be/internal/pkg/logger"
	"club-hipico-be/internal/repository"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RoleAdmin is the club's administrator role as stored in usuarios.rol.
const RoleAdmin = "administrador"

var (
	ErrAlertNotFound  = errors.New("alerta no encontrada")
	ErrNotAlertOwner  = errors.New("la alerta pertenece a otro usuario")
	ErrNoRecipients   = errors.New("la alerta no tiene destinatarios")
	ErrInvalidRequest = errors.New("solicitud inválida")
)

type IAlertService interface {
	List(ctx context.Context, userID uuid.UUID, req dto.AlertListRequest) ([]model.Alert, int64, error)
	UnreadPreview(ctx context.Context, userID uuid.UUID) ([]model.Alert, int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	GetByID(ctx context.Context, userID uuid.UUID, role string, id uuid.UUID) (*model.Alert, error)
	Create(ctx context.Context, req dto.CreateAlertRequest) ([]model.Alert, error)
	MarkRead(ctx context.Context, userID uuid.UUID, role string, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, userID uuid.UUID, role string, id uuid.UUID) error
	Snooze(ctx context.Context, userID uuid.UUID, role string, id uuid.UUID, days int) (*model.Alert, error)
	Stats(ctx context.Context, userID uuid.UUID) (*repository.AlertStats, error)
}

type AlertService struct {
	alertRepo    repository.AlertRepository
	deliveryRepo repository.DeliveryRepository
	resolver     *RecipientResolver
	pubSub       *gochannel.GoChannel
	topicName    string
	previewLimit int
	logger       logger.ILogger
}

func NewAlertService(
	alertRepo repository.AlertRepository,
	deliveryRepo repository.DeliveryRepository,
	resolver *RecipientResolver,
	pubSub *gochannel.GoChannel,
	topicName string,
	previewLimit int,
	log logger.ILogger,
) IAlertService {
	if previewLimit <= 0 {
		previewLimit = 5
	}
	return &AlertService{
		alertRepo:    alertRepo,
		deliveryRepo: deliveryRepo,
		resolver:     resolver,
		pubSub:       pubSub,
		topicName:    topicName,
		previewLimit: previewLimit,
		logger:       log,
	}
}

func (s *AlertService) List(ctx context.Context, userID uuid.UUID, req dto.AlertListRequest) ([]model.Alert, int64, error) {
	filters := repository.AlertFilters{
		Read:   req.Leida,
		Limit:  req.Limit,
		Offset: req.Offset,
	}

	if req.Tipo != "" {
		cat := model.AlertCategory(req.Tipo)
		if !cat.Valid() {
			return nil, 0, fmt.Errorf("%w: tipo %q", ErrInvalidRequest, req.Tipo)
		}
		filters.Category = &cat
	}
	if req.Prioridad != "" {
		prio := model.AlertPriority(req.Prioridad)
		if !prio.Valid() {
			return nil, 0, fmt.Errorf("%w: prioridad %q", ErrInvalidRequest, req.Prioridad)
		}
		filters.Priority = &prio
	}
	if req.Desde != "" {
		from, err := time.Parse("2006-01-02", req.Desde)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: desde %q", ErrInvalidRequest, req.Desde)
		}
		filters.From = &from
	}
	if req.Hasta != "" {
		to, err := time.Parse("2006-01-02", req.Hasta)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: hasta %q", ErrInvalidRequest, req.Hasta)
		}
		// inclusive end of day
		end := to.AddDate(0, 0, 1).Add(-time.Second)
		filters.To = &end
	}

	return s.alertRepo.ListForUser(ctx, userID, filters)
}

// UnreadPreview returns the bell dropdown: the top unread alerts capped
// at the configured preview limit, plus the full unread count.
func (s *AlertService) UnreadPreview(ctx context.Context, userID uuid.UUID) ([]model.Alert, int64, error) {
	alerts, err := s.alertRepo.ListUnread(ctx, userID, s.previewLimit)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.alertRepo.CountUnread(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return alerts, count, nil
}

func (s *AlertService) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.alertRepo.CountUnread(ctx, userID)
}

func (s *AlertService) GetByID(ctx context.Context, userID uuid.UUID, role string, id uuid.UUID) (*model.Alert, error) {
	return s.getOwned(ctx, userID, role, id)
}

// getOwned loads an alert and enforces that it belongs to the caller.
// Administrators can operate on any alert.
func (s *AlertService) getOwned(ctx context.Context, userID uuid.UUID, role string, id uuid.UUID) (*model.Alert, error) {
	alert, err := s.alertRepo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrAlertNotFound
	}
	if alert.UserID != userID && role != RoleAdmin {
		return nil, ErrNotAlertOwner
	}
	return alert, nil
}

// Create builds one ad-hoc instance per resolved recipient. Ad-hoc
// alerts have no type config and never dedupe.
func (s *AlertService) Create(ctx context.Context, req dto.CreateAlertRequest) ([]model.Alert, error) {
	category := model.AlertCategory(req.Tipo)
	if !category.Valid() {
		return nil, fmt.Errorf("%w: tipo %q", ErrInvalidRequest, req.Tipo)
	}
	priority := model.PriorityMedium
	if req.Prioridad != "" {
		priority = model.AlertPriority(req.Prioridad)
	}

	recipients, err := s.resolveManualRecipients(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	actions := req.AccionesDisponibles
	if len(actions) == 0 {
		actions = buildEntityActions(req.EntidadRelacionadaTipo, req.EntidadRelacionadaID)
	}

	created := make([]model.Alert, 0, len(recipients))
	for _, recipient := range recipients {
		alert := &model.Alert{
			ID:                uuid.New(),
			UserID:            recipient,
			Category:          category,
			Priority:          priority,
			Title:             req.Titulo,
			Message:           req.Mensaje,
			EventDate:         req.FechaEvento,
			ExpiresAt:         req.FechaVencimiento,
			RelatedEntityType: req.EntidadRelacionadaTipo,
			RelatedEntityID:   req.EntidadRelacionadaID,
			PeriodKey:         "manual",
			Actions:           actions,
			Extra:             req.DatosAdicionales,
		}

		stored, _, err := s.alertRepo.CreateIfAbsent(ctx, alert)
		if err != nil {
			s.logger.Error("AlertService", "No se pudo crear la alerta manual", map[string]interface{}{
				"usuario": recipient.String(),
				"error":   err.Error(),
			})
			continue
		}
		created = append(created, *stored)

		s.publishDispatch(dto.DispatchAlertMessage{
			Alert:        *stored,
			CanalSistema: true,
		})
	}

	if len(created) == 0 {
		return nil, errors.New("no se pudo crear ninguna alerta")
	}
	return created, nil
}

func (s *AlertService) resolveManualRecipients(ctx context.Context, req dto.CreateAlertRequest) ([]uuid.UUID, error) {
	roles := req.EnviarARoles
	if req.CrearParaAdmins {
		roles = append(roles, RoleAdmin)
	}

	recipients, err := s.resolver.ResolveRoles(ctx, roles)
	if err != nil {
		return nil, err
	}

	if req.UsuarioID != nil {
		found := false
		for _, id := range recipients {
			if id == *req.UsuarioID {
				found = true
				break
			}
		}
		if !found {
			recipients = append(recipients, *req.UsuarioID)
		}
	}
	return recipients, nil
}

func (s *AlertService) MarkRead(ctx context.Context, userID uuid.UUID, role string, id uuid.UUID) error {
	alert, err := s.getOwned(ctx, userID, role, id)
	if err != nil {
		return err
	}
	if alert.Read {
		// already read, keep the original fecha_lectura
		return nil
	}
	if err := s.alertRepo.MarkRead(ctx, id); err != nil {
		return err
	}
	// mirror onto the system channel delivery record
	if err := s.deliveryRepo.MarkRead(ctx, id, model.ChannelSystem); err != nil {
		s.logger.Warn("AlertService", "No se pudo marcar el registro de envío como leído", map[string]interface{}{
			"alerta": id.String(),
			"error":  err.Error(),
		})
	}
	return nil
}

func (s *AlertService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.alertRepo.MarkAllRead(ctx, userID)
}

func (s *AlertService) Delete(ctx context.Context, userID uuid.UUID, role string, id uuid.UUID) error {
	if _, err := s.getOwned(ctx, userID, role, id); err != nil {
		return err
	}
	return s.alertRepo.Delete(ctx, id)
}

func (s *AlertService) Snooze(ctx context.Context, userID uuid.UUID, role string, id uuid.UUID, days int) (*model.Alert, error) {
	if days <= 0 {
		return nil, fmt.Errorf("%w: dias debe ser positivo", ErrInvalidRequest)
	}
	if _, err := s.getOwned(ctx, userID, role, id); err != nil {
		return nil, err
	}
	return s.alertRepo.Snooze(ctx, id, days)
}

func (s *AlertService) Stats(ctx context.Context, userID uuid.UUID) (*repository.AlertStats, error) {
	return s.alertRepo.Stats(ctx, userID, time.Now())
}

func (s *AlertService) publishDispatch(msg dto.DispatchAlertMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("AlertService", "No se pudo serializar el mensaje de despacho", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := s.pubSub.Publish(s.topicName, message.NewMessage(watermill.NewUUID(), data)); err != nil {
		s.logger.Error("AlertService", "No se pudo publicar el despacho", map[string]interface{}{
			"alerta": msg.Alert.ID.String(),
			"error":  err.Error(),
		})
	}
}

// buildEntityActions derives the default deep-link action list from the
// related entity, e.g. /caballos/<id>.
func buildEntityActions(entityType *string, entityID *uuid.UUID) datatypes.JSON {
	if entityType == nil || entityID == nil {
		return nil
	}
	actions := []map[string]string{
		{
			"etiqueta": "Ver detalle",
			"url":      fmt.Sprintf("/%ss/%s", *entityType, entityID.String()),
		},
	}
	data, _ := json.Marshal(actions)
	return datatypes.JSON(data)
}
