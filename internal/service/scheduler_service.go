package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"club-hipico-be/internal/dto"
	"club-hipico-be/internal/model"
	"club-hipico-be/internal/pkg/logger"
	"club-hipico-be/internal/repository"
	"club-hipico-be/pkg/alert/condition"
	"club-hipico-be/pkg/alert/facts"
	"club-hipico-be/pkg/alert/recurrence"
	"club-hipico-be/pkg/alert/template"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ISchedulerService interface {
	Start(ctx context.Context, interval time.Duration)
	EvaluateTick(ctx context.Context, now time.Time) error
}

// SchedulerService drives the periodic evaluation pass: every tick it
// walks the active alert types, matches conditions against entity facts,
// asks the recurrence calculator whether a slot is due and creates one
// instance per recipient through the dedup gate.
type SchedulerService struct {
	typeRepo  repository.AlertTypeRepository
	alertRepo repository.AlertRepository
	source    facts.Source
	resolver  *RecipientResolver
	pubSub    *gochannel.GoChannel
	topicName string
	logger    logger.ILogger

	factTimeout time.Duration

	// held for the duration of a tick; a tick that finds it taken is
	// dropped, never queued
	running sync.Mutex
}

func NewSchedulerService(
	typeRepo repository.AlertTypeRepository,
	alertRepo repository.AlertRepository,
	source facts.Source,
	resolver *RecipientResolver,
	pubSub *gochannel.GoChannel,
	topicName string,
	factTimeout time.Duration,
	log logger.ILogger,
) *SchedulerService {
	if factTimeout <= 0 {
		factTimeout = 30 * time.Second
	}
	return &SchedulerService{
		typeRepo:    typeRepo,
		alertRepo:   alertRepo,
		source:      source,
		resolver:    resolver,
		pubSub:      pubSub,
		topicName:   topicName,
		factTimeout: factTimeout,
		logger:      log,
	}
}

// Start runs the tick loop until the context is cancelled.
func (s *SchedulerService) Start(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.logger.Info("Scheduler", "Motor de alertas iniciado", map[string]interface{}{
			"intervalo": interval.String(),
		})

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Scheduler", "Motor de alertas detenido", nil)
				return
			case now := <-ticker.C:
				if !s.running.TryLock() {
					s.logger.Warn("Scheduler", "Evaluación anterior aún en curso, tick omitido", nil)
					continue
				}
				if err := s.EvaluateTick(ctx, now); err != nil {
					s.logger.Error("Scheduler", "Evaluación abortada", map[string]interface{}{"error": err.Error()})
				}
				s.running.Unlock()
			}
		}
	}()
}

// EvaluateTick runs one evaluation pass. Independent types are evaluated
// concurrently; a failure inside one type never affects another. Only the
// inability to read the active type set aborts the pass.
func (s *SchedulerService) EvaluateTick(ctx context.Context, now time.Time) error {
	types, err := s.typeRepo.ListActive(ctx)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for i := range types {
		cfg := types[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.evaluateType(ctx, &cfg, now)
		}()
	}
	wg.Wait()
	return nil
}

func (s *SchedulerService) evaluateType(ctx context.Context, cfg *model.AlertTypeConfig, now time.Time) {
	spec, err := RecurrenceSpec(cfg, cfg.CreatedAt)
	if err == nil {
		err = spec.Validate()
	}
	if err != nil {
		// persisted invalid config (should have been rejected upstream):
		// treat as inactive rather than poisoning the tick
		s.logger.Warn("Scheduler", "Tipo de alerta con configuración inválida, omitido", map[string]interface{}{
			"tipo_alerta": cfg.ID.String(),
			"nombre":      cfg.Name,
			"error":       err.Error(),
		})
		return
	}

	conditions, err := condition.Parse(cfg.Conditions)
	if err != nil {
		s.logger.Warn("Scheduler", "Tipo de alerta con condiciones inválidas, omitido", map[string]interface{}{
			"tipo_alerta": cfg.ID.String(),
			"error":       err.Error(),
		})
		return
	}

	factCtx, cancel := context.WithTimeout(ctx, s.factTimeout)
	defer cancel()

	snapshots, err := s.source.FactsForCategory(factCtx, string(cfg.Category), now)
	if err != nil {
		s.logger.Error("Scheduler", "No se pudieron obtener datos para la categoría", map[string]interface{}{
			"tipo":  string(cfg.Category),
			"error": err.Error(),
		})
		return
	}

	if len(snapshots) == 0 {
		// entity-less types (recordatorios generales) still evaluate once
		// per tick against an empty fact set
		snapshots = []facts.Snapshot{{}}
	}

	for _, snap := range snapshots {
		if err := s.evaluateEntity(ctx, cfg, spec, conditions, snap, now); err != nil {
			s.logger.Error("Scheduler", "Entidad omitida por error", map[string]interface{}{
				"tipo_alerta": cfg.ID.String(),
				"entidad":     snap.Entity.Kind,
				"error":       err.Error(),
			})
		}
	}
}

func (s *SchedulerService) evaluateEntity(
	ctx context.Context,
	cfg *model.AlertTypeConfig,
	spec recurrence.Spec,
	conditions []condition.Condition,
	snap facts.Snapshot,
	now time.Time,
) error {
	if !condition.Evaluate(conditions, snap.Facts) {
		return nil
	}

	var entityType *string
	var entityID *uuid.UUID
	var entityRef *facts.EntityRef
	if snap.Entity.Kind != "" {
		kind := snap.Entity.Kind
		id := snap.Entity.ID
		entityType, entityID = &kind, &id
		entityRef = &facts.EntityRef{Kind: kind, ID: id}
	}

	lastFired, err := s.alertRepo.LastFiringTime(ctx, cfg.ID, entityType, entityID)
	if err != nil {
		return err
	}

	due := recurrence.NextFireAt(spec, snap.TargetDate, lastFired, now)
	if due == nil || due.After(now) {
		return nil
	}
	periodKey := recurrence.PeriodKey(spec, *due)

	recipients, err := s.resolver.Resolve(ctx, cfg, entityRef)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		return nil
	}

	title, msg := s.renderTexts(cfg, snap)

	for _, userID := range recipients {
		alert := &model.Alert{
			ID:                uuid.New(),
			AlertTypeID:       &cfg.ID,
			UserID:            userID,
			Category:          cfg.Category,
			Priority:          cfg.DefaultPriority,
			Title:             title,
			Message:           msg,
			EventDate:         snap.TargetDate,
			ExpiresAt:         snap.TargetDate,
			RelatedEntityType: entityType,
			RelatedEntityID:   entityID,
			PeriodKey:         periodKey,
			DedupKey:          model.BuildDedupKey(cfg.ID, userID, entityType, entityID, periodKey),
			Actions:           buildEntityActions(entityType, entityID),
			Extra:             marshalFacts(snap.Facts),
			// stamped with the evaluation clock so LastFiringTime and the
			// recurrence grid agree on when this slot fired
			CreatedAt: now,
			UpdatedAt: now,
		}

		stored, created, err := s.alertRepo.CreateIfAbsent(ctx, alert)
		if err != nil {
			s.logger.Error("Scheduler", "No se pudo crear la instancia", map[string]interface{}{
				"tipo_alerta": cfg.ID.String(),
				"usuario":     userID.String(),
				"error":       err.Error(),
			})
			continue
		}
		if !created {
			// already fired for this period, nothing to dispatch
			continue
		}

		s.publishDispatch(dto.DispatchAlertMessage{
			Alert:        *stored,
			CanalSistema: cfg.ChannelSystem,
			CanalEmail:   cfg.ChannelEmail,
			CanalPush:    cfg.ChannelPush,
		})
	}
	return nil
}

func (s *SchedulerService) renderTexts(cfg *model.AlertTypeConfig, snap facts.Snapshot) (string, string) {
	title := cfg.Name
	if cfg.TitleTemplate != nil && *cfg.TitleTemplate != "" {
		title = template.Render(*cfg.TitleTemplate, snap.Facts)
	}
	msg := title
	if cfg.MessageTemplate != nil && *cfg.MessageTemplate != "" {
		msg = template.Render(*cfg.MessageTemplate, snap.Facts)
	}
	return title, msg
}

func (s *SchedulerService) publishDispatch(msg dto.DispatchAlertMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := s.pubSub.Publish(s.topicName, message.NewMessage(watermill.NewUUID(), data)); err != nil {
		s.logger.Error("Scheduler", "No se pudo publicar el despacho", map[string]interface{}{
			"alerta": msg.Alert.ID.String(),
			"error":  err.Error(),
		})
	}
}

func marshalFacts(factsMap map[string]interface{}) datatypes.JSON {
	if len(factsMap) == 0 {
		return nil
	}
	data, err := json.Marshal(factsMap)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}
