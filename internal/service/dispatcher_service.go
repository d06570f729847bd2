package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"club-hipico-be/internal/dto"
	"club-hipico-be/internal/model"
	"club-hipico-be/internal/pkg/logger"
	"club-hipico-be/internal/repository"
	"club-hipico-be/pkg/alert/facts"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// AlertDelivery pushes real-time updates to connected clients.
// Implemented by the WebSocket Hub.
type AlertDelivery interface {
	Send(userID uuid.UUID, alert model.Alert)
	Broadcast(alert model.Alert)
}

// AlertMailer sends the email channel.
type AlertMailer interface {
	SendAlert(toEmail string, alert model.Alert) error
	SendDigest(toEmail string, alerts []model.Alert) error
}

// PushPublisher hands alerts to the push gateway over the event bus. The
// gateway owns device tokens and the actual transport.
type PushPublisher interface {
	PublishPush(ctx context.Context, userID uuid.UUID, alert model.Alert) error
	PublishPushDigest(ctx context.Context, userID uuid.UUID, alerts []model.Alert) error
}

type IDispatcherService interface {
	Consume(ctx context.Context) error
	Dispatch(ctx context.Context, msg dto.DispatchAlertMessage)
	FlushDigests(ctx context.Context, now time.Time)
	StartDigestLoop(ctx context.Context, checkEvery time.Duration)
}

// digestBucket buffers one user's grouped deliveries until their
// configured interval elapses.
type digestBucket struct {
	email   []model.Alert
	push    []model.Alert
	flushAt time.Time
}

type DispatcherService struct {
	deliveryRepo repository.DeliveryRepository
	prefRepo     repository.PreferenceRepository
	source       facts.Source
	delivery     AlertDelivery
	mailer       AlertMailer
	push         PushPublisher
	logger       logger.ILogger

	pubSub    *gochannel.GoChannel
	topicName string

	mu      sync.Mutex
	buckets map[uuid.UUID]*digestBucket
}

func NewDispatcherService(
	deliveryRepo repository.DeliveryRepository,
	prefRepo repository.PreferenceRepository,
	source facts.Source,
	delivery AlertDelivery,
	mailer AlertMailer,
	push PushPublisher,
	pubSub *gochannel.GoChannel,
	topicName string,
	log logger.ILogger,
) *DispatcherService {
	return &DispatcherService{
		deliveryRepo: deliveryRepo,
		prefRepo:     prefRepo,
		source:       source,
		delivery:     delivery,
		mailer:       mailer,
		push:         push,
		pubSub:       pubSub,
		topicName:    topicName,
		logger:       log,
		buckets:      make(map[uuid.UUID]*digestBucket),
	}
}

// Consume starts draining the dispatch queue.
func (s *DispatcherService) Consume(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, s.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (s *DispatcherService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.DispatchAlertMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.logger.Error("Dispatcher", "Mensaje de despacho inválido, descartado", map[string]interface{}{"error": err.Error()})
		msg.Ack() // invalid payloads would retry forever
		return
	}

	s.Dispatch(ctx, payload)
	msg.Ack()
}

// Dispatch delivers one alert instance through its enabled channels. The
// instance already exists in the inbox; channel failures only surface in
// registros_alerta, never roll the instance back. A channel gated off by
// preferences is skipped entirely, with no delivery record.
func (s *DispatcherService) Dispatch(ctx context.Context, msg dto.DispatchAlertMessage) {
	alert := msg.Alert

	prefs, err := s.prefRepo.Get(ctx, alert.UserID)
	if err != nil {
		s.logger.Error("Dispatcher", "No se pudieron leer las preferencias, usando defaults", map[string]interface{}{
			"usuario": alert.UserID.String(),
			"error":   err.Error(),
		})
		prefs = &model.UserAlertPreferences{UserID: alert.UserID, SystemEnabled: true}
	}

	if !categoryOptedIn(prefs, alert.Category) {
		s.logger.Info("Dispatcher", "Categoría silenciada por el usuario", map[string]interface{}{
			"usuario": alert.UserID.String(),
			"tipo":    string(alert.Category),
		})
		return
	}

	now := time.Now()
	inWindow := withinSendWindow(prefs, now)

	var wg sync.WaitGroup

	if msg.CanalSistema && prefs.SystemEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.sendSystem(ctx, alert)
		}()
	}

	if msg.CanalEmail && prefs.EmailEnabled && inWindow {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if prefs.Digest {
				s.buffer(alert, model.ChannelEmail, prefs, now)
				return
			}
			s.sendEmail(ctx, alert)
		}()
	}

	if msg.CanalPush && prefs.PushEnabled && inWindow {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if prefs.Digest {
				s.buffer(alert, model.ChannelPush, prefs, now)
				return
			}
			s.sendPush(ctx, alert)
		}()
	}

	wg.Wait()
}

// sendSystem records the inbox delivery and pushes over the hub. The
// inbox row itself was written at creation time, so this cannot fail
// into a lost alert.
func (s *DispatcherService) sendSystem(ctx context.Context, alert model.Alert) {
	s.record(ctx, alert, model.ChannelSystem, model.DeliverySent, nil)
	if s.delivery != nil {
		s.delivery.Send(alert.UserID, alert)
	}
}

func (s *DispatcherService) sendEmail(ctx context.Context, alert model.Alert) {
	email, err := s.source.ActiveUserEmail(ctx, alert.UserID)
	if err != nil {
		s.record(ctx, alert, model.ChannelEmail, model.DeliveryFailed, err)
		return
	}
	if err := s.mailer.SendAlert(email, alert); err != nil {
		s.record(ctx, alert, model.ChannelEmail, model.DeliveryFailed, err)
		return
	}
	s.record(ctx, alert, model.ChannelEmail, model.DeliverySent, nil)
}

func (s *DispatcherService) sendPush(ctx context.Context, alert model.Alert) {
	if err := s.push.PublishPush(ctx, alert.UserID, alert); err != nil {
		s.record(ctx, alert, model.ChannelPush, model.DeliveryFailed, err)
		return
	}
	s.record(ctx, alert, model.ChannelPush, model.DeliverySent, nil)
}

func (s *DispatcherService) record(ctx context.Context, alert model.Alert, channel model.AlertChannel, status model.DeliveryStatus, sendErr error) {
	now := time.Now()
	rec := &model.DeliveryRecord{
		AlertID: alert.ID,
		UserID:  alert.UserID,
		Channel: channel,
		Status:  status,
	}
	if status == model.DeliverySent {
		rec.SentAt = &now
	}
	if sendErr != nil {
		detail := sendErr.Error()
		rec.ErrorDetail = &detail
	}
	if err := s.deliveryRepo.Create(ctx, rec); err != nil {
		s.logger.Error("Dispatcher", "No se pudo registrar el envío", map[string]interface{}{
			"alerta": alert.ID.String(),
			"canal":  string(channel),
			"error":  err.Error(),
		})
	}
}

// --- digest aggregation ---

func (s *DispatcherService) buffer(alert model.Alert, channel model.AlertChannel, prefs *model.UserAlertPreferences, now time.Time) {
	interval := 60
	if prefs.DigestInterval != nil && *prefs.DigestInterval > 0 {
		interval = *prefs.DigestInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[alert.UserID]
	if !ok {
		b = &digestBucket{flushAt: now.Add(time.Duration(interval) * time.Minute)}
		s.buckets[alert.UserID] = b
	}
	switch channel {
	case model.ChannelEmail:
		b.email = append(b.email, alert)
	case model.ChannelPush:
		b.push = append(b.push, alert)
	}
}

// StartDigestLoop periodically flushes digest buckets whose interval
// elapsed. checkEvery bounds how late a flush can be, not how often a
// user receives digests.
func (s *DispatcherService) StartDigestLoop(ctx context.Context, checkEvery time.Duration) {
	go func() {
		ticker := time.NewTicker(checkEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.FlushDigests(ctx, now)
			}
		}
	}()
}

func (s *DispatcherService) FlushDigests(ctx context.Context, now time.Time) {
	s.mu.Lock()
	due := make(map[uuid.UUID]*digestBucket)
	for userID, b := range s.buckets {
		if !now.Before(b.flushAt) {
			due[userID] = b
			delete(s.buckets, userID)
		}
	}
	s.mu.Unlock()

	for userID, b := range due {
		if len(b.email) > 0 {
			s.flushEmailDigest(ctx, userID, b.email)
		}
		if len(b.push) > 0 {
			s.flushPushDigest(ctx, userID, b.push)
		}
	}
}

func (s *DispatcherService) flushEmailDigest(ctx context.Context, userID uuid.UUID, alerts []model.Alert) {
	email, err := s.source.ActiveUserEmail(ctx, userID)
	if err == nil {
		err = s.mailer.SendDigest(email, alerts)
	}
	status := model.DeliverySent
	if err != nil {
		status = model.DeliveryFailed
	}
	for _, alert := range alerts {
		s.record(ctx, alert, model.ChannelEmail, status, err)
	}
}

func (s *DispatcherService) flushPushDigest(ctx context.Context, userID uuid.UUID, alerts []model.Alert) {
	err := s.push.PublishPushDigest(ctx, userID, alerts)
	status := model.DeliverySent
	if err != nil {
		status = model.DeliveryFailed
	}
	for _, alert := range alerts {
		s.record(ctx, alert, model.ChannelPush, status, err)
	}
}

// --- preference gates ---

// categoryOptedIn checks the per-category map; a category absent from the
// map counts as opted in.
func categoryOptedIn(prefs *model.UserAlertPreferences, category model.AlertCategory) bool {
	if len(prefs.CategoryOptIn) == 0 {
		return true
	}
	var optIn map[string]bool
	if err := json.Unmarshal(prefs.CategoryOptIn, &optIn); err != nil {
		return true
	}
	enabled, present := optIn[string(category)]
	return !present || enabled
}

// withinSendWindow gates email/push on the user's allowed hours and
// weekdays. No window configured means always allowed.
func withinSendWindow(prefs *model.UserAlertPreferences, now time.Time) bool {
	if len(prefs.Weekdays) > 0 {
		ok := false
		for _, d := range prefs.Weekdays {
			if time.Weekday(d) == now.Weekday() {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	if prefs.WindowStart == nil || prefs.WindowEnd == nil {
		return true
	}
	start, errS := minutesOfDay(*prefs.WindowStart)
	end, errE := minutesOfDay(*prefs.WindowEnd)
	if errS != nil || errE != nil {
		return true
	}
	cur := now.Hour()*60 + now.Minute()
	if start <= end {
		return cur >= start && cur <= end
	}
	// window crossing midnight, e.g. 22:00-07:00
	return cur >= start || cur <= end
}

func minutesOfDay(hhmm string) (int, error) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("hora inválida: %s", hhmm)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("hora inválida: %s", hhmm)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("hora inválida: %s", hhmm)
	}
	return h*60 + m, nil
}
