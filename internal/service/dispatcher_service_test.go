package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"club-hipico-be/internal/dto"
	"club-hipico-be/internal/model"
	"club-hipico-be/internal/pkg/logger"
	"club-hipico-be/internal/repository/memory"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type fakeHub struct {
	mu   sync.Mutex
	sent []model.Alert
}

func (h *fakeHub) Send(_ uuid.UUID, alert model.Alert) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, alert)
}

func (h *fakeHub) Broadcast(model.Alert) {}

type fakeMailer struct {
	mu      sync.Mutex
	sent    []model.Alert
	digests [][]model.Alert
	fail    bool
}

func (m *fakeMailer) SendAlert(_ string, alert model.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp no disponible")
	}
	m.sent = append(m.sent, alert)
	return nil
}

func (m *fakeMailer) SendDigest(_ string, alerts []model.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp no disponible")
	}
	m.digests = append(m.digests, alerts)
	return nil
}

type fakePush struct {
	mu     sync.Mutex
	pushed []model.Alert
}

func (p *fakePush) PublishPush(_ context.Context, _ uuid.UUID, alert model.Alert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushed = append(p.pushed, alert)
	return nil
}

func (p *fakePush) PublishPushDigest(_ context.Context, _ uuid.UUID, alerts []model.Alert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushed = append(p.pushed, alerts...)
	return nil
}

type dispatcherFixture struct {
	dispatcher *DispatcherService
	deliveries *memory.DeliveryStore
	prefs      *memory.PreferenceStore
	source     *memory.FactSource
	hub        *fakeHub
	mailer     *fakeMailer
	push       *fakePush
}

func newDispatcherFixture(t *testing.T) *dispatcherFixture {
	t.Helper()

	deliveries := memory.NewDeliveryStore()
	prefs := memory.NewPreferenceStore()
	source := memory.NewFactSource()
	hub := &fakeHub{}
	mailer := &fakeMailer{}
	push := &fakePush{}

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	dispatcher := NewDispatcherService(
		deliveries, prefs, source, hub, mailer, push,
		pubSub, "alertas.creadas", logger.NewNopLogger(),
	)

	return &dispatcherFixture{
		dispatcher: dispatcher,
		deliveries: deliveries,
		prefs:      prefs,
		source:     source,
		hub:        hub,
		mailer:     mailer,
		push:       push,
	}
}

func testAlert(userID uuid.UUID) model.Alert {
	return model.Alert{
		ID:       uuid.New(),
		UserID:   userID,
		Category: model.CategoryPayment,
		Priority: model.PriorityHigh,
		Title:    "Pago por vencer",
		Message:  "El pago vence pronto",
	}
}

// Default preferences: system on, email off. The email channel is skipped
// without a delivery record; the system channel delivers and records.
func TestDispatcherSkipsOptedOutChannelWithoutRecord(t *testing.T) {
	f := newDispatcherFixture(t)
	user := uuid.New()
	alert := testAlert(user)

	f.dispatcher.Dispatch(context.Background(), dto.DispatchAlertMessage{
		Alert:        alert,
		CanalSistema: true,
		CanalEmail:   true,
	})

	records := f.deliveries.All()
	require.Len(t, records, 1)
	assert.Equal(t, model.ChannelSystem, records[0].Channel)
	assert.Equal(t, model.DeliverySent, records[0].Status)
	assert.Len(t, f.hub.sent, 1)
	assert.Empty(t, f.mailer.sent)
}

func TestDispatcherSendsEmailWhenOptedIn(t *testing.T) {
	f := newDispatcherFixture(t)
	user := uuid.New()
	f.source.SetEmail(user, "socio@clubhipico.cl")
	require.NoError(t, f.prefs.Upsert(context.Background(), &model.UserAlertPreferences{
		UserID:        user,
		SystemEnabled: true,
		EmailEnabled:  true,
	}))

	f.dispatcher.Dispatch(context.Background(), dto.DispatchAlertMessage{
		Alert:        testAlert(user),
		CanalSistema: true,
		CanalEmail:   true,
	})

	records := f.deliveries.All()
	require.Len(t, records, 2)
	channels := map[model.AlertChannel]model.DeliveryStatus{}
	for _, rec := range records {
		channels[rec.Channel] = rec.Status
	}
	assert.Equal(t, model.DeliverySent, channels[model.ChannelSystem])
	assert.Equal(t, model.DeliverySent, channels[model.ChannelEmail])
	assert.Len(t, f.mailer.sent, 1)
}

// A failing SMTP send is recorded as fallido with the error detail; the
// system channel is unaffected.
func TestDispatcherRecordsEmailFailure(t *testing.T) {
	f := newDispatcherFixture(t)
	user := uuid.New()
	f.source.SetEmail(user, "socio@clubhipico.cl")
	f.mailer.fail = true
	require.NoError(t, f.prefs.Upsert(context.Background(), &model.UserAlertPreferences{
		UserID:        user,
		SystemEnabled: true,
		EmailEnabled:  true,
	}))

	f.dispatcher.Dispatch(context.Background(), dto.DispatchAlertMessage{
		Alert:        testAlert(user),
		CanalSistema: true,
		CanalEmail:   true,
	})

	var emailRec *model.DeliveryRecord
	for _, rec := range f.deliveries.All() {
		if rec.Channel == model.ChannelEmail {
			r := rec
			emailRec = &r
		}
	}
	require.NotNil(t, emailRec)
	assert.Equal(t, model.DeliveryFailed, emailRec.Status)
	require.NotNil(t, emailRec.ErrorDetail)
	assert.Contains(t, *emailRec.ErrorDetail, "smtp")
	assert.Len(t, f.hub.sent, 1)
}

func TestDispatcherHonorsCategoryMute(t *testing.T) {
	f := newDispatcherFixture(t)
	user := uuid.New()
	require.NoError(t, f.prefs.Upsert(context.Background(), &model.UserAlertPreferences{
		UserID:        user,
		SystemEnabled: true,
		CategoryOptIn: datatypes.JSON(`{"pago": false}`),
	}))

	f.dispatcher.Dispatch(context.Background(), dto.DispatchAlertMessage{
		Alert:        testAlert(user),
		CanalSistema: true,
	})

	assert.Empty(t, f.deliveries.All())
	assert.Empty(t, f.hub.sent)
}

func TestDispatcherPushChannel(t *testing.T) {
	f := newDispatcherFixture(t)
	user := uuid.New()
	require.NoError(t, f.prefs.Upsert(context.Background(), &model.UserAlertPreferences{
		UserID:        user,
		SystemEnabled: true,
		PushEnabled:   true,
	}))

	f.dispatcher.Dispatch(context.Background(), dto.DispatchAlertMessage{
		Alert:     testAlert(user),
		CanalPush: true,
	})

	assert.Len(t, f.push.pushed, 1)
	records := f.deliveries.All()
	require.Len(t, records, 1)
	assert.Equal(t, model.ChannelPush, records[0].Channel)
}

// With digest enabled, email deliveries buffer until the configured
// interval elapses and then go out as a single grouped send.
func TestDispatcherDigestBuffersUntilIntervalElapses(t *testing.T) {
	f := newDispatcherFixture(t)
	user := uuid.New()
	f.source.SetEmail(user, "socio@clubhipico.cl")
	interval := 30
	require.NoError(t, f.prefs.Upsert(context.Background(), &model.UserAlertPreferences{
		UserID:         user,
		SystemEnabled:  true,
		EmailEnabled:   true,
		Digest:         true,
		DigestInterval: &interval,
	}))

	first := testAlert(user)
	second := testAlert(user)
	f.dispatcher.Dispatch(context.Background(), dto.DispatchAlertMessage{Alert: first, CanalEmail: true})
	f.dispatcher.Dispatch(context.Background(), dto.DispatchAlertMessage{Alert: second, CanalEmail: true})

	// nothing sent yet, nothing recorded
	assert.Empty(t, f.mailer.sent)
	assert.Empty(t, f.mailer.digests)
	assert.Empty(t, f.deliveries.All())

	// too early
	f.dispatcher.FlushDigests(context.Background(), time.Now().Add(10*time.Minute))
	assert.Empty(t, f.mailer.digests)

	// past the interval
	f.dispatcher.FlushDigests(context.Background(), time.Now().Add(31*time.Minute))
	require.Len(t, f.mailer.digests, 1)
	assert.Len(t, f.mailer.digests[0], 2)

	records := f.deliveries.All()
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, model.ChannelEmail, rec.Channel)
		assert.Equal(t, model.DeliverySent, rec.Status)
	}
}

func TestDispatcherSendWindowBlocksEmailOutsideHours(t *testing.T) {
	f := newDispatcherFixture(t)
	user := uuid.New()
	f.source.SetEmail(user, "socio@clubhipico.cl")

	// a window that can never contain "now": start == end at an
	// impossible-to-hit minute is fragile, so derive it from the clock
	now := time.Now()
	start := now.Add(2 * time.Hour).Format("15:04")
	end := now.Add(3 * time.Hour).Format("15:04")
	require.NoError(t, f.prefs.Upsert(context.Background(), &model.UserAlertPreferences{
		UserID:        user,
		SystemEnabled: true,
		EmailEnabled:  true,
		WindowStart:   &start,
		WindowEnd:     &end,
	}))

	f.dispatcher.Dispatch(context.Background(), dto.DispatchAlertMessage{
		Alert:        testAlert(user),
		CanalSistema: true,
		CanalEmail:   true,
	})

	// email skipped, system still delivered
	records := f.deliveries.All()
	require.Len(t, records, 1)
	assert.Equal(t, model.ChannelSystem, records[0].Channel)
	assert.Empty(t, f.mailer.sent)
}

func TestWithinSendWindowCrossingMidnight(t *testing.T) {
	start, end := "22:00", "07:00"
	prefs := &model.UserAlertPreferences{WindowStart: &start, WindowEnd: &end}

	at := func(h, m int) time.Time {
		return time.Date(2026, 3, 10, h, m, 0, 0, time.UTC)
	}
	assert.True(t, withinSendWindow(prefs, at(23, 0)))
	assert.True(t, withinSendWindow(prefs, at(6, 30)))
	assert.False(t, withinSendWindow(prefs, at(12, 0)))
}

func TestCategoryOptedInDefaults(t *testing.T) {
	prefs := &model.UserAlertPreferences{}
	assert.True(t, categoryOptedIn(prefs, model.CategoryVaccine))

	prefs.CategoryOptIn = datatypes.JSON(`{"vacuna": false}`)
	assert.False(t, categoryOptedIn(prefs, model.CategoryVaccine))
	// categories absent from the map stay opted in
	assert.True(t, categoryOptedIn(prefs, model.CategoryPayment))
}
