package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"club-hipico-be/internal/model"
	"club-hipico-be/internal/pkg/logger"
	"club-hipico-be/internal/repository"
	"club-hipico-be/internal/repository/memory"
	"club-hipico-be/pkg/alert/facts"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type schedulerFixture struct {
	scheduler *SchedulerService
	types     *memory.TypeStore
	alerts    *memory.AlertStore
	source    *memory.FactSource
	admin     uuid.UUID
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()

	types := memory.NewTypeStore()
	alerts := memory.NewAlertStore()
	source := memory.NewFactSource()
	admin := uuid.New()
	source.SetRole("administrador", admin)

	log := logger.NewNopLogger()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	resolver := NewRecipientResolver(source, log)

	scheduler := NewSchedulerService(types, alerts, source, resolver, pubSub, "alertas.creadas", time.Second, log)

	return &schedulerFixture{
		scheduler: scheduler,
		types:     types,
		alerts:    alerts,
		source:    source,
		admin:     admin,
	}
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

// A one-shot payment reminder with 7 days of lead fires once when the due
// date comes within range, and only once.
func TestSchedulerFiresOneShotPaymentReminder(t *testing.T) {
	f := newSchedulerFixture(t)
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	cfg := &model.AlertTypeConfig{
		ID:              uuid.New(),
		Name:            "Pago próximo a vencer",
		Category:        model.CategoryPayment,
		Active:          true,
		DefaultPriority: model.PriorityHigh,
		Frequency:       "unica",
		LeadDays:        intPtr(7),
		SendToRoles:     datatypes.NewJSONSlice([]string{"administrador"}),
		ChannelSystem:   true,
		TitleTemplate:   strPtr("Pago de {cliente_nombre} vence en {dias_hasta_vencimiento} días"),
		MessageTemplate: strPtr("El pago de {monto} de {cliente_nombre} está por vencer."),
		Conditions:      datatypes.JSON(`[{"campo":"dias_hasta_vencimiento","operador":"menor_igual","valor":7}]`),
		CreatedAt:       now.AddDate(0, 0, -30),
	}
	require.NoError(t, f.types.Create(context.Background(), cfg))

	due := now.AddDate(0, 0, 6)
	paymentID := uuid.New()
	f.source.SetSnapshots(string(model.CategoryPayment), []facts.Snapshot{{
		Entity:     facts.EntityRef{Kind: "pago", ID: paymentID},
		TargetDate: &due,
		Facts: map[string]interface{}{
			"cliente_nombre":         "María Pérez",
			"monto":                  120000.0,
			"dias_hasta_vencimiento": 6,
		},
	}})

	require.NoError(t, f.scheduler.EvaluateTick(context.Background(), now))

	created, _, err := f.alerts.ListForUser(context.Background(), f.admin, repository.AlertFilters{})
	require.NoError(t, err)
	require.Len(t, created, 1)

	alert := created[0]
	assert.Equal(t, "Pago de María Pérez vence en 6 días", alert.Title)
	assert.Equal(t, "El pago de 120000 de María Pérez está por vencer.", alert.Message)
	assert.Equal(t, model.PriorityHigh, alert.Priority)
	assert.Equal(t, "unica", alert.PeriodKey)
	require.NotNil(t, alert.RelatedEntityID)
	assert.Equal(t, paymentID, *alert.RelatedEntityID)

	// same tick again: the instance already exists
	require.NoError(t, f.scheduler.EvaluateTick(context.Background(), now.Add(time.Minute)))
	created, _, err = f.alerts.ListForUser(context.Background(), f.admin, repository.AlertFilters{})
	require.NoError(t, err)
	assert.Len(t, created, 1)
}

// Two ticks inside the same day produce one instance of a daily type; the
// next day produces a second one.
func TestSchedulerDailyTypeDedupsWithinPeriod(t *testing.T) {
	f := newSchedulerFixture(t)
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	cfg := &model.AlertTypeConfig{
		ID:            uuid.New(),
		Name:          "Revisión diaria de boxes",
		Category:      model.CategoryTask,
		Active:        true,
		Frequency:     "diaria",
		SendToRoles:   datatypes.NewJSONSlice([]string{"administrador"}),
		ChannelSystem: true,
		CreatedAt:     now.AddDate(0, 0, -1),
	}
	require.NoError(t, f.types.Create(context.Background(), cfg))

	require.NoError(t, f.scheduler.EvaluateTick(context.Background(), now))
	require.NoError(t, f.scheduler.EvaluateTick(context.Background(), now.Add(30*time.Minute)))

	created, _, err := f.alerts.ListForUser(context.Background(), f.admin, repository.AlertFilters{})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "2026-03-10", created[0].PeriodKey)

	require.NoError(t, f.scheduler.EvaluateTick(context.Background(), now.AddDate(0, 0, 1)))
	created, _, err = f.alerts.ListForUser(context.Background(), f.admin, repository.AlertFilters{})
	require.NoError(t, err)
	assert.Len(t, created, 2)
}

// A weekly type configured for several weekdays fires once per configured
// day: the Monday and Wednesday slots of the same week are distinct firing
// periods and must not collapse into one instance.
func TestSchedulerWeeklyFiresOncePerConfiguredWeekday(t *testing.T) {
	f := newSchedulerFixture(t)
	// 2026-03-02 is a Monday, 2026-03-04 a Wednesday
	monday := time.Date(2026, 3, 2, 9, 1, 0, 0, time.UTC)
	wednesday := time.Date(2026, 3, 4, 9, 1, 0, 0, time.UTC)

	cfg := &model.AlertTypeConfig{
		ID:            uuid.New(),
		Name:          "Clase de equitación",
		Category:      model.CategoryTask,
		Active:        true,
		Frequency:     "semanal",
		SendTime:      strPtr("09:00"),
		Weekdays:      datatypes.NewJSONSlice([]int{1, 3, 5}),
		SendToRoles:   datatypes.NewJSONSlice([]string{"administrador"}),
		ChannelSystem: true,
		CreatedAt:     monday.AddDate(0, 0, -14),
	}
	require.NoError(t, f.types.Create(context.Background(), cfg))

	require.NoError(t, f.scheduler.EvaluateTick(context.Background(), monday))
	// a second Monday tick still dedupes
	require.NoError(t, f.scheduler.EvaluateTick(context.Background(), monday.Add(30*time.Minute)))

	created, _, err := f.alerts.ListForUser(context.Background(), f.admin, repository.AlertFilters{})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "2026-W10-1", created[0].PeriodKey)

	require.NoError(t, f.scheduler.EvaluateTick(context.Background(), wednesday))

	created, _, err = f.alerts.ListForUser(context.Background(), f.admin, repository.AlertFilters{})
	require.NoError(t, err)
	require.Len(t, created, 2)

	keys := []string{created[0].PeriodKey, created[1].PeriodKey}
	assert.ElementsMatch(t, []string{"2026-W10-1", "2026-W10-3"}, keys)
}

// Concurrent evaluation passes over the same due slot collapse into a
// single instance through the dedup gate.
func TestSchedulerConcurrentTicksCreateOneInstance(t *testing.T) {
	f := newSchedulerFixture(t)
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	cfg := &model.AlertTypeConfig{
		ID:            uuid.New(),
		Name:          "Recordatorio diario",
		Category:      model.CategoryTask,
		Active:        true,
		Frequency:     "diaria",
		SendToRoles:   datatypes.NewJSONSlice([]string{"administrador"}),
		ChannelSystem: true,
		CreatedAt:     now.AddDate(0, 0, -1),
	}
	require.NoError(t, f.types.Create(context.Background(), cfg))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.scheduler.EvaluateTick(context.Background(), now)
		}()
	}
	wg.Wait()

	created, _, err := f.alerts.ListForUser(context.Background(), f.admin, repository.AlertFilters{})
	require.NoError(t, err)
	assert.Len(t, created, 1)
}

func TestSchedulerSkipsEntitiesFailingConditions(t *testing.T) {
	f := newSchedulerFixture(t)
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	cfg := &model.AlertTypeConfig{
		ID:            uuid.New(),
		Name:          "Vacunas próximas",
		Category:      model.CategoryVaccine,
		Active:        true,
		Frequency:     "unica",
		LeadDays:      intPtr(7),
		SendToRoles:   datatypes.NewJSONSlice([]string{"administrador"}),
		ChannelSystem: true,
		Conditions:    datatypes.JSON(`[{"campo":"dias_hasta_vencimiento","operador":"menor_igual","valor":7}]`),
		CreatedAt:     now.AddDate(0, 0, -30),
	}
	require.NoError(t, f.types.Create(context.Background(), cfg))

	farAway := now.AddDate(0, 0, 60)
	f.source.SetSnapshots(string(model.CategoryVaccine), []facts.Snapshot{{
		Entity:     facts.EntityRef{Kind: "caballo", ID: uuid.New()},
		TargetDate: &farAway,
		Facts:      map[string]interface{}{"dias_hasta_vencimiento": 60},
	}})

	require.NoError(t, f.scheduler.EvaluateTick(context.Background(), now))

	count, err := f.alerts.CountUnread(context.Background(), f.admin)
	require.NoError(t, err)
	assert.Zero(t, count)
}

// A persisted misconfiguration (semanal without weekdays) is skipped as
// inactive instead of failing the whole pass.
func TestSchedulerSkipsInvalidPersistedConfig(t *testing.T) {
	f := newSchedulerFixture(t)
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	bad := &model.AlertTypeConfig{
		ID:            uuid.New(),
		Name:          "Semanal sin días",
		Category:      model.CategoryTask,
		Active:        true,
		Frequency:     "semanal",
		SendToRoles:   datatypes.NewJSONSlice([]string{"administrador"}),
		ChannelSystem: true,
		CreatedAt:     now.AddDate(0, 0, -7),
	}
	good := &model.AlertTypeConfig{
		ID:            uuid.New(),
		Name:          "Diaria válida",
		Category:      model.CategoryTask,
		Active:        true,
		Frequency:     "diaria",
		SendToRoles:   datatypes.NewJSONSlice([]string{"administrador"}),
		ChannelSystem: true,
		CreatedAt:     now.AddDate(0, 0, -7),
	}
	require.NoError(t, f.types.Create(context.Background(), bad))
	require.NoError(t, f.types.Create(context.Background(), good))

	require.NoError(t, f.scheduler.EvaluateTick(context.Background(), now))

	created, _, err := f.alerts.ListForUser(context.Background(), f.admin, repository.AlertFilters{})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "Diaria válida", created[0].Title)
}

type failingSource struct {
	*memory.FactSource
	failCategory string
}

func (s *failingSource) FactsForCategory(ctx context.Context, category string, asOf time.Time) ([]facts.Snapshot, error) {
	if category == s.failCategory {
		return nil, errors.New("módulo de caballos no disponible")
	}
	return s.FactSource.FactsForCategory(ctx, category, asOf)
}

// A failing fact source only silences its own category; other types in
// the same tick still fire.
func TestSchedulerIsolatesFactSourceFailures(t *testing.T) {
	f := newSchedulerFixture(t)
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	source := &failingSource{FactSource: f.source, failCategory: string(model.CategoryVaccine)}
	log := logger.NewNopLogger()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	scheduler := NewSchedulerService(f.types, f.alerts, source, NewRecipientResolver(source, log), pubSub, "alertas.creadas", time.Second, log)

	vaccine := &model.AlertTypeConfig{
		ID: uuid.New(), Name: "Vacunas", Category: model.CategoryVaccine,
		Active: true, Frequency: "diaria",
		SendToRoles: datatypes.NewJSONSlice([]string{"administrador"}),
		CreatedAt:   now.AddDate(0, 0, -1),
	}
	task := &model.AlertTypeConfig{
		ID: uuid.New(), Name: "Tareas", Category: model.CategoryTask,
		Active: true, Frequency: "diaria",
		SendToRoles: datatypes.NewJSONSlice([]string{"administrador"}),
		CreatedAt:   now.AddDate(0, 0, -1),
	}
	require.NoError(t, f.types.Create(context.Background(), vaccine))
	require.NoError(t, f.types.Create(context.Background(), task))

	require.NoError(t, scheduler.EvaluateTick(context.Background(), now))

	created, _, err := f.alerts.ListForUser(context.Background(), f.admin, repository.AlertFilters{})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "Tareas", created[0].Title)
}

func TestSchedulerCreatesOneInstancePerRecipient(t *testing.T) {
	f := newSchedulerFixture(t)
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	groom := uuid.New()
	f.source.SetRole("caballerizo", groom)

	cfg := &model.AlertTypeConfig{
		ID:            uuid.New(),
		Name:          "Recordatorio general",
		Category:      model.CategoryTask,
		Active:        true,
		Frequency:     "diaria",
		SendToRoles:   datatypes.NewJSONSlice([]string{"administrador", "caballerizo"}),
		ChannelSystem: true,
		CreatedAt:     now.AddDate(0, 0, -1),
	}
	require.NoError(t, f.types.Create(context.Background(), cfg))

	require.NoError(t, f.scheduler.EvaluateTick(context.Background(), now))

	adminCount, err := f.alerts.CountUnread(context.Background(), f.admin)
	require.NoError(t, err)
	groomCount, err := f.alerts.CountUnread(context.Background(), groom)
	require.NoError(t, err)
	assert.EqualValues(t, 1, adminCount)
	assert.EqualValues(t, 1, groomCount)
}
