package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"club-hipico-be/internal/model"
	"club-hipico-be/internal/repository"
	"club-hipico-be/internal/repository/implementation"
	"club-hipico-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestAlertEnginePostgres(t *testing.T) {
	// Load .env from root
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	err = gormDB.AutoMigrate(
		&model.User{},
		&model.AlertTypeConfig{},
		&model.Alert{},
		&model.DeliveryRecord{},
		&model.UserAlertPreferences{},
	)
	require.NoError(t, err)

	ctx := context.Background()
	alertRepo := implementation.NewAlertRepository(gormDB)
	typeRepo := implementation.NewAlertTypeRepository(gormDB)
	prefRepo := implementation.NewPreferenceRepository(gormDB)

	user := &model.User{
		ID:       uuid.New(),
		Email:    "integracion-" + uuid.New().String() + "@club.test",
		FullName: "Usuario Integración",
		Role:     "administrador",
		Active:   true,
	}
	require.NoError(t, gormDB.Create(user).Error)

	cfg := &model.AlertTypeConfig{
		Name:            "Tipo integración " + uuid.New().String(),
		Category:        model.CategoryPayment,
		Active:          true,
		DefaultPriority: model.PriorityHigh,
		Frequency:       "diaria",
		SendToRoles:     datatypes.NewJSONSlice([]string{"administrador"}),
		ChannelSystem:   true,
	}
	require.NoError(t, typeRepo.Create(ctx, cfg))

	t.Run("DedupKeyUniqueAcrossRetries", func(t *testing.T) {
		periodKey := time.Now().Format("2006-01-02")
		build := func() *model.Alert {
			return &model.Alert{
				ID:          uuid.New(),
				AlertTypeID: &cfg.ID,
				UserID:      user.ID,
				Category:    cfg.Category,
				Priority:    cfg.DefaultPriority,
				Title:       "Pago pendiente",
				Message:     "Hay un pago pendiente de revisión",
				PeriodKey:   periodKey,
				DedupKey:    model.BuildDedupKey(cfg.ID, user.ID, nil, nil, periodKey),
			}
		}

		first, created, err := alertRepo.CreateIfAbsent(ctx, build())
		require.NoError(t, err)
		assert.True(t, created)

		second, created, err := alertRepo.CreateIfAbsent(ctx, build())
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("InboxLifecycle", func(t *testing.T) {
		alerts, _, err := alertRepo.ListForUser(ctx, user.ID, repository.AlertFilters{})
		require.NoError(t, err)
		require.NotEmpty(t, alerts)

		target := alerts[0]
		require.NoError(t, alertRepo.MarkRead(ctx, target.ID))

		reloaded, err := alertRepo.GetByID(ctx, target.ID)
		require.NoError(t, err)
		assert.True(t, reloaded.Read)
		assert.NotNil(t, reloaded.ReadAt)
	})

	t.Run("SnoozeStacks", func(t *testing.T) {
		expires := time.Now().Truncate(time.Second).AddDate(0, 0, 1)
		alert := &model.Alert{
			ID:        uuid.New(),
			UserID:    user.ID,
			Category:  model.CategoryPayment,
			Priority:  model.PriorityMedium,
			Title:     "Pago para posponer",
			Message:   "Pago con vencimiento conocido",
			PeriodKey: "manual",
			ExpiresAt: &expires,
		}
		_, created, err := alertRepo.CreateIfAbsent(ctx, alert)
		require.NoError(t, err)
		require.True(t, created)

		first, err := alertRepo.Snooze(ctx, alert.ID, 3)
		require.NoError(t, err)
		require.NotNil(t, first.ExpiresAt)
		assert.WithinDuration(t, expires.AddDate(0, 0, 3), *first.ExpiresAt, time.Second)

		// the second snooze stacks on the already-delayed date
		second, err := alertRepo.Snooze(ctx, alert.ID, 2)
		require.NoError(t, err)
		require.NotNil(t, second.ExpiresAt)
		assert.WithinDuration(t, expires.AddDate(0, 0, 5), *second.ExpiresAt, time.Second)
	})

	t.Run("MarkAllReadIdempotent", func(t *testing.T) {
		affected, err := alertRepo.MarkAllRead(ctx, user.ID)
		require.NoError(t, err)
		assert.Positive(t, affected)

		count, err := alertRepo.CountUnread(ctx, user.ID)
		require.NoError(t, err)
		assert.Zero(t, count)

		alerts, _, err := alertRepo.ListForUser(ctx, user.ID, repository.AlertFilters{})
		require.NoError(t, err)
		readAt := make(map[uuid.UUID]time.Time)
		for _, a := range alerts {
			require.NotNil(t, a.ReadAt)
			readAt[a.ID] = *a.ReadAt
		}

		affected, err = alertRepo.MarkAllRead(ctx, user.ID)
		require.NoError(t, err)
		assert.Zero(t, affected)

		alerts, _, err = alertRepo.ListForUser(ctx, user.ID, repository.AlertFilters{})
		require.NoError(t, err)
		for _, a := range alerts {
			require.NotNil(t, a.ReadAt)
			assert.Equal(t, readAt[a.ID], *a.ReadAt, "fecha_lectura no debe moverse")
		}
	})

	t.Run("PreferencesRoundTrip", func(t *testing.T) {
		prefs, err := prefRepo.Get(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, prefs.SystemEnabled) // defaults when no row exists

		prefs.EmailEnabled = true
		prefs.Digest = true
		interval := 30
		prefs.DigestInterval = &interval
		require.NoError(t, prefRepo.Upsert(ctx, prefs))

		reloaded, err := prefRepo.Get(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, reloaded.EmailEnabled)
		assert.True(t, reloaded.Digest)
	})
}
