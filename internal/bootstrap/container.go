package bootstrap

import (
	"context"
	"log"

	"club-hipico-be/internal/config"
	"club-hipico-be/internal/controller"
	"club-hipico-be/internal/handler"
	"club-hipico-be/internal/pkg/logger"
	"club-hipico-be/internal/pkg/mailer"
	"club-hipico-be/internal/repository/implementation"
	"club-hipico-be/internal/repository/memory"
	"club-hipico-be/internal/service"
	"club-hipico-be/internal/websocket"

	pkgNats "club-hipico-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// HTTP surface
	AlertHandler         *handler.AlertHandler
	AlertTypeController  controller.AlertTypeController
	PreferenceController controller.PreferenceController

	// Background workers, started by Start
	Scheduler  service.ISchedulerService
	Dispatcher service.IDispatcherService

	WebSocketHub *websocket.Hub

	cfg    *config.Config
	logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.Email,
		cfg.App.ClientURL,
	)

	// 2. Event bus (in-process dispatch queue)
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS, push notifications leave the process through JetStream
	natsPub, err := pkgNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	pushGateway := pkgNats.NewPushGateway(natsPub)

	// Redis, cross-instance fan-out for the WebSocket hub
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	wsLogger := logger.NewIsolatedLogger("logs/alertas.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 3. Repositories
	alertRepo := implementation.NewAlertRepository(db)
	typeRepo := memory.NewCachedAlertTypeRepository(
		implementation.NewAlertTypeRepository(db),
		cfg.Alert.RegistryCacheTTL,
	)
	deliveryRepo := implementation.NewDeliveryRepository(db)
	prefRepo := implementation.NewPreferenceRepository(db)
	factSource := implementation.NewFactSource(db)

	// 4. Services
	resolver := service.NewRecipientResolver(factSource, sysLogger)

	alertService := service.NewAlertService(
		alertRepo,
		deliveryRepo,
		resolver,
		pubSub,
		cfg.Alert.DispatchTopic,
		cfg.Alert.BellPreviewLimit,
		sysLogger,
	)
	alertTypeService := service.NewAlertTypeService(
		typeRepo,
		alertRepo,
		pubSub,
		cfg.Alert.DispatchTopic,
		sysLogger,
	)
	preferenceService := service.NewPreferenceService(prefRepo)

	scheduler := service.NewSchedulerService(
		typeRepo,
		alertRepo,
		factSource,
		resolver,
		pubSub,
		cfg.Alert.DispatchTopic,
		cfg.Alert.FactTimeout,
		sysLogger,
	)
	dispatcher := service.NewDispatcherService(
		deliveryRepo,
		prefRepo,
		factSource,
		wsHub,
		emailService,
		pushGateway,
		pubSub,
		cfg.Alert.DispatchTopic,
		sysLogger,
	)

	return &Container{
		AlertHandler:         handler.NewAlertHandler(alertService, wsHub, wsLogger),
		AlertTypeController:  controller.NewAlertTypeController(alertTypeService, sysLogger),
		PreferenceController: controller.NewPreferenceController(preferenceService),

		Scheduler:    scheduler,
		Dispatcher:   dispatcher,
		WebSocketHub: wsHub,

		cfg:    cfg,
		logger: sysLogger,
	}
}

// Start launches the background workers: the dispatch consumer, the digest
// flush loop and the scheduler ticks.
func (c *Container) Start(ctx context.Context) {
	go func() {
		if err := c.Dispatcher.Consume(ctx); err != nil {
			c.logger.Error("Bootstrap", "El consumidor de despacho terminó con error", map[string]interface{}{"error": err.Error()})
		}
	}()
	go c.Dispatcher.StartDigestLoop(ctx, c.cfg.Alert.DigestCheckInterval)
	c.Scheduler.Start(ctx, c.cfg.Alert.TickInterval)
}
