package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"sporty/apperrors"
	"sporty/cache"
	"sporty/calendar"
	"sporty/config"
	controller "sporty/controllers"
	"sporty/middleware"
	"sporty/models"
	"sporty/repository"
	"sporty/routes"
	"sporty/services"
	"sporty/utils"
	"sporty/worker"
)

const version = "1.0.0"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	utils.ConfigureLogging(cfg.LogLevel, cfg.LogFormat)
	logger := utils.Logger("main")
	logger.WithFields(cfg.Fields()).Info("configuration loaded")

	if err := utils.InitSentry(cfg.SentryDSN, cfg.Environment, version); err != nil {
		logger.WithError(err).Warn("sentry disabled")
	}
	defer sentry.Flush(2 * time.Second)

	db, err := config.ConnectDB(cfg, utils.Logger("database"))
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if cfg.SeedDemoData {
		if err := models.CreateDemoData(db, time.Now().UTC()); err != nil {
			utils.LogError("demo_seed_failed", err, nil)
		}
	}

	// Redis backs the read cache and the rate limiter when enabled; otherwise
	// both stay in process memory.
	var (
		rdb       *redis.Client
		readCache cache.Cache = cache.NewMemoryCache()
		limiterDB fiber.Storage
	)
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			utils.LogError("redis_unavailable", err, map[string]interface{}{"address": cfg.Redis.Address})
			_ = rdb.Close()
			rdb = nil
		} else {
			readCache = cache.NewRedisCache(rdb, "sporty:cache:")
			limiterDB = middleware.NewRedisStorage(rdb, "sporty:limiter:")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := repository.New(db)

	mailer := utils.NewMailer(cfg.MailerConfig(), cfg.Location())
	notifications := worker.NewNotificationWorker(mailer, cfg.NotificationQueueSize, utils.Logger("worker"))
	pushKey := ""
	if push := cfg.PushConfig(); push.Enabled() {
		notifications.WithPush(utils.NewPusher(push), store.PushSubscriptions)
		pushKey = push.PublicKey
	}
	go notifications.Start(ctx)

	teams := services.NewTeamService(store, readCache, utils.Logger("services"))
	hub := controller.NewHub(teams, utils.Logger("controllers"))

	var source services.MembershipSource
	if cfg.MembershipAPIURL != "" {
		source = utils.NewMembershipClient(cfg.MembershipAPIURL)
	}

	svcLog := utils.Logger("services")
	events := services.NewEventService(store, readCache, notifications, hub, nil, cfg.PublicURL, svcLog)
	registrations := services.NewRegistrationService(store, readCache, cfg.CacheTTL, hub, nil, svcLog)
	attendance := services.NewAttendanceService(store, readCache, cfg.CacheTTL, svcLog)
	memberships := services.NewMembershipService(store, source, readCache, svcLog)
	settings := services.NewNotificationService(store, notifications, pushKey, cfg.PublicURL, svcLog)
	accounts := services.NewUserService(store, svcLog)

	engine := calendar.NewEngine(cfg.CalendarConfig())
	coordinator := calendar.NewCoordinator(events, hub, cfg.Location(), utils.Logger("calendar"))

	ctrlLog := utils.Logger("controllers")
	app := fiber.New(fiber.Config{
		AppName:      "sporty",
		ErrorHandler: errorHandler,
	})
	app.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins...)))

	routes.SetupRoutes(app, routes.Handlers{
		Users:            store.Users,
		JWTSecret:        cfg.JWTSecret,
		NotifyRateLimit:  cfg.NotifyRateLimit,
		RateLimitStorage: limiterDB,
		Events:           controller.NewEventController(events, ctrlLog),
		Registrations:    controller.NewRegistrationController(registrations, attendance, ctrlLog),
		Teams:            controller.NewTeamController(teams, ctrlLog),
		Memberships:      controller.NewMembershipController(memberships, ctrlLog),
		Attendance:       controller.NewAttendanceController(attendance, teams, ctrlLog),
		Calendar:         controller.NewCalendarController(events, teams, engine, coordinator, nil, ctrlLog),
		Notifications:    controller.NewNotificationController(settings, ctrlLog),
		Accounts:         controller.NewUserController(accounts, ctrlLog),
		Hub:              hub,
		Health:           controller.NewHealthController(db, rdb, version),
	}, utils.Logger("routes"))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": version,
		})
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down")
		cancel()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			utils.LogError("shutdown_failed", err, nil)
		}
	}()

	logger.Infof("Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}

	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// errorHandler renders errors that escape the handlers, such as unknown
// routes, in the same JSON shape as handled ones.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return utils.ErrorResponse(c, fe.Code, fe.Message, nil)
	}
	return utils.HandleError(c, apperrors.Internal("internal server error", err))
}
