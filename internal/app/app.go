package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tripcatalog/internal/config"
	"tripcatalog/internal/database"
	"tripcatalog/internal/handlers"
	"tripcatalog/internal/repositories"
	"tripcatalog/internal/services"
	"tripcatalog/internal/storage"
	"tripcatalog/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// BodyLimit fits a full upload batch plus multipart overhead.
const BodyLimit = storage.MaxBatchFiles*storage.MaxFileSize + 1<<20

// App is the assembled catalog server.
type App struct {
	Fiber   *fiber.App
	Auth    *services.AuthService
	Catalog *services.CatalogService
	Assets  *storage.LocalStore

	db     *gorm.DB
	events *rabbitmq.Client
	log    *logrus.Logger
}

// New connects the database, the asset store and, when configured, RabbitMQ,
// and registers every route. The caller owns the returned App and must Close it.
func New(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*App, error) {
	db, err := database.Connect(cfg.DatabaseDSN, log)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		closeDB(db)
		return nil, err
	}

	a := &App{db: db, log: log}

	var publisher services.EventPublisher
	if cfg.EventsEnabled() {
		a.events, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Queue: cfg.RabbitMQQueue}, log)
		if err != nil {
			closeDB(db)
			return nil, fmt.Errorf("failed to initialize RabbitMQ client: %w", err)
		}
		publisher = a.events
	} else {
		log.Info("RABBITMQ_URL not set, destination events disabled")
	}

	// --- Repositories ---
	destinationRepo := repositories.NewGORMDestinationRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)

	// --- Services ---
	a.Assets = storage.NewLocalStore(cfg.UploadDir, cfg.UploadURLPrefix, log)
	a.Auth = services.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL, log)
	gate := services.NewGate(a.Auth)
	a.Catalog = services.NewCatalogService(destinationRepo, a.Assets, gate, publisher, log)

	if cfg.BootstrapAdmin() {
		if err := a.Auth.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			a.Close()
			return nil, err
		}
	}

	// --- Fiber ---
	a.Fiber = fiber.New(fiber.Config{
		BodyLimit:    BodyLimit,
		ErrorHandler: handlers.ErrorHandler(log),
	})
	a.Fiber.Use(recover.New())
	a.Fiber.Use(logger.New(logger.Config{Output: log.Out}))

	api := a.Fiber.Group("/api")
	handlers.NewAuthHandler(a.Auth, gate, log).RegisterRoutes(api)
	handlers.NewDestinationHandler(a.Catalog, log).RegisterRoutes(api)
	handlers.NewAdminHandler(a.Catalog, gate, log).RegisterRoutes(api)

	a.Fiber.Static(a.Assets.Prefix(), a.Assets.Dir())

	a.Fiber.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
			"events": a.events != nil,
		})
	})

	return a, nil
}

// StartEventConsumer logs every destination event seen on the queue. It is a
// no-op when events are disabled.
func (a *App) StartEventConsumer() error {
	if a.events == nil {
		return nil
	}
	a.log.Info("starting RabbitMQ consumer for destination events")
	return a.events.ConsumeDestinationEvents(rabbitmq.LogEvents(a.log))
}

// Listen serves HTTP on addr until Shutdown.
func (a *App) Listen(addr string) error {
	a.log.WithField("addr", addr).Info("starting server")
	return a.Fiber.Listen(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones up to timeout.
func (a *App) Shutdown(timeout time.Duration) error {
	return a.Fiber.ShutdownWithTimeout(timeout)
}

// Close releases the message broker and database connections.
func (a *App) Close() error {
	var errs []error
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := closeDB(a.db); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
