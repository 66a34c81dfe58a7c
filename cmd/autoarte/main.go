package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/autoarte/AutoArte/app/controllers"
	"github.com/autoarte/AutoArte/internal/pkg/auditlog"
	"github.com/autoarte/AutoArte/internal/pkg/cache"
	"github.com/autoarte/AutoArte/internal/pkg/config"
	"github.com/autoarte/AutoArte/internal/pkg/database"
	"github.com/autoarte/AutoArte/internal/pkg/payments"
	"github.com/autoarte/AutoArte/internal/pkg/plancatalog"
	"github.com/autoarte/AutoArte/internal/pkg/router"
	"github.com/autoarte/AutoArte/internal/pkg/subscription"
	"github.com/autoarte/AutoArte/internal/pkg/sweeper"
	"github.com/autoarte/AutoArte/internal/pkg/webhook"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	app, sweepManager, err := newApplication(cfg)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	sweepManager.Start()

	// Graceful shutdown: stop accepting deliveries, then let in-flight
	// transactions and the sweep worker finish.
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("shutting down...")
		sweepManager.Stop()
		if err := app.Shutdown(); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	if err := app.Listen(fmt.Sprintf("%s:%s", cfg.HTTP.Host, cfg.HTTP.Port)); err != nil {
		log.Fatal(err)
	}
}

func newApplication(cfg *config.Config) (*fiber.App, *sweeper.Manager, error) {
	db, err := database.Setup(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	redisClient := cache.Setup(cfg.Redis)

	hotmartToken := payments.NewTokenClient(payments.SourceHotmart,
		cfg.Hotmart.ClientID, cfg.Hotmart.ClientSecret, cfg.Hotmart.TokenURL, redisClient)
	doppusToken := payments.NewTokenClient(payments.SourceDoppus,
		cfg.Doppus.ClientID, cfg.Doppus.ClientSecret, cfg.Doppus.TokenURL, redisClient)

	catalog := plancatalog.New(plancatalog.NewStore(db), redisClient, map[string]plancatalog.ProviderLookup{
		payments.SourceHotmart: payments.NewHotmartCatalogClient(cfg.Hotmart.APIBaseURL, hotmartToken),
		payments.SourceDoppus:  payments.NewDoppusCatalogClient(cfg.Doppus.APIBaseURL, doppusToken),
	})

	audit := auditlog.New(db)
	reconciler := subscription.NewService(db, catalog, cfg.Policy)
	processor := webhook.NewProcessor(webhook.NewEventStore(db), reconciler, audit)

	sweep := sweeper.New(sweeper.NewStore(db), sweeper.NewRedisLocker(redisClient), audit,
		cfg.Sweep.BatchSize, cfg.Sweep.LockTTL)
	sweepManager := sweeper.NewManager(sweep, cfg.Sweep.Interval)

	app := fiber.New(fiber.Config{
		AppName:      "AutoArte",
		ReadTimeout:  cfg.Webhook.Timeout * 2,
		WriteTimeout: cfg.Webhook.Timeout * 2,
	})

	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./docs/openapi.yml",
		Path:     "v1",
	}))

	router.InstallRouter(app, router.Deps{
		Webhooks: controllers.NewWebhookController(processor, audit, cfg),
		Admin:    controllers.NewAdminAuditController(audit, sweepManager),
		Config:   cfg,
	})

	return app, sweepManager, nil
}
