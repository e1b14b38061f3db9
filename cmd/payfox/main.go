package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/ManuelReschke/PayFox/app/controllers"
	"github.com/ManuelReschke/PayFox/internal/pkg/cache"
	"github.com/ManuelReschke/PayFox/internal/pkg/database"
	"github.com/ManuelReschke/PayFox/internal/pkg/env"
	"github.com/ManuelReschke/PayFox/internal/pkg/logger"
	"github.com/ManuelReschke/PayFox/internal/pkg/notifyqueue"
	"github.com/ManuelReschke/PayFox/internal/pkg/payments"
	"github.com/ManuelReschke/PayFox/internal/pkg/paypal"
	"github.com/ManuelReschke/PayFox/internal/pkg/ratelimit"
	"github.com/ManuelReschke/PayFox/internal/pkg/router"
	"github.com/ManuelReschke/PayFox/internal/pkg/statistics"
	"github.com/ManuelReschke/PayFox/internal/pkg/telegram"
)

func main() {
	env.SetupEnvFile()
	if err := logger.Setup(); err != nil {
		fmt.Fprintf(os.Stderr, "logger setup failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := database.Setup()
	if err != nil {
		logger.L().Fatal("database setup failed", zap.Error(err))
	}
	cache.SetupCache()

	repo := payments.NewRepository(db)
	service := payments.NewService(repo)
	stats := statistics.NewEngineFromEnv(repo)
	notifier := telegram.NewNotifierFromEnv()

	queue := notifyqueue.NewQueueFromEnv(cache.GetClient(), notifier)
	queue.Start()
	defer queue.Stop()

	webhook := controllers.NewWebhookController(
		ratelimit.NewLimiterFromEnv(cache.GetClient()),
		paypal.NewClientFromEnv(),
		service,
		stats,
		queue,
	)
	health := controllers.NewHealthController(db)

	app := fiber.New(fiber.Config{
		AppName: env.GetEnv("SERVICE_NAME", "PayFox"),
	})
	app.Use(recover.New(), fiberlogger.New())
	router.InstallRouter(app, router.NewHttpRouter(webhook, health))

	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "0.0.0.0"), env.GetEnv("APP_PORT", "4000"))

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logger.L().Info("shutting down")
		_ = app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}
