package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/notify-api/internal/config"
	deliveryHandler "github.com/jwalitptl/notify-api/internal/handler/delivery"
	healthHandler "github.com/jwalitptl/notify-api/internal/handler/health"
	notificationHandler "github.com/jwalitptl/notify-api/internal/handler/notification"
	userHandler "github.com/jwalitptl/notify-api/internal/handler/user"
	"github.com/jwalitptl/notify-api/internal/provider"
	"github.com/jwalitptl/notify-api/internal/repository/postgres"
	"github.com/jwalitptl/notify-api/internal/router"
	"github.com/jwalitptl/notify-api/internal/service/channel"
	"github.com/jwalitptl/notify-api/internal/service/dispatch"
	notificationService "github.com/jwalitptl/notify-api/internal/service/notification"
	userService "github.com/jwalitptl/notify-api/internal/service/user"
	"github.com/jwalitptl/notify-api/pkg/logger"
	"github.com/jwalitptl/notify-api/pkg/messaging/redis"
	"github.com/jwalitptl/notify-api/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	l := logger.NewLogger(nil)

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	m := metrics.NewMetrics("notify", "api")

	// Initialize repositories
	base := postgres.NewBaseRepository(db, m)
	userRepo := postgres.NewUserRepository(base)
	notificationRepo := postgres.NewNotificationRepository(base)
	deliveryRepo := postgres.NewDeliveryRepository(base)

	// Initialize providers
	registry := provider.NewRegistry()
	registry.Register(provider.NewEmailProvider(provider.EmailConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}))
	registry.Register(provider.NewSMSProvider(provider.SMSConfig{
		Endpoint: cfg.SMS.Endpoint,
		APIKey:   cfg.SMS.APIKey,
		Sender:   cfg.SMS.Sender,
		Timeout:  cfg.SMS.Timeout,
	}))
	registry.Register(provider.NewTelegramProvider(provider.TelegramConfig{
		BotToken: cfg.Telegram.BotToken,
		BaseURL:  cfg.Telegram.BaseURL,
		Timeout:  cfg.Telegram.Timeout,
	}))

	// Initialize Redis message broker
	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, l.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	// Initialize services
	channelSvc := channel.NewService(registry)
	dispatchSvc := dispatch.NewService(userRepo, notificationRepo, deliveryRepo, channelSvc, broker, m, l)
	userSvc := userService.NewService(userRepo)
	notificationSvc := notificationService.NewService(notificationRepo, userRepo)

	// Setup router
	r := router.NewRouter(
		router.Config{
			RateLimit:     rate.Limit(cfg.Dispatch.RateLimit),
			RateBurst:     cfg.Dispatch.RateBurst,
			MetricsPrefix: "notify_api",
		},
		healthHandler.NewHandler(db, registry),
		userHandler.NewHandler(userSvc),
		notificationHandler.NewHandler(notificationSvc),
		deliveryHandler.NewHandler(dispatchSvc),
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
