package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/notify-api/internal/config"
	"github.com/jwalitptl/notify-api/internal/provider"
	"github.com/jwalitptl/notify-api/internal/repository/postgres"
	"github.com/jwalitptl/notify-api/internal/service/channel"
	"github.com/jwalitptl/notify-api/internal/service/dispatch"
	"github.com/jwalitptl/notify-api/internal/worker"
	"github.com/jwalitptl/notify-api/pkg/logger"
	"github.com/jwalitptl/notify-api/pkg/messaging/redis"
	"github.com/jwalitptl/notify-api/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// workerEnv is the retry worker's configuration, taken from the
// environment with the NOTIFY prefix (e.g. NOTIFY_DB_HOST).
type workerEnv struct {
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"notify"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	RedisURL string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`

	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM"`

	SMSEndpoint string `envconfig:"SMS_ENDPOINT"`
	SMSAPIKey   string `envconfig:"SMS_API_KEY"`
	SMSSender   string `envconfig:"SMS_SENDER"`

	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`

	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"10s"`
	BatchSize    int           `envconfig:"BATCH_SIZE" default:"50"`
	MetricsPort  string        `envconfig:"METRICS_PORT" default:"8081"`
}

func main() {
	var env workerEnv
	if err := envconfig.Process("notify", &env); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker configuration")
	}

	l := logger.NewLogger(nil)

	db, err := postgres.NewDB(config.DatabaseConfig{
		Host:     env.DBHost,
		Port:     env.DBPort,
		User:     env.DBUser,
		Password: env.DBPassword,
		Name:     env.DBName,
		SSLMode:  env.DBSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{URL: env.RedisURL}, l.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	m := metrics.NewMetrics("notify", "worker")

	base := postgres.NewBaseRepository(db, m)
	userRepo := postgres.NewUserRepository(base)
	notificationRepo := postgres.NewNotificationRepository(base)
	deliveryRepo := postgres.NewDeliveryRepository(base)

	registry := provider.NewRegistry()
	registry.Register(provider.NewEmailProvider(provider.EmailConfig{
		Host:     env.SMTPHost,
		Port:     env.SMTPPort,
		Username: env.SMTPUsername,
		Password: env.SMTPPassword,
		From:     env.SMTPFrom,
	}))
	registry.Register(provider.NewSMSProvider(provider.SMSConfig{
		Endpoint: env.SMSEndpoint,
		APIKey:   env.SMSAPIKey,
		Sender:   env.SMSSender,
	}))
	registry.Register(provider.NewTelegramProvider(provider.TelegramConfig{
		BotToken: env.TelegramBotToken,
	}))

	channelSvc := channel.NewService(registry)
	dispatchSvc := dispatch.NewService(userRepo, notificationRepo, deliveryRepo, channelSvc, broker, m, l)

	processor := worker.NewRetryProcessor(
		deliveryRepo,
		dispatchSvc,
		worker.RetryProcessorConfig{
			PollInterval: env.PollInterval,
			BatchSize:    env.BatchSize,
		},
		l,
		m,
	)

	setupMetricsServer(env.MetricsPort, l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Shutting down...")
		cancel()
	}()

	processor.Start(ctx)
}

func setupMetricsServer(port string, l *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(":"+port, mux); err != nil {
			l.Error(err, "metrics server failed")
			os.Exit(1)
		}
	}()
}
