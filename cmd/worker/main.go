package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/hibiken/asynq"
	redis "github.com/redis/go-redis/v9"

	"github.com/glowdesk/backend-salon/internal/common"
	"github.com/glowdesk/backend-salon/internal/config"
	"github.com/glowdesk/backend-salon/internal/obs"
	"github.com/glowdesk/backend-salon/internal/receipt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	obs.MustRegisterDomainMetrics(envOrDefault("OBS_METRICS_NAMESPACE", "salon"), nil)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     redisOpts.Addr,
			Password: redisOpts.Password,
			DB:       redisOpts.DB,
		},
		asynq.Config{
			Concurrency: envInt("WORKER_CONCURRENCY", 5),
			Queues: map[string]int{
				cfg.ReceiptQueue: 5,
				"default":        1,
			},
		},
	)

	var mailer common.EmailSender = common.NopEmailSender{}
	if cfg.SMTPAddr != "" {
		logger.Info().Str("smtp_addr", cfg.SMTPAddr).Msg("smtp configured")
		// TODO: swap the nop sender for an SMTP sender once credentials land.
	}

	deliverer := receipt.Handler{Mailer: mailer, Logger: logger}

	mux := asynq.NewServeMux()
	mux.HandleFunc(receipt.TaskDeliver, deliverer.HandleDeliver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		srv.Shutdown()
	}()

	logger.Info().Str("queue", cfg.ReceiptQueue).Msg("worker starting")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped with error")
	}
	logger.Info().Msg("worker shutdown complete")
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}
