package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/clinica-estetica/turnos/libs/auth"
	"github.com/clinica-estetica/turnos/libs/cli"
	"github.com/clinica-estetica/turnos/libs/config"
	"github.com/clinica-estetica/turnos/libs/db"
	"github.com/clinica-estetica/turnos/libs/httpx"
	"github.com/clinica-estetica/turnos/libs/kafkax"
	otelx "github.com/clinica-estetica/turnos/libs/otel"
	"github.com/clinica-estetica/turnos/libs/outbox"
	"github.com/clinica-estetica/turnos/libs/runtime"
	"github.com/clinica-estetica/turnos/services/booking-service/internal/booking"
	"github.com/clinica-estetica/turnos/services/booking-service/internal/handlers"
	"github.com/clinica-estetica/turnos/services/booking-service/internal/migrations"
	"github.com/clinica-estetica/turnos/services/booking-service/internal/storage"
)

func main() {
	root := cli.NewRoot("booking-service", "Clinic appointment availability and booking API")
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cli.Source(cmd))
		},
	}
	root.AddCommand(serve, cli.MigrateCommand(migrations.FS, migrations.Dir))
	root.RunE = serve.RunE
	cli.Execute(root)
}

func run(src *config.Source) error {
	service := src.String("SERVICE_NAME", "booking-service")
	port, err := src.Port("PORT", "8083")
	if err != nil {
		return err
	}
	logger := runtime.NewLogger(service, runtime.LogOptionsFrom(src))

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(src, service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	loc, err := time.LoadLocation(src.String("CLINIC_TIMEZONE", "America/Argentina/Buenos_Aires"))
	if err != nil {
		return fmt.Errorf("CLINIC_TIMEZONE: %w", err)
	}

	pool, err := cli.OpenDatabase(ctx, src)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		return err
	}
	defer pool.Close()

	if src.Bool("MIGRATE_ON_START", false) {
		n, err := db.NewMigrator(pool, migrations.FS, migrations.Dir).Up(ctx)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations applied", "count", n)
	}

	secret, err := src.RequiredString("JWT_SECRET")
	if err != nil {
		return err
	}
	signer, err := auth.NewSigner(secret, src.String("JWT_ISSUER", "turnos-auth"), 0)
	if err != nil {
		return fmt.Errorf("jwt: %w", err)
	}

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	brokers := kafkax.SplitBrokers(src.String("KAFKA_BROKERS", ""))
	if len(brokers) > 0 {
		writer := kafkax.NewWriter(brokers)
		defer writer.Close()
		publisher := outbox.NewPublisher(pool, writer, logger, outbox.PublisherConfig{
			PollEvery: durationOr(src, "OUTBOX_POLL_INTERVAL", 2*time.Second, logger),
			BatchSize: intOr(src, "OUTBOX_BATCH_SIZE", 50, logger),
		})
		go publisher.Run(ctx)
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	} else {
		logger.Warn("KAFKA_BROKERS not set; booking events stay in the outbox")
	}

	limiter, closeLimiter := publicLimiter(src, logger)
	defer closeLimiter()
	public := httpx.RateLimit(limiter, logger, src.Bool("RATE_LIMIT_FAIL_OPEN", true))

	svc := booking.NewService(storage.NewStore(pool), loc)
	devErrors := strings.EqualFold(src.String("APP_ENV", "production"), "development")

	mux := runtime.NewBaseMuxWithReady(checks...)
	handlers.NewHandler(svc, logger, devErrors).Register(mux, signer, public)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.AdminCORSPolicy(src.List("CORS_ALLOWED_ORIGINS", ""))),
		httpx.WithBodyLimit(int64(intOr(src, "MAX_BODY_BYTES", 64<<10, logger))),
		httpx.WithTimeout(durationOr(src, "REQUEST_TIMEOUT", 10*time.Second, logger)),
	)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           otelhttp.NewHandler(handler, "booking"),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return runtime.Serve(ctx, srv, logger, 10*time.Second)
}

// publicLimiter shares the window across replicas through Redis when
// REDIS_ADDR is set.
func publicLimiter(src *config.Source, logger *slog.Logger) (httpx.Limiter, func()) {
	perMinute := intOr(src, "RATE_LIMIT_PER_MINUTE", 30, logger)
	addr := src.String("REDIS_ADDR", "")
	if addr == "" {
		return httpx.NewMemoryLimiter(perMinute, time.Minute), func() {}
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: src.String("REDIS_PASSWORD", ""),
	})
	return httpx.NewRedisLimiter(rdb, perMinute, time.Minute, "turnos:rl:"), func() { _ = rdb.Close() }
}

func intOr(src *config.Source, key string, fallback int, logger *slog.Logger) int {
	n, err := src.Int(key, fallback)
	if err != nil {
		logger.Warn("invalid integer setting", "key", key, "err", err)
		return fallback
	}
	return n
}

func durationOr(src *config.Source, key string, fallback time.Duration, logger *slog.Logger) time.Duration {
	d, err := src.Duration(key, fallback)
	if err != nil {
		logger.Warn("invalid duration setting", "key", key, "err", err)
		return fallback
	}
	return d
}
