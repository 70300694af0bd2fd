package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/clinica-estetica/turnos/libs/auth"
	"github.com/clinica-estetica/turnos/libs/cli"
	"github.com/clinica-estetica/turnos/libs/config"
	"github.com/clinica-estetica/turnos/libs/db"
	"github.com/clinica-estetica/turnos/libs/events"
	"github.com/clinica-estetica/turnos/libs/httpx"
	"github.com/clinica-estetica/turnos/libs/kafkax"
	otelx "github.com/clinica-estetica/turnos/libs/otel"
	"github.com/clinica-estetica/turnos/libs/runtime"
	"github.com/clinica-estetica/turnos/services/notification-service/internal/consumer"
	"github.com/clinica-estetica/turnos/services/notification-service/internal/email"
	"github.com/clinica-estetica/turnos/services/notification-service/internal/handlers"
	"github.com/clinica-estetica/turnos/services/notification-service/internal/inbox"
	"github.com/clinica-estetica/turnos/services/notification-service/internal/migrations"
	"github.com/clinica-estetica/turnos/services/notification-service/internal/notify"
	"github.com/clinica-estetica/turnos/services/notification-service/internal/reminders"
	"github.com/clinica-estetica/turnos/services/notification-service/internal/sms"
	"github.com/clinica-estetica/turnos/services/notification-service/internal/storage"
)

func main() {
	root := cli.NewRoot("notification-service", "Client emails and SMS for appointment events")
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Consume appointment events and serve health endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cli.Source(cmd))
		},
	}
	root.AddCommand(serve, cli.MigrateCommand(migrations.FS, migrations.Dir))
	root.RunE = serve.RunE
	cli.Execute(root)
}

func run(src *config.Source) error {
	service := src.String("SERVICE_NAME", "notification-service")
	port, err := src.Port("PORT", "8085")
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

	pool, err := cli.OpenDatabase(ctx, src)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		return err
	}
	defer pool.Close()

	brokers := kafkax.SplitBrokers(src.String("KAFKA_BROKERS", ""))
	if len(brokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}

	mailer, err := mailClient(src)
	if err != nil {
		return err
	}
	text := smsSender(src, logger)
	notifications := storage.NewRepository(pool)
	dispatcher := notify.NewDispatcher(mailer, text, notifications, logger, src.String("CLINIC_NAME", ""))

	if src.Bool("REMINDERS_ENABLED", true) {
		jobs := reminders.NewRepository(pool)
		offset, err := src.Duration("REMINDER_OFFSET", 24*time.Hour)
		if err != nil {
			return err
		}
		loc, err := time.LoadLocation(src.String("CLINIC_TIMEZONE", "America/Argentina/Buenos_Aires"))
		if err != nil {
			return err
		}
		wcfg, err := workerConfig(src)
		if err != nil {
			return err
		}
		dispatcher.WithReminders(jobs, offset, loc)
		go reminders.NewWorker(jobs, mailer, text, notifications, logger, wcfg).Run(ctx)
	}

	backoff, err := src.Duration("CONSUMER_RETRY_BACKOFF", time.Second)
	if err != nil {
		return err
	}
	attempts, err := src.Int("CONSUMER_MAX_ATTEMPTS", 5)
	if err != nil {
		return err
	}
	cfg := consumer.Config{
		Brokers:     brokers,
		GroupID:     src.String("KAFKA_GROUP_ID", "notification-service"),
		Topics:      events.Topics(),
		MaxAttempts: attempts,
		Backoff:     backoff,
	}
	seen := inbox.NewRepository(pool)
	go consumer.New(logger, consumer.NewReader(cfg), seen, cfg, dispatcher.Handle).Run(ctx)

	retention, err := src.Duration("INBOX_RETENTION", 30*24*time.Hour)
	if err != nil {
		return err
	}
	go purgeInbox(ctx, seen, retention, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	if secret := src.String("JWT_SECRET", ""); secret != "" {
		verifier, err := auth.NewSigner(secret, src.String("JWT_ISSUER", "turnos-auth"), 0)
		if err != nil {
			return fmt.Errorf("jwt: %w", err)
		}
		handlers.NewHistoryHandler(notifications, logger).Register(mux, verifier)
	} else {
		logger.Warn("JWT_SECRET not set; delivery history endpoint disabled")
	}
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
	)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           otelhttp.NewHandler(handler, "notification"),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return runtime.Serve(ctx, srv, logger, 10*time.Second)
}

func purgeInbox(ctx context.Context, repo *inbox.Repository, retention time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := repo.PurgeBefore(ctx, now.Add(-retention))
			if err != nil {
				logger.Error("inbox purge failed", "err", err)
			} else if n > 0 {
				logger.Info("inbox purged", "count", n)
			}
		}
	}
}

func workerConfig(src *config.Source) (reminders.WorkerConfig, error) {
	var (
		cfg reminders.WorkerConfig
		err error
	)
	if cfg.Interval, err = src.Duration("REMINDER_INTERVAL", 30*time.Second); err != nil {
		return cfg, err
	}
	if cfg.BatchSize, err = src.Int("REMINDER_BATCH_SIZE", 50); err != nil {
		return cfg, err
	}
	if cfg.Backoff, err = src.Duration("REMINDER_RETRY_BACKOFF", 5*time.Minute); err != nil {
		return cfg, err
	}
	cfg.Lease, err = src.Duration("REMINDER_LEASE", 2*time.Minute)
	return cfg, err
}

func mailClient(src *config.Source) (*email.Client, error) {
	smtpPort, err := src.Int("SMTP_PORT", 1025)
	if err != nil {
		return nil, err
	}
	timeout, err := src.Duration("SMTP_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	return email.New(email.Config{
		Enabled:  src.Bool("EMAIL_ENABLED", true),
		From:     src.String("SMTP_FROM", "turnos@clinica.local"),
		Host:     src.String("SMTP_HOST", "mailpit"),
		Port:     smtpPort,
		Username: src.String("SMTP_USERNAME", ""),
		Password: src.String("SMTP_PASSWORD", ""),
		UseTLS:   src.Bool("SMTP_USE_TLS", false),
		Timeout:  timeout,
	}), nil
}

// smsSender returns nil when SMS_PROVIDER is "none" so no SMS rows are written.
func smsSender(src *config.Source, logger *slog.Logger) sms.Sender {
	switch provider := strings.ToLower(src.String("SMS_PROVIDER", "none")); provider {
	case "webhook":
		timeout, err := src.Duration("SMS_WEBHOOK_TIMEOUT", 5*time.Second)
		if err != nil {
			logger.Warn("invalid SMS_WEBHOOK_TIMEOUT; using default", "err", err)
		}
		return sms.NewWebhookSender(sms.WebhookConfig{
			URL:         src.String("SMS_WEBHOOK_URL", ""),
			Token:       src.String("SMS_WEBHOOK_TOKEN", ""),
			SenderID:    src.String("SMS_SENDER_ID", ""),
			CountryCode: src.String("SMS_COUNTRY_CODE", "54"),
			Timeout:     timeout,
		})
	case "noop":
		return sms.NewNoopSender()
	case "none", "":
		return nil
	default:
		logger.Warn("unknown SMS_PROVIDER; sms disabled", "provider", provider)
		return nil
	}
}
