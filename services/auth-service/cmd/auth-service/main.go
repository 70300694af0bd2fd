package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/clinica-estetica/turnos/libs/auth"
	"github.com/clinica-estetica/turnos/libs/cli"
	"github.com/clinica-estetica/turnos/libs/config"
	"github.com/clinica-estetica/turnos/libs/db"
	"github.com/clinica-estetica/turnos/libs/httpx"
	otelx "github.com/clinica-estetica/turnos/libs/otel"
	"github.com/clinica-estetica/turnos/libs/runtime"
	"github.com/clinica-estetica/turnos/services/auth-service/internal/handlers"
	"github.com/clinica-estetica/turnos/services/auth-service/internal/migrations"
	"github.com/clinica-estetica/turnos/services/auth-service/internal/sessions"
	"github.com/clinica-estetica/turnos/services/auth-service/internal/storage"
)

func main() {
	root := cli.NewRoot("auth-service", "Staff login and token issuance")
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cli.Source(cmd))
		},
	}
	root.AddCommand(serve, cli.MigrateCommand(migrations.FS, migrations.Dir), createUserCmd())
	root.RunE = serve.RunE
	cli.Execute(root)
}

func createUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a staff account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			role, _ := cmd.Flags().GetString("role")
			if email == "" || len(password) < 8 {
				return errors.New("--email and a --password of at least 8 characters are required")
			}
			if role != auth.RoleAdmin && role != auth.RoleStaff {
				return fmt.Errorf("--role must be %s or %s", auth.RoleAdmin, auth.RoleStaff)
			}

			ctx := cmd.Context()
			pool, err := cli.OpenDatabase(ctx, cli.Source(cmd))
			if err != nil {
				return err
			}
			defer pool.Close()

			hash, err := handlers.HashPassword(password)
			if err != nil {
				return err
			}
			user, err := storage.NewUserRepository(pool).Create(ctx, storage.User{
				ID:           uuid.NewString(),
				Email:        email,
				PasswordHash: hash,
				Role:         role,
				Active:       true,
			})
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s user %s (%s)\n", user.Role, user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().String("email", "", "login email")
	cmd.Flags().String("password", "", "initial password")
	cmd.Flags().String("role", auth.RoleStaff, "admin or staff")
	return cmd
}

func run(src *config.Source) error {
	service := src.String("SERVICE_NAME", "auth-service")
	port, err := src.Port("PORT", "8081")
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

	secret, err := src.RequiredString("JWT_SECRET")
	if err != nil {
		return err
	}
	accessTTL, err := src.Duration("JWT_TTL", 8*time.Hour)
	if err != nil {
		return err
	}
	refreshTTL, err := src.Duration("REFRESH_TTL", 30*24*time.Hour)
	if err != nil {
		return err
	}
	signer, err := auth.NewSigner(secret, src.String("JWT_ISSUER", "turnos-auth"), accessTTL)
	if err != nil {
		return fmt.Errorf("jwt: %w", err)
	}

	perMinute, err := src.Int("LOGIN_RATE_LIMIT_PER_MINUTE", 10)
	if err != nil {
		return err
	}
	throttle := httpx.RateLimit(httpx.NewMemoryLimiter(perMinute, time.Minute), logger, true)

	purgeEvery, err := src.Duration("REFRESH_PURGE_INTERVAL", time.Hour)
	if err != nil {
		return err
	}
	refresh := sessions.NewRefreshRepository(pool)
	go purgeExpired(ctx, refresh, purgeEvery, logger)

	mux := runtime.NewBaseMuxWithReady(runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
	handlers.NewAuthHandler(signer, storage.NewUserRepository(pool), refresh, refreshTTL, logger).
		Register(mux, throttle)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.AdminCORSPolicy(src.List("CORS_ALLOWED_ORIGINS", ""))),
		httpx.WithBodyLimit(16<<10),
	)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           otelhttp.NewHandler(handler, "auth"),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return runtime.Serve(ctx, srv, logger, 10*time.Second)
}

func purgeExpired(ctx context.Context, repo *sessions.RefreshRepository, every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := repo.PurgeExpired(ctx, now)
			if err != nil {
				logger.Error("purge refresh tokens failed", "err", err)
				continue
			}
			if n > 0 {
				logger.Info("expired refresh tokens purged", "count", n)
			}
		}
	}
}
