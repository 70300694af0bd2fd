package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/clinica-estetica/turnos/libs/auth"
	"github.com/clinica-estetica/turnos/libs/cli"
	"github.com/clinica-estetica/turnos/libs/config"
	"github.com/clinica-estetica/turnos/libs/httpx"
	otelx "github.com/clinica-estetica/turnos/libs/otel"
	"github.com/clinica-estetica/turnos/libs/runtime"
)

func main() {
	root := cli.NewRoot("gateway-service", "Edge proxy for the turnos services")
	root.RunE = func(cmd *cobra.Command, _ []string) error {
		return run(cli.Source(cmd))
	}
	cli.Execute(root)
}

func run(src *config.Source) error {
	service := src.String("SERVICE_NAME", "gateway-service")
	port, err := src.Port("PORT", "8080")
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

	up, err := parseUpstreams(
		src.String("AUTH_URL", "http://auth-service:8081"),
		src.String("BOOKING_URL", "http://booking-service:8083"),
		src.String("NOTIFICATION_URL", ""),
	)
	if err != nil {
		return err
	}
	secret, err := src.RequiredString("JWT_SECRET")
	if err != nil {
		return err
	}
	verifier, err := auth.NewSigner(secret, src.String("JWT_ISSUER", "turnos-auth"), 0)
	if err != nil {
		return fmt.Errorf("jwt: %w", err)
	}

	perMinute, err := src.Int("RATE_LIMIT_PER_MINUTE", 60)
	if err != nil {
		return err
	}
	var limiter httpx.Limiter = httpx.NewMemoryLimiter(perMinute, time.Minute)
	if addr := src.String("REDIS_ADDR", ""); addr != "" {
		redisDB, err := src.Int("REDIS_DB", 0)
		if err != nil {
			return err
		}
		rdb := redis.NewClient(&redis.Options{Addr: addr, Password: src.String("REDIS_PASSWORD", ""), DB: redisDB})
		defer func() { _ = rdb.Close() }()
		limiter = httpx.NewRedisLimiter(rdb, perMinute, time.Minute, src.String("RATE_LIMIT_PREFIX", "turnos:gw:"))
		logger.Info("rate limiting enabled (redis)", "per_minute", perMinute, "redis_addr", addr)
	}
	public := httpx.RateLimit(limiter, logger, src.Bool("RATE_LIMIT_FAIL_OPEN", true))

	mux := runtime.NewBaseMuxWithReady()
	registerRoutes(mux, up, verifier, public)

	timeout, err := src.Duration("REQUEST_TIMEOUT", 15*time.Second)
	if err != nil {
		return err
	}
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.AdminCORSPolicy(src.List("CORS_ALLOWED_ORIGINS", ""))),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(timeout),
	)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           otelhttp.NewHandler(handler, "gateway"),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return runtime.Serve(ctx, srv, logger, 10*time.Second)
}
