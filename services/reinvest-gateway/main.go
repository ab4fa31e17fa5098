package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"crp/observability/logging"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		logging.Setup("reinvest-gateway", "", logging.Options{}).Error("config error", "err", err)
		os.Exit(1)
	}
	logger := logging.Setup("reinvest-gateway", cfg.Environment, logging.Options{})

	shutdownTracing, err := setupTracing(cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("tracing setup failed", "err", err)
		os.Exit(1)
	}
	defer shutdownTracing()

	store, err := OpenStore(cfg.DatabasePath)
	if err != nil {
		logger.Error("open store", "path", cfg.DatabasePath, "err", err)
		os.Exit(1)
	}

	auth := NewAuthenticator(cfg.JWTSecret, cfg.RateLimitRPS, cfg.RateLimitBurst)
	node := NewNodeClient(cfg.NodeURL, cfg.NodeAuthToken)
	server := NewServer(auth, node, store, logger)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("reinvest gateway listening", "addr", cfg.ListenAddress)
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", "err", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}
}

// setupTracing installs an OTLP trace exporter when an endpoint is
// configured; otherwise tracing stays on the default no-op provider.
func setupTracing(endpoint string) (func(), error) {
	if endpoint == "" {
		return func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}
	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(ctx)
	}, nil
}
