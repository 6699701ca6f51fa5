package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/example/skinoai/internal/config"
	"github.com/example/skinoai/internal/handlers"
	"github.com/example/skinoai/internal/logging"
	"github.com/example/skinoai/internal/metrics"
	"github.com/example/skinoai/internal/predictor"
	"github.com/example/skinoai/internal/usecase"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Println(err)
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	server := newServer(cfg, logger, prometheus.NewRegistry())

	logger.Info("SkinOAI gateway listening",
		zap.String("addr", cfg.Listen),
		zap.String("version", config.AppVersion),
	)
	if err := serve(server, nil, nil, cfg.ShutdownTimeout, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newServer(cfg *config.Config, logger *zap.Logger, reg *prometheus.Registry) *http.Server {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	client := predictor.NewClient(cfg.BackendURLs, logger,
		predictor.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		predictor.WithPaths(cfg.PredictPath, cfg.PingPath),
		predictor.WithObserver(m),
	)
	uc := usecase.NewAnalysisUseCase(client, m, logger)
	logger.Info("prediction client ready", zap.Strings("backends", client.Endpoints()))

	probeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if !client.CheckHealth(probeCtx) {
		logger.Warn("no backend reachable at startup; analyze requests will fail until one is up")
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), handlers.RequestLogger(logger.Named("http")))
	handlers.RegisterRoutes(r, uc, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), cfg.MaxBodyBytes)

	handleCORS := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept"},
	}).Handler

	return &http.Server{
		Addr:              cfg.Listen,
		Handler:           handleCORS(r),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// serve runs server on listener, or on server.Addr when listener is nil, until
// it fails or stop delivers a signal. In-flight analyses get grace to finish.
func serve(server *http.Server, listener net.Listener, stop <-chan os.Signal, grace time.Duration, logger *zap.Logger) error {
	if listener == nil {
		ln, err := net.Listen("tcp", server.Addr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", server.Addr, err)
		}
		listener = ln
	}
	if stop == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(ch)
		stop = ch
	}

	served := make(chan error, 1)
	go func() { served <- server.Serve(listener) }()

	select {
	case err := <-served:
		return err
	case sig, ok := <-stop:
		if ok {
			logger.Info("draining in-flight analyses", zap.Stringer("signal", sig), zap.Duration("grace", grace))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("drain: %w", err)
	}
	if err := <-served; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
