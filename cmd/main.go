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

	"github.com/okian/sackline/internal/adapters/artifactstore"
	"github.com/okian/sackline/internal/adapters/http/api"
	"github.com/okian/sackline/internal/adapters/http/site"
	"github.com/okian/sackline/internal/adapters/http/swagger"
	"github.com/okian/sackline/internal/adapters/repository"
	service "github.com/okian/sackline/internal/app"
	"github.com/okian/sackline/internal/config"
	"github.com/okian/sackline/pkg/logger"
	"github.com/okian/sackline/pkg/metrics"
	"go.uber.org/automaxprocs/maxprocs"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.Get()
	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		log.Info(ctx, fmt.Sprintf(format, args...))
	})); err != nil {
		log.Warn(ctx, "failed to set GOMAXPROCS", logger.Error(err))
	}

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, nil); err != nil {
		log.Error(ctx, "server failed", logger.Error(err))
		os.Exit(1)
	}
}

// run serves until ctx is done. When ln is nil it listens on cfg.Addr.
func run(ctx context.Context, cfg *config.Config, ln net.Listener) error {
	log := logger.Get()

	svc, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	// Scoring workers outlive ctx so requests drained by Shutdown still score.
	if err := svc.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	metrics.SetEnabled(cfg.MetricsEnabled)
	metrics.StartSystemCollector(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if ln != nil {
			log.Info(ctx, "starting HTTP server", logger.String("addr", ln.Addr().String()))
			err = srv.Serve(ln)
		} else {
			log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	svc.Stop(shutdownCtx)
	log.Info(ctx, "server stopped")
	if serveErr != nil {
		return fmt.Errorf("http server: %w", serveErr)
	}
	return nil
}

// newService loads the artifact, opens prediction history and builds the service.
func newService(ctx context.Context, cfg *config.Config) (*service.Service, error) {
	log := logger.Get()
	store := artifactstore.New(artifactstore.WithRegion(cfg.AWSRegion), artifactstore.WithLogger(log.Named("artifactstore")))
	a, err := store.Load(ctx, cfg.ArtifactURI)
	if err != nil {
		return nil, fmt.Errorf("load artifact %s: %w", cfg.ArtifactURI, err)
	}

	history, err := repository.OpenSQLite(ctx, cfg.HistoryPath, repository.WithLogger(log.Named("history")))
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", cfg.HistoryPath, err)
	}

	svc, err := service.New(
		service.WithArtifact(a),
		service.WithHistory(history),
		service.WithLogger(log.Named("service")),
		service.WithWorkerCount(cfg.ScoringWorkers),
		service.WithRetries(cfg.ScoringRetries),
		service.WithPredictTimeout(cfg.PredictTimeout()),
		service.WithMaxHistoryLimit(cfg.MaxHistoryLimit),
	)
	if err != nil {
		_ = history.Close()
		return nil, err
	}
	return svc, nil
}

// newMux registers the docs, landing page and business routes.
func newMux(ctx context.Context, svc *service.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	site.Register(ctx, mux, svc)
	api.NewServer(svc, svc, svc.MaxHistoryLimit()).Register(ctx, mux)
	return mux
}
