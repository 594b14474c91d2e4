package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/analytics"
	"github.com/ukydev/fleet-maintenance/internal/auth"
	"github.com/ukydev/fleet-maintenance/internal/config"
	"github.com/ukydev/fleet-maintenance/internal/db"
	"github.com/ukydev/fleet-maintenance/internal/handlers"
	"github.com/ukydev/fleet-maintenance/internal/history"
	"github.com/ukydev/fleet-maintenance/internal/middleware"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"github.com/ukydev/fleet-maintenance/internal/notify"
)

// newRouter mounts the insight routes behind authentication, the Admin/Operator role
// gate and the per-IP rate limit. /health and /metrics stay open.
func newRouter(insights *handlers.InsightsHandler, authService *auth.Service, limiter *middleware.RateLimitMiddleware, cfg config.ServerConfig) http.Handler {
	authMW := middleware.NewAuthMiddleware(authService)
	protect := func(h http.HandlerFunc) http.Handler {
		gated := authMW.RequireAnyRole(models.RoleAdmin, models.RoleOperator)(h)
		return limiter.RateLimit(cfg.RateLimit, cfg.RateLimitWindow)(authMW.Authenticate(gated))
	}

	mux := http.NewServeMux()
	mux.Handle("/api/ai/maintenance", protect(insights.Maintenance))
	mux.Handle("/api/ai/patterns", protect(insights.Patterns))
	mux.Handle("/api/ai/alerts", protect(insights.Alerts))
	mux.Handle("/api/ai/predictions", protect(insights.Predictions))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthHandler)
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func newPublisher(ctx context.Context, cfg config.NotifyConfig) (notify.Publisher, error) {
	switch cfg.Backend {
	case config.NotifyMQTT:
		p, err := notify.NewMQTTPublisher(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopic)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.NotifyRedis:
		p, err := notify.NewRedisPublisher(ctx, cfg.RedisURL, cfg.RedisChannel)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.NotifyNone, "":
		return notify.NopPublisher{}, nil
	default:
		return nil, fmt.Errorf("unknown notify backend %q", cfg.Backend)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	store, closeStore, err := db.Open(ctx, cfg.History.Options())
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer closeStore(context.Background())

	publisher, err := newPublisher(ctx, cfg.Notify)
	if err != nil {
		return fmt.Errorf("failed to create notifier: %w", err)
	}
	defer publisher.Close()

	authService, err := auth.NewService(cfg.Auth.Secret, cfg.Auth.Expiry)
	if err != nil {
		return err
	}

	service := analytics.NewService(history.NewReader(store), cfg.Analytics)
	router := newRouter(handlers.NewInsightsHandler(service, publisher), authService, middleware.NewRateLimitMiddleware(), cfg.Server)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"port":    cfg.Server.Port,
			"history": cfg.History.Backend,
			"notify":  cfg.Notify.Backend,
		}).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	log.SetLevel(cfg.LogLevel)
	log.SetFormatter(&log.JSONFormatter{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
}
