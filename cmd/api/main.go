package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/gatekeepertriage/internal/config"
	"github.com/hamed0406/gatekeepertriage/internal/httpapi"
	apimw "github.com/hamed0406/gatekeepertriage/internal/httpapi/middleware"
	"github.com/hamed0406/gatekeepertriage/internal/logging"
	"github.com/hamed0406/gatekeepertriage/internal/repo/backend"
	"github.com/hamed0406/gatekeepertriage/internal/triage"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("state_open_failed", zap.Error(err))
	}
	defer closeStore()

	svc := triage.NewService(logger, store, nil, cfg.Limit)
	api := httpapi.NewServer(logger, store, svc)
	api.MarksPerMinute = cfg.MarksPerMinute
	api.TrustForwardedFor = cfg.TrustProxy
	keys := apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(keys, cfg.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("api_listen", zap.String("addr", cfg.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("api_listen_failed", zap.Error(err))
	}
}
