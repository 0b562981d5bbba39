package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tictac-server/internal/arena"
	appcfg "tictac-server/internal/config"
	"tictac-server/internal/gateway"
	"tictac-server/internal/notify"
	"tictac-server/internal/obslog"
	"tictac-server/internal/queue"
	"tictac-server/internal/stats"
	"tictac-server/internal/store"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.Init(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = obslog.L().Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	st, err := store.NewFromURL(ctx, cfg.RedisURL)
	cancel()
	if err != nil {
		obslog.L().Fatal("store init error", zap.Error(err))
	}
	defer func() { _ = st.Close() }()

	hub := gateway.NewHub()
	notifiers := notify.Multi{hub}
	if cfg.NotifierURL != "" {
		notifiers = append(notifiers, notify.NewWebhook(cfg.NotifierURL))
	}

	opts := []arena.Option{
		arena.WithNotifier(notifiers),
		arena.WithMaxAttempts(cfg.CommitMaxAttempts),
		arena.WithVoteTTL(cfg.RestartVoteTTL),
	}
	if cfg.DatabaseURL != "" {
		repo, err := stats.NewRepository(cfg.DatabaseURL)
		if err != nil {
			obslog.L().Fatal("stats repo init error", zap.Error(err))
		}
		defer func() { _ = repo.Close() }()
		opts = append(opts, arena.WithStats(repo))
	}

	mgr := arena.NewManager(st, opts...)
	q := queue.NewManager(st.Client(), mgr)
	gw := gateway.NewServer(hub, mgr, q)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		obslog.L().Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			obslog.L().Fatal("http server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	_ = srv.Shutdown(shCtx)
	obslog.L().Info("shutdown complete")
}
