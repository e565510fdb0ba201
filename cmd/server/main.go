package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/kevencastro7/termo-multiplayer/internal/config"
	"github.com/kevencastro7/termo-multiplayer/internal/httpapi"
	"github.com/kevencastro7/termo-multiplayer/internal/hub"
	"github.com/kevencastro7/termo-multiplayer/internal/words"
)

func main() {
	cfg := config.Load()

	logger := newLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	dict, err := words.Load(cfg.AnswersFile, cfg.AllowedFile)
	if err != nil {
		logger.Fatal("load word lists", zap.Error(err))
	}
	answers, allowed := dict.Stats()
	logger.Info("word lists loaded", zap.Int("answers", answers), zap.Int("allowed", allowed))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := hub.NewHub(ctx, hub.Options{
		Dictionary:  dict,
		Logger:      logger,
		CodeLength:  cfg.RoomCodeLength,
		IdleTimeout: cfg.RoomIdleTimeout,
		SweepEvery:  cfg.SweepInterval,
		MaxPlayers:  cfg.MaxPlayers,
		MaxGuesses:  cfg.MaxGuesses,
		MaxTime:     cfg.MaxTimeLimit,
	})

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(h, logger),
	}

	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	grp.Go(func() error {
		<-gctx.Done()
		h.Inbox() <- hub.ShutdownHub{}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := grp.Wait(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func newLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
