package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"prinprinan-bot/internal/bot"
	"prinprinan-bot/internal/config"
	"prinprinan-bot/internal/flow"
	"prinprinan-bot/internal/pricesync"
	"prinprinan-bot/internal/printing"
	"prinprinan-bot/internal/storage"
	"prinprinan-bot/pkg/api"
	"prinprinan-bot/pkg/logger"
	"prinprinan-bot/pkg/qr"
	"prinprinan-bot/pkg/redis"
)

// ENTRY POINT

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	zapLogger := logger.New(cfg.Log.File, cfg.Log.Production)
	defer zapLogger.Sync()

	ctx, cancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	// Redis is shared by the rate limiter, the price snapshot and the stats cache.
	var (
		limiter  bot.Limiter
		snapshot pricesync.Snapshot
		cache    storage.Cache
	)
	if cfg.Redis.Enabled() {
		redisClient := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx)
		cancelPing()
		if err != nil {
			zapLogger.Warn("Redis unavailable, continuing without it", zap.Error(err))
			redisClient.Close()
		} else {
			defer redisClient.Close()
			limiter, snapshot, cache = redisClient, redisClient, redisClient
		}
	}

	var archive bot.Archive
	if cfg.Database.Enabled() {
		pgStorage, err := storage.NewPostgresStorage(ctx, cfg.Database, cache, zapLogger)
		if err != nil {
			zapLogger.Fatal("Failed to init PostgreSQL storage", zap.Error(err))
		}
		defer pgStorage.Close()

		if err := storage.RunMigrations(ctx, pgStorage.DB(), zapLogger); err != nil {
			zapLogger.Fatal("Failed to run migrations", zap.Error(err))
		}
		archive = pgStorage
	}

	apiClient := api.NewClient(api.Endpoints{
		BackendURL:     cfg.Backend.BaseURL,
		PricingPath:    cfg.Backend.PricingPath,
		PageCountURL:   cfg.Backend.PageCountURL,
		ColorDetectURL: cfg.Backend.ColorDetectURL,
	}, cfg.Backend.Token, cfg.Backend.RequestTimeout, zapLogger)

	table, err := printing.NewTable(printing.Prices{
		BlackWhite: cfg.Pricing.BlackWhite,
		Color:      cfg.Pricing.Color,
		FullColor:  cfg.Pricing.FullColor,
	})
	if err != nil {
		zapLogger.Fatal("Invalid default prices", zap.Error(err))
	}
	syncer := pricesync.New(apiClient, table, snapshot, cfg.Pricing.RefreshInterval, zapLogger)

	sessions := flow.NewMemoryStore(cfg.SessionIdleTTL)

	tgBot, err := bot.New(cfg, limiter, archive, syncer, sessions, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to create bot", zap.Error(err))
	}

	machine, err := flow.New(flow.Deps{
		Store:     sessions,
		Messenger: tgBot,
		Pricing:   printing.NewEngine(table, apiClient, cfg.Pricing.DetectFullColor),
		Pages:     apiClient,
		Orders:    apiClient,
		Codes:     qr.PNG,
		Recorder:  tgBot,
		Logger:    zapLogger,
		Now:       time.Now,
	})
	if err != nil {
		zapLogger.Fatal("Failed to create order flow", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return syncer.Run(gctx) })
	g.Go(func() error { return tgBot.Start(gctx, machine) })

	if err := g.Wait(); err != nil {
		zapLogger.Fatal("Bot stopped with error", zap.Error(err))
	}

	zapLogger.Info("Bot shutdown gracefully")
}
