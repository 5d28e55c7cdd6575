package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"tour-booking-webapp/booking"
	"tour-booking-webapp/config"
	"tour-booking-webapp/database"
	"tour-booking-webapp/handlers"
	"tour-booking-webapp/logging"
	"tour-booking-webapp/middleware"
	"tour-booking-webapp/notify"
	"tour-booking-webapp/router"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := database.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Error("cannot close storage", "error", err)
		}
	}()

	sender, err := notify.NewSender(cfg, log)
	if err != nil {
		return err
	}
	retries, closeRetries, err := newRetryQueue(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRetries()

	dispatcher := notify.NewDispatcher(sender, retries, log, notify.DispatcherOptions{
		QueueSize:   cfg.NotifyQueueSize,
		MaxAttempts: cfg.NotifyMaxAttempts,
		RetryEvery:  cfg.NotifyRetryEvery,
	})
	// stopped only after the server has finished in-flight requests
	notifyCtx, stopNotify := context.WithCancel(context.Background())
	defer stopNotify()
	dispatcher.Start(notifyCtx)

	workflow := &booking.Workflow{
		Store:    store,
		Notifier: dispatcher,
		Log:      log,
		Mode:     cfg.CapacityMode,
		From:     cfg.DefaultFromEmail,
	}
	if cfg.CapacityMode == config.CapacityLegacy {
		log.Warn("legacy capacity mode: concurrent bookings can overbook a tour")
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)
	limiter.StartJanitor(ctx)

	app := fiber.New()
	router.SetupRoutes(app, handlers.New(workflow, store, log), limiter.Handler())

	listenErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.ListenAddr, "storage", cfg.StorageDriver, "capacity_mode", cfg.CapacityMode)
		listenErr <- app.Listen(cfg.ListenAddr)
	}()

	select {
	case err := <-listenErr:
		stopNotify()
		dispatcher.Wait()
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Error("server shutdown", "error", err)
	}
	stopNotify()
	dispatcher.Wait()
	return nil
}

// newRetryQueue keeps failed emails in Redis when REDIS_ADDR is set and in
// memory otherwise.
func newRetryQueue(ctx context.Context, cfg config.Config, log *slog.Logger) (notify.RetryQueue, func(), error) {
	if cfg.RedisAddr == "" {
		return notify.NewMemoryRetryQueue(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	_, err := rdb.Ping(pingCtx).Result()
	cancel()
	if err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping error: %w", err)
	}

	log.Info("notification retry queue in redis", "addr", cfg.RedisAddr)
	return notify.NewRedisRetryQueue(rdb, notify.DefaultRedisRetryKey), func() { _ = rdb.Close() }, nil
}
