package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/byPixelTV/TwitchNotifyBot/internal/config"
	"github.com/byPixelTV/TwitchNotifyBot/internal/discord"
	"github.com/byPixelTV/TwitchNotifyBot/internal/keyvalue"
	"github.com/byPixelTV/TwitchNotifyBot/internal/logging"
	"github.com/byPixelTV/TwitchNotifyBot/internal/mongostore"
	"github.com/byPixelTV/TwitchNotifyBot/internal/notify"
	"github.com/byPixelTV/TwitchNotifyBot/internal/server"
	"github.com/byPixelTV/TwitchNotifyBot/internal/twitch"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupMongo(cfg *config.Config) *mongo.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongostore.Connect(ctx, cfg.MongoURI)
	if err != nil {
		slog.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	return client
}

func setupRedis(cfg *config.Config) *keyvalue.Client {
	client, err := keyvalue.NewClient(cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	mongoClient := setupMongo(cfg)
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	kvClient := setupRedis(cfg)
	defer func() { _ = kvClient.Close() }()

	subs := mongostore.NewSubscriptionStore(mongoClient)
	sessions := mongostore.NewLiveSessionStore(mongoClient)
	nameDocs := mongostore.NewNameCacheStore(mongoClient)

	kvStore := keyvalue.NewStore(kvClient)
	pubsub := keyvalue.NewPubSub(kvClient)
	watchdog := keyvalue.NewWatchdog(kvClient, clock, cfg.WatchdogInterval)

	helixClient, err := twitch.NewHelixClient(context.Background(), cfg.TwitchClientID, cfg.TwitchClientSecret, clock)
	if err != nil {
		slog.Error("Failed to create Twitch client", "error", err)
		os.Exit(1)
	}

	session, err := discord.NewSession(cfg.DiscordToken)
	if err != nil {
		slog.Error("Failed to open Discord session", "error", err)
		os.Exit(1)
	}
	defer func() { _ = session.Close() }()
	chat := discord.NewAdapter(session)

	nameCache := notify.NewNameCache(kvStore, nameDocs, subs, helixClient, pubsub, cfg.EventChannel)
	if err := nameCache.Warm(context.Background()); err != nil {
		slog.Warn("Failed to warm name cache", "error", err)
	}

	tracker := notify.NewLiveTracker(kvStore, subs, sessions, chat, helixClient, nameCache, pubsub, cfg.EventChannel, clock)
	reconciler := notify.NewMessageReconciler(subs, sessions, chat, helixClient, pubsub, cfg.EventChannel, clock)
	rebuild := notify.NewNameCacheRebuild(nameCache)

	runCtx, stopTasks := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		watchdog.Run(runCtx)
	}()

	schedulers := []*notify.Scheduler{
		notify.NewScheduler(tracker, cfg.TrackerInterval, clock),
		notify.NewScheduler(reconciler, cfg.ReconcilerInterval, clock),
		notify.NewScheduler(rebuild, cfg.RebuildInterval, clock),
	}
	for _, s := range schedulers {
		wg.Add(1)
		go func(s *notify.Scheduler) {
			defer wg.Done()
			s.Run(runCtx)
		}(s)
	}

	srv := server.NewServer(cfg, kvClient, mongostore.NewHealthChecker(mongoClient))

	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		stopTasks()
		wg.Wait()

		close(done)
	}()

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
