package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/xaenox/botfleet/internal/admission"
	"github.com/xaenox/botfleet/internal/api"
	"github.com/xaenox/botfleet/internal/countstore"
	"github.com/xaenox/botfleet/internal/registry"
	"github.com/xaenox/botfleet/internal/simulator"
	"github.com/xaenox/botfleet/internal/stats"
	"github.com/xaenox/botfleet/internal/storage"
	"github.com/xaenox/botfleet/pkg/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// Initialize logger
	logger, _ := zap.NewProduction()

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", configPath))
	}
	if cfg.Log.Development {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL storage")
		store, err = storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Hourly action counters
	var counts countstore.CountStore
	if cfg.Redis.Enabled {
		logger.Info("Using redis action counters")
		rcs, err := countstore.NewRedisCountStore(cfg.Redis.URL)
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer rcs.Close()
		counts = rcs
	} else {
		counts = countstore.NewMemCountStore()
	}

	opts := simulator.DefaultOptions()
	opts.TickInterval = cfg.Simulator.TickInterval
	opts.MaxActionsPerHour = cfg.Simulator.MaxActionsPerHour
	opts.HourlyCap = cfg.Simulator.HourlyCap
	opts.Seed = cfg.Simulator.Seed
	opts.FollowSuccessProbability = cfg.Simulator.FollowSuccessProbability
	opts.CommentProbability = cfg.Simulator.CommentProbability
	sim := simulator.New(store, counts, opts, logger)

	reg := registry.New(store, sim, admission.Policy{FreeBotLimit: cfg.Plans.FreeMaxBots}, logger)
	agg := stats.NewAggregator(store, cfg.Stats.CostPerInteraction, cfg.Stats.ReportingWindow, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := seedFeed(ctx, store, sim, cfg.Simulator.SeedPosts); err != nil {
		logger.Fatal("Failed to seed feed", zap.Error(err))
	}

	resumed, err := reg.Resume(ctx)
	if err != nil {
		logger.Fatal("Failed to resume bots", zap.Error(err))
	}
	logger.Info("Resumed active bots", zap.Int("count", resumed))

	sim.Start()

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewServer(reg, store, agg, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server running", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		sim.Stop()
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", zap.Error(err))
	}
	logger.Info("Shut down")
}

// seedFeed fills an empty feed with persona posts.
func seedFeed(ctx context.Context, store storage.Storage, sim *simulator.Simulator, n int) error {
	posts, err := store.RecentPosts(ctx, 1)
	if err != nil {
		return err
	}
	if len(posts) > 0 {
		return nil
	}
	return sim.SeedPosts(ctx, n, time.Now())
}
