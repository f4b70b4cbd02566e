package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"recipe-gateway/api"
	"recipe-gateway/config"
	"recipe-gateway/logging"
	"recipe-gateway/middleware/ratelimit"
	"recipe-gateway/middleware/ratelimit/domain"
	"recipe-gateway/middleware/ratelimit/infra"
	"recipe-gateway/recipe"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("config error")
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat, "recipe-gateway", version)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = logger.WithContext(ctx)

	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("quota store init failed")
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	quotaStats := infra.NewMemoryStatsStore()
	stats := infra.MultiStats{quotaStats, infra.NewPromStatsStore(reg)}
	if cfg.Stats.Enabled {
		rdb, err := dialRedis(ctx, cfg.Stats.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis stats ping error")
		}
		defer func() { _ = rdb.Close() }()
		stats = append(stats, infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.Stats.Prefix),
			infra.WithStatsTTL(cfg.Stats.TTL),
			infra.WithStatsBucket(cfg.Stats.Bucket),
			infra.WithStatsTrackKeys(cfg.Stats.TrackKeys),
		))
	}

	prompt := recipe.DefaultPrompt()
	if cfg.Provider.PromptFile != "" {
		prompt, err = recipe.LoadPromptFile(cfg.Provider.PromptFile)
		if err != nil {
			logger.Fatal().Err(err).Str("file", cfg.Provider.PromptFile).Msg("prompt load failed")
		}
	}

	gen := &recipe.Generator{
		Provider: &recipe.OpenAIProvider{
			Client:      &http.Client{Timeout: 60 * time.Second},
			BaseURL:     cfg.Provider.BaseURL,
			APIKey:      cfg.Provider.APIKey,
			Model:       cfg.Provider.Model,
			Temperature: cfg.Provider.Temperature,
			MaxTokens:   cfg.Provider.MaxTokens,
		},
		Prompt: prompt,
	}
	if cfg.Provider.RPS > 0 {
		gen.Pacer = rate.NewLimiter(rate.Limit(cfg.Provider.RPS), cfg.Provider.Burst)
	}

	router := api.NewRouter(api.Options{
		Store:         store,
		Stats:         stats,
		Generator:     gen,
		TrustedHeader: cfg.TrustedHeader,
		Location:      cfg.Location,
		Concurrency: ratelimit.ConcurrencyOptions{
			Max:            cfg.Provider.ConcurrencyMax,
			RejectStatus:   http.StatusServiceUnavailable,
			AcquireTimeout: cfg.Provider.ConcurrencyTimeout,
		},
		Logger:  logger,
		Metrics: api.NewMetrics(reg),
	})

	servers := []*http.Server{newServer(cfg.ListenAddr, router)}
	if cfg.MetricsAddr != "" {
		servers = append(servers, newServer(cfg.MetricsAddr, api.MetricsHandler(reg, quotaStats)))
	}

	logger.Info().
		Str("listen", cfg.ListenAddr).
		Str("metrics", cfg.MetricsAddr).
		Str("store", cfg.Store.Backend).
		Bool("stats_redis", cfg.Stats.Enabled).
		Str("model", cfg.Provider.Model).
		Float64("provider_rps", cfg.Provider.RPS).
		Int("concurrency_max", cfg.Provider.ConcurrencyMax).
		Msg("recipe gateway starting")

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		var errList []error
		for _, srv := range servers {
			errList = append(errList, srv.Shutdown(shutdownCtx))
		}
		return errors.Join(errList...)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
	logger.Info().Msg("recipe gateway stopped")
}

func newServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// geração pode levar dezenas de segundos no provider
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  90 * time.Second,
	}
}

func dialRedis(ctx context.Context, rc config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// openStore escolhe o backend da cota. O closer nunca é nil.
func openStore(ctx context.Context, sc config.StoreConfig) (domain.QuotaStore, func(), error) {
	switch sc.Backend {
	case config.BackendRedis:
		rdb, err := dialRedis(ctx, sc.Redis)
		if err != nil {
			return nil, func() {}, err
		}
		return infra.NewRedisStore(rdb, infra.WithKeyPrefix(sc.KeyPrefix)), func() { _ = rdb.Close() }, nil

	case config.BackendSQLite:
		db, err := gorm.Open(sqlite.Open(sc.SQLitePath), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			return nil, func() {}, err
		}
		closer := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		store, err := infra.NewSQLStore(db, infra.WithSQLKeyPrefix(sc.KeyPrefix))
		if err != nil {
			closer()
			return nil, func() {}, err
		}
		go purgeLoop(ctx, store, sc.CleanupEvery)
		return store, closer, nil

	default:
		store := infra.NewMemoryStore(infra.WithCleanupEvery(sc.CleanupEvery))
		store.StartJanitor(ctx)
		return store, func() {}, nil
	}
}

func purgeLoop(ctx context.Context, store *infra.SQLStore, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := store.Purge(ctx); err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Msg("sqlite purge failed")
			}
		}
	}
}
