// Package main runs the trading service: the JSON API, the websocket
// trade feed, the session sweeper and the Prometheus metrics endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"humanpad/internal/api"
	"humanpad/internal/clock"
	"humanpad/internal/config"
	"humanpad/internal/curve"
	"humanpad/internal/domain"
	"humanpad/internal/limits"
	"humanpad/internal/logger"
	"humanpad/internal/observability"
	"humanpad/internal/report"
	"humanpad/internal/reputation"
	"humanpad/internal/risk"
	"humanpad/internal/session"
	"humanpad/internal/storage"
	chstore "humanpad/internal/storage/clickhouse"
	"humanpad/internal/storage/memory"
	"humanpad/internal/storage/migrations"
	pgstore "humanpad/internal/storage/postgres"
	redisstore "humanpad/internal/storage/redis"
	"humanpad/internal/verification"
)

const shutdownTimeout = 30 * time.Second

// stores bundles the persistence backends behind the service.
type stores struct {
	activity   storage.ActivityStore
	suspicious storage.SuspiciousUserStore
	events     storage.TradeEventStore
}

func main() {
	// .env is optional; system env vars win.
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("HUMANPAD_CONFIG"), "Path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, cleanup, err := buildStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to create stores", zap.Error(err))
	}
	defer cleanup()

	clk := clock.System{}
	sessions := session.NewStore(clk, st.suspicious, log)
	calc := limits.NewCalculator()

	// Validate() already checked the level name.
	minLevel, _ := domain.ParseVerificationLevel(cfg.Risk.MinVerificationLevel)
	riskEngine := risk.NewEngine(sessions, calc, clk, minLevel, log)

	engine := curve.NewEngine(cfg.CurveDomain(), riskEngine, sessions, st.events, clk, log)

	feed := api.NewFeedHub(log)
	engine.SetNotifier(feed)

	server := api.NewServer(cfg.Server.Addr, api.Deps{
		Classifier: verification.NewClassifier(),
		Reputation: reputation.NewEngine(),
		Limits:     calc,
		Sessions:   sessions,
		Risk:       riskEngine,
		Curve:      engine,
		Reporter:   report.NewReporter(st.activity, st.suspicious, sessions, log),
		Activity:   st.activity,
		Suspicious: st.suspicious,
		Events:     st.events,
		Feed:       feed,
		Clock:      clk,
		CurveCfg:   cfg.CurveDomain(),
	}, log)

	if err := server.Start(ctx); err != nil {
		log.Fatal("failed to start api server", zap.Error(err))
	}

	metricsServer := startMetricsServer(cfg.Server.MetricsAddr, log)

	go runSessionSweeper(ctx, cfg, sessions, st.suspicious, log)

	// Wait for the first signal; a second one forces immediate exit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Info("shutting down", zap.String("signal", sig.String()))
	cancel()

	go func() {
		sig := <-sigCh
		log.Warn("second signal, forcing exit", zap.String("signal", sig.String()))
		os.Exit(1)
	}()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("api server shutdown", zap.Error(err))
	}
	feed.Shutdown(shutdownCtx)
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics server shutdown", zap.Error(err))
	}

	log.Info("shutdown complete")
}

// buildStores wires the persistence layer for the configured backend.
func buildStores(ctx context.Context, cfg config.Config, log *zap.Logger) (*stores, func(), error) {
	switch cfg.Storage.Backend {
	case "memory":
		log.Info("using in-memory storage")
		return &stores{
			activity:   memory.NewActivityStore(),
			suspicious: memory.NewSuspiciousUserStore(),
			events:     memory.NewTradeEventStore(),
		}, func() {}, nil

	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
		}

		st := &stores{
			activity:   pgstore.NewActivityStore(pool),
			suspicious: pgstore.NewSuspiciousUserStore(pool),
			events:     memory.NewTradeEventStore(),
		}
		cleanup := func() { pool.Close() }

		// Trade history goes to ClickHouse when configured; counters
		// stay in Postgres either way.
		if cfg.Storage.ClickhouseDSN != "" {
			conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
			if err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
			}
			st.events = chstore.NewTradeEventStore(conn)
			cleanup = func() {
				conn.Close()
				pool.Close()
			}
			log.Info("using postgres + clickhouse storage")
		} else {
			log.Info("using postgres storage, in-memory trade history")
		}
		return st, cleanup, nil

	case "redis":
		client, err := redisstore.NewClient(ctx, cfg.Storage.RedisAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		log.Info("using redis-backed suspicious set, in-memory counters")
		return &stores{
				activity:   memory.NewActivityStore(),
				suspicious: redisstore.NewSuspiciousUserStore(client, ""),
				events:     memory.NewTradeEventStore(),
			}, func() {
				client.Close()
			}, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// runSessionSweeper evicts idle sessions on the configured interval.
func runSessionSweeper(ctx context.Context, cfg config.Config, sessions *session.Store, suspicious storage.SuspiciousUserStore, log *zap.Logger) {
	ticker := time.NewTicker(cfg.Session.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted := sessions.EvictIdle(cfg.Session.TTL.Minutes())
			if evicted > 0 {
				log.Info("evicted idle sessions", zap.Int("count", evicted))
				observability.RecordSessionsEvicted(evicted)
			}
			count, err := suspicious.Count(ctx)
			if err != nil {
				continue
			}
			observability.UpdateSessionGauges(sessions.Count(), sessions.FlaggedCount(), count)
		}
	}
}

// startMetricsServer serves Prometheus metrics and the liveness probe.
func startMetricsServer(addr string, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("metrics server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", zap.Error(err))
		}
	}()
	return srv
}
