package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/geocoder89/credhub/internal/account"
	"github.com/geocoder89/credhub/internal/auth"
	"github.com/geocoder89/credhub/internal/cache"
	"github.com/geocoder89/credhub/internal/config"
	"github.com/geocoder89/credhub/internal/db"
	httpx "github.com/geocoder89/credhub/internal/http"
	"github.com/geocoder89/credhub/internal/http/handlers"
	"github.com/geocoder89/credhub/internal/observability"
	"github.com/geocoder89/credhub/internal/redisclient"
	"github.com/geocoder89/credhub/internal/repo/memory"
	"github.com/geocoder89/credhub/internal/repo/postgres"
	"github.com/geocoder89/credhub/internal/security"
	"github.com/geocoder89/credhub/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName: "credhub",
		Env:         cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	readyChecks := map[string]handlers.Check{}
	var cleanups []func()

	// user store
	var users cache.Users
	switch cfg.StoreDriver {
	case config.StoreMemory:
		log.Warn("using in-memory user store; accounts are lost on restart")
		users = memory.NewUsersRepo()
	default:
		pool, err := db.NewPool(ctx, cfg.DBURL)
		if err != nil {
			log.Error("postgres connect failed", "err", err)
			os.Exit(1)
		}
		cleanups = append(cleanups, pool.Close)

		migrateCtx, cancel := config.WithTimeout(30 * time.Second)
		err = db.Migrate(migrateCtx, pool)
		cancel()
		if err != nil {
			log.Error("migrations failed", "err", err)
			os.Exit(1)
		}

		readyChecks["postgres"] = pool.Ping
		users = postgres.NewUsersRepo(pool, prom)
	}

	// identity cache: redis when configured, process memory otherwise
	var backend cache.Backend
	if cfg.RedisAddr != "" {
		rc := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		cleanups = append(cleanups, func() { _ = rc.Close() })
		readyChecks["redis"] = rc.Ping
		backend = cache.NewRedis(rc.Raw(), cfg.UserCacheTTL)
	} else {
		backend = cache.NewMemory(cfg.UserCacheTTL)
	}
	users = cache.NewCachedUsers(users, backend, log, prom)

	hasher, err := security.NewHasher(cfg.PasswordHasher, cfg.BcryptCost)
	if err != nil {
		log.Error("password hasher", "err", err)
		os.Exit(1)
	}

	tokens, err := auth.NewManager(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		log.Error("token manager", "err", err)
		os.Exit(1)
	}

	var shuttingDown atomic.Bool

	accounts, err := account.NewService(users, hasher, tokens, log, account.WithMetrics(prom))
	if err != nil {
		log.Error("account service", "err", err)
		os.Exit(1)
	}

	// set up routers with the log
	router := httpx.NewRouter(httpx.Deps{
		Log:          log,
		Cfg:          cfg,
		Accounts:     accounts,
		Tokens:       tokens,
		Cookies:      session.NewPolicy(cfg.IsProduction(), cfg.SessionTTL),
		Prom:         prom,
		Gatherer:     reg,
		ReadyChecks:  readyChecks,
		ShuttingDown: shuttingDown.Load,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver, "hasher", cfg.PasswordHasher)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	shuttingDown.Store(true)
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}

		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}

	closeAll(log, cleanups)
}

func closeAll(log *slog.Logger, cleanups []func()) {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	log.Info("resources released")
}
