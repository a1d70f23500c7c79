package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/go-starwars-api/internal/config"
	swhttp "github.com/pribylovaa/go-starwars-api/internal/http"
	"github.com/pribylovaa/go-starwars-api/internal/http/handlers"
	"github.com/pribylovaa/go-starwars-api/internal/metrics"
	logctx "github.com/pribylovaa/go-starwars-api/internal/pkg/log"
	"github.com/pribylovaa/go-starwars-api/internal/ratelimit"
	"github.com/pribylovaa/go-starwars-api/internal/security"
	"github.com/pribylovaa/go-starwars-api/internal/service"
	"github.com/pribylovaa/go-starwars-api/internal/storage"
	"github.com/pribylovaa/go-starwars-api/internal/storage/postgres"
	"github.com/pribylovaa/go-starwars-api/internal/storage/sqlite"
	"github.com/pribylovaa/go-starwars-api/internal/token"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting starwars-api", "env", cfg.Env)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	store, err := openStorage(rootCtx, cfg.DB)
	if err != nil {
		log.Error("storage_init_failed", slog.String("driver", cfg.DB.Driver), slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	log.Info("storage_initialized", slog.String("driver", cfg.DB.Driver))

	signer := token.NewSigner(cfg.Auth.Issuer, cfg.Auth.Audience)
	svc := service.New(store, security.NewBcryptHasher(cfg.Auth.BcryptCost), signer, cfg.Auth)

	if cfg.Admin.Enabled() {
		if err := svc.EnsureAdmin(logctx.Into(rootCtx, log), cfg.Admin.Email, cfg.Admin.Password); err != nil {
			log.Error("admin_bootstrap_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	opts := swhttp.Options{
		Logger:        log,
		Timeout:       cfg.Timeouts.Service,
		Verifier:      svc,
		RefreshCookie: cfg.Cookie.Name,
		Metrics:       m,
	}

	if cfg.Redis.RedisURL != "" {
		limiter, err := ratelimit.NewRedisLimiter(cfg.Redis.RedisURL, "rl:", cfg.RateLimit.LoginLimit, cfg.RateLimit.LoginWindow)
		if err != nil {
			log.Error("redis_init_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}

		defer func() {
			if cerr := limiter.Close(); cerr != nil {
				log.Warn("redis_close_failed", slog.String("err", cerr.Error()))
			}
		}()

		opts.LoginLimiter = limiter
		log.Info("login_rate_limit_enabled",
			slog.Int("limit", cfg.RateLimit.LoginLimit),
			slog.Duration("window", cfg.RateLimit.LoginWindow),
		)
	}

	apiHandler := swhttp.NewRouter(handlers.New(svc, cfg.Cookie, cfg.Auth.RefreshTokenTTL), opts)

	var ready atomic.Bool

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", swhttp.Livez)
	mux.Handle("/healthz", swhttp.Healthz(&ready, store, log))

	mux.Handle("/metrics", promhttp.Handler())

	mux.Handle("/", apiHandler)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	ready.Store(true)
	log.Info("api_ready")

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	ready.Store(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	log.Info("service_stopped")
}

// openStorage открывает хранилище учётных записей выбранного драйвера.
// Для postgres при db.migrate схема накатывается до открытия пула.
func openStorage(ctx context.Context, db config.DBConfig) (storage.Storage, error) {
	switch db.Driver {
	case config.DriverPostgres:
		if db.Migrate {
			if err := postgres.Migrate(db.DatabaseURL); err != nil {
				return nil, err
			}
		}
		return postgres.New(ctx, db.DatabaseURL)
	case config.DriverSQLite:
		return sqlite.New(db.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown db driver %q", db.Driver)
	}
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
