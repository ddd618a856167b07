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

	"github.com/Spok95/spare-stock/internal/config"
	"github.com/Spok95/spare-stock/internal/domain/inventory"
	"github.com/Spok95/spare-stock/internal/domain/reports"
	"github.com/Spok95/spare-stock/internal/domain/users"
	"github.com/Spok95/spare-stock/internal/infra/db"
	httpx "github.com/Spok95/spare-stock/internal/infra/http"
	"github.com/Spok95/spare-stock/internal/infra/logger"
	"github.com/Spok95/spare-stock/internal/infra/metrics"
	"github.com/Spok95/spare-stock/internal/infra/notify"
	"github.com/Spok95/spare-stock/internal/infra/scheduler"
)

type notifier interface {
	inventory.Alerter
	scheduler.Digester
}

func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/example.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)
	loc, err := cfg.Location()
	if err != nil {
		log.Error("bad timezone", "tz", cfg.App.Timezone, "err", err)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		stock    inventory.Store
		accounts users.Store
	)
	switch cfg.Storage.Driver {
	case "postgres":
		if err := db.Migrate(cfg.Postgres.DSN); err != nil {
			log.Error("migrations failed", "err", err)
			return
		}
		log.Info("migrations applied")

		pool, err := db.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			log.Error("db connect failed", "err", err)
			return
		}
		defer pool.Close()
		log.Info("db connected")
		stock, accounts = inventory.NewRepo(pool), users.NewRepo(pool)
	default:
		log.Warn("using in-memory storage, data is lost on restart")
		stock, accounts = inventory.NewMemRepo(), users.NewMemRepo()
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	}

	var n notifier = notify.Nop{}
	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.AdminChatID, log)
		if err != nil {
			log.Error("telegram init failed", "err", err)
			return
		}
		n = tg
	}

	opts := []inventory.Option{
		inventory.WithLogger(log),
		inventory.WithLowStockAlert(n, cfg.Inventory.LowStockThreshold),
	}
	if m != nil {
		opts = append(opts, inventory.WithRecorder(m))
	}
	projector := reports.New(stock, loc)

	if cfg.Telegram.Token != "" && cfg.Reports.DigestCron != "" {
		sched := scheduler.New(cfg.Reports.DigestCron, projector, n, log)
		if err := sched.Start(); err != nil {
			log.Error("scheduler start failed", "err", err)
			return
		}
		defer sched.Stop()
	}

	srv := httpx.New(cfg.HTTP.Addr, httpx.Deps{
		Log:          log,
		Registry:     inventory.NewRegistry(stock, opts...),
		Ledger:       inventory.NewLedger(stock, opts...),
		Reports:      projector,
		Users:        users.NewService(accounts, cfg.Auth.SessionTTL),
		Metrics:      m,
		CORSOrigins:  cfg.HTTP.CORSOrigins,
		SecureCookie: cfg.App.Env == "prod",
	})
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			stop()
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr, "storage", cfg.Storage.Driver)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
