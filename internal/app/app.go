package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"netmon/internal/alerts"
	"netmon/internal/config"
	"netmon/internal/models"
	"netmon/internal/monitor"
	"netmon/internal/notifier"
	"netmon/internal/probe"
	"netmon/internal/store"
	"netmon/internal/web"
)

type App struct {
	cfg config.Config
	log *slog.Logger

	store *store.CSV
	loop  *monitor.Loop
	web   *web.Server

	httpSrv *http.Server
}

func New(cfg config.Config, logger *slog.Logger) *App {
	st := store.New(cfg.MetricsPath())

	provider := buildProvider(cfg.Alerts, logger)
	dispatch := alerts.NewDispatcher(cfg.Alerts.Enabled, provider, logger.With("module", "alerts"))

	prober := probe.NewClient(probe.NewSpeedtest, cfg.ProbeTimeout(), logger.With("module", "probe"))

	thresholds := models.Thresholds{
		DownloadSpeed: cfg.Thresholds.DownloadSpeed,
		UploadSpeed:   cfg.Thresholds.UploadSpeed,
		Ping:          cfg.Thresholds.Ping,
		PacketLoss:    cfg.Thresholds.PacketLoss,
	}
	loop := monitor.New(prober, st, dispatch, thresholds, cfg.Interval(), cfg.Jitter(), logger.With("module", "monitor"))

	w := web.NewServer(st, logger.With("module", "web"))

	app := &App{
		cfg:   cfg,
		log:   logger,
		store: st,
		loop:  loop,
		web:   w,
	}
	app.httpSrv = &http.Server{
		Addr:         cfg.General.ListenAddr,
		Handler:      w.Routes(),
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
	}
	return app
}

func buildProvider(cfg config.Alerts, logger *slog.Logger) notifier.Provider {
	switch cfg.Provider {
	case "telegram":
		return notifier.NewTelegram(cfg.Token, cfg.ChatID)
	default:
		logger.Error("unsupported alert provider", "provider", cfg.Provider)
		return nil
	}
}

// Run starts the status server and the monitor loop, and blocks until the
// context is cancelled.
func (a *App) Run(ctx context.Context) error {
	go func() {
		a.log.Info("http server listening", "addr", a.cfg.General.ListenAddr)
		if err := a.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("http server failed", "err", err)
		}
	}()

	a.loop.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.httpSrv.Shutdown(shutdownCtx)
}
