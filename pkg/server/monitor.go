package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"MarketLog/internal/handler/api"
	"MarketLog/internal/usecase"
	"MarketLog/pkg/config"
	xhttp "MarketLog/pkg/http"
	applogger "MarketLog/pkg/logger"
	"MarketLog/pkg/metrics"
)

// MonitorApp checks the primary log once, or serves the verdict over HTTP.
type MonitorApp struct {
	cfg      *config.Config
	monitor  *usecase.Monitor
	recorder *metrics.Recorder
	log      *applogger.Logger
}

// NewMonitorApp creates a MonitorApp with all dependencies.
func NewMonitorApp(cfg *config.Config, monitor *usecase.Monitor, recorder *metrics.Recorder, log *applogger.Logger) *MonitorApp {
	return &MonitorApp{cfg: cfg, monitor: monitor, recorder: recorder, log: log}
}

// Check renders the report for path to w and returns the exit code.
func (a *MonitorApp) Check(path string, w io.Writer) int {
	rep, _ := a.monitor.Check(path)
	rep.Render(w)
	return rep.ExitCode
}

// Serve runs the status server until SIGINT/SIGTERM or ctx is done.
func (a *MonitorApp) Serve(ctx context.Context, addr, path string) error {
	srv := xhttp.NewServer(api.NewStatusEchoHandler(a.log, a.monitor, path),
		xhttp.WithAddr(addr),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithRegistry(a.recorder.Registry()),
		xhttp.WithLogger(a.log),
	)
	if err := srv.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var serveErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case serveErr = <-srv.Errors():
	}

	if err := srv.Stop(context.Background()); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	return serveErr
}
