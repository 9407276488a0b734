package server

import (
	"context"
	"time"

	"MarketLog/internal/usecase"
	"MarketLog/pkg/config"
	applogger "MarketLog/pkg/logger"
	"MarketLog/pkg/metrics"
)

// CollectorApp runs one collection and flushes its metrics.
type CollectorApp struct {
	cfg       *config.Config
	collector *usecase.RunCollector
	recorder  *metrics.Recorder
	log       *applogger.Logger
}

// NewCollectorApp creates a CollectorApp with all dependencies.
func NewCollectorApp(cfg *config.Config, collector *usecase.RunCollector, recorder *metrics.Recorder, log *applogger.Logger) *CollectorApp {
	return &CollectorApp{cfg: cfg, collector: collector, recorder: recorder, log: log}
}

// Run performs the collection and returns the process exit code. Fetch
// failures still exit 0; they are recorded in the log for the monitor.
func (a *CollectorApp) Run(ctx context.Context) int {
	code := 0
	rec, err := a.collector.Run(ctx)
	if err != nil {
		a.log.Error("collection failed", applogger.Error(err))
		code = 1
	} else {
		a.log.Info("collection finished",
			applogger.String("run_id", rec.RunID),
			applogger.Int("ok", rec.OKCount()),
		)
	}

	a.flushMetrics(ctx)

	if err := a.collector.Close(); err != nil {
		a.log.Warn("sink close error", applogger.Error(err))
	}
	return code
}

func (a *CollectorApp) flushMetrics(ctx context.Context) {
	if a.recorder == nil {
		return
	}
	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := a.recorder.WriteTextfile(path); err != nil {
			a.log.Warn("metrics textfile error", applogger.Error(err))
		}
	}
	if url := a.cfg.Metrics.PushgatewayURL; url != "" {
		pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := a.recorder.Push(pctx, url, a.cfg.Metrics.Job); err != nil {
			a.log.Warn("metrics push error", applogger.Error(err))
		}
	}
}
