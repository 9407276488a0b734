package metrics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Recorder implements domain.repository.Metrics using Prometheus. It owns a
// private registry so a one-shot process can flush exactly its own series.
type Recorder struct {
	registry *prometheus.Registry

	attempts     *prometheus.CounterVec
	assetOK      *prometheus.GaugeVec
	lastPrice    *prometheus.GaugeVec
	anomalies    *prometheus.CounterVec
	quarantines  *prometheus.CounterVec
	sinkErrors   *prometheus.CounterVec
	runDuration  prometheus.Histogram
	monitorState *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketlog_fetch_assets_total",
				Help: "Assets resolved or left unresolved per fetch attempt",
			},
			[]string{"phase", "result"},
		),
		assetOK: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketlog_asset_ok",
				Help: "1 when the asset resolved in the last run",
			},
			[]string{"asset"},
		),
		lastPrice: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketlog_last_price",
				Help: "Last resolved value for an asset",
			},
			[]string{"asset"},
		),
		anomalies: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketlog_anomalies_total",
				Help: "Deviation anomalies flagged by the fetcher",
			},
			[]string{"asset"},
		),
		quarantines: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketlog_log_quarantines_total",
				Help: "Log files moved aside by the schema guard",
			},
			[]string{"reason"},
		),
		sinkErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketlog_sink_errors_total",
				Help: "Failed best-effort run publications",
			},
			[]string{"sink"},
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "marketlog_run_duration_seconds",
				Help:    "Wall time of one collector run",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		monitorState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketlog_monitor_asset_status",
				Help: "Monitor verdict for the latest row, 1 when the condition holds",
			},
			[]string{"asset", "condition"},
		),
	}
}

// Registry exposes the private registry for /metrics handlers.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) RecordAttempt(phase string, ok, failed int) {
	r.attempts.WithLabelValues(phase, "ok").Add(float64(ok))
	r.attempts.WithLabelValues(phase, "failed").Add(float64(failed))
}

func (r *Recorder) RecordAssetResult(asset string, ok bool, value float64) {
	if !ok {
		r.assetOK.WithLabelValues(asset).Set(0)
		return
	}
	r.assetOK.WithLabelValues(asset).Set(1)
	r.lastPrice.WithLabelValues(asset).Set(value)
}

func (r *Recorder) RecordAnomaly(asset string) {
	r.anomalies.WithLabelValues(asset).Inc()
}

func (r *Recorder) RecordQuarantine(reason string) {
	r.quarantines.WithLabelValues(reason).Inc()
}

func (r *Recorder) RecordSinkError(sink string) {
	r.sinkErrors.WithLabelValues(sink).Inc()
}

func (r *Recorder) RecordRunDuration(seconds float64) {
	r.runDuration.Observe(seconds)
}

func (r *Recorder) RecordMonitorStatus(asset string, missing, anomalous bool) {
	r.monitorState.WithLabelValues(asset, "missing").Set(boolGauge(missing))
	r.monitorState.WithLabelValues(asset, "anomalous").Set(boolGauge(anomalous))
}

// WriteTextfile writes the registry for the node-exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create textfile dir: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write textfile: %w", err)
	}
	return nil
}

// Push sends the registry to a Pushgateway, replacing the job's previous group.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("pushgateway: %w", err)
	}
	return nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
