package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"MarketLog/internal/domain/models"
	drepo "MarketLog/internal/domain/repository"
	"MarketLog/pkg/logger"
	"MarketLog/pkg/util"
)

// NewRunID returns a sortable, collision-resistant run identifier such as
// "20240301T000000Z-1f0c9a2b".
func NewRunID(t time.Time) string {
	return t.UTC().Format("20060102T150405Z") + "-" + uuid.NewString()[:8]
}

// CollectorOption configures RunCollector.
type CollectorOption func(*RunCollector)

// RunCollector performs one collection run: probe, fetch, log, mirror.
type RunCollector struct {
	catalog  *models.AssetCatalog
	fetcher  *Fetcher
	runLog   drepo.RunLog
	evidence *EvidenceRecorder
	priors   drepo.PriorStore
	sinks    []drepo.RunSink
	metrics  drepo.Metrics
	log      *logger.Logger

	now   func() time.Time
	loc   *time.Location
	newID func(time.Time) string
}

func NewRunCollector(catalog *models.AssetCatalog, fetcher *Fetcher, runLog drepo.RunLog, log *logger.Logger, opts ...CollectorOption) *RunCollector {
	if log == nil {
		log = logger.Nop()
	}
	c := &RunCollector{
		catalog: catalog,
		fetcher: fetcher,
		runLog:  runLog,
		metrics: noopMetrics{},
		log:     log.With(logger.String("component", "collector")),
		now:     time.Now,
		loc:     time.UTC,
		newID:   NewRunID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithEvidence(r *EvidenceRecorder) CollectorOption {
	return func(c *RunCollector) { c.evidence = r }
}

// WithRememberedPriors stores each resolved value for the next run's
// deviation check.
func WithRememberedPriors(s drepo.PriorStore) CollectorOption {
	return func(c *RunCollector) { c.priors = s }
}

func WithSinks(sinks ...drepo.RunSink) CollectorOption {
	return func(c *RunCollector) {
		for _, s := range sinks {
			if s != nil {
				c.sinks = append(c.sinks, s)
			}
		}
	}
}

func WithCollectorMetrics(m drepo.Metrics) CollectorOption {
	return func(c *RunCollector) { c.metrics = metricsOrNoop(m) }
}

func WithLocation(loc *time.Location) CollectorOption {
	return func(c *RunCollector) {
		if loc != nil {
			c.loc = loc
		}
	}
}

func WithRunClock(now func() time.Time, newID func(time.Time) string) CollectorOption {
	return func(c *RunCollector) {
		if now != nil {
			c.now = now
		}
		if newID != nil {
			c.newID = newID
		}
	}
}

// Run executes one collection. Fetch failures are recorded in the returned
// record and never produce an error; only a failed primary append does.
func (c *RunCollector) Run(ctx context.Context) (*models.RunRecord, error) {
	start := c.now()
	runID := c.newID(start)
	log := c.log.With(logger.String("run_id", runID))

	if p, ok := c.runLog.(interface{ Prepare() error }); ok {
		if err := p.Prepare(); err != nil {
			log.Warn("log preparation failed", logger.Error(err))
		}
	}

	c.evidence.Record(ctx, runID, models.PhasePre, 0)

	results := c.fetcher.FetchAll(ctx, runID, c.catalog.Assets(), c.fetcher.MaxAttempts())
	rec := &models.RunRecord{
		RunID:     runID,
		Timestamp: start.UTC(),
		Local:     start.In(c.loc).Format(util.LocalLayout),
		Results:   results,
	}

	if err := c.runLog.AppendRun(ctx, rec); err != nil {
		log.Error("append run failed", logger.Error(err))
		return rec, fmt.Errorf("append run: %w", err)
	}

	c.remember(ctx, log, rec)
	c.publish(ctx, log, rec)

	elapsed := c.now().Sub(start)
	c.metrics.RecordRunDuration(elapsed.Seconds())
	log.Info("run complete",
		logger.Int("ok", rec.OKCount()),
		logger.Int("assets", c.catalog.Len()),
		logger.Duration("elapsed_ms", elapsed),
	)
	return rec, nil
}

func (c *RunCollector) remember(ctx context.Context, log *logger.Logger, rec *models.RunRecord) {
	if c.priors == nil {
		return
	}
	for _, name := range c.catalog.Names() {
		res := rec.Results[name]
		if !res.OK {
			continue
		}
		if err := c.priors.Remember(ctx, name, res.Value); err != nil {
			log.Warn("remember prior failed", logger.String("asset", name), logger.Error(err))
		}
	}
}

// publish mirrors rec to every sink; a failing sink never affects the run.
func (c *RunCollector) publish(ctx context.Context, log *logger.Logger, rec *models.RunRecord) {
	for _, s := range c.sinks {
		if err := s.Publish(ctx, rec); err != nil {
			c.metrics.RecordSinkError(s.Name())
			log.Warn("sink publish failed", logger.String("sink", s.Name()), logger.Error(err))
		}
	}
}

// Close releases every sink.
func (c *RunCollector) Close() error {
	var first error
	for _, s := range c.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = fmt.Errorf("close %s: %w", s.Name(), err)
		}
	}
	return first
}
