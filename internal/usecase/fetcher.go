package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"MarketLog/internal/domain/models"
	drepo "MarketLog/internal/domain/repository"
	"MarketLog/pkg/logger"
	"MarketLog/pkg/util"

	"github.com/shopspring/decimal"
)

const maxReasonLen = 240

// FetcherConfig holds the provider query parameters and retry policy.
type FetcherConfig struct {
	Period             string
	Interval           string
	MaxAttempts        int
	IndividualFallback bool
}

// AttemptHook runs after every attempt that left assets unresolved.
type AttemptHook func(ctx context.Context, runID string, attempt int)

// FetcherOption configures Fetcher.
type FetcherOption func(*Fetcher)

// Fetcher drives the batched fetch, retry and extract loop for one run.
type Fetcher struct {
	provider  drepo.Provider
	extractor *ResultExtractor
	backoff   *BackoffScheduler
	cfg       FetcherConfig

	priors    drepo.PriorStore
	trials    drepo.TrialLog
	metrics   drepo.Metrics
	onFailure AttemptHook
	log       *logger.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
	loc   *time.Location
}

func NewFetcher(provider drepo.Provider, extractor *ResultExtractor, backoff *BackoffScheduler, cfg FetcherConfig, log *logger.Logger, opts ...FetcherOption) *Fetcher {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	f := &Fetcher{
		provider:  provider,
		extractor: extractor,
		backoff:   backoff,
		cfg:       cfg,
		metrics:   noopMetrics{},
		log:       log.With(logger.String("component", "fetcher")),
		sleep:     sleepContext,
		now:       time.Now,
		loc:       time.UTC,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func WithPriorStore(s drepo.PriorStore) FetcherOption {
	return func(f *Fetcher) { f.priors = s }
}

func WithTrialLog(t drepo.TrialLog) FetcherOption {
	return func(f *Fetcher) { f.trials = t }
}

func WithFetcherMetrics(m drepo.Metrics) FetcherOption {
	return func(f *Fetcher) { f.metrics = metricsOrNoop(m) }
}

func WithFailedAttemptHook(h AttemptHook) FetcherOption {
	return func(f *Fetcher) { f.onFailure = h }
}

// WithSleeper replaces the backoff sleep, mostly for tests.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) FetcherOption {
	return func(f *Fetcher) {
		if fn != nil {
			f.sleep = fn
		}
	}
}

func WithClock(now func() time.Time, loc *time.Location) FetcherOption {
	return func(f *Fetcher) {
		if now != nil {
			f.now = now
		}
		if loc != nil {
			f.loc = loc
		}
	}
}

// MaxAttempts is the configured attempt budget.
func (f *Fetcher) MaxAttempts() int { return f.cfg.MaxAttempts }

type fetchState struct {
	all      []models.AssetSpec
	results  map[string]models.FetchResult
	reasons  map[string]string
	attempts map[string]int
}

func (s *fetchState) okCount() int {
	n := 0
	for _, r := range s.results {
		if r.OK {
			n++
		}
	}
	return n
}

// FetchAll resolves every asset, returning exactly one result per asset.
// Partial or total failure never aborts; unresolved assets come back as
// missing with the last reason observed.
func (f *Fetcher) FetchAll(ctx context.Context, runID string, assets []models.AssetSpec, maxAttempts int) map[string]models.FetchResult {
	if maxAttempts < 1 {
		maxAttempts = f.cfg.MaxAttempts
	}
	st := &fetchState{
		all:      assets,
		results:  make(map[string]models.FetchResult, len(assets)),
		reasons:  make(map[string]string, len(assets)),
		attempts: make(map[string]int, len(assets)),
	}

	pending := f.retry(ctx, runID, models.TrialBatch, assets, maxAttempts, st)

	if f.cfg.IndividualFallback && len(pending) > 0 && ctx.Err() == nil {
		var still []models.AssetSpec
		for _, a := range pending {
			batchReason := st.reasons[a.Name]
			if left := f.retry(ctx, runID, models.TrialIndividual, []models.AssetSpec{a}, maxAttempts, st); len(left) > 0 {
				st.reasons[a.Name] = fmt.Sprintf("batch_fail=%s | indiv_fail=%s", orUnknown(batchReason), orUnknown(st.reasons[a.Name]))
				still = append(still, a)
			}
			if ctx.Err() != nil {
				break
			}
		}
		pending = still
	}

	for _, a := range assets {
		if _, ok := st.results[a.Name]; !ok {
			st.results[a.Name] = models.MissingResult(a, st.reasons[a.Name], st.attempts[a.Name])
		}
	}

	for _, a := range assets {
		res := st.results[a.Name]
		if res.OK {
			f.flagAnomaly(ctx, a, &res)
			st.results[a.Name] = res
		}
		f.metrics.RecordAssetResult(a.Name, res.OK, res.Value)
		if !res.OK {
			f.log.Warn("asset unresolved",
				logger.String("run_id", runID),
				logger.String("asset", a.Name),
				logger.String("symbol", a.Symbol),
				logger.String("reason", res.FailReason),
			)
		}
	}
	return st.results
}

// retry runs up to maxAttempts batched calls for the pending assets and
// returns the ones still unresolved.
func (f *Fetcher) retry(ctx context.Context, runID, phase string, pending []models.AssetSpec, maxAttempts int, st *fetchState) []models.AssetSpec {
	for attempt := 1; attempt <= maxAttempts && len(pending) > 0; attempt++ {
		symbols := make([]string, len(pending))
		for i, a := range pending {
			symbols[i] = a.Symbol
		}

		tab, err := f.provider.FetchBatch(ctx, symbols, f.cfg.Period, f.cfg.Interval)

		var (
			still    []models.AssetSpec
			failures []string
		)
		for _, a := range pending {
			st.attempts[a.Name]++
			if err != nil {
				st.reasons[a.Name] = providerReason(err)
				still = append(still, a)
				continue
			}
			q, xerr := f.extractor.Extract(tab, a.Symbol)
			if xerr != nil {
				reason := models.ReasonOf(xerr)
				st.reasons[a.Name] = reason
				failures = append(failures, a.Symbol+"="+reason)
				still = append(still, a)
				continue
			}
			st.results[a.Name] = models.FetchResult{
				Asset:        a.Name,
				Symbol:       a.Symbol,
				Value:        q.Value,
				OK:           true,
				Source:       models.SourceProvider,
				ObservedDate: q.Date,
				Attempts:     st.attempts[a.Name],
			}
		}

		ok := st.okCount()
		trial := models.RetryTrial{
			RunID:     runID,
			Timestamp: f.now().In(f.loc).Format(util.LocalLayout),
			Phase:     phase,
			Attempt:   attempt,
			Symbols:   strings.Join(symbols, " "),
			OKCount:   ok,
			FailCount: len(st.all) - ok,
		}
		if err != nil {
			trial.Error = providerReason(err)
		} else {
			trial.Error = strings.Join(failures, "; ")
		}
		f.metrics.RecordAttempt(phase, ok, len(st.all)-ok)

		pending = still
		if len(pending) == 0 {
			f.appendTrial(ctx, trial)
			f.log.Info("attempt resolved all pending assets",
				logger.String("run_id", runID),
				logger.String("phase", phase),
				logger.Int("attempt", attempt),
			)
			break
		}

		var delay time.Duration
		if attempt < maxAttempts {
			d, err := f.backoff.NextDelay(attempt)
			if err != nil {
				f.log.Error("backoff delay", logger.String("run_id", runID), logger.Int("attempt", attempt), logger.Error(err))
				d = 0
			}
			delay = d
			trial.SleepSec = delay.Seconds()
		}
		f.appendTrial(ctx, trial)
		f.log.Warn("attempt left assets unresolved",
			logger.String("run_id", runID),
			logger.String("phase", phase),
			logger.Int("attempt", attempt),
			logger.Int("ok", ok),
			logger.Int("failed", len(st.all)-ok),
			logger.String("error", trial.Error),
			logger.Duration("sleep_ms", delay),
		)
		if f.onFailure != nil {
			f.onFailure(ctx, runID, attempt)
		}
		if delay > 0 {
			if err := f.sleep(ctx, delay); err != nil {
				f.log.Warn("backoff interrupted", logger.String("run_id", runID), logger.Error(err))
				break
			}
		}
	}
	return pending
}

func (f *Fetcher) appendTrial(ctx context.Context, trial models.RetryTrial) {
	if f.trials == nil {
		return
	}
	if err := f.trials.AppendTrial(ctx, trial); err != nil {
		f.log.Error("append retry trial", logger.String("run_id", trial.RunID), logger.Error(err))
	}
}

// flagAnomaly marks a resolved value whose deviation from the last known-good
// value reaches the asset threshold. The value itself is kept.
func (f *Fetcher) flagAnomaly(ctx context.Context, spec models.AssetSpec, res *models.FetchResult) {
	if f.priors == nil || spec.AnomalyThresholdPct <= 0 {
		return
	}
	prev, ok, err := f.priors.LastGood(ctx, spec.Name)
	if err != nil {
		f.log.Warn("prior lookup failed", logger.String("asset", spec.Name), logger.Error(err))
		return
	}
	if !ok {
		return
	}
	dev, ok := deviation(prev, res.Value)
	if !ok {
		return
	}
	if dev.GreaterThanOrEqual(decimal.NewFromFloat(spec.AnomalyThresholdPct)) {
		res.Anomaly = true
		res.AnomalyDetail = describeDeviation(dev, prev, res.Value, spec.AnomalyThresholdPct)
		f.metrics.RecordAnomaly(spec.Name)
		f.log.Warn("deviation above threshold",
			logger.String("asset", spec.Name),
			logger.String("detail", res.AnomalyDetail),
		)
	}
}

func providerReason(err error) string {
	return util.Preview(string(models.ClassProvider)+":"+models.ReasonOf(err), maxReasonLen)
}

func orUnknown(s string) string {
	if s == "" {
		return models.ReasonUnknown
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
