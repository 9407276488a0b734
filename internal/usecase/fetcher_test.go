package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"MarketLog/internal/domain/models"
	"MarketLog/internal/domain/repository/mocks"
	"MarketLog/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type memTrialLog struct {
	mu     sync.Mutex
	trials []models.RetryTrial
}

func (m *memTrialLog) AppendTrial(_ context.Context, t models.RetryTrial) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trials = append(m.trials, t)
	return nil
}

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func twoLevel(symbols []string, closes map[string][]any) *models.TabularResult {
	tab := models.NewTwoLevelResult(days(3))
	for _, s := range symbols {
		tab.Keyed[models.ColumnKey{"close", s}] = closes[s]
	}
	return tab
}

func flat(values ...any) *models.TabularResult {
	tab := models.NewFlatResult(days(len(values)))
	tab.Flat["close"] = values
	return tab
}

func symbolsOf(assets []models.AssetSpec) []string {
	out := make([]string, len(assets))
	for i, a := range assets {
		out[i] = a.Symbol
	}
	return out
}

func newTestFetcher(p *mocks.MockProvider, trials *memTrialLog, sleeper *sleepRecorder, opts ...FetcherOption) *Fetcher {
	backoff := NewBackoffScheduler(DefaultBackoffConfig(), WithRandom(func() float64 { return 0 }))
	base := []FetcherOption{
		WithTrialLog(trials),
		WithSleeper(sleeper.sleep),
		WithClock(func() time.Time { return time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC) }, time.UTC),
	}
	return NewFetcher(p, NewResultExtractor(), backoff,
		FetcherConfig{Period: "7d", Interval: "1d", MaxAttempts: 3},
		logger.Nop(), append(base, opts...)...)
}

func TestFetchAll_FiveThenSixthOnThirdAttempt(t *testing.T) {
	// Arrange
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	assets := models.DefaultAssets()
	all := symbolsOf(assets)

	first := map[string][]any{}
	for i, s := range all {
		first[s] = []any{nil, float64(100 + i), float64(101 + i)}
	}
	first["^VIX"] = []any{nil, math.NaN(), nil}

	gomock.InOrder(
		provider.EXPECT().FetchBatch(gomock.Any(), all, "7d", "1d").Return(twoLevel(all, first), nil),
		provider.EXPECT().FetchBatch(gomock.Any(), []string{"^VIX"}, "7d", "1d").Return(nil, errors.New("connection reset")),
		provider.EXPECT().FetchBatch(gomock.Any(), []string{"^VIX"}, "7d", "1d").Return(flat(17.5, 18.25, nil), nil),
	)
	trials := &memTrialLog{}
	sleeper := &sleepRecorder{}
	f := newTestFetcher(provider, trials, sleeper)

	// Act
	results := f.FetchAll(context.Background(), "run-1", assets, 3)

	// Assert
	require.Len(t, results, 6)
	for _, a := range assets {
		r := results[a.Name]
		assert.True(t, r.OK, a.Name)
		assert.Equal(t, models.SourceProvider, r.Source)
		assert.Empty(t, r.FailReason)
	}
	assert.Equal(t, 18.25, results["VIX"].Value)
	assert.Equal(t, "2026-10-06", results["VIX"].ObservedDate)
	assert.Equal(t, 3, results["VIX"].Attempts)
	assert.Equal(t, 1, results["USDJPY"].Attempts)

	require.Len(t, trials.trials, 3)
	assert.Equal(t, []int{5, 5, 6}, []int{trials.trials[0].OKCount, trials.trials[1].OKCount, trials.trials[2].OKCount})
	assert.Equal(t, []int{1, 1, 0}, []int{trials.trials[0].FailCount, trials.trials[1].FailCount, trials.trials[2].FailCount})
	assert.Equal(t, "^VIX=NoNumericClose", trials.trials[0].Error)
	assert.Contains(t, trials.trials[1].Error, "ProviderFailure:")
	assert.Empty(t, trials.trials[2].Error)
	assert.Equal(t, "^VIX", trials.trials[2].Symbols)
	for i, tr := range trials.trials {
		assert.Equal(t, "run-1", tr.RunID)
		assert.Equal(t, i+1, tr.Attempt)
		assert.Equal(t, models.TrialBatch, tr.Phase)
	}
	assert.InDelta(t, 6.5, trials.trials[0].SleepSec, 1e-9)
	assert.InDelta(t, 12.5, trials.trials[1].SleepSec, 1e-9)
	assert.Zero(t, trials.trials[2].SleepSec)
	assert.Equal(t, []time.Duration{6500 * time.Millisecond, 12500 * time.Millisecond}, sleeper.delays)
}

func TestFetchAll_ProviderDownEveryAttempt(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	assets := models.DefaultAssets()
	provider.EXPECT().FetchBatch(gomock.Any(), symbolsOf(assets), "7d", "1d").
		Return(nil, errors.New("HTTP 429")).Times(3)

	var hooked []int
	trials := &memTrialLog{}
	sleeper := &sleepRecorder{}
	f := newTestFetcher(provider, trials, sleeper, WithFailedAttemptHook(func(_ context.Context, runID string, attempt int) {
		assert.Equal(t, "run-2", runID)
		hooked = append(hooked, attempt)
	}))

	results := f.FetchAll(context.Background(), "run-2", assets, 3)

	require.Len(t, results, len(assets))
	for _, r := range results {
		assert.False(t, r.OK)
		assert.Zero(t, r.Value)
		assert.Equal(t, models.SourceMissing, r.Source)
		assert.Equal(t, "ProviderFailure:HTTP 429", r.FailReason)
		assert.Equal(t, 3, r.Attempts)
	}
	assert.Len(t, trials.trials, 3)
	assert.Len(t, sleeper.delays, 2)
	assert.Equal(t, []int{1, 2, 3}, hooked)
}

func TestFetchAll_SingleAttemptNeverSleeps(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	assets := models.DefaultAssets()[:1]
	provider.EXPECT().FetchBatch(gomock.Any(), []string{"JPY=X"}, "7d", "1d").Return(flat(nil), nil)

	trials := &memTrialLog{}
	sleeper := &sleepRecorder{}
	results := newTestFetcher(provider, trials, sleeper).FetchAll(context.Background(), "r", assets, 1)

	assert.Equal(t, models.ReasonNoNumericClose, results["USDJPY"].FailReason)
	assert.Empty(t, sleeper.delays)
	require.Len(t, trials.trials, 1)
	assert.Zero(t, trials.trials[0].SleepSec)
}

func TestFetchAll_AnomalyBoundaryIsInclusive(t *testing.T) {
	cases := []struct {
		name      string
		threshold float64
		value     float64
		want      bool
	}{
		{name: "exactly at threshold", threshold: 0.06, value: 106, want: true},
		{name: "below threshold", threshold: 0.07, value: 106, want: false},
		{name: "drop beyond threshold", threshold: 0.06, value: 90, want: true},
		{name: "disabled threshold", threshold: 0, value: 1000, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			provider := mocks.NewMockProvider(ctrl)
			priors := mocks.NewMockPriorStore(ctrl)
			assets := []models.AssetSpec{{Name: "USDJPY", Symbol: "JPY=X", AnomalyThresholdPct: tc.threshold}}

			provider.EXPECT().FetchBatch(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(flat(tc.value), nil)
			if tc.threshold > 0 {
				priors.EXPECT().LastGood(gomock.Any(), "USDJPY").Return(100.0, true, nil)
			}

			f := newTestFetcher(provider, &memTrialLog{}, &sleepRecorder{}, WithPriorStore(priors))
			res := f.FetchAll(context.Background(), "r", assets, 3)["USDJPY"]

			require.True(t, res.OK)
			assert.Equal(t, tc.value, res.Value, "value is never discarded")
			assert.Equal(t, tc.want, res.Anomaly)
			if tc.want {
				assert.Contains(t, res.AnomalyDetail, "prev=100")
			}
		})
	}
}

func TestFetchAll_NoPriorMeansNoAnomaly(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	priors := mocks.NewMockPriorStore(ctrl)
	assets := []models.AssetSpec{{Name: "BTC", Symbol: "BTC-USD", AnomalyThresholdPct: 0.01}}

	provider.EXPECT().FetchBatch(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(flat(60000.0), nil)
	priors.EXPECT().LastGood(gomock.Any(), "BTC").Return(0.0, false, nil)

	res := newTestFetcher(provider, &memTrialLog{}, &sleepRecorder{}, WithPriorStore(priors)).
		FetchAll(context.Background(), "r", assets, 1)["BTC"]

	assert.True(t, res.OK)
	assert.False(t, res.Anomaly)
}

func TestFetchAll_IndividualFallbackCombinesReasons(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	assets := models.DefaultAssets()[:2]

	batch := map[string][]any{"JPY=X": {150.0, 151.0, 152.0}, "BTC-USD": {nil, nil, nil}}
	gomock.InOrder(
		provider.EXPECT().FetchBatch(gomock.Any(), []string{"JPY=X", "BTC-USD"}, "7d", "1d").
			Return(twoLevel([]string{"JPY=X", "BTC-USD"}, batch), nil),
		provider.EXPECT().FetchBatch(gomock.Any(), []string{"BTC-USD"}, "7d", "1d").
			Return(flat(nil), nil),
	)

	trials := &memTrialLog{}
	f := NewFetcher(provider, NewResultExtractor(),
		NewBackoffScheduler(DefaultBackoffConfig(), WithRandom(func() float64 { return 0 })),
		FetcherConfig{Period: "7d", Interval: "1d", MaxAttempts: 1, IndividualFallback: true},
		logger.Nop(), WithTrialLog(trials), WithSleeper((&sleepRecorder{}).sleep))

	results := f.FetchAll(context.Background(), "r", assets, 1)

	assert.True(t, results["USDJPY"].OK)
	assert.Equal(t, "batch_fail=NoNumericClose | indiv_fail=NoNumericClose", results["BTC"].FailReason)
	require.Len(t, trials.trials, 2)
	assert.Equal(t, models.TrialBatch, trials.trials[0].Phase)
	assert.Equal(t, models.TrialIndividual, trials.trials[1].Phase)
	assert.Equal(t, 1, trials.trials[1].OKCount)
}
