package usecase

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"MarketLog/internal/domain/models"
	"MarketLog/internal/domain/repository/mocks"
	"MarketLog/pkg/logger"
	"MarketLog/pkg/util"
)

type memRunLog struct {
	runs     []*models.RunRecord
	err      error
	prepared int
}

func (m *memRunLog) AppendRun(_ context.Context, rec *models.RunRecord) error {
	if m.err != nil {
		return m.err
	}
	m.runs = append(m.runs, rec)
	return nil
}

func (m *memRunLog) Prepare() error {
	m.prepared++
	return nil
}

type memEvidence struct {
	evs []models.TransportEvidence
}

func (m *memEvidence) AppendEvidence(_ context.Context, ev models.TransportEvidence) error {
	m.evs = append(m.evs, ev)
	return nil
}

type stubProber struct{}

func (stubProber) Probe(_ context.Context, runID, phase string, attempt int) []models.TransportEvidence {
	return []models.TransportEvidence{{RunID: runID, Phase: phase, Attempt: attempt, URL: "https://probe"}}
}

func collectorCatalog(t *testing.T) *models.AssetCatalog {
	t.Helper()
	c, err := models.NewAssetCatalog(models.DefaultAssets()[:2])
	require.NoError(t, err)
	return c
}

var runStart = time.Date(2026, 10, 15, 0, 30, 0, 0, time.UTC)

func fixedRunClock() CollectorOption {
	return WithRunClock(func() time.Time { return runStart }, func(time.Time) string { return "run-x" })
}

func TestNewRunID(t *testing.T) {
	id := NewRunID(time.Date(2024, 3, 1, 9, 0, 0, 0, time.FixedZone("JST", 9*3600)))
	assert.Regexp(t, regexp.MustCompile(`^20240301T000000Z-[0-9a-f]{8}$`), id)
	assert.NotEqual(t, id, NewRunID(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)))
}

func TestRunCollector_RunWritesAndMirrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	priors := mocks.NewMockPriorStore(ctrl)
	sink := mocks.NewMockRunSink(ctrl)
	catalog := collectorCatalog(t)

	provider.EXPECT().FetchBatch(gomock.Any(), []string{"JPY=X", "BTC-USD"}, "7d", "1d").
		Return(nil, errors.New("timeout")).Times(1)
	provider.EXPECT().FetchBatch(gomock.Any(), []string{"JPY=X", "BTC-USD"}, "7d", "1d").
		Return(twoLevel([]string{"JPY=X", "BTC-USD"}, map[string][]any{
			"JPY=X":   {nil, 150.0, 151.0},
			"BTC-USD": {nil, nil, nil},
		}), nil)
	provider.EXPECT().FetchBatch(gomock.Any(), []string{"BTC-USD"}, "7d", "1d").
		Return(flat(nil, nil, nil), nil)

	priors.EXPECT().LastGood(gomock.Any(), "USDJPY").Return(0.0, false, nil)
	priors.EXPECT().Remember(gomock.Any(), "USDJPY", 151.0).Return(nil)
	sink.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))
	sink.EXPECT().Name().Return("kafka").AnyTimes()

	evidence := &memEvidence{}
	recorder := NewEvidenceRecorder(stubProber{}, evidence, logger.Nop())
	fetcher := newTestFetcher(provider, &memTrialLog{}, &sleepRecorder{},
		WithPriorStore(priors), WithFailedAttemptHook(recorder.AfterFailure()))
	runLog := &memRunLog{}

	c := NewRunCollector(catalog, fetcher, runLog, logger.Nop(),
		WithEvidence(recorder),
		WithRememberedPriors(priors),
		WithSinks(sink),
		WithLocation(util.LoadLocation("Asia/Tokyo")),
		fixedRunClock(),
	)

	rec, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, runLog.prepared)
	require.Len(t, runLog.runs, 1)
	assert.Same(t, rec, runLog.runs[0])
	assert.Equal(t, "run-x", rec.RunID)
	assert.Equal(t, "2026-10-15 09:30:00", rec.Local)
	assert.Equal(t, 1, rec.OKCount())
	assert.Equal(t, models.ReasonNoNumericClose, rec.Results["BTC"].FailReason)

	phases := make([]string, len(evidence.evs))
	for i, ev := range evidence.evs {
		phases[i] = ev.Phase
		assert.Equal(t, "run-x", ev.RunID)
	}
	assert.Equal(t, []string{models.PhasePre, models.PhasePostFailure, models.PhasePostFailure, models.PhasePostFailure}, phases)
}

func TestRunCollector_AppendFailureIsReturned(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	sink := mocks.NewMockRunSink(ctrl)
	catalog := collectorCatalog(t)

	provider.EXPECT().FetchBatch(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(twoLevel([]string{"JPY=X", "BTC-USD"}, map[string][]any{
			"JPY=X":   {nil, 150.0, 151.0},
			"BTC-USD": {nil, 60000.0, 61000.0},
		}), nil)
	// no sink call after a failed append

	fetcher := newTestFetcher(provider, &memTrialLog{}, &sleepRecorder{})
	c := NewRunCollector(catalog, fetcher, &memRunLog{err: errors.New("disk full")}, logger.Nop(),
		WithSinks(sink), fixedRunClock())

	rec, err := c.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 2, rec.OKCount())
}

func TestRunCollector_CloseClosesSinks(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := mocks.NewMockRunSink(ctrl)
	b := mocks.NewMockRunSink(ctrl)
	a.EXPECT().Close().Return(nil)
	b.EXPECT().Close().Return(errors.New("boom"))
	b.EXPECT().Name().Return("clickhouse")

	c := NewRunCollector(collectorCatalog(t), nil, &memRunLog{}, nil, WithSinks(a, nil, b))
	err := c.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close clickhouse")
}

func TestEvidenceRecorder_NilSafe(t *testing.T) {
	var r *EvidenceRecorder
	r.Record(context.Background(), "r", models.PhasePre, 0)
	NewEvidenceRecorder(nil, &memEvidence{}, nil).AfterFailure()(context.Background(), "r", 1)
}
