package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketLog/internal/domain/models"
	"MarketLog/pkg/logger"
	"MarketLog/pkg/util"
)

func testCatalog(t *testing.T) *models.AssetCatalog {
	t.Helper()
	c, err := models.NewAssetCatalog([]models.AssetSpec{
		{Name: "USDJPY", Symbol: "JPY=X", AnomalyThresholdPct: 0.05},
		{Name: "BTC", Symbol: "BTC-USD", AnomalyThresholdPct: 0.2},
	})
	require.NoError(t, err)
	return c
}

func sampleRun(id string) *models.RunRecord {
	return &models.RunRecord{
		RunID:     id,
		Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Local:     "2024-03-01 09:00:00",
		Results: map[string]models.FetchResult{
			"USDJPY": {Asset: "USDJPY", Symbol: "JPY=X", Value: 150.25, OK: true, Source: models.SourceProvider, ObservedDate: "2024-02-29"},
			"BTC":    models.MissingResult(models.AssetSpec{Name: "BTC", Symbol: "BTC-USD"}, "NoNumericClose", 3),
		},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(util.TrimBOM(data))).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestRunLogger_ColumnsIncludeRunID(t *testing.T) {
	l := NewRunLogger(RunLoggerConfig{PrimaryPath: "x.csv", IncludeRunID: true}, testCatalog(t), nil, logger.Nop())
	assert.Equal(t, []string{
		"run_id", "timestamp_jst",
		"USDJPY", "USDJPY_missing", "USDJPY_src", "USDJPY_date", "USDJPY_fail",
		"BTC", "BTC_missing", "BTC_src", "BTC_date", "BTC_fail",
	}, l.Columns())
}

func TestRunLogger_FlattenFillsAbsentAssets(t *testing.T) {
	l := NewRunLogger(RunLoggerConfig{PrimaryPath: "x.csv"}, testCatalog(t), nil, logger.Nop())
	rec := sampleRun("r1")
	delete(rec.Results, "BTC")

	row := l.Flatten(rec)
	require.Len(t, row, len(l.Columns()))
	assert.Equal(t, []string{"0", "1", "missing", "", models.ReasonUnknown}, row[6:])
}

func TestRunLogger_AppendRunWritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "market.csv")
	l := NewRunLogger(RunLoggerConfig{PrimaryPath: path, BOM: true}, testCatalog(t), fixedGuard(), logger.Nop())

	require.NoError(t, l.AppendRun(context.Background(), sampleRun("r1")))
	require.NoError(t, l.AppendRun(context.Background(), sampleRun("r2")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, util.UTF8BOM))
	assert.Equal(t, 1, strings.Count(string(data), "timestamp_jst"))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"2024-03-01 09:00:00", "150.25", "0", "provider", "2024-02-29", "", "0", "1", "missing", "", "NoNumericClose"}, rows[1])
}

func TestRunLogger_QuarantinesStaleSchemaBeforeAppend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "market.csv")
	writeFile(t, path, "timestamp_jst,USDJPY_price,USDJPY_ok\n2024-01-01,140,1\n")

	l := NewRunLogger(RunLoggerConfig{PrimaryPath: path}, testCatalog(t), fixedGuard(), logger.Nop())
	require.NoError(t, l.AppendRun(context.Background(), sampleRun("r1")))

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, l.Columns(), rows[0])
	assert.FileExists(t, filepath.Join(dir, "market.quarantine-20240301T093000.csv"))
}

func TestRunLogger_TrialsAndEvidence(t *testing.T) {
	dir := t.TempDir()
	cfg := RunLoggerConfig{
		PrimaryPath:  filepath.Join(dir, "market.csv"),
		TrialsPath:   filepath.Join(dir, "trials.csv"),
		EvidencePath: filepath.Join(dir, "evidence.jsonl"),
	}
	l := NewRunLogger(cfg, testCatalog(t), fixedGuard(), logger.Nop())
	ctx := context.Background()

	require.NoError(t, l.AppendTrial(ctx, models.RetryTrial{RunID: "r1", Attempt: 1, Phase: models.TrialBatch, Symbols: "JPY=X,BTC-USD", OKCount: 1, FailCount: 1, Error: "BTC=NoNumericClose", SleepSec: 6.5}))
	status := 429
	require.NoError(t, l.AppendEvidence(ctx, models.TransportEvidence{RunID: "r1", Phase: models.PhasePre, StatusCode: &status}))
	require.NoError(t, l.AppendEvidence(ctx, models.TransportEvidence{RunID: "r1", Phase: models.PhasePostFailure, Attempt: 1, Error: "Timeout"}))

	rows := readCSV(t, cfg.TrialsPath)
	require.Len(t, rows, 2)
	assert.Equal(t, models.TrialColumns, rows[0])
	assert.Equal(t, "6.500", rows[1][8])

	data, err := os.ReadFile(cfg.EvidencePath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	var first map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, float64(429), first["status_code"])
	var second map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Nil(t, second["status_code"])
}

func TestRunLogger_OptionalOutputsSkipped(t *testing.T) {
	l := NewRunLogger(RunLoggerConfig{PrimaryPath: filepath.Join(t.TempDir(), "m.csv")}, testCatalog(t), nil, logger.Nop())
	assert.NoError(t, l.AppendTrial(context.Background(), models.RetryTrial{}))
	assert.NoError(t, l.AppendEvidence(context.Background(), models.TransportEvidence{}))
}
