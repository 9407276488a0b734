package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"MarketLog/internal/domain/models"
	drepo "MarketLog/internal/domain/repository"
)

// DefaultRunTable is the ClickHouse table holding one row per asset per run.
const DefaultRunTable = "market_runs"

// RunTableDDL returns the idempotent schema for table.
func RunTableDDL(table string) []string {
	return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id String,
	ts DateTime,
	asset LowCardinality(String),
	value Float64,
	ok UInt8,
	source LowCardinality(String),
	observed_date String,
	fail_reason String,
	anomaly UInt8,
	anomaly_detail String
) ENGINE = MergeTree
ORDER BY (asset, ts)`, table)}
}

// ClickHouseRunSink mirrors run records into ClickHouse.
type ClickHouseRunSink struct {
	db    *sql.DB
	table string
}

// NewClickHouseRunSink creates ClickHouse sink.
func NewClickHouseRunSink(db *sql.DB, table string) drepo.RunSink {
	if table == "" {
		table = DefaultRunTable
	}
	return &ClickHouseRunSink{db: db, table: table}
}

func (s *ClickHouseRunSink) Name() string { return "clickhouse" }

// Publish inserts every asset of rec in one multi-row VALUES statement.
func (s *ClickHouseRunSink) Publish(ctx context.Context, rec *models.RunRecord) error {
	if rec == nil || len(rec.Results) == 0 {
		return nil
	}
	q, args := s.insertStatement(rec)
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert run %s: %w", rec.RunID, err)
	}
	return nil
}

func (s *ClickHouseRunSink) insertStatement(rec *models.RunRecord) (string, []interface{}) {
	names := make([]string, 0, len(rec.Results))
	for name := range rec.Results {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]string, 0, len(names))
	args := make([]interface{}, 0, len(names)*10)
	for _, name := range names {
		r := rec.Results[name]
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			rec.RunID,
			rec.Timestamp.UTC(),
			r.Asset,
			r.Value,
			boolToUInt8(r.OK),
			string(r.Source),
			r.ObservedDate,
			r.FailReason,
			boolToUInt8(r.Anomaly),
			r.AnomalyDetail,
		)
	}
	q := fmt.Sprintf("INSERT INTO %s (run_id, ts, asset, value, ok, source, observed_date, fail_reason, anomaly, anomaly_detail) VALUES %s",
		s.table, strings.Join(values, ","))
	return q, args
}

// Close is a no-op; the pool belongs to pkg/clickhouse.Client.
func (s *ClickHouseRunSink) Close() error {
	return nil
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
