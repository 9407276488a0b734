package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"MarketLog/internal/domain/models"
	"MarketLog/pkg/logger"
)

// RunLoggerConfig locates the three append-only outputs of a run.
type RunLoggerConfig struct {
	PrimaryPath     string
	TrialsPath      string
	EvidencePath    string
	TimestampColumn string
	IncludeRunID    bool
	BOM             bool
}

// RunLogger appends run rows, retry trials and transport evidence. It never
// rewrites existing content.
type RunLogger struct {
	cfg     RunLoggerConfig
	catalog *models.AssetCatalog
	columns []string
	guard   *SchemaGuard
	log     *logger.Logger

	mu      sync.Mutex
	guarded map[string]bool
}

func NewRunLogger(cfg RunLoggerConfig, catalog *models.AssetCatalog, guard *SchemaGuard, log *logger.Logger) *RunLogger {
	if cfg.TimestampColumn == "" {
		cfg.TimestampColumn = "timestamp_jst"
	}
	if log == nil {
		log = logger.Nop()
	}
	l := &RunLogger{
		cfg:     cfg,
		catalog: catalog,
		guard:   guard,
		log:     log.With(logger.String("component", "run_logger")),
		guarded: make(map[string]bool),
	}
	l.columns = l.buildColumns()
	return l
}

func (l *RunLogger) buildColumns() []string {
	cols := make([]string, 0, 2+5*l.catalog.Len())
	if l.cfg.IncludeRunID {
		cols = append(cols, "run_id")
	}
	cols = append(cols, l.cfg.TimestampColumn)
	for _, name := range l.catalog.Names() {
		cols = append(cols, models.AssetColumns(name)...)
	}
	return cols
}

// Columns is the primary-log header, fixed for the life of the process.
func (l *RunLogger) Columns() []string {
	out := make([]string, len(l.columns))
	copy(out, l.columns)
	return out
}

// Flatten renders rec in Columns order. The width never depends on how many
// assets resolved.
func (l *RunLogger) Flatten(rec *models.RunRecord) []string {
	row := make([]string, 0, len(l.columns))
	if l.cfg.IncludeRunID {
		row = append(row, rec.RunID)
	}
	row = append(row, rec.Local)
	for _, spec := range l.catalog.Assets() {
		res, ok := rec.Results[spec.Name]
		if !ok {
			res = models.MissingResult(spec, models.ReasonUnknown, 0)
		}
		row = append(row, res.AssetCells()...)
	}
	return row
}

func (l *RunLogger) AppendRun(_ context.Context, rec *models.RunRecord) error {
	if err := l.ensure(l.cfg.PrimaryPath, l.columns); err != nil {
		return err
	}
	if err := appendRow(l.cfg.PrimaryPath, l.columns, l.Flatten(rec), l.cfg.BOM); err != nil {
		return fmt.Errorf("append run %s: %w", rec.RunID, err)
	}
	l.log.Info("run appended",
		logger.String("run_id", rec.RunID),
		logger.String("path", l.cfg.PrimaryPath),
		logger.Int("ok", rec.OKCount()),
		logger.Int("assets", l.catalog.Len()),
	)
	return nil
}

func (l *RunLogger) AppendTrial(_ context.Context, trial models.RetryTrial) error {
	if l.cfg.TrialsPath == "" {
		return nil
	}
	if err := l.ensure(l.cfg.TrialsPath, models.TrialColumns); err != nil {
		return err
	}
	return appendRow(l.cfg.TrialsPath, models.TrialColumns, trial.Cells(), l.cfg.BOM)
}

func (l *RunLogger) AppendEvidence(_ context.Context, ev models.TransportEvidence) error {
	if l.cfg.EvidencePath == "" {
		return nil
	}
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}
	return appendLine(l.cfg.EvidencePath, append(line, '\n'))
}

// ensure runs the schema guard once per path per process.
func (l *RunLogger) ensure(path string, columns []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.guarded[path] || l.guard == nil {
		return nil
	}
	if _, err := l.guard.EnsureOrQuarantine(path, columns); err != nil {
		return fmt.Errorf("schema guard %s: %w", path, err)
	}
	l.guarded[path] = true
	return nil
}

// Prepare guards the primary and trial logs up front so that readers of the
// primary log during the run see a structurally valid file.
func (l *RunLogger) Prepare() error {
	if err := l.ensure(l.cfg.PrimaryPath, l.columns); err != nil {
		return err
	}
	if l.cfg.TrialsPath != "" {
		return l.ensure(l.cfg.TrialsPath, models.TrialColumns)
	}
	return nil
}
