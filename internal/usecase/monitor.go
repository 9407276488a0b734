package usecase

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"MarketLog/internal/domain/models"
	drepo "MarketLog/internal/domain/repository"
	"MarketLog/pkg/logger"
	"MarketLog/pkg/util"

	"github.com/shopspring/decimal"
)

// MonitorConfig decides which findings fail the check.
type MonitorConfig struct {
	TimestampColumn string
	AnomalyFatal    bool
	RangeFatal      bool
}

// AssetStatus is the verdict for one asset in the latest row.
type AssetStatus struct {
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Raw        string  `json:"raw"`
	Date       string  `json:"date,omitempty"`
	Fail       string  `json:"fail,omitempty"`
	Missing    bool    `json:"missing"`
	Anomalous  bool    `json:"anomalous"`
	OutOfRange bool    `json:"out_of_range"`
	PrevGood   float64 `json:"prev_good,omitempty"`
	Detail     string  `json:"detail,omitempty"`
}

// Report is the outcome of one monitor check.
type Report struct {
	Path       string        `json:"path"`
	State      string        `json:"state"`
	Latest     string        `json:"latest,omitempty"`
	RunID      string        `json:"run_id,omitempty"`
	Assets     []AssetStatus `json:"assets,omitempty"`
	Missing    []string      `json:"missing,omitempty"`
	Anomalies  []string      `json:"anomalies,omitempty"`
	OutOfRange []string      `json:"out_of_range,omitempty"`
	ExitCode   int           `json:"exit_code"`
	Error      string        `json:"error,omitempty"`
}

// Monitor audits the latest row of the primary log. It only ever reads.
type Monitor struct {
	catalog *models.AssetCatalog
	cfg     MonitorConfig
	metrics drepo.Metrics
	log     *logger.Logger
}

func NewMonitor(catalog *models.AssetCatalog, cfg MonitorConfig, metrics drepo.Metrics, log *logger.Logger) *Monitor {
	if cfg.TimestampColumn == "" {
		cfg.TimestampColumn = "timestamp_jst"
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Monitor{
		catalog: catalog,
		cfg:     cfg,
		metrics: metricsOrNoop(metrics),
		log:     log.With(logger.String("component", "monitor")),
	}
}

// Check reads path and evaluates it. The returned error is non-nil only for
// NoFile, EmptyFile and Unparseable; the report is always usable.
func (m *Monitor) Check(path string) (*Report, error) {
	rep := &Report{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return m.fail(rep, models.ReasonNoFile, err)
		}
		return m.fail(rep, models.ReasonUnparseable, err)
	}
	data = util.TrimBOM(data)
	if len(bytes.TrimSpace(data)) == 0 {
		return m.fail(rep, models.ReasonEmptyFile, nil)
	}

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return m.fail(rep, models.ReasonUnparseable, err)
	}
	if len(rows) < 2 {
		return m.fail(rep, models.ReasonEmptyFile, nil)
	}
	return m.evaluate(rep, rows[0], rows[1:]), nil
}

func (m *Monitor) fail(rep *Report, reason string, err error) (*Report, error) {
	f := models.NewFailure(models.ClassMonitor, reason, err)
	rep.State = reason
	rep.ExitCode = 1
	rep.Error = f.Error()
	m.log.Error("monitor check failed", logger.String("path", rep.Path), logger.String("reason", reason), logger.Error(err))
	return rep, f
}

func (m *Monitor) evaluate(rep *Report, header []string, rows [][]string) *Report {
	view := models.NewLogView(header)
	last := rows[len(rows)-1]

	rep.State = "ok"
	rep.Latest, _ = view.Get(last, m.cfg.TimestampColumn)
	if rep.Latest == "" {
		rep.Latest = "Unknown"
	}
	rep.RunID, _ = view.Get(last, "run_id")

	for _, spec := range m.catalog.Assets() {
		st := AssetStatus{Name: spec.Name}
		st.Value, st.Raw, st.Missing = view.AssetValue(last, spec.Name)
		st.Date, _ = view.Get(last, spec.Name+"_date")
		st.Fail, _ = view.Get(last, spec.Name+"_fail")

		if st.Missing {
			rep.Missing = append(rep.Missing, spec.Name)
		} else {
			m.checkDeviation(&st, spec, view, rows[:len(rows)-1])
			if !spec.InRange(st.Value) {
				st.OutOfRange = true
				st.Detail = strings.TrimSpace(st.Detail + fmt.Sprintf(" out_of_range=[%g, %g]", spec.Range[0], spec.Range[1]))
				rep.OutOfRange = append(rep.OutOfRange, spec.Name)
			}
			if st.Anomalous {
				rep.Anomalies = append(rep.Anomalies, spec.Name)
			}
		}
		m.metrics.RecordMonitorStatus(spec.Name, st.Missing, st.Anomalous || st.OutOfRange)
		rep.Assets = append(rep.Assets, st)
	}

	switch {
	case len(rep.Missing) > 0:
		rep.ExitCode = 1
	case m.cfg.AnomalyFatal && len(rep.Anomalies) > 0:
		rep.ExitCode = 1
	case m.cfg.RangeFatal && len(rep.OutOfRange) > 0:
		rep.ExitCode = 1
	}

	m.log.Info("monitor check complete",
		logger.String("path", rep.Path),
		logger.String("latest", rep.Latest),
		logger.Strings("missing", rep.Missing),
		logger.Strings("anomalies", rep.Anomalies),
		logger.Strings("out_of_range", rep.OutOfRange),
		logger.Int("exit_code", rep.ExitCode),
	)
	return rep
}

// checkDeviation compares against the most recent earlier row in which the
// asset was not missing. Only a deviation strictly above the threshold counts.
func (m *Monitor) checkDeviation(st *AssetStatus, spec models.AssetSpec, view *models.LogView, history [][]string) {
	if spec.AnomalyThresholdPct <= 0 {
		return
	}
	for i := len(history) - 1; i >= 0; i-- {
		prev, _, missing := view.AssetValue(history[i], spec.Name)
		if missing {
			continue
		}
		dev, ok := deviation(prev, st.Value)
		if !ok {
			return
		}
		st.PrevGood = prev
		if dev.GreaterThan(decimal.NewFromFloat(spec.AnomalyThresholdPct)) {
			st.Anomalous = true
			st.Detail = describeDeviation(dev, prev, st.Value, spec.AnomalyThresholdPct)
		}
		return
	}
}

// Render writes the human-readable report.
func (r *Report) Render(w io.Writer) {
	line := strings.Repeat("=", 60)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "Market Monitor")
	fmt.Fprintln(w, line)
	if r.State != "ok" {
		fmt.Fprintf(w, "[ERROR] %s: %s\n", r.State, r.Path)
		if r.Error != "" {
			fmt.Fprintf(w, "        %s\n", r.Error)
		}
		return
	}

	if r.RunID != "" {
		fmt.Fprintf(w, "[ Latest ] %s (run %s)\n", r.Latest, r.RunID)
	} else {
		fmt.Fprintf(w, "[ Latest ] %s\n", r.Latest)
	}
	for _, a := range r.Assets {
		status := "OK"
		switch {
		case a.Missing:
			status = "MISSING"
		case a.Anomalous || a.OutOfRange:
			status = "ANOMALY"
		}
		date := a.Date
		if date == "" {
			date = "nan"
		}
		fmt.Fprintf(w, " - %-6s: %14.6f (%s) date=%s\n", a.Name, a.Value, status, date)
		if a.Detail != "" {
			fmt.Fprintf(w, "   %s\n", a.Detail)
		}
		if a.Fail != "" && a.Fail != "nan" {
			fmt.Fprintf(w, "   Warning: %s_fail: %s\n", a.Name, a.Fail)
		}
	}

	bang := strings.Repeat("!", 60)
	if len(r.OutOfRange) > 0 {
		fmt.Fprintf(w, "\n%s\nOut of range: %s\n", bang, strings.Join(r.OutOfRange, ", "))
	}
	if len(r.Anomalies) > 0 {
		fmt.Fprintf(w, "\n%s\nDeviation above threshold: %s\n", bang, strings.Join(r.Anomalies, ", "))
	}
	if len(r.Missing) > 0 {
		fmt.Fprintf(w, "\n%s\nMissing: %s\n", bang, strings.Join(r.Missing, ", "))
	}
	if r.ExitCode == 0 {
		fmt.Fprintln(w, "\nAll OK")
		return
	}
	fmt.Fprintf(w, "exit code %d\n%s\n", r.ExitCode, bang)
}
