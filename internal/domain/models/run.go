package models

import (
	"strconv"
	"time"
)

// Source tells where a FetchResult's value came from.
type Source string

const (
	SourceProvider Source = "provider"
	SourceMissing  Source = "missing"
)

// FetchResult is the per-asset outcome of one run.
type FetchResult struct {
	Asset         string  `json:"asset"`
	Symbol        string  `json:"symbol"`
	Value         float64 `json:"value"`
	OK            bool    `json:"ok"`
	Source        Source  `json:"source"`
	ObservedDate  string  `json:"observed_date,omitempty"`
	FailReason    string  `json:"fail_reason,omitempty"`
	Anomaly       bool    `json:"anomaly"`
	AnomalyDetail string  `json:"anomaly_detail,omitempty"`
	Attempts      int     `json:"attempts"`
}

// MissingResult is the placeholder for an asset that never resolved.
func MissingResult(asset AssetSpec, reason string, attempts int) FetchResult {
	if reason == "" {
		reason = ReasonUnknown
	}
	return FetchResult{
		Asset:      asset.Name,
		Symbol:     asset.Symbol,
		Value:      0,
		OK:         false,
		Source:     SourceMissing,
		FailReason: reason,
		Attempts:   attempts,
	}
}

// RunRecord is everything one invocation observed.
type RunRecord struct {
	RunID     string                 `json:"run_id"`
	Timestamp time.Time              `json:"timestamp"`
	Local     string                 `json:"timestamp_local"`
	Results   map[string]FetchResult `json:"results"`
}

// OKCount counts resolved assets.
func (r *RunRecord) OKCount() int {
	n := 0
	for _, res := range r.Results {
		if res.OK {
			n++
		}
	}
	return n
}

// AssetColumns returns the per-asset column names in write order.
func AssetColumns(name string) []string {
	return []string{name, name + "_missing", name + "_src", name + "_date", name + "_fail"}
}

// AssetCells renders a result into the cells matching AssetColumns.
func (r FetchResult) AssetCells() []string {
	missing := "1"
	if r.OK {
		missing = "0"
	}
	src := r.Source
	if src == "" {
		src = SourceMissing
	}
	return []string{
		strconv.FormatFloat(r.Value, 'f', -1, 64),
		missing,
		string(src),
		r.ObservedDate,
		r.FailReason,
	}
}

// RetryTrial is one attempt of the fetch loop.
type RetryTrial struct {
	RunID     string  `json:"run_id"`
	Timestamp string  `json:"timestamp_local"`
	Attempt   int     `json:"attempt"`
	Phase     string  `json:"phase"`
	Symbols   string  `json:"symbols"`
	OKCount   int     `json:"ok_count"`
	FailCount int     `json:"fail_count"`
	Error     string  `json:"error"`
	SleepSec  float64 `json:"sleep_sec"`
}

// TrialColumns is the fixed header of the retry-trial log.
var TrialColumns = []string{"run_id", "timestamp_local", "phase", "attempt", "symbols", "ok_count", "fail_count", "error", "sleep_sec"}

// Cells renders a trial in TrialColumns order.
func (t RetryTrial) Cells() []string {
	return []string{
		t.RunID,
		t.Timestamp,
		t.Phase,
		strconv.Itoa(t.Attempt),
		t.Symbols,
		strconv.Itoa(t.OKCount),
		strconv.Itoa(t.FailCount),
		t.Error,
		strconv.FormatFloat(t.SleepSec, 'f', 3, 64),
	}
}

// Probe phases.
const (
	PhasePre         = "pre"
	PhasePostFailure = "post-failure"
)

// Trial phases.
const (
	TrialBatch      = "batch"
	TrialIndividual = "individual"
)

// TransportEvidence captures what the provider endpoint looked like at a
// moment in the run, for diagnosing blocks and throttling.
type TransportEvidence struct {
	RunID        string            `json:"run_id"`
	Phase        string            `json:"phase"`
	Attempt      int               `json:"attempt"`
	URL          string            `json:"url"`
	StatusCode   *int              `json:"status_code"`
	ContentType  string            `json:"content_type"`
	Headers      map[string]string `json:"headers,omitempty"`
	BodyPreview  string            `json:"body_preview"`
	Error        string            `json:"error,omitempty"`
	TimestampUTC string            `json:"ts_utc"`
	ElapsedMS    int64             `json:"elapsed_ms"`
}
