package repository

import (
	"context"

	"MarketLog/internal/domain/models"
)

// RunLog persists one row per run.
type RunLog interface {
	AppendRun(ctx context.Context, rec *models.RunRecord) error
}

// TrialLog persists one row per fetch attempt.
type TrialLog interface {
	AppendTrial(ctx context.Context, trial models.RetryTrial) error
}

// EvidenceLog persists transport probes.
type EvidenceLog interface {
	AppendEvidence(ctx context.Context, ev models.TransportEvidence) error
}

// Prober inspects the provider endpoint without going through the provider.
type Prober interface {
	Probe(ctx context.Context, runID, phase string, attempt int) []models.TransportEvidence
}

type Metrics interface {
	RecordAttempt(phase string, ok, failed int)
	RecordAssetResult(asset string, ok bool, value float64)
	RecordAnomaly(asset string)
	RecordQuarantine(reason string)
	RecordSinkError(sink string)
	RecordRunDuration(seconds float64)
	RecordMonitorStatus(asset string, missing, anomalous bool)
}
