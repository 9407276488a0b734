package usecase

import (
	"context"

	"MarketLog/internal/domain/models"
	drepo "MarketLog/internal/domain/repository"
	"MarketLog/pkg/logger"
)

// EvidenceRecorder runs the transport probe and appends what it saw. A nil
// recorder, or one without a prober, does nothing.
type EvidenceRecorder struct {
	prober drepo.Prober
	sink   drepo.EvidenceLog
	log    *logger.Logger
}

func NewEvidenceRecorder(prober drepo.Prober, sink drepo.EvidenceLog, log *logger.Logger) *EvidenceRecorder {
	if log == nil {
		log = logger.Nop()
	}
	return &EvidenceRecorder{prober: prober, sink: sink, log: log.With(logger.String("component", "evidence"))}
}

// Record probes once and appends every evidence record. Failures are logged only.
func (r *EvidenceRecorder) Record(ctx context.Context, runID, phase string, attempt int) {
	if r == nil || r.prober == nil || r.sink == nil {
		return
	}
	for _, ev := range r.prober.Probe(ctx, runID, phase, attempt) {
		if err := r.sink.AppendEvidence(ctx, ev); err != nil {
			r.log.Error("append evidence", logger.String("run_id", runID), logger.String("url", ev.URL), logger.Error(err))
		}
	}
}

// AfterFailure adapts the recorder to the fetcher's failed-attempt hook.
func (r *EvidenceRecorder) AfterFailure() AttemptHook {
	return func(ctx context.Context, runID string, attempt int) {
		r.Record(ctx, runID, models.PhasePostFailure, attempt)
	}
}
