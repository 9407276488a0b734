package usecase

import drepo "MarketLog/internal/domain/repository"

type noopMetrics struct{}

func (noopMetrics) RecordAttempt(string, int, int) {}
func (noopMetrics) RecordAssetResult(string, bool, float64) {}
func (noopMetrics) RecordAnomaly(string) {}
func (noopMetrics) RecordQuarantine(string) {}
func (noopMetrics) RecordSinkError(string) {}
func (noopMetrics) RecordRunDuration(float64) {}
func (noopMetrics) RecordMonitorStatus(string, bool, bool) {}

func metricsOrNoop(m drepo.Metrics) drepo.Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
