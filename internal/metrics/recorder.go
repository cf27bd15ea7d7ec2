package metrics

import "time"

// ResultLabel enumerates per-page export outcomes for counters.
type ResultLabel string

const (
	ResultExported ResultLabel = "exported"
	ResultSkipped  ResultLabel = "skipped"
	ResultFailed   ResultLabel = "failed"
)

// Recorder defines observability hooks for export runs. Implementations may
// forward to Prometheus, OpenTelemetry, etc. All methods must be safe on the
// NoopRecorder so injection stays optional.
type Recorder interface {
	ObserveExportDuration(d time.Duration)
	ObservePageDuration(d time.Duration)
	IncPageResult(result ResultLabel)
	IncImageDownload(success bool)
	IncAPIRequest(endpoint string)
	IncRetry(operation string)
	SetWorkerConcurrency(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not
// configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveExportDuration(time.Duration) {}
func (NoopRecorder) ObservePageDuration(time.Duration)   {}
func (NoopRecorder) IncPageResult(ResultLabel)           {}
func (NoopRecorder) IncImageDownload(bool)               {}
func (NoopRecorder) IncAPIRequest(string)                {}
func (NoopRecorder) IncRetry(string)                     {}
func (NoopRecorder) SetWorkerConcurrency(int)            {}
