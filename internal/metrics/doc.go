// Package metrics provides observability hooks for export runs.
//
// It follows the Null Object pattern: components receive a Recorder through
// dependency injection and default to NoopRecorder, so metrics collection
// needs no nil checks and costs nothing when disabled. The daemon swaps in
// PrometheusRecorder and serves the registry over HTTP; one-shot CLI runs
// keep the noop.
package metrics
