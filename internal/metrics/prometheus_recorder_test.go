package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveExportDuration(500 * time.Millisecond)
	pr.ObservePageDuration(150 * time.Millisecond)
	pr.IncPageResult(ResultExported)
	pr.IncPageResult(ResultSkipped)
	pr.IncImageDownload(true)
	pr.IncImageDownload(false)
	pr.IncAPIRequest("content")
	pr.IncRetry("get_page")
	pr.SetWorkerConcurrency(4)
	// Basic scrape to ensure metrics encode without panic
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatalf("expected metrics, got none")
	}
}

func TestPrometheusRecorderNilSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.ObserveExportDuration(time.Second)
	pr.IncPageResult(ResultFailed)
	pr.SetWorkerConcurrency(1)
}
