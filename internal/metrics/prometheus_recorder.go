package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once              sync.Once
	exportDuration    prom.Histogram
	pageDuration      prom.Histogram
	pageResults       *prom.CounterVec
	imageDownloads    *prom.CounterVec
	apiRequests       *prom.CounterVec
	retries           *prom.CounterVec
	workerConcurrency prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.exportDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "confexport",
			Name:      "export_duration_seconds",
			Help:      "Total duration of export runs",
			Buckets:   prom.DefBuckets,
		})
		pr.pageDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "confexport",
			Name:      "page_duration_seconds",
			Help:      "Duration of individual page exports",
			Buckets:   prom.DefBuckets,
		})
		pr.pageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "confexport",
			Name:      "page_results_total",
			Help:      "Page export outcomes",
		}, []string{"result"})
		pr.imageDownloads = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "confexport",
			Name:      "image_downloads_total",
			Help:      "Attachment download results by success/failure",
		}, []string{"result"})
		pr.apiRequests = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "confexport",
			Name:      "api_requests_total",
			Help:      "Confluence API requests by endpoint",
		}, []string{"endpoint"})
		pr.retries = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "confexport",
			Name:      "retries_total",
			Help:      "Retried operations after transient failures",
		}, []string{"operation"})
		pr.workerConcurrency = prom.NewGauge(prom.GaugeOpts{
			Namespace: "confexport",
			Name:      "worker_concurrency",
			Help:      "Configured image download concurrency",
		})
		reg.MustRegister(pr.exportDuration, pr.pageDuration, pr.pageResults,
			pr.imageDownloads, pr.apiRequests, pr.retries, pr.workerConcurrency)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveExportDuration(d time.Duration) {
	if p == nil || p.exportDuration == nil {
		return
	}
	p.exportDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObservePageDuration(d time.Duration) {
	if p == nil || p.pageDuration == nil {
		return
	}
	p.pageDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPageResult(result ResultLabel) {
	if p == nil || p.pageResults == nil {
		return
	}
	p.pageResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncImageDownload(success bool) {
	if p == nil || p.imageDownloads == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.imageDownloads.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) IncAPIRequest(endpoint string) {
	if p == nil || p.apiRequests == nil {
		return
	}
	p.apiRequests.WithLabelValues(endpoint).Inc()
}

func (p *PrometheusRecorder) IncRetry(operation string) {
	if p == nil || p.retries == nil {
		return
	}
	p.retries.WithLabelValues(operation).Inc()
}

func (p *PrometheusRecorder) SetWorkerConcurrency(n int) {
	if p == nil || p.workerConcurrency == nil {
		return
	}
	p.workerConcurrency.Set(float64(n))
}
