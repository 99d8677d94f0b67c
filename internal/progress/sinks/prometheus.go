package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kaykas/booth-beacon-app-sub000/internal/progress"
)

// PrometheusSink exports progress milestones as Prometheus metrics. It
// owns the per-event collectors; aggregate pipeline collectors live in
// the metrics package.
type PrometheusSink struct {
	batchesStarted   *prometheus.CounterVec
	batchesCompleted *prometheus.CounterVec
	pagesCrawled     *prometheus.CounterVec
	recordsExtracted *prometheus.CounterVec
	batchDuration    *prometheus.HistogramVec
	sourcesCompleted *prometheus.CounterVec
}

// NewPrometheusSink registers the collectors against the provided
// registry (nil means the default registerer).
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		batchesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boothcrawl_batches_started_total",
			Help: "Batches started, partitioned by source.",
		}, []string{"source"}),
		batchesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boothcrawl_batches_completed_total",
			Help: "Batches finished, partitioned by source and outcome.",
		}, []string{"source", "outcome"}),
		pagesCrawled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boothcrawl_pages_crawled_total",
			Help: "Pages fetched per source.",
		}, []string{"source"}),
		recordsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boothcrawl_records_extracted_total",
			Help: "Raw records extracted per source.",
		}, []string{"source"}),
		batchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "boothcrawl_batch_duration_seconds",
			Help:    "Wall time per completed batch.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"source"}),
		sourcesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boothcrawl_sources_completed_total",
			Help: "Source crawls run to completion.",
		}, []string{"source"}),
	}
	for _, collector := range []prometheus.Collector{
		s.batchesStarted,
		s.batchesCompleted,
		s.pagesCrawled,
		s.recordsExtracted,
		s.batchDuration,
		s.sourcesCompleted,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates collectors from one event.
func (s *PrometheusSink) Consume(_ context.Context, evt progress.Event) error {
	switch evt.Kind {
	case progress.KindBatchStart:
		s.batchesStarted.WithLabelValues(evt.SourceName).Inc()
	case progress.KindBatchCrawled:
		s.pagesCrawled.WithLabelValues(evt.SourceName).Add(float64(evt.Pages))
	case progress.KindExtraction:
		s.recordsExtracted.WithLabelValues(evt.SourceName).Add(float64(evt.Records))
	case progress.KindBatchComplete:
		s.batchesCompleted.WithLabelValues(evt.SourceName, "success").Inc()
		s.batchDuration.WithLabelValues(evt.SourceName).Observe(evt.Dur.Seconds())
	case progress.KindBatchTimeout:
		s.batchesCompleted.WithLabelValues(evt.SourceName, "timeout").Inc()
	case progress.KindBatchError:
		s.batchesCompleted.WithLabelValues(evt.SourceName, "error").Inc()
	case progress.KindSourceComplete:
		s.sourcesCompleted.WithLabelValues(evt.SourceName).Inc()
	}
	return nil
}

// Close implements the Sink interface; collectors stay registered.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
