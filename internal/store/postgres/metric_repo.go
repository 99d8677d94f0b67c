package postgres

import (
	"context"
	"fmt"

	"github.com/kaykas/booth-beacon-app-sub000/internal/booth"
)

// MetricRepository implements store.MetricRepository on the append-only
// crawler_metrics table.
type MetricRepository struct {
	pool Pool
}

// NewMetricRepository builds a repository over an existing pool.
func NewMetricRepository(pool Pool) *MetricRepository {
	return &MetricRepository{pool: pool}
}

// Record implements store.MetricRepository.
func (r *MetricRepository) Record(ctx context.Context, m booth.CrawlMetric) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO crawler_metrics
			(run_id, source_id, batch_number, started_at, completed_at,
			 duration_ms, status, error_message, pages_crawled,
			 records_extracted, fetch_duration_ms, extraction_duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		m.RunID, m.SourceID, m.BatchNumber, m.StartedAt, m.CompletedAt,
		m.CompletedAt.Sub(m.StartedAt).Milliseconds(), string(m.Outcome),
		m.ErrorMessage, m.PagesCrawled, m.RecordsExtracted,
		m.FetchDuration.Milliseconds(), m.ExtractDuration.Milliseconds())
	if err != nil {
		return fmt.Errorf("record crawl metric for source %s: %w", m.SourceID, err)
	}
	return nil
}
