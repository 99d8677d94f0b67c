package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kaykas/booth-beacon-app-sub000/internal/booth"
	"github.com/kaykas/booth-beacon-app-sub000/internal/store"
)

// SourceRepository implements store.SourceRepository on the crawl_sources
// table (see migrations/001_init.sql).
type SourceRepository struct {
	pool Pool
}

// NewSourceRepository builds a repository over an existing pool.
func NewSourceRepository(pool Pool) *SourceRepository {
	return &SourceRepository{pool: pool}
}

const sourceColumns = `id, name, url, extractor_type, enabled, priority,
	crawl_frequency_days, last_crawl_at, last_batch_page, total_pages_target,
	crawl_completed, consecutive_failures, status, last_error_message`

func scanSource(row pgx.Row) (booth.Source, error) {
	var src booth.Source
	err := row.Scan(
		&src.ID, &src.Name, &src.URL, &src.ExtractorType, &src.Enabled,
		&src.Priority, &src.CrawlFrequencyDays, &src.LastCrawlAt,
		&src.LastBatchPage, &src.TotalPagesTarget, &src.CrawlCompleted,
		&src.ConsecutiveFailures, &src.Status, &src.LastErrorMessage,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return booth.Source{}, store.ErrNotFound
	}
	if err != nil {
		return booth.Source{}, fmt.Errorf("scan source: %w", err)
	}
	return src, nil
}

// ListEnabled implements store.SourceRepository.
func (r *SourceRepository) ListEnabled(ctx context.Context, nameFilter string) ([]booth.Source, error) {
	query := `SELECT ` + sourceColumns + `
		FROM crawl_sources
		WHERE enabled`
	args := []any{}
	if nameFilter != "" {
		query += ` AND name = $1`
		args = append(args, nameFilter)
	}
	query += ` ORDER BY priority DESC, name ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list enabled sources: %w", err)
	}
	defer rows.Close()

	var sources []booth.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	return sources, nil
}

// Get implements store.SourceRepository.
func (r *SourceRepository) Get(ctx context.Context, id string) (booth.Source, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sourceColumns+` FROM crawl_sources WHERE id = $1`, id)
	return scanSource(row)
}

// Checkpoint implements store.SourceRepository. The cursor write is the
// batch's durability point; total_pages_target only ever grows from the
// fetch service's reports.
func (r *SourceRepository) Checkpoint(ctx context.Context, id string, lastBatchPage, totalPagesTarget int, completed bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE crawl_sources
		SET last_batch_page = $2,
			total_pages_target = CASE WHEN $3 > 0 THEN $3 ELSE total_pages_target END,
			crawl_completed = $4
		WHERE id = $1`,
		id, lastBatchPage, totalPagesTarget, completed)
	if err != nil {
		return fmt.Errorf("checkpoint source %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ResetProgress implements store.SourceRepository.
func (r *SourceRepository) ResetProgress(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE crawl_sources
		SET last_batch_page = 0, crawl_completed = FALSE
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("reset source %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// RecordFailure implements store.SourceRepository.
func (r *SourceRepository) RecordFailure(ctx context.Context, id, message string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE crawl_sources
		SET consecutive_failures = consecutive_failures + 1,
			last_error_message = $2,
			status = CASE WHEN consecutive_failures + 1 >= $3 THEN 'error' ELSE status END
		WHERE id = $1`,
		id, message, store.FailureThreshold)
	if err != nil {
		return fmt.Errorf("record failure for source %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// RecordSuccess implements store.SourceRepository.
func (r *SourceRepository) RecordSuccess(ctx context.Context, id string, _ booth.CrawlStats) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE crawl_sources
		SET consecutive_failures = 0,
			last_error_message = '',
			status = 'active',
			last_crawl_at = NOW()
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("record success for source %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Seed implements store.SourceRepository. Configuration columns update on
// conflict; resumption state is left alone so re-seeding cannot lose a
// cursor.
func (r *SourceRepository) Seed(ctx context.Context, src booth.Source) error {
	status := src.Status
	if status == "" {
		status = booth.SourceStatusActive
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO crawl_sources
			(id, name, url, extractor_type, enabled, priority, crawl_frequency_days, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			url = EXCLUDED.url,
			extractor_type = EXCLUDED.extractor_type,
			enabled = EXCLUDED.enabled,
			priority = EXCLUDED.priority,
			crawl_frequency_days = EXCLUDED.crawl_frequency_days`,
		src.ID, src.Name, src.URL, src.ExtractorType, src.Enabled,
		src.Priority, src.CrawlFrequencyDays, status)
	if err != nil {
		return fmt.Errorf("seed source %s: %w", src.ID, err)
	}
	return nil
}
