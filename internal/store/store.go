// Package store defines the persistence interfaces for the crawl pipeline.
// Postgres implementations live in the postgres subpackage; the memory
// subpackage backs tests and database-less runs.
package store

import (
	"context"
	"errors"

	"github.com/kaykas/booth-beacon-app-sub000/internal/booth"
)

// ErrNotFound is returned when a keyed lookup matches nothing.
var ErrNotFound = errors.New("store: not found")

// FailureThreshold is the consecutive-failure count at which a source's
// status flips to error for operator triage. The source stays enabled.
const FailureThreshold = 3

// SourceRepository is the crawl source registry. All mutations are
// single-row idempotent updates keyed by source ID.
type SourceRepository interface {
	// ListEnabled returns enabled sources ordered by descending priority
	// then name, optionally filtered to an exact source name.
	ListEnabled(ctx context.Context, nameFilter string) ([]booth.Source, error)

	// Get returns one source row, ErrNotFound when absent.
	Get(ctx context.Context, id string) (booth.Source, error)

	// Checkpoint durably advances the resumption cursor after a batch.
	Checkpoint(ctx context.Context, id string, lastBatchPage, totalPagesTarget int, completed bool) error

	// ResetProgress zeroes the cursor and completion flag for a fresh crawl.
	ResetProgress(ctx context.Context, id string) error

	// RecordFailure increments the failure streak, stores the message, and
	// flips status to error at FailureThreshold.
	RecordFailure(ctx context.Context, id, message string) error

	// RecordSuccess clears the failure streak, stamps the crawl time, and
	// restores active status.
	RecordSuccess(ctx context.Context, id string, stats booth.CrawlStats) error

	// Seed inserts the source or updates its configuration columns,
	// leaving resumption state untouched on update.
	Seed(ctx context.Context, src booth.Source) error
}

// BoothRepository stores persisted entities keyed by normalized identity.
type BoothRepository interface {
	// FindByIdentity looks up a booth by its exact normalized identity
	// key parts. Returns ErrNotFound when no row matches.
	FindByIdentity(ctx context.Context, name, city, country string) (booth.Booth, error)

	// Insert stores a new booth and returns its assigned ID.
	Insert(ctx context.Context, b booth.Booth) (string, error)

	// Update rewrites the mutable columns of an existing booth.
	Update(ctx context.Context, b booth.Booth) error

	// Count returns the number of stored booths.
	Count(ctx context.Context) (int, error)
}

// MetricRepository appends batch audit rows. Rows are never mutated.
type MetricRepository interface {
	Record(ctx context.Context, m booth.CrawlMetric) error
}
