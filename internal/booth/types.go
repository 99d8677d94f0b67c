// Package booth defines the core data model shared by the crawl pipeline:
// registry sources, extracted candidate records, persisted booth entities,
// and per-batch audit metrics.
package booth

import "time"

// SourceStatus is the health marker of a registry source. It is distinct
// from Enabled: an errored source stays enabled and keeps being attempted.
type SourceStatus string

// Source health states.
const (
	SourceStatusActive SourceStatus = "active"
	SourceStatusError  SourceStatus = "error"
)

// RecordStatus classifies a booth's operational verification state.
type RecordStatus string

// Booth record states.
const (
	RecordStatusActive     RecordStatus = "active"
	RecordStatusInactive   RecordStatus = "inactive"
	RecordStatusUnverified RecordStatus = "unverified"
)

// Source is one row of the crawl source registry. Its resumption fields
// (LastBatchPage, TotalPagesTarget, CrawlCompleted) carry the durable
// cursor a later run continues from.
type Source struct {
	ID                  string       `json:"id"`
	Name                string       `json:"name"`
	URL                 string       `json:"url"`
	ExtractorType       string       `json:"extractor_type"`
	Enabled             bool         `json:"enabled"`
	Priority            int          `json:"priority"`
	CrawlFrequencyDays  int          `json:"crawl_frequency_days"`
	LastCrawlAt         *time.Time   `json:"last_crawl_at,omitempty"`
	LastBatchPage       int          `json:"last_batch_page"`
	TotalPagesTarget    int          `json:"total_pages_target"`
	CrawlCompleted      bool         `json:"crawl_completed"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	Status              SourceStatus `json:"status"`
	LastErrorMessage    string       `json:"last_error_message,omitempty"`
}

// ExtractedBooth is an untrusted candidate record produced by an extractor.
// It only becomes a Booth after validation and deduplication.
type ExtractedBooth struct {
	Name          string
	Address       string
	City          string
	State         string
	Country       string
	PostalCode    string
	Latitude      float64
	Longitude     float64
	MachineType   string
	MachineCount  int
	Cost          string
	Hours         string
	IsOperational bool
	Status        RecordStatus
	Description   string
	Website       string
	Phone         string
	SourceName    string
	SourceURL     string
}

// Booth is a persisted directory entity. SourceNames and SourceURLs are
// append-only provenance sets recording every source that reported it.
type Booth struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Address       string       `json:"address"`
	City          string       `json:"city"`
	State         string       `json:"state,omitempty"`
	Country       string       `json:"country"`
	PostalCode    string       `json:"postal_code,omitempty"`
	Latitude      float64      `json:"latitude,omitempty"`
	Longitude     float64      `json:"longitude,omitempty"`
	MachineType   string       `json:"machine_type,omitempty"`
	MachineCount  int          `json:"machine_count,omitempty"`
	Cost          string       `json:"cost,omitempty"`
	Hours         string       `json:"hours,omitempty"`
	IsOperational bool         `json:"is_operational"`
	Status        RecordStatus `json:"status"`
	Description   string       `json:"description,omitempty"`
	Website       string       `json:"website,omitempty"`
	Phone         string       `json:"phone,omitempty"`
	SourceNames   []string     `json:"source_names"`
	SourceURLs    []string     `json:"source_urls"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// BatchOutcome labels how one batch window ended.
type BatchOutcome string

// Batch outcomes.
const (
	BatchSuccess   BatchOutcome = "success"
	BatchError     BatchOutcome = "error"
	BatchTimeout   BatchOutcome = "timeout"
	BatchCancelled BatchOutcome = "cancelled"
)

// PageFingerprint pairs an unchanged-page cache key with the content hash
// of a freshly extracted page. Fingerprints are held here until the batch
// checkpoint commits; writing them earlier would let a later run skip
// pages whose records were never persisted.
type PageFingerprint struct {
	Key   string
	Value string
}

// BatchResult aggregates one batch window of fetching and extraction. It is
// transient: the durable trace of a batch is its CrawlMetric row.
type BatchResult struct {
	Records        []ExtractedBooth
	Errors         []string
	Fingerprints   []PageFingerprint
	PagesProcessed int
	PagesUnchanged int
	TotalFound     int
	FetchTime      time.Duration
	ExtractionTime time.Duration
}

// AddError appends a non-fatal error description to the batch.
func (r *BatchResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// CrawlMetric is one immutable audit row describing a completed batch.
type CrawlMetric struct {
	RunID            string
	SourceID         string
	BatchNumber      int
	StartedAt        time.Time
	CompletedAt      time.Time
	Outcome          BatchOutcome
	ErrorMessage     string
	PagesCrawled     int
	RecordsExtracted int
	FetchDuration    time.Duration
	ExtractDuration  time.Duration
}

// CrawlStats summarizes a full source crawl for status reporting.
type CrawlStats struct {
	Pages     int
	Extracted int
	Upserted  int
}
