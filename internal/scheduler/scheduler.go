// Package scheduler drives the resumable batch crawl loop for one source:
// fetch a window of pages, extract, ingest, checkpoint, repeat until the
// source is exhausted or the execution budget runs out.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kaykas/booth-beacon-app-sub000/internal/booth"
	"github.com/kaykas/booth-beacon-app-sub000/internal/cache"
	"github.com/kaykas/booth-beacon-app-sub000/internal/extract"
	"github.com/kaykas/booth-beacon-app-sub000/internal/fetch"
	"github.com/kaykas/booth-beacon-app-sub000/internal/hash"
	"github.com/kaykas/booth-beacon-app-sub000/internal/ingest"
	"github.com/kaykas/booth-beacon-app-sub000/internal/metrics"
	"github.com/kaykas/booth-beacon-app-sub000/internal/progress"
	"github.com/kaykas/booth-beacon-app-sub000/internal/retry"
	"github.com/kaykas/booth-beacon-app-sub000/internal/snapshot"
	"github.com/kaykas/booth-beacon-app-sub000/internal/store"
)

// fingerprintTTL bounds how long an unchanged-page fingerprint is trusted.
const fingerprintTTL = 30 * 24 * time.Hour

// Config bounds one crawl invocation.
type Config struct {
	// ExecutionBudget is the wall-clock allowance for the whole run.
	ExecutionBudget time.Duration
	// SafetyMargin is reserved headroom: no new batch starts once the
	// remaining budget drops below it.
	SafetyMargin time.Duration
}

// Deps are the collaborators a Scheduler drives. Fetcher, Resolver, Router,
// Sources, Metrics, and Upserter are required; the rest default to no-ops.
type Deps struct {
	Fetcher   fetch.Service
	Resolver  *fetch.DomainResolver
	Router    *extract.Router
	Sources   store.SourceRepository
	Metrics   store.MetricRepository
	Upserter  *ingest.Upserter
	Cache     cache.Service
	Snapshots snapshot.Store
	Emitter   progress.Emitter
	Logger    *zap.Logger
	Retry     *retry.Policy
	Clock     func() time.Time
}

// SourceResult reports how one source's crawl window ended.
type SourceResult struct {
	Source    booth.Source
	Stats     booth.CrawlStats
	Batches   int
	Completed bool
	TimedOut  bool
	Errors    []string
}

// Scheduler runs the batch loop. One Scheduler serves a whole run; it is
// not safe for concurrent use on the same source.
type Scheduler struct {
	deps Deps
	cfg  Config
}

// New builds a Scheduler, filling optional dependencies with no-ops.
func New(deps Deps, cfg Config) (*Scheduler, error) {
	switch {
	case deps.Fetcher == nil:
		return nil, fmt.Errorf("fetcher is required")
	case deps.Resolver == nil:
		return nil, fmt.Errorf("domain resolver is required")
	case deps.Router == nil:
		return nil, fmt.Errorf("extractor router is required")
	case deps.Sources == nil:
		return nil, fmt.Errorf("source repository is required")
	case deps.Metrics == nil:
		return nil, fmt.Errorf("metric repository is required")
	case deps.Upserter == nil:
		return nil, fmt.Errorf("upserter is required")
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewMemory()
	}
	if deps.Snapshots == nil {
		deps.Snapshots = snapshot.Nop{}
	}
	if deps.Emitter == nil {
		deps.Emitter = progress.NopEmitter{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Retry == nil {
		deps.Retry = retry.NewPolicy(3, 2*time.Second, 10*time.Second)
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if cfg.ExecutionBudget <= 0 {
		cfg.ExecutionBudget = 8 * time.Minute
	}
	if cfg.SafetyMargin <= 0 {
		cfg.SafetyMargin = 20 * time.Second
	}
	metrics.Init()
	return &Scheduler{deps: deps, cfg: cfg}, nil
}

// Budget returns the configured wall-clock allowance for a run.
func (s *Scheduler) Budget() time.Duration {
	return s.cfg.ExecutionBudget
}

// CrawlSource runs batch windows for one source until it is exhausted, the
// deadline minus the safety margin is reached, or a batch fails. The cursor
// is checkpointed after every completed batch, so a later run resumes where
// this one stopped. The returned error reflects a source-level failure;
// partial progress before it is already durable.
func (s *Scheduler) CrawlSource(ctx context.Context, src booth.Source, runID string, deadline time.Time) (SourceResult, error) {
	result := SourceResult{Source: src}
	tuning := s.deps.Resolver.Resolve(src.URL)
	logger := s.deps.Logger.With(
		zap.String("run_id", runID),
		zap.String("source", src.Name),
	)

	for {
		if err := ctx.Err(); err != nil {
			s.recordOutcome(src, runID, result.Batches+1, booth.BatchCancelled, err.Error(), booth.BatchResult{})
			return result, err
		}
		if remaining := deadline.Sub(s.deps.Clock()); remaining < s.cfg.SafetyMargin {
			result.TimedOut = true
			logger.Info("execution budget exhausted, stopping before next batch",
				zap.Duration("remaining", remaining),
				zap.Int("last_batch_page", src.LastBatchPage),
			)
			s.emit(progress.Event{
				Kind:       progress.KindBatchTimeout,
				TS:         s.deps.Clock(),
				RunID:      runID,
				SourceName: src.Name,
				Batch:      result.Batches + 1,
				Note:       "budget exhausted",
			})
			s.recordOutcome(src, runID, result.Batches+1, booth.BatchTimeout, "budget exhausted", booth.BatchResult{})
			return result, nil
		}

		batchNumber := result.Batches + 1
		startPage := src.LastBatchPage
		startedAt := s.deps.Clock()

		s.emit(progress.Event{
			Kind:       progress.KindBatchStart,
			TS:         startedAt,
			RunID:      runID,
			SourceName: src.Name,
			Batch:      batchNumber,
		})

		batch, fetchTime, err := s.fetchBatch(ctx, src, tuning, startPage)
		if err != nil {
			msg := fmt.Sprintf("batch %d fetch: %v", batchNumber, err)
			result.Errors = append(result.Errors, msg)
			s.recordOutcome(src, runID, batchNumber, booth.BatchError, msg, booth.BatchResult{FetchTime: fetchTime})
			s.emit(progress.Event{
				Kind:       progress.KindBatchError,
				TS:         s.deps.Clock(),
				RunID:      runID,
				SourceName: src.Name,
				Batch:      batchNumber,
				Note:       msg,
			})
			return result, fmt.Errorf("source %s: %s", src.Name, msg)
		}
		result.Batches = batchNumber

		if len(batch.Pages) == 0 {
			// The service walked past the last page: the source is
			// exhausted and the crawl is complete.
			if err := s.deps.Sources.Checkpoint(ctx, src.ID, startPage, batch.TotalPages, true); err != nil {
				return result, fmt.Errorf("checkpoint source %s: %w", src.Name, err)
			}
			src.CrawlCompleted = true
			result.Source = src
			result.Completed = true
			s.recordOutcome(src, runID, batchNumber, booth.BatchSuccess, "", booth.BatchResult{FetchTime: fetchTime})
			s.emit(progress.Event{
				Kind:       progress.KindSourceComplete,
				TS:         s.deps.Clock(),
				RunID:      runID,
				SourceName: src.Name,
				Batch:      batchNumber,
			})
			return result, nil
		}

		s.emit(progress.Event{
			Kind:       progress.KindBatchCrawled,
			TS:         s.deps.Clock(),
			RunID:      runID,
			SourceName: src.Name,
			Batch:      batchNumber,
			Pages:      len(batch.Pages),
			Dur:        fetchTime,
		})

		batchResult := s.extractBatch(ctx, src, runID, startPage, batch.Pages)
		batchResult.FetchTime = fetchTime

		s.emit(progress.Event{
			Kind:       progress.KindExtraction,
			TS:         s.deps.Clock(),
			RunID:      runID,
			SourceName: src.Name,
			Batch:      batchNumber,
			Pages:      batchResult.PagesProcessed,
			Records:    len(batchResult.Records),
			Dur:        batchResult.ExtractionTime,
		})

		report, err := s.deps.Upserter.Ingest(ctx, batchResult.Records)
		if err != nil {
			s.recordOutcome(src, runID, batchNumber, booth.BatchCancelled, err.Error(), batchResult)
			return result, err
		}
		result.Errors = append(result.Errors, batchResult.Errors...)
		result.Errors = append(result.Errors, report.Rejections...)
		result.Errors = append(result.Errors, report.Errors...)

		result.Stats.Pages += len(batch.Pages)
		result.Stats.Extracted += len(batchResult.Records)
		result.Stats.Upserted += report.Inserted + report.Updated

		newCursor := startPage + len(batch.Pages)
		completed := len(batch.Pages) < tuning.PageLimit ||
			(batch.TotalPages > 0 && newCursor >= batch.TotalPages)

		if err := s.deps.Sources.Checkpoint(ctx, src.ID, newCursor, batch.TotalPages, completed); err != nil {
			return result, fmt.Errorf("checkpoint source %s: %w", src.Name, err)
		}
		// Fingerprints go in only once the cursor covers their pages; a
		// re-fetch of an uncommitted batch must extract again, not skip.
		s.commitFingerprints(ctx, batchResult.Fingerprints, logger)
		src.LastBatchPage = newCursor
		if batch.TotalPages > 0 {
			src.TotalPagesTarget = batch.TotalPages
		}
		src.CrawlCompleted = completed
		result.Source = src

		s.recordOutcome(src, runID, batchNumber, booth.BatchSuccess, "", batchResult)
		s.emit(progress.Event{
			Kind:       progress.KindBatchComplete,
			TS:         s.deps.Clock(),
			RunID:      runID,
			SourceName: src.Name,
			Batch:      batchNumber,
			Pages:      len(batch.Pages),
			Records:    len(batchResult.Records),
			Dur:        s.deps.Clock().Sub(startedAt),
		})

		logger.Info("batch complete",
			zap.Int("batch", batchNumber),
			zap.Int("pages", len(batch.Pages)),
			zap.Int("unchanged", batchResult.PagesUnchanged),
			zap.Int("records", len(batchResult.Records)),
			zap.Int("cursor", newCursor),
			zap.Bool("completed", completed),
		)

		if completed {
			result.Completed = true
			s.emit(progress.Event{
				Kind:       progress.KindSourceComplete,
				TS:         s.deps.Clock(),
				RunID:      runID,
				SourceName: src.Name,
				Batch:      batchNumber,
			})
			return result, nil
		}
	}
}

// fetchBatch asks the fetch service for one page window, retrying transient
// failures under the policy. Permanent failures surface immediately.
func (s *Scheduler) fetchBatch(ctx context.Context, src booth.Source, tuning fetch.Tuning, startPage int) (fetch.Batch, time.Duration, error) {
	var batch fetch.Batch
	start := s.deps.Clock()
	err := s.deps.Retry.Do(ctx, func(ctx context.Context) error {
		var fetchErr error
		batch, fetchErr = s.deps.Fetcher.FetchPages(ctx, fetch.Request{
			URL:            src.URL,
			StartPage:      startPage,
			PageLimit:      tuning.PageLimit,
			PerPageTimeout: tuning.PerPageTimeout,
			RenderWait:     tuning.RenderWait,
		})
		if fetchErr != nil && !fetch.IsRetryable(fetchErr) {
			return retry.MarkPermanent(fetchErr)
		}
		return fetchErr
	})
	elapsed := s.deps.Clock().Sub(start)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.ObserveFetch(src.URL, outcome, elapsed)
	return batch, elapsed, err
}

// extractBatch routes each fetched page through the extractor for the
// source's declared type. Pages whose content fingerprint matches the
// previous crawl are skipped; extraction failures become batch errors, not
// loop aborts.
func (s *Scheduler) extractBatch(ctx context.Context, src booth.Source, runID string, startPage int, pages []fetch.Page) booth.BatchResult {
	var result booth.BatchResult
	extractStart := s.deps.Clock()

	for i, page := range pages {
		pageNumber := startPage + i + 1
		fingerprint := hash.Content(page.HTML, page.Markdown)
		cacheKey := fmt.Sprintf("pagehash:%s:%d", src.ID, pageNumber)

		if prev, ok, err := s.deps.Cache.Get(ctx, cacheKey); err != nil {
			result.AddError(fmt.Sprintf("page %d cache read: %v", pageNumber, err))
		} else if ok && prev == fingerprint {
			result.PagesUnchanged++
			result.PagesProcessed++
			continue
		}

		s.snapshotPage(ctx, src, runID, pageNumber, page, &result)

		out := s.deps.Router.Route(extract.Input{
			HTML:       page.HTML,
			Markdown:   page.Markdown,
			SourceURL:  page.URL,
			SourceName: src.Name,
		}, src.ExtractorType)

		result.Records = append(result.Records, out.Records...)
		result.Errors = append(result.Errors, out.Errors...)
		result.PagesProcessed++
		result.TotalFound += out.Metadata.TotalFound
		result.Fingerprints = append(result.Fingerprints, booth.PageFingerprint{Key: cacheKey, Value: fingerprint})
	}

	result.ExtractionTime = s.deps.Clock().Sub(extractStart)
	return result
}

// commitFingerprints writes the batch's page hashes to the cache. Write
// failures cost only a redundant re-extraction next run, so they are
// logged and dropped.
func (s *Scheduler) commitFingerprints(ctx context.Context, prints []booth.PageFingerprint, logger *zap.Logger) {
	for _, fp := range prints {
		if err := s.deps.Cache.Set(ctx, fp.Key, fp.Value, fingerprintTTL); err != nil {
			logger.Warn("page fingerprint write failed",
				zap.String("key", fp.Key),
				zap.Error(err),
			)
		}
	}
}

func (s *Scheduler) snapshotPage(ctx context.Context, src booth.Source, runID string, pageNumber int, page fetch.Page, result *booth.BatchResult) {
	if page.HTML != "" {
		key := snapshot.PageKey(src.Name, runID, pageNumber, "html")
		if _, err := s.deps.Snapshots.Save(ctx, key, "text/html", strings.NewReader(page.HTML)); err != nil {
			result.AddError(fmt.Sprintf("page %d snapshot: %v", pageNumber, err))
		}
	}
	if page.Markdown != "" {
		key := snapshot.PageKey(src.Name, runID, pageNumber, "md")
		if _, err := s.deps.Snapshots.Save(ctx, key, "text/markdown", strings.NewReader(page.Markdown)); err != nil {
			result.AddError(fmt.Sprintf("page %d snapshot: %v", pageNumber, err))
		}
	}
}

// recordOutcome appends the batch audit row. Metric persistence failures
// are logged, never propagated: losing an audit row must not fail a crawl.
func (s *Scheduler) recordOutcome(src booth.Source, runID string, batchNumber int, outcome booth.BatchOutcome, message string, br booth.BatchResult) {
	now := s.deps.Clock()
	metric := booth.CrawlMetric{
		RunID:            runID,
		SourceID:         src.ID,
		BatchNumber:      batchNumber,
		StartedAt:        now.Add(-br.FetchTime - br.ExtractionTime),
		CompletedAt:      now,
		Outcome:          outcome,
		ErrorMessage:     message,
		PagesCrawled:     br.PagesProcessed,
		RecordsExtracted: len(br.Records),
		FetchDuration:    br.FetchTime,
		ExtractDuration:  br.ExtractionTime,
	}
	if err := s.deps.Metrics.Record(context.Background(), metric); err != nil {
		s.deps.Logger.Warn("crawl metric write failed",
			zap.String("source", src.Name),
			zap.Int("batch", batchNumber),
			zap.Error(err),
		)
	}
}

func (s *Scheduler) emit(evt progress.Event) {
	s.deps.Emitter.Emit(evt)
}
