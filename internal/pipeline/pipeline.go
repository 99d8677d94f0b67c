// Package pipeline is the invocation surface for a crawl run: it selects
// due sources, drives the scheduler across them under one shared budget,
// and settles per-source health bookkeeping.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kaykas/booth-beacon-app-sub000/internal/booth"
	"github.com/kaykas/booth-beacon-app-sub000/internal/metrics"
	"github.com/kaykas/booth-beacon-app-sub000/internal/scheduler"
	"github.com/kaykas/booth-beacon-app-sub000/internal/store"
)

// Per-source run outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomePartial   = "partial"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Options select and shape one run.
type Options struct {
	// SourceName restricts the run to one source by exact name.
	SourceName string
	// Force recrawls completed sources from page zero regardless of their
	// crawl frequency.
	Force bool
}

// SourceReport is one source's slice of a run report.
type SourceReport struct {
	Source  string           `json:"source"`
	Outcome string           `json:"outcome"`
	Batches int              `json:"batches,omitempty"`
	Stats   booth.CrawlStats `json:"stats"`
	Note    string           `json:"note,omitempty"`
	Errors  []string         `json:"errors,omitempty"`
}

// RunReport summarizes a whole run.
type RunReport struct {
	RunID       string         `json:"run_id"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at"`
	TimedOut    bool           `json:"timed_out"`
	Sources     []SourceReport `json:"sources"`
	Pages       int            `json:"pages"`
	Extracted   int            `json:"extracted"`
	Upserted    int            `json:"upserted"`
}

// Pipeline runs crawls. Safe for sequential reuse; one run at a time.
type Pipeline struct {
	scheduler *scheduler.Scheduler
	sources   store.SourceRepository
	logger    *zap.Logger
	clock     func() time.Time
}

// New builds a Pipeline.
func New(sched *scheduler.Scheduler, sources store.SourceRepository, logger *zap.Logger) (*Pipeline, error) {
	if sched == nil {
		return nil, fmt.Errorf("scheduler is required")
	}
	if sources == nil {
		return nil, fmt.Errorf("source repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Pipeline{
		scheduler: sched,
		sources:   sources,
		logger:    logger,
		clock:     time.Now,
	}, nil
}

// SetClock overrides the timestamp source for tests.
func (p *Pipeline) SetClock(clock func() time.Time) {
	p.clock = clock
}

// Run crawls every due source under one shared execution budget. Source
// failures are recorded in the report and in the registry's failure streaks;
// they never abort the run. The returned error covers run-level problems
// only, such as the registry being unreadable.
func (p *Pipeline) Run(ctx context.Context, opts Options) (RunReport, error) {
	report := RunReport{
		RunID:     uuid.NewString(),
		StartedAt: p.clock(),
	}
	deadline := report.StartedAt.Add(p.scheduler.Budget())
	logger := p.logger.With(zap.String("run_id", report.RunID))

	sources, err := p.sources.ListEnabled(ctx, opts.SourceName)
	if err != nil {
		return report, fmt.Errorf("list sources: %w", err)
	}
	if opts.SourceName != "" && len(sources) == 0 {
		return report, fmt.Errorf("no enabled source named %q", opts.SourceName)
	}

	logger.Info("run starting",
		zap.Int("sources", len(sources)),
		zap.Time("deadline", deadline),
		zap.Bool("force", opts.Force),
	)

	for i, src := range sources {
		if report.TimedOut {
			report.Sources = append(report.Sources, SourceReport{
				Source:  src.Name,
				Outcome: OutcomeSkipped,
				Note:    "budget exhausted",
			})
			continue
		}

		src, due, note, err := p.prepare(ctx, src, opts.Force)
		if err != nil {
			return report, err
		}
		if !due {
			report.Sources = append(report.Sources, SourceReport{
				Source:  src.Name,
				Outcome: OutcomeSkipped,
				Note:    note,
			})
			continue
		}

		sr := p.crawlOne(ctx, src, report.RunID, deadline, logger)
		report.Sources = append(report.Sources, sr)
		report.Pages += sr.Stats.Pages
		report.Extracted += sr.Stats.Extracted
		report.Upserted += sr.Stats.Upserted

		if sr.Outcome == OutcomePartial {
			report.TimedOut = true
			logger.Info("budget exhausted mid-run",
				zap.String("source", src.Name),
				zap.Int("sources_remaining", len(sources)-i-1),
			)
		}
		if err := ctx.Err(); err != nil {
			report.CompletedAt = p.clock()
			return report, err
		}
	}

	report.CompletedAt = p.clock()
	metrics.ObserveRun(runOutcome(report))
	logger.Info("run finished",
		zap.Int("pages", report.Pages),
		zap.Int("extracted", report.Extracted),
		zap.Int("upserted", report.Upserted),
		zap.Bool("timed_out", report.TimedOut),
		zap.Duration("elapsed", report.CompletedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

// prepare decides whether a source is due and resets crawls that should
// start over: finished crawls past their frequency window, and any crawl a
// caller forces, including one still mid-flight. On a fresh start the
// cursor reset happens before any fetching so a crash cannot leave a stale
// cursor on a restarted crawl.
func (p *Pipeline) prepare(ctx context.Context, src booth.Source, force bool) (booth.Source, bool, string, error) {
	if !force {
		if !src.CrawlCompleted {
			// In-flight crawls always resume, frequency gating applies
			// only once a crawl has finished.
			return src, true, "", nil
		}
		if !p.isDue(src) {
			return src, false, "crawled recently", nil
		}
	}
	if err := p.sources.ResetProgress(ctx, src.ID); err != nil {
		return src, false, "", fmt.Errorf("reset source %s: %w", src.Name, err)
	}
	src.LastBatchPage = 0
	src.CrawlCompleted = false
	return src, true, "", nil
}

func (p *Pipeline) isDue(src booth.Source) bool {
	if src.LastCrawlAt == nil || src.CrawlFrequencyDays <= 0 {
		return true
	}
	age := p.clock().Sub(*src.LastCrawlAt)
	return age >= time.Duration(src.CrawlFrequencyDays)*24*time.Hour
}

func (p *Pipeline) crawlOne(ctx context.Context, src booth.Source, runID string, deadline time.Time, logger *zap.Logger) SourceReport {
	sr := SourceReport{Source: src.Name}

	result, err := p.scheduler.CrawlSource(ctx, src, runID, deadline)
	sr.Batches = result.Batches
	sr.Stats = result.Stats
	sr.Errors = result.Errors

	switch {
	case err != nil:
		sr.Outcome = OutcomeFailed
		sr.Note = err.Error()
		if recErr := p.sources.RecordFailure(ctx, src.ID, err.Error()); recErr != nil {
			logger.Warn("failure bookkeeping failed", zap.String("source", src.Name), zap.Error(recErr))
		}
	case result.TimedOut:
		sr.Outcome = OutcomePartial
	default:
		sr.Outcome = OutcomeCompleted
		if recErr := p.sources.RecordSuccess(ctx, src.ID, result.Stats); recErr != nil {
			logger.Warn("success bookkeeping failed", zap.String("source", src.Name), zap.Error(recErr))
		}
	}
	return sr
}

func runOutcome(report RunReport) string {
	if report.TimedOut {
		return "timeout"
	}
	for _, sr := range report.Sources {
		if sr.Outcome == OutcomeFailed {
			return "partial"
		}
	}
	return "success"
}
