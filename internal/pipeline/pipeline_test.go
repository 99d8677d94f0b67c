package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kaykas/booth-beacon-app-sub000/internal/booth"
	"github.com/kaykas/booth-beacon-app-sub000/internal/extract"
	"github.com/kaykas/booth-beacon-app-sub000/internal/fetch"
	"github.com/kaykas/booth-beacon-app-sub000/internal/ingest"
	"github.com/kaykas/booth-beacon-app-sub000/internal/retry"
	"github.com/kaykas/booth-beacon-app-sub000/internal/scheduler"
	"github.com/kaykas/booth-beacon-app-sub000/internal/store/memory"
)

// stubFetcher serves synthetic pages per source URL, optionally failing
// configured URLs.
type stubFetcher struct {
	totalPages int
	failURLs   map[string]error
	perCall    func()

	mu    sync.Mutex
	calls map[string]int
}

func (f *stubFetcher) FetchPages(_ context.Context, req fetch.Request) (fetch.Batch, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[req.URL]++
	f.mu.Unlock()

	if f.perCall != nil {
		f.perCall()
	}
	if err, ok := f.failURLs[req.URL]; ok {
		return fetch.Batch{}, err
	}

	var pages []fetch.Page
	for p := req.StartPage; p < req.StartPage+req.PageLimit && p < f.totalPages; p++ {
		pages = append(pages, fetch.Page{
			URL:  fmt.Sprintf("%s?page=%d", req.URL, p+1),
			HTML: fmt.Sprintf("page %d", p+1),
		})
	}
	return fetch.Batch{Pages: pages, TotalPages: f.totalPages}, nil
}

type stubExtractor struct{}

func (stubExtractor) Type() string { return "stub" }

func (stubExtractor) Extract(input extract.Input) extract.Result {
	return extract.Result{
		Records: []booth.ExtractedBooth{{
			Name:       "Booth " + input.SourceURL,
			Address:    "12 Example St",
			City:       "Berlin",
			Country:    "Germany",
			SourceName: input.SourceName,
			SourceURL:  input.SourceURL,
		}},
	}
}

type env struct {
	pipeline *Pipeline
	fetcher  *stubFetcher
	sources  *memory.SourceRepository
	booths   *memory.BoothRepository
	clock    time.Time
}

func newEnv(t *testing.T, fetcher *stubFetcher, budget time.Duration) *env {
	t.Helper()
	sources := memory.NewSourceRepository()
	booths := memory.NewBoothRepository()

	upserter, err := ingest.NewUpserter(booths, zap.NewNop())
	require.NoError(t, err)

	noSleep := retry.WithSleeper(func(context.Context, time.Duration) error { return nil })
	e := &env{
		fetcher: fetcher,
		sources: sources,
		booths:  booths,
		clock:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	sched, err := scheduler.New(scheduler.Deps{
		Fetcher:  fetcher,
		Resolver: fetch.NewDomainResolver(fetch.Tuning{PageLimit: 2, PerPageTimeout: time.Second}, nil),
		Router:   extract.NewRouter(zap.NewNop(), stubExtractor{}),
		Sources:  sources,
		Metrics:  memory.NewMetricRepository(),
		Upserter: upserter,
		Retry:    retry.NewPolicy(3, time.Millisecond, time.Millisecond, noSleep),
		Clock:    func() time.Time { return e.clock },
	}, scheduler.Config{ExecutionBudget: budget, SafetyMargin: 20 * time.Second})
	require.NoError(t, err)

	p, err := New(sched, sources, zap.NewNop())
	require.NoError(t, err)
	p.SetClock(func() time.Time { return e.clock })
	e.pipeline = p
	return e
}

func seed(t *testing.T, e *env, src booth.Source) {
	t.Helper()
	if src.ExtractorType == "" {
		src.ExtractorType = "stub"
	}
	src.Enabled = true
	require.NoError(t, e.sources.Seed(context.Background(), src))
}

func TestRunCrawlsAllEnabledSources(t *testing.T) {
	e := newEnv(t, &stubFetcher{totalPages: 3}, time.Hour)
	seed(t, e, booth.Source{ID: "a", Name: "alpha", URL: "https://alpha.example/booths"})
	seed(t, e, booth.Source{ID: "b", Name: "beta", URL: "https://beta.example/booths"})

	report, err := e.pipeline.Run(context.Background(), Options{})
	require.NoError(t, err)

	require.Len(t, report.Sources, 2)
	for _, sr := range report.Sources {
		assert.Equal(t, OutcomeCompleted, sr.Outcome)
	}
	assert.Equal(t, 6, report.Pages)
	assert.Equal(t, 6, report.Upserted)
	assert.NotEmpty(t, report.RunID)
	assert.False(t, report.TimedOut)

	src, err := e.sources.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, src.CrawlCompleted)
	assert.NotNil(t, src.LastCrawlAt)
	assert.Zero(t, src.ConsecutiveFailures)
}

func TestRunSourceFailureDoesNotAbortRun(t *testing.T) {
	fetcher := &stubFetcher{
		totalPages: 3,
		failURLs: map[string]error{
			"https://alpha.example/booths": &fetch.Error{Kind: fetch.KindAuth, URL: "https://alpha.example/booths", Err: fmt.Errorf("401")},
		},
	}
	e := newEnv(t, fetcher, time.Hour)
	seed(t, e, booth.Source{ID: "a", Name: "alpha", URL: "https://alpha.example/booths", Priority: 10})
	seed(t, e, booth.Source{ID: "b", Name: "beta", URL: "https://beta.example/booths"})

	report, err := e.pipeline.Run(context.Background(), Options{})
	require.NoError(t, err)

	require.Len(t, report.Sources, 2)
	assert.Equal(t, OutcomeFailed, report.Sources[0].Outcome)
	assert.Equal(t, OutcomeCompleted, report.Sources[1].Outcome)

	src, err := e.sources.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 1, src.ConsecutiveFailures)
	assert.Equal(t, booth.SourceStatusActive, src.Status)
	assert.True(t, src.Enabled)
}

func TestFailureStreakFlipsStatusButKeepsSourceEnabled(t *testing.T) {
	fetcher := &stubFetcher{
		totalPages: 3,
		failURLs: map[string]error{
			"https://alpha.example/booths": &fetch.Error{Kind: fetch.KindAuth, URL: "https://alpha.example/booths", Err: fmt.Errorf("401")},
		},
	}
	e := newEnv(t, fetcher, time.Hour)
	seed(t, e, booth.Source{ID: "a", Name: "alpha", URL: "https://alpha.example/booths"})

	for range 3 {
		_, err := e.pipeline.Run(context.Background(), Options{})
		require.NoError(t, err)
	}

	src, err := e.sources.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 3, src.ConsecutiveFailures)
	assert.Equal(t, booth.SourceStatusError, src.Status)
	assert.True(t, src.Enabled)
}

func TestFrequencyGateSkipsFreshlyCompletedSources(t *testing.T) {
	e := newEnv(t, &stubFetcher{totalPages: 3}, time.Hour)
	recent := e.clock.Add(-24 * time.Hour)
	seed(t, e, booth.Source{
		ID: "a", Name: "alpha", URL: "https://alpha.example/booths",
		CrawlCompleted: true, LastBatchPage: 3, LastCrawlAt: &recent,
		CrawlFrequencyDays: 7,
	})

	report, err := e.pipeline.Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, report.Sources, 1)
	assert.Equal(t, OutcomeSkipped, report.Sources[0].Outcome)
	assert.Zero(t, report.Pages)

	// Force restarts the crawl from page zero.
	report, err = e.pipeline.Run(context.Background(), Options{Force: true})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, report.Sources[0].Outcome)
	assert.Equal(t, 3, report.Pages)
}

func TestStaleCompletedSourceIsRecrawled(t *testing.T) {
	e := newEnv(t, &stubFetcher{totalPages: 3}, time.Hour)
	stale := e.clock.Add(-8 * 24 * time.Hour)
	seed(t, e, booth.Source{
		ID: "a", Name: "alpha", URL: "https://alpha.example/booths",
		CrawlCompleted: true, LastBatchPage: 3, LastCrawlAt: &stale,
		CrawlFrequencyDays: 7,
	})

	report, err := e.pipeline.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, report.Sources[0].Outcome)
	assert.Equal(t, 3, report.Pages)
}

func TestForceResetsInFlightSource(t *testing.T) {
	e := newEnv(t, &stubFetcher{totalPages: 10}, time.Hour)
	seed(t, e, booth.Source{
		ID: "a", Name: "alpha", URL: "https://alpha.example/booths",
		LastBatchPage: 6, TotalPagesTarget: 10,
	})

	// A forced run starts over even when a prior run left a mid-crawl
	// cursor behind.
	report, err := e.pipeline.Run(context.Background(), Options{Force: true})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, report.Sources[0].Outcome)
	assert.Equal(t, 10, report.Pages)

	count, err := e.booths.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, count)
}

func TestRunRejectsUnknownSourceFilter(t *testing.T) {
	e := newEnv(t, &stubFetcher{totalPages: 3}, time.Hour)
	seed(t, e, booth.Source{ID: "a", Name: "alpha", URL: "https://alpha.example/booths"})

	_, err := e.pipeline.Run(context.Background(), Options{SourceName: "nope"})
	assert.Error(t, err)
}

func TestBudgetExhaustionSkipsRemainingSources(t *testing.T) {
	fetcher := &stubFetcher{totalPages: 10}
	e := newEnv(t, fetcher, time.Minute)
	fetcher.perCall = func() { e.clock = e.clock.Add(30 * time.Second) }
	seed(t, e, booth.Source{ID: "a", Name: "alpha", URL: "https://alpha.example/booths", Priority: 10})
	seed(t, e, booth.Source{ID: "b", Name: "beta", URL: "https://beta.example/booths"})

	report, err := e.pipeline.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.True(t, report.TimedOut)
	require.Len(t, report.Sources, 2)
	assert.Equal(t, OutcomePartial, report.Sources[0].Outcome)
	assert.Equal(t, OutcomeSkipped, report.Sources[1].Outcome)

	// The partial source keeps its cursor for the next run.
	src, err := e.sources.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 4, src.LastBatchPage)
	assert.False(t, src.CrawlCompleted)
}
