package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kaykas/booth-beacon-app-sub000/internal/booth"
	"github.com/kaykas/booth-beacon-app-sub000/internal/config"
	"github.com/kaykas/booth-beacon-app-sub000/internal/extract"
	"github.com/kaykas/booth-beacon-app-sub000/internal/fetch"
	"github.com/kaykas/booth-beacon-app-sub000/internal/ingest"
	"github.com/kaykas/booth-beacon-app-sub000/internal/pipeline"
	"github.com/kaykas/booth-beacon-app-sub000/internal/retry"
	"github.com/kaykas/booth-beacon-app-sub000/internal/scheduler"
	"github.com/kaykas/booth-beacon-app-sub000/internal/store/memory"
)

type stubFetcher struct{ totalPages int }

func (f *stubFetcher) FetchPages(_ context.Context, req fetch.Request) (fetch.Batch, error) {
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

func newTestServer(t *testing.T, cfg config.Config) (*Server, *memory.SourceRepository, *memory.BoothRepository) {
	t.Helper()
	sources := memory.NewSourceRepository()
	booths := memory.NewBoothRepository()

	upserter, err := ingest.NewUpserter(booths, zap.NewNop())
	require.NoError(t, err)

	noSleep := retry.WithSleeper(func(context.Context, time.Duration) error { return nil })
	sched, err := scheduler.New(scheduler.Deps{
		Fetcher:  &stubFetcher{totalPages: 2},
		Resolver: fetch.NewDomainResolver(fetch.Tuning{PageLimit: 2, PerPageTimeout: time.Second}, nil),
		Router:   extract.NewRouter(zap.NewNop(), stubExtractor{}),
		Sources:  sources,
		Metrics:  memory.NewMetricRepository(),
		Upserter: upserter,
		Retry:    retry.NewPolicy(1, time.Millisecond, time.Millisecond, noSleep),
	}, scheduler.Config{ExecutionBudget: time.Minute, SafetyMargin: time.Second})
	require.NoError(t, err)

	p, err := pipeline.New(sched, sources, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, sources.Seed(context.Background(), booth.Source{
		ID: "a", Name: "alpha", URL: "https://alpha.example/booths",
		ExtractorType: "stub", Enabled: true,
	}))

	return NewServer(p, sources, booths, cfg, zap.NewNop()), sources, booths
}

func TestHealthz(t *testing.T) {
	s, _, _ := newTestServer(t, config.Config{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestReadyz(t *testing.T) {
	s, _, _ := newTestServer(t, config.Config{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListSources(t *testing.T) {
	s, _, _ := newTestServer(t, config.Config{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sources", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Sources []booth.Source `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Sources, 1)
	assert.Equal(t, "alpha", payload.Sources[0].Name)
}

func TestBoothCount(t *testing.T) {
	s, _, booths := newTestServer(t, config.Config{})
	_, err := booths.Insert(context.Background(), booth.Booth{Name: "One", City: "Berlin", Country: "Germany"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/booths/count", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count": 1}`, rec.Body.String())
}

func TestTriggerCrawl(t *testing.T) {
	s, sources, booths := newTestServer(t, config.Config{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/crawl", strings.NewReader(`{"source":"alpha"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Report pipeline.RunReport `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, 2, payload.Report.Pages)
	require.Len(t, payload.Report.Sources, 1)
	assert.Equal(t, pipeline.OutcomeCompleted, payload.Report.Sources[0].Outcome)

	src, err := sources.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, src.CrawlCompleted)

	count, err := booths.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestTriggerCrawlBadJSON(t *testing.T) {
	s, _, _ := newTestServer(t, config.Config{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/crawl", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriggerCrawlUnknownSource(t *testing.T) {
	s, _, _ := newTestServer(t, config.Config{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/crawl", strings.NewReader(`{"source":"nope"}`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAPIKeyMiddleware(t *testing.T) {
	cfg := config.Config{Auth: config.AuthConfig{Enabled: true, APIKey: "secret"}}
	s, _, _ := newTestServer(t, cfg)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sources", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/sources", nil)
	req.Header.Set("X-API-Key", "secret")
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t, config.Config{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_")
}

func TestRequestMetricRouteLabelIsBounded(t *testing.T) {
	s, _, _ := newTestServer(t, config.Config{})

	s.Handler().ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodGet, "/v1/sources", nil))
	s.Handler().ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodGet, "/no/such/path-8f2c1d", nil))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	// Matched requests report their route pattern, everything else folds
	// into one label value so arbitrary paths cannot grow the series.
	assert.Contains(t, body, `route="/v1/sources"`)
	assert.Contains(t, body, `route="unmatched"`)
	assert.NotContains(t, body, "path-8f2c1d")
}
