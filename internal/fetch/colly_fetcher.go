package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// CollyConfig controls the local direct fetcher.
type CollyConfig struct {
	UserAgent string
	PageParam string
	Timeout   time.Duration
}

// CollyFetcher implements Service by fetching paginated listing pages
// directly with a Colly collector. It suits static sources that need no
// JS rendering; RenderWait is ignored and Markdown is left empty.
type CollyFetcher struct {
	cfg    CollyConfig
	base   *colly.Collector
	logger *zap.Logger
}

// NewCollyFetcher builds a CollyFetcher.
func NewCollyFetcher(cfg CollyConfig, logger *zap.Logger) *CollyFetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "booth-beacon-bot/0.1"
	}
	if cfg.PageParam == "" {
		cfg.PageParam = "page"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false))
	c.UserAgent = cfg.UserAgent
	c.SetRequestTimeout(cfg.Timeout)
	return &CollyFetcher{cfg: cfg, base: c, logger: logger}
}

// FetchPages fetches up to PageLimit consecutive listing pages starting at
// StartPage. A not-found response ends the window early, signalling
// exhaustion through a short batch.
func (f *CollyFetcher) FetchPages(ctx context.Context, req Request) (Batch, error) {
	var batch Batch
	for i := 0; i < req.PageLimit; i++ {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		pageNum := req.StartPage + i
		pageURL, err := paginate(req.URL, f.cfg.PageParam, pageNum)
		if err != nil {
			return batch, &Error{Kind: KindBadResponse, URL: req.URL, Err: err}
		}
		html, err := f.fetchOne(req, pageURL)
		if err != nil {
			var fe *Error
			if errors.As(err, &fe) && fe.Kind == KindNotFound {
				f.logger.Debug("pagination exhausted", zap.String("url", pageURL))
				return batch, nil
			}
			// Return what we have along with the failure; the caller
			// decides whether partial progress is worth keeping.
			return batch, err
		}
		batch.Pages = append(batch.Pages, Page{URL: pageURL, HTML: html})
	}
	return batch, nil
}

func (f *CollyFetcher) fetchOne(req Request, pageURL string) (string, error) {
	collector := f.base.Clone()
	timeout := req.PerPageTimeout
	if timeout <= 0 {
		timeout = f.cfg.Timeout
	}
	collector.SetRequestTimeout(timeout)

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			if classified := classifyStatus(r.StatusCode, pageURL); classified != nil {
				fetchErr = classified
				return
			}
		}
		fetchErr = &Error{Kind: KindUnavailable, URL: pageURL, Err: err}
	})

	if err := collector.Visit(pageURL); err != nil && fetchErr == nil {
		fetchErr = &Error{Kind: KindUnavailable, URL: pageURL, Err: err}
	}
	collector.Wait()

	if fetchErr != nil {
		return "", fetchErr
	}
	if len(body) == 0 {
		return "", &Error{Kind: KindBadResponse, URL: pageURL, Err: fmt.Errorf("empty body")}
	}
	return string(body), nil
}

// paginate appends or replaces the page query parameter. Page zero keeps
// the source URL untouched so listing roots fetch as configured.
func paginate(sourceURL, param string, page int) (string, error) {
	if page == 0 {
		return sourceURL, nil
	}
	u, err := url.Parse(sourceURL)
	if err != nil {
		return "", fmt.Errorf("parse source url: %w", err)
	}
	q := u.Query()
	q.Set(param, strconv.Itoa(page+1))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
