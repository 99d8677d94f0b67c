package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// RenderClientConfig controls the render-service HTTP client.
type RenderClientConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// RenderClient implements Service against the external render service,
// which fetches and optionally JS-renders page windows on our behalf.
type RenderClient struct {
	cfg    RenderClientConfig
	client *http.Client
	logger *zap.Logger
}

// NewRenderClient builds a RenderClient.
func NewRenderClient(cfg RenderClientConfig, logger *zap.Logger) (*RenderClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("fetch.endpoint is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RenderClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

type renderRequest struct {
	URL              string `json:"url"`
	StartPage        int    `json:"start_page"`
	PageLimit        int    `json:"page_limit"`
	PerPageTimeoutMs int64  `json:"per_page_timeout_ms"`
	RenderWaitMs     int64  `json:"render_wait_ms"`
}

type renderResponse struct {
	Success    bool   `json:"success"`
	Pages      []Page `json:"pages"`
	TotalPages int    `json:"total_pages"`
	Error      string `json:"error"`
}

// FetchPages posts the window request to the render service and decodes
// the page batch.
func (c *RenderClient) FetchPages(ctx context.Context, req Request) (Batch, error) {
	payload, err := json.Marshal(renderRequest{
		URL:              req.URL,
		StartPage:        req.StartPage,
		PageLimit:        req.PageLimit,
		PerPageTimeoutMs: req.PerPageTimeout.Milliseconds(),
		RenderWaitMs:     req.RenderWait.Milliseconds(),
	})
	if err != nil {
		return Batch{}, fmt.Errorf("marshal render request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return Batch{}, fmt.Errorf("build render request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Batch{}, &Error{Kind: KindUnavailable, URL: req.URL, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := classifyStatus(resp.StatusCode, req.URL); err != nil {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return Batch{}, err
	}

	var decoded renderResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Batch{}, &Error{Kind: KindBadResponse, URL: req.URL, Err: fmt.Errorf("decode response: %w", err)}
	}
	if !decoded.Success {
		return Batch{}, &Error{Kind: KindBadResponse, URL: req.URL, Err: fmt.Errorf("service error: %s", decoded.Error)}
	}

	c.logger.Debug("render service returned page window",
		zap.String("url", req.URL),
		zap.Int("start_page", req.StartPage),
		zap.Int("pages", len(decoded.Pages)),
		zap.Duration("took", time.Since(start)),
	)
	return Batch{Pages: decoded.Pages, TotalPages: decoded.TotalPages}, nil
}

func classifyStatus(code int, url string) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &Error{Kind: KindAuth, URL: url, Err: fmt.Errorf("status %d", code)}
	case code == http.StatusNotFound:
		return &Error{Kind: KindNotFound, URL: url, Err: fmt.Errorf("status %d", code)}
	case code == http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimited, URL: url, Err: fmt.Errorf("status %d", code)}
	case code >= 500:
		return &Error{Kind: KindUnavailable, URL: url, Err: fmt.Errorf("status %d", code)}
	default:
		return &Error{Kind: KindBadResponse, URL: url, Err: fmt.Errorf("status %d", code)}
	}
}
