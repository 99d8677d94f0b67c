// Package fetch defines the page-fetching contract and its implementations.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Page is one fetched page in both raw and markdown form. Markdown may be
// empty when the backing fetcher does not convert content.
type Page struct {
	URL      string `json:"url"`
	HTML     string `json:"html"`
	Markdown string `json:"markdown"`
}

// Request asks a Service for the next window of pages from a source.
// StartPage is zero-based; a Service returning fewer than PageLimit pages
// (including zero) signals that the source is exhausted.
type Request struct {
	URL            string
	StartPage      int
	PageLimit      int
	PerPageTimeout time.Duration
	RenderWait     time.Duration
}

// Batch is the result of one Request.
type Batch struct {
	Pages []Page
	// TotalPages is the service-reported page count for the source, or 0
	// when unknown.
	TotalPages int
}

// Service fetches page batches. Implementations enforce their own per-page
// timeouts; callers bound overall time through retry policies and budgets.
type Service interface {
	FetchPages(ctx context.Context, req Request) (Batch, error)
}

// ErrorKind classifies fetch failures for retry decisions.
type ErrorKind string

// Fetch error kinds. Auth and not-found failures are permanent; the rest
// are worth retrying.
const (
	KindAuth        ErrorKind = "auth"
	KindNotFound    ErrorKind = "not_found"
	KindRateLimited ErrorKind = "rate_limited"
	KindUnavailable ErrorKind = "unavailable"
	KindBadResponse ErrorKind = "bad_response"
)

// Error is a classified fetch-service failure.
type Error struct {
	Kind ErrorKind
	URL  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

// Unwrap exposes the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the failure class is transient.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindAuth, KindNotFound:
		return false
	default:
		return true
	}
}

// IsRetryable reports whether err should be retried. Unclassified errors
// are assumed transient.
func IsRetryable(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Retryable()
	}
	return true
}
