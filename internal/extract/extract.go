// Package extract routes fetched page content to pluggable extractors.
package extract

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kaykas/booth-beacon-app-sub000/internal/booth"
)

// Input is the raw content handed to an extractor for one page.
type Input struct {
	HTML       string
	Markdown   string
	SourceURL  string
	SourceName string
}

// Metadata summarizes one extraction call.
type Metadata struct {
	PagesProcessed int
	TotalFound     int
	ExtractionTime time.Duration
}

// Result is the uniform output of every extractor. Internal failures are
// reported through Errors, never by panicking past the boundary.
type Result struct {
	Records  []booth.ExtractedBooth
	Errors   []string
	Metadata Metadata
}

// Extractor translates raw page content into candidate booth records for
// one source family.
type Extractor interface {
	// Type is the registry key this extractor serves.
	Type() string
	// Extract parses the page. Implementations report partial failures
	// through Result.Errors and must not panic.
	Extract(input Input) Result
}

// Extractor type keys understood by the router. Sources declare one of
// these in their registry row.
const (
	TypeDirectory = "directory"
	TypeOperator  = "operator"
	TypeCityGuide = "cityguide"
	TypeBlog      = "blog"
	TypeCommunity = "community"
	TypeLLM       = "llm"
	TypeGeneric   = "generic"
)

// Router dispatches pages to the extractor registered for a source's
// declared type. Unknown types route to the generic fallback.
type Router struct {
	registry map[string]Extractor
	fallback Extractor
	logger   *zap.Logger
}

// NewRouter builds a Router over the given extractors. The extractor
// registered under TypeGeneric doubles as the fallback; if none is
// provided a bare generic extractor is registered.
func NewRouter(logger *zap.Logger, extractors ...Extractor) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{
		registry: make(map[string]Extractor, len(extractors)),
		logger:   logger,
	}
	for _, ex := range extractors {
		r.registry[ex.Type()] = ex
	}
	fallback, ok := r.registry[TypeGeneric]
	if !ok {
		fallback = NewGeneric()
		r.registry[TypeGeneric] = fallback
	}
	r.fallback = fallback
	return r
}

// DefaultRouter wires the full extractor family.
func DefaultRouter(logger *zap.Logger, llm *LLMClient) *Router {
	extractors := []Extractor{
		NewDirectory(),
		NewOperator(),
		NewCityGuide(),
		NewBlog(),
		NewCommunity(),
		NewGeneric(),
	}
	if llm != nil {
		extractors = append(extractors, llm)
	}
	return NewRouter(logger, extractors...)
}

// Types lists the registered extractor type keys, sorted.
func (r *Router) Types() []string {
	types := make([]string, 0, len(r.registry))
	for t := range r.registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Route dispatches one page to the extractor for extractorType. Panics in
// extractor implementations are converted into Result errors so a broken
// plugin cannot take down the batch loop.
func (r *Router) Route(input Input, extractorType string) (result Result) {
	ex, ok := r.registry[extractorType]
	if !ok {
		r.logger.Debug("unknown extractor type, using generic fallback",
			zap.String("extractor_type", extractorType),
			zap.String("source", input.SourceName),
		)
		ex = r.fallback
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = Result{
				Errors: []string{fmt.Sprintf("extractor %q panicked on %s: %v", ex.Type(), input.SourceURL, rec)},
			}
		}
	}()

	start := time.Now()
	result = ex.Extract(input)
	if result.Metadata.ExtractionTime == 0 {
		result.Metadata.ExtractionTime = time.Since(start)
	}
	if result.Metadata.PagesProcessed == 0 {
		result.Metadata.PagesProcessed = 1
	}
	if result.Metadata.TotalFound == 0 {
		result.Metadata.TotalFound = len(result.Records)
	}
	return result
}
