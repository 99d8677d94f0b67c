package extract

import (
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/kaykas/booth-beacon-app-sub000/internal/booth"
)

// Generic is the fallback extractor for sources with no dedicated family.
// It reduces the page to its readable article text and scans that with the
// shared field patterns, yielding at most one low-confidence record per
// page.
type Generic struct{}

// NewGeneric builds the fallback extractor.
func NewGeneric() *Generic { return &Generic{} }

// Type implements Extractor.
func (g *Generic) Type() string { return TypeGeneric }

// Extract implements Extractor.
func (g *Generic) Extract(input Input) Result {
	var result Result

	pageURL, err := url.Parse(input.SourceURL)
	if err != nil {
		pageURL = &url.URL{}
	}
	article, err := readability.FromReader(strings.NewReader(input.HTML), pageURL)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("generic: readability on %s: %v", input.SourceURL, err))
		return result
	}

	text := CleanText(article.TextContent)
	if input.Markdown != "" {
		// Prefer the service-converted markdown when present; it keeps
		// address lines the DOM flattening sometimes loses.
		text = CleanText(input.Markdown)
	}
	name := CleanText(article.Title)
	if name == "" || text == "" {
		return result
	}

	rec := booth.ExtractedBooth{
		Name:        truncate(name, 200),
		Address:     truncate(firstAddressLine(text), 300),
		Cost:        FindCost(text),
		Hours:       FindHours(text),
		Phone:       FindPhone(text),
		Description: truncate(text, 500),
		Status:      booth.RecordStatusUnverified,
		SourceName:  input.SourceName,
		SourceURL:   input.SourceURL,
	}
	if rec.Address == "" {
		// Without an address the record cannot pass validation; report
		// the miss instead of emitting a guaranteed reject.
		result.Errors = append(result.Errors, fmt.Sprintf("generic: no address found on %s", input.SourceURL))
		return result
	}
	result.Records = append(result.Records, rec)
	return result
}

// firstAddressLine scans text for the first token run that looks like a
// street address: a number followed by capitalized words.
func firstAddressLine(text string) string {
	return FirstMatch(addressPattern, text)
}
