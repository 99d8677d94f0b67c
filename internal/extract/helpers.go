package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Shared field patterns used by the heuristic extractors.
var (
	phonePattern   = regexp.MustCompile(`\+?\d[\d\s().-]{6,18}\d`)
	costPattern    = regexp.MustCompile(`(?i)(?:[$€£¥]\s?\d+(?:[.,]\d{1,2})?|\d+(?:[.,]\d{1,2})?\s?(?:USD|EUR|GBP|JPY|KRW|yen|euros?|dollars?|pounds?|원|円))`)
	hoursPattern   = regexp.MustCompile(`(?i)(?:open\s+)?(?:24/7|24\s?hours|(?:mon|tue|wed|thu|fri|sat|sun)[a-z]*[\s\S]{0,40}?\d{1,2}(?::\d{2})?\s?(?:am|pm|h|:00)(?:\s?[-–]\s?\d{1,2}(?::\d{2})?\s?(?:am|pm|h|:00))?)`)
	urlPattern     = regexp.MustCompile(`https?://[^\s<>"']+`)
	addressPattern = regexp.MustCompile(`\d{1,5}[\w.-]*\s+(?:[A-ZÄÖÜ][\w'.-]*\s?){1,5}(?:Street|St\.?|Avenue|Ave\.?|Boulevard|Blvd\.?|Road|Rd\.?|Lane|Ln\.?|Straße|Strasse|Str\.?|Gasse|Rue|Via|Calle|Dori|丁目)?`)
	spaceRuns      = regexp.MustCompile(`\s+`)
)

// CleanText collapses whitespace runs and trims the result.
func CleanText(s string) string {
	return strings.TrimSpace(spaceRuns.ReplaceAllString(s, " "))
}

// StripTags parses fragmentary HTML and returns its flattened text. On a
// parse failure the input is returned with angle brackets dropped, which
// is good enough for field-level snippets.
func StripTags(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		replacer := strings.NewReplacer("<", " ", ">", " ")
		return CleanText(replacer.Replace(html))
	}
	return CleanText(doc.Text())
}

// FirstMatch returns the first pattern match in text, or "".
func FirstMatch(pattern *regexp.Regexp, text string) string {
	return strings.TrimSpace(pattern.FindString(text))
}

// FindPhone extracts the first phone-looking token from text.
func FindPhone(text string) string { return FirstMatch(phonePattern, text) }

// FindCost extracts the first price-looking token from text.
func FindCost(text string) string { return FirstMatch(costPattern, text) }

// FindHours extracts the first opening-hours-looking token from text.
func FindHours(text string) string { return FirstMatch(hoursPattern, text) }

// FindWebsite extracts the first absolute URL from text.
func FindWebsite(text string) string { return FirstMatch(urlPattern, text) }

// selText returns the cleaned text of the first selector match under sel,
// or "" when the selector is empty or matches nothing.
func selText(sel *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return CleanText(sel.Find(selector).First().Text())
}

// selAttr returns a trimmed attribute of the first selector match.
func selAttr(sel *goquery.Selection, selector, attr string) string {
	if selector == "" {
		return ""
	}
	v, _ := sel.Find(selector).First().Attr(attr)
	return strings.TrimSpace(v)
}

// truncate bounds s to max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.ToValidUTF8(s[:max], "")
}
