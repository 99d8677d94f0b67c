package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kaykas/booth-beacon-app-sub000/internal/booth"
)

// Selectors configures one selector-driven extractor. Item scopes each
// candidate record; the remaining selectors resolve relative to it. Empty
// selectors simply yield empty fields.
type Selectors struct {
	Item        string
	Name        string
	Address     string
	City        string
	Country     string
	Cost        string
	Hours       string
	Description string
	Website     string
	Phone       string
}

// SelectorExtractor extracts records by CSS selectors. The source-family
// extractors (directory, operator, city guide, blog, community) are thin
// selector configurations over this one implementation.
type SelectorExtractor struct {
	family    string
	selectors Selectors
	// scanText widens sparse listings: when a field selector found
	// nothing, the item's flattened text is scanned with the shared
	// field patterns.
	scanText bool
}

// NewSelector builds an extractor for an arbitrary family key.
func NewSelector(family string, selectors Selectors, scanText bool) *SelectorExtractor {
	return &SelectorExtractor{family: family, selectors: selectors, scanText: scanText}
}

// NewDirectory covers listing directories: one uniform card per booth.
func NewDirectory() *SelectorExtractor {
	return NewSelector(TypeDirectory, Selectors{
		Item:        "[itemscope], .listing, .directory-entry, li.location, div.location",
		Name:        "[itemprop=name], h2, h3, .name, .title",
		Address:     "[itemprop=address], address, .address, .street",
		City:        "[itemprop=addressLocality], .city, .locality",
		Country:     "[itemprop=addressCountry], .country",
		Cost:        ".cost, .price",
		Hours:       ".hours, .opening-hours",
		Description: ".description, .summary, p",
		Website:     "a.website, a[rel=external]",
		Phone:       "[itemprop=telephone], .phone, .tel",
	}, true)
}

// NewOperator covers operator sites: machine pages with structured specs.
func NewOperator() *SelectorExtractor {
	return NewSelector(TypeOperator, Selectors{
		Item:        ".machine, .booth, article.location, section.location",
		Name:        "h1, h2, .machine-name, .booth-name",
		Address:     ".address, .venue-address, dd.address",
		City:        ".city, dd.city",
		Country:     ".country, dd.country",
		Cost:        ".price, dd.price, .cost",
		Hours:       ".hours, dd.hours",
		Description: ".details, .machine-details, p",
		Website:     "a.booking, a.more",
		Phone:       ".phone",
	}, true)
}

// NewCityGuide covers city guides: venue blocks under neighborhood
// headings, address lines folded into the prose.
func NewCityGuide() *SelectorExtractor {
	return NewSelector(TypeCityGuide, Selectors{
		Item:        ".venue, .spot, .poi, article",
		Name:        "h2, h3, .venue-name",
		Address:     ".address, .venue-address, em",
		City:        ".city",
		Country:     ".country",
		Description: "p",
		Website:     "a[href^=http]",
	}, true)
}

// NewBlog covers blog posts: loosely structured posts naming booths in
// headings with details in the following paragraphs.
func NewBlog() *SelectorExtractor {
	return NewSelector(TypeBlog, Selectors{
		Item:        "article, .post, .entry-content section",
		Name:        "h1, h2, h3",
		Address:     ".address, em, i",
		Description: "p",
		Website:     "a[href^=http]",
	}, true)
}

// NewCommunity covers community/wiki sources: table rows or definition
// lists maintained by hand.
func NewCommunity() *SelectorExtractor {
	return NewSelector(TypeCommunity, Selectors{
		Item:    "table tr, .wiki-entry, li.entry",
		Name:    "td:nth-child(1), .entry-name, b",
		Address: "td:nth-child(2), .entry-address",
		City:    "td:nth-child(3), .entry-city",
		Country: "td:nth-child(4), .entry-country",
		Cost:    "td:nth-child(5), .entry-cost",
	}, true)
}

// Type implements Extractor.
func (e *SelectorExtractor) Type() string { return e.family }

// Extract implements Extractor.
func (e *SelectorExtractor) Extract(input Input) Result {
	var result Result

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(input.HTML))
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: parse html from %s: %v", e.family, input.SourceURL, err))
		return result
	}

	doc.Find(e.selectors.Item).Each(func(_ int, item *goquery.Selection) {
		rec := e.extractItem(item, input)
		if rec.Name == "" {
			return
		}
		result.Records = append(result.Records, rec)
	})
	result.Metadata.TotalFound = len(result.Records)
	return result
}

func (e *SelectorExtractor) extractItem(item *goquery.Selection, input Input) booth.ExtractedBooth {
	sel := e.selectors
	rec := booth.ExtractedBooth{
		Name:        truncate(selText(item, sel.Name), 200),
		Address:     truncate(selText(item, sel.Address), 300),
		City:        selText(item, sel.City),
		Country:     selText(item, sel.Country),
		Cost:        selText(item, sel.Cost),
		Hours:       selText(item, sel.Hours),
		Description: selText(item, sel.Description),
		Phone:       selText(item, sel.Phone),
		Website:     selAttr(item, sel.Website, "href"),
		Status:      booth.RecordStatusUnverified,
		SourceName:  input.SourceName,
		SourceURL:   input.SourceURL,
	}
	if e.scanText {
		text := CleanText(item.Text())
		if rec.Cost == "" {
			rec.Cost = FindCost(text)
		}
		if rec.Hours == "" {
			rec.Hours = FindHours(text)
		}
		if rec.Phone == "" {
			rec.Phone = FindPhone(text)
		}
	}
	return rec
}
