package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const directoryHTML = `
<html><body>
  <div class="listing">
    <h2>Photoautomat Oberbaumbrücke</h2>
    <address>Falckensteinstr. 49, 10997</address>
    <span class="city">Berlin</span>
    <span class="country">Germany</span>
    <span class="cost">2 EUR</span>
    <p>Analog strip booth by the bridge. Open 24/7.</p>
  </div>
  <div class="listing">
    <h2>Fotoautomatica Firenze</h2>
    <address>Via dell'Agnolo 22</address>
    <span class="city">Florence</span>
    <span class="country">Italy</span>
  </div>
  <div class="listing"><p>no name here</p></div>
</body></html>`

func TestDirectoryExtractor(t *testing.T) {
	t.Parallel()

	result := NewDirectory().Extract(Input{
		HTML:       directoryHTML,
		SourceURL:  "https://directory.example/booths",
		SourceName: "directory.example",
	})
	require.Len(t, result.Records, 2)
	require.Empty(t, result.Errors)

	first := result.Records[0]
	assert.Equal(t, "Photoautomat Oberbaumbrücke", first.Name)
	assert.Equal(t, "Falckensteinstr. 49, 10997", first.Address)
	assert.Equal(t, "Berlin", first.City)
	assert.Equal(t, "Germany", first.Country)
	assert.Equal(t, "2 EUR", first.Cost)
	assert.Equal(t, "directory.example", first.SourceName)
}

func TestCommunityExtractorTableRows(t *testing.T) {
	t.Parallel()

	html := `<table>
	  <tr><td>Booth Shinjuku</td><td>3-38-1 Shinjuku</td><td>Tokyo</td><td>Japan</td><td>500 yen</td></tr>
	  <tr><td>Booth Shibuya</td><td>21-1 Udagawacho</td><td>Tokyo</td><td>Japan</td><td></td></tr>
	</table>`

	result := NewCommunity().Extract(Input{HTML: html, SourceURL: "https://wiki.example"})
	require.Len(t, result.Records, 2)
	assert.Equal(t, "Booth Shinjuku", result.Records[0].Name)
	assert.Equal(t, "Japan", result.Records[0].Country)
	assert.Equal(t, "500 yen", result.Records[0].Cost)
}

func TestRouterUnknownTypeFallsBack(t *testing.T) {
	t.Parallel()

	router := NewRouter(zap.NewNop(), NewDirectory())
	result := router.Route(Input{HTML: "<html><body><p>nothing</p></body></html>"}, "mystery-type")
	// Generic fallback ran and reported through errors rather than failing.
	assert.Empty(t, result.Records)
	assert.Equal(t, 1, result.Metadata.PagesProcessed)
}

type panicky struct{}

func (panicky) Type() string           { return "panicky" }
func (panicky) Extract(_ Input) Result { panic("boom") }

func TestRouterConvertsPanicsToErrors(t *testing.T) {
	t.Parallel()

	router := NewRouter(zap.NewNop(), panicky{})
	result := router.Route(Input{SourceURL: "https://s.example"}, "panicky")
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "panicked")
	assert.Empty(t, result.Records)
}

func TestRouterTypes(t *testing.T) {
	t.Parallel()

	router := DefaultRouter(zap.NewNop(), nil)
	types := router.Types()
	assert.Contains(t, types, TypeDirectory)
	assert.Contains(t, types, TypeGeneric)
	assert.NotContains(t, types, TypeLLM)
}

func TestGenericExtractorFindsFields(t *testing.T) {
	t.Parallel()

	html := `<html><head><title>Vintage Photo Booth at Ace Hotel</title></head><body>
	<article>
	  <h1>Vintage Photo Booth at Ace Hotel</h1>
	  <p>Tucked in the lobby at 20 W 29th Street, this booth prints strips for $5.00.
	  Call +1 212 679 2222 for hours. Open 24/7 for guests.</p>
	</article></body></html>`

	result := NewGeneric().Extract(Input{
		HTML:       html,
		SourceURL:  "https://blog.example/ace-hotel-booth",
		SourceName: "blog.example",
	})
	require.Len(t, result.Records, 1)
	rec := result.Records[0]
	assert.Contains(t, rec.Name, "Ace Hotel")
	assert.NotEmpty(t, rec.Address)
	assert.Equal(t, "$5.00", rec.Cost)
	assert.NotEmpty(t, rec.Phone)
}

func TestFieldPatterns(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "€3", FindCost("strips cost €3 per session"))
	assert.Equal(t, "400 yen", FindCost("a bargain at 400 yen each"))
	assert.Equal(t, "", FindCost("no cost mentioned"))
	assert.Equal(t, "+49 30 1234 5678", FindPhone("call +49 30 1234 5678 anytime"))
	assert.Equal(t, "https://example.com/a", FindWebsite(`see https://example.com/a for details`))
	assert.NotEmpty(t, FindHours("Open 24/7 every day"))
}

func TestStripTags(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Hello world", StripTags("<p>Hello <b>world</b></p>"))
}
