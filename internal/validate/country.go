package validate

import "strings"

// canonicalCountries is the closed set of country names records may carry
// once validated. Lookup is case-insensitive on the lowered form.
var canonicalCountries = map[string]string{}

func init() {
	for _, name := range []string{
		"United States", "Canada", "Mexico", "Brazil", "Argentina", "Chile",
		"Colombia", "Peru", "United Kingdom", "Ireland", "France", "Germany",
		"Netherlands", "Belgium", "Luxembourg", "Spain", "Portugal", "Italy",
		"Switzerland", "Austria", "Denmark", "Norway", "Sweden", "Finland",
		"Iceland", "Poland", "Czech Republic", "Slovakia", "Hungary",
		"Romania", "Bulgaria", "Greece", "Croatia", "Slovenia", "Serbia",
		"Ukraine", "Estonia", "Latvia", "Lithuania", "Russia", "Turkey",
		"Japan", "South Korea", "China", "Taiwan", "Hong Kong", "Singapore",
		"Malaysia", "Thailand", "Vietnam", "Philippines", "Indonesia",
		"India", "Australia", "New Zealand", "South Africa", "Egypt",
		"Morocco", "Israel", "United Arab Emirates", "Saudi Arabia",
	} {
		canonicalCountries[strings.ToLower(name)] = name
	}
}

// countryAliases maps common variants to canonical names, lowered keys.
var countryAliases = map[string]string{
	"usa":                      "United States",
	"us":                       "United States",
	"u.s.":                     "United States",
	"u.s.a.":                   "United States",
	"united states of america": "United States",
	"america":                  "United States",
	"uk":                       "United Kingdom",
	"u.k.":                     "United Kingdom",
	"great britain":            "United Kingdom",
	"britain":                  "United Kingdom",
	"england":                  "United Kingdom",
	"scotland":                 "United Kingdom",
	"wales":                    "United Kingdom",
	"northern ireland":         "United Kingdom",
	"holland":                  "Netherlands",
	"the netherlands":          "Netherlands",
	"deutschland":              "Germany",
	"españa":                   "Spain",
	"italia":                   "Italy",
	"república checa":          "Czech Republic",
	"czechia":                  "Czech Republic",
	"korea":                    "South Korea",
	"republic of korea":        "South Korea",
	"s. korea":                 "South Korea",
	"nippon":                   "Japan",
	"prc":                      "China",
	"roc":                      "Taiwan",
	"uae":                      "United Arab Emirates",
	"aotearoa":                 "New Zealand",
	"brasil":                   "Brazil",
	"méxico":                   "Mexico",
	"россия":                   "Russia",
	"türkiye":                  "Turkey",
}

// cityCountries infers a country from well-known cities when extractors
// report a city but no country at all.
var cityCountries = map[string]string{
	"new york":      "United States",
	"los angeles":   "United States",
	"san francisco": "United States",
	"chicago":       "United States",
	"austin":        "United States",
	"seattle":       "United States",
	"portland":      "United States",
	"las vegas":     "United States",
	"miami":         "United States",
	"boston":        "United States",
	"philadelphia":  "United States",
	"new orleans":   "United States",
	"toronto":       "Canada",
	"vancouver":     "Canada",
	"montreal":      "Canada",
	"mexico city":   "Mexico",
	"london":        "United Kingdom",
	"manchester":    "United Kingdom",
	"glasgow":       "United Kingdom",
	"dublin":        "Ireland",
	"paris":         "France",
	"lyon":          "France",
	"marseille":     "France",
	"berlin":        "Germany",
	"hamburg":       "Germany",
	"munich":        "Germany",
	"cologne":       "Germany",
	"amsterdam":     "Netherlands",
	"rotterdam":     "Netherlands",
	"brussels":      "Belgium",
	"antwerp":       "Belgium",
	"madrid":        "Spain",
	"barcelona":     "Spain",
	"lisbon":        "Portugal",
	"porto":         "Portugal",
	"rome":          "Italy",
	"milan":         "Italy",
	"zurich":        "Switzerland",
	"geneva":        "Switzerland",
	"vienna":        "Austria",
	"copenhagen":    "Denmark",
	"oslo":          "Norway",
	"stockholm":     "Sweden",
	"helsinki":      "Finland",
	"reykjavik":     "Iceland",
	"warsaw":        "Poland",
	"krakow":        "Poland",
	"prague":        "Czech Republic",
	"budapest":      "Hungary",
	"athens":        "Greece",
	"tokyo":         "Japan",
	"osaka":         "Japan",
	"kyoto":         "Japan",
	"nagoya":        "Japan",
	"fukuoka":       "Japan",
	"seoul":         "South Korea",
	"busan":         "South Korea",
	"beijing":       "China",
	"shanghai":      "China",
	"taipei":        "Taiwan",
	"singapore":     "Singapore",
	"kuala lumpur":  "Malaysia",
	"bangkok":       "Thailand",
	"hanoi":         "Vietnam",
	"manila":        "Philippines",
	"jakarta":       "Indonesia",
	"mumbai":        "India",
	"delhi":         "India",
	"sydney":        "Australia",
	"melbourne":     "Australia",
	"brisbane":      "Australia",
	"auckland":      "New Zealand",
	"wellington":    "New Zealand",
	"cape town":     "South Africa",
	"johannesburg":  "South Africa",
	"tel aviv":      "Israel",
	"dubai":         "United Arab Emirates",
	"istanbul":      "Turkey",
	"são paulo":     "Brazil",
	"buenos aires":  "Argentina",
	"santiago":      "Chile",
	"bogotá":        "Colombia",
	"lima":          "Peru",
}

// Country resolves a raw country string (possibly empty) to its canonical
// form, using the alias table and finally city inference. Returns
// ("", false) when no canonical country can be determined.
func Country(raw, city string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		lowered := strings.ToLower(trimmed)
		if canonical, ok := canonicalCountries[lowered]; ok {
			return canonical, true
		}
		if canonical, ok := countryAliases[lowered]; ok {
			return canonical, true
		}
		return "", false
	}
	if city = strings.TrimSpace(city); city != "" {
		if canonical, ok := cityCountries[strings.ToLower(city)]; ok {
			return canonical, true
		}
	}
	return "", false
}
