// Package dedupe recognizes the same real-world booth across extractions.
package dedupe

import (
	"strings"
	"unicode"

	"github.com/kaykas/booth-beacon-app-sub000/internal/booth"
)

// Key is the normalized identity of one booth: case-folded,
// punctuation-stripped name joined with city and country. Records sharing
// a Key describe the same physical location.
type Key string

// KeyFor computes the identity key for a record. Callers must validate
// records first so Country is canonical.
func KeyFor(name, city, country string) Key {
	parts := []string{normalize(name), normalize(city), normalize(country)}
	return Key(strings.Join(parts, "|"))
}

// RecordKey is KeyFor applied to an extracted record.
func RecordKey(rec booth.ExtractedBooth) Key {
	return KeyFor(rec.Name, rec.City, rec.Country)
}

// BoothKey is KeyFor applied to a persisted entity.
func BoothKey(b booth.Booth) Key {
	return KeyFor(b.Name, b.City, b.Country)
}

// normalize lowers the string, drops punctuation, and collapses runs of
// whitespace to single spaces.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// Fold collapses records sharing an identity key into one record each,
// preferring the more complete value on every conflicting attribute.
// Input order is preserved for first occurrences, so Fold is idempotent.
func Fold(records []booth.ExtractedBooth) []booth.ExtractedBooth {
	if len(records) < 2 {
		return records
	}
	out := make([]booth.ExtractedBooth, 0, len(records))
	index := make(map[Key]int, len(records))
	for _, rec := range records {
		key := RecordKey(rec)
		if i, seen := index[key]; seen {
			out[i] = Merge(out[i], rec)
			continue
		}
		index[key] = len(out)
		out = append(out, rec)
	}
	return out
}

// Merge combines two records for the same identity. The longer description
// wins; for singular facts the first non-empty value wins.
func Merge(base, other booth.ExtractedBooth) booth.ExtractedBooth {
	if len(other.Description) > len(base.Description) {
		base.Description = other.Description
	}
	base.Address = firstNonEmpty(base.Address, other.Address)
	base.City = firstNonEmpty(base.City, other.City)
	base.State = firstNonEmpty(base.State, other.State)
	base.PostalCode = firstNonEmpty(base.PostalCode, other.PostalCode)
	base.MachineType = firstNonEmpty(base.MachineType, other.MachineType)
	base.Cost = firstNonEmpty(base.Cost, other.Cost)
	base.Hours = firstNonEmpty(base.Hours, other.Hours)
	base.Website = firstNonEmpty(base.Website, other.Website)
	base.Phone = firstNonEmpty(base.Phone, other.Phone)
	if base.Latitude == 0 && base.Longitude == 0 {
		base.Latitude = other.Latitude
		base.Longitude = other.Longitude
	}
	if base.MachineCount == 0 {
		base.MachineCount = other.MachineCount
	}
	if base.Status == "" || (base.Status == booth.RecordStatusUnverified && other.Status != "") {
		base.Status = other.Status
	}
	base.IsOperational = base.IsOperational || other.IsOperational
	return base
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}
