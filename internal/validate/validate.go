// Package validate enforces record invariants before persistence.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kaykas/booth-beacon-app-sub000/internal/booth"
)

// Field length limits for extracted records.
const (
	maxNameLen    = 200
	maxAddressLen = 300
)

// Rejection reasons.
var (
	ErrMissingName    = errors.New("name is empty")
	ErrMissingAddress = errors.New("address is empty")
	ErrMarkupInField  = errors.New("field contains markup")
	ErrNameTooLong    = errors.New("name exceeds length limit")
	ErrAddressTooLong = errors.New("address exceeds length limit")
	ErrBadCountry     = errors.New("country is unrecognized and not inferable")
)

// Error describes why a record was rejected, carrying enough context for
// the batch error list.
type Error struct {
	Record string
	Reason error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("record %q rejected: %v", e.Record, e.Reason)
}

// Unwrap exposes the rejection reason to errors.Is.
func (e *Error) Unwrap() error { return e.Reason }

// Record checks required-field, length, markup, and country invariants.
// On success the record's Country is rewritten to canonical form and all
// string fields are space-trimmed. On failure the record is unchanged.
func Record(rec *booth.ExtractedBooth) error {
	name := strings.TrimSpace(rec.Name)
	address := strings.TrimSpace(rec.Address)

	if name == "" {
		return &Error{Record: rec.Name, Reason: ErrMissingName}
	}
	if address == "" {
		return &Error{Record: name, Reason: ErrMissingAddress}
	}
	if hasMarkup(name) || hasMarkup(address) {
		return &Error{Record: name, Reason: ErrMarkupInField}
	}
	if len(name) > maxNameLen {
		return &Error{Record: name[:maxNameLen], Reason: ErrNameTooLong}
	}
	if len(address) > maxAddressLen {
		return &Error{Record: name, Reason: ErrAddressTooLong}
	}

	country, ok := Country(rec.Country, rec.City)
	if !ok {
		return &Error{Record: name, Reason: ErrBadCountry}
	}

	rec.Name = name
	rec.Address = address
	rec.City = strings.TrimSpace(rec.City)
	rec.State = strings.TrimSpace(rec.State)
	rec.Country = country
	rec.PostalCode = strings.TrimSpace(rec.PostalCode)
	if rec.Status == "" {
		rec.Status = booth.RecordStatusUnverified
	}
	return nil
}

// hasMarkup flags angle-bracket sequences that look like HTML leaking out
// of an extractor.
func hasMarkup(s string) bool {
	open := strings.IndexByte(s, '<')
	if open < 0 {
		return false
	}
	return strings.IndexByte(s[open:], '>') > 0
}
