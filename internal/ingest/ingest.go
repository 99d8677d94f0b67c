// Package ingest turns untrusted extracted records into persisted booths:
// validate, collapse duplicates, then upsert with provenance merging.
package ingest

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/kaykas/booth-beacon-app-sub000/internal/booth"
	"github.com/kaykas/booth-beacon-app-sub000/internal/dedupe"
	"github.com/kaykas/booth-beacon-app-sub000/internal/metrics"
	"github.com/kaykas/booth-beacon-app-sub000/internal/store"
	"github.com/kaykas/booth-beacon-app-sub000/internal/validate"
)

// recentSize bounds the read-through identity cache. A full crawl of every
// known source stays well under this.
const recentSize = 4096

// Report summarizes one ingestion call.
type Report struct {
	Accepted   int
	Rejected   int
	Inserted   int
	Updated    int
	Rejections []string
	Errors     []string
}

// Upserter writes validated records into the booth store. Records sharing
// an identity key with an existing row merge into it instead of creating a
// duplicate; the row's provenance arrays accumulate every reporting source.
type Upserter struct {
	booths store.BoothRepository
	logger *zap.Logger
	recent *lru.Cache[dedupe.Key, booth.Booth]
}

// NewUpserter builds an Upserter over the given repository.
func NewUpserter(booths store.BoothRepository, logger *zap.Logger) (*Upserter, error) {
	if booths == nil {
		return nil, fmt.Errorf("booth repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	recent, err := lru.New[dedupe.Key, booth.Booth](recentSize)
	if err != nil {
		return nil, fmt.Errorf("build identity cache: %w", err)
	}
	metrics.Init()
	return &Upserter{booths: booths, logger: logger, recent: recent}, nil
}

// Ingest validates, deduplicates, and upserts one batch of records.
// Rejections and persistence failures are reported in the Report, not as a
// returned error; only context cancellation aborts the loop.
func (u *Upserter) Ingest(ctx context.Context, records []booth.ExtractedBooth) (Report, error) {
	var report Report

	valid := make([]booth.ExtractedBooth, 0, len(records))
	for i := range records {
		rec := records[i]
		if err := validate.Record(&rec); err != nil {
			report.Rejected++
			report.Rejections = append(report.Rejections, err.Error())
			metrics.ObserveValidation(rejectionLabel(err))
			continue
		}
		metrics.ObserveValidation("accepted")
		valid = append(valid, rec)
	}
	report.Accepted = len(valid)

	for _, rec := range dedupe.Fold(valid) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := u.upsert(ctx, rec, &report); err != nil {
			report.Errors = append(report.Errors, err.Error())
			u.logger.Warn("booth upsert failed",
				zap.String("name", rec.Name),
				zap.String("source", rec.SourceName),
				zap.Error(err),
			)
		}
	}
	return report, nil
}

func (u *Upserter) upsert(ctx context.Context, rec booth.ExtractedBooth, report *Report) error {
	key := dedupe.RecordKey(rec)

	existing, found := u.recent.Get(key)
	if !found {
		var err error
		existing, err = u.booths.FindByIdentity(ctx, rec.Name, rec.City, rec.Country)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return fmt.Errorf("lookup booth %q: %w", rec.Name, err)
		default:
			found = true
		}
	}

	if !found {
		b := fromRecord(rec)
		id, err := u.booths.Insert(ctx, b)
		if err != nil {
			return err
		}
		b.ID = id
		u.recent.Add(key, b)
		report.Inserted++
		metrics.ObserveUpsert("insert")
		return nil
	}

	merged := mergeRecord(existing, rec)
	if err := u.booths.Update(ctx, merged); err != nil {
		return err
	}
	u.recent.Add(key, merged)
	report.Updated++
	metrics.ObserveUpsert("update")
	return nil
}

// fromRecord builds a fresh entity from a validated record, seeding the
// provenance arrays with the reporting source.
func fromRecord(rec booth.ExtractedBooth) booth.Booth {
	b := booth.Booth{
		Name:          rec.Name,
		Address:       rec.Address,
		City:          rec.City,
		State:         rec.State,
		Country:       rec.Country,
		PostalCode:    rec.PostalCode,
		Latitude:      rec.Latitude,
		Longitude:     rec.Longitude,
		MachineType:   rec.MachineType,
		MachineCount:  rec.MachineCount,
		Cost:          rec.Cost,
		Hours:         rec.Hours,
		IsOperational: rec.IsOperational,
		Status:        rec.Status,
		Description:   rec.Description,
		Website:       rec.Website,
		Phone:         rec.Phone,
	}
	if rec.SourceName != "" {
		b.SourceNames = []string{rec.SourceName}
	}
	if rec.SourceURL != "" {
		b.SourceURLs = []string{rec.SourceURL}
	}
	return b
}

// mergeRecord folds a new report into an existing entity. Identity fields
// stay as stored; for the rest the same completeness rules apply as when
// collapsing duplicates within a batch. Provenance arrays are append-only
// sets ordered by first sighting.
func mergeRecord(b booth.Booth, rec booth.ExtractedBooth) booth.Booth {
	if len(rec.Description) > len(b.Description) {
		b.Description = rec.Description
	}
	b.Address = firstNonEmpty(b.Address, rec.Address)
	b.State = firstNonEmpty(b.State, rec.State)
	b.PostalCode = firstNonEmpty(b.PostalCode, rec.PostalCode)
	b.MachineType = firstNonEmpty(b.MachineType, rec.MachineType)
	b.Cost = firstNonEmpty(b.Cost, rec.Cost)
	b.Hours = firstNonEmpty(b.Hours, rec.Hours)
	b.Website = firstNonEmpty(b.Website, rec.Website)
	b.Phone = firstNonEmpty(b.Phone, rec.Phone)
	if b.Latitude == 0 && b.Longitude == 0 {
		b.Latitude = rec.Latitude
		b.Longitude = rec.Longitude
	}
	if b.MachineCount == 0 {
		b.MachineCount = rec.MachineCount
	}
	if b.Status == "" || (b.Status == booth.RecordStatusUnverified && rec.Status != "") {
		b.Status = rec.Status
	}
	b.IsOperational = b.IsOperational || rec.IsOperational
	b.SourceNames = appendUnique(b.SourceNames, rec.SourceName)
	b.SourceURLs = appendUnique(b.SourceURLs, rec.SourceURL)
	return b
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// rejectionLabel maps a validation error to a stable metric label.
func rejectionLabel(err error) string {
	switch {
	case errors.Is(err, validate.ErrMissingName):
		return "missing_name"
	case errors.Is(err, validate.ErrMissingAddress):
		return "missing_address"
	case errors.Is(err, validate.ErrMarkupInField):
		return "markup"
	case errors.Is(err, validate.ErrNameTooLong), errors.Is(err, validate.ErrAddressTooLong):
		return "too_long"
	case errors.Is(err, validate.ErrBadCountry):
		return "bad_country"
	default:
		return "other"
	}
}
