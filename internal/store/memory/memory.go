// Package memory provides in-memory store implementations for tests and
// database-less runs.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/kaykas/booth-beacon-app-sub000/internal/booth"
	"github.com/kaykas/booth-beacon-app-sub000/internal/dedupe"
	"github.com/kaykas/booth-beacon-app-sub000/internal/store"
)

// SourceRepository implements store.SourceRepository in memory.
type SourceRepository struct {
	mu      sync.Mutex
	sources map[string]booth.Source
	clock   func() time.Time
}

// NewSourceRepository builds an empty registry.
func NewSourceRepository() *SourceRepository {
	return &SourceRepository{
		sources: make(map[string]booth.Source),
		clock:   time.Now,
	}
}

// SetClock overrides the timestamp source for tests.
func (r *SourceRepository) SetClock(clock func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock = clock
}

// Seed implements store.SourceRepository.
func (r *SourceRepository) Seed(_ context.Context, src booth.Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sources[src.ID]; ok {
		existing.Name = src.Name
		existing.URL = src.URL
		existing.ExtractorType = src.ExtractorType
		existing.Enabled = src.Enabled
		existing.Priority = src.Priority
		existing.CrawlFrequencyDays = src.CrawlFrequencyDays
		r.sources[src.ID] = existing
		return nil
	}
	if src.Status == "" {
		src.Status = booth.SourceStatusActive
	}
	r.sources[src.ID] = src
	return nil
}

// ListEnabled implements store.SourceRepository.
func (r *SourceRepository) ListEnabled(_ context.Context, nameFilter string) ([]booth.Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []booth.Source
	for _, src := range r.sources {
		if !src.Enabled {
			continue
		}
		if nameFilter != "" && src.Name != nameFilter {
			continue
		}
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Get implements store.SourceRepository.
func (r *SourceRepository) Get(_ context.Context, id string) (booth.Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	src, ok := r.sources[id]
	if !ok {
		return booth.Source{}, store.ErrNotFound
	}
	return src, nil
}

// Checkpoint implements store.SourceRepository.
func (r *SourceRepository) Checkpoint(_ context.Context, id string, lastBatchPage, totalPagesTarget int, completed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	src, ok := r.sources[id]
	if !ok {
		return store.ErrNotFound
	}
	src.LastBatchPage = lastBatchPage
	if totalPagesTarget > 0 {
		src.TotalPagesTarget = totalPagesTarget
	}
	src.CrawlCompleted = completed
	r.sources[id] = src
	return nil
}

// ResetProgress implements store.SourceRepository.
func (r *SourceRepository) ResetProgress(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	src, ok := r.sources[id]
	if !ok {
		return store.ErrNotFound
	}
	src.LastBatchPage = 0
	src.CrawlCompleted = false
	r.sources[id] = src
	return nil
}

// RecordFailure implements store.SourceRepository.
func (r *SourceRepository) RecordFailure(_ context.Context, id, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	src, ok := r.sources[id]
	if !ok {
		return store.ErrNotFound
	}
	src.ConsecutiveFailures++
	src.LastErrorMessage = message
	if src.ConsecutiveFailures >= store.FailureThreshold {
		src.Status = booth.SourceStatusError
	}
	r.sources[id] = src
	return nil
}

// RecordSuccess implements store.SourceRepository.
func (r *SourceRepository) RecordSuccess(_ context.Context, id string, _ booth.CrawlStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	src, ok := r.sources[id]
	if !ok {
		return store.ErrNotFound
	}
	now := r.clock()
	src.ConsecutiveFailures = 0
	src.LastErrorMessage = ""
	src.Status = booth.SourceStatusActive
	src.LastCrawlAt = &now
	r.sources[id] = src
	return nil
}

// BoothRepository implements store.BoothRepository in memory, indexed by
// the same normalized identity key the postgres store enforces.
type BoothRepository struct {
	mu     sync.Mutex
	byID   map[string]booth.Booth
	byKey  map[dedupe.Key]string
	nextID int
	clock  func() time.Time
}

// NewBoothRepository builds an empty booth store.
func NewBoothRepository() *BoothRepository {
	return &BoothRepository{
		byID:  make(map[string]booth.Booth),
		byKey: make(map[dedupe.Key]string),
		clock: time.Now,
	}
}

// FindByIdentity implements store.BoothRepository.
func (r *BoothRepository) FindByIdentity(_ context.Context, name, city, country string) (booth.Booth, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byKey[dedupe.KeyFor(name, city, country)]
	if !ok {
		return booth.Booth{}, store.ErrNotFound
	}
	return r.byID[id], nil
}

// Insert implements store.BoothRepository.
func (r *BoothRepository) Insert(_ context.Context, b booth.Booth) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	b.ID = strconv.Itoa(r.nextID)
	now := r.clock()
	b.CreatedAt = now
	b.UpdatedAt = now
	r.byID[b.ID] = b
	r.byKey[dedupe.BoothKey(b)] = b.ID
	return b.ID, nil
}

// Update implements store.BoothRepository.
func (r *BoothRepository) Update(_ context.Context, b booth.Booth) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[b.ID]
	if !ok {
		return store.ErrNotFound
	}
	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = r.clock()
	r.byID[b.ID] = b
	r.byKey[dedupe.BoothKey(b)] = b.ID
	return nil
}

// Count implements store.BoothRepository.
func (r *BoothRepository) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID), nil
}

// MetricRepository implements store.MetricRepository in memory.
type MetricRepository struct {
	mu      sync.Mutex
	metrics []booth.CrawlMetric
}

// NewMetricRepository builds an empty metric log.
func NewMetricRepository() *MetricRepository {
	return &MetricRepository{}
}

// Record implements store.MetricRepository.
func (r *MetricRepository) Record(_ context.Context, m booth.CrawlMetric) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, m)
	return nil
}

// All returns a copy of the recorded metrics, oldest first.
func (r *MetricRepository) All() []booth.CrawlMetric {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]booth.CrawlMetric(nil), r.metrics...)
}
