package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaykas/booth-beacon-app-sub000/internal/booth"
	"github.com/kaykas/booth-beacon-app-sub000/internal/store"
)

func seedSource(t *testing.T, r *SourceRepository, id, name string, priority int) {
	t.Helper()
	require.NoError(t, r.Seed(context.Background(), booth.Source{
		ID:            id,
		Name:          name,
		URL:           "https://" + name,
		ExtractorType: "directory",
		Enabled:       true,
		Priority:      priority,
	}))
}

func TestListEnabledOrdersByPriority(t *testing.T) {
	t.Parallel()

	r := NewSourceRepository()
	seedSource(t, r, "a", "alpha", 1)
	seedSource(t, r, "b", "beta", 9)
	seedSource(t, r, "c", "charlie", 9)
	require.NoError(t, r.Seed(context.Background(), booth.Source{ID: "d", Name: "disabled", Enabled: false}))

	sources, err := r.ListEnabled(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, sources, 3)
	assert.Equal(t, "beta", sources[0].Name)
	assert.Equal(t, "charlie", sources[1].Name)
	assert.Equal(t, "alpha", sources[2].Name)
}

func TestListEnabledNameFilter(t *testing.T) {
	t.Parallel()

	r := NewSourceRepository()
	seedSource(t, r, "a", "alpha", 1)
	seedSource(t, r, "b", "beta", 1)

	sources, err := r.ListEnabled(context.Background(), "beta")
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "beta", sources[0].Name)
}

func TestSeedUpdateKeepsResumptionState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := NewSourceRepository()
	seedSource(t, r, "a", "alpha", 1)
	require.NoError(t, r.Checkpoint(ctx, "a", 6, 10, false))

	// Re-seeding updates configuration but not the cursor.
	seedSource(t, r, "a", "alpha", 5)
	src, err := r.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 5, src.Priority)
	assert.Equal(t, 6, src.LastBatchPage)
	assert.Equal(t, 10, src.TotalPagesTarget)
}

func TestCheckpointAndReset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := NewSourceRepository()
	seedSource(t, r, "a", "alpha", 1)

	require.NoError(t, r.Checkpoint(ctx, "a", 10, 10, true))
	src, err := r.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, src.CrawlCompleted)
	assert.Equal(t, 10, src.LastBatchPage)

	require.NoError(t, r.ResetProgress(ctx, "a"))
	src, err = r.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, src.CrawlCompleted)
	assert.Zero(t, src.LastBatchPage)
}

func TestFailureStreakFlipsStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := NewSourceRepository()
	seedSource(t, r, "a", "alpha", 1)

	for i := 0; i < store.FailureThreshold-1; i++ {
		require.NoError(t, r.RecordFailure(ctx, "a", "fetch exploded"))
	}
	src, _ := r.Get(ctx, "a")
	assert.Equal(t, booth.SourceStatusActive, src.Status)

	require.NoError(t, r.RecordFailure(ctx, "a", "fetch exploded again"))
	src, _ = r.Get(ctx, "a")
	assert.Equal(t, booth.SourceStatusError, src.Status)
	assert.True(t, src.Enabled, "error status must not disable the source")

	require.NoError(t, r.RecordSuccess(ctx, "a", booth.CrawlStats{}))
	src, _ = r.Get(ctx, "a")
	assert.Equal(t, booth.SourceStatusActive, src.Status)
	assert.Zero(t, src.ConsecutiveFailures)
	assert.NotNil(t, src.LastCrawlAt)
}

func TestGetMissingSource(t *testing.T) {
	t.Parallel()

	r := NewSourceRepository()
	_, err := r.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBoothRepositoryIdentityLookup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := NewBoothRepository()

	id, err := r.Insert(ctx, booth.Booth{Name: "Booth, One!", City: "Paris", Country: "France"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// Identity matching is normalized, not literal.
	found, err := r.FindByIdentity(ctx, "booth one", "PARIS", "France")
	require.NoError(t, err)
	assert.Equal(t, id, found.ID)
	assert.False(t, found.CreatedAt.IsZero())

	_, err = r.FindByIdentity(ctx, "booth two", "Paris", "France")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBoothRepositoryUpdate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := NewBoothRepository()
	r.clock = func() time.Time { return time.Unix(1700000000, 0) }

	id, err := r.Insert(ctx, booth.Booth{Name: "Booth", Country: "France"})
	require.NoError(t, err)

	r.clock = func() time.Time { return time.Unix(1700009999, 0) }
	updated := booth.Booth{ID: id, Name: "Booth", Country: "France", Cost: "4 EUR"}
	require.NoError(t, r.Update(ctx, updated))

	got, err := r.FindByIdentity(ctx, "Booth", "", "France")
	require.NoError(t, err)
	assert.Equal(t, "4 EUR", got.Cost)
	assert.Equal(t, time.Unix(1700000000, 0), got.CreatedAt)
	assert.Equal(t, time.Unix(1700009999, 0), got.UpdatedAt)

	count, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetricRepositoryAppends(t *testing.T) {
	t.Parallel()

	r := NewMetricRepository()
	require.NoError(t, r.Record(context.Background(), booth.CrawlMetric{SourceID: "a", Outcome: booth.BatchSuccess}))
	require.NoError(t, r.Record(context.Background(), booth.CrawlMetric{SourceID: "a", Outcome: booth.BatchTimeout}))

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, booth.BatchSuccess, all[0].Outcome)
	assert.Equal(t, booth.BatchTimeout, all[1].Outcome)
}
