package fetch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolveKnownHost(t *testing.T) {
	t.Parallel()

	defaults := Tuning{PageLimit: 5, PerPageTimeout: 30 * time.Second, RenderWait: time.Second}
	r := NewDomainResolver(defaults, map[string]DomainTuning{
		"boothdirectory.example": {PageLimit: 2, RenderWaitMs: 5000},
	})

	got := r.Resolve("https://boothdirectory.example/locations")
	require.Equal(t, 2, got.PageLimit)
	require.Equal(t, 5*time.Second, got.RenderWait)
	// Unset override fields keep defaults.
	require.Equal(t, 30*time.Second, got.PerPageTimeout)
}

func TestResolveSubdomainSuffix(t *testing.T) {
	t.Parallel()

	defaults := Tuning{PageLimit: 5, PerPageTimeout: 30 * time.Second}
	r := NewDomainResolver(defaults, map[string]DomainTuning{
		"example.com": {PageLimit: 1},
	})

	require.Equal(t, 1, r.Resolve("https://www.example.com/booths").PageLimit)
	require.Equal(t, 1, r.Resolve("https://example.com/booths").PageLimit)
}

func TestResolveUnknownHostFallsBack(t *testing.T) {
	t.Parallel()

	defaults := Tuning{PageLimit: 5, PerPageTimeout: 30 * time.Second}
	r := NewDomainResolver(defaults, nil)

	require.Equal(t, defaults, r.Resolve("https://nowhere.invalid/"))
	require.Equal(t, defaults, r.Resolve("::not a url::"))
}
