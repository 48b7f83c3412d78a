package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hakim/threatscore/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func resultFor(id, hostname string, started time.Time, band models.RiskBand) *models.ScanResult {
	return &models.ScanResult{
		ScanID:    id,
		URL:       "https://" + hostname,
		Hostname:  hostname,
		StartedAt: started,
		RiskLevel: band,
	}
}

func TestSaveAndGetResult(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	original := resultFor("scan-1", "example.com", now, models.BandC)
	require.NoError(t, store.SaveResult(original))

	got, err := store.GetResult("scan-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, original.ScanID, got.ScanID)
	assert.Equal(t, original.Hostname, got.Hostname)
	assert.Equal(t, original.RiskLevel, got.RiskLevel)
	assert.True(t, original.StartedAt.Equal(got.StartedAt))
}

func TestGetResult_MissingIsNilNil(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetResult("never-existed")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListResults_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveResult(resultFor("old", "example.com", base, models.BandB)))
	require.NoError(t, store.SaveResult(resultFor("newest", "example.com", base.Add(2*time.Hour), models.BandD)))
	require.NoError(t, store.SaveResult(resultFor("middle", "example.com", base.Add(time.Hour), models.BandC)))

	// Another hostname must not leak into the listing.
	require.NoError(t, store.SaveResult(resultFor("other", "other.com", base, models.BandA)))

	results, err := store.ListResults("example.com")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "newest", results[0].ScanID)
	assert.Equal(t, "middle", results[1].ScanID)
	assert.Equal(t, "old", results[2].ScanID)
}

func TestListResults_UnknownHostnameIsEmpty(t *testing.T) {
	store := newTestStore(t)

	results, err := store.ListResults("nothing.example")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSaveResult_RewriteDoesNotDuplicateIndex(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	r := resultFor("scan-1", "example.com", now, models.BandC)
	require.NoError(t, store.SaveResult(r))
	r.RiskLevel = models.BandE
	require.NoError(t, store.SaveResult(r))

	results, err := store.ListResults("example.com")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, models.BandE, results[0].RiskLevel)
}

func TestLatestResult(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	latest, err := store.LatestResult("example.com")
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, store.SaveResult(resultFor("a", "example.com", base, models.BandB)))
	require.NoError(t, store.SaveResult(resultFor("b", "example.com", base.Add(time.Hour), models.BandD)))

	latest, err = store.LatestResult("example.com")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "b", latest.ScanID)
}

func TestSanitizeHostname(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"example.com", "example.com"},
		{"sub.example-site.com", "sub.example-site.com"},
		{"weird:host/name", "weird_host_name"},
		{"a b\tc", "a_b_c"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeHostname(tt.in), tt.in)
	}
}
