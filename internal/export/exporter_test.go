package export

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/klaviyo-audit/internal/klaviyo"
	"github.com/ignite/klaviyo-audit/internal/segcache"
)

// fakePager serves a fixed number of profiles across pages of pageSize.
type fakePager struct {
	total    int
	pageSize int
	calls    int
}

func (f *fakePager) GetSegmentProfiles(_ context.Context, pageURL string) (*klaviyo.ProfilePage, error) {
	f.calls++
	start := 0
	if i := strings.Index(pageURL, "offset="); i >= 0 {
		fmt.Sscanf(pageURL[i:], "offset=%d", &start)
	}

	page := &klaviyo.ProfilePage{}
	for i := start; i < start+f.pageSize && i < f.total; i++ {
		page.Profiles = append(page.Profiles, klaviyo.Profile{
			ID:      fmt.Sprintf("P%04d", i),
			Email:   fmt.Sprintf("user%d@example.com", i),
			Phone:   "",
			Created: "2023-01-01T00:00:00+00:00",
			Updated: "2024-01-01T00:00:00+00:00",
		})
	}
	if start+f.pageSize < f.total {
		page.NextPage = fmt.Sprintf("/segments/S1/profiles/?offset=%d", start+f.pageSize)
	}
	return page, nil
}

func TestExportWalksAllPages(t *testing.T) {
	pager := &fakePager{total: 250, pageSize: 100}
	e := NewExporter(segcache.NewMemory(), DefaultOptions())

	out, err := e.Export(context.Background(), pager, "S1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	assert.Equal(t, "Profile ID,Email,Phone,Created,Updated", lines[0])
	assert.Len(t, lines, 251) // header + 250 members
	assert.Equal(t, 3, pager.calls)
	assert.Contains(t, lines[1], "P0000")
}

func TestExportStopsAtRowCap(t *testing.T) {
	pager := &fakePager{total: 1000, pageSize: 100}
	e := NewExporter(segcache.NewMemory(), Options{PageSize: 100, MaxRows: 150})

	out, err := e.Export(context.Background(), pager, "S1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	assert.Len(t, lines, 151, "row cap must bound the output even with more pages upstream")
	// No further pages fetched once the cap is hit mid-page.
	assert.Equal(t, 2, pager.calls)
}

func TestExportQuotesDelimiterFields(t *testing.T) {
	pager := &quotedPager{}
	e := NewExporter(segcache.NewMemory(), DefaultOptions())

	out, err := e.Export(context.Background(), pager, "S1")
	require.NoError(t, err)

	assert.Contains(t, string(out), `"Smith, Jane <jane@example.com>"`)
}

type quotedPager struct{}

func (*quotedPager) GetSegmentProfiles(context.Context, string) (*klaviyo.ProfilePage, error) {
	return &klaviyo.ProfilePage{Profiles: []klaviyo.Profile{{
		ID:    "P1",
		Email: "Smith, Jane <jane@example.com>",
	}}}, nil
}

func TestResolveSegmentIDPrefersExplicit(t *testing.T) {
	cache := segcache.NewMemory()
	require.NoError(t, cache.Put(context.Background(), "caller1", "CACHED"))

	e := NewExporter(cache, DefaultOptions())
	id, err := e.ResolveSegmentID(context.Background(), "EXPLICIT", "caller1")
	require.NoError(t, err)
	assert.Equal(t, "EXPLICIT", id)
}

func TestResolveSegmentIDFallsBackToCache(t *testing.T) {
	cache := segcache.NewMemory()
	require.NoError(t, cache.Put(context.Background(), "caller1", "CACHED"))

	e := NewExporter(cache, DefaultOptions())
	id, err := e.ResolveSegmentID(context.Background(), "", "caller1")
	require.NoError(t, err)
	assert.Equal(t, "CACHED", id)
}

func TestResolveSegmentIDNoneAvailable(t *testing.T) {
	e := NewExporter(segcache.NewMemory(), DefaultOptions())
	_, err := e.ResolveSegmentID(context.Background(), "", "caller1")

	var noSeg *NoSegmentAvailableError
	require.ErrorAs(t, err, &noSeg)
	assert.Contains(t, err.Error(), "run analysis first")
}
