// Package export turns a previously created inactive segment into a CSV of
// its members, walking the platform's cursor-paginated profiles endpoint.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"github.com/ignite/klaviyo-audit/internal/klaviyo"
	"github.com/ignite/klaviyo-audit/internal/pkg/logger"
	"github.com/ignite/klaviyo-audit/internal/segcache"
)

// NoSegmentAvailableError means no segment id was supplied and none is
// cached for this caller.
type NoSegmentAvailableError struct{}

func (*NoSegmentAvailableError) Error() string {
	return "no segment ID available, run analysis first"
}

// ProfilePager is the slice of the Klaviyo client the exporter needs.
type ProfilePager interface {
	GetSegmentProfiles(ctx context.Context, pageURL string) (*klaviyo.ProfilePage, error)
}

// Options tunes the export walk.
type Options struct {
	// PageSize is the page[size] requested from the platform.
	PageSize int
	// MaxRows caps the export to bound output size. Hitting the cap stops
	// the walk early; it is not an error.
	MaxRows int
}

// DefaultOptions matches the platform's maximum profile page size and a cap
// that keeps the CSV comfortably attachable.
func DefaultOptions() Options {
	return Options{PageSize: 100, MaxRows: 5000}
}

// Exporter renders segment memberships to CSV.
type Exporter struct {
	cache segcache.Store
	opts  Options
}

// NewExporter creates an exporter backed by the given segment cache.
func NewExporter(cache segcache.Store, opts Options) *Exporter {
	return &Exporter{cache: cache, opts: opts}
}

// ResolveSegmentID picks the segment to export: an explicitly supplied id
// wins, otherwise the caller's cached id from a prior analysis.
func (e *Exporter) ResolveSegmentID(ctx context.Context, explicitID, callerKey string) (string, error) {
	if explicitID != "" {
		return explicitID, nil
	}
	id, ok, err := e.cache.Get(ctx, callerKey)
	if err != nil {
		logger.Warn("segment cache read failed", "error", err.Error())
	}
	if !ok || id == "" {
		return "", &NoSegmentAvailableError{}
	}
	return id, nil
}

// Export walks the segment's membership pages and renders a CSV document:
// a header row plus one row per member, fields quoted only where needed.
func (e *Exporter) Export(ctx context.Context, client ProfilePager, segmentID string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Profile ID", "Email", "Phone", "Created", "Updated"}); err != nil {
		return nil, err
	}

	exported := 0
	pageURL := klaviyo.FirstProfilesPage(segmentID, e.opts.PageSize)
	for pageURL != "" && exported < e.opts.MaxRows {
		page, err := client.GetSegmentProfiles(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch segment members: %w", err)
		}

		for _, p := range page.Profiles {
			if exported >= e.opts.MaxRows {
				break
			}
			if err := w.Write([]string{p.ID, p.Email, p.Phone, p.Created, p.Updated}); err != nil {
				return nil, err
			}
			exported++
		}
		pageURL = page.NextPage
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	logger.Info("segment export complete", "segment_id", segmentID, "rows", exported)
	return buf.Bytes(), nil
}
