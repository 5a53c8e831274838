package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/klaviyo-audit/internal/klaviyo"
	"github.com/ignite/klaviyo-audit/internal/pricing"
	"github.com/ignite/klaviyo-audit/internal/segcache"
)

// fakeSegmentAPI scripts the upstream platform for orchestrator tests.
type fakeSegmentAPI struct {
	metrics    []klaviyo.Metric
	metricsErr error
	createErr  error

	created []string // segment names in creation order
	deleted []string

	// counts[segmentID] is the sequence of profile counts returned by
	// successive GetSegment calls; nil entries mean "still processing".
	counts map[string][]*int
	reads  map[string]int
}

func newFakeSegmentAPI() *fakeSegmentAPI {
	return &fakeSegmentAPI{
		metrics: allMetrics(),
		counts:  make(map[string][]*int),
		reads:   make(map[string]int),
	}
}

func (f *fakeSegmentAPI) ListMetrics(context.Context) ([]klaviyo.Metric, error) {
	if f.metricsErr != nil {
		return nil, f.metricsErr
	}
	return f.metrics, nil
}

func (f *fakeSegmentAPI) CreateSegment(_ context.Context, name string, _ klaviyo.SegmentDefinition) (*klaviyo.Segment, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, name)
	id := "SEG" + string(rune('0'+len(f.created)))
	return &klaviyo.Segment{ID: id, Name: name}, nil
}

func (f *fakeSegmentAPI) GetSegment(_ context.Context, segmentID string) (*klaviyo.Segment, error) {
	seq := f.counts[segmentID]
	idx := f.reads[segmentID]
	f.reads[segmentID]++

	var count *int
	if idx < len(seq) {
		count = seq[idx]
	} else if len(seq) > 0 {
		count = seq[len(seq)-1]
	}
	return &klaviyo.Segment{ID: segmentID, ProfileCount: count}, nil
}

func (f *fakeSegmentAPI) DeleteSegment(_ context.Context, segmentID string) error {
	f.deleted = append(f.deleted, segmentID)
	return nil
}

type recordingNotifier struct {
	results []Result
	emails  []string
}

func (n *recordingNotifier) AnalysisComplete(_ context.Context, r Result, email string) {
	n.results = append(n.results, r)
	n.emails = append(n.emails, email)
}

func intp(v int) *int { return &v }

func testOptions() Options {
	return Options{CreationPause: 0, InitialWait: 0, PollInterval: 0, MaxPolls: 3, DeleteTotal: true}
}

func TestAnalyzeHappyPath(t *testing.T) {
	api := newFakeSegmentAPI()
	api.counts["SEG1"] = []*int{intp(1200)} // total
	api.counts["SEG2"] = []*int{intp(400)}  // inactive

	cache := segcache.NewMemory()
	notifier := &recordingNotifier{}
	o := NewOrchestrator(pricing.DefaultTable, cache, notifier, testOptions())

	result, err := o.Analyze(context.Background(), api, "caller1", 90, "ops@example.com")
	require.NoError(t, err)

	assert.Equal(t, 1200, result.TotalProfiles)
	assert.Equal(t, 400, result.InactiveProfiles)
	assert.Equal(t, 800, result.ActiveProfiles)
	assert.Equal(t, result.TotalProfiles, result.ActiveProfiles+result.InactiveProfiles)

	// 1200 → $50 tier, 800 → $30 tier.
	assert.Equal(t, 20.0, result.MonthlySavings)
	assert.Equal(t, 240.0, result.AnnualSavings)

	assert.Equal(t, "SEG2", result.SegmentID)
	assert.Contains(t, result.SegmentName, "Inactive_90_days_")
	assert.NotNil(t, result.InactiveProfileIDs)

	// Creation order: total before inactive.
	require.Len(t, api.created, 2)
	assert.Contains(t, api.created[0], "Total_Active_Profiles_")
	assert.Contains(t, api.created[1], "Inactive_90_days_")

	// Transient total segment cleaned up; inactive retained for export.
	assert.Equal(t, []string{"SEG1"}, api.deleted)

	// Inactive id cached for the caller.
	id, ok, err := cache.Get(context.Background(), "caller1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "SEG2", id)

	// Notification carried the result and reporting address.
	require.Len(t, notifier.results, 1)
	assert.Equal(t, 400, notifier.results[0].InactiveProfiles)
	assert.Equal(t, "ops@example.com", notifier.emails[0])
}

func TestAnalyzePollsUntilCountsReady(t *testing.T) {
	api := newFakeSegmentAPI()
	// Total materializes on the first read, inactive only on the third.
	api.counts["SEG1"] = []*int{intp(1000)}
	api.counts["SEG2"] = []*int{nil, nil, intp(250)}

	o := NewOrchestrator(pricing.DefaultTable, segcache.NewMemory(), nil, testOptions())
	result, err := o.Analyze(context.Background(), api, "caller1", 90, "")
	require.NoError(t, err)

	assert.Equal(t, 250, result.InactiveProfiles)
	assert.Equal(t, 3, api.reads["SEG2"])
}

func TestAnalyzeDefaultsMissingCountsToZero(t *testing.T) {
	api := newFakeSegmentAPI()
	api.counts["SEG1"] = []*int{intp(1000)}
	api.counts["SEG2"] = []*int{nil} // never materializes

	o := NewOrchestrator(pricing.DefaultTable, segcache.NewMemory(), nil, testOptions())
	result, err := o.Analyze(context.Background(), api, "caller1", 90, "")
	require.NoError(t, err)

	// Poll budget exhausted, then proceed with zero rather than failing.
	assert.Equal(t, 3, api.reads["SEG2"])
	assert.Equal(t, 0, result.InactiveProfiles)
	assert.Equal(t, 1000, result.ActiveProfiles)
	assert.Zero(t, result.MonthlySavings)
}

func TestAnalyzeMetricMissingCreatesNoSegments(t *testing.T) {
	api := newFakeSegmentAPI()
	api.metrics = []klaviyo.Metric{
		{ID: "M1", Name: MetricOpenedEmail},
		{ID: "M2", Name: MetricClickedEmail},
		{ID: "M4", Name: MetricReceivedEmail},
	}

	o := NewOrchestrator(pricing.DefaultTable, segcache.NewMemory(), nil, testOptions())
	_, err := o.Analyze(context.Background(), api, "caller1", 90, "")

	var notFound *MetricNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, MetricPlacedOrder, notFound.Metric)
	assert.Empty(t, api.created, "no segment may be created when a metric is missing")
}

func TestAnalyzeCreateFailureIsTerminal(t *testing.T) {
	api := newFakeSegmentAPI()
	api.createErr = &klaviyo.APIError{StatusCode: 429, Detail: "rate limited"}

	cache := segcache.NewMemory()
	o := NewOrchestrator(pricing.DefaultTable, cache, nil, testOptions())
	_, err := o.Analyze(context.Background(), api, "caller1", 90, "")

	var apiErr *klaviyo.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 429, apiErr.StatusCode)

	// Nothing cached on a failed run.
	_, ok, _ := cache.Get(context.Background(), "caller1")
	assert.False(t, ok)
}

func TestAnalyzeRejectsNonPositiveWindow(t *testing.T) {
	o := NewOrchestrator(pricing.DefaultTable, segcache.NewMemory(), nil, testOptions())
	for _, days := range []int{0, -7} {
		_, err := o.Analyze(context.Background(), newFakeSegmentAPI(), "caller1", days, "")
		var windowErr *WindowError
		require.ErrorAs(t, err, &windowErr, "days=%d", days)
	}
}

func TestAnalyzeInactiveExceedingTotalClamps(t *testing.T) {
	api := newFakeSegmentAPI()
	// Stale reads can report more inactive than total profiles.
	api.counts["SEG1"] = []*int{intp(1000)}
	api.counts["SEG2"] = []*int{intp(4000)}

	o := NewOrchestrator(pricing.DefaultTable, segcache.NewMemory(), nil, testOptions())
	result, err := o.Analyze(context.Background(), api, "caller1", 90, "")
	require.NoError(t, err)

	// The tier lookup clamps at zero; the reported active count keeps the
	// arithmetic identity with the raw reads.
	assert.Equal(t, 0, result.NewTier.Min)
	assert.Equal(t, 30.0, result.MonthlySavings)
	assert.Equal(t, -3000, result.ActiveProfiles)
}
