package analysis

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/klaviyo-audit/internal/klaviyo"
	"github.com/ignite/klaviyo-audit/internal/pkg/logger"
	"github.com/ignite/klaviyo-audit/internal/pricing"
	"github.com/ignite/klaviyo-audit/internal/segcache"
)

// state is the orchestrator's position in one analysis run.
type state string

const (
	stateStart           state = "START"
	stateMetricsResolved state = "METRICS_RESOLVED"
	stateSegmentsCreated state = "SEGMENTS_CREATED"
	stateAwaiting        state = "AWAITING_MATERIALIZATION"
	stateCountsRead      state = "COUNTS_READ"
	stateDone            state = "DONE"
	stateFailed          state = "FAILED"
)

// SegmentAPI is the slice of the Klaviyo client the orchestrator needs.
type SegmentAPI interface {
	MetricLister
	CreateSegment(ctx context.Context, name string, def klaviyo.SegmentDefinition) (*klaviyo.Segment, error)
	GetSegment(ctx context.Context, segmentID string) (*klaviyo.Segment, error)
	DeleteSegment(ctx context.Context, segmentID string) error
}

// Notifier posts an analysis summary to a side channel. Implementations
// must swallow their own failures; the orchestrator never checks them.
type Notifier interface {
	AnalysisComplete(ctx context.Context, result Result, reportEmail string)
}

// Result is the outcome of one analysis run.
type Result struct {
	TotalProfiles      int          `json:"totalProfiles"`
	ActiveProfiles     int          `json:"activeProfiles"`
	InactiveProfiles   int          `json:"inactiveProfiles"`
	SegmentID          string       `json:"segmentId"`
	SegmentName        string       `json:"segmentName"`
	MonthlySavings     float64      `json:"monthlySavings"`
	AnnualSavings      float64      `json:"annualSavings"`
	CurrentTier        pricing.Tier `json:"currentTier"`
	NewTier            pricing.Tier `json:"newTier"`
	InactiveProfileIDs []string     `json:"inactiveProfileIds"`
}

// Options tunes the orchestrator's pacing.
type Options struct {
	// CreationPause spaces the two segment-create calls (and the two count
	// reads) to stay under the platform's burst rate limit.
	CreationPause time.Duration
	// InitialWait is how long to wait after creation before the first count
	// read. Segment membership is materialized asynchronously upstream.
	InitialWait time.Duration
	// PollInterval and MaxPolls bound the readiness poll: a segment whose
	// count is still null is re-read up to MaxPolls times.
	PollInterval time.Duration
	MaxPolls     int
	// DeleteTotal removes the transient total-audience segment after its
	// count is read. Best effort.
	DeleteTotal bool
}

// DefaultOptions matches the pacing the platform's processing times call for.
func DefaultOptions() Options {
	return Options{
		CreationPause: 1 * time.Second,
		InitialWait:   15 * time.Second,
		PollInterval:  5 * time.Second,
		MaxPolls:      6,
		DeleteTotal:   true,
	}
}

// Orchestrator drives the inactive-profile analysis pipeline.
type Orchestrator struct {
	table    pricing.Table
	cache    segcache.Store
	notifier Notifier
	opts     Options
}

// NewOrchestrator creates an orchestrator. notifier may be nil.
func NewOrchestrator(table pricing.Table, cache segcache.Store, notifier Notifier, opts Options) *Orchestrator {
	return &Orchestrator{table: table, cache: cache, notifier: notifier, opts: opts}
}

// Analyze runs one full analysis: resolve metrics, create the total and
// inactive segments, wait for materialization, read counts, compute savings.
// callerKey identifies the caller in the segment cache (see
// segcache.CallerKey); reportEmail is an optional address echoed into the
// notification summary.
//
// Any failure before COUNTS_READ is terminal and returned to the caller;
// the run is never retried internally.
func (o *Orchestrator) Analyze(ctx context.Context, client SegmentAPI, callerKey string, windowDays int, reportEmail string) (*Result, error) {
	if windowDays <= 0 {
		return nil, &WindowError{Days: windowDays}
	}

	runID := uuid.NewString()
	st := stateStart
	logger.Info("analysis started", "run_id", runID, "window_days", windowDays)

	ids, err := ResolveMetrics(ctx, client)
	if err != nil {
		return nil, o.fail(runID, st, err)
	}
	st = o.transition(runID, stateMetricsResolved)

	defs := BuildDefinitions(ids, windowDays, time.Now())

	// Total first; the inactive segment is only attempted once the total
	// segment exists, keeping a creation failure from leaving both behind.
	totalSeg, err := client.CreateSegment(ctx, defs.TotalName, defs.Total)
	if err != nil {
		return nil, o.fail(runID, st, err)
	}
	if err := sleep(ctx, o.opts.CreationPause); err != nil {
		return nil, o.fail(runID, st, err)
	}
	inactiveSeg, err := client.CreateSegment(ctx, defs.InactiveName, defs.Inactive)
	if err != nil {
		return nil, o.fail(runID, st, err)
	}
	st = o.transition(runID, stateSegmentsCreated)
	logger.Info("segments created", "run_id", runID, "total_segment", totalSeg.ID, "inactive_segment", inactiveSeg.ID)

	// Record immediately so an export can find the segment even if a later
	// step fails. The cache is advisory; a write failure is not.
	if err := o.cache.Put(ctx, callerKey, inactiveSeg.ID); err != nil {
		logger.Warn("segment cache write failed", "run_id", runID, "error", err.Error())
	}

	st = o.transition(runID, stateAwaiting)
	totalCount, inactiveCount, err := o.awaitCounts(ctx, client, runID, totalSeg.ID, inactiveSeg.ID)
	if err != nil {
		return nil, o.fail(runID, st, err)
	}
	o.transition(runID, stateCountsRead)

	if o.opts.DeleteTotal {
		if err := client.DeleteSegment(ctx, totalSeg.ID); err != nil {
			logger.Warn("could not delete transient total segment", "run_id", runID, "segment_id", totalSeg.ID, "error", err.Error())
		}
	}

	savings := o.table.Savings(totalCount, inactiveCount)
	result := &Result{
		TotalProfiles:      totalCount,
		ActiveProfiles:     totalCount - inactiveCount,
		InactiveProfiles:   inactiveCount,
		SegmentID:          inactiveSeg.ID,
		SegmentName:        defs.InactiveName,
		MonthlySavings:     savings.MonthlySavings,
		AnnualSavings:      savings.AnnualSavings,
		CurrentTier:        savings.CurrentTier,
		NewTier:            savings.NewTier,
		InactiveProfileIDs: []string{},
	}

	if o.notifier != nil {
		o.notifier.AnalysisComplete(ctx, *result, reportEmail)
	}

	o.transition(runID, stateDone)
	logger.Info("analysis complete", "run_id", runID,
		"total_profiles", totalCount, "inactive_profiles", inactiveCount,
		"monthly_savings", savings.MonthlySavings)
	return result, nil
}

// awaitCounts waits out the materialization delay, then reads both segment
// counts, re-polling while either count is still null. Counts that never
// materialize inside the poll budget default to zero; only an API error
// fails the run.
func (o *Orchestrator) awaitCounts(ctx context.Context, client SegmentAPI, runID, totalID, inactiveID string) (int, int, error) {
	if err := sleep(ctx, o.opts.InitialWait); err != nil {
		return 0, 0, err
	}

	var totalCount, inactiveCount *int
	for attempt := 1; ; attempt++ {
		totalSeg, err := client.GetSegment(ctx, totalID)
		if err != nil {
			return 0, 0, err
		}
		if err := sleep(ctx, o.opts.CreationPause); err != nil {
			return 0, 0, err
		}
		inactiveSeg, err := client.GetSegment(ctx, inactiveID)
		if err != nil {
			return 0, 0, err
		}

		totalCount, inactiveCount = totalSeg.ProfileCount, inactiveSeg.ProfileCount
		if totalCount != nil && inactiveCount != nil {
			break
		}
		if attempt >= o.opts.MaxPolls {
			logger.Warn("segment counts still processing after poll budget, defaulting to zero",
				"run_id", runID, "attempts", attempt)
			break
		}
		logger.Debug("segment counts not ready, polling again", "run_id", runID, "attempt", attempt)
		if err := sleep(ctx, o.opts.PollInterval); err != nil {
			return 0, 0, err
		}
	}

	return intOrZero(totalCount), intOrZero(inactiveCount), nil
}

func (o *Orchestrator) transition(runID string, to state) state {
	logger.Debug("analysis state", "run_id", runID, "state", string(to))
	return to
}

func (o *Orchestrator) fail(runID string, from state, err error) error {
	logger.Error("analysis failed", "run_id", runID, "state", string(from), "error", err.Error())
	return err
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// sleep blocks for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
