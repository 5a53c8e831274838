package analysis

import (
	"context"
	"fmt"

	"github.com/ignite/klaviyo-audit/internal/klaviyo"
)

// Names of the event metrics the inactivity criteria are built on. These are
// Klaviyo's built-in email/commerce metric names, matched exactly.
const (
	MetricOpenedEmail   = "Opened Email"
	MetricClickedEmail  = "Clicked Email"
	MetricPlacedOrder   = "Placed Order"
	MetricReceivedEmail = "Received Email"
)

// MetricIDs holds the account-specific ids of the four required metrics.
type MetricIDs struct {
	OpenedEmail   string
	ClickedEmail  string
	PlacedOrder   string
	ReceivedEmail string
}

// MetricLister is the slice of the Klaviyo client the resolver needs.
type MetricLister interface {
	ListMetrics(ctx context.Context) ([]klaviyo.Metric, error)
}

// ResolveMetrics fetches the metric catalog and locates the four required
// metrics by exact name. The catalog is re-fetched on every call; ids are
// account-specific and cheap to look up compared to the rest of the
// pipeline. A catalog failure and a missing metric surface as different
// errors so the caller knows whether to fix key scopes or their account.
func ResolveMetrics(ctx context.Context, client MetricLister) (*MetricIDs, error) {
	metrics, err := client.ListMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch metrics, ensure the API key has metrics:read permission: %w", err)
	}

	byName := make(map[string]string, len(metrics))
	for _, m := range metrics {
		byName[m.Name] = m.ID
	}

	ids := &MetricIDs{}
	for _, lookup := range []struct {
		name string
		dst  *string
	}{
		{MetricOpenedEmail, &ids.OpenedEmail},
		{MetricClickedEmail, &ids.ClickedEmail},
		{MetricPlacedOrder, &ids.PlacedOrder},
		{MetricReceivedEmail, &ids.ReceivedEmail},
	} {
		id, ok := byName[lookup.name]
		if !ok {
			return nil, &MetricNotFoundError{Metric: lookup.name}
		}
		*lookup.dst = id
	}

	return ids, nil
}
