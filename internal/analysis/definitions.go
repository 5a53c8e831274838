package analysis

import (
	"fmt"
	"time"

	"github.com/ignite/klaviyo-audit/internal/klaviyo"
)

// allTimeStart is the epoch used for the "never placed an order" condition.
// Far enough back to cover any account's history; the platform has no
// literal "ever" operator.
const allTimeStart = "2015-01-01T00:00:00.000Z"

// minReceivedEmails is how many emails a contact must have received inside
// the window before zero engagement counts as inactivity. Contacts mailed
// less than this were never given a fair chance to engage.
const minReceivedEmails = 5

const timestampLayout = "2006-01-02T15:04:05.000Z"

// Definitions is the pair of segment definitions one analysis creates.
type Definitions struct {
	TotalName    string
	Total        klaviyo.SegmentDefinition
	InactiveName string
	Inactive     klaviyo.SegmentDefinition
}

// BuildDefinitions renders the two segment definitions for an analysis run.
//
// The total/active definition is a single marketing-consent group with no
// recency condition. The inactive definition is the same consent group plus
// four metric groups: zero opens and zero clicks inside the window, zero
// orders ever, and at least minReceivedEmails received inside the window.
// Names carry a millisecond timestamp so repeated runs never collide.
//
// Pure construction; windowDays must already be validated as positive.
func BuildDefinitions(ids *MetricIDs, windowDays int, now time.Time) Definitions {
	cutoff := now.AddDate(0, 0, -windowDays).UTC().Format(timestampLayout)
	suffix := now.UnixMilli()

	consent := klaviyo.ConditionGroup{
		Conditions: []klaviyo.Condition{{
			Type: klaviyo.ConditionMarketingConsent,
			Consent: &klaviyo.ConsentFilter{
				Channel:             klaviyo.ChannelEmail,
				CanReceiveMarketing: true,
				ConsentStatus:       klaviyo.ConsentStatus{Subscription: klaviyo.SubscriptionAny},
			},
		}},
	}

	return Definitions{
		TotalName: fmt.Sprintf("Total_Active_Profiles_%d", suffix),
		Total: klaviyo.SegmentDefinition{
			ConditionGroups: []klaviyo.ConditionGroup{consent},
		},
		InactiveName: fmt.Sprintf("Inactive_%d_days_%d", windowDays, suffix),
		Inactive: klaviyo.SegmentDefinition{
			ConditionGroups: []klaviyo.ConditionGroup{
				consent,
				metricCountGroup(ids.OpenedEmail, klaviyo.OperatorEquals, 0, cutoff),
				metricCountGroup(ids.ClickedEmail, klaviyo.OperatorEquals, 0, cutoff),
				metricCountGroup(ids.PlacedOrder, klaviyo.OperatorEquals, 0, allTimeStart),
				metricCountGroup(ids.ReceivedEmail, klaviyo.OperatorAtLeast, minReceivedEmails, cutoff),
			},
		},
	}
}

// metricCountGroup builds a one-condition group comparing a metric's event
// count against value for events after sinceDate.
func metricCountGroup(metricID, operator string, value int, sinceDate string) klaviyo.ConditionGroup {
	return klaviyo.ConditionGroup{
		Conditions: []klaviyo.Condition{{
			Type:        klaviyo.ConditionProfileMetric,
			MetricID:    metricID,
			Measurement: klaviyo.MeasurementCount,
			MeasurementFilter: &klaviyo.MeasurementFilter{
				Type:     klaviyo.FilterTypeNumeric,
				Operator: operator,
				Value:    value,
			},
			TimeframeFilter: &klaviyo.TimeframeFilter{
				Type:     klaviyo.FilterTypeDate,
				Operator: klaviyo.OperatorAfter,
				Date:     sinceDate,
			},
		}},
	}
}
