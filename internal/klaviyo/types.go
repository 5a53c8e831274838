package klaviyo

// Metric is a named trackable event type (e.g. "Opened Email").
// Metric IDs are opaque and account-specific.
type Metric struct {
	ID   string
	Name string
}

// Segment is a named audience filter. ProfileCount is nil until the
// platform has finished materializing the segment membership.
type Segment struct {
	ID           string
	Name         string
	ProfileCount *int
}

// Profile is a single segment member as returned by the profiles endpoint.
type Profile struct {
	ID      string
	Email   string
	Phone   string
	Created string
	Updated string
}

// ProfilePage is one page of segment members plus the cursor link to the
// next page (empty when there are no further pages).
type ProfilePage struct {
	Profiles []Profile
	NextPage string
}

// SegmentDefinition is the filter tree sent on segment creation. Groups are
// ANDed together, as are the conditions within a group.
type SegmentDefinition struct {
	ConditionGroups []ConditionGroup `json:"condition_groups"`
}

// ConditionGroup is a logical AND of conditions.
type ConditionGroup struct {
	Conditions []Condition `json:"conditions"`
}

// Condition is a single segment filter condition. Exactly one of the
// consent or metric field sets is populated depending on Type.
type Condition struct {
	Type string `json:"type"`

	// profile-marketing-consent
	Consent *ConsentFilter `json:"consent,omitempty"`

	// profile-metric
	MetricID          string             `json:"metric_id,omitempty"`
	Measurement       string             `json:"measurement,omitempty"`
	MeasurementFilter *MeasurementFilter `json:"measurement_filter,omitempty"`
	TimeframeFilter   *TimeframeFilter   `json:"timeframe_filter,omitempty"`
}

// ConsentFilter matches profiles by marketing consent state on a channel.
type ConsentFilter struct {
	Channel             string        `json:"channel"`
	CanReceiveMarketing bool          `json:"can_receive_marketing"`
	ConsentStatus       ConsentStatus `json:"consent_status"`
}

// ConsentStatus narrows consent by subscription state ("any" matches all).
type ConsentStatus struct {
	Subscription string `json:"subscription"`
}

// MeasurementFilter compares an event count against a value.
type MeasurementFilter struct {
	Type     string `json:"type"`
	Operator string `json:"operator"`
	Value    int    `json:"value"`
}

// TimeframeFilter bounds a metric condition to events after a date.
type TimeframeFilter struct {
	Type     string `json:"type"`
	Operator string `json:"operator"`
	Date     string `json:"date"`
}

// Condition type and operator values accepted by the segments API.
const (
	ConditionMarketingConsent = "profile-marketing-consent"
	ConditionProfileMetric    = "profile-metric"

	MeasurementCount = "count"

	OperatorEquals       = "equals"
	OperatorAtLeast      = "greater-than-or-equal"
	OperatorAfter        = "after"
	FilterTypeNumeric    = "numeric"
	FilterTypeDate       = "date"
	ChannelEmail         = "email"
	SubscriptionAny      = "any"
)

// ---- wire envelopes ----

type metricListResponse struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			Name string `json:"name"`
		} `json:"attributes"`
	} `json:"data"`
}

type segmentCreateRequest struct {
	Data segmentData `json:"data"`
}

type segmentData struct {
	Type       string            `json:"type"`
	Attributes segmentAttributes `json:"attributes"`
}

type segmentAttributes struct {
	Name       string             `json:"name"`
	Definition *SegmentDefinition `json:"definition,omitempty"`
}

type segmentDetailResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Name          string `json:"name"`
			ProfilesCount *int   `json:"profiles_count"`
		} `json:"attributes"`
	} `json:"data"`
}

type profileListResponse struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			Email       string `json:"email"`
			PhoneNumber string `json:"phone_number"`
			Created     string `json:"created"`
			Updated     string `json:"updated"`
		} `json:"attributes"`
	} `json:"data"`
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
}

type errorResponse struct {
	Errors []struct {
		Detail string `json:"detail"`
	} `json:"errors"`
}
