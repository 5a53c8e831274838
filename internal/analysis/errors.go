package analysis

import "fmt"

// MetricNotFoundError means the account's metric catalog has no metric with
// a required name. This is a caller-side problem (the account never tracked
// the event), distinct from not being able to read the catalog at all.
type MetricNotFoundError struct {
	Metric string
}

func (e *MetricNotFoundError) Error() string {
	return fmt.Sprintf("could not find %q metric in your account", e.Metric)
}

// WindowError rejects a non-positive inactivity window.
type WindowError struct {
	Days int
}

func (e *WindowError) Error() string {
	return fmt.Sprintf("daysInactive must be a positive number of days, got %d", e.Days)
}
