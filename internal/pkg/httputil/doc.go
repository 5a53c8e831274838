// Package httputil provides shared HTTP response helpers for handlers:
// JSON envelopes, error responses, and CSV attachment writing.
//
// Handlers should use these instead of raw http.ResponseWriter calls so
// that status codes, content types, and error shapes stay consistent
// across endpoints.
package httputil
