package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/ignite/klaviyo-audit/internal/analysis"
	"github.com/ignite/klaviyo-audit/internal/config"
	"github.com/ignite/klaviyo-audit/internal/export"
	"github.com/ignite/klaviyo-audit/internal/klaviyo"
	"github.com/ignite/klaviyo-audit/internal/pkg/httputil"
	"github.com/ignite/klaviyo-audit/internal/pkg/logger"
	"github.com/ignite/klaviyo-audit/internal/segcache"
)

const exportFilename = "inactive-profiles.csv"

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	klaviyoCfg        klaviyo.Config
	defaultWindowDays int
	orchestrator      *analysis.Orchestrator
	exporter          *export.Exporter
	startTime         time.Time
}

// NewHandlers creates the handler set. A Klaviyo client is built per request
// from the X-Api-Key header; the server itself never holds a credential.
func NewHandlers(cfg *config.Config, orchestrator *analysis.Orchestrator, exporter *export.Exporter) *Handlers {
	return &Handlers{
		klaviyoCfg: klaviyo.Config{
			BaseURL:  cfg.Klaviyo.BaseURL,
			Revision: cfg.Klaviyo.Revision,
			Timeout:  cfg.Klaviyo.Timeout(),
		},
		defaultWindowDays: cfg.Analysis.DefaultWindowDays,
		orchestrator:      orchestrator,
		exporter:          exporter,
		startTime:         time.Now(),
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{
		"status": "healthy",
		"uptime": time.Since(h.startTime).Round(time.Second).String(),
	})
}

type analyzeRequest struct {
	DaysInactive int    `json:"daysInactive"`
	Email        string `json:"email"`
}

// Analyze handles POST /api/analyze: runs the full inactive-profile
// analysis for the account identified by the X-Api-Key header.
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	apiKey, ok := h.requireAPIKey(w, r)
	if !ok {
		return
	}

	var req analyzeRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	windowDays := req.DaysInactive
	if windowDays == 0 {
		windowDays = h.defaultWindowDays
	}

	client := klaviyo.NewClient(h.klaviyoCfg, apiKey)
	callerKey := segcache.CallerKey(apiKey)

	result, err := h.orchestrator.Analyze(r.Context(), client, callerKey, windowDays, req.Email)
	if err != nil {
		h.writeError(w, err)
		return
	}

	httputil.OK(w, result)
}

type exportRequest struct {
	SegmentID string `json:"segmentId"`
}

// Export handles POST /api/export: streams the inactive segment's
// membership as a CSV attachment. The segment id may be supplied
// explicitly; otherwise the caller's most recent analysis is used.
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	apiKey, ok := h.requireAPIKey(w, r)
	if !ok {
		return
	}

	var req exportRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	callerKey := segcache.CallerKey(apiKey)
	segmentID, err := h.exporter.ResolveSegmentID(r.Context(), req.SegmentID, callerKey)
	if err != nil {
		h.writeError(w, err)
		return
	}

	client := klaviyo.NewClient(h.klaviyoCfg, apiKey)
	body, err := h.exporter.Export(r.Context(), client, segmentID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	httputil.CSV(w, exportFilename, body)
}

func (h *Handlers) requireAPIKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	apiKey := r.Header.Get("X-Api-Key")
	if apiKey == "" {
		httputil.Unauthorized(w, "missing X-Api-Key header")
		return "", false
	}
	return apiKey, true
}

// decodeOptional decodes a JSON body where an empty body is acceptable.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		httputil.BadRequest(w, "invalid JSON body")
		return false
	}
	return true
}

// writeError maps pipeline errors to HTTP responses without leaking
// anything about the credential.
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	var metricErr *analysis.MetricNotFoundError
	var windowErr *analysis.WindowError
	var noSegErr *export.NoSegmentAvailableError
	var apiErr *klaviyo.APIError

	switch {
	case errors.As(err, &metricErr), errors.As(err, &windowErr), errors.As(err, &noSegErr):
		httputil.BadRequest(w, err.Error())
	case errors.As(err, &apiErr):
		if apiErr.PermissionDenied() {
			httputil.Error(w, http.StatusForbidden,
				"the API key lacks required scopes; grant metrics:read, segments:read, segments:write and profiles:read")
			return
		}
		status := apiErr.StatusCode
		if status >= 500 {
			status = http.StatusBadGateway
		}
		httputil.Error(w, status, err.Error())
	default:
		logger.Error("request failed", "error", err.Error())
		httputil.InternalError(w, err)
	}
}
