// Package notify posts analysis summaries to a messaging webhook. Delivery
// is best effort: every failure is logged and swallowed so the side channel
// can never fail an analysis.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ignite/klaviyo-audit/internal/analysis"
	"github.com/ignite/klaviyo-audit/internal/pkg/logger"
)

// Webhook sends summaries to a Slack-compatible incoming webhook.
type Webhook struct {
	url        string
	httpClient *http.Client
}

// NewWebhook creates a webhook notifier. An empty URL disables sending.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	Text string `json:"text"`
}

// AnalysisComplete posts a one-line summary of an analysis run.
func (w *Webhook) AnalysisComplete(ctx context.Context, result analysis.Result, reportEmail string) {
	if w.url == "" {
		return
	}

	text := fmt.Sprintf(
		"Inactive-profile analysis: %d of %d profiles inactive (%d active). "+
			"Removing them saves $%.2f/month ($%.2f/year). Segment: %s",
		result.InactiveProfiles, result.TotalProfiles, result.ActiveProfiles,
		result.MonthlySavings, result.AnnualSavings, result.SegmentName,
	)
	if reportEmail != "" {
		text += " (requested by " + reportEmail + ")"
	}

	body, err := json.Marshal(webhookPayload{Text: text})
	if err != nil {
		logger.Warn("notification payload marshal failed", "error", err.Error())
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		logger.Warn("notification request build failed", "error", err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		logger.Warn("notification delivery failed", "error", err.Error())
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		logger.Warn("notification rejected", "status", fmt.Sprintf("%d", resp.StatusCode))
	}
}
