// Package stats derives service-level metrics from store scans.
//
// Everything here is computed from the request records themselves; there are
// no separate counters that could drift out of sync with the store.
package stats

import (
	"context"
	"time"

	"verivote/internal/oracle/ledger"
	"verivote/internal/oracle/models"
	"verivote/internal/oracle/provider"
	"verivote/internal/oracle/store"
	"verivote/pkg/requestcontext"
)

// Summary is the aggregate view over all recorded requests.
type Summary struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Verified  int `json:"verified"`

	// SuccessRate is verified over completed. Zero when nothing completed.
	SuccessRate float64 `json:"success_rate"`

	// AvgProcessingMs averages over completed and failed requests.
	AvgProcessingMs float64 `json:"avg_processing_ms"`

	VolumeLastHour int `json:"volume_last_hour"`
	VolumeLastDay  int `json:"volume_last_day"`

	FailureReasons map[string]int `json:"failure_reasons"`
}

// Health is the service health report.
type Health struct {
	Status         string            `json:"status"` // "ok" or "degraded"
	Checks         map[string]string `json:"checks"`
	LedgerDegraded bool              `json:"ledger_degraded"`
}

// Aggregator scans the request store and inspects collaborator health.
type Aggregator struct {
	requests  store.Store
	authority provider.Provider
	bridge    *ledger.Bridge
}

func New(requests store.Store, authority provider.Provider, bridge *ledger.Bridge) *Aggregator {
	return &Aggregator{requests: requests, authority: authority, bridge: bridge}
}

// Stats computes the summary from a full store scan.
func (a *Aggregator) Stats(ctx context.Context) (Summary, error) {
	all, err := a.requests.All(ctx)
	if err != nil {
		return Summary{}, err
	}

	now := requestcontext.Now(ctx)
	hourAgo := now.Add(-time.Hour)
	dayAgo := now.Add(-24 * time.Hour)

	summary := Summary{FailureReasons: make(map[string]int)}
	var processingMsTotal int64
	var processedCount int

	for _, req := range all {
		summary.Total++
		switch {
		case req.Status == models.StatusCompleted:
			summary.Completed++
			if req.IsVerified != nil && *req.IsVerified {
				summary.Verified++
			}
		case req.Status == models.StatusFailed:
			summary.Failed++
			if req.FailureReason != "" {
				summary.FailureReasons[req.FailureReason]++
			}
		default:
			summary.Active++
		}
		if req.Status.IsTerminal() && req.ProcessingStartedAt != nil && req.CompletedAt != nil {
			processingMsTotal += req.ProcessingTimeMs()
			processedCount++
		}
		if req.CreatedAt.After(hourAgo) {
			summary.VolumeLastHour++
		}
		if req.CreatedAt.After(dayAgo) {
			summary.VolumeLastDay++
		}
	}

	if summary.Completed > 0 {
		summary.SuccessRate = float64(summary.Verified) / float64(summary.Completed)
	}
	if processedCount > 0 {
		summary.AvgProcessingMs = float64(processingMsTotal) / float64(processedCount)
	}
	return summary, nil
}

// HealthReport checks the store, the authority, and the ledger bridge.
// Ledger degradation never fails individual requests; this report is the
// only place it surfaces.
func (a *Aggregator) HealthReport(ctx context.Context) Health {
	checks := make(map[string]string)
	status := "ok"

	if _, _, err := a.requests.Query(ctx, store.Filters{}, 1, 1); err != nil {
		checks["store"] = err.Error()
		status = "degraded"
	} else {
		checks["store"] = "ok"
	}

	healthCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := a.authority.Health(healthCtx); err != nil {
		checks["provider"] = err.Error()
		status = "degraded"
	} else {
		checks["provider"] = "ok"
	}

	degraded := a.bridge.Degraded()
	if degraded {
		checks["ledger"] = "degraded"
		status = "degraded"
	} else {
		checks["ledger"] = "ok"
	}

	return Health{Status: status, Checks: checks, LedgerDegraded: degraded}
}
