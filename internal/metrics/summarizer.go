package metrics

import (
	"strconv"
	"time"

	"github.com/namelens/sumlens/internal/observability"
)

// Summarization pipeline metrics
const (
	SummarizerRequestsTotal   = "summarizer_requests_total"
	SummarizerSourceTotal     = "summarizer_source_total"
	ProviderAttemptsTotal     = "provider_attempts_total"
	ProviderAttemptDurationMS = "provider_attempt_duration_ms"
	RateLimitDecisionsTotal   = "ratelimit_decisions_total"
	PersistenceWritesTotal    = "persistence_writes_total"
)

// Request outcomes
const (
	OutcomeResolved    = "resolved"
	OutcomeInvalid     = "invalid"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
)

// Persistence write statuses
const (
	PersistSaved   = "saved"
	PersistFailed  = "failed"
	PersistDropped = "dropped"
)

// RecordSummarizeRequest counts one pipeline run by outcome.
func RecordSummarizeRequest(outcome string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(SummarizerRequestsTotal, 1, map[string]string{
			"outcome": outcome,
		})
	}
}

// RecordSummarySource counts which path produced a summary: a provider id
// or extractive_fallback.
func RecordSummarySource(source string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(SummarizerSourceTotal, 1, map[string]string{
			"source": source,
		})
	}
}

// RecordProviderAttempt records a single provider call.
func RecordProviderAttempt(provider string, success bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	_ = observability.TelemetrySystem.Counter(ProviderAttemptsTotal, 1, map[string]string{
		"provider": provider,
		"outcome":  outcome,
	})
	_ = observability.TelemetrySystem.Histogram(ProviderAttemptDurationMS, duration, map[string]string{
		"provider": provider,
	})
}

// RecordRateLimitDecision counts limiter decisions.
func RecordRateLimitDecision(allowed bool) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(RateLimitDecisionsTotal, 1, map[string]string{
			"allowed": strconv.FormatBool(allowed),
		})
	}
}

// RecordPersistenceWrite counts background writes by status.
func RecordPersistenceWrite(status string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(PersistenceWritesTotal, 1, map[string]string{
			"status": status,
		})
	}
}
