// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Authentication metrics
	IncLogin(status string) // status: "success", "invalid", "disabled", "rate_limited"
	IncRegistration(emailStatus string)
	IncPasswordChanged(reason string) // reason: "change", "reset"

	// Outgoing email
	IncEmailSent(kind, status string)

	// Domain operations
	IncAPIKeyVerification(valid bool)
	IncGroupCreated()
	IncInvitation(status string)

	// Audit pipeline metrics
	IncAuditEventPublished(status string) // status: "success", "fallback", "dropped"
	IncAuditEventProcessed(status string) // status: "success", "failed", "dead_lettered"
	ObserveAuditBatchSize(size int)
	ObserveAuditBatchDuration(duration time.Duration)
	SetAuditQueueDepth(depth int64)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
