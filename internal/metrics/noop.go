package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncLogin(string) {}
func (n *NoopRecorder) IncRegistration(string) {}
func (n *NoopRecorder) IncPasswordChanged(string) {}
func (n *NoopRecorder) IncEmailSent(string, string) {}
func (n *NoopRecorder) IncAPIKeyVerification(bool) {}
func (n *NoopRecorder) IncGroupCreated() {}
func (n *NoopRecorder) IncInvitation(string) {}
func (n *NoopRecorder) IncAuditEventPublished(string) {}
func (n *NoopRecorder) IncAuditEventProcessed(string) {}
func (n *NoopRecorder) ObserveAuditBatchSize(int) {}
func (n *NoopRecorder) ObserveAuditBatchDuration(time.Duration) {}
func (n *NoopRecorder) SetAuditQueueDepth(int64) {}
