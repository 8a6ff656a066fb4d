package metrics

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Sample is one labelled metric value.
type Sample struct {
	Name   string
	Labels string // already formatted, e.g. `status="success"`
	Value  float64
}

// Snapshot captures current in-memory metrics, sorted by name and labels.
type Snapshot struct {
	Counters []Sample
	Gauges   []Sample
}

// Counter returns the value of a counter, or 0 when it was never incremented.
func (s Snapshot) Counter(name, labels string) float64 {
	for _, c := range s.Counters {
		if c.Name == name && c.Labels == labels {
			return c.Value
		}
	}
	return 0
}

type seriesKey struct {
	name   string
	labels string
}

// InMemoryRecorder stores metrics in memory. It backs the /metrics endpoint.
type InMemoryRecorder struct {
	mu       sync.Mutex
	counters map[seriesKey]float64
	gauges   map[seriesKey]float64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		counters: make(map[seriesKey]float64),
		gauges:   make(map[seriesKey]float64),
	}
}

func (m *InMemoryRecorder) add(name, labels string, v float64) {
	m.mu.Lock()
	m.counters[seriesKey{name, labels}] += v
	m.mu.Unlock()
}

func (m *InMemoryRecorder) set(name, labels string, v float64) {
	m.mu.Lock()
	m.gauges[seriesKey{name, labels}] = v
	m.mu.Unlock()
}

func label(k, v string) string {
	return k + "=" + strconv.Quote(v)
}

// Snapshot returns a copy of the metrics.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		Counters: collect(m.counters),
		Gauges:   collect(m.gauges),
	}
}

func collect(series map[seriesKey]float64) []Sample {
	out := make([]Sample, 0, len(series))
	for k, v := range series {
		out = append(out, Sample{Name: k.name, Labels: k.labels, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Labels < out[j].Labels
	})
	return out
}

// IncLogin counts a login attempt by outcome.
func (m *InMemoryRecorder) IncLogin(status string) {
	m.add("logins_total", label("status", status), 1)
}

// IncRegistration counts a registration by verification email outcome.
func (m *InMemoryRecorder) IncRegistration(emailStatus string) {
	m.add("registrations_total", label("email_status", emailStatus), 1)
}

// IncPasswordChanged counts password changes and resets.
func (m *InMemoryRecorder) IncPasswordChanged(reason string) {
	m.add("password_changes_total", label("reason", reason), 1)
}

// IncEmailSent counts outgoing emails.
func (m *InMemoryRecorder) IncEmailSent(kind, status string) {
	m.add("emails_total", label("kind", kind)+","+label("status", status), 1)
}

// IncAPIKeyVerification counts vendor key checks.
func (m *InMemoryRecorder) IncAPIKeyVerification(valid bool) {
	m.add("api_key_verifications_total", label("valid", strconv.FormatBool(valid)), 1)
}

// IncGroupCreated counts created groups.
func (m *InMemoryRecorder) IncGroupCreated() {
	m.add("groups_created_total", "", 1)
}

// IncInvitation counts invitation transitions.
func (m *InMemoryRecorder) IncInvitation(status string) {
	m.add("invitations_total", label("status", status), 1)
}

// IncAuditEventPublished counts login events handed to the audit stream.
func (m *InMemoryRecorder) IncAuditEventPublished(status string) {
	m.add("audit_events_published_total", label("status", status), 1)
}

// IncAuditEventProcessed counts login events written by the audit worker.
func (m *InMemoryRecorder) IncAuditEventProcessed(status string) {
	m.add("audit_events_processed_total", label("status", status), 1)
}

// ObserveAuditBatchSize records a batch size.
func (m *InMemoryRecorder) ObserveAuditBatchSize(size int) {
	m.add("audit_batches_total", "", 1)
	m.add("audit_batch_events_sum", "", float64(size))
}

// ObserveAuditBatchDuration records a batch duration.
func (m *InMemoryRecorder) ObserveAuditBatchDuration(duration time.Duration) {
	m.add("audit_batch_duration_seconds_count", "", 1)
	m.add("audit_batch_duration_seconds_sum", "", duration.Seconds())
}

// SetAuditQueueDepth sets the pending audit stream depth.
func (m *InMemoryRecorder) SetAuditQueueDepth(depth int64) {
	m.set("audit_queue_depth", "", float64(depth))
}
