// Package metrics provides lightweight operation counters.
package metrics

import "sync/atomic"

// Recorder counts domain operations. Implementations must be safe for
// concurrent use and must never block the caller.
type Recorder interface {
	IncPaperCreated()
	IncPaperUpdated()
	IncPaperDeleted()
	IncProgressLogged()
	IncWebhookDelivered()
	IncWebhookFailed()
	IncActivityPublished()
	IncActivityDropped()
	SetActivityQueueDepth(depth int64)
	SetWebhookQueueDepth(depth int64)
}

// Noop discards all measurements.
type Noop struct{}

// NewNoop creates a recorder that does nothing.
func NewNoop() *Noop { return &Noop{} }

func (*Noop) IncPaperCreated()               {}
func (*Noop) IncPaperUpdated()               {}
func (*Noop) IncPaperDeleted()               {}
func (*Noop) IncProgressLogged()             {}
func (*Noop) IncWebhookDelivered()           {}
func (*Noop) IncWebhookFailed()              {}
func (*Noop) IncActivityPublished()          {}
func (*Noop) IncActivityDropped()            {}
func (*Noop) SetActivityQueueDepth(int64)    {}
func (*Noop) SetWebhookQueueDepth(int64)     {}

// InMemory keeps counters in process memory, exposed through the admin
// surface and the readiness log line.
type InMemory struct {
	papersCreated      atomic.Int64
	papersUpdated      atomic.Int64
	papersDeleted      atomic.Int64
	progressLogged     atomic.Int64
	webhooksDelivered  atomic.Int64
	webhooksFailed     atomic.Int64
	activityPublished  atomic.Int64
	activityDropped    atomic.Int64
	activityQueueDepth atomic.Int64
	webhookQueueDepth  atomic.Int64
}

// NewInMemory creates an in-process recorder.
func NewInMemory() *InMemory { return &InMemory{} }

func (m *InMemory) IncPaperCreated()      { m.papersCreated.Add(1) }
func (m *InMemory) IncPaperUpdated()      { m.papersUpdated.Add(1) }
func (m *InMemory) IncPaperDeleted()      { m.papersDeleted.Add(1) }
func (m *InMemory) IncProgressLogged()    { m.progressLogged.Add(1) }
func (m *InMemory) IncWebhookDelivered()  { m.webhooksDelivered.Add(1) }
func (m *InMemory) IncWebhookFailed()     { m.webhooksFailed.Add(1) }
func (m *InMemory) IncActivityPublished() { m.activityPublished.Add(1) }
func (m *InMemory) IncActivityDropped()   { m.activityDropped.Add(1) }

func (m *InMemory) SetActivityQueueDepth(depth int64) { m.activityQueueDepth.Store(depth) }
func (m *InMemory) SetWebhookQueueDepth(depth int64)  { m.webhookQueueDepth.Store(depth) }

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	PapersCreated      int64 `json:"papers_created"`
	PapersUpdated      int64 `json:"papers_updated"`
	PapersDeleted      int64 `json:"papers_deleted"`
	ProgressLogged     int64 `json:"progress_logged"`
	WebhooksDelivered  int64 `json:"webhooks_delivered"`
	WebhooksFailed     int64 `json:"webhooks_failed"`
	ActivityPublished  int64 `json:"activity_published"`
	ActivityDropped    int64 `json:"activity_dropped"`
	ActivityQueueDepth int64 `json:"activity_queue_depth"`
	WebhookQueueDepth  int64 `json:"webhook_queue_depth"`
}

// Snapshot returns the current counter values.
func (m *InMemory) Snapshot() Snapshot {
	return Snapshot{
		PapersCreated:      m.papersCreated.Load(),
		PapersUpdated:      m.papersUpdated.Load(),
		PapersDeleted:      m.papersDeleted.Load(),
		ProgressLogged:     m.progressLogged.Load(),
		WebhooksDelivered:  m.webhooksDelivered.Load(),
		WebhooksFailed:     m.webhooksFailed.Load(),
		ActivityPublished:  m.activityPublished.Load(),
		ActivityDropped:    m.activityDropped.Load(),
		ActivityQueueDepth: m.activityQueueDepth.Load(),
		WebhookQueueDepth:  m.webhookQueueDepth.Load(),
	}
}
