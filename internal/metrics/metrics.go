package metrics

import "sync/atomic"

// Counters tracks admission and processing outcomes.
type Counters struct {
	WebhooksReceived  uint64
	WebhooksAccepted  uint64
	WebhooksDuplicate uint64
	WebhooksRejected  uint64

	TasksProcessed uint64
	TasksFailed    uint64
	TasksRetried   uint64
}

func (c *Counters) IncReceived()  { atomic.AddUint64(&c.WebhooksReceived, 1) }
func (c *Counters) IncAccepted()  { atomic.AddUint64(&c.WebhooksAccepted, 1) }
func (c *Counters) IncDuplicate() { atomic.AddUint64(&c.WebhooksDuplicate, 1) }
func (c *Counters) IncRejected()  { atomic.AddUint64(&c.WebhooksRejected, 1) }

func (c *Counters) IncProcessed() { atomic.AddUint64(&c.TasksProcessed, 1) }
func (c *Counters) IncFailed()    { atomic.AddUint64(&c.TasksFailed, 1) }
func (c *Counters) IncRetried()   { atomic.AddUint64(&c.TasksRetried, 1) }

// Snapshot returns a consistent-enough copy for logging.
func (c *Counters) Snapshot() map[string]uint64 {
	return map[string]uint64{
		"webhooks_received":  atomic.LoadUint64(&c.WebhooksReceived),
		"webhooks_accepted":  atomic.LoadUint64(&c.WebhooksAccepted),
		"webhooks_duplicate": atomic.LoadUint64(&c.WebhooksDuplicate),
		"webhooks_rejected":  atomic.LoadUint64(&c.WebhooksRejected),
		"tasks_processed":    atomic.LoadUint64(&c.TasksProcessed),
		"tasks_failed":       atomic.LoadUint64(&c.TasksFailed),
		"tasks_retried":      atomic.LoadUint64(&c.TasksRetried),
	}
}
