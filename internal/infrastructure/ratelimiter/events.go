package ratelimiter

import "time"

type EventClass string

const (
	ControlEvents EventClass = "control"
	EditorEvents  EventClass = "editor"
)

type Budget struct {
	Limit  int
	Window time.Duration
}

// EventBudget meters inbound websocket events per connection. Each class
// draws from its own bucket, refilled at Limit per Window.
type EventBudget struct {
	buckets map[EventClass]*TokenBucket
}

func NewEventBudget(store Store, budgets map[EventClass]Budget) *EventBudget {
	if store == nil {
		store = NewMemoryStore()
	}

	eb := &EventBudget{buckets: make(map[EventClass]*TokenBucket, len(budgets))}
	for class, b := range budgets {
		if b.Limit <= 0 || b.Window <= 0 {
			continue
		}
		eb.buckets[class] = NewTokenBucket(BucketOptions{
			Prefix:        "rl:ws:" + string(class) + ":",
			RatePerSecond: float64(b.Limit) / b.Window.Seconds(),
			Burst:         b.Limit,
			TTL:           b.Window,
			Store:         store,
		})
	}
	return eb
}

// Allow spends one event of class for connID. A class without a budget uses
// the control budget; with neither, every event passes.
func (eb *EventBudget) Allow(connID string, class EventClass) (bool, time.Duration) {
	if eb == nil {
		return true, 0
	}
	bucket, ok := eb.buckets[class]
	if !ok {
		bucket, ok = eb.buckets[ControlEvents]
	}
	if !ok {
		return true, 0
	}
	return bucket.Take(connID)
}

// Forget drops every bucket held for connID.
func (eb *EventBudget) Forget(connID string) {
	if eb == nil {
		return
	}
	for _, bucket := range eb.buckets {
		bucket.Reset(connID)
	}
}
