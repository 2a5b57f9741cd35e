// Package live fans externally produced design updates out to the editor tab
// watching a project. At most one subscriber stream exists per project id;
// publishing to a project nobody watches is a silent no-op so the AI pipeline
// is never blocked by editor connectivity.
package live

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// subscriberBuffer bounds how many undelivered events a stream may hold
// before further publishes to it are dropped.
const subscriberBuffer = 8

// Event is one functional update for a project. Image carries a full scene
// document payload the editor swaps in.
type Event struct {
	Title  string          `json:"title"`
	Status string          `json:"status"`
	Image  json.RawMessage `json:"image"`
}

// Subscriber is one open stream. Events arrive on C until the subscriber is
// replaced or unsubscribed, at which point C is closed.
type Subscriber struct {
	C chan Event

	closeOnce sync.Once
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() { close(s.C) })
}

// Registry tracks the single subscriber slot per project id. It is injected
// into both the subscribing (SSE) and publishing (update/AMQP) endpoints;
// lifecycle is insert-on-subscribe, remove-on-disconnect-or-replace.
type Registry struct {
	mu     sync.Mutex
	subs   map[string]*Subscriber
	logger *zap.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		subs:   make(map[string]*Subscriber),
		logger: logger.Named("LiveRegistry"),
	}
}

// Subscribe registers the caller as the project's stream. A previous
// subscriber for the same project is closed and replaced: only one editor
// tab is expected to watch a project, and the last one wins.
func (r *Registry) Subscribe(projectID string) *Subscriber {
	sub := &Subscriber{C: make(chan Event, subscriberBuffer)}

	r.mu.Lock()
	old := r.subs[projectID]
	r.subs[projectID] = sub
	if old != nil {
		old.close()
	}
	r.mu.Unlock()

	if old != nil {
		r.logger.Debug("Replaced existing subscriber", zap.String("project_id", projectID))
	}
	return sub
}

// Unsubscribe removes sub from the project's slot. A no-op when the slot has
// already been taken over by a newer subscriber.
func (r *Registry) Unsubscribe(projectID string, sub *Subscriber) {
	r.mu.Lock()
	if r.subs[projectID] == sub {
		delete(r.subs, projectID)
	}
	sub.close()
	r.mu.Unlock()
}

// Publish delivers an event to the project's subscriber, if any. Returns
// whether a subscriber received it; false is not an error. The send never
// blocks: a subscriber that stopped draining its buffer loses the event
// rather than stalling publishers or other projects' streams. The send
// happens under the registry lock, which also guards every close of a
// subscriber channel, so a publish can never race a disconnect.
func (r *Registry) Publish(projectID string, event Event) bool {
	r.mu.Lock()
	sub := r.subs[projectID]
	if sub == nil {
		r.mu.Unlock()
		return false
	}
	var delivered bool
	select {
	case sub.C <- event:
		delivered = true
	default:
	}
	r.mu.Unlock()

	if !delivered {
		r.logger.Warn("Subscriber buffer full, dropping event", zap.String("project_id", projectID))
	}
	return delivered
}

// Len reports the number of active subscriptions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
