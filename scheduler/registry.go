package scheduler

import (
	"sync"

	"weatherpush.app/metrics"
)

// Event is what the scheduler pushes to live listeners: a weather update on
// a successful tick, or an error notification when the fetch fails.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Event types pushed to live listeners.
const (
	EventUpdate = "update"
	EventError  = "error"
)

// Listener is a single connected live-stream consumer. Send may fail
// independently of other listeners; the transport layer deregisters
// listeners when their connection closes.
type Listener interface {
	Send(event Event) error
}

// ListenerRegistry maps subscription IDs to their currently connected live
// listeners. The transport layer mutates it on connect/disconnect; the
// scheduler reads the current set on every tick, never a retained snapshot,
// so a disconnect takes effect by the next tick.
type ListenerRegistry struct {
	mu        sync.RWMutex
	listeners map[uint]map[Listener]struct{}
	metrics   *metrics.SchedulerMetrics
}

// NewListenerRegistry creates an empty listener registry
func NewListenerRegistry(schedulerMetrics *metrics.SchedulerMetrics) *ListenerRegistry {
	return &ListenerRegistry{
		listeners: make(map[uint]map[Listener]struct{}),
		metrics:   schedulerMetrics,
	}
}

// Register adds a listener to the set for the given subscription ID
func (r *ListenerRegistry) Register(id uint, listener Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.listeners[id]
	if !ok {
		set = make(map[Listener]struct{})
		r.listeners[id] = set
	}
	set[listener] = struct{}{}
	r.metrics.LiveListeners.Inc()
}

// Deregister removes a listener; removing an unknown listener is a no-op.
// Empty sets are dropped so the map does not accumulate dead entries.
func (r *ListenerRegistry) Deregister(id uint, listener Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.listeners[id]
	if !ok {
		return
	}
	if _, ok := set[listener]; !ok {
		return
	}
	delete(set, listener)
	if len(set) == 0 {
		delete(r.listeners, id)
	}
	r.metrics.LiveListeners.Dec()
}

// Listeners returns the current listeners for a subscription ID. The slice
// is a copy; sends happen outside the registry lock.
func (r *ListenerRegistry) Listeners(id uint) []Listener {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.listeners[id]
	if !ok {
		return nil
	}
	listeners := make([]Listener, 0, len(set))
	for listener := range set {
		listeners = append(listeners, listener)
	}
	return listeners
}

// Count returns the number of listeners for a subscription ID
func (r *ListenerRegistry) Count(id uint) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.listeners[id])
}
