package events

import (
	"sync"
	"time"
)

// ActivityUpdated is published after any activity mutation.
const ActivityUpdated = "activity-updated"

// Event tells subscribers that a user's activities changed and views should
// refetch.
type Event struct {
	Kind        string    `json:"kind"`
	UserID      uint      `json:"userId"`
	ActivityIDs []uint    `json:"activityIds,omitempty"`
	GroupID     string    `json:"groupId,omitempty"`
	At          time.Time `json:"at"`
}

// Handler receives published events. Handlers run synchronously on the
// publishing goroutine and must not block.
type Handler func(Event)

// Dispatcher is an explicit observer list.
type Dispatcher struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[int]Handler)}
}

// Subscribe registers h and returns the function that removes it. Calling
// the returned function more than once is harmless.
func (d *Dispatcher) Subscribe(h Handler) (unsubscribe func()) {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.handlers[id] = h
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.handlers, id)
			d.mu.Unlock()
		})
	}
}

// Publish delivers e to every current subscriber.
func (d *Dispatcher) Publish(e Event) {
	if e.Kind == "" {
		e.Kind = ActivityUpdated
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	d.mu.RLock()
	handlers := make([]Handler, 0, len(d.handlers))
	for _, h := range d.handlers {
		handlers = append(handlers, h)
	}
	d.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

// Len is the number of current subscribers.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers)
}
