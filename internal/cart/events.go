package cart

import "sync"

type EventType string

const (
	// EventUpdated carries the full updated cart.
	EventUpdated EventType = "cart.updated"
	// EventCount is the legacy {count, items, cart} notification.
	EventCount EventType = "cart.count"
)

// CountPayload is the body of EventCount.
type CountPayload struct {
	Count int        `json:"count"`
	Items []LineItem `json:"items"`
	Cart  Cart       `json:"cart"`
}

// Event is delivered to store subscribers. Count is set only for EventCount.
// Seq grows with every committed mutation of the cart and is shared by the
// events of one mutation; a lower Seq than one already seen is stale.
type Event struct {
	Type  EventType
	Seq   uint64
	Cart  Cart
	Count *CountPayload
}

// SessionEvent is an Event re-broadcast by the Service for a cart session.
type SessionEvent struct {
	SessionID string
	Event
}

type subscription[T any] struct {
	id int
	fn func(T)
}

// notifier dispatches synchronously, in subscription order, per event type.
type notifier[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   map[EventType][]subscription[T]
}

func newNotifier[T any]() *notifier[T] {
	return &notifier[T]{subs: make(map[EventType][]subscription[T])}
}

func (n *notifier[T]) subscribe(eventType EventType, fn func(T)) func() {
	if fn == nil {
		return func() {}
	}
	n.mu.Lock()
	n.nextID++
	id := n.nextID
	n.subs[eventType] = append(n.subs[eventType], subscription[T]{id: id, fn: fn})
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { n.remove(eventType, id) })
	}
}

func (n *notifier[T]) remove(eventType EventType, id int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	subs := n.subs[eventType]
	for i, sub := range subs {
		if sub.id == id {
			n.subs[eventType] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

func (n *notifier[T]) emit(eventType EventType, value T) {
	n.mu.Lock()
	subs := append([]subscription[T](nil), n.subs[eventType]...)
	n.mu.Unlock()
	for _, sub := range subs {
		sub.fn(value)
	}
}

func (n *notifier[T]) count(eventType EventType) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs[eventType])
}
