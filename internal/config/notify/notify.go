// Package notify delivers settings changes to subscribers.
//
// The provider compares each reload against the previous settings and
// reports one ChangeSet per key whose value changed, followed by a single
// ChangeReload. Observers run synchronously on the goroutine that loaded the
// settings, in the order they subscribed.
package notify

import (
	"slices"
	"sync"
)

// ChangeType represents the type of settings change.
type ChangeType int

const (
	// ChangeSet indicates a key was set or its value changed.
	ChangeSet ChangeType = iota

	// ChangeReload indicates the settings were reloaded as a whole.
	ChangeReload
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeSet:
		return "set"
	case ChangeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Change describes one settings change.
type Change struct {
	// Key is the settings key that changed. Empty for reload events.
	Key string

	Type ChangeType

	OldValue any
	NewValue any

	// Source names the layer or file the change came from.
	Source string
}

// Observer is called for each delivered change.
type Observer func(change Change)

// Subscription is a registered observer.
type Subscription struct {
	id       uint64
	notifier *Notifier
}

// Unsubscribe removes the observer. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s != nil && s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

type entry struct {
	id       uint64
	key      string // empty for global observers
	observer Observer
}

// Notifier manages settings change subscriptions.
type Notifier struct {
	mu      sync.RWMutex
	entries []entry
	nextID  uint64
	closed  bool
}

// New creates a Notifier.
func New() *Notifier {
	return &Notifier{}
}

// Subscribe registers an observer for every change.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	return n.add("", observer)
}

// SubscribeKey registers an observer for changes to key. Key observers also
// receive reload events.
func (n *Notifier) SubscribeKey(key string, observer Observer) *Subscription {
	return n.add(key, observer)
}

func (n *Notifier) add(key string, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.entries = append(n.entries, entry{id: id, key: key, observer: observer})
	return &Subscription{id: id, notifier: n}
}

// Notify delivers change to all matching observers. Notify is a no-op after
// Close.
func (n *Notifier) Notify(change Change) {
	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return
	}
	var observers []Observer
	for _, e := range n.entries {
		if e.key == "" || change.Type == ChangeReload || e.key == change.Key {
			observers = append(observers, e.observer)
		}
	}
	n.mu.RUnlock()

	// Call observers outside the lock so they may subscribe or unsubscribe.
	for _, obs := range observers {
		obs(change)
	}
}

// NotifySet reports a changed key.
func (n *Notifier) NotifySet(key string, oldValue, newValue any, source string) {
	n.Notify(Change{
		Key:      key,
		Type:     ChangeSet,
		OldValue: oldValue,
		NewValue: newValue,
		Source:   source,
	})
}

// NotifyReload reports a completed reload.
func (n *Notifier) NotifyReload(source string) {
	n.Notify(Change{Type: ChangeReload, Source: source})
}

// Len returns the number of active subscriptions.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.entries)
}

// Close drops all subscriptions and stops delivery. It is safe to call Close
// multiple times.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	n.entries = nil
}

func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entries = slices.DeleteFunc(n.entries, func(e entry) bool { return e.id == id })
}
