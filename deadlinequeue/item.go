package deadlinequeue

import "time"

// Item addresses one pending entry in the queue. It is handed out by
// Insert and is only good for cancelling that entry; it carries no other
// operations. An Item goes stale the moment its entry leaves the queue,
// through either Dequeue or Cancel.
type Item[V any] struct {
	value    V
	deadline time.Time
	seq      uint64 // insertion order, breaks ties between equal deadlines
	index    int    // position in the backing heap, -1 when not queued
}

// Value returns the value stored in the entry.
func (i *Item[V]) Value() V {
	return i.value
}

// Deadline returns the instant at which the entry expires.
func (i *Item[V]) Deadline() time.Time {
	return i.deadline
}
