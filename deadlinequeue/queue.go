package deadlinequeue

import (
	"container/heap"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrNotQueued is returned by Cancel when the item no longer addresses a
// queued entry, because the entry already expired or was cancelled before.
// Hitting it usually indicates a logic error in the caller.
var ErrNotQueued = errors.New("deadlinequeue: item is not queued")

// Queue holds entries ordered by deadline and surfaces them one at a time
// once their deadline has passed. Insert and Cancel may be called from any
// goroutine; Dequeue works only when there is one goroutine dequeueing.
type Queue[V any] struct {
	sync.RWMutex // mutex to access entries in the queue

	pq           *priorityQueue[V] // a priority queue ordered by deadline
	nextSeq      uint64            // insertion sequence number for deadline ties
	queueChanged chan struct{}     // channel to indicate queue has changed
	mtx          *QueueMetrics     // track queue metrics
}

// New returns an empty deadline queue.
func New[V any](mtx *QueueMetrics) *Queue[V] {
	q := &Queue[V]{
		pq:           &priorityQueue[V]{},
		queueChanged: make(chan struct{}, 1),
		mtx:          mtx,
	}

	heap.Init(q.pq)

	return q
}

// Insert adds value to the queue with a deadline of now plus delay, and
// returns the item addressing the new entry. A zero or negative delay makes
// the entry immediately eligible for Dequeue.
func (q *Queue[V]) Insert(value V, delay time.Duration) *Item[V] {
	q.Lock()
	defer q.Unlock()

	item := &Item[V]{
		value:    value,
		deadline: time.Now().Add(delay),
		seq:      q.nextSeq,
		index:    -1,
	}
	q.nextSeq++

	heap.Push(q.pq, item)
	q.mtx.queueLength.Update(float64(q.pq.Len()))

	// The new entry may be the soonest, so the dequeuer has to rearm
	// its timer.
	q.signalChanged()
	return item
}

// Cancel removes the entry addressed by item before it expires. It returns
// ErrNotQueued when the item is stale.
func (q *Queue[V]) Cancel(item *Item[V]) error {
	q.Lock()
	defer q.Unlock()

	if item.index == -1 {
		return ErrNotQueued
	}

	heap.Remove(q.pq, item.index)
	q.mtx.queueLength.Update(float64(q.pq.Len()))

	// The cancelled entry may have been the soonest, so the dequeuer has
	// to rearm its timer to the next deadline.
	q.signalChanged()
	return nil
}

// Len returns the number of entries waiting in the queue.
func (q *Queue[V]) Len() int {
	q.RLock()
	defer q.RUnlock()

	return q.pq.Len()
}

func (q *Queue[V]) nextDeadline() time.Time {
	if q.pq.Len() == 0 {
		return time.Time{}
	}

	return (*q.pq)[0].deadline
}

// popIfReady pops the head entry only if its deadline has passed. The head
// can change between arming the timer and the timer firing, so the deadline
// is checked again here.
func (q *Queue[V]) popIfReady(now time.Time) *Item[V] {
	if q.pq.Len() == 0 {
		return nil
	}
	if (*q.pq)[0].deadline.After(now) {
		return nil
	}

	item := heap.Pop(q.pq).(*Item[V])
	q.mtx.queuePopDelay.Record(now.Sub(item.deadline))
	q.mtx.queueLength.Update(float64(q.pq.Len()))
	return item
}

func (q *Queue[V]) signalChanged() {
	select {
	case q.queueChanged <- struct{}{}:
	default:
	}
}

// Dequeue blocks until the earliest entry's deadline has passed, then
// returns that entry's item. While the queue is empty, Dequeue blocks until
// an entry is inserted. Closing stopChan unblocks the call, which then
// returns nil without consuming anything.
// Currently this implementation works only when there is one goroutine
// which is dequeueing, though multiple goroutines can insert and cancel.
func (q *Queue[V]) Dequeue(stopChan <-chan struct{}) *Item[V] {
	return q.dequeue(stopChan, true)
}

// DequeueOrEmpty behaves like Dequeue, except that it returns nil as soon
// as the queue is observed empty instead of waiting for an insert. That
// covers both a queue which is empty on entry and one drained by Cancel
// while the call was waiting.
func (q *Queue[V]) DequeueOrEmpty(stopChan <-chan struct{}) *Item[V] {
	return q.dequeue(stopChan, false)
}

func (q *Queue[V]) dequeue(stopChan <-chan struct{}, blockWhenEmpty bool) *Item[V] {
	for {
		q.RLock()
		deadline := q.nextDeadline()
		q.RUnlock()

		if deadline.IsZero() && !blockWhenEmpty {
			return nil
		}

		var timer *time.Timer
		var timerChan <-chan time.Time
		if !deadline.IsZero() {
			timer = time.NewTimer(time.Until(deadline))
			timerChan = timer.C
		}

		select {
		case <-timerChan:
			q.Lock()
			item := q.popIfReady(time.Now())
			q.Unlock()

			if item != nil {
				return item
			}

		case <-q.queueChanged:
			// Wake up to rearm to the next deadline.

		case <-stopChan:
			if timer != nil {
				timer.Stop()
			}
			return nil
		}

		if timer != nil {
			timer.Stop()
		}
	}
}
