package delayhandler

import (
	"context"
	"sync"
	"time"

	queue "github.com/de-sh/delay-handler/deadlinequeue"

	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"
)

// DelayMap holds values, each with an associated delay, and yields them one
// at a time in expiry order once their delay has elapsed. A pending value
// can be removed before its delay fires, in which case it is never yielded.
//
// The map keeps two views of the same set of pending values: a deadline
// queue ordered by expiry instant, and an index from value to its queue
// item so a value can be cancelled without scanning. The two views are
// always in 1:1 correspondence, which also means a value may be pending at
// most once at any time.
//
// Insert and Remove may be called from any goroutine, including while a
// Next call is blocked. Next works only when there is one goroutine
// retrieving.
type DelayMap[V comparable] struct {
	sync.RWMutex // mutex to synchronize access to the value index

	queue *queue.Queue[V]      // pending entries ordered by expiry deadline
	index map[V]*queue.Item[V] // map from pending value to its queue item

	mtx *Metrics // delay map metrics
}

// New returns an empty delay map reporting metrics to scope. Pass
// tally.NoopScope when metrics are not wanted.
func New[V comparable](scope tally.Scope) *DelayMap[V] {
	return &DelayMap[V]{
		queue: queue.New[V](queue.NewQueueMetrics(scope)),
		index: make(map[V]*queue.Item[V]),
		mtx:   NewMetrics(scope),
	}
}

// Insert adds value to the map, to be yielded by Next once delay has
// elapsed. A zero or negative delay makes the value immediately eligible.
// Insert returns ErrDuplicateValue when the value is already pending,
// leaving the existing entry untouched.
func (m *DelayMap[V]) Insert(value V, delay time.Duration) error {
	m.Lock()
	defer m.Unlock()

	if _, ok := m.index[value]; ok {
		m.mtx.duplicates.Inc(1)
		return ErrDuplicateValue
	}

	m.index[value] = m.queue.Insert(value, delay)
	m.mtx.inserts.Inc(1)
	m.mtx.pending.Update(float64(len(m.index)))

	log.WithField("delaymap_value", value).
		WithField("delaymap_delay", delay).
		Debug("value inserted into the delay map")
	return nil
}

// Remove cancels the pending entry for value before its delay fires, so it
// is never yielded by Next. It returns true when an entry was cancelled,
// and false when the value was not pending, because it was never inserted
// or because it already expired.
func (m *DelayMap[V]) Remove(value V) bool {
	m.Lock()
	defer m.Unlock()

	item, ok := m.index[value]
	if !ok {
		return false
	}

	if err := m.queue.Cancel(item); err != nil {
		// The entry expired and was popped by an in-flight Next call
		// which has not erased the mapping yet. Leave the mapping for
		// Next to erase; the value is no longer pending.
		return false
	}

	delete(m.index, value)
	m.mtx.removes.Inc(1)
	m.mtx.pending.Update(float64(len(m.index)))

	log.WithField("delaymap_value", value).
		Debug("value removed from the delay map")
	return true
}

// Contains reports whether value is currently pending.
func (m *DelayMap[V]) Contains(value V) bool {
	m.RLock()
	defer m.RUnlock()

	_, ok := m.index[value]
	return ok
}

// Len returns the number of pending values.
func (m *DelayMap[V]) Len() int {
	m.RLock()
	defer m.RUnlock()

	return len(m.index)
}

// Next blocks until the earliest pending entry expires, then removes it
// from the map and returns its value. When the map holds no pending entries
// Next returns with ok set to false rather than suspending, including when
// Remove drains the last entry while Next is waiting; inserting afterwards
// and calling Next again resumes normal operation. When ctx is cancelled
// before an entry expires, Next returns with ok set to false and consumes
// nothing.
func (m *DelayMap[V]) Next(ctx context.Context) (value V, ok bool) {
	return m.yield(m.queue.DequeueOrEmpty(ctx.Done()))
}

// next blocks on the queue even while it is empty. The dispatcher uses it
// directly so it can sleep through idle periods instead of polling.
func (m *DelayMap[V]) next(stopChan <-chan struct{}) (value V, ok bool) {
	return m.yield(m.queue.Dequeue(stopChan))
}

// yield erases the index mapping for a dequeued entry and hands its value
// to the caller.
func (m *DelayMap[V]) yield(item *queue.Item[V]) (value V, ok bool) {
	if item == nil {
		return value, false
	}

	value = item.Value()

	m.Lock()
	_, ok = m.index[value]
	delete(m.index, value)
	m.mtx.pending.Update(float64(len(m.index)))
	m.Unlock()

	if !ok {
		// The queue yielded a value the index does not know about. The
		// two views are corrupted, not transiently out of sync.
		m.mtx.missingValues.Inc(1)
		log.WithField("delaymap_value", value).
			Panic("expired value missing from the delay map index")
	}

	m.mtx.expired.Inc(1)
	return value, true
}
