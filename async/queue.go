package async

import (
	"container/list"
	"sync"
)

// queue structure that works similar to an unlimited channel, where jobs can
// be added using Enqueue and drained one at a time through Dequeue.
type queue struct {
	sync.Mutex
	list *list.List

	// enqueueSignal is added to after a successful enqueue. By having a buffer
	// size of 1, it's guaranteed that the job is processed.
	enqueueSignal  chan struct{}
	dequeueChannel chan Job
	stopChan       <-chan struct{}
}

// newQueue for enqueing Jobs. Closing stopChan terminates the pump
// goroutine; jobs still queued at that point are dropped.
func newQueue(stopChan <-chan struct{}) *queue {
	q := &queue{
		list:           list.New(),
		enqueueSignal:  make(chan struct{}, 1),
		dequeueChannel: make(chan Job),
		stopChan:       stopChan,
	}
	go q.run()
	return q
}

// Enqueue the Job. This method will return immediately.
func (q *queue) Enqueue(job Job) {
	q.Lock()
	q.list.PushBack(job)
	q.Unlock()

	// Try signal a new item is available.
	select {
	case q.enqueueSignal <- struct{}{}:
	default:
	}
}

// Dequeue the next Job, blocking until one is available. Returns nil when
// stopChan is closed.
func (q *queue) Dequeue(stopChan <-chan struct{}) Job {
	select {
	case <-stopChan:
		return nil
	case job := <-q.dequeueChannel:
		return job
	}
}

func (q *queue) run() {
	for {
		q.Lock()

		f := q.list.Front()
		if f == nil {
			q.Unlock()

			// Wait for jobs to be enqueued before continuing.
			select {
			case <-q.enqueueSignal:
				continue
			case <-q.stopChan:
				return
			}
		}

		q.list.Remove(f)
		q.Unlock()

		select {
		case q.dequeueChannel <- f.Value.(Job):
		case <-q.stopChan:
			return
		}
	}
}
