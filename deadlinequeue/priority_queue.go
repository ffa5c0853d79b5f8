package deadlinequeue

// priorityQueue is the backing heap implementation, implementing the
// `container/heap.Interface` interface. The priorityQueue must only
// be called indirectly through the `container/heap` functions.
type priorityQueue[V any] []*Item[V]

func (pq priorityQueue[V]) Len() int { return len(pq) }

func (pq priorityQueue[V]) Less(i, j int) bool {
	if pq[i].deadline.Equal(pq[j].deadline) {
		return pq[i].seq < pq[j].seq
	}
	return pq[i].deadline.Before(pq[j].deadline)
}

func (pq priorityQueue[V]) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue[V]) Push(x interface{}) {
	n := len(*pq)
	item := x.(*Item[V])
	item.index = n
	*pq = append(*pq, item)
}

func (pq *priorityQueue[V]) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	// Clear index.
	item.index = -1
	old[n-1] = nil
	*pq = old[0 : n-1]
	return item
}
