package sim

import "container/heap"

// A waitQueue orders activations by virtual time. Activations that share a
// timestamp are kept in one FIFO bucket so that same-time wake-ups dispatch
// in insertion order.
type waitQueue struct {
	keys    timeHeap
	buckets map[VTimeInSec][]*activation
}

func newWaitQueue() *waitQueue {
	q := new(waitQueue)
	q.keys = make(timeHeap, 0)
	q.buckets = make(map[VTimeInSec][]*activation)
	heap.Init(&q.keys)
	return q
}

// Push adds an activation to the bucket at time t.
func (q *waitQueue) Push(t VTimeInSec, a *activation) {
	bucket, ok := q.buckets[t]
	if !ok {
		heap.Push(&q.keys, t)
	}
	q.buckets[t] = append(bucket, a)
}

// Pop removes and returns the earliest bucket together with its time.
func (q *waitQueue) Pop() (VTimeInSec, []*activation) {
	t := heap.Pop(&q.keys).(VTimeInSec)
	bucket := q.buckets[t]
	delete(q.buckets, t)
	return t, bucket
}

// PeekTime returns the earliest timestamp without removing the bucket. The
// second return value is false when the queue is empty.
func (q *waitQueue) PeekTime() (VTimeInSec, bool) {
	if q.keys.Len() == 0 {
		return 0, false
	}
	return q.keys[0], true
}

// Len returns the total number of queued activations.
func (q *waitQueue) Len() int {
	n := 0
	for _, bucket := range q.buckets {
		n += len(bucket)
	}
	return n
}

type timeHeap []VTimeInSec

// Len returns the number of distinct timestamps in the queue.
func (h timeHeap) Len() int {
	return len(h)
}

// Less determines the order between two timestamps.
func (h timeHeap) Less(i, j int) bool {
	return h[i] < h[j]
}

// Swap changes the position of two timestamps in the queue.
func (h timeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

// Push adds a timestamp into the queue.
func (h *timeHeap) Push(x interface{}) {
	t := x.(VTimeInSec)
	*h = append(*h, t)
}

// Pop removes and returns the earliest timestamp.
func (h *timeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	*h = old[0 : n-1]
	return t
}
