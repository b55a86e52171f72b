package engine

import (
	"container/heap"
	"sync"

	"github.com/iti/pdessim/simtime"
)

// eventQueue is a min-heap of *Event ordered by (deliveryTime,
// sequenceNumber), used for the engine's master queue. The same ordering
// rule is expected of any Host's private queue implementation.
type eventQueue []*Event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].deliveryTime != q[j].deliveryTime {
		return q[i].deliveryTime < q[j].deliveryTime
	}
	return q[i].sequenceNumber < q[j].sequenceNumber
}

func (q eventQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
}

func (q *eventQueue) Push(x any) {
	*q = append(*q, x.(*Event))
}

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return ev
}

// masterQueue is a thread-safe wrapper over eventQueue: the engine's
// non-host event queue (spec.md §3, "masterEventQueue"). Its own internal
// lock is the "lock of the queue" referenced in §5's resource table.
type masterQueue struct {
	mu sync.Mutex
	q  eventQueue
}

func newMasterQueue() *masterQueue {
	mq := &masterQueue{}
	heap.Init(&mq.q)
	return mq
}

// push inserts ev into the queue.
func (mq *masterQueue) push(ev *Event) {
	mq.mu.Lock()
	heap.Push(&mq.q, ev)
	mq.mu.Unlock()
}

// drainBefore pops and returns, in order, every event whose delivery time
// is strictly less than until.
func (mq *masterQueue) drainBefore(until simtime.SimulationTime) []*Event {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	var drained []*Event
	for mq.q.Len() > 0 && mq.q[0].deliveryTime < until {
		drained = append(drained, heap.Pop(&mq.q).(*Event))
	}
	return drained
}

// len reports the number of events currently queued.
func (mq *masterQueue) len() int {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	return mq.q.Len()
}
