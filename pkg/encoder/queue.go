package encoder

import (
	"sync"
)

const DefaultQueueSize = 64

// Queue is the bounded, ordered hand-off between the sampling goroutine
// and the control loop. When full it drops the oldest event so a stalled
// consumer cannot grow memory without bound.
type Queue struct {
	lock     sync.Mutex
	events   []Event
	capacity int
	dropped  int
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueSize
	}
	return &Queue{capacity: capacity}
}

func (q *Queue) Push(e Event) {
	q.lock.Lock()
	defer q.lock.Unlock()
	if len(q.events) >= q.capacity {
		copy(q.events, q.events[1:])
		q.events = q.events[:len(q.events)-1]
		q.dropped++
	}
	q.events = append(q.events, e)
}

// Drain removes and returns all queued events in arrival order without
// blocking.
func (q *Queue) Drain() []Event {
	q.lock.Lock()
	defer q.lock.Unlock()
	if len(q.events) == 0 {
		return nil
	}
	out := make([]Event, len(q.events))
	copy(out, q.events)
	q.events = q.events[:0]
	return out
}

// Dropped returns how many events have been discarded under backpressure.
func (q *Queue) Dropped() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.dropped
}
