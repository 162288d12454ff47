// Package event implements the time-ordered pending-work queue that drives the
// discrete-event combat simulation. It has no knowledge of combat semantics.
package event

import (
	"container/heap"
	"fmt"
)

// Action is a zero-argument unit of work executed when its event is popped.
type Action func()

// Event pairs a simulated timestamp with the action to run at that time.
type Event struct {
	// Time is the simulated time in seconds at which Action runs.
	Time float64
	// Action is the bound handler; never nil for events returned by PopEarliest.
	Action Action
	// seq is the insertion sequence used to break ties between equal times.
	seq uint64
}

// Queue is a min-priority queue of events keyed by time.
// Events with equal times pop in the order they were scheduled.
// It is not safe for concurrent use; one simulation run owns one Queue.
type Queue struct {
	items eventHeap
	next  uint64
}

// NewQueue returns an empty Queue.
//
// Postcondition: IsEmpty() is true.
func NewQueue() *Queue {
	return &Queue{}
}

// Schedule inserts action to run at simulated time t.
// Scheduling the same logical action twice produces two executions.
//
// Precondition: action must not be nil.
// Postcondition: Len() is incremented by 1.
func (q *Queue) Schedule(t float64, action Action) {
	if action == nil {
		panic("event: Queue.Schedule: action must not be nil")
	}
	heap.Push(&q.items, Event{Time: t, Action: action, seq: q.next})
	q.next++
}

// PopEarliest removes and returns the event with the smallest time. Among
// equal times the earliest-scheduled event is returned first.
//
// Precondition: IsEmpty() is false (panics otherwise).
// Postcondition: Len() is decremented by 1.
func (q *Queue) PopEarliest() Event {
	if len(q.items) == 0 {
		panic("event: Queue.PopEarliest: queue is empty")
	}
	return heap.Pop(&q.items).(Event)
}

// IsEmpty reports whether any work remains.
func (q *Queue) IsEmpty() bool { return len(q.items) == 0 }

// Len returns the number of pending events.
func (q *Queue) Len() int { return len(q.items) }

// String returns a short summary for diagnostics.
func (q *Queue) String() string {
	if len(q.items) == 0 {
		return "event.Queue{empty}"
	}
	return fmt.Sprintf("event.Queue{pending=%d next=%.3f}", len(q.items), q.items[0].Time)
}

// eventHeap implements heap.Interface ordered by (Time, seq).
type eventHeap []Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) { *h = append(*h, x.(Event)) }

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	old[n-1] = Event{}
	*h = old[:n-1]
	return ev
}
