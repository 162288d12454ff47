package event_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dpsim/internal/game/event"
)

func TestQueue_NewIsEmpty(t *testing.T) {
	q := event.NewQueue()
	assert.True(t, q.IsEmpty())
	assert.Equal(t, 0, q.Len())
}

func TestQueue_PopsEarliestFirst(t *testing.T) {
	q := event.NewQueue()
	var order []string
	q.Schedule(2.0, func() { order = append(order, "c") })
	q.Schedule(0.5, func() { order = append(order, "a") })
	q.Schedule(1.0, func() { order = append(order, "b") })

	for !q.IsEmpty() {
		q.PopEarliest().Action()
	}
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestQueue_EqualTimesPopInInsertionOrder(t *testing.T) {
	q := event.NewQueue()
	var order []int
	for i := 0; i < 10; i++ {
		i := i
		q.Schedule(1.0, func() { order = append(order, i) })
	}
	for !q.IsEmpty() {
		q.PopEarliest().Action()
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestQueue_NoDeduplication(t *testing.T) {
	q := event.NewQueue()
	calls := 0
	action := func() { calls++ }
	q.Schedule(1.0, action)
	q.Schedule(1.0, action)
	require.Equal(t, 2, q.Len())
	for !q.IsEmpty() {
		q.PopEarliest().Action()
	}
	assert.Equal(t, 2, calls)
}

func TestQueue_ScheduleDuringDrain(t *testing.T) {
	q := event.NewQueue()
	var times []float64
	var step func()
	step = func() {
		if len(times) < 3 {
			q.Schedule(float64(len(times)), step)
		}
	}
	q.Schedule(0, step)
	for !q.IsEmpty() {
		ev := q.PopEarliest()
		times = append(times, ev.Time)
		ev.Action()
	}
	assert.Equal(t, []float64{0, 1, 2}, times)
}

func TestQueue_PopEmptyPanics(t *testing.T) {
	q := event.NewQueue()
	assert.Panics(t, func() { q.PopEarliest() })
}

func TestQueue_ScheduleNilPanics(t *testing.T) {
	q := event.NewQueue()
	assert.Panics(t, func() { q.Schedule(0, nil) })
}

func TestQueue_String(t *testing.T) {
	q := event.NewQueue()
	assert.Contains(t, q.String(), "empty")
	q.Schedule(1.5, func() {})
	assert.Contains(t, q.String(), "pending=1")
}

// TestQueue_Property_StableTimeOrder verifies that popped events are ordered by
// time and, among equal times, by insertion index.
func TestQueue_Property_StableTimeOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		times := rapid.SliceOfN(rapid.IntRange(0, 5), 1, 50).Draw(rt, "times")
		q := event.NewQueue()

		type entry struct {
			t   float64
			idx int
		}
		var popped []entry
		for i, tm := range times {
			e := entry{t: float64(tm), idx: i}
			q.Schedule(e.t, func() { popped = append(popped, e) })
		}
		for !q.IsEmpty() {
			q.PopEarliest().Action()
		}

		require.Len(rt, popped, len(times))
		assert.True(rt, sort.SliceIsSorted(popped, func(i, j int) bool {
			if popped[i].t != popped[j].t {
				return popped[i].t < popped[j].t
			}
			return popped[i].idx < popped[j].idx
		}))
	})
}
