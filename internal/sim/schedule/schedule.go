// Package schedule is the discrete-event scheduler driving a simulation run.
//
// Tasks are ordered by absolute time, then priority (lower first), then
// registration order. Each Step fires every task due at the earliest pending
// time; repeating tasks are put back at time+interval right after they fire.
package schedule

import (
	"container/heap"
	"math"

	"treg2d/internal/sim/simerr"
)

type Task interface {
	Step(now float64) error
}

type TaskFunc func(now float64) error

func (f TaskFunc) Step(now float64) error { return f(now) }

// Handle cancels a registered task. Cancellation is permanent and takes
// effect even when the task is already part of the batch being fired.
type Handle struct {
	stopped bool
}

func (h *Handle) Stop() {
	if h != nil {
		h.stopped = true
	}
}

type entry struct {
	time     float64
	priority int
	seq      uint64
	interval float64 // 0 for one-shot
	task     Task
	h        *Handle
}

type queue []*entry

func (q queue) Len() int { return len(q) }
func (q queue) Less(i, j int) bool {
	a, b := q[i], q[j]
	if a.time != b.time {
		return a.time < b.time
	}
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.seq < b.seq
}
func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *queue) Push(x any)   { *q = append(*q, x.(*entry)) }
func (q *queue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}

type Schedule struct {
	now   float64
	seq   uint64
	steps uint64
	q     queue
}

func New() *Schedule {
	return &Schedule{}
}

// Time is the time of the most recent step (0 before the first one).
func (s *Schedule) Time() float64 { return s.now }

// Steps counts the steps that fired at least one task.
func (s *Schedule) Steps() uint64 { return s.steps }

// Once registers a task that fires a single time.
func (s *Schedule) Once(at float64, priority int, t Task) *Handle {
	return s.push(at, priority, t, 0)
}

// Repeating registers a task firing at `at` and then every interval.
// A non-positive interval is a programming error.
func (s *Schedule) Repeating(at float64, priority int, t Task, interval float64) *Handle {
	if interval < 0 || math.IsNaN(interval) {
		simerr.Violation("schedule: negative repeat interval %v", interval)
	}
	if interval == 0 {
		simerr.Violation("schedule: zero repeat interval would never advance time")
	}
	return s.push(at, priority, t, interval)
}

func (s *Schedule) Cancel(h *Handle) { h.Stop() }

func (s *Schedule) push(at float64, priority int, t Task, interval float64) *Handle {
	if t == nil {
		simerr.Violation("schedule: nil task")
	}
	if math.IsNaN(at) || math.IsInf(at, 0) {
		simerr.Violation("schedule: invalid time %v", at)
	}
	if at < s.now {
		simerr.Violation("schedule: time %v is before current time %v", at, s.now)
	}
	h := &Handle{}
	s.seq++
	heap.Push(&s.q, &entry{time: at, priority: priority, seq: s.seq, interval: interval, task: t, h: h})
	return h
}

// Peek reports the earliest pending time, skipping cancelled tasks.
func (s *Schedule) Peek() (float64, bool) {
	s.dropCancelled()
	if len(s.q) == 0 {
		return 0, false
	}
	return s.q[0].time, true
}

// Pending counts live (not cancelled) tasks.
func (s *Schedule) Pending() int {
	n := 0
	for _, e := range s.q {
		if !e.h.stopped {
			n++
		}
	}
	return n
}

func (s *Schedule) dropCancelled() {
	for len(s.q) > 0 && s.q[0].h.stopped {
		heap.Pop(&s.q)
	}
}

// Step fires every task due at the earliest pending time and returns false
// once nothing is left. A task error stops the step; tasks of the batch that
// had not fired yet stay queued.
func (s *Schedule) Step() (bool, error) {
	s.dropCancelled()
	if len(s.q) == 0 {
		return false, nil
	}
	t := s.q[0].time
	var batch []*entry
	for len(s.q) > 0 && s.q[0].time == t {
		e := heap.Pop(&s.q).(*entry)
		if e.h.stopped {
			continue
		}
		batch = append(batch, e)
	}
	s.now = t
	s.steps++
	for i, e := range batch {
		if e.h.stopped {
			continue
		}
		err := e.task.Step(t)
		if e.interval > 0 && !e.h.stopped {
			s.seq++
			e.time = t + e.interval
			e.seq = s.seq
			heap.Push(&s.q, e)
		}
		if err != nil {
			for _, rest := range batch[i+1:] {
				heap.Push(&s.q, rest)
			}
			return true, err
		}
	}
	return true, nil
}
