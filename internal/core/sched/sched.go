// Package sched is an owner-keyed scheduled-task registry. Tasks run on the
// game loop goroutine when Run is called, so task functions may touch game
// state freely. Every task belongs to an owner (player id, "lobby", ...) and
// CancelOwner is the single cancellation path invoked on disconnect or state
// exit — no per-entity interval handles exist anywhere else.
package sched

import "time"

// Task is a pending timed callback.
type Task struct {
	Owner    string
	Name     string
	Interval time.Duration // 0 = one-shot
	NextAt   time.Time
	Fn       func(now time.Time)

	canceled bool
}

// Registry holds all live tasks. Single-goroutine access only (game loop).
type Registry struct {
	tasks []*Task
}

func NewRegistry() *Registry {
	return &Registry{tasks: make([]*Task, 0, 32)}
}

// Every schedules a repeating task. The first run happens one interval from
// now.
func (r *Registry) Every(owner, name string, interval time.Duration, now time.Time, fn func(time.Time)) *Task {
	t := &Task{Owner: owner, Name: name, Interval: interval, NextAt: now.Add(interval), Fn: fn}
	r.tasks = append(r.tasks, t)
	return t
}

// After schedules a one-shot task.
func (r *Registry) After(owner, name string, delay time.Duration, now time.Time, fn func(time.Time)) *Task {
	t := &Task{Owner: owner, Name: name, NextAt: now.Add(delay), Fn: fn}
	r.tasks = append(r.tasks, t)
	return t
}

// Run fires every due task. Repeating tasks are rescheduled relative to their
// previous due time so cadence does not drift with tick jitter. Tasks
// canceled from inside a callback (including self-cancellation) never fire
// again.
func (r *Registry) Run(now time.Time) {
	for _, t := range r.tasks {
		if t.canceled || now.Before(t.NextAt) {
			continue
		}
		t.Fn(now)
		if t.canceled {
			continue
		}
		if t.Interval > 0 {
			t.NextAt = t.NextAt.Add(t.Interval)
			// A long stall should not cause a burst of catch-up runs.
			if t.NextAt.Before(now) {
				t.NextAt = now.Add(t.Interval)
			}
		} else {
			t.canceled = true
		}
	}
	r.compact()
}

// CancelOwner cancels every task belonging to owner and reports how many
// were live. Tasks are only marked here: CancelOwner is reachable from task
// callbacks while Run is mid-iteration, so the slice must not be rewritten
// under the loop. Run compacts canceled tasks out afterwards.
func (r *Registry) CancelOwner(owner string) int {
	n := 0
	for _, t := range r.tasks {
		if t.Owner == owner && !t.canceled {
			t.canceled = true
			n++
		}
	}
	return n
}

// OwnerCount returns the number of live tasks for an owner. Used by the
// disconnect-leak tests.
func (r *Registry) OwnerCount(owner string) int {
	n := 0
	for _, t := range r.tasks {
		if t.Owner == owner && !t.canceled {
			n++
		}
	}
	return n
}

// Len returns the total number of live tasks.
func (r *Registry) Len() int {
	n := 0
	for _, t := range r.tasks {
		if !t.canceled {
			n++
		}
	}
	return n
}

func (r *Registry) compact() {
	live := r.tasks[:0]
	for _, t := range r.tasks {
		if !t.canceled {
			live = append(live, t)
		}
	}
	// Clear the tail so canceled tasks do not pin their closures.
	for i := len(live); i < len(r.tasks); i++ {
		r.tasks[i] = nil
	}
	r.tasks = live
}
