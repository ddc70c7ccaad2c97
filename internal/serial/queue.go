package serial

import "context"

// Priority is a band of the deferred queue. Lower bands drain first.
type Priority int

const (
	PriorityConnections Priority = iota
	PriorityLayouts
	PriorityAttributes
	PriorityCommands
	PriorityFinalize

	numPriorities
)

var priorityNames = [numPriorities]string{
	PriorityConnections: "connections",
	PriorityLayouts:     "layouts",
	PriorityAttributes:  "attributes",
	PriorityCommands:    "commands",
	PriorityFinalize:    "finalize",
}

func (p Priority) String() string {
	if p >= 0 && p < numPriorities {
		return priorityNames[p]
	}
	return "undefined"
}

// Task is one queued element.
type Task struct {
	Priority Priority
	Name     string
	Run      func() error
}

// DeferredQueue is a FIFO per priority band. Tasks may push further tasks
// while the queue drains; a task pushed into an earlier band runs before
// the current band continues.
type DeferredQueue struct {
	bands [numPriorities][]Task
}

// Push appends a task. Out of range priorities are clamped to the nearest
// band.
func (q *DeferredQueue) Push(p Priority, name string, fn func() error) {
	p = max(PriorityConnections, min(p, numPriorities-1))
	q.bands[p] = append(q.bands[p], Task{Priority: p, Name: name, Run: fn})
}

// Len returns the number of pending tasks.
func (q *DeferredQueue) Len() int {
	n := 0
	for _, b := range q.bands {
		n += len(b)
	}
	return n
}

func (q *DeferredQueue) pop() (Task, bool) {
	for p := range q.bands {
		if len(q.bands[p]) > 0 {
			t := q.bands[p][0]
			q.bands[p] = q.bands[p][1:]
			return t, true
		}
	}
	return Task{}, false
}

// Drain runs the pending tasks in band order. onErr decides what a failed
// task means: returning nil continues with the next task. A nil onErr stops
// at the first failure.
func (q *DeferredQueue) Drain(ctx context.Context, onErr func(Task, error) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		t, ok := q.pop()
		if !ok {
			return nil
		}
		if err := t.Run(); err != nil {
			if onErr == nil {
				return err
			}
			if err := onErr(t, err); err != nil {
				return err
			}
		}
	}
}
