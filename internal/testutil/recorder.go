package testutil

import (
	"slices"
	"sync"
	"time"
)

// ExecutionRecord holds the start and end times of one recorded step.
type ExecutionRecord struct {
	Name  string
	Start time.Time
	End   time.Time
}

// Recorder collects the steps a test handler ran, in call order.
type Recorder struct {
	mu      sync.Mutex
	records []ExecutionRecord
}

// Record runs fn and stores its timing under name.
func (r *Recorder) Record(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	end := time.Now()

	r.mu.Lock()
	r.records = append(r.records, ExecutionRecord{Name: name, Start: start, End: end})
	r.mu.Unlock()
	return err
}

// Names returns the recorded step names in order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.records))
	for i, rec := range r.records {
		out[i] = rec.Name
	}
	return out
}

// Records returns a copy of all records.
func (r *Recorder) Records() []ExecutionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.records)
}
