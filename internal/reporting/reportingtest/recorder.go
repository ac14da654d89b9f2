// Package reportingtest provides a recording Reporter for tests.
package reportingtest

import "sync"

// Recorder stores every reported error. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	errors []error
}

// Report records err.
func (r *Recorder) Report(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
}

// Errors returns a copy of the recorded errors in report order.
func (r *Recorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]error, len(r.errors))
	copy(out, r.errors)
	return out
}

// Len returns the number of recorded errors.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors)
}

// Last returns the most recent error, or nil.
func (r *Recorder) Last() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.errors) == 0 {
		return nil
	}
	return r.errors[len(r.errors)-1]
}
