package resilience

import "time"

// Outcome classifies a finished call for window accounting.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
	OutcomeTimeout
	OutcomeReject
)

// Counts holds aggregated outcomes over the live part of the window.
// Failures includes Timeouts. Rejects are short-circuited calls and never
// count toward the failure percentage.
type Counts struct {
	Requests  uint32 `json:"requests"`
	Successes uint32 `json:"successes"`
	Failures  uint32 `json:"failures"`
	Timeouts  uint32 `json:"timeouts"`
	Rejects   uint32 `json:"rejects"`
}

// FailurePercentage returns failures over requests in [0,100].
func (c Counts) FailurePercentage() float64 {
	if c.Requests == 0 {
		return 0
	}
	return float64(c.Failures) * 100 / float64(c.Requests)
}

type bucket struct {
	epoch  int64
	counts Counts
}

// Window is a time-based rolling window split into fixed-width buckets.
// Bucket boundaries follow wall-clock time: a bucket covers
// [epoch*width, (epoch+1)*width). Not safe for concurrent use; Breaker
// guards it with its own mutex.
type Window struct {
	width   time.Duration
	buckets []bucket
}

// NewWindow creates a window spanning span, divided into n buckets.
func NewWindow(span time.Duration, n int) *Window {
	if n <= 0 {
		n = 10
	}
	width := span / time.Duration(n)
	if width <= 0 {
		width = time.Millisecond
	}
	w := &Window{
		width:   width,
		buckets: make([]bucket, n),
	}
	w.Reset()
	return w
}

// Span returns the total duration covered by the window.
func (w *Window) Span() time.Duration {
	return w.width * time.Duration(len(w.buckets))
}

func (w *Window) epoch(now time.Time) int64 {
	return now.UnixNano() / int64(w.width)
}

// Record adds one outcome to the bucket that contains now.
func (w *Window) Record(now time.Time, outcome Outcome) {
	epoch := w.epoch(now)
	b := &w.buckets[int(epoch%int64(len(w.buckets)))]
	if b.epoch != epoch {
		b.epoch = epoch
		b.counts = Counts{}
	}

	switch outcome {
	case OutcomeSuccess:
		b.counts.Requests++
		b.counts.Successes++
	case OutcomeFailure:
		b.counts.Requests++
		b.counts.Failures++
	case OutcomeTimeout:
		b.counts.Requests++
		b.counts.Failures++
		b.counts.Timeouts++
	case OutcomeReject:
		b.counts.Rejects++
	}
}

// Counts sums every bucket still inside the window at now.
func (w *Window) Counts(now time.Time) Counts {
	current := w.epoch(now)
	oldest := current - int64(len(w.buckets)) + 1

	var total Counts
	for _, b := range w.buckets {
		if b.epoch < oldest || b.epoch > current {
			continue
		}
		total.Requests += b.counts.Requests
		total.Successes += b.counts.Successes
		total.Failures += b.counts.Failures
		total.Timeouts += b.counts.Timeouts
		total.Rejects += b.counts.Rejects
	}
	return total
}

// Reset clears every bucket.
func (w *Window) Reset() {
	for i := range w.buckets {
		w.buckets[i] = bucket{epoch: -1}
	}
}
