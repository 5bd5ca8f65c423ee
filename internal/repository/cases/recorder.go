package cases

import (
	"context"
	"sync"
	"time"

	"bizdiag/internal/types"
)

// DefaultSettle is how long filter inputs must stay unchanged before the
// combination is remembered.
const DefaultSettle = 500 * time.Millisecond

// Timer is the part of *time.Timer the recorder needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. NewRecorder uses time.AfterFunc when none
// is given.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Recorder debounces filter changes into History.
type Recorder struct {
	history *History
	settle  time.Duration
	after   AfterFunc
	ctx     context.Context

	mu      sync.Mutex
	timer   Timer
	pending *types.SearchHistoryItem
	gen     uint64
}

func NewRecorder(ctx context.Context, h *History, settle time.Duration, after AfterFunc) *Recorder {
	if settle <= 0 {
		settle = DefaultSettle
	}
	if after == nil {
		after = realAfterFunc
	}
	return &Recorder{history: h, settle: settle, after: after, ctx: context.WithoutCancel(ctx)}
}

// Observe notes the current filter and restarts the settle timer.
func (r *Recorder) Observe(f Filter) {
	item := f.HistoryItem()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
	r.gen++
	gen := r.gen
	r.pending = &item
	r.timer = r.after(r.settle, func() { r.fire(gen) })
}

func (r *Recorder) fire(gen uint64) {
	r.mu.Lock()
	if gen != r.gen || r.pending == nil {
		r.mu.Unlock()
		return
	}
	item := *r.pending
	r.pending = nil
	r.timer = nil
	r.mu.Unlock()
	r.history.Record(r.ctx, item)
}

// Flush records the pending combination immediately.
func (r *Recorder) Flush() {
	r.mu.Lock()
	if r.timer != nil {
		r.timer.Stop()
	}
	gen := r.gen
	r.mu.Unlock()
	r.fire(gen)
}

// Stop drops any pending combination.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.pending = nil
	r.gen++
}
