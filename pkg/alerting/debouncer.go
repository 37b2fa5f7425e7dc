package alerting

import (
	"sync"
	"time"

	"github.com/ogulcanaydogan/pulse-guardian/pkg/clock"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/model"
)

// DefaultDebounceWindow is the quiet period after the last reading of a burst.
const DefaultDebounceWindow = 1200 * time.Millisecond

// EvaluateFunc receives the last reading of a burst.
type EvaluateFunc func(stream string, r model.BloodPressureReading)

type pendingReading struct {
	reading model.BloodPressureReading
	timer   clock.Timer
	gen     uint64
}

// Debouncer collapses bursts of readings per stream into one evaluation of the
// most recent reading, fired once the stream has been quiet for the delay.
//
// A stream is Idle when it has no entry in pending and Pending otherwise.
type Debouncer struct {
	mu       sync.Mutex
	delay    time.Duration
	clock    clock.Clock
	evaluate EvaluateFunc
	pending  map[string]*pendingReading
	closed   bool
}

// NewDebouncer creates a debouncer. A non-positive delay uses DefaultDebounceWindow.
func NewDebouncer(delay time.Duration, clk clock.Clock, evaluate EvaluateFunc) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounceWindow
	}
	return &Debouncer{
		delay:    delay,
		clock:    clk,
		evaluate: evaluate,
		pending:  make(map[string]*pendingReading),
	}
}

// OnReading records r as the pending reading of stream and restarts the
// quiet-period timer. Calls after Close are ignored.
func (d *Debouncer) OnReading(stream string, r model.BloodPressureReading) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	p, ok := d.pending[stream]
	if ok {
		p.timer.Stop()
		p.gen++
		p.reading = r
	} else {
		p = &pendingReading{reading: r}
		d.pending[stream] = p
	}

	gen := p.gen
	p.timer = d.clock.AfterFunc(d.delay, func() { d.fire(stream, gen) })
}

// fire evaluates the pending reading unless it was replaced or cancelled
// after the timer was armed.
func (d *Debouncer) fire(stream string, gen uint64) {
	d.mu.Lock()
	p, ok := d.pending[stream]
	if !ok || p.gen != gen || d.closed {
		d.mu.Unlock()
		return
	}
	delete(d.pending, stream)
	d.mu.Unlock()

	d.evaluate(stream, p.reading)
}

// Cancel drops the pending reading of stream without evaluating it.
func (d *Debouncer) Cancel(stream string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pending[stream]; ok {
		p.timer.Stop()
		delete(d.pending, stream)
	}
}

// Flush evaluates every pending reading immediately instead of waiting for
// its timer.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	due := make(map[string]model.BloodPressureReading, len(d.pending))
	for stream, p := range d.pending {
		p.timer.Stop()
		due[stream] = p.reading
	}
	d.pending = make(map[string]*pendingReading)
	d.mu.Unlock()

	for stream, r := range due {
		d.evaluate(stream, r)
	}
}

// Pending reports whether stream has a reading waiting for evaluation.
func (d *Debouncer) Pending(stream string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[stream]
	return ok
}

// Close cancels every stream. No evaluation fires afterwards.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	for stream, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, stream)
	}
}
