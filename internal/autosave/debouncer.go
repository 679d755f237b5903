// Package autosave coalesces bursts of edits into a single write.
package autosave

import (
	"sync"
	"time"
)

// DefaultDelay is the quiet period after the last edit before saving
const DefaultDelay = 1200 * time.Millisecond

// Debouncer runs fn once the delay has passed without a new Trigger.
// Each Trigger restarts the quiet period, cancelling the scheduled run.
// Runs of fn never overlap.
type Debouncer struct {
	delay time.Duration
	fn    func()

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending bool
	stopped bool

	run sync.Mutex
	wg  sync.WaitGroup
}

// New creates a debouncer; a non-positive delay uses DefaultDelay
func New(delay time.Duration, fn func()) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger schedules fn after the quiet period, replacing any scheduled run
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = true
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Pending reports whether a run is scheduled
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Flush runs a scheduled fn immediately and waits for it
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.pending = false
	d.wg.Add(1)
	d.mu.Unlock()

	d.execute()
}

// Stop cancels any scheduled run and waits for a running fn to return.
// Later Triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.pending = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || !d.pending || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.timer = nil
	d.wg.Add(1)
	d.mu.Unlock()

	d.execute()
}

func (d *Debouncer) execute() {
	defer d.wg.Done()
	d.run.Lock()
	defer d.run.Unlock()
	d.fn()
}
