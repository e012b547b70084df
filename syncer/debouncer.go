package syncer

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultDebounceDelay coalesces the burst of events a single atomic write
// produces (create temp, write, rename)
const DefaultDebounceDelay = 150 * time.Millisecond

// debouncer delays processing of a path until no new event for it has been
// seen for the delay period
type debouncer struct {
	pending   map[string]*time.Timer
	mu        sync.Mutex
	delay     time.Duration
	onProcess func(path string)
	stopping  atomic.Bool
}

func newDebouncer(delay time.Duration, onProcess func(path string)) *debouncer {
	return &debouncer{
		pending:   make(map[string]*time.Timer),
		delay:     delay,
		onProcess: onProcess,
	}
}

// Queue schedules path for processing, resetting its timer if one is already
// pending. Returns false once the debouncer is stopping.
func (d *debouncer) Queue(path string) bool {
	if d.stopping.Load() {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopping.Load() {
		return false
	}

	if timer, ok := d.pending[path]; ok && timer.Reset(d.delay) {
		return true
	}

	// New path, or the previous timer already fired
	d.pending[path] = time.AfterFunc(d.delay, func() {
		d.onTimer(path)
	})
	return true
}

func (d *debouncer) onTimer(path string) {
	d.mu.Lock()
	_, ok := d.pending[path]
	if ok {
		delete(d.pending, path)
	}
	d.mu.Unlock()

	if ok && !d.stopping.Load() {
		d.onProcess(path)
	}
}

// Stop cancels pending timers. No path is processed after Stop returns.
func (d *debouncer) Stop() {
	d.stopping.Store(true)

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, timer := range d.pending {
		timer.Stop()
	}
	d.pending = make(map[string]*time.Timer)
}

// PendingCount returns the number of queued paths
func (d *debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
