package service

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of work per key: each Schedule call replaces the
// previously scheduled function for that key and restarts the quiescence
// window, so only the last function runs once the key goes quiet. Functions
// execute on the timer goroutine.
type Debouncer struct {
	window  time.Duration
	mu      sync.Mutex
	pending map[string]*pendingTask
}

type pendingTask struct {
	timer *time.Timer
	fn    func()
}

// NewDebouncer creates a Debouncer with the given quiescence window.
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = 500 * time.Millisecond
	}
	return &Debouncer{
		window:  window,
		pending: make(map[string]*pendingTask),
	}
}

// Schedule queues fn to run after the window elapses without another Schedule
// for the same key. An earlier pending fn for the key is discarded unrun.
func (d *Debouncer) Schedule(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if task, ok := d.pending[key]; ok {
		task.timer.Stop()
	}
	task := &pendingTask{fn: fn}
	task.timer = time.AfterFunc(d.window, func() { d.fire(key, task) })
	d.pending[key] = task
}

func (d *Debouncer) fire(key string, task *pendingTask) {
	d.mu.Lock()
	// A Schedule racing the timer may already have replaced the task; the
	// replacement owns the slot and this fn is stale.
	if d.pending[key] != task {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()

	task.fn()
}

// Cancel discards the pending fn for key, if any.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if task, ok := d.pending[key]; ok {
		task.timer.Stop()
		delete(d.pending, key)
	}
}

// Flush runs every pending fn immediately. Called on shutdown so queued
// saves are not lost with the process.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	tasks := make([]*pendingTask, 0, len(d.pending))
	for key, task := range d.pending {
		task.timer.Stop()
		tasks = append(tasks, task)
		delete(d.pending, key)
	}
	d.mu.Unlock()

	for _, task := range tasks {
		task.fn()
	}
}

// Len reports the number of keys with pending work.
func (d *Debouncer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
