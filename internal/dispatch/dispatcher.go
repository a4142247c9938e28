package dispatch

import (
	"errors"
	"sync"
)

// queueCapacity bounds the producer->consumer channel. The producer yields
// at most one transaction per poll interval, so the buffer only has to
// absorb a slow consumer, not a burst.
const queueCapacity = 64

// ErrStatusMismatch indicates a conditional status transition failed
// because the current status was not the expected one.
var ErrStatusMismatch = errors.New("status mismatch/conditional failed")

// Dispatcher owns the ordered hand-off of transaction IDs from the
// scanning loop to the publishing loop, plus the status registry that
// tracks each ID through Queued -> Processing -> Completed/Failed.
//
// Ownership discipline: the producer creates Queued entries and sends on
// the channel; the single consumer receives and advances entries. Neither
// side touches the other's fields.
type Dispatcher struct {
	queue chan string

	mu     sync.Mutex
	status map[string]string
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		queue:  make(chan string, queueCapacity),
		status: make(map[string]string),
	}
}

// Enqueue registers id as Queued and appends it to the queue tail.
// Returns false without side effects when the id is already tracked,
// which prevents double-queueing an id found by two adjacent scans.
func (d *Dispatcher) Enqueue(id string) bool {
	d.mu.Lock()
	if _, ok := d.status[id]; ok {
		d.mu.Unlock()
		return false
	}
	d.status[id] = StatusQueued
	d.mu.Unlock()

	d.queue <- id
	return true
}

// TryDequeue pops the head of the queue, if any. Consumer-only.
func (d *Dispatcher) TryDequeue() (string, bool) {
	select {
	case id := <-d.queue:
		return id, true
	default:
		return "", false
	}
}

// Pending reports how many IDs are waiting in the queue.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Status returns the tracked status for id, if any.
func (d *Dispatcher) Status(id string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.status[id]
	return s, ok
}

// Transition conditionally moves id from expected to next.
// Returns ErrStatusMismatch when the current status is not expected,
// so a terminal status can never be walked backward.
func (d *Dispatcher) Transition(id, expected, next string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.status[id] != expected {
		return ErrStatusMismatch
	}
	d.status[id] = next
	return nil
}
