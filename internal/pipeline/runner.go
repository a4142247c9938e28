package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/zenorc/zenorc/internal/dispatch"
)

// consumerTick is how often the publishing loop re-checks an empty queue
// or an active cooldown.
const consumerTick = time.Second

// publish retry policy
const (
	maxPublishAttempts = 3
	publishBackoff     = 5 * time.Second
)

// Scanner yields at most one new transaction ID per invocation.
type Scanner interface {
	Scan() (txnID string, found bool)
}

// Recorder persists confirmed transactions to the durable ledger.
type Recorder interface {
	Record(ctx context.Context, txnID, amount string) error
}

// Publisher emits the paid signal with bounded retry.
type Publisher interface {
	PublishPaid(maxAttempts int, backoff time.Duration) bool
}

// Runner wires the scanner, recorder, dispatcher and publisher into the
// two cooperating loops that make up the pipeline.
type Runner struct {
	scanner    Scanner
	recorder   Recorder
	dispatcher *dispatch.Dispatcher
	publisher  Publisher

	amount       string
	pollInterval time.Duration
	cooldown     time.Duration

	// lastProcessed is read and written only by the consumer loop.
	lastProcessed time.Time

	nowFunc func() time.Time
	sleep   func(time.Duration)
}

// NewRunner assembles a runner with the configured amount, poll interval
// and publish cooldown.
func NewRunner(s Scanner, r Recorder, d *dispatch.Dispatcher, p Publisher, amount string, pollInterval, cooldown time.Duration) *Runner {
	return &Runner{
		scanner:      s,
		recorder:     r,
		dispatcher:   d,
		publisher:    p,
		amount:       amount,
		pollInterval: pollInterval,
		cooldown:     cooldown,
		nowFunc:      time.Now,
		sleep:        time.Sleep,
	}
}

// Run starts the producer and consumer loops and blocks until ctx is
// cancelled.
func (r *Runner) Run(ctx context.Context) {
	log.Printf("[pipeline] starting background loops")
	go r.consumeLoop(ctx)
	r.produceLoop(ctx)
}

// produceLoop scans the inbox on a fixed interval. Each hit is marked
// Queued, recorded to the ledger, and handed to the consumer. A ledger
// failure is logged but never blocks dispatch.
func (r *Runner) produceLoop(ctx context.Context) {
	log.Printf("[pipeline] scanning inbox for payments...")
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	for {
		r.produceOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Runner) produceOnce(ctx context.Context) {
	txnID, found := r.scanner.Scan()
	if !found {
		return
	}
	if _, tracked := r.dispatcher.Status(txnID); tracked {
		return
	}
	if err := r.recorder.Record(ctx, txnID, r.amount); err != nil {
		log.Printf("[pipeline] ERROR: failed to record %s: %v", txnID, err)
	}
	if r.dispatcher.Enqueue(txnID) {
		log.Printf("[pipeline] queued %s. queue size: %d", txnID, r.dispatcher.Pending())
	}
}

// consumeLoop drains the dispatcher under the cooldown policy. Only one
// transaction is in flight at a time; the cooldown clock is stamped after
// every publish attempt, success or failure.
func (r *Runner) consumeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if !r.consumeOnce() {
			r.sleep(consumerTick)
		}
	}
}

// consumeOnce processes at most one queued transaction. It returns false
// when nothing was dequeued (empty queue or active cooldown) so the loop
// can idle.
func (r *Runner) consumeOnce() bool {
	if r.dispatcher.Pending() == 0 {
		return false
	}
	if remain := r.cooldownRemaining(); remain > 0 {
		log.Printf("[pipeline] cooldown active. waiting for %ds...", int(remain.Seconds()))
		return false
	}

	txnID, ok := r.dispatcher.TryDequeue()
	if !ok {
		return false
	}
	if err := r.dispatcher.Transition(txnID, dispatch.StatusQueued, dispatch.StatusProcessing); err != nil {
		log.Printf("[pipeline] unexpected status for %s: %v", txnID, err)
		return true
	}
	log.Printf("[pipeline] processing %s...", txnID)

	ok = r.publisher.PublishPaid(maxPublishAttempts, publishBackoff)
	next := dispatch.StatusCompleted
	if !ok {
		next = dispatch.StatusFailed
	}
	if err := r.dispatcher.Transition(txnID, dispatch.StatusProcessing, next); err != nil {
		log.Printf("[pipeline] unexpected status for %s: %v", txnID, err)
	}
	log.Printf("[pipeline] completed processing %s (status=%s)", txnID, next)
	r.lastProcessed = r.nowFunc()
	return true
}

func (r *Runner) cooldownRemaining() time.Duration {
	if r.lastProcessed.IsZero() {
		return 0
	}
	elapsed := r.nowFunc().Sub(r.lastProcessed)
	if elapsed >= r.cooldown {
		return 0
	}
	return r.cooldown - elapsed
}
