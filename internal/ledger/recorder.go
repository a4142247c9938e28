package ledger

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Recorder appends confirmed transactions to the durable ledger and keeps
// the in-memory set of already-recorded IDs used for deduplication.
type Recorder struct {
	open func(ctx context.Context) (Sheet, error)

	mu       sync.Mutex
	recorded map[string]struct{}

	nowFunc func() time.Time
}

// NewRecorder builds a recorder. open is called per operation so that a
// missing sheet URL or credentials file fails at first use and a transient
// failure does not poison later operations.
func NewRecorder(open func(ctx context.Context) (Sheet, error)) *Recorder {
	return &Recorder{
		open:     open,
		recorded: make(map[string]struct{}),
		nowFunc:  time.Now,
	}
}

// Bootstrap loads previously recorded IDs from the ledger. Best effort:
// on failure the recorder starts empty and the scanner falls back to
// in-process dedupe for this run.
func (r *Recorder) Bootstrap(ctx context.Context) {
	log.Printf("[ledger] bootstrapping transaction history...")
	sheet, err := r.open(ctx)
	if err != nil {
		log.Printf("[ledger] WARN: bootstrap failed: %v", err)
		return
	}
	ids, err := sheet.IDColumn(ctx)
	if err != nil {
		log.Printf("[ledger] WARN: bootstrap failed: %v", err)
		return
	}
	r.mu.Lock()
	for _, id := range ids {
		r.recorded[id] = struct{}{}
	}
	n := len(r.recorded)
	r.mu.Unlock()
	log.Printf("[ledger] loaded %d existing transaction IDs", n)
}

// Record appends [id, amount, date, time] to the ledger and, on success,
// adds the ID to the recorded set. On failure the ID is NOT added and the
// error is returned; recording failure never blocks dispatch, so callers
// log and continue.
func (r *Recorder) Record(ctx context.Context, txnID, amount string) error {
	sheet, err := r.open(ctx)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	now := r.nowFunc().In(ledgerZone())
	if err := sheet.AppendRow(ctx, txnID, amount, now.Format("2006-01-02"), now.Format("15:04:05")); err != nil {
		return err
	}

	r.mu.Lock()
	r.recorded[txnID] = struct{}{}
	r.mu.Unlock()
	log.Printf("[ledger] logged %s", txnID)
	return nil
}

// Seen reports whether txnID is already in the recorded set.
func (r *Recorder) Seen(txnID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.recorded[txnID]
	return ok
}

// ledgerZone returns the ledger's regional timezone, falling back to UTC
// when the zone database cannot resolve it.
func ledgerZone() *time.Location {
	loc, err := time.LoadLocation("Asia/Mumbai")
	if err != nil {
		return time.UTC
	}
	return loc
}
