package mailbox

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"
)

// recentWindow caps how many unread messages one scan will consider.
const recentWindow = 30

// fallbackPrefix starts synthesized transaction IDs when no reference
// pattern matches the notification body.
const fallbackPrefix = "TXN"

// refPatterns are tried in order; the first capturing group of the first
// match wins.
var refPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Reference\s*(?:No\.?|number)?\s*[:\-]?\s*(\d{8,})`),
	regexp.MustCompile(`(?i)transaction reference number\s*(?:is)?\s*[:\-]?\s*(\d{8,})`),
}

// Scanner polls the mailbox for payment notifications, classifies them,
// and extracts transaction IDs. UIDs already considered in this process
// are never yielded again.
type Scanner struct {
	dial     Dialer
	amountRe *regexp.Regexp

	// recorded reports whether a transaction ID is already in the ledger.
	recorded func(txnID string) bool

	// mu serializes mailbox access so overlapping scans cannot
	// interleave commands on the same connection.
	mu       sync.Mutex
	seenUIDs map[uint32]struct{}

	nowFunc func() time.Time
}

// NewScanner builds a scanner for the given target amount. recorded is
// consulted before yielding an ID; pass the ledger's membership check.
func NewScanner(dial Dialer, targetAmount string, recorded func(string) bool) *Scanner {
	return &Scanner{
		dial:     dial,
		amountRe: amountPattern(targetAmount),
		recorded: recorded,
		seenUIDs: make(map[uint32]struct{}),
		nowFunc:  time.Now,
	}
}

// amountPattern matches a currency marker (₹, Rs, INR), optional
// separators, the exact amount, and an optional .00/,00 suffix.
func amountPattern(amount string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:₹|rs\.?|inr)\s*[, ]*\s*` + regexp.QuoteMeta(amount) + `(?:[.,]00)?\b`)
}

// Scan performs one poll of the inbox. It walks unread messages newest
// first within the recent window and returns the first new, valid
// transaction ID it finds. Errors are logged and reported as "nothing
// found"; the next scheduled scan starts from scratch.
func (s *Scanner) Scan() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.dial()
	if err != nil {
		log.Printf("[scanner] error polling email: %v", err)
		return "", false
	}
	defer session.Close()

	uids, err := session.SearchUnseen()
	if err != nil {
		log.Printf("[scanner] error polling email: %v", err)
		return "", false
	}
	if len(uids) > recentWindow {
		uids = uids[len(uids)-recentWindow:]
	}

	// newest first
	for i := len(uids) - 1; i >= 0; i-- {
		uid := uids[i]
		if _, ok := s.seenUIDs[uid]; ok {
			continue
		}

		body, err := session.FetchBody(uid)
		if err != nil {
			log.Printf("[scanner] error polling email: %v", err)
			return "", false
		}
		if body == "" {
			continue
		}
		if !s.isValidPayment(strings.ToLower(body)) {
			continue
		}

		txnID := s.extractTxnID(body)
		if s.recorded(txnID) {
			continue
		}

		s.seenUIDs[uid] = struct{}{}
		if err := session.MarkSeen(uid); err != nil {
			log.Printf("[scanner] error polling email: %v", err)
			return "", false
		}
		log.Printf("[scanner] found new payment. UID: %d -> TXN_ID: %s", uid, txnID)
		return txnID, true
	}
	return "", false
}

// isValidPayment reports whether a lower-cased body describes an incoming
// payment of the target amount. Debit notices mention both directions, so
// "debited" anywhere disqualifies the message.
func (s *Scanner) isValidPayment(bodyLC string) bool {
	isCredit := strings.Contains(bodyLC, "credited") && !strings.Contains(bodyLC, "debited")
	return isCredit && s.amountRe.MatchString(bodyLC)
}

// extractTxnID pulls a reference number out of the body, falling back to
// a timestamp-derived ID when no pattern matches.
func (s *Scanner) extractTxnID(body string) string {
	for _, pat := range refPatterns {
		if m := pat.FindStringSubmatch(body); m != nil {
			return m[1]
		}
	}
	return fmt.Sprintf("%s%d", fallbackPrefix, s.nowFunc().Unix())
}
