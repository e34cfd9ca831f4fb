package app

import (
	"sync"
	"time"

	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/snapshot"
)

const (
	ledgerSnapshotKey     = "coins:ledger"
	ledgerSnapshotVersion = 1
)

// LedgerEntry is one append-only balance delta. ID is the idempotency key:
// the ledger never holds two entries with the same one.
type LedgerEntry struct {
	ID        string              `json:"id"`
	Timestamp time.Time           `json:"timestamp"`
	Delta     int                 `json:"delta"`
	Reason    domain.LedgerReason `json:"reason"`
	Meta      map[string]string   `json:"meta,omitempty"`
}

type ledgerSnapshot struct {
	Entries []LedgerEntry `json:"entries"`
}

func validateLedgerSnapshot(s *ledgerSnapshot) error {
	if s.Entries == nil {
		return domain.ErrInvalidQuiz
	}
	seen := make(map[string]bool, len(s.Entries))
	for _, e := range s.Entries {
		if e.ID == "" || seen[e.ID] {
			return domain.ErrMissingAwardID
		}
		seen[e.ID] = true
	}
	return nil
}

// Ledger is the coin economy: an id-keyed log of deltas where a given award
// id applies at most once, ever. That single property is what makes
// resumes, re-renders, and replayed completion paths safe to retry.
type Ledger struct {
	mu    sync.Mutex
	store *snapshot.Store[ledgerSnapshot]
	now   func() time.Time

	entries        []LedgerEntry
	ids            map[string]bool
	balance        int
	lifetimeEarned int
}

// NewLedger loads prior history from storage; a corrupt or missing snapshot
// starts the economy from zero.
func NewLedger(kv snapshot.KV, clock func() time.Time) *Ledger {
	if clock == nil {
		clock = time.Now
	}
	l := &Ledger{
		store: snapshot.New(kv, ledgerSnapshotKey, ledgerSnapshotVersion, validateLedgerSnapshot),
		now:   clock,
		ids:   make(map[string]bool),
	}
	if snap, ok := l.store.Read(); ok {
		for _, e := range snap.Entries {
			l.applyLocked(e)
		}
	}
	return l
}

// Add applies a delta under an idempotency key. A repeated id is a complete
// no-op; an empty id is rejected since retries could not be deduplicated.
// Returns whether the entry was applied.
func (l *Ledger) Add(delta int, reason domain.LedgerReason, id string, meta map[string]string) (bool, error) {
	if id == "" {
		return false, domain.ErrMissingAwardID
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ids[id] {
		return false, nil
	}
	l.applyLocked(LedgerEntry{
		ID:        id,
		Timestamp: l.now(),
		Delta:     delta,
		Reason:    reason,
		Meta:      meta,
	})
	l.persistLocked()
	return true, nil
}

// Spend records a negative delta, also idempotent by id. Fails without
// state change when the balance cannot cover it. Spends never reduce
// lifetime earnings.
func (l *Ledger) Spend(amount int, id string) (bool, error) {
	if id == "" {
		return false, domain.ErrMissingAwardID
	}
	if amount <= 0 {
		return false, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ids[id] {
		return false, nil
	}
	if l.balance < amount {
		return false, domain.ErrInsufficientBalance
	}
	l.applyLocked(LedgerEntry{
		ID:        id,
		Timestamp: l.now(),
		Delta:     -amount,
		Reason:    domain.ReasonPurchase,
	})
	l.persistLocked()
	return true, nil
}

func (l *Ledger) Balance() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

func (l *Ledger) LifetimeEarned() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lifetimeEarned
}

// History returns the entries oldest first.
func (l *Ledger) History() []LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LedgerEntry(nil), l.entries...)
}

func (l *Ledger) applyLocked(e LedgerEntry) {
	l.entries = append(l.entries, e)
	l.ids[e.ID] = true
	l.balance += e.Delta
	if e.Delta > 0 {
		l.lifetimeEarned += e.Delta
	}
}

func (l *Ledger) persistLocked() {
	l.store.Write(ledgerSnapshot{Entries: l.entries})
}
