package app

import (
	"sort"
	"sync"

	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/snapshot"
)

const (
	unlocksSnapshotKey     = "unlocks:graph"
	unlocksSnapshotVersion = 1
)

// UnlockRules configures the progression graph: which categories gate which,
// the accuracy bar, and which play modes count toward unlocking.
type UnlockRules struct {
	Prerequisites    map[string][]string
	ThresholdPercent float64
	ModeCounts       map[string]bool
}

// DefaultUnlockRules mirrors the shipped category progression: general
// knowledge is open, the rest unlock behind it.
func DefaultUnlockRules() UnlockRules {
	return UnlockRules{
		Prerequisites: map[string][]string{
			"gk":      {},
			"science": {"gk"},
			"history": {"gk"},
			"sports":  {"gk"},
			"movies":  {"science", "history"},
		},
		ThresholdPercent: 60,
		ModeCounts: map[string]bool{
			"quiz":       true,
			"tournament": true,
			"daily":      false,
		},
	}
}

type unlocksSnapshot struct {
	Unlocked map[string]bool `json:"unlocked"`
}

func validateUnlocksSnapshot(s *unlocksSnapshot) error {
	if s.Unlocked == nil {
		return domain.ErrInvalidQuiz
	}
	return nil
}

// UnlockEvaluator derives category access from completed attempts.
// Unlocking is monotonic: evaluation never sets an unlocked category back,
// no matter how stale or low the score it is re-run with.
type UnlockEvaluator struct {
	mu       sync.Mutex
	store    *snapshot.Store[unlocksSnapshot]
	rules    UnlockRules
	unlocked map[string]bool
}

func NewUnlockEvaluator(kv snapshot.KV, rules UnlockRules) *UnlockEvaluator {
	e := &UnlockEvaluator{
		store:    snapshot.New(kv, unlocksSnapshotKey, unlocksSnapshotVersion, validateUnlocksSnapshot),
		rules:    rules,
		unlocked: make(map[string]bool),
	}
	if snap, ok := e.store.Read(); ok {
		e.unlocked = snap.Unlocked
	}
	// Roots with no prerequisites are open from the start.
	changed := false
	for category, prereqs := range rules.Prerequisites {
		if len(prereqs) == 0 && !e.unlocked[category] {
			e.unlocked[category] = true
			changed = true
		}
	}
	if changed {
		e.store.Write(unlocksSnapshot{Unlocked: e.unlocked})
	}
	return e
}

func (e *UnlockEvaluator) IsUnlocked(category string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unlocked[category]
}

// Unlocked returns the currently open categories, sorted.
func (e *UnlockEvaluator) Unlocked() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.unlocked))
	for category, open := range e.unlocked {
		if open {
			out = append(out, category)
		}
	}
	sort.Strings(out)
	return out
}

// EvaluateFromScore applies a completed attempt: meeting the threshold
// unlocks the played category, then the cascade opens categories whose
// full prerequisite list became satisfied by this call. A category never
// opens just because its prerequisites happened to be open already; it
// needs an unlock from this evaluation somewhere in its prerequisite
// list, so a below-threshold attempt opens nothing. Returns the
// categories newly unlocked by this call, sorted, for celebratory UI.
// Attempts from modes configured not to count are ignored entirely.
func (e *UnlockEvaluator) EvaluateFromScore(category string, accuracyPercent float64, mode string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if counts, known := e.rules.ModeCounts[mode]; known && !counts {
		return nil
	}

	var newly []string
	if accuracyPercent >= e.rules.ThresholdPercent && !e.unlocked[category] {
		e.unlocked[category] = true
		newly = append(newly, category)
	}

	// Worklist cascade: each unlock from this call can satisfy the last
	// missing prerequisite of another category, chaining further.
	for i := 0; i < len(newly); i++ {
		opened := newly[i]
		for candidate, prereqs := range e.rules.Prerequisites {
			if e.unlocked[candidate] {
				continue
			}
			gatedOnOpened := false
			satisfied := true
			for _, p := range prereqs {
				if p == opened {
					gatedOnOpened = true
				}
				if !e.unlocked[p] {
					satisfied = false
				}
			}
			if gatedOnOpened && satisfied {
				e.unlocked[candidate] = true
				newly = append(newly, candidate)
			}
		}
	}

	if len(newly) > 0 {
		e.store.Write(unlocksSnapshot{Unlocked: e.unlocked})
	}
	sort.Strings(newly)
	return newly
}
