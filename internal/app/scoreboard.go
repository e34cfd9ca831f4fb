package app

import (
	"sync"
	"time"

	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/snapshot"
)

const (
	scoreboardSnapshotKey     = "scoreboard"
	scoreboardSnapshotVersion = 1
	scoreboardCap             = 50
)

// ScoreboardEntry is one recorded attempt result.
type ScoreboardEntry struct {
	Mode      string    `json:"mode"`
	Category  string    `json:"category"`
	Score     int       `json:"score"`
	Total     int       `json:"total"`
	Accuracy  float64   `json:"accuracy"`
	Date      string    `json:"date"`
	Timestamp time.Time `json:"timestamp"`
}

type scoreboardSnapshot struct {
	Entries []ScoreboardEntry `json:"entries"`
}

func validateScoreboardSnapshot(s *scoreboardSnapshot) error {
	if s.Entries == nil {
		return domain.ErrInvalidQuiz
	}
	return nil
}

// Scoreboard keeps the recent attempt results shared by the completion
// paths of every mode, newest last, capped.
type Scoreboard struct {
	mu      sync.Mutex
	store   *snapshot.Store[scoreboardSnapshot]
	now     func() time.Time
	entries []ScoreboardEntry
}

func NewScoreboard(kv snapshot.KV, clock func() time.Time) *Scoreboard {
	if clock == nil {
		clock = time.Now
	}
	b := &Scoreboard{
		store: snapshot.New(kv, scoreboardSnapshotKey, scoreboardSnapshotVersion, validateScoreboardSnapshot),
		now:   clock,
	}
	if snap, ok := b.store.Read(); ok {
		b.entries = snap.Entries
	}
	return b
}

// Record appends a result and persists. Entries beyond the cap age out
// oldest first.
func (b *Scoreboard) Record(entry ScoreboardEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry.Timestamp = b.now()
	if entry.Date == "" {
		entry.Date = DayKey(entry.Timestamp)
	}
	b.entries = append(b.entries, entry)
	if len(b.entries) > scoreboardCap {
		b.entries = b.entries[len(b.entries)-scoreboardCap:]
	}
	b.store.Write(scoreboardSnapshot{Entries: b.entries})
}

// Entries returns recorded results, oldest first.
func (b *Scoreboard) Entries() []ScoreboardEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ScoreboardEntry(nil), b.entries...)
}

// HasEntryForDay reports whether a mode already recorded on a day key.
func (b *Scoreboard) HasEntryForDay(mode, date string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.entries {
		if e.Mode == mode && e.Date == date {
			return true
		}
	}
	return false
}
