package app

import (
	"strconv"
	"time"

	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/questions"
	"quizmaster-service/internal/selector"
	"quizmaster-service/internal/snapshot"
)

const (
	dailySessionSnapshotKey = "daily:session"
	dailySessionVersion     = 1
	dailyMetaSnapshotKey    = "daily:meta"
	dailyMetaVersion        = 1

	dailyBaseReward      = 10
	dailyPerCorrectCoins = 2
	streakBadgeBonus     = 25
)

// dailyMetaSnapshot persists streak bookkeeping separately from the day's
// session, so an abandoned attempt never touches the streak.
type dailyMetaSnapshot struct {
	Streak            int      `json:"streak"`
	BestStreak        int      `json:"bestStreak"`
	LastCompletedDate string   `json:"lastCompletedDate"`
	TotalCompleted    int      `json:"totalCompleted"`
	Badges            []string `json:"badges,omitempty"`
}

func validateDailyMetaSnapshot(s *dailyMetaSnapshot) error {
	if s.Streak < 0 || s.TotalCompleted < 0 {
		return domain.ErrInvalidQuiz
	}
	return nil
}

// DailySession is the daily challenge machine: the standard session shape
// with a date-derived seed, snapshots valid only for the day they were
// written, and a completion path that maintains the streak.
type DailySession struct {
	*QuizSession

	meta     *snapshot.Store[dailyMetaSnapshot]
	ledger   *Ledger
	board    *Scoreboard
	now      func() time.Time
	category string
}

// DailyResult summarizes a daily completion for the view.
type DailyResult struct {
	Stats        domain.RoundStats
	Streak       int
	BestStreak   int
	NewBadges    []string
	CoinsAwarded int
	FirstOfDay   bool
}

// NewDailySession builds the daily machine. The selection seed is
// "{YYYY-MM-DD}::{category|any}", so everyone starting the challenge on the
// same day with the same category plays the same questions.
func NewDailySession(kv snapshot.KV, resolver *questions.Resolver, clock func() time.Time, ledger *Ledger, board *Scoreboard, cfg SessionConfig) *DailySession {
	if clock == nil {
		clock = time.Now
	}
	category := cfg.Category
	if category == "" {
		category = "any"
	}
	dateKey := func() string { return DayKey(clock()) }
	seedFor := func(string) string { return selector.Seed(dateKey(), category) }

	store := snapshot.New(kv, dailySessionSnapshotKey, dailySessionVersion, validateSessionSnapshot)
	machine := newQuizSession(store, resolver, clock, cfg, seedFor, dateKey)

	return &DailySession{
		QuizSession: machine,
		meta:        snapshot.New(kv, dailyMetaSnapshotKey, dailyMetaVersion, validateDailyMetaSnapshot),
		ledger:      ledger,
		board:       board,
		now:         clock,
		category:    category,
	}
}

// CompleteDaily finishes today's attempt: updates the streak, grants any
// milestone badge, awards coins under a day-keyed id, records the
// scoreboard, and clears the day's snapshot. The day-keyed award id makes
// the whole path safe to re-run.
func (d *DailySession) CompleteDaily(durations []int64) DailyResult {
	today := DayKey(d.now())
	stats := d.Complete(durations)

	meta, _ := d.meta.Read()
	firstOfDay := meta.LastCompletedDate != today

	streak := NextStreak(meta.LastCompletedDate, today, meta.Streak)
	meta.Streak = streak
	if streak > meta.BestStreak {
		meta.BestStreak = streak
	}
	if firstOfDay {
		meta.TotalCompleted++
	}
	meta.LastCompletedDate = today

	var newBadges []string
	if badge, ok := MilestoneBadge(streak); ok && !containsString(meta.Badges, badge) {
		meta.Badges = append(meta.Badges, badge)
		newBadges = append(newBadges, badge)
	}
	d.meta.Write(meta)

	coins := dailyBaseReward + stats.Correct*dailyPerCorrectCoins
	awarded := 0
	if applied, err := d.ledger.Add(coins, domain.ReasonDailyReward, "daily::"+today+"::"+d.category, map[string]string{
		"correct": strconv.Itoa(stats.Correct),
	}); err == nil && applied {
		awarded = coins
	}
	for _, badge := range newBadges {
		if applied, err := d.ledger.Add(streakBadgeBonus, domain.ReasonStreakBonus, "streak-badge::"+badge, nil); err == nil && applied {
			awarded += streakBadgeBonus
		}
	}

	if firstOfDay {
		d.board.Record(ScoreboardEntry{
			Mode:     "daily",
			Category: d.category,
			Score:    stats.Correct,
			Total:    d.QuestionCount(),
			Accuracy: stats.AccuracyPercent(),
			Date:     today,
		})
	}

	return DailyResult{
		Stats:        stats,
		Streak:       streak,
		BestStreak:   meta.BestStreak,
		NewBadges:    newBadges,
		CoinsAwarded: awarded,
		FirstOfDay:   firstOfDay,
	}
}

// Streak returns the current streak without mutating anything.
func (d *DailySession) Streak() int {
	meta, _ := d.meta.Read()
	return meta.Streak
}

// Badges returns the earned milestone badges.
func (d *DailySession) Badges() []string {
	meta, _ := d.meta.Read()
	return append([]string(nil), meta.Badges...)
}

// CompletedToday reports whether today's challenge was already finished.
func (d *DailySession) CompletedToday() bool {
	meta, _ := d.meta.Read()
	return meta.LastCompletedDate == DayKey(d.now())
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
