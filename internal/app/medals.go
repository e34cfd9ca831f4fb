package app

import (
	"time"

	"quizmaster-service/internal/domain"
)

// diamondMaxMeanMillis is the per-question mean duration cutoff for the
// diamond medal; the comparison is inclusive.
const diamondMaxMeanMillis = 6000

// TournamentMedals maps aggregate stats across all rounds to the medal set.
// Medals are additive: a fast, accurate run that finished every round earns
// all four at once. Accuracy excludes skipped questions from the
// denominator; durations that are missing or negative are excluded from the
// mean, and with no usable durations at all diamond cannot be earned.
func TournamentMedals(stats domain.RoundStats, roundsCompleted, roundsTotal int) []domain.Medal {
	var medals []domain.Medal

	if roundsTotal > 0 && roundsCompleted >= roundsTotal {
		medals = append(medals, domain.MedalBronze)
	}

	accuracy := stats.AccuracyPercent()
	if accuracy >= 70 {
		medals = append(medals, domain.MedalSilver)
	}
	if accuracy >= 85 {
		medals = append(medals, domain.MedalGold)
	}
	if accuracy >= 95 {
		if mean, ok := meanDuration(stats.Durations); ok && mean <= diamondMaxMeanMillis {
			medals = append(medals, domain.MedalDiamond)
		}
	}
	return medals
}

func meanDuration(durations []int64) (float64, bool) {
	var sum int64
	count := 0
	for _, d := range durations {
		if d < 0 {
			continue
		}
		sum += d
		count++
	}
	if count == 0 {
		return 0, false
	}
	return float64(sum) / float64(count), true
}

// NextStreak computes the day-over-day streak after a completion on today.
// Dates are calendar day keys (YYYY-MM-DD). A prior completion exactly
// yesterday extends the streak; the same day leaves it unchanged; anything
// else, including no prior completion, restarts at one.
func NextStreak(lastCompletedDate, today string, prior int) int {
	if lastCompletedDate == today {
		if prior < 1 {
			return 1
		}
		return prior
	}
	if lastCompletedDate != "" && isYesterday(lastCompletedDate, today) {
		return prior + 1
	}
	return 1
}

func isYesterday(candidate, today string) bool {
	t, err := time.Parse("2006-01-02", today)
	if err != nil {
		return false
	}
	return t.AddDate(0, 0, -1).Format("2006-01-02") == candidate
}

// streakMilestones are the streak values that grant a named badge.
var streakMilestones = map[int]string{
	3:   "on-a-roll",
	7:   "week-warrior",
	30:  "monthly-master",
	100: "centurion",
}

// MilestoneBadge returns the badge granted at a streak value, if any.
func MilestoneBadge(streak int) (string, bool) {
	name, ok := streakMilestones[streak]
	return name, ok
}

// DayKey formats a wall-clock instant as the calendar day key used for
// daily seeds, streaks, and award ids.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
