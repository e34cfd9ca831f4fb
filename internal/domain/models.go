package domain

// Question models an MCQ question with exactly one correct option.
// Content semantics are opaque to the core; only the shape is checked.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"` // 2 to 6 entries
	CorrectOption int      `json:"correctOption"`
	Explanation   string   `json:"explanation,omitempty"`
	Hint          string   `json:"hint,omitempty"`
	ReferenceURL  string   `json:"referenceUrl,omitempty"`
}

// Valid reports whether the question shape is usable by a session.
func (q Question) Valid() bool {
	if q.ID == "" {
		return false
	}
	if len(q.Options) < 2 || len(q.Options) > 6 {
		return false
	}
	return q.CorrectOption >= 0 && q.CorrectOption < len(q.Options)
}

// Lifelines tracks one-time player aids. Each flag is monotonic within a
// session: once true it never flips back.
type Lifelines struct {
	FiftyFifty bool `json:"fiftyFifty"`
	Skip       bool `json:"skip"`
	ExtraTime  bool `json:"extraTime"`
	Hint       bool `json:"hint"`
}

// RoundStats aggregates a completed round or attempt. Durations are per
// answered question, in milliseconds, supplied by the view collaborator.
type RoundStats struct {
	Correct   int     `json:"correct"`
	Wrong     int     `json:"wrong"`
	Skipped   int     `json:"skipped"`
	Durations []int64 `json:"durations,omitempty"`
}

// AccuracyPercent excludes skipped questions from the denominator.
func (s RoundStats) AccuracyPercent() float64 {
	answered := s.Correct + s.Wrong
	if answered == 0 {
		return 0
	}
	return float64(s.Correct) * 100 / float64(answered)
}

// Merge adds another round's counts and durations into the aggregate.
func (s RoundStats) Merge(other RoundStats) RoundStats {
	s.Correct += other.Correct
	s.Wrong += other.Wrong
	s.Skipped += other.Skipped
	s.Durations = append(s.Durations, other.Durations...)
	return s
}

// Medal is a tournament award tier. Medals are additive, not exclusive.
type Medal string

const (
	MedalBronze  Medal = "bronze"
	MedalSilver  Medal = "silver"
	MedalGold    Medal = "gold"
	MedalDiamond Medal = "diamond"
)

// LedgerReason categorizes a coin balance change.
type LedgerReason string

const (
	ReasonQuizReward       LedgerReason = "quiz_reward"
	ReasonDailyReward      LedgerReason = "daily_reward"
	ReasonStreakBonus      LedgerReason = "streak_bonus"
	ReasonTournamentReward LedgerReason = "tournament_reward"
	ReasonMultiplayer      LedgerReason = "multiplayer_reward"
	ReasonPurchase         LedgerReason = "purchase"
)
