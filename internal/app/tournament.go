package app

import (
	"context"
	"strconv"
	"sync"
	"time"

	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/questions"
	"quizmaster-service/internal/selector"
	"quizmaster-service/internal/snapshot"
)

const (
	tournamentSnapshotKey  = "tournament:state"
	tournamentVersion      = 1
	tournamentRoundKey     = "tournament:round"
	tournamentRoundVersion = 1

	coinsPerRoundCorrect = 5
	coinsPerMedal        = 50
)

type tournamentSnapshot struct {
	SessionID       string              `json:"sessionId"`
	Category        string              `json:"category"`
	CurrentRound    int                 `json:"currentRound"`
	RoundsTotal     int                 `json:"roundsTotal"`
	CompletedRounds int                 `json:"completedRounds"`
	RoundStats      []domain.RoundStats `json:"roundStats"`
	StartedAt       time.Time           `json:"startedAt"`
}

func validateTournamentSnapshot(s *tournamentSnapshot) error {
	if s.SessionID == "" || s.RoundsTotal <= 0 {
		return domain.ErrInvalidQuiz
	}
	if s.CurrentRound < 1 || s.CurrentRound > s.RoundsTotal+1 {
		return domain.ErrInvalidQuiz
	}
	if s.CompletedRounds > s.RoundsTotal || len(s.RoundStats) != s.CompletedRounds {
		return domain.ErrInvalidQuiz
	}
	return nil
}

// Tournament runs consecutive rounds with escalating question counts. Each
// round is a full session machine persisted under its own key, so a reload
// mid-round resumes mid-round; the tournament snapshot carries the
// cross-round aggregate.
type Tournament struct {
	mu       sync.Mutex
	kv       snapshot.KV
	store    *snapshot.Store[tournamentSnapshot]
	resolver *questions.Resolver
	now      func() time.Time
	ledger   *Ledger
	board    *Scoreboard
	cfg      SessionConfig

	sessionID    string
	currentRound int
	roundsTotal  int
	completed    int
	results      []domain.RoundStats
	startedAt    time.Time
	round        *QuizSession
}

// TournamentResult is the final outcome handed to the view.
type TournamentResult struct {
	Stats        domain.RoundStats
	Medals       []domain.Medal
	CoinsAwarded int
}

func NewTournament(kv snapshot.KV, resolver *questions.Resolver, clock func() time.Time, ledger *Ledger, board *Scoreboard, cfg SessionConfig, rounds int) *Tournament {
	if clock == nil {
		clock = time.Now
	}
	if rounds <= 0 {
		rounds = 3
	}
	return &Tournament{
		kv:          kv,
		store:       snapshot.New(kv, tournamentSnapshotKey, tournamentVersion, validateTournamentSnapshot),
		resolver:    resolver,
		now:         clock,
		ledger:      ledger,
		board:       board,
		cfg:         cfg.withDefaults(),
		roundsTotal: rounds,
	}
}

// Begin starts a fresh tournament, discarding any prior state.
func (t *Tournament) Begin(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessionID = id
	t.currentRound = 1
	t.completed = 0
	t.results = nil
	t.startedAt = t.now()
	t.round = nil
	t.roundStore().Clear()
	t.persistLocked()
}

// Resume rebuilds an in-flight tournament, including the mid-round session
// if one was saved. Returns false when nothing valid is stored.
func (t *Tournament) Resume() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap, ok := t.store.Read()
	if !ok {
		return false
	}
	t.sessionID = snap.SessionID
	t.currentRound = snap.CurrentRound
	t.completed = snap.CompletedRounds
	t.results = snap.RoundStats
	t.startedAt = snap.StartedAt

	machine := t.newRoundMachineLocked()
	if machine.ResumeIfAvailable() {
		t.round = machine
	}
	return true
}

// StartRound activates the current round. Rounds escalate: each draws two
// more questions than the previous one, from a seed composed of the
// tournament session id and the round number so no two rounds collide.
func (t *Tournament) StartRound(ctx context.Context) (*QuizSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.currentRound > t.roundsTotal {
		return nil, domain.ErrNoQuestions
	}
	machine := t.newRoundMachineLocked()

	pool, _ := t.resolver.Resolve(ctx, t.cfg.Category)
	count := t.cfg.QuestionCount + (t.currentRound-1)*2
	seed := selector.Seed(t.sessionID, "round-"+strconv.Itoa(t.currentRound))
	qs := selector.Select(seed, pool, count)

	if err := machine.StartWithQuestions(qs); err != nil {
		return nil, err
	}
	t.round = machine
	t.persistLocked()
	return machine, nil
}

// Round returns the in-flight round machine, if any.
func (t *Tournament) Round() (*QuizSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.round, t.round != nil
}

// CompleteRound closes the current round, awards its coins under a
// round-keyed id, and advances. Returns true when that was the final round.
func (t *Tournament) CompleteRound(durations []int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.round == nil {
		return t.currentRound > t.roundsTotal
	}
	stats := t.round.Complete(durations)
	t.results = append(t.results, stats)
	t.completed++

	if stats.Correct > 0 {
		_, _ = t.ledger.Add(coinsPerRoundCorrect*stats.Correct, domain.ReasonTournamentReward,
			selector.Seed(t.sessionID, "round-"+strconv.Itoa(t.currentRound)),
			map[string]string{"round": strconv.Itoa(t.currentRound)})
	}

	t.round = nil
	t.currentRound++
	t.persistLocked()
	return t.currentRound > t.roundsTotal
}

// Finish computes medals over the aggregate, awards the final coins under
// the session-keyed id, records the scoreboard, and clears the tournament
// snapshot. Calling it again recomputes the result without re-recording.
func (t *Tournament) Finish() TournamentResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	// The stored snapshot doubles as the first-finish marker; it is
	// cleared below, so a repeated Finish skips the scoreboard write.
	first := t.store.Exists()

	aggregate := domain.RoundStats{}
	for _, r := range t.results {
		aggregate = aggregate.Merge(r)
	}
	medals := TournamentMedals(aggregate, t.completed, t.roundsTotal)

	awarded := 0
	if len(medals) > 0 {
		coins := len(medals) * coinsPerMedal
		if applied, err := t.ledger.Add(coins, domain.ReasonTournamentReward, selector.Seed(t.sessionID, "final"), nil); err == nil && applied {
			awarded = coins
		}
	}

	if first {
		t.board.Record(ScoreboardEntry{
			Mode:     "tournament",
			Category: t.cfg.Category,
			Score:    aggregate.Correct,
			Total:    aggregate.Correct + aggregate.Wrong + aggregate.Skipped,
			Accuracy: aggregate.AccuracyPercent(),
		})
	}

	t.store.Clear()
	t.roundStore().Clear()
	return TournamentResult{Stats: aggregate, Medals: medals, CoinsAwarded: awarded}
}

// HasSavedTournament reports whether an in-flight tournament is stored.
func (t *Tournament) HasSavedTournament() bool {
	return t.store.Exists()
}

func (t *Tournament) CurrentRoundNumber() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentRound
}

func (t *Tournament) RoundsTotal() int { return t.roundsTotal }

func (t *Tournament) newRoundMachineLocked() *QuizSession {
	store := snapshot.New(t.kv, tournamentRoundKey, tournamentRoundVersion, validateSessionSnapshot)
	return newQuizSession(store, t.resolver, t.now, t.cfg, nil, nil)
}

func (t *Tournament) roundStore() *snapshot.Store[sessionSnapshot] {
	return snapshot.New(t.kv, tournamentRoundKey, tournamentRoundVersion, validateSessionSnapshot)
}

func (t *Tournament) persistLocked() {
	t.store.Write(tournamentSnapshot{
		SessionID:       t.sessionID,
		Category:        t.cfg.Category,
		CurrentRound:    t.currentRound,
		RoundsTotal:     t.roundsTotal,
		CompletedRounds: t.completed,
		RoundStats:      t.results,
		StartedAt:       t.startedAt,
	})
}
