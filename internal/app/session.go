package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/questions"
	"quizmaster-service/internal/selector"
	"quizmaster-service/internal/snapshot"
	"github.com/google/uuid"
)

// SessionState is the lifecycle phase of a quiz session.
type SessionState string

const (
	StateEmpty     SessionState = "empty"
	StateLoading   SessionState = "loading"
	StateActive    SessionState = "active"
	StateSubmitted SessionState = "submitted"
	StateCompleted SessionState = "completed"
)

const (
	sessionSnapshotKey     = "quiz:session"
	sessionSnapshotVersion = 3
	noSelection            = -1
)

// SessionConfig tunes a quiz session. Zero values fall back to defaults.
type SessionConfig struct {
	Category        string
	QuestionCount   int
	QuestionSeconds int
	ExtraTimeBonus  int
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.Category == "" {
		c.Category = "gk"
	}
	if c.QuestionCount <= 0 {
		c.QuestionCount = 10
	}
	if c.QuestionSeconds <= 0 {
		c.QuestionSeconds = 30
	}
	if c.ExtraTimeBonus <= 0 {
		c.ExtraTimeBonus = 15
	}
	return c
}

// sessionSnapshot is the persisted form of a session. The snapshot store
// stamps the version field; everything else mirrors runtime state one to
// one so rehydration is a field copy.
type sessionSnapshot struct {
	SessionID       string                       `json:"sessionId"`
	Category        string                       `json:"category"`
	Date            string                       `json:"date,omitempty"`
	Questions       []domain.Question            `json:"questions"`
	CurrentIndex    int                          `json:"currentIndex"`
	Score           int                          `json:"score"`
	HasSubmitted    bool                         `json:"hasSubmitted"`
	SelectedAnswers map[string]domain.AnswerSlot `json:"selectedAnswers"`
	Lifelines       domain.Lifelines             `json:"lifelines"`
	HiddenOptions   map[string][]int             `json:"hiddenOptions,omitempty"`
	Timers          map[string]int               `json:"timers,omitempty"`
	UsedFallback    bool                         `json:"usedFallback,omitempty"`
	StartedAt       time.Time                    `json:"startedAt"`
	UpdatedAt       time.Time                    `json:"updatedAt"`
}

func validateSessionSnapshot(s *sessionSnapshot) error {
	if len(s.Questions) == 0 {
		return domain.ErrNoQuestions
	}
	for _, q := range s.Questions {
		if !q.Valid() {
			return domain.ErrInvalidQuiz
		}
	}
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Questions) {
		return domain.ErrInvalidQuiz
	}
	if s.SelectedAnswers == nil {
		return domain.ErrInvalidQuiz
	}
	return nil
}

// migrateSessionSnapshot normalizes the field names used by snapshot
// versions 1 and 2 ("index", "answers") into the current shape.
func migrateSessionSnapshot(_ int, raw []byte) []byte {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return raw
	}
	renames := map[string]string{
		"index":   "currentIndex",
		"answers": "selectedAnswers",
	}
	for old, current := range renames {
		if v, ok := fields[old]; ok {
			if _, taken := fields[current]; !taken {
				fields[current] = v
			}
			delete(fields, old)
		}
	}
	out, err := json.Marshal(fields)
	if err != nil {
		return raw
	}
	return out
}

// QuizSession is the state machine behind one play mode attempt. All state
// transitions happen on discrete calls; every state-changing call mirrors
// the runtime state into the snapshot store before returning.
type QuizSession struct {
	mu       sync.Mutex
	store    *snapshot.Store[sessionSnapshot]
	resolver *questions.Resolver
	now      func() time.Time
	cfg      SessionConfig

	// seedFor derives the selection seed from the session id; the daily
	// variant overrides it with a date-based rule. dateKey, when set, binds
	// snapshots to a calendar day for both persist and resume.
	seedFor func(sessionID string) string
	dateKey func() string

	id            string
	state         SessionState
	questions     []domain.Question
	currentIndex  int
	score         int
	selectedIndex int
	hasSubmitted  bool
	answers       map[string]domain.AnswerSlot
	lifelines     domain.Lifelines
	hiddenOptions map[string][]int
	timers        map[string]int
	usedFallback  bool
	startedAt     time.Time
}

// NewQuizSession builds the standard single-player machine. Snapshots are
// written under the quiz session key at version 3; versions 1 and 2 are
// still accepted on read and normalized first.
func NewQuizSession(kv snapshot.KV, resolver *questions.Resolver, clock func() time.Time, cfg SessionConfig) *QuizSession {
	store := snapshot.New(kv, sessionSnapshotKey, sessionSnapshotVersion, validateSessionSnapshot).
		WithLegacy([]int{1, 2}, migrateSessionSnapshot)
	return newQuizSession(store, resolver, clock, cfg, nil, nil)
}

func newQuizSession(
	store *snapshot.Store[sessionSnapshot],
	resolver *questions.Resolver,
	clock func() time.Time,
	cfg SessionConfig,
	seedFor func(string) string,
	dateKey func() string,
) *QuizSession {
	if clock == nil {
		clock = time.Now
	}
	if seedFor == nil {
		seedFor = func(id string) string { return id }
	}
	s := &QuizSession{
		store:    store,
		resolver: resolver,
		now:      clock,
		cfg:      cfg.withDefaults(),
		seedFor:  seedFor,
		dateKey:  dateKey,
	}
	s.resetLocked()
	return s
}

// Start loads questions and activates a fresh attempt. Resolution is
// bounded by the resolver's timeout; on any failure the embedded default
// pack keeps the session playable, so Start never strands the caller in
// the loading state.
func (s *QuizSession) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	s.state = StateLoading

	s.id = uuid.NewString()
	pool, usedFallback := s.resolver.Resolve(ctx, s.cfg.Category)
	s.usedFallback = usedFallback

	s.questions = selector.Select(s.seedFor(s.id), pool, s.cfg.QuestionCount)
	if len(s.questions) == 0 {
		// Resolver guarantees a non-empty pool, so this only guards a
		// misconfigured zero count after defaults.
		s.questions = pool
	}
	s.state = StateActive
	s.startedAt = s.now()
	s.armTimerLocked()
	s.persistLocked()
	return nil
}

// StartWithQuestions activates the session over a caller-supplied set, used
// by custom quizzes and tournament rounds where selection already happened.
func (s *QuizSession) StartWithQuestions(qs []domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	usable := make([]domain.Question, 0, len(qs))
	for _, q := range qs {
		if q.Valid() {
			usable = append(usable, q)
		}
	}
	if len(usable) == 0 {
		return domain.ErrNoQuestions
	}

	s.resetLocked()
	s.id = uuid.NewString()
	s.questions = usable
	s.state = StateActive
	s.startedAt = s.now()
	s.armTimerLocked()
	s.persistLocked()
	return nil
}

// SelectOption stages an option for the current question. Selection alone
// commits nothing: it can be repeated and overwritten until submit.
func (s *QuizSession) SelectOption(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.currentLocked()
	if !ok || s.hasSubmitted {
		return false
	}
	if index < 0 || index >= len(q.Options) {
		return false
	}
	s.selectedIndex = index
	s.persistLocked()
	return true
}

// SubmitAnswer commits the staged selection. Returns whether it was
// correct; with no selection staged it is a no-op reporting not-correct.
func (s *QuizSession) SubmitAnswer() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.currentLocked()
	if !ok || s.hasSubmitted || s.selectedIndex == noSelection {
		return false
	}

	s.answers[q.ID] = domain.AnswerAt(s.selectedIndex)
	s.hasSubmitted = true
	s.state = StateSubmitted
	correct := s.selectedIndex == q.CorrectOption
	if correct {
		s.score++
	}
	s.persistLocked()
	return correct
}

// NextQuestion advances past a submitted question. Returns false on the
// last question (the caller owns the transition to results) and when the
// current question has not been submitted yet.
func (s *QuizSession) NextQuestion() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasSubmitted || s.state == StateCompleted {
		return false
	}
	if s.currentIndex >= len(s.questions)-1 {
		return false
	}
	s.currentIndex++
	s.selectedIndex = noSelection
	s.hasSubmitted = false
	s.state = StateActive
	s.armTimerLocked()
	s.persistLocked()
	return true
}

// UseFiftyFifty hides two wrong options for the current question. The
// correct option is never hidden; avoiding the user's currently selected
// option is best-effort and gives way when fewer than two other wrong
// options exist. Repeated calls on the same question return the stored set.
// Like every lifeline it only fires while the question is still open.
func (s *QuizSession) UseFiftyFifty() ([]int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.currentLocked()
	if !ok || s.state != StateActive {
		return nil, false
	}
	if hidden, ok := s.hiddenOptions[q.ID]; ok {
		return append([]int(nil), hidden...), true
	}
	if s.lifelines.FiftyFifty {
		return nil, false
	}

	preferred := make([]int, 0, len(q.Options))
	rest := make([]int, 0, len(q.Options))
	for i := range q.Options {
		if i == q.CorrectOption {
			continue
		}
		if i == s.selectedIndex {
			rest = append(rest, i)
			continue
		}
		preferred = append(preferred, i)
	}
	if len(preferred) < 2 {
		preferred = append(preferred, rest...)
	}
	if len(preferred) < 2 {
		return nil, false
	}

	hidden := selector.Select(selector.Seed(s.id, "5050", q.ID), preferred, 2)
	s.hiddenOptions[q.ID] = append([]int(nil), hidden...)
	s.lifelines.FiftyFifty = true
	s.persistLocked()
	return append([]int(nil), hidden...), true
}

// UseSkip records the current question as skipped and marks it submitted
// without scoring. Whether to auto-advance is the caller's decision.
func (s *QuizSession) UseSkip() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.currentLocked()
	if !ok || s.lifelines.Skip || s.hasSubmitted {
		return false
	}
	s.answers[q.ID] = domain.SkippedAnswer()
	s.hasSubmitted = true
	s.state = StateSubmitted
	s.lifelines.Skip = true
	s.persistLocked()
	return true
}

// UseExtraTime adds the configured bonus to the current question's timer.
func (s *QuizSession) UseExtraTime() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.currentLocked()
	if !ok || s.state != StateActive || s.lifelines.ExtraTime {
		return false
	}
	s.timers[q.ID] += s.cfg.ExtraTimeBonus
	s.lifelines.ExtraTime = true
	s.persistLocked()
	return true
}

// UseHint returns the current question's hint text, once per session.
func (s *QuizSession) UseHint() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.currentLocked()
	if !ok || s.state != StateActive || s.lifelines.Hint || q.Hint == "" {
		return "", false
	}
	s.lifelines.Hint = true
	s.persistLocked()
	return q.Hint, true
}

// Tick counts the informational timer down one second, clamped at zero. It
// never forces a submission. Ticks after the session leaves the active
// state are ignored, so a dangling interval cannot mutate finished state.
func (s *QuizSession) Tick() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.currentLocked()
	if !ok || s.state != StateActive {
		return 0, false
	}
	if s.timers[q.ID] > 0 {
		s.timers[q.ID]--
		s.persistLocked()
	}
	return s.timers[q.ID], true
}

// HasSavedSession reports whether a valid resumable snapshot exists. For
// date-bound sessions a snapshot from any other day does not count.
func (s *QuizSession) HasSavedSession() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.store.Read()
	if !ok {
		return false
	}
	return s.acceptsLocked(snap)
}

// ResumeIfAvailable rehydrates runtime state from the stored snapshot. The
// staged selection for the current question is recomputed from the recorded
// answers, so a reload mid-question keeps the just-submitted answer
// visible. Returns false, leaving state untouched, when nothing valid is
// stored.
func (s *QuizSession) ResumeIfAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.store.Read()
	if !ok || !s.acceptsLocked(snap) {
		return false
	}

	s.id = snap.SessionID
	s.questions = snap.Questions
	s.currentIndex = snap.CurrentIndex
	s.score = snap.Score
	s.hasSubmitted = snap.HasSubmitted
	s.answers = snap.SelectedAnswers
	s.lifelines = snap.Lifelines
	s.hiddenOptions = snap.HiddenOptions
	if s.hiddenOptions == nil {
		s.hiddenOptions = make(map[string][]int)
	}
	s.timers = snap.Timers
	if s.timers == nil {
		s.timers = make(map[string]int)
	}
	s.usedFallback = snap.UsedFallback
	s.startedAt = snap.StartedAt

	s.selectedIndex = noSelection
	if slot, ok := s.answers[s.questions[s.currentIndex].ID]; ok && slot.IsAnswered() {
		s.selectedIndex = slot.Index
	}
	if s.hasSubmitted {
		s.state = StateSubmitted
	} else {
		s.state = StateActive
	}
	s.armTimerLocked()
	return true
}

// ResetSession discards both runtime state and the stored snapshot.
func (s *QuizSession) ResetSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.store.Clear()
}

// ClearSession discards only the snapshot. Called after a completed attempt
// is recorded so a resume prompt never reappears for a finished quiz.
func (s *QuizSession) ClearSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Clear()
}

// Complete marks the session finished, clears its snapshot, and returns the
// aggregate stats. Durations come from the view collaborator's per-question
// timestamps.
func (s *QuizSession) Complete(durations []int64) domain.RoundStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateCompleted
	s.store.Clear()
	return s.statsLocked(durations)
}

// Stats derives the aggregate without changing state.
func (s *QuizSession) Stats(durations []int64) domain.RoundStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked(durations)
}

func (s *QuizSession) statsLocked(durations []int64) domain.RoundStats {
	stats := domain.RoundStats{}
	for _, q := range s.questions {
		slot, ok := s.answers[q.ID]
		if !ok {
			continue
		}
		switch {
		case slot.IsSkipped():
			stats.Skipped++
		case slot.Index == q.CorrectOption:
			stats.Correct++
		default:
			stats.Wrong++
		}
	}
	for _, d := range durations {
		if d >= 0 {
			stats.Durations = append(stats.Durations, d)
		}
	}
	return stats
}

// Accessors. Each takes the lock so transports can call them from their own
// goroutines.

func (s *QuizSession) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *QuizSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *QuizSession) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

func (s *QuizSession) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentIndex
}

func (s *QuizSession) QuestionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.questions)
}

func (s *QuizSession) Questions() []domain.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Question(nil), s.questions...)
}

func (s *QuizSession) CurrentQuestion() (domain.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked()
}

func (s *QuizSession) SelectedIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedIndex
}

func (s *QuizSession) HasSubmitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasSubmitted
}

func (s *QuizSession) Lifelines() domain.Lifelines {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lifelines
}

func (s *QuizSession) RemainingSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.currentLocked()
	if !ok {
		return 0
	}
	return s.timers[q.ID]
}

// UsedFallback reports whether the question source failed and the embedded
// pack was used instead; views surface this as a soft notice.
func (s *QuizSession) UsedFallback() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usedFallback
}

func (s *QuizSession) Category() string {
	return s.cfg.Category
}

func (s *QuizSession) currentLocked() (domain.Question, bool) {
	if s.state == StateEmpty || s.state == StateCompleted || s.state == StateLoading {
		return domain.Question{}, false
	}
	if s.currentIndex < 0 || s.currentIndex >= len(s.questions) {
		return domain.Question{}, false
	}
	return s.questions[s.currentIndex], true
}

func (s *QuizSession) acceptsLocked(snap sessionSnapshot) bool {
	if s.dateKey != nil && snap.Date != s.dateKey() {
		return false
	}
	return true
}

func (s *QuizSession) resetLocked() {
	s.id = ""
	s.state = StateEmpty
	s.questions = nil
	s.currentIndex = 0
	s.score = 0
	s.selectedIndex = noSelection
	s.hasSubmitted = false
	s.answers = make(map[string]domain.AnswerSlot)
	s.lifelines = domain.Lifelines{}
	s.hiddenOptions = make(map[string][]int)
	s.timers = make(map[string]int)
	s.usedFallback = false
	s.startedAt = time.Time{}
}

func (s *QuizSession) armTimerLocked() {
	q, ok := s.currentLocked()
	if !ok {
		return
	}
	if _, exists := s.timers[q.ID]; !exists {
		s.timers[q.ID] = s.cfg.QuestionSeconds
	}
}

func (s *QuizSession) persistLocked() {
	snap := sessionSnapshot{
		SessionID:       s.id,
		Category:        s.cfg.Category,
		Questions:       s.questions,
		CurrentIndex:    s.currentIndex,
		Score:           s.score,
		HasSubmitted:    s.hasSubmitted,
		SelectedAnswers: s.answers,
		Lifelines:       s.lifelines,
		HiddenOptions:   s.hiddenOptions,
		Timers:          s.timers,
		UsedFallback:    s.usedFallback,
		StartedAt:       s.startedAt,
		UpdatedAt:       s.now(),
	}
	if s.dateKey != nil {
		snap.Date = s.dateKey()
	}
	s.store.Write(snap)
}
