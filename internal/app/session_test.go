package app_test

import (
	"context"
	"testing"
	"time"

	"quizmaster-service/internal/app"
	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/infra/memory"
	"quizmaster-service/internal/questions"
)

func newTestSession(kv *memory.Storage) *app.QuizSession {
	resolver := questions.NewResolver(nil, time.Second)
	return app.NewQuizSession(kv, resolver, nil, app.SessionConfig{
		Category:      "gk",
		QuestionCount: 3,
	})
}

func answerCorrectly(t *testing.T, s *app.QuizSession) bool {
	t.Helper()
	q, ok := s.CurrentQuestion()
	if !ok {
		t.Fatalf("expected a current question")
	}
	if !s.SelectOption(q.CorrectOption) {
		t.Fatalf("select failed for question %s", q.ID)
	}
	if !s.SubmitAnswer() {
		t.Fatalf("expected correct submission for question %s", q.ID)
	}
	return s.NextQuestion()
}

func TestFreshQuizEndToEnd(t *testing.T) {
	kv := memory.NewStorage()
	s := newTestSession(kv)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !s.UsedFallback() {
		t.Fatalf("nil source must resolve to the fallback pack")
	}
	if s.QuestionCount() != 3 {
		t.Fatalf("expected 3 questions, got %d", s.QuestionCount())
	}

	for i := 0; i < 2; i++ {
		if !answerCorrectly(t, s) {
			t.Fatalf("expected more questions after %d", i)
		}
	}
	// Last question: next must return false, the caller owns completion.
	if answerCorrectly(t, s) {
		t.Fatalf("next on the last question must return false")
	}
	if s.Score() != 3 {
		t.Fatalf("expected score 3, got %d", s.Score())
	}

	stats := s.Complete([]int64{1200, 900, 2100})
	if stats.Correct != 3 || stats.Wrong != 0 || stats.Skipped != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if s.HasSavedSession() {
		t.Fatalf("snapshot must be cleared after completion")
	}
}

func TestSnapshotRoundTripResume(t *testing.T) {
	kv := memory.NewStorage()
	first := newTestSession(kv)

	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	q, _ := first.CurrentQuestion()
	first.SelectOption(q.CorrectOption)
	first.SubmitAnswer()

	// Simulate a reload: a fresh machine over the same storage.
	second := newTestSession(kv)
	if !second.HasSavedSession() {
		t.Fatalf("expected a saved session")
	}
	if !second.ResumeIfAvailable() {
		t.Fatalf("resume failed")
	}
	if second.CurrentIndex() != 0 {
		t.Fatalf("expected currentIndex 0, got %d", second.CurrentIndex())
	}
	if !second.HasSubmitted() {
		t.Fatalf("submitted flag lost on resume")
	}
	if second.SelectedIndex() != q.CorrectOption {
		t.Fatalf("selected index not recomputed from answers: got %d want %d", second.SelectedIndex(), q.CorrectOption)
	}
	if second.Score() != 1 {
		t.Fatalf("expected score 1, got %d", second.Score())
	}
}

func TestUnsupportedVersionIsNotResumed(t *testing.T) {
	kv := memory.NewStorage()
	_ = kv.Set("quiz:session", []byte(`{"version":999,"sessionId":"x","questions":[{"id":"q1","text":"T","options":["a","b"],"correctOption":0}],"currentIndex":0,"selectedAnswers":{}}`))

	s := newTestSession(kv)
	if s.HasSavedSession() {
		t.Fatalf("unsupported version must not count as saved")
	}
	if s.ResumeIfAvailable() {
		t.Fatalf("unsupported version must not resume")
	}
	if s.State() != app.StateEmpty {
		t.Fatalf("expected empty state, got %s", s.State())
	}
}

func TestLegacySnapshotFieldNamesAccepted(t *testing.T) {
	kv := memory.NewStorage()
	legacy := `{"version":1,"sessionId":"legacy","category":"gk",` +
		`"questions":[{"id":"q1","text":"T","options":["a","b"],"correctOption":1}],` +
		`"index":0,"score":1,"hasSubmitted":true,` +
		`"answers":{"q1":{"kind":"answered","index":1}},` +
		`"lifelines":{"fiftyFifty":false,"skip":false,"extraTime":false,"hint":false}}`
	_ = kv.Set("quiz:session", []byte(legacy))

	s := newTestSession(kv)
	if !s.ResumeIfAvailable() {
		t.Fatalf("legacy snapshot must resume after normalization")
	}
	if s.CurrentIndex() != 0 || s.Score() != 1 {
		t.Fatalf("legacy fields not mapped: index=%d score=%d", s.CurrentIndex(), s.Score())
	}
	if s.SelectedIndex() != 1 {
		t.Fatalf("expected selected index 1 from legacy answers, got %d", s.SelectedIndex())
	}
}

func TestSubmitRequiresSelection(t *testing.T) {
	s := newTestSession(memory.NewStorage())
	_ = s.Start(context.Background())

	if s.SubmitAnswer() {
		t.Fatalf("submit with no selection must report not-correct")
	}
	if s.HasSubmitted() {
		t.Fatalf("submit with no selection must be a no-op")
	}
	if s.NextQuestion() {
		t.Fatalf("next before submit must be a no-op")
	}

	q, _ := s.CurrentQuestion()
	if s.SelectOption(len(q.Options)) {
		t.Fatalf("out of range selection must be rejected")
	}

	s.SelectOption(q.CorrectOption)
	s.SubmitAnswer()
	if s.SelectOption(0) {
		t.Fatalf("selection after submit must be a no-op")
	}
}

func TestFiftyFiftyIdempotentAndSafe(t *testing.T) {
	s := newTestSession(memory.NewStorage())
	_ = s.Start(context.Background())
	q, _ := s.CurrentQuestion()

	hidden, ok := s.UseFiftyFifty()
	if !ok || len(hidden) != 2 {
		t.Fatalf("expected two hidden options, got %v ok=%v", hidden, ok)
	}
	for _, idx := range hidden {
		if idx == q.CorrectOption {
			t.Fatalf("fifty-fifty hid the correct option")
		}
	}

	again, ok := s.UseFiftyFifty()
	if !ok {
		t.Fatalf("repeat call on same question must return the stored set")
	}
	if len(again) != 2 || again[0] != hidden[0] || again[1] != hidden[1] {
		t.Fatalf("repeat call re-randomized: %v vs %v", again, hidden)
	}
	if !s.Lifelines().FiftyFifty {
		t.Fatalf("lifeline flag not set")
	}

	// Used up: the next question gets nothing.
	s.SelectOption(q.CorrectOption)
	s.SubmitAnswer()
	s.NextQuestion()
	if _, ok := s.UseFiftyFifty(); ok {
		t.Fatalf("fifty-fifty must be once per session")
	}
}

func TestFiftyFiftyAvoidsSelectionBestEffort(t *testing.T) {
	s := newTestSession(memory.NewStorage())
	_ = s.Start(context.Background())
	q, _ := s.CurrentQuestion()

	// Select a wrong option; with 4 options there are 2 other wrong ones,
	// so the selection must survive.
	wrong := (q.CorrectOption + 1) % len(q.Options)
	s.SelectOption(wrong)

	hidden, ok := s.UseFiftyFifty()
	if !ok {
		t.Fatalf("expected fifty-fifty to apply")
	}
	if len(q.Options) >= 4 {
		for _, idx := range hidden {
			if idx == wrong {
				t.Fatalf("selected option hidden despite enough alternatives")
			}
		}
	}
}

func TestSkipRecordsWithoutScoring(t *testing.T) {
	s := newTestSession(memory.NewStorage())
	_ = s.Start(context.Background())

	if !s.UseSkip() {
		t.Fatalf("skip failed")
	}
	if !s.HasSubmitted() {
		t.Fatalf("skip must mark the question submitted")
	}
	if s.Score() != 0 {
		t.Fatalf("skip must not score")
	}
	s.NextQuestion()
	if s.UseSkip() {
		t.Fatalf("skip must be once per session")
	}

	stats := s.Stats(nil)
	if stats.Skipped != 1 {
		t.Fatalf("expected one skipped in stats, got %+v", stats)
	}
}

func TestTimerIsInformational(t *testing.T) {
	kv := memory.NewStorage()
	resolver := questions.NewResolver(nil, time.Second)
	s := app.NewQuizSession(kv, resolver, nil, app.SessionConfig{
		Category:        "gk",
		QuestionCount:   1,
		QuestionSeconds: 2,
		ExtraTimeBonus:  10,
	})
	_ = s.Start(context.Background())

	if s.RemainingSeconds() != 2 {
		t.Fatalf("expected 2 seconds, got %d", s.RemainingSeconds())
	}
	s.Tick()
	s.Tick()
	if remaining, _ := s.Tick(); remaining != 0 {
		t.Fatalf("timer must clamp at zero, got %d", remaining)
	}
	// Running out of time forces nothing.
	if s.HasSubmitted() {
		t.Fatalf("timer expiry must not submit")
	}

	if !s.UseExtraTime() {
		t.Fatalf("extra time failed")
	}
	if s.RemainingSeconds() != 10 {
		t.Fatalf("expected bonus applied, got %d", s.RemainingSeconds())
	}
	if s.UseExtraTime() {
		t.Fatalf("extra time must be once per session")
	}

	q, _ := s.CurrentQuestion()
	s.SelectOption(q.CorrectOption)
	s.SubmitAnswer()
	if _, ok := s.Tick(); ok {
		t.Fatalf("ticks after leaving the active state must be ignored")
	}
}

func TestHintOncePerSession(t *testing.T) {
	s := newTestSession(memory.NewStorage())
	_ = s.Start(context.Background())

	// The gk fallback pack carries hints on every question.
	text, ok := s.UseHint()
	if !ok || text == "" {
		t.Fatalf("expected hint text, got %q ok=%v", text, ok)
	}
	if _, ok := s.UseHint(); ok {
		t.Fatalf("hint must be once per session")
	}
}

func TestLifelinesRefusedAfterSubmit(t *testing.T) {
	s := newTestSession(memory.NewStorage())
	_ = s.Start(context.Background())

	q, _ := s.CurrentQuestion()
	s.SelectOption(q.CorrectOption)
	if !s.SubmitAnswer() {
		t.Fatalf("submit failed")
	}

	if _, ok := s.UseFiftyFifty(); ok {
		t.Fatalf("fifty-fifty applied on a submitted question")
	}
	if s.UseExtraTime() {
		t.Fatalf("extra time applied on a submitted question")
	}
	if _, ok := s.UseHint(); ok {
		t.Fatalf("hint applied on a submitted question")
	}

	// A refused lifeline is not consumed; it works on the next question.
	if !s.NextQuestion() {
		t.Fatalf("expected a next question")
	}
	if _, ok := s.UseHint(); !ok {
		t.Fatalf("hint must still be available on an open question")
	}
}

func TestResetAndClear(t *testing.T) {
	kv := memory.NewStorage()
	s := newTestSession(kv)
	_ = s.Start(context.Background())

	s.ResetSession()
	if s.State() != app.StateEmpty {
		t.Fatalf("reset must return to empty, got %s", s.State())
	}
	if s.HasSavedSession() {
		t.Fatalf("reset must drop the snapshot")
	}

	_ = s.Start(context.Background())
	s.ClearSession()
	if s.HasSavedSession() {
		t.Fatalf("clear must drop the snapshot")
	}
	if s.State() != app.StateActive {
		t.Fatalf("clear must leave runtime state alone, got %s", s.State())
	}
}

func TestStartWithQuestionsRejectsUnusableSet(t *testing.T) {
	s := newTestSession(memory.NewStorage())

	err := s.StartWithQuestions([]domain.Question{
		{ID: "", Text: "no id", Options: []string{"a", "b"}, CorrectOption: 0},
	})
	if err == nil {
		t.Fatalf("expected error for a set with no valid question")
	}
}
