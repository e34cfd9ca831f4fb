package app_test

import (
	"errors"
	"testing"

	"quizmaster-service/internal/app"
	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/infra/memory"
)

func customQuestions() []domain.Question {
	return []domain.Question{
		{ID: "c1", Text: "First?", Options: []string{"a", "b", "c"}, CorrectOption: 0},
		{ID: "c2", Text: "Second?", Options: []string{"x", "y"}, CorrectOption: 1},
	}
}

func TestLibraryAddAndGet(t *testing.T) {
	kv := memory.NewStorage()
	lib := app.NewLibrary(kv, nil)

	quiz, err := lib.Add("My Quiz", "custom", customQuestions())
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if quiz.ID == "" || quiz.CreatedAt.IsZero() {
		t.Fatalf("stored quiz missing id or timestamp: %+v", quiz)
	}

	got, ok := lib.Get(quiz.ID)
	if !ok || got.Title != "My Quiz" || len(got.Questions) != 2 {
		t.Fatalf("get: ok=%v quiz=%+v", ok, got)
	}

	reloaded := app.NewLibrary(kv, nil)
	if len(reloaded.List()) != 1 {
		t.Fatalf("library lost across reload")
	}
}

func TestLibraryRejectsMalformedQuizzes(t *testing.T) {
	lib := app.NewLibrary(memory.NewStorage(), nil)

	cases := []struct {
		name  string
		title string
		qs    []domain.Question
	}{
		{"empty title", "", customQuestions()},
		{"no questions", "T", nil},
		{"bad correct index", "T", []domain.Question{
			{ID: "q1", Text: "?", Options: []string{"a", "b"}, CorrectOption: 2},
		}},
		{"one option", "T", []domain.Question{
			{ID: "q1", Text: "?", Options: []string{"a"}, CorrectOption: 0},
		}},
		{"duplicate ids", "T", []domain.Question{
			{ID: "q1", Text: "?", Options: []string{"a", "b"}, CorrectOption: 0},
			{ID: "q1", Text: "??", Options: []string{"a", "b"}, CorrectOption: 1},
		}},
	}
	for _, tc := range cases {
		if _, err := lib.Add(tc.title, "", tc.qs); !errors.Is(err, domain.ErrInvalidQuiz) {
			t.Fatalf("%s: expected ErrInvalidQuiz, got %v", tc.name, err)
		}
	}
	if len(lib.List()) != 0 {
		t.Fatalf("rejected quizzes must not be stored")
	}
}

func TestLibraryRemove(t *testing.T) {
	kv := memory.NewStorage()
	lib := app.NewLibrary(kv, nil)
	quiz, _ := lib.Add("T", "", customQuestions())

	if !lib.Remove(quiz.ID) {
		t.Fatalf("remove reported missing")
	}
	if lib.Remove(quiz.ID) {
		t.Fatalf("second remove must report missing")
	}
	if _, ok := lib.Get(quiz.ID); ok {
		t.Fatalf("removed quiz still readable")
	}

	// An emptied library stays empty across reload rather than resurrecting.
	reloaded := app.NewLibrary(kv, nil)
	if len(reloaded.List()) != 0 {
		t.Fatalf("removed quiz resurrected on reload")
	}
}
