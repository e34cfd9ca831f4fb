package app

import (
	"sync"
	"time"

	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/snapshot"
	"github.com/google/uuid"
)

const (
	librarySnapshotKey     = "library:custom"
	librarySnapshotVersion = 1
)

// CustomQuiz is an authored quiz stored in the local library. Sharing is a
// collaborator concern; the library only owns shape-valid content.
type CustomQuiz struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Category  string            `json:"category,omitempty"`
	Questions []domain.Question `json:"questions"`
	CreatedAt time.Time         `json:"createdAt"`
}

type librarySnapshot struct {
	Quizzes []CustomQuiz `json:"quizzes"`
}

func validateLibrarySnapshot(s *librarySnapshot) error {
	if s.Quizzes == nil {
		return domain.ErrInvalidQuiz
	}
	for _, quiz := range s.Quizzes {
		if quiz.ID == "" || len(quiz.Questions) == 0 {
			return domain.ErrInvalidQuiz
		}
	}
	return nil
}

// Library stores authored quizzes. Malformed questions are rejected at the
// door so every stored quiz is playable as-is.
type Library struct {
	mu      sync.Mutex
	store   *snapshot.Store[librarySnapshot]
	now     func() time.Time
	quizzes []CustomQuiz
}

func NewLibrary(kv snapshot.KV, clock func() time.Time) *Library {
	if clock == nil {
		clock = time.Now
	}
	l := &Library{
		store: snapshot.New(kv, librarySnapshotKey, librarySnapshotVersion, validateLibrarySnapshot),
		now:   clock,
	}
	if snap, ok := l.store.Read(); ok {
		l.quizzes = snap.Quizzes
	}
	return l
}

// Add validates and stores a new quiz, returning it with its generated id.
func (l *Library) Add(title, category string, qs []domain.Question) (CustomQuiz, error) {
	if title == "" || len(qs) == 0 {
		return CustomQuiz{}, domain.ErrInvalidQuiz
	}
	ids := make(map[string]bool, len(qs))
	for _, q := range qs {
		if !q.Valid() || ids[q.ID] {
			return CustomQuiz{}, domain.ErrInvalidQuiz
		}
		ids[q.ID] = true
	}

	quiz := CustomQuiz{
		ID:        uuid.NewString(),
		Title:     title,
		Category:  category,
		Questions: append([]domain.Question(nil), qs...),
		CreatedAt: l.now(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.quizzes = append(l.quizzes, quiz)
	l.persistLocked()
	return quiz, nil
}

// Get returns a stored quiz by id.
func (l *Library) Get(id string) (CustomQuiz, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, quiz := range l.quizzes {
		if quiz.ID == id {
			return quiz, true
		}
	}
	return CustomQuiz{}, false
}

// Remove deletes a quiz by id, reporting whether it existed.
func (l *Library) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, quiz := range l.quizzes {
		if quiz.ID == id {
			l.quizzes = append(l.quizzes[:i], l.quizzes[i+1:]...)
			l.persistLocked()
			return true
		}
	}
	return false
}

// List returns all stored quizzes, oldest first.
func (l *Library) List() []CustomQuiz {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]CustomQuiz(nil), l.quizzes...)
}

func (l *Library) persistLocked() {
	quizzes := l.quizzes
	if quizzes == nil {
		quizzes = []CustomQuiz{}
	}
	l.store.Write(librarySnapshot{Quizzes: quizzes})
}
