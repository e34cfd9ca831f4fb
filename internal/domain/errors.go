package domain

import "errors"

var (
	// ErrNoQuestions indicates a question source returned an empty or unusable set.
	ErrNoQuestions = errors.New("no questions available")
	// ErrPackNotFound indicates the requested category has no stored pack.
	ErrPackNotFound = errors.New("question pack not found")
	// ErrInsufficientBalance is returned when a spend exceeds the coin balance.
	ErrInsufficientBalance = errors.New("insufficient coin balance")
	// ErrMissingAwardID rejects ledger writes that carry no idempotency key.
	ErrMissingAwardID = errors.New("award id required")
	// ErrInvalidQuiz rejects custom quizzes whose questions fail shape checks.
	ErrInvalidQuiz = errors.New("invalid custom quiz")
)
