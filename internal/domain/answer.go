package domain

import "encoding/json"

// AnswerKind discriminates the states an answer slot can be in.
type AnswerKind string

const (
	Unanswered AnswerKind = "unanswered"
	Answered   AnswerKind = "answered"
	Skipped    AnswerKind = "skipped"
)

// AnswerSlot is the committed outcome for one question: either an option
// index the user submitted, an explicit skip, or nothing yet.
type AnswerSlot struct {
	Kind  AnswerKind `json:"kind"`
	Index int        `json:"index,omitempty"`
}

// AnswerAt builds a committed answer for an option index.
func AnswerAt(index int) AnswerSlot {
	return AnswerSlot{Kind: Answered, Index: index}
}

// SkippedAnswer builds the skip marker.
func SkippedAnswer() AnswerSlot {
	return AnswerSlot{Kind: Skipped}
}

// IsAnswered reports whether the slot holds a submitted option index.
func (a AnswerSlot) IsAnswered() bool { return a.Kind == Answered }

// IsSkipped reports whether the question was skipped via lifeline.
func (a AnswerSlot) IsSkipped() bool { return a.Kind == Skipped }

// UnmarshalJSON tolerates missing kind by treating a bare index payload as
// answered, so older snapshots that stored `{"index":n}` still decode.
func (a *AnswerSlot) UnmarshalJSON(data []byte) error {
	type alias AnswerSlot
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Kind == "" {
		raw.Kind = Answered
	}
	*a = AnswerSlot(raw)
	return nil
}
