package http

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"quizmaster-service/internal/app"
	"quizmaster-service/internal/domain"
	"github.com/gorilla/websocket"
)

// SessionFactory hands the transport the machine for a mode and category.
// Machines own fixed storage keys, so there is at most one live attempt per
// mode; the factory is how the composition root keeps that ownership.
type SessionFactory interface {
	Quiz(category string) *app.QuizSession
	Daily(category string) *app.DailySession
}

// Rewards groups the completion-path collaborators the handler feeds.
type Rewards struct {
	Ledger  *app.Ledger
	Unlocks *app.UnlockEvaluator
	Board   *app.Scoreboard
}

// PlayHandler drives a quiz or daily session over a websocket. The socket
// is a thin view: every rule lives in the session machine, and the handler
// only translates messages and tracks per-question durations.
type PlayHandler struct {
	sessions SessionFactory
	rewards  Rewards
	now      func() time.Time
	upgrader websocket.Upgrader
}

func NewPlayHandler(sessions SessionFactory, rewards Rewards, clock func() time.Time) *PlayHandler {
	if clock == nil {
		clock = time.Now
	}
	return &PlayHandler{
		sessions: sessions,
		rewards:  rewards,
		now:      clock,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Index int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type questionPayload struct {
	Index        int      `json:"index"`
	Total        int      `json:"total"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	Remaining    int      `json:"remaining"`
	UsedFallback bool     `json:"usedFallback,omitempty"`
}

type resultPayload struct {
	Correct       bool   `json:"correct"`
	CorrectOption int    `json:"correctOption"`
	Explanation   string `json:"explanation,omitempty"`
	Score         int    `json:"score"`
}

type completedPayload struct {
	Stats      domain.RoundStats `json:"stats"`
	Coins      int               `json:"coins"`
	Balance    int               `json:"balance"`
	NewUnlocks []string          `json:"newUnlocks,omitempty"`
	Streak     int               `json:"streak,omitempty"`
	NewBadges  []string          `json:"newBadges,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS runs one play session per connection. Query params: mode
// (quiz|daily), category, resume=1 to continue a saved attempt.
func (h *PlayHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "quiz"
	}
	category := r.URL.Query().Get("category")
	wantResume := r.URL.Query().Get("resume") == "1"

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	var daily *app.DailySession
	var machine *app.QuizSession
	switch mode {
	case "daily":
		daily = h.sessions.Daily(category)
		machine = daily.QuizSession
	default:
		mode = "quiz"
		machine = h.sessions.Quiz(category)
	}

	send := make(chan any, 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	resumed := wantResume && machine.ResumeIfAvailable()
	if !resumed {
		if err := machine.Start(r.Context()); err != nil {
			send <- outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			close(send)
			<-writerDone
			return
		}
	}
	send <- h.questionMessage(machine)

	var durations []int64
	questionShownAt := h.now()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "invalid select payload"}}
				continue
			}
			machine.SelectOption(payload.Index)

		case "submit":
			if machine.HasSubmitted() {
				send <- outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "already submitted"}}
				continue
			}
			correct := machine.SubmitAnswer()
			if !machine.HasSubmitted() {
				send <- outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "select an option first"}}
				continue
			}
			durations = append(durations, h.now().Sub(questionShownAt).Milliseconds())
			send <- h.resultMessage(machine, correct)

		case "next":
			if machine.NextQuestion() {
				questionShownAt = h.now()
				send <- h.questionMessage(machine)
				continue
			}
			if !machine.HasSubmitted() {
				send <- outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "submit the current question first"}}
				continue
			}
			send <- h.completeMessage(mode, machine, daily, durations)

		case "fiftyfifty":
			hidden, ok := machine.UseFiftyFifty()
			if !ok {
				send <- outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "fifty-fifty not available"}}
				continue
			}
			send <- outboundMessage[map[string][]int]{Type: "hidden", Payload: map[string][]int{"hidden": hidden}}

		case "skip":
			if !machine.UseSkip() {
				send <- outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "skip not available"}}
				continue
			}
			durations = append(durations, h.now().Sub(questionShownAt).Milliseconds())
			// View-level convenience: a skip chains straight into advance.
			if machine.NextQuestion() {
				questionShownAt = h.now()
				send <- h.questionMessage(machine)
			} else {
				send <- h.completeMessage(mode, machine, daily, durations)
			}

		case "extratime":
			if !machine.UseExtraTime() {
				send <- outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "extra time not available"}}
				continue
			}
			send <- outboundMessage[map[string]int]{Type: "remaining", Payload: map[string]int{"remaining": machine.RemainingSeconds()}}

		case "hint":
			text, ok := machine.UseHint()
			if !ok {
				send <- outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "hint not available"}}
				continue
			}
			send <- outboundMessage[map[string]string]{Type: "hint", Payload: map[string]string{"text": text}}

		default:
			send <- outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(send)
	<-writerDone
}

func (h *PlayHandler) questionMessage(machine *app.QuizSession) any {
	q, ok := machine.CurrentQuestion()
	if !ok {
		return outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "no current question"}}
	}
	return outboundMessage[questionPayload]{Type: "question", Payload: questionPayload{
		Index:        machine.CurrentIndex(),
		Total:        machine.QuestionCount(),
		Text:         q.Text,
		Options:      q.Options,
		Remaining:    machine.RemainingSeconds(),
		UsedFallback: machine.UsedFallback(),
	}}
}

func (h *PlayHandler) resultMessage(machine *app.QuizSession, correct bool) any {
	q, _ := machine.CurrentQuestion()
	return outboundMessage[resultPayload]{Type: "result", Payload: resultPayload{
		Correct:       correct,
		CorrectOption: q.CorrectOption,
		Explanation:   q.Explanation,
		Score:         machine.Score(),
	}}
}

func (h *PlayHandler) completeMessage(mode string, machine *app.QuizSession, daily *app.DailySession, durations []int64) any {
	payload := completedPayload{}

	if daily != nil {
		result := daily.CompleteDaily(durations)
		payload.Stats = result.Stats
		payload.Coins = result.CoinsAwarded
		payload.Streak = result.Streak
		payload.NewBadges = result.NewBadges
	} else {
		sessionID := machine.ID()
		total := machine.QuestionCount()
		stats := machine.Complete(durations)
		payload.Stats = stats

		coins := stats.Correct * 5
		if coins > 0 {
			if applied, err := h.rewards.Ledger.Add(coins, domain.ReasonQuizReward, "quiz::"+sessionID, nil); err == nil && applied {
				payload.Coins = coins
			}
		}
		payload.NewUnlocks = h.rewards.Unlocks.EvaluateFromScore(machine.Category(), stats.AccuracyPercent(), mode)
		h.rewards.Board.Record(app.ScoreboardEntry{
			Mode:     mode,
			Category: machine.Category(),
			Score:    stats.Correct,
			Total:    total,
			Accuracy: stats.AccuracyPercent(),
		})
	}

	payload.Balance = h.rewards.Ledger.Balance()
	return outboundMessage[completedPayload]{Type: "completed", Payload: payload}
}
