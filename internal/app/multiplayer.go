package app

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/selector"
	"github.com/google/uuid"
)

// Multiplayer demo mode: locally simulated rooms where scripted bot
// opponents play the same questions as the user. Nothing here leaves the
// process; the transport is whatever view subscribes to the room.

// RoomPlayer is one scoreboard row in a room.
type RoomPlayer struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
	Bot         bool   `json:"bot"`
}

// RoomLeaderboard is the ordered standings snapshot broadcast to
// subscribers.
type RoomLeaderboard struct {
	RoomCode  string       `json:"roomCode"`
	Entries   []RoomPlayer `json:"entries"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

type roomPlayer struct {
	RoomPlayer
	lastUpdated time.Time
}

// Room hosts one demo match. Bot answers are a pure function of the room
// code, bot id, and question id, so reconnecting replays identical
// opponents.
type Room struct {
	code      string
	createdAt time.Time
	now       func() time.Time
	questions []domain.Question
	botSkill  int // 0..10 chance out of ten that a bot answers correctly

	mu          sync.RWMutex
	players     map[string]*roomPlayer
	subscribers map[chan RoomLeaderboard]struct{}
}

const defaultBotSkill = 6

func newRoom(code string, questions []domain.Question, clock func() time.Time) *Room {
	r := &Room{
		code:        code,
		createdAt:   clock(),
		now:         clock,
		questions:   questions,
		botSkill:    defaultBotSkill,
		players:     make(map[string]*roomPlayer),
		subscribers: make(map[chan RoomLeaderboard]struct{}),
	}
	for i, name := range []string{"Nova", "Pixel", "Quark"} {
		id := "bot-" + strconv.Itoa(i+1)
		r.players[id] = &roomPlayer{
			RoomPlayer:  RoomPlayer{PlayerID: id, DisplayName: name, Bot: true},
			lastUpdated: r.createdAt,
		}
	}
	return r
}

func (r *Room) Code() string { return r.code }

// Questions returns the room's shared question order.
func (r *Room) Questions() []domain.Question {
	return append([]domain.Question(nil), r.questions...)
}

// Join registers or refreshes a human player and broadcasts standings.
func (r *Room) Join(playerID, displayName string) RoomLeaderboard {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if p, ok := r.players[playerID]; ok {
		p.DisplayName = displayName
		p.lastUpdated = now
	} else {
		r.players[playerID] = &roomPlayer{
			RoomPlayer:  RoomPlayer{PlayerID: playerID, DisplayName: displayName},
			lastUpdated: now,
		}
	}
	return r.broadcastLocked()
}

// SubmitAnswer scores the player's answer for a question, plays every bot's
// deterministic turn for the same question, and broadcasts. Unknown players
// and out-of-range questions are no-ops.
func (r *Room) SubmitAnswer(playerID string, questionIndex, optionIndex int) (bool, RoomLeaderboard, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	player, ok := r.players[playerID]
	if !ok || player.Bot || questionIndex < 0 || questionIndex >= len(r.questions) {
		return false, RoomLeaderboard{}, false
	}
	q := r.questions[questionIndex]
	now := r.now()

	correct := optionIndex == q.CorrectOption
	if correct {
		player.Score++
	}
	player.lastUpdated = now

	for id, p := range r.players {
		if !p.Bot {
			continue
		}
		draw, _ := selector.Pick(selector.Seed(r.code, id, q.ID), []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
		if draw < r.botSkill {
			p.Score++
		}
		p.lastUpdated = now
	}

	return correct, r.broadcastLocked(), true
}

// Leave removes a human player.
func (r *Room) Leave(playerID string) RoomLeaderboard {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.players[playerID]; ok && !p.Bot {
		delete(r.players, playerID)
	}
	return r.broadcastLocked()
}

// IsEmpty reports whether no human players remain.
func (r *Room) IsEmpty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.players {
		if !p.Bot {
			return false
		}
	}
	return true
}

// Subscribe returns a channel receiving standings updates. The caller must
// invoke the cancel function to avoid leaks.
func (r *Room) Subscribe() (<-chan RoomLeaderboard, func()) {
	ch := make(chan RoomLeaderboard, 8)

	r.mu.Lock()
	r.subscribers[ch] = struct{}{}
	initial := r.standingsLocked()
	r.mu.Unlock()

	ch <- initial

	cancel := func() {
		r.mu.Lock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
		r.mu.Unlock()
	}
	return ch, cancel
}

func (r *Room) broadcastLocked() RoomLeaderboard {
	lb := r.standingsLocked()
	for ch := range r.subscribers {
		select {
		case ch <- lb:
		default:
			// Drop the stale update so a slow subscriber cannot block.
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
	return lb
}

func (r *Room) standingsLocked() RoomLeaderboard {
	entries := make([]RoomPlayer, 0, len(r.players))
	for _, p := range r.players {
		entries = append(entries, p.RoomPlayer)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		// Tie-break by who reached the score earlier, then name.
		pi := r.players[entries[i].PlayerID]
		pj := r.players[entries[j].PlayerID]
		if pi != nil && pj != nil && !pi.lastUpdated.Equal(pj.lastUpdated) {
			return pi.lastUpdated.Before(pj.lastUpdated)
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})
	return RoomLeaderboard{
		RoomCode:  r.code,
		Entries:   entries,
		UpdatedAt: r.now(),
	}
}

// RoomManager owns the live demo rooms.
type RoomManager struct {
	now    func() time.Time
	ledger *Ledger

	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRoomManager(clock func() time.Time, ledger *Ledger) *RoomManager {
	if clock == nil {
		clock = time.Now
	}
	return &RoomManager{now: clock, ledger: ledger, rooms: make(map[string]*Room)}
}

// CreateRoom opens a room over a question set, with a short shareable code.
// The room code doubles as the selection seed for the shared question
// order, so the pool must be pre-selected by the caller using that code.
func (m *RoomManager) CreateRoom(pool []domain.Question, count int) *Room {
	code := roomCode()
	shared := selector.Select(code, pool, count)
	room := newRoom(code, shared, m.now)

	m.mu.Lock()
	m.rooms[code] = room
	m.mu.Unlock()
	return room
}

func (m *RoomManager) Get(code string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[strings.ToUpper(code)]
	return room, ok
}

// DeleteIfEmpty drops a room once its last human player left.
func (m *RoomManager) DeleteIfEmpty(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[code]
	if !ok {
		return
	}
	if room.IsEmpty() {
		delete(m.rooms, code)
	}
}

// AwardMatch grants the match reward under a room-and-player keyed id, so
// replaying or re-entering a finished room never double-pays.
func (m *RoomManager) AwardMatch(code, playerID string, score int) int {
	if score <= 0 {
		return 0
	}
	coins := score * 5
	applied, err := m.ledger.Add(coins, domain.ReasonMultiplayer, selector.Seed("room", code, playerID), map[string]string{
		"room": code,
	})
	if err != nil || !applied {
		return 0
	}
	return coins
}

// roomCode derives a 6-character join code from a fresh uuid. Codes are
// opaque identifiers; question determinism comes from using the final code
// as a seed, not from the uuid's randomness.
func roomCode() string {
	id := uuid.NewString()
	return strings.ToUpper(strings.ReplaceAll(id, "-", "")[:6])
}
