package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MinPlayers is the smallest roster a session can start with.
const MinPlayers = 2

const (
	DefaultMaxPlayers = 8
	DefaultMaxGuesses = 6
)

// NewRoom allocates a room with the caller as sole player and leader.
// The code is assigned by the registry, which owns uniqueness.
func NewRoom(leaderName string, passwordHash []byte, s Settings) *Room {
	if s.MaxPlayers <= 0 {
		s.MaxPlayers = DefaultMaxPlayers
	}
	if s.MaxGuesses <= 0 {
		s.MaxGuesses = DefaultMaxGuesses
	}
	now := time.Now()
	leader := &Player{
		ID:       uuid.NewString(),
		Name:     leaderName,
		Leader:   true,
		Status:   PlayerWaiting,
		JoinedAt: now,
	}
	return &Room{
		ID:           uuid.NewString(),
		Players:      []*Player{leader},
		Status:       RoomWaiting,
		CreatedAt:    now,
		Settings:     s,
		PasswordHash: passwordHash,
	}
}

// FindPlayer returns the roster entry with the given id, or nil.
func (r *Room) FindPlayer(playerID string) *Player {
	for _, p := range r.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// AddPlayer validates and appends a new player to the roster.
// All checks run before any mutation.
func (r *Room) AddPlayer(name, password string) (*Player, error) {
	if r.Private() {
		if err := bcrypt.CompareHashAndPassword(r.PasswordHash, []byte(password)); err != nil {
			return nil, ErrInvalidPassword
		}
	}
	if len(r.Players) >= r.Settings.MaxPlayers {
		return nil, ErrRoomFull
	}
	for _, p := range r.Players {
		if p.Name == name { // exact, case-sensitive
			return nil, ErrDuplicateName
		}
	}
	p := &Player{
		ID:       uuid.NewString(),
		Name:     name,
		Status:   PlayerWaiting,
		JoinedAt: time.Now(),
	}
	r.Players = append(r.Players, p)
	return p, nil
}

// RemovePlayer takes a player off the roster and reports whether the
// room must be destroyed. An empty roster or a departing leader both
// destroy the room; leadership is never transferred.
func (r *Room) RemovePlayer(playerID string) (removed *Player, destroyed bool, reason DestroyReason) {
	idx := -1
	for i, p := range r.Players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false, ""
	}
	removed = r.Players[idx]
	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)

	if len(r.Players) == 0 {
		return removed, true, DestroyEmpty
	}
	if removed.Leader {
		return removed, true, DestroyLeaderLeft
	}
	return removed, false, ""
}

// StartSession begins a new round: draws a target, snapshots the
// roster, and moves everyone to playing.
func (r *Room) StartSession(requesterID string, dict Dictionary) (*Session, error) {
	p := r.FindPlayer(requesterID)
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	if !p.Leader {
		return nil, ErrNotLeader
	}
	if len(r.Players) < MinPlayers {
		return nil, ErrInsufficientPlayers
	}
	target := dict.RandomTarget()
	if target == "" {
		return nil, fmt.Errorf("draw target word: dictionary is empty")
	}

	now := time.Now()
	s := &Session{
		ID:        uuid.NewString(),
		Target:    target,
		Status:    RoomPlaying,
		StartedAt: now,
		TimeLimit: r.Settings.TimeLimit,
		Players:   append([]*Player(nil), r.Players...),
	}
	for _, pl := range r.Players {
		pl.Status = PlayerPlaying
		pl.Guesses = nil
		pl.FinishedAt = time.Time{}
	}
	r.Session = s
	r.Status = RoomPlaying
	return s, nil
}

// ResetSession replaces the session with a fresh one and returns every
// roster player to waiting. The leader must issue a new start to play.
func (r *Room) ResetSession(requesterID string, dict Dictionary) (*Session, error) {
	p := r.FindPlayer(requesterID)
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	if !p.Leader {
		return nil, ErrNotLeader
	}
	if r.Session == nil {
		return nil, ErrSessionNotFound
	}
	target := dict.RandomTarget()
	if target == "" {
		return nil, fmt.Errorf("draw target word: dictionary is empty")
	}

	s := &Session{
		ID:        uuid.NewString(),
		Target:    target,
		Status:    RoomWaiting,
		TimeLimit: r.Settings.TimeLimit,
		Players:   append([]*Player(nil), r.Players...),
	}
	for _, pl := range r.Players {
		pl.Status = PlayerWaiting
		pl.Guesses = nil
		pl.FinishedAt = time.Time{}
	}
	r.Session = s
	r.Status = RoomWaiting
	return s, nil
}

// SubmitGuess validates, evaluates and records one guess for a player.
// Validation has no side effect; state changes only on success.
func (r *Room) SubmitGuess(playerID, word string, dict Dictionary) (*Guess, *Player, error) {
	p := r.FindPlayer(playerID)
	if p == nil {
		return nil, nil, ErrPlayerNotFound
	}
	s := r.Session
	if s == nil || s.Status != RoomPlaying {
		return nil, nil, ErrSessionNotFound
	}
	if p.Status != PlayerPlaying {
		return nil, nil, ErrInvalidGuess
	}
	norm := dict.Normalize(word)
	if len(norm) != len(s.Target) || !dict.IsValidGuess(norm) {
		return nil, nil, ErrInvalidGuess
	}

	now := time.Now()
	g := Guess{
		Word:        norm,
		Letters:     EvaluateGuess(norm, s.Target),
		SubmittedAt: now,
	}
	p.Guesses = append(p.Guesses, g)

	if allCorrect(g.Letters) {
		p.Status = PlayerWon
		p.FinishedAt = now
	} else if len(p.Guesses) >= r.Settings.MaxGuesses {
		p.Status = PlayerLost
		p.FinishedAt = now
	}
	return &g, p, nil
}

// EvaluateGuess classifies each guessed letter with the two-pass rule:
// exact positions first, then left-to-right presence against the pool
// of unconsumed target letters. A letter is never marked present more
// times than it occurs, unconsumed, in the target.
func EvaluateGuess(guess, target string) []LetterState {
	n := len(guess)
	res := make([]LetterState, n)

	// Pool of target letters not consumed by an exact match.
	var remaining [26]int
	for i := 0; i < n; i++ {
		if guess[i] == target[i] {
			res[i] = LetterCorrect
		} else {
			res[i] = LetterAbsent
			if j := letterIndex(target[i]); j >= 0 {
				remaining[j]++
			}
		}
	}
	for i := 0; i < n; i++ {
		if res[i] == LetterCorrect {
			continue
		}
		if j := letterIndex(guess[i]); j >= 0 && remaining[j] > 0 {
			res[i] = LetterPresent
			remaining[j]--
		}
	}
	return res
}

func letterIndex(b byte) int {
	if b < 'a' || b > 'z' {
		return -1
	}
	return int(b - 'a')
}

func allCorrect(letters []LetterState) bool {
	for _, l := range letters {
		if l != LetterCorrect {
			return false
		}
	}
	return true
}

// ForceLoss moves a player to lost from any non-terminal status.
// Returns false if the player had already finished.
func ForceLoss(p *Player, now time.Time) bool {
	if p.Status.Terminal() {
		return false
	}
	p.Status = PlayerLost
	p.FinishedAt = now
	return true
}

// ShouldEnd is true once every session participant is terminal.
func ShouldEnd(s *Session) bool {
	for _, p := range s.Players {
		if !p.Status.Terminal() {
			return false
		}
	}
	return true
}

// FinishSession ends the round and computes final rankings. Rankings
// are computed here once and never again.
func (r *Room) FinishSession(now time.Time) {
	s := r.Session
	if s == nil || s.Status == RoomFinished {
		return
	}
	s.Status = RoomFinished
	s.EndedAt = now
	s.Rankings = ComputeRankings(s)
	r.Status = RoomFinished
}

// ComputeRankings orders session participants: winners first, then
// fewer guesses, then lower elapsed time; at equal guesses a finished
// entry outranks an unfinished one. Residual ties keep stable input
// order. Ranks are 1..N with no sharing.
func ComputeRankings(s *Session) []Ranking {
	players := append([]*Player(nil), s.Players...)
	sort.SliceStable(players, func(i, j int) bool {
		a, b := players[i], players[j]
		if aw, bw := a.Status == PlayerWon, b.Status == PlayerWon; aw != bw {
			return aw
		}
		if len(a.Guesses) != len(b.Guesses) {
			return len(a.Guesses) < len(b.Guesses)
		}
		af, bf := !a.FinishedAt.IsZero(), !b.FinishedAt.IsZero()
		if af && bf {
			return a.FinishedAt.Before(b.FinishedAt)
		}
		return af && !bf
	})

	out := make([]Ranking, len(players))
	for i, p := range players {
		rk := Ranking{
			Rank:        i + 1,
			PlayerID:    p.ID,
			Name:        p.Name,
			Won:         p.Status == PlayerWon,
			GuessesUsed: len(p.Guesses),
		}
		if !p.FinishedAt.IsZero() {
			rk.Elapsed = p.FinishedAt.Sub(s.StartedAt)
			rk.Finished = true
		}
		out[i] = rk
	}
	return out
}
