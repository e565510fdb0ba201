package engine

import (
	"errors"
	"time"
)

var ErrRoomNotFound = errors.New("room not found")
var ErrInvalidPassword = errors.New("invalid password")
var ErrRoomFull = errors.New("room is full")
var ErrDuplicateName = errors.New("name already taken in this room")
var ErrNotLeader = errors.New("only the room leader can do that")
var ErrInsufficientPlayers = errors.New("not enough players to start")
var ErrInvalidGuess = errors.New("invalid guess")
var ErrSessionNotFound = errors.New("no session in progress")
var ErrPlayerNotFound = errors.New("player not found")

type PlayerStatus string

const (
	PlayerWaiting PlayerStatus = "waiting"
	PlayerPlaying PlayerStatus = "playing"
	PlayerWon     PlayerStatus = "won"
	PlayerLost    PlayerStatus = "lost"
)

// Terminal reports whether the status is one a player never leaves
// within a session.
func (s PlayerStatus) Terminal() bool {
	return s == PlayerWon || s == PlayerLost
}

type RoomStatus string

const (
	RoomWaiting  RoomStatus = "waiting"
	RoomPlaying  RoomStatus = "playing"
	RoomFinished RoomStatus = "finished"
)

// LetterState classifies one guessed letter against the target.
type LetterState string

const (
	LetterCorrect LetterState = "correct"
	LetterPresent LetterState = "present"
	LetterAbsent  LetterState = "absent"
)

type DestroyReason string

const (
	DestroyEmpty      DestroyReason = "empty"
	DestroyLeaderLeft DestroyReason = "leaderLeft"
)

// Dictionary is the word-corpus collaborator. The engine has no other
// contact with word storage or accent handling.
type Dictionary interface {
	Normalize(word string) string
	IsValidGuess(word string) bool
	RandomTarget() string
}

// Guess is immutable once recorded.
type Guess struct {
	Word        string
	Letters     []LetterState
	SubmittedAt time.Time
}

type Player struct {
	ID         string
	Name       string
	Leader     bool
	Status     PlayerStatus
	Guesses    []Guess
	JoinedAt   time.Time
	FinishedAt time.Time // zero until a terminal transition
}

// Session is one guessing round. It is replaced wholesale on start and
// reset, never mutated in place across rounds.
type Session struct {
	ID        string
	Target    string
	Status    RoomStatus
	StartedAt time.Time
	EndedAt   time.Time
	TimeLimit time.Duration // zero means unlimited
	Players   []*Player     // roster snapshot taken at start
	Rankings  []Ranking     // populated once, when the session ends
}

type Settings struct {
	MaxPlayers int
	MaxGuesses int
	TimeLimit  time.Duration
}

type Room struct {
	ID           string
	Code         string
	Players      []*Player // insertion order = join order
	Session      *Session
	Status       RoomStatus
	CreatedAt    time.Time
	Settings     Settings
	PasswordHash []byte // empty for public rooms
}

// Private reports whether joining requires a password.
func (r *Room) Private() bool { return len(r.PasswordHash) > 0 }

type Ranking struct {
	Rank        int
	PlayerID    string
	Name        string
	Won         bool
	GuessesUsed int
	Elapsed     time.Duration // finish time minus session start; zero if unfinished
	Finished    bool
}
