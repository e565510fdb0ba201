package room

import (
	"time"

	"github.com/kevencastro7/termo-multiplayer/internal/engine"
)

type Msg interface{ isRoomMsg() }

// Attach registers the outbox for a player already on the roster
// (the creator, whose seat the registry fills at construction).
type Attach struct {
	PlayerID string
	Outbox   chan Event
}

func (Attach) isRoomMsg() {}

type Join struct {
	Name     string
	Password string
	Outbox   chan Event
	Reply    chan JoinResult
}

func (Join) isRoomMsg() {}

type JoinResult struct {
	Player PlayerView
	View   View
	Err    error
}

// Leave is the disconnect path: issued by the gateway when the socket
// drops, or on an explicit leave intent.
type Leave struct{ PlayerID string }

func (Leave) isRoomMsg() {}

type Start struct {
	PlayerID string
	Reply    chan StartResult
}

func (Start) isRoomMsg() {}

type StartResult struct {
	SessionID string
	StartedAt time.Time
	TimeLimit time.Duration
	Err       error
}

type SubmitGuess struct {
	PlayerID string
	Word     string
	Reply    chan GuessResult
}

func (SubmitGuess) isRoomMsg() {}

type GuessResult struct {
	Word    string
	Letters []engine.LetterState
	Attempt int
	Status  engine.PlayerStatus
	Err     error
}

type Reset struct {
	PlayerID string
	Reply    chan ResetResult
}

func (Reset) isRoomMsg() {}

type ResetResult struct {
	SessionID string
	Err       error
}

type GetView struct{ Reply chan View }

func (GetView) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

// timerFired is internal: the session deadline elapsed. Gen guards
// against fires armed for an earlier session.
type timerFired struct{ gen int }

func (timerFired) isRoomMsg() {}

// Event is a broadcast delivered to every connected player's outbox.
type Event interface{ isRoomEvent() }

type PlayerJoined struct {
	Player PlayerView
	Roster []PlayerView
}

func (PlayerJoined) isRoomEvent() {}

type PlayerLeft struct {
	PlayerID string
	Name     string
	Roster   []PlayerView
}

func (PlayerLeft) isRoomEvent() {}

type RoomDestroyed struct{ Reason engine.DestroyReason }

func (RoomDestroyed) isRoomEvent() {}

type GameStarted struct {
	SessionID string
	StartedAt time.Time
	TimeLimit time.Duration
}

func (GameStarted) isRoomEvent() {}

type PlayerProgress struct {
	PlayerID string
	Attempt  int
	Status   engine.PlayerStatus
}

func (PlayerProgress) isRoomEvent() {}

type GameFinished struct{ Rankings []engine.Ranking }

func (GameFinished) isRoomEvent() {}

type GameReset struct{ SessionID string }

func (GameReset) isRoomEvent() {}

// PlayerView and View are copies safe to hand outside the actor.
type PlayerView struct {
	ID       string
	Name     string
	Leader   bool
	Status   engine.PlayerStatus
	Attempts int
}

type View struct {
	ID         string
	Code       string
	Status     engine.RoomStatus
	CreatedAt  time.Time
	MaxPlayers int
	Private    bool
	Players    []PlayerView
	SessionID  string
}

// ViewOf snapshots a room's externally visible state. Callers outside
// the actor loop must only use it before the loop starts.
func ViewOf(r *engine.Room) View {
	v := View{
		ID:         r.ID,
		Code:       r.Code,
		Status:     r.Status,
		CreatedAt:  r.CreatedAt,
		MaxPlayers: r.Settings.MaxPlayers,
		Private:    r.Private(),
		Players:    make([]PlayerView, 0, len(r.Players)),
	}
	if r.Session != nil {
		v.SessionID = r.Session.ID
	}
	for _, p := range r.Players {
		v.Players = append(v.Players, PlayerView{
			ID:       p.ID,
			Name:     p.Name,
			Leader:   p.Leader,
			Status:   p.Status,
			Attempts: len(p.Guesses),
		})
	}
	return v
}
