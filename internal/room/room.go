// Package room runs one actor goroutine per room. Every mutation of
// room and session state flows through the inbox, so state is only
// ever touched from the loop and no locking is needed. Independent
// rooms proceed fully in parallel.
package room

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kevencastro7/termo-multiplayer/internal/engine"
)

type Room struct {
	inbox    chan Msg
	state    *engine.Room
	dict     engine.Dictionary
	log      *zap.Logger
	clients  map[string]chan Event // playerID -> outbox
	timerGen int
	onClose  func(roomID, code string)
	ctx      context.Context
	cancel   context.CancelFunc
}

// New starts the actor. onClose fires exactly once, after the room has
// shut down, so the registry can drop its indexes.
func New(parent context.Context, state *engine.Room, dict engine.Dictionary, log *zap.Logger, onClose func(roomID, code string)) *Room {
	ctx, cancel := context.WithCancel(parent)

	r := &Room{
		inbox:   make(chan Msg, 64),
		state:   state,
		dict:    dict,
		log:     log.With(zap.String("room", state.Code)),
		clients: make(map[string]chan Event),
		onClose: onClose,
		ctx:     ctx,
		cancel:  cancel,
	}
	go r.loop()
	return r
}

func (r *Room) Inbox() chan<- Msg { return r.inbox }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.close()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Attach:
				r.clients[msg.PlayerID] = msg.Outbox

			case Join:
				r.handleJoin(msg)

			case Leave:
				if r.handleLeave(msg.PlayerID) {
					return
				}

			case Start:
				r.handleStart(msg)

			case SubmitGuess:
				r.handleGuess(msg)

			case Reset:
				r.handleReset(msg)

			case GetView:
				msg.Reply <- ViewOf(r.state)

			case timerFired:
				r.handleTimer(msg.gen)

			case Shutdown:
				r.close()
				return
			}
		}
	}
}

func (r *Room) handleJoin(msg Join) {
	p, err := r.state.AddPlayer(msg.Name, msg.Password)
	if err != nil {
		msg.Reply <- JoinResult{Err: err}
		return
	}
	r.clients[p.ID] = msg.Outbox
	view := ViewOf(r.state)
	pv := playerView(p)
	msg.Reply <- JoinResult{Player: pv, View: view}
	r.broadcastExcept(p.ID, PlayerJoined{Player: pv, Roster: view.Players})
	r.log.Debug("player joined", zap.String("player", p.Name))
}

// handleLeave reconciles registry and session state after a drop.
// Returns true if the room destroyed itself and the loop must exit.
func (r *Room) handleLeave(playerID string) bool {
	p, destroyed, reason := r.state.RemovePlayer(playerID)
	if p == nil {
		return false
	}
	if ch, ok := r.clients[playerID]; ok {
		close(ch)
		delete(r.clients, playerID)
	}
	if destroyed {
		r.broadcast(RoomDestroyed{Reason: reason})
		r.log.Info("room destroyed", zap.String("reason", string(reason)))
		r.close()
		return true
	}
	r.broadcast(PlayerLeft{PlayerID: p.ID, Name: p.Name, Roster: ViewOf(r.state).Players})

	// Session repair: the departed player's session record is forced
	// to lost, which may complete the round for everyone else.
	s := r.state.Session
	if s != nil && s.Status == engine.RoomPlaying {
		now := time.Now()
		if engine.ForceLoss(p, now) && engine.ShouldEnd(s) {
			r.finishSession(now)
		}
	}
	return false
}

func (r *Room) handleStart(msg Start) {
	s, err := r.state.StartSession(msg.PlayerID, r.dict)
	if err != nil {
		msg.Reply <- StartResult{Err: err}
		return
	}
	msg.Reply <- StartResult{SessionID: s.ID, StartedAt: s.StartedAt, TimeLimit: s.TimeLimit}
	r.broadcast(GameStarted{SessionID: s.ID, StartedAt: s.StartedAt, TimeLimit: s.TimeLimit})
	r.armTimer(s.TimeLimit)
}

func (r *Room) handleGuess(msg SubmitGuess) {
	g, p, err := r.state.SubmitGuess(msg.PlayerID, msg.Word, r.dict)
	if err != nil {
		msg.Reply <- GuessResult{Err: err}
		return
	}
	msg.Reply <- GuessResult{
		Word:    g.Word,
		Letters: g.Letters,
		Attempt: len(p.Guesses),
		Status:  p.Status,
	}
	r.broadcast(PlayerProgress{PlayerID: p.ID, Attempt: len(p.Guesses), Status: p.Status})

	if p.Status.Terminal() && engine.ShouldEnd(r.state.Session) {
		r.finishSession(time.Now())
	}
}

func (r *Room) handleReset(msg Reset) {
	s, err := r.state.ResetSession(msg.PlayerID, r.dict)
	if err != nil {
		msg.Reply <- ResetResult{Err: err}
		return
	}
	r.timerGen++ // disarm any running session timer
	msg.Reply <- ResetResult{SessionID: s.ID}
	r.broadcast(GameReset{SessionID: s.ID})
}

// handleTimer ends the session when its time limit elapses. Stale
// fires from a previous session are dropped by generation.
func (r *Room) handleTimer(gen int) {
	if gen != r.timerGen {
		return
	}
	s := r.state.Session
	if s == nil || s.Status != engine.RoomPlaying {
		return
	}
	now := time.Now()
	for _, p := range s.Players {
		if engine.ForceLoss(p, now) {
			r.broadcast(PlayerProgress{PlayerID: p.ID, Attempt: len(p.Guesses), Status: p.Status})
		}
	}
	r.log.Debug("session time limit reached", zap.String("session", s.ID))
	r.finishSession(now)
}

func (r *Room) armTimer(limit time.Duration) {
	r.timerGen++
	if limit <= 0 {
		return
	}
	gen := r.timerGen
	go func() {
		t := time.NewTimer(limit)
		defer t.Stop()
		select {
		case <-t.C:
			select {
			case r.inbox <- timerFired{gen: gen}:
			case <-r.ctx.Done():
			}
		case <-r.ctx.Done():
		}
	}()
}

func (r *Room) finishSession(now time.Time) {
	r.state.FinishSession(now)
	r.timerGen++
	r.broadcast(GameFinished{Rankings: r.state.Session.Rankings})
}

func (r *Room) broadcast(e Event) {
	r.broadcastExcept("", e)
}

func (r *Room) broadcastExcept(skipID string, e Event) {
	for id, ch := range r.clients {
		if id == skipID {
			continue
		}
		select {
		case ch <- e:
		default:
			// Client is slow/full - drop them. The gateway notices the
			// closed outbox and issues Leave.
			close(ch)
			delete(r.clients, id)
		}
	}
}

func (r *Room) close() {
	for id, ch := range r.clients {
		close(ch)
		delete(r.clients, id)
	}
	r.cancel()
	if r.onClose != nil {
		r.onClose(r.state.ID, r.state.Code)
		r.onClose = nil
	}
}

func playerView(p *engine.Player) PlayerView {
	return PlayerView{
		ID:       p.ID,
		Name:     p.Name,
		Leader:   p.Leader,
		Status:   p.Status,
		Attempts: len(p.Guesses),
	}
}
