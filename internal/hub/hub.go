// Package hub owns the room registry: live rooms, their join codes,
// creation and teardown. Like the rooms it manages, the hub is an
// actor; its indexes are only touched from the loop.
package hub

import (
	"context"
	"crypto/rand"
	"math/big"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/kevencastro7/termo-multiplayer/internal/engine"
	"github.com/kevencastro7/termo-multiplayer/internal/room"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// viewTimeout bounds how long the hub waits on a room actor when
// building listings; a closing room simply drops out of the answer.
const viewTimeout = 200 * time.Millisecond

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	Name     string
	Password string
	Settings engine.Settings
	Outbox   chan room.Event
	Reply    chan CreateResult
}

type CreateResult struct {
	Room   *room.Room
	View   room.View
	Player room.PlayerView
	Err    error
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

type ListRooms struct{ Reply chan []Summary }

type GetSummary struct {
	Code  string
	Reply chan *Summary
}

type RemoveRoom struct{ ID string }

type ShutdownHub struct{}

type sweepIdle struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (ListRooms) isHubMsg()   {}
func (GetSummary) isHubMsg()  {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}
func (sweepIdle) isHubMsg()   {}

// Summary is the password-free, roster-free public shape of a room.
type Summary struct {
	Code       string
	Players    int
	MaxPlayers int
	Status     engine.RoomStatus
	Private    bool
	CreatedAt  time.Time
}

type Options struct {
	Dictionary  engine.Dictionary
	Logger      *zap.Logger
	CodeLength  int
	IdleTimeout time.Duration // empty rooms older than this are swept
	SweepEvery  time.Duration
	MaxPlayers  int           // per-room capacity ceiling
	MaxGuesses  int
	MaxTime     time.Duration // per-session time limit ceiling
}

type entry struct {
	rm        *room.Room
	code      string
	createdAt time.Time
	private   bool
	maxSeats  int
}

type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*entry // by room id
	codes  map[string]string // code -> room id
	opts   Options
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, opts Options) *Hub {
	if opts.CodeLength <= 0 {
		opts.CodeLength = 6
	}
	if opts.MaxPlayers <= 0 {
		opts.MaxPlayers = engine.DefaultMaxPlayers
	}
	if opts.MaxGuesses <= 0 {
		opts.MaxGuesses = engine.DefaultMaxGuesses
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = time.Hour
	}
	if opts.SweepEvery <= 0 {
		opts.SweepEvery = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*entry),
		codes:  make(map[string]string),
		opts:   opts,
		log:    opts.Logger,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	ticker := time.NewTicker(h.opts.SweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case <-ticker.C:
			h.sweep()

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				msg.Reply <- h.create(msg)

			case GetRoom:
				if id, ok := h.codes[msg.Code]; ok {
					msg.Reply <- h.rooms[id].rm
				} else {
					msg.Reply <- nil
				}

			case ListRooms:
				msg.Reply <- h.list()

			case GetSummary:
				msg.Reply <- h.summary(msg.Code)

			case RemoveRoom:
				if e, ok := h.rooms[msg.ID]; ok {
					delete(h.codes, e.code)
					delete(h.rooms, msg.ID)
				}

			case sweepIdle:
				h.sweep()

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) create(msg CreateRoom) CreateResult {
	var hash []byte
	if msg.Password != "" {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(msg.Password), bcrypt.DefaultCost)
		if err != nil {
			return CreateResult{Err: err}
		}
	}

	st := engine.NewRoom(msg.Name, hash, h.clamp(msg.Settings))
	st.Code = h.freeCode()

	// Build the reply shapes before the actor loop takes ownership of st.
	view := room.ViewOf(st)
	leader := view.Players[0]

	rm := room.New(h.ctx, st, h.opts.Dictionary, h.log, func(roomID, code string) {
		// Runs on the room goroutine; never block it on our inbox.
		go func() {
			select {
			case h.inbox <- RemoveRoom{ID: roomID}:
			case <-h.ctx.Done():
			}
		}()
	})
	rm.Inbox() <- room.Attach{PlayerID: leader.ID, Outbox: msg.Outbox}

	h.rooms[st.ID] = &entry{
		rm:        rm,
		code:      st.Code,
		createdAt: st.CreatedAt,
		private:   st.Private(),
		maxSeats:  st.Settings.MaxPlayers,
	}
	h.codes[st.Code] = st.ID
	h.log.Info("room created", zap.String("code", st.Code), zap.Bool("private", st.Private()))
	return CreateResult{Room: rm, View: view, Player: leader}
}

// clamp bounds requested settings by the server-side ceilings and
// fills defaults for anything unset.
func (h *Hub) clamp(s engine.Settings) engine.Settings {
	if s.MaxPlayers <= 0 || s.MaxPlayers > h.opts.MaxPlayers {
		s.MaxPlayers = h.opts.MaxPlayers
	}
	if s.MaxPlayers < engine.MinPlayers {
		s.MaxPlayers = engine.MinPlayers
	}
	if s.MaxGuesses <= 0 {
		s.MaxGuesses = h.opts.MaxGuesses
	}
	if s.TimeLimit < 0 {
		s.TimeLimit = 0
	}
	if h.opts.MaxTime > 0 && s.TimeLimit > h.opts.MaxTime {
		s.TimeLimit = h.opts.MaxTime
	}
	return s
}

// freeCode draws codes until one misses the live set. The space is
// 36^len, so a handful of retries is already unlikely.
func (h *Hub) freeCode() string {
	for {
		c := generateCode(h.opts.CodeLength)
		if _, taken := h.codes[c]; !taken {
			return c
		}
		h.log.Debug("room code collision, regenerating", zap.String("code", c))
	}
}

func generateCode(length int) string {
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			// crypto/rand failing is unrecoverable for codes; fall back
			// to the first letter rather than panicking the registry.
			code[i] = codeAlphabet[0]
			continue
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code)
}

// list returns live rooms with at least one player, newest first.
func (h *Hub) list() []Summary {
	out := make([]Summary, 0, len(h.rooms))
	for _, e := range h.rooms {
		v, ok := h.view(e)
		if !ok || len(v.Players) == 0 {
			continue
		}
		out = append(out, summarize(e, v))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (h *Hub) summary(code string) *Summary {
	id, ok := h.codes[code]
	if !ok {
		return nil
	}
	e := h.rooms[id]
	v, ok := h.view(e)
	if !ok {
		return nil
	}
	s := summarize(e, v)
	return &s
}

// view asks the room actor for a snapshot, giving up quickly if the
// room is mid-shutdown.
func (h *Hub) view(e *entry) (room.View, bool) {
	reply := make(chan room.View, 1)
	select {
	case e.rm.Inbox() <- room.GetView{Reply: reply}:
	default:
		return room.View{}, false
	}
	select {
	case v := <-reply:
		return v, true
	case <-time.After(viewTimeout):
		return room.View{}, false
	}
}

func summarize(e *entry, v room.View) Summary {
	return Summary{
		Code:       e.code,
		Players:    len(v.Players),
		MaxPlayers: e.maxSeats,
		Status:     v.Status,
		Private:    e.private,
		CreatedAt:  e.createdAt,
	}
}

// sweep is the safety net behind immediate empty-room teardown: any
// room that is both old and empty gets shut down.
func (h *Hub) sweep() {
	cutoff := time.Now().Add(-h.opts.IdleTimeout)
	for id, e := range h.rooms {
		if e.createdAt.After(cutoff) {
			continue
		}
		// Sweep only rooms confirmed empty. A room that does not answer
		// in time may just be busy; it gets another look next tick.
		v, ok := h.view(e)
		if !ok || len(v.Players) > 0 {
			continue
		}
		e.rm.Inbox() <- room.Shutdown{}
		delete(h.codes, e.code)
		delete(h.rooms, id)
		h.log.Info("idle room swept", zap.String("code", e.code))
	}
}

func (h *Hub) shutdown() {
	for id, e := range h.rooms {
		e.rm.Inbox() <- room.Shutdown{}
		delete(h.codes, e.code)
		delete(h.rooms, id)
	}
	h.cancel()
}
