// Package ws is the gateway between client sockets and the room
// authority. It stays thin: decode intents, forward them, pump events
// back out. All game rules live behind the room inbox.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/kevencastro7/termo-multiplayer/internal/engine"
	"github.com/kevencastro7/termo-multiplayer/internal/hub"
	"github.com/kevencastro7/termo-multiplayer/internal/room"
	"github.com/kevencastro7/termo-multiplayer/internal/types"
)

// replyTimeout bounds waits on actor replies so a torn-down room can
// never hang a connection.
const replyTimeout = 5 * time.Second

func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusInternalError, "closing")
		log.Debug("connection opened", zap.String("remote", r.RemoteAddr))
		defer log.Debug("connection closed", zap.String("remote", r.RemoteAddr))

		out := make(chan room.Event, 16)
		var rm *room.Room
		var playerID string

		// The disconnect path: whatever ends this handler, the player
		// leaves their room.
		defer func() {
			if rm != nil {
				rm.Inbox() <- room.Leave{PlayerID: playerID}
			}
		}()

		// The writer exits either when the room closes the outbox or when
		// the handler returns and cancels writeCtx. The second path is
		// what terminates connections that never joined a room.
		writeCtx, writeCancel := context.WithCancel(context.Background())
		defer writeCancel()
		go func() {
			for {
				select {
				case ev, ok := <-out:
					if !ok {
						// Outbox closed: the room is gone or dropped us.
						conn.Close(websocket.StatusNormalClosure, "room closed")
						return
					}
					payload, _ := json.Marshal(toServerMessage(ev))
					ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
					_ = conn.Write(ctx, websocket.MessageText, payload)
					cancel()
				case <-writeCtx.Done():
					return
				}
			}
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(r.Context(), conn, "BadRequest", "malformed message")
				continue
			}

			switch cm.Type {
			case "createRoom":
				if rm != nil {
					writeError(r.Context(), conn, "BadRequest", "already in a room")
					continue
				}
				if strings.TrimSpace(cm.Name) == "" {
					writeError(r.Context(), conn, "BadRequest", "name is required")
					continue
				}
				reply := make(chan hub.CreateResult, 1)
				h.Inbox() <- hub.CreateRoom{
					Name:     strings.TrimSpace(cm.Name),
					Password: cm.Password,
					Settings: engine.Settings{
						MaxPlayers: cm.MaxPlayers,
						TimeLimit:  time.Duration(cm.TimeLimitSec) * time.Second,
					},
					Outbox: out,
					Reply:  reply,
				}
				res, ok := await(reply)
				if !ok || res.Err != nil {
					writeError(r.Context(), conn, "Internal", "could not create room")
					continue
				}
				rm, playerID = res.Room, res.Player.ID
				ri := roomInfo(res.View)
				pi := playerInfo(res.Player)
				writeMessage(r.Context(), conn, types.ServerMessage{Type: "roomCreated", Room: &ri, Player: &pi})

			case "joinRoom":
				if rm != nil {
					writeError(r.Context(), conn, "BadRequest", "already in a room")
					continue
				}
				if strings.TrimSpace(cm.Name) == "" || cm.Code == "" {
					writeError(r.Context(), conn, "BadRequest", "code and name are required")
					continue
				}
				target, ok := lookupRoom(h, cm.Code)
				if !ok || target == nil {
					writeError(r.Context(), conn, "RoomNotFound", engine.ErrRoomNotFound.Error())
					continue
				}
				reply := make(chan room.JoinResult, 1)
				target.Inbox() <- room.Join{
					Name:     strings.TrimSpace(cm.Name),
					Password: cm.Password,
					Outbox:   out,
					Reply:    reply,
				}
				res, ok := await(reply)
				if !ok {
					writeError(r.Context(), conn, "RoomNotFound", engine.ErrRoomNotFound.Error())
					continue
				}
				if res.Err != nil {
					writeError(r.Context(), conn, errCode(res.Err), res.Err.Error())
					continue
				}
				rm, playerID = target, res.Player.ID
				ri := roomInfo(res.View)
				pi := playerInfo(res.Player)
				writeMessage(r.Context(), conn, types.ServerMessage{Type: "roomJoined", Room: &ri, Player: &pi})

			case "startGame":
				if rm == nil {
					writeError(r.Context(), conn, "RoomNotFound", engine.ErrRoomNotFound.Error())
					continue
				}
				reply := make(chan room.StartResult, 1)
				rm.Inbox() <- room.Start{PlayerID: playerID, Reply: reply}
				if res, ok := await(reply); ok && res.Err != nil {
					writeError(r.Context(), conn, errCode(res.Err), res.Err.Error())
				}
				// Success reaches the sender through the gameStarted broadcast.

			case "submitGuess":
				if rm == nil {
					writeError(r.Context(), conn, "RoomNotFound", engine.ErrRoomNotFound.Error())
					continue
				}
				reply := make(chan room.GuessResult, 1)
				rm.Inbox() <- room.SubmitGuess{PlayerID: playerID, Word: cm.Guess, Reply: reply}
				res, ok := await(reply)
				if !ok {
					continue
				}
				if res.Err != nil {
					writeError(r.Context(), conn, errCode(res.Err), res.Err.Error())
					continue
				}
				writeMessage(r.Context(), conn, types.ServerMessage{
					Type:    "guessResult",
					Guess:   &types.GuessInfo{Word: res.Word, Letters: letterStrings(res.Letters)},
					Attempt: res.Attempt,
					Status:  string(res.Status),
				})

			case "resetGame":
				if rm == nil {
					writeError(r.Context(), conn, "RoomNotFound", engine.ErrRoomNotFound.Error())
					continue
				}
				reply := make(chan room.ResetResult, 1)
				rm.Inbox() <- room.Reset{PlayerID: playerID, Reply: reply}
				if res, ok := await(reply); ok && res.Err != nil {
					writeError(r.Context(), conn, errCode(res.Err), res.Err.Error())
				}

			case "leaveRoom":
				if rm == nil {
					return
				}
				leaving := rm
				rm = nil
				leaving.Inbox() <- room.Leave{PlayerID: playerID}
				return

			default:
				writeError(r.Context(), conn, "BadRequest", "unknown message type")
			}
		}
	}
}

func lookupRoom(h *hub.Hub, code string) (*room.Room, bool) {
	reply := make(chan *room.Room, 1)
	h.Inbox() <- hub.GetRoom{Code: strings.ToUpper(strings.TrimSpace(code)), Reply: reply}
	return await(reply)
}

// await receives one actor reply, giving up after replyTimeout.
func await[T any](ch <-chan T) (T, bool) {
	select {
	case v := <-ch:
		return v, true
	case <-time.After(replyTimeout):
		var zero T
		return zero, false
	}
}

func writeMessage(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, payload)
}

func writeError(ctx context.Context, conn *websocket.Conn, code, reason string) {
	writeMessage(ctx, conn, types.ServerMessage{Type: "error", ErrorCode: code, Error: reason})
}

// errCode maps expected domain errors to their wire codes.
func errCode(err error) string {
	switch {
	case errors.Is(err, engine.ErrRoomNotFound):
		return "RoomNotFound"
	case errors.Is(err, engine.ErrInvalidPassword):
		return "InvalidPassword"
	case errors.Is(err, engine.ErrRoomFull):
		return "RoomFull"
	case errors.Is(err, engine.ErrDuplicateName):
		return "DuplicateName"
	case errors.Is(err, engine.ErrNotLeader):
		return "NotLeader"
	case errors.Is(err, engine.ErrInsufficientPlayers):
		return "InsufficientPlayers"
	case errors.Is(err, engine.ErrInvalidGuess):
		return "InvalidGuess"
	case errors.Is(err, engine.ErrSessionNotFound):
		return "SessionNotFound"
	case errors.Is(err, engine.ErrPlayerNotFound):
		return "PlayerNotFound"
	}
	return "Internal"
}

// toServerMessage converts a room broadcast into its wire shape.
func toServerMessage(ev room.Event) types.ServerMessage {
	switch e := ev.(type) {
	case room.PlayerJoined:
		pi := playerInfo(e.Player)
		return types.ServerMessage{Type: "playerJoined", Player: &pi, Roster: playerInfos(e.Roster)}
	case room.PlayerLeft:
		return types.ServerMessage{Type: "playerLeft", PlayerID: e.PlayerID, Name: e.Name, Roster: playerInfos(e.Roster)}
	case room.RoomDestroyed:
		return types.ServerMessage{Type: "roomDestroyed", Reason: string(e.Reason)}
	case room.GameStarted:
		started := e.StartedAt
		return types.ServerMessage{
			Type:         "gameStarted",
			SessionID:    e.SessionID,
			StartedAt:    &started,
			TimeLimitSec: int(e.TimeLimit / time.Second),
		}
	case room.PlayerProgress:
		return types.ServerMessage{Type: "playerProgress", PlayerID: e.PlayerID, Attempt: e.Attempt, Status: string(e.Status)}
	case room.GameFinished:
		return types.ServerMessage{Type: "gameFinished", Rankings: rankingInfos(e.Rankings)}
	case room.GameReset:
		return types.ServerMessage{Type: "gameReset", SessionID: e.SessionID}
	}
	return types.ServerMessage{Type: "error", ErrorCode: "Internal", Error: "unknown event"}
}

func roomInfo(v room.View) types.RoomInfo {
	return types.RoomInfo{
		ID:         v.ID,
		Code:       v.Code,
		Status:     string(v.Status),
		MaxPlayers: v.MaxPlayers,
		Private:    v.Private,
		CreatedAt:  v.CreatedAt,
		Players:    playerInfos(v.Players),
	}
}

func playerInfo(p room.PlayerView) types.PlayerInfo {
	return types.PlayerInfo{
		ID:       p.ID,
		Name:     p.Name,
		Leader:   p.Leader,
		Status:   string(p.Status),
		Attempts: p.Attempts,
	}
}

func playerInfos(ps []room.PlayerView) []types.PlayerInfo {
	out := make([]types.PlayerInfo, len(ps))
	for i, p := range ps {
		out[i] = playerInfo(p)
	}
	return out
}

func letterStrings(ls []engine.LetterState) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = string(l)
	}
	return out
}

func rankingInfos(rs []engine.Ranking) []types.RankingInfo {
	out := make([]types.RankingInfo, len(rs))
	for i, r := range rs {
		out[i] = types.RankingInfo{
			Rank:      r.Rank,
			PlayerID:  r.PlayerID,
			Name:      r.Name,
			Won:       r.Won,
			Guesses:   r.GuessesUsed,
			ElapsedMS: r.Elapsed.Milliseconds(),
			Finished:  r.Finished,
		}
	}
	return out
}
