// Package types defines the JSON envelopes exchanged with clients.
// Both directions use a single tagged struct; Type selects which of
// the optional fields are meaningful.
package types

import "time"

// ClientMessage is a client intent.
//
// Types and their fields:
//
//	"createRoom":  name, password?, max_players?, time_limit_sec?
//	"joinRoom":    code, name, password?
//	"startGame":   -
//	"submitGuess": guess
//	"resetGame":   -
//	"leaveRoom":   -
type ClientMessage struct {
	Type         string `json:"type"`
	Name         string `json:"name,omitempty"`
	Code         string `json:"code,omitempty"`
	Password     string `json:"password,omitempty"`
	Guess        string `json:"guess,omitempty"`
	MaxPlayers   int    `json:"max_players,omitempty"`
	TimeLimitSec int    `json:"time_limit_sec,omitempty"`
}

// ServerMessage is an event or an intent result.
//
// Types: "roomCreated" | "roomJoined" | "playerJoined" | "playerLeft" |
// "roomDestroyed" | "gameStarted" | "guessResult" | "playerProgress" |
// "gameFinished" | "gameReset" | "error".
type ServerMessage struct {
	Type         string        `json:"type"`
	Room         *RoomInfo     `json:"room,omitempty"`
	Player       *PlayerInfo   `json:"player,omitempty"`
	PlayerID     string        `json:"player_id,omitempty"`
	Name         string        `json:"name,omitempty"`
	Roster       []PlayerInfo  `json:"roster,omitempty"`
	SessionID    string        `json:"session_id,omitempty"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	TimeLimitSec int           `json:"time_limit_sec,omitempty"`
	Guess        *GuessInfo    `json:"guess,omitempty"`
	Attempt      int           `json:"attempt,omitempty"`
	Status       string        `json:"status,omitempty"`
	Rankings     []RankingInfo `json:"rankings,omitempty"`
	Reason       string        `json:"reason,omitempty"`
	ErrorCode    string        `json:"error_code,omitempty"`
	Error        string        `json:"error,omitempty"`
}

type RoomInfo struct {
	ID         string       `json:"id"`
	Code       string       `json:"code"`
	Status     string       `json:"status"`
	MaxPlayers int          `json:"max_players"`
	Private    bool         `json:"private"`
	CreatedAt  time.Time    `json:"created_at"`
	Players    []PlayerInfo `json:"players"`
}

type PlayerInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Leader   bool   `json:"leader"`
	Status   string `json:"status"`
	Attempts int    `json:"attempts"`
}

type GuessInfo struct {
	Word    string   `json:"word"`
	Letters []string `json:"letters"` // "correct" | "present" | "absent" per position
}

type RankingInfo struct {
	Rank      int    `json:"rank"`
	PlayerID  string `json:"player_id"`
	Name      string `json:"name"`
	Won       bool   `json:"won"`
	Guesses   int    `json:"guesses"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Finished  bool   `json:"finished"`
}

// RoomListing is the public-listing row returned by the HTTP API.
type RoomListing struct {
	Code       string    `json:"code"`
	Players    int       `json:"players"`
	MaxPlayers int       `json:"max_players"`
	Status     string    `json:"status"`
	Private    bool      `json:"private"`
	CreatedAt  time.Time `json:"created_at"`
}

// RoomSummary is the single-room query shape.
type RoomSummary struct {
	Code    string `json:"code"`
	Players int    `json:"players"`
	Status  string `json:"status"`
}
