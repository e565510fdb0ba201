package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeDict struct {
	target string
	valid  map[string]bool
}

func (d fakeDict) Normalize(w string) string { return strings.ToLower(strings.TrimSpace(w)) }

func (d fakeDict) IsValidGuess(w string) bool {
	if d.valid == nil {
		return true
	}
	return d.valid[d.Normalize(w)]
}

func (d fakeDict) RandomTarget() string { return d.target }

func TestEvaluateGuess(t *testing.T) {
	cases := []struct {
		name   string
		target string
		guess  string
		want   []LetterState
	}{
		{
			name:   "no letters shared",
			target: "abcde",
			guess:  "fghij",
			want:   []LetterState{LetterAbsent, LetterAbsent, LetterAbsent, LetterAbsent, LetterAbsent},
		},
		{
			name:   "exact match",
			target: "termo",
			guess:  "termo",
			want:   []LetterState{LetterCorrect, LetterCorrect, LetterCorrect, LetterCorrect, LetterCorrect},
		},
		{
			name:   "permutation consumes every letter once",
			target: "abcab",
			guess:  "aabbc",
			want:   []LetterState{LetterCorrect, LetterPresent, LetterPresent, LetterPresent, LetterPresent},
		},
		{
			name:   "duplicate guess letter capped by target count",
			target: "abcde",
			guess:  "aabbc",
			want:   []LetterState{LetterCorrect, LetterAbsent, LetterPresent, LetterAbsent, LetterPresent},
		},
		{
			name:   "second duplicate absent when first is exact",
			target: "termo",
			guess:  "tetra",
			want:   []LetterState{LetterCorrect, LetterCorrect, LetterAbsent, LetterPresent, LetterAbsent},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, EvaluateGuess(tc.guess, tc.target))
		})
	}
}

func TestAddPlayer(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("segredo"), bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("duplicate name rejected exactly", func(t *testing.T) {
		r := NewRoom("Ana", nil, Settings{})
		_, err := r.AddPlayer("Ana", "")
		require.ErrorIs(t, err, ErrDuplicateName)

		// Case-sensitive comparison: a different casing is a new player.
		p, err := r.AddPlayer("ana", "")
		require.NoError(t, err)
		require.Equal(t, "ana", p.Name)
	})

	t.Run("capacity enforced", func(t *testing.T) {
		r := NewRoom("Ana", nil, Settings{MaxPlayers: 2})
		_, err := r.AddPlayer("Bia", "")
		require.NoError(t, err)
		_, err = r.AddPlayer("Caio", "")
		require.ErrorIs(t, err, ErrRoomFull)
	})

	t.Run("private room requires the password", func(t *testing.T) {
		r := NewRoom("Ana", hash, Settings{})
		_, err := r.AddPlayer("Bia", "")
		require.ErrorIs(t, err, ErrInvalidPassword)
		_, err = r.AddPlayer("Bia", "errado")
		require.ErrorIs(t, err, ErrInvalidPassword)
		_, err = r.AddPlayer("Bia", "segredo")
		require.NoError(t, err)
	})

	t.Run("failed join leaves roster untouched", func(t *testing.T) {
		r := NewRoom("Ana", nil, Settings{MaxPlayers: 2})
		_, _ = r.AddPlayer("Bia", "")
		_, err := r.AddPlayer("Caio", "")
		require.Error(t, err)
		require.Len(t, r.Players, 2)
	})
}

func TestRemovePlayer(t *testing.T) {
	t.Run("last player empties and destroys", func(t *testing.T) {
		r := NewRoom("Ana", nil, Settings{})
		p, destroyed, reason := r.RemovePlayer(r.Players[0].ID)
		require.NotNil(t, p)
		require.True(t, destroyed)
		require.Equal(t, DestroyEmpty, reason)
	})

	t.Run("leader exit destroys despite remaining players", func(t *testing.T) {
		r := NewRoom("Ana", nil, Settings{})
		_, _ = r.AddPlayer("Bia", "")
		_, _ = r.AddPlayer("Caio", "")
		leader := r.Players[0]

		p, destroyed, reason := r.RemovePlayer(leader.ID)
		require.NotNil(t, p)
		require.True(t, destroyed)
		require.Equal(t, DestroyLeaderLeft, reason)
		// No successor was appointed.
		for _, pl := range r.Players {
			require.False(t, pl.Leader)
		}
	})

	t.Run("non-leader exit keeps the room", func(t *testing.T) {
		r := NewRoom("Ana", nil, Settings{})
		bia, _ := r.AddPlayer("Bia", "")
		_, destroyed, _ := r.RemovePlayer(bia.ID)
		require.False(t, destroyed)
		require.Len(t, r.Players, 1)
	})

	t.Run("unknown player is a no-op", func(t *testing.T) {
		r := NewRoom("Ana", nil, Settings{})
		p, destroyed, _ := r.RemovePlayer("nope")
		require.Nil(t, p)
		require.False(t, destroyed)
		require.Len(t, r.Players, 1)
	})
}

func TestStartSession(t *testing.T) {
	dict := fakeDict{target: "termo"}

	t.Run("requires two players", func(t *testing.T) {
		r := NewRoom("Ana", nil, Settings{})
		_, err := r.StartSession(r.Players[0].ID, dict)
		require.ErrorIs(t, err, ErrInsufficientPlayers)
	})

	t.Run("only the leader may start", func(t *testing.T) {
		r := NewRoom("Ana", nil, Settings{})
		bia, _ := r.AddPlayer("Bia", "")
		_, err := r.StartSession(bia.ID, dict)
		require.ErrorIs(t, err, ErrNotLeader)
	})

	t.Run("start snapshots the roster and resets players", func(t *testing.T) {
		r := NewRoom("Ana", nil, Settings{})
		_, _ = r.AddPlayer("Bia", "")
		s, err := r.StartSession(r.Players[0].ID, dict)
		require.NoError(t, err)
		require.Equal(t, "termo", s.Target)
		require.Equal(t, RoomPlaying, r.Status)
		require.Len(t, s.Players, 2)
		for _, p := range r.Players {
			require.Equal(t, PlayerPlaying, p.Status)
			require.Empty(t, p.Guesses)
			require.True(t, p.FinishedAt.IsZero())
		}
	})
}

func TestSubmitGuessTransitions(t *testing.T) {
	dict := fakeDict{target: "termo"}

	started := func(t *testing.T) (*Room, *Player, *Player) {
		t.Helper()
		r := NewRoom("Ana", nil, Settings{})
		bia, err := r.AddPlayer("Bia", "")
		require.NoError(t, err)
		_, err = r.StartSession(r.Players[0].ID, dict)
		require.NoError(t, err)
		return r, r.Players[0], bia
	}

	t.Run("winning guess is terminal", func(t *testing.T) {
		r, ana, _ := started(t)
		g, p, err := r.SubmitGuess(ana.ID, "TERMO", dict)
		require.NoError(t, err)
		require.Equal(t, "termo", g.Word)
		require.Equal(t, PlayerWon, p.Status)
		require.False(t, p.FinishedAt.IsZero())
	})

	t.Run("sixth miss loses", func(t *testing.T) {
		r, ana, _ := started(t)
		for i := 0; i < DefaultMaxGuesses; i++ {
			_, p, err := r.SubmitGuess(ana.ID, "prosa", dict)
			require.NoError(t, err)
			if i < DefaultMaxGuesses-1 {
				require.Equal(t, PlayerPlaying, p.Status)
			} else {
				require.Equal(t, PlayerLost, p.Status)
				require.False(t, p.FinishedAt.IsZero())
			}
		}
	})

	t.Run("invalid guess has no side effect", func(t *testing.T) {
		r, ana, _ := started(t)
		invalid := fakeDict{target: "termo", valid: map[string]bool{"termo": true}}
		_, _, err := r.SubmitGuess(ana.ID, "zzzzz", invalid)
		require.ErrorIs(t, err, ErrInvalidGuess)
		require.Empty(t, ana.Guesses)
		require.Equal(t, PlayerPlaying, ana.Status)
	})

	t.Run("wrong length rejected", func(t *testing.T) {
		r, ana, _ := started(t)
		_, _, err := r.SubmitGuess(ana.ID, "term", dict)
		require.ErrorIs(t, err, ErrInvalidGuess)
	})

	t.Run("no session", func(t *testing.T) {
		r := NewRoom("Ana", nil, Settings{})
		_, _, err := r.SubmitGuess(r.Players[0].ID, "termo", dict)
		require.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("unknown player", func(t *testing.T) {
		r, _, _ := started(t)
		_, _, err := r.SubmitGuess("nope", "termo", dict)
		require.ErrorIs(t, err, ErrPlayerNotFound)
	})
}

func TestRoundCompletion(t *testing.T) {
	dict := fakeDict{target: "termo"}
	r := NewRoom("Ana", nil, Settings{})
	for _, name := range []string{"Bia", "Caio"} {
		_, err := r.AddPlayer(name, "")
		require.NoError(t, err)
	}
	s, err := r.StartSession(r.Players[0].ID, dict)
	require.NoError(t, err)
	require.False(t, ShouldEnd(s))

	// One winner, the rest run out of attempts.
	_, _, err = r.SubmitGuess(r.Players[0].ID, "termo", dict)
	require.NoError(t, err)
	require.False(t, ShouldEnd(s))

	for _, p := range r.Players[1:] {
		for i := 0; i < DefaultMaxGuesses; i++ {
			_, _, err := r.SubmitGuess(p.ID, "prosa", dict)
			require.NoError(t, err)
		}
	}
	require.True(t, ShouldEnd(s))

	r.FinishSession(time.Now())
	rankings := r.Session.Rankings
	require.Len(t, rankings, 3)
	seen := map[int]bool{}
	for _, rk := range rankings {
		require.False(t, seen[rk.Rank])
		seen[rk.Rank] = true
	}
	for rank := 1; rank <= 3; rank++ {
		require.True(t, seen[rank])
	}
	require.Equal(t, "Ana", rankings[0].Name)

	// Rankings are computed once; finishing again never recomputes.
	r.FinishSession(time.Now().Add(time.Hour))
	require.Equal(t, rankings, r.Session.Rankings)
}

func TestComputeRankingsOrdering(t *testing.T) {
	start := time.Now()
	guesses := func(n int) []Guess {
		out := make([]Guess, n)
		for i := range out {
			out[i] = Guess{Word: "prosa"}
		}
		return out
	}

	p1 := &Player{ID: "1", Name: "P1", Status: PlayerWon, Guesses: guesses(3), FinishedAt: start.Add(50 * time.Second)}
	p2 := &Player{ID: "2", Name: "P2", Status: PlayerWon, Guesses: guesses(3), FinishedAt: start.Add(40 * time.Second)}
	p3 := &Player{ID: "3", Name: "P3", Status: PlayerLost, Guesses: guesses(6), FinishedAt: start.Add(55 * time.Second)}
	s := &Session{StartedAt: start, Players: []*Player{p1, p2, p3}}

	got := ComputeRankings(s)
	require.Equal(t, []string{"P2", "P1", "P3"}, []string{got[0].Name, got[1].Name, got[2].Name})
	require.Equal(t, []int{1, 2, 3}, []int{got[0].Rank, got[1].Rank, got[2].Rank})
	require.Equal(t, 40*time.Second, got[0].Elapsed)
	require.True(t, got[0].Won)
	require.False(t, got[2].Won)
}

func TestComputeRankingsFinishedBeatsUnfinished(t *testing.T) {
	start := time.Now()
	unfinished := &Player{ID: "1", Name: "U", Status: PlayerLost, Guesses: make([]Guess, 4)}
	finished := &Player{ID: "2", Name: "F", Status: PlayerLost, Guesses: make([]Guess, 4), FinishedAt: start.Add(time.Minute)}
	s := &Session{StartedAt: start, Players: []*Player{unfinished, finished}}

	got := ComputeRankings(s)
	require.Equal(t, "F", got[0].Name)
	require.True(t, got[0].Finished)
	require.False(t, got[1].Finished)
}

func TestForceLoss(t *testing.T) {
	now := time.Now()
	p := &Player{Status: PlayerPlaying}
	require.True(t, ForceLoss(p, now))
	require.Equal(t, PlayerLost, p.Status)
	require.Equal(t, now, p.FinishedAt)

	// Terminal players are untouched.
	won := &Player{Status: PlayerWon, FinishedAt: now.Add(-time.Minute)}
	require.False(t, ForceLoss(won, now))
	require.Equal(t, PlayerWon, won.Status)
}

func TestResetSession(t *testing.T) {
	dict := fakeDict{target: "termo"}
	r := NewRoom("Ana", nil, Settings{})
	_, _ = r.AddPlayer("Bia", "")

	t.Run("requires an existing session", func(t *testing.T) {
		_, err := r.ResetSession(r.Players[0].ID, dict)
		require.ErrorIs(t, err, ErrSessionNotFound)
	})

	first, err := r.StartSession(r.Players[0].ID, dict)
	require.NoError(t, err)
	_, _, err = r.SubmitGuess(r.Players[0].ID, "prosa", dict)
	require.NoError(t, err)

	t.Run("only the leader may reset", func(t *testing.T) {
		_, err := r.ResetSession(r.Players[1].ID, dict)
		require.ErrorIs(t, err, ErrNotLeader)
	})

	t.Run("reset replaces the session and parks players", func(t *testing.T) {
		s, err := r.ResetSession(r.Players[0].ID, dict)
		require.NoError(t, err)
		require.NotEqual(t, first.ID, s.ID)
		require.Equal(t, RoomWaiting, s.Status)
		require.Equal(t, RoomWaiting, r.Status)
		require.Len(t, r.Players, 2)
		for _, p := range r.Players {
			require.Equal(t, PlayerWaiting, p.Status)
			require.Empty(t, p.Guesses)
		}
	})
}
