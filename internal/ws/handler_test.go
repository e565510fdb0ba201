package ws

import (
	"context"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/kevencastro7/termo-multiplayer/internal/hub"
)

type fakeDict struct{ target string }

func (d fakeDict) Normalize(w string) string  { return strings.ToLower(strings.TrimSpace(w)) }
func (d fakeDict) IsValidGuess(w string) bool { return len(d.Normalize(w)) == len(d.target) }
func (d fakeDict) RandomTarget() string       { return d.target }

// A connection that disconnects without ever joining a room has no room
// actor to close its outbox; the handler itself must stop the writer.
func TestHandler_JoinlessConnectionsDoNotLeak(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := hub.NewHub(ctx, hub.Options{
		Dictionary: fakeDict{target: "termo"},
		Logger:     zap.NewNop(),
	})

	srv := httptest.NewServer(Handler(h, zap.NewNop()))
	t.Cleanup(srv.Close)

	before := runtime.NumGoroutine()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	for i := 0; i < 20; i++ {
		conn, _, err := websocket.Dial(ctx, url, nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		conn.Close(websocket.StatusNormalClosure, "bye")
	}

	// Handlers tear down asynchronously; poll with a little slack for
	// unrelated runtime goroutines.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= before+2 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("goroutines leaked: before=%d after=%d", before, runtime.NumGoroutine())
}
