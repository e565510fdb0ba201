package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kevencastro7/termo-multiplayer/internal/hub"
	"github.com/kevencastro7/termo-multiplayer/internal/types"
)

// ListRooms returns the public listing: joinable rooms, newest first,
// passwords and rosters omitted.
func ListRooms(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan []hub.Summary, 1)
		h.Inbox() <- hub.ListRooms{Reply: reply}
		summaries := <-reply

		out := make([]types.RoomListing, 0, len(summaries))
		for _, s := range summaries {
			out = append(out, types.RoomListing{
				Code:       s.Code,
				Players:    s.Players,
				MaxPlayers: s.MaxPlayers,
				Status:     string(s.Status),
				Private:    s.Private,
				CreatedAt:  s.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func RoomSummary(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.ToUpper(chi.URLParam(r, "code"))
		reply := make(chan *hub.Summary, 1)
		h.Inbox() <- hub.GetSummary{Code: code, Reply: reply}
		s := <-reply
		if s == nil {
			http.Error(w, `{"error":"room not found"}`, http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, types.RoomSummary{
			Code:    s.Code,
			Players: s.Players,
			Status:  string(s.Status),
		})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
