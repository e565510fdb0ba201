package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kevencastro7/termo-multiplayer/internal/hub"
	"github.com/kevencastro7/termo-multiplayer/internal/ws"
)

func SetupRoutes(h *hub.Hub, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/rooms", ListRooms(h))
	r.Get("/rooms/{code}", RoomSummary(h))
	r.Get("/ws", ws.Handler(h, log))
	return r
}
