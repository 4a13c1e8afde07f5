// internal/handlers/api_server.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/gganwoor/unuscado/internal/middleware"
)

// NewRouter wires the HTTP routes: a banner, the live game count, the
// heartbeat and the game WebSocket.
func NewRouter(logger *logrus.Logger, gs *GameServer, hub *Hub, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.LogMiddleware(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Heartbeat("/ping"))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("unuscado game server"))
	})

	r.Get("/games", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{
			"games":       gs.LiveGames(),
			"connections": hub.Connections(),
		})
	})

	r.Get("/ws", GameWSHandler(logger, hub))
	return r
}
