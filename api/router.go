package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"goCrashServer/config"
	"goCrashServer/db"
	"goCrashServer/game"
	"goCrashServer/ws"
)

// Server bundles the HTTP boundary: public game endpoints, the
// WebSocket upgrade and the operator surface.
type Server struct {
	engine    *game.Engine
	store     *db.Store
	hub       *ws.Hub
	jwtSecret []byte
}

func NewServer(engine *game.Engine, store *db.Store, hub *ws.Hub, jwtSecret []byte) *Server {
	return &Server{
		engine:    engine,
		store:     store,
		hub:       hub,
		jwtSecret: jwtSecret,
	}
}

// Router builds the chi router with CORS and all routes attached.
func (s *Server) Router(cfg *config.Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           60 * 15,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/game", s.handleGameInfo)
	r.Get("/games", s.handleHistory)
	r.Get("/leaderboard", s.handleLeaderboard)
	r.Get("/verify", s.handleVerify)
	r.Get("/ws", s.hub.HandleWS)

	r.Route("/admin", func(rr chi.Router) {
		rr.Use(s.adminOnly)
		rr.Post("/finish-round", s.handleFinishRound)
		rr.Post("/set-next-zero", s.handleSetNextZero)
		rr.Post("/cashout-all", s.handleCashOutAll)
		rr.Post("/settings", s.handleSetSetting)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("⚠️ Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
