package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"goCrashServer/config"
	"goCrashServer/db"
	"goCrashServer/game"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  config.WSReadBufferSize,
	WriteBufferSize: config.WSWriteBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced on the HTTP router
	},
}

/* ===== HUB ===== */

// Hub fans engine events out to every connected client and routes
// client commands into the engine.
type Hub struct {
	engine *game.Engine
	store  *db.Store

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	clients    map[*Client]bool

	mu          sync.Mutex
	chatHistory []ChatMessage
}

func NewHub(engine *game.Engine, store *db.Store) *Hub {
	return &Hub{
		engine:     engine,
		store:      store,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		clients:    make(map[*Client]bool),
	}
}

// Run owns the client registry. It consumes the engine event stream
// and the broadcast queue until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.loadChatHistory(ctx)
	log.Println("🎮 WebSocket hub started")

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.clients[client] = true
			log.Printf("✅ Client connected: %s (total: %d)", client.id, len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				log.Printf("👋 Client disconnected: %s (total: %d)", client.id, len(h.clients))
			}

		case ev := <-h.engine.Events():
			data, err := json.Marshal(ev)
			if err != nil {
				log.Printf("⚠️ Failed to marshal %s event: %v", ev.Type, err)
				continue
			}
			h.broadcastBytes(data)

		case data := <-h.broadcast:
			h.broadcastBytes(data)
		}
	}
}

func (h *Hub) broadcastBytes(data []byte) {
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			// Slow consumer, don't stall the round for it.
			log.Printf("⚠️ Send buffer full for client %s, skipping", client.id)
		}
	}
}

// Broadcast queues a message for every connected client.
func (h *Hub) Broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("⚠️ Failed to marshal broadcast: %v", err)
		return
	}
	h.broadcast <- data
}

// HandleWS upgrades the connection and starts the client pumps.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ WebSocket upgrade failed: %v", err)
		return
	}

	client := newClient(h, conn)
	h.register <- client

	go client.writePump()
	go client.readPump()
}
