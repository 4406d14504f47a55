package ws

import (
	"context"
	"log"
	"time"

	"goCrashServer/config"
)

// ChatMessage is a chat line as it travels over the wire.
type ChatMessage struct {
	Type      string    `json:"type"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// addChatMessage appends to the in-memory replay ring and persists the
// line. Caller holds the hub lock.
func (h *Hub) addChatMessage(msg ChatMessage) {
	h.chatHistory = append(h.chatHistory, msg)
	if len(h.chatHistory) > config.MaxChatHistory {
		h.chatHistory = h.chatHistory[len(h.chatHistory)-config.MaxChatHistory:]
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.store.SaveChatMessage(ctx, msg.Username, msg.Message); err != nil {
			log.Printf("⚠️ Failed to persist chat message: %v", err)
		}
	}()
}

// loadChatHistory warms the ring from the durable history at startup.
func (h *Hub) loadChatHistory(ctx context.Context) {
	records, err := h.store.RecentChat(ctx, config.MaxChatHistory)
	if err != nil {
		log.Printf("⚠️ Failed to load chat history: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, rec := range records {
		h.chatHistory = append(h.chatHistory, ChatMessage{
			Type:      "say",
			Username:  rec.Username,
			Message:   rec.Message,
			Timestamp: rec.Created,
		})
	}
}
