package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"goCrashServer/config"
	"goCrashServer/db"
	"goCrashServer/game"
)

// Client is one WebSocket connection. user stays nil until a join
// succeeds; betting commands require it.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	user *db.UserRecord
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, 64),
	}
}

/* ===== WIRE FORMAT ===== */

type inboundMessage struct {
	Type        string           `json:"type"`
	Username    string           `json:"username,omitempty"`
	Demo        bool             `json:"demo,omitempty"`
	Bet         int64            `json:"bet,omitempty"`
	ExtraBet    int64            `json:"extra_bet,omitempty"`
	AutoCashOut int64            `json:"auto_cash_out,omitempty"`
	RangeBets   map[string]int64 `json:"range_bets,omitempty"` // range id -> amount
	Message     string           `json:"message,omitempty"`
}

func (c *Client) reply(typ string, data any) {
	msg, err := json.Marshal(game.Event{Type: typ, Data: data})
	if err != nil {
		log.Printf("⚠️ Failed to marshal %s reply: %v", typ, err)
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) replyError(err error) {
	reason := "INTERNAL_ERROR"
	switch {
	case errors.Is(err, game.ErrGameInProgress),
		errors.Is(err, game.ErrAlreadyPlacedBet),
		errors.Is(err, game.ErrNotEnoughMoney),
		errors.Is(err, game.ErrGameNotInProgress),
		errors.Is(err, game.ErrNoBetPlaced),
		errors.Is(err, game.ErrGameCrashed),
		errors.Is(err, game.ErrAlreadyCashedOut),
		errors.Is(err, game.ErrPlaceBet),
		errors.Is(err, game.ErrNoRange):
		reason = err.Error()
	}
	c.reply("error", map[string]string{"reason": reason})
}

/* ===== PUMPS ===== */

func (c *Client) readPump() {
	defer func() {
		c.cashOutOnLeave()
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(config.WSPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(config.WSPongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("⚠️ Client %s read error: %v", c.id, err)
			}
			return
		}
		c.handleMessage(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(config.WSPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

/* ===== COMMANDS ===== */

func (c *Client) handleMessage(raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.reply("error", map[string]string{"reason": "BAD_MESSAGE"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch msg.Type {
	case "join":
		c.handleJoin(ctx, msg)
	case "place_bet":
		c.handlePlaceBet(ctx, msg)
	case "cash_out":
		c.handleCashOut(ctx)
	case "say":
		c.handleSay(msg)
	default:
		c.reply("error", map[string]string{"reason": "UNKNOWN_TYPE"})
	}
}

func (c *Client) handleJoin(ctx context.Context, msg inboundMessage) {
	if msg.Username == "" {
		c.reply("error", map[string]string{"reason": "USERNAME_REQUIRED"})
		return
	}

	user, err := c.hub.store.GetOrCreateUser(ctx, msg.Username, msg.Demo)
	if err != nil {
		log.Printf("❌ Join failed for %s: %v", msg.Username, err)
		c.replyError(err)
		return
	}
	c.user = &user

	c.hub.mu.Lock()
	history := make([]ChatMessage, len(c.hub.chatHistory))
	copy(history, c.hub.chatHistory)
	c.hub.mu.Unlock()

	tableHistory, err := c.hub.store.RecentHistory(ctx, config.HistoryLimit)
	if err != nil {
		log.Printf("⚠️ Failed to load round history for %s: %v", msg.Username, err)
	}

	c.reply("joined", map[string]any{
		"user":          user,
		"game":          c.hub.engine.Info(),
		"chat_history":  history,
		"table_history": tableHistory,
	})
}

func (c *Client) handlePlaceBet(ctx context.Context, msg inboundMessage) {
	if c.user == nil {
		c.reply("error", map[string]string{"reason": "NOT_JOINED"})
		return
	}

	info, err := c.hub.store.SyncInfo(ctx)
	if err != nil {
		c.replyError(err)
		return
	}

	if msg.Bet < 0 || msg.ExtraBet < 0 ||
		msg.Bet%config.BetStep != 0 || msg.ExtraBet%config.BetStep != 0 {
		c.replyError(game.ErrPlaceBet)
		return
	}
	if msg.Bet > 0 && (msg.Bet < info.MinBetAmount || msg.Bet > info.MaxBetAmount) {
		c.replyError(game.ErrPlaceBet)
		return
	}
	if msg.ExtraBet > 0 && (msg.ExtraBet < info.MinExtraBetAmount || msg.ExtraBet > info.MaxExtraBetAmount) {
		c.replyError(game.ErrPlaceBet)
		return
	}

	ranges, err := c.resolveRanges(ctx, msg.RangeBets, info)
	if err != nil {
		c.replyError(err)
		return
	}

	u := game.User{ID: c.user.ID, Username: c.user.Username, Demo: c.user.Demo}
	if err := c.hub.engine.PlaceBet(ctx, u, msg.Bet, msg.ExtraBet, msg.AutoCashOut, ranges); err != nil {
		c.replyError(err)
		return
	}

	balance, err := c.hub.store.Balance(ctx, c.user.ID)
	if err == nil {
		c.user.BalanceSatoshis = balance
	}
	c.reply("bet_placed", map[string]any{"balance_satoshis": c.user.BalanceSatoshis})
}

// resolveRanges maps the requested range ids onto the configured
// table, attaching the staked amounts.
func (c *Client) resolveRanges(ctx context.Context, requested map[string]int64, info game.SyncInfo) ([]game.RangeBet, error) {
	if len(requested) == 0 {
		return nil, nil
	}

	table, err := c.hub.store.RangeTable(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]game.RangeInfo, len(table))
	for _, ri := range table {
		byID[ri.ID] = ri
	}

	var ranges []game.RangeBet
	for idStr, amount := range requested {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, game.ErrNoRange
		}
		ri, ok := byID[id]
		if !ok {
			return nil, game.ErrNoRange
		}
		if amount < info.MinRangeBetAmount || amount > info.MaxRangeBetAmount ||
			amount%config.BetStep != 0 {
			return nil, game.ErrPlaceBet
		}
		ranges = append(ranges, game.RangeBet{
			ID:         ri.ID,
			From:       ri.From,
			To:         ri.To,
			Multiplier: ri.Multiplier,
			Amount:     amount,
		})
	}
	return ranges, nil
}

// cashOutOnLeave tries to cash the player out when the connection
// drops mid-round. Best effort: most of the time there is no live bet
// and the engine just says so.
func (c *Client) cashOutOnLeave() {
	if c.user == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.hub.engine.CashOut(ctx, c.user.Username); err != nil &&
		!errors.Is(err, game.ErrGameNotInProgress) && !errors.Is(err, game.ErrNoBetPlaced) {
		log.Printf("⚠️ Cashout on disconnect for %s: %v", c.user.Username, err)
	}
}

func (c *Client) handleCashOut(ctx context.Context) {
	if c.user == nil {
		c.reply("error", map[string]string{"reason": "NOT_JOINED"})
		return
	}
	if err := c.hub.engine.CashOut(ctx, c.user.Username); err != nil {
		c.replyError(err)
	}
}

func (c *Client) handleSay(msg inboundMessage) {
	if c.user == nil {
		c.reply("error", map[string]string{"reason": "NOT_JOINED"})
		return
	}
	if msg.Message == "" || len(msg.Message) > 500 {
		c.reply("error", map[string]string{"reason": "BAD_MESSAGE"})
		return
	}

	if msg.Message == "/shutdown" && c.user.Userclass == "admin" {
		log.Printf("🛑 Shutdown requested by %s", c.user.Username)
		c.hub.engine.Shutdown()
		return
	}

	chat := ChatMessage{
		Type:      "say",
		Username:  c.user.Username,
		Message:   msg.Message,
		Timestamp: time.Now(),
	}

	c.hub.mu.Lock()
	c.hub.addChatMessage(chat)
	c.hub.mu.Unlock()

	c.hub.Broadcast(chat)
}
