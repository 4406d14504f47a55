package config

import "time"

/* =========================
   GAME MECHANICS - CRASH
========================= */

const (
	// Round timing
	TickInterval   = 150 * time.Millisecond // multiplier broadcast cadence
	RestartTime    = 8 * time.Second        // betting window before lift-off
	BlockingPoll   = 100 * time.Millisecond // recheck cadence for pending joins
	AfterCrashTime = 3 * time.Second        // pause between crash and next round
	CreateRetry    = 2 * time.Second        // wait before retrying round creation
	SettleWarn     = 1 * time.Second        // heartbeat while settlement runs

	// Emergency cashout fan-out
	CashOutWorkers = 4

	// Engine event channel capacity
	EventBuffer = 256

	// Bets and auto-cashouts are multiples of this
	BetStep = 100
)

/* =========================
   FAIRNESS
========================= */

const (
	// Precomputed hash chain loaded by cmd/seedhashes
	DefaultHashChainLength = 1000000
)

/* =========================
   HTTP / WEBSOCKET
========================= */

const (
	DefaultListenAddr = ":8080"

	WSReadBufferSize  = 1024
	WSWriteBufferSize = 1024
	WSWriteDeadline   = 10 * time.Second
	WSPongWait        = 60 * time.Second
	WSPingPeriod      = 54 * time.Second

	// Chat lines replayed to a fresh connection
	MaxChatHistory = 100

	// Rounds returned by the history API
	HistoryLimit = 50

	// Winners shown on the leaderboard
	LeaderboardSize = 5
)
