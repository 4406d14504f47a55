package game

// Event types emitted by the engine, in the order a round produces them.
const (
	EvGameStarting    = "game_starting"
	EvGameStarted     = "game_started"
	EvGameTick        = "game_tick"
	EvGameCrash       = "game_crash"
	EvPlayerBet       = "player_bet"
	EvCashedOut       = "cashed_out"
	EvAddSatoshis     = "add_satoshis"
	EvUpdateBankroll  = "update_bankroll"
	EvUpdateBetInfo   = "update_bet_info"
	EvUpdateRangeInfo = "update_range_info"
	EvShuttingDown    = "shutting_down"
	EvShutdown        = "shutdown"
)

// Event is one outbound engine notification. Data is a payload struct
// from this package, chosen by Type.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type GameStartingPayload struct {
	RoundID       int64 `json:"game_id"`
	MaxWin        int64 `json:"max_win"`
	TimeTillStart int64 `json:"time_till_start"`
}

type GameStartedPayload struct {
	Bets      map[string]int64      `json:"bets"`
	ExtraBets map[string]int64      `json:"extraBets"`
	RangeBets map[string][]RangeBet `json:"rangeBets"`
	Demos     map[string]bool       `json:"demos"`
}

type GameTickPayload struct {
	ElapsedMs int64 `json:"elapsed"`
	At        int64 `json:"at"`
}

type GameCrashPayload struct {
	Forced    bool   `json:"forced"`
	ElapsedMs int64  `json:"elapsed"`
	GameCrash int64  `json:"game_crash"`
	Hash      string `json:"hash"`
}

type PlayerBetPayload struct {
	Username string `json:"username"`
	Index    int    `json:"index"`
	Demo     bool   `json:"demo"`
}

type CashedOutPayload struct {
	Username     string `json:"username"`
	StoppedAt    int64  `json:"stopped_at"`
	ExtraSuccess bool   `json:"extraSuccess"`
	AddBits      int64  `json:"add_bits"`
}

type UpdateBankrollPayload struct {
	Bankroll int64 `json:"bankroll"`
	DemoPool int64 `json:"fakepool"`
}
