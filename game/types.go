package game

import "time"

// All money amounts are integer satoshis. All multipliers are integers
// scaled by 100, so 1.57x is 157 and an instant crash is 0.

// State is the lifecycle state of a round.
type State string

const (
	StateStarting   State = "STARTING"
	StateBlocking   State = "BLOCKING"
	StateInProgress State = "IN_PROGRESS"
	StateEnded      State = "ENDED"
)

// PlayStatus is the per-player status inside a running round.
type PlayStatus string

const (
	StatusPlaying   PlayStatus = "PLAYING"
	StatusCashedOut PlayStatus = "CASHED_OUT"
)

// User identifies a bettor as the boundary hands it to the engine.
type User struct {
	ID       int64
	Username string
	Demo     bool
}

// RangeBet is a side bet that pays when the crash point lands inside
// [From, To]. Amount is the stake, Multiplier the payout factor.
type RangeBet struct {
	ID         int64 `json:"id"`
	From       int64 `json:"range_from"`
	To         int64 `json:"range_to"`
	Multiplier int64 `json:"range_multiplier"`
	Amount     int64 `json:"amount"`
}

// Play is one admitted bet in the current round.
type Play struct {
	User        User
	PlayID      int64
	Bet         int64
	ExtraBet    int64
	RangeBets   []RangeBet
	AutoCashOut int64
	Status      PlayStatus
	StoppedAt   int64
}

// TotalRangeAmount sums the range stakes of the play.
func (p *Play) TotalRangeAmount() int64 {
	var total int64
	for _, rb := range p.RangeBets {
		total += rb.Amount
	}
	return total
}

// RangeInfo is a configured range-bet slot shown to clients.
type RangeInfo struct {
	ID         int64 `json:"id"`
	From       int64 `json:"range_from"`
	To         int64 `json:"range_to"`
	Multiplier int64 `json:"range_multiplier"`
}

// SyncInfo carries the bet limits and display flags that get pushed to
// clients at every round transition.
type SyncInfo struct {
	MinBetAmount       int64  `json:"min_bet_amount"`
	MaxBetAmount       int64  `json:"max_bet_amount"`
	MinExtraBetAmount  int64  `json:"min_extra_bet_amount"`
	MaxExtraBetAmount  int64  `json:"max_extra_bet_amount"`
	ExtraBetMultiplier int64  `json:"extrabet_multiplier"`
	MinRangeBetAmount  int64  `json:"min_range_bet_amount"`
	MaxRangeBetAmount  int64  `json:"max_range_bet_amount"`
	BetMode            string `json:"bet_mode"`
	BetModeMobile      string `json:"bet_mode_mobile"`
	ShowHash           bool   `json:"show_hash"`
}

// RoundInfo is the public snapshot of the current round.
type RoundInfo struct {
	RoundID    int64                 `json:"game_id"`
	State      State                 `json:"state"`
	LastHash   string                `json:"last_hash"`
	MaxWin     int64                 `json:"max_win"`
	ElapsedMs  int64                 `json:"elapsed"`
	Created    time.Time             `json:"created"`
	CrashedAt  int64                 `json:"crashed_at,omitempty"`
	Joined     []string              `json:"joined"`
	PlayerInfo map[string]PlayerInfo `json:"player_info"`
}

// PlayerInfo is the per-player slice of a RoundInfo snapshot.
type PlayerInfo struct {
	Bet       int64      `json:"bet"`
	ExtraBet  int64      `json:"extra_bet"`
	RangeBets []RangeBet `json:"range_bets,omitempty"`
	Demo      bool       `json:"demo"`
	StoppedAt int64      `json:"stopped_at,omitempty"`
}

// IntervalRow is one row of the weighted crash-point table. Weights are
// scaled by 100 and must sum to 10000 across the table.
type IntervalRow struct {
	Start  int64 `json:"interval_start" yaml:"start"`
	End    int64 `json:"interval_end" yaml:"end"`
	Weight int64 `json:"percentage" yaml:"weight"`
}
