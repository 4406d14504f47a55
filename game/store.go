package game

import "context"

// RoundRecord is a freshly created round: its id, the hash drawn from
// the precomputed chain and the crash point derived from it.
type RoundRecord struct {
	ID         int64
	Hash       string
	CrashPoint int64
}

// Store is the persistence the engine needs. db.Store implements it on
// Postgres with a Redis cache in front of the hot settings.
type Store interface {
	// CreateRound allocates the next round, draws its hash from the
	// chain and derives the crash point. forceZero overrides the
	// derived point with an instant crash.
	CreateRound(ctx context.Context, forceZero bool) (RoundRecord, error)

	// MaxProfitPercent is the configured per-round risk percentage.
	MaxProfitPercent(ctx context.Context) (float64, error)

	// Bankroll is the real money pool backing payouts.
	Bankroll(ctx context.Context) (int64, error)

	// DemoPool is the play-money pool backing demo accounts.
	DemoPool(ctx context.Context) (int64, error)

	// SyncInfo returns the current bet limits and display flags.
	SyncInfo(ctx context.Context) (SyncInfo, error)

	// RangeTable returns the configured range-bet slots.
	RangeTable(ctx context.Context) ([]RangeInfo, error)

	// ExtraBetMultiplier is the payout factor of the instant-crash side
	// bet.
	ExtraBetMultiplier(ctx context.Context) (int64, error)

	// PlaceBet debits the stake and records the play, both in one
	// transaction. Returns ErrNotEnoughMoney when the balance guard
	// rejects the debit.
	PlaceBet(ctx context.Context, roundID int64, u User, bet, extraBet, autoCashOut int64, ranges []RangeBet) (playID int64, err error)

	// CashOut stamps the play with its payout. won is the main-bet
	// payout, extraPayout the side-bet payout. The balance moves at
	// settlement. Returns ErrAlreadyCashedOut on a second stamp.
	CashOut(ctx context.Context, userID, playID, won, extraPayout int64, extraSuccess, demo bool) error

	// SettleRound closes the round's books: fills winning range bets,
	// computes commission legs for every play and applies all balance
	// movements. Returns the per-player breakdown for broadcast.
	SettleRound(ctx context.Context, roundID, crashPoint, extraBetMultiplier int64) (ProfitMap, error)
}
