package db

import (
	"context"
	"fmt"
	"log"

	sq "github.com/Masterminds/squirrel"

	"goCrashServer/game"
)

const playsTable = "plays"

// PlaceBet debits the full stake and records the play rows in one
// transaction. The balance guard makes an overdraft impossible: when
// it rejects the debit the caller gets ErrNotEnoughMoney. Range bets
// produce one play row per selected range; the returned id is the
// first row's.
func (s *Store) PlaceBet(ctx context.Context, roundID int64, u game.User, bet, extraBet, autoCashOut int64, ranges []game.RangeBet) (int64, error) {
	var playID int64

	err := s.inTx(ctx, func(ctx context.Context) error {
		var userclass string
		var demo bool
		if err := s.db(ctx).QueryRow(ctx,
			`SELECT userclass, demo FROM users WHERE id = $1`, u.ID).Scan(&userclass, &demo); err != nil {
			return fmt.Errorf("failed to read user %d: %w", u.ID, err)
		}
		// House accounts always play with demo money.
		if userclass == "admin" || userclass == "staff" {
			demo = true
		}

		total := bet + extraBet
		for _, rb := range ranges {
			total += rb.Amount
		}

		tag, err := s.db(ctx).Exec(ctx,
			`UPDATE users SET balance_satoshis = balance_satoshis - $1
			 WHERE id = $2 AND balance_satoshis >= $1`, total, u.ID)
		if err != nil {
			if checkViolation(err) {
				return game.ErrNotEnoughMoney
			}
			return fmt.Errorf("failed to debit user %d: %w", u.ID, err)
		}
		if tag.RowsAffected() != 1 {
			return game.ErrNotEnoughMoney
		}

		insert := func(rb game.RangeBet) (int64, error) {
			sqlStr, args, err := psql.Insert(playsTable).
				Columns("user_id", "game_id", "bet", "extra_bet",
					"range_bet_amount", "range_from", "range_to", "range_bet_multiplier", "range_id",
					"auto_cash_out", "demo").
				Values(u.ID, roundID, bet, extraBet,
					rb.Amount, rb.From, rb.To, rb.Multiplier, rb.ID,
					autoCashOut, demo).
				Suffix("RETURNING id").
				ToSql()
			if err != nil {
				return 0, err
			}

			var id int64
			if err := s.db(ctx).QueryRow(ctx, sqlStr, args...).Scan(&id); err != nil {
				return 0, fmt.Errorf("failed to insert play: %w", err)
			}
			return id, nil
		}

		if len(ranges) == 0 {
			playID, err = insert(game.RangeBet{ID: -1, From: -1, To: -1})
			return err
		}

		for i, rb := range ranges {
			id, err := insert(rb)
			if err != nil {
				return err
			}
			if i == 0 {
				playID = id
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return playID, nil
}

// CashOut stamps the play with its payout. The cash_out = 0 guard
// makes the operation idempotent; a second attempt hits zero rows and
// reports ErrAlreadyCashedOut. Balances move at settlement, not here.
func (s *Store) CashOut(ctx context.Context, userID, playID, won, extraPayout int64, extraSuccess, demo bool) error {
	sqlStr, args, err := psql.Update(playsTable).
		Set("cash_out", won+extraPayout).
		Set("extra_bet_success", extraSuccess).
		Where(sq.Eq{"id": playID}).
		Where(sq.Eq{"cash_out": 0}).
		ToSql()
	if err != nil {
		return err
	}

	tag, err := s.db(ctx).Exec(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("failed to cash out play %d: %w", playID, err)
	}
	if tag.RowsAffected() != 1 {
		log.Printf("⚠️ Double cashout? user:%d play:%d amount:%d", userID, playID, won+extraPayout)
		return game.ErrAlreadyCashedOut
	}
	return nil
}
