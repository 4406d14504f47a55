package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"goCrashServer/game"
)

// SettleRound closes the round's books inside one retried transaction:
// marks the game ended, fills winning range bets, computes the
// commission legs for every play and applies all balance movements.
// The returned map carries each player's breakdown for broadcast.
func (s *Store) SettleRound(ctx context.Context, roundID, crashPoint, extraBetMultiplier int64) (game.ProfitMap, error) {
	pct, err := s.CommissionPercents(ctx)
	if err != nil {
		return nil, err
	}
	band, err := s.NoCommissionBand(ctx)
	if err != nil {
		return nil, err
	}

	profit := make(game.ProfitMap)

	err = s.inTx(ctx, func(ctx context.Context) error {
		var companyTotal, staffTotal int64

		// Winning range bets get their payout stamped first so the
		// per-play pass below sees them as cashed out.
		if _, err := s.db(ctx).Exec(ctx,
			`UPDATE plays SET cash_out = range_bet_amount * range_bet_multiplier
			 WHERE game_id = $1 AND bet = 0 AND extra_bet = 0
			   AND $2 BETWEEN range_from AND range_to`, roundID, crashPoint); err != nil {
			return fmt.Errorf("failed to fill range bets: %w", err)
		}

		plays, err := s.roundPlays(ctx, roundID)
		if err != nil {
			return err
		}

		forbidden := game.ForbiddenSet(plays, crashPoint, band)

		for _, p := range plays {
			b := game.SettleBet(p, crashPoint, pct, forbidden, extraBetMultiplier)

			// Every leg lands on the play row before any balance moves,
			// so the books always show who earned what on which play.
			// Recipients are the lineage columns of the play's user.
			if _, err := s.db(ctx).Exec(ctx,
				`UPDATE plays SET
					profit_for_player = $1,
					profit_for_company = $2,
					profit_for_staff = $3,
					profit_for_master_ib = $4,
					profit_for_agent = $5,
					profit_for_parent1 = $6,
					profit_for_parent2 = $7,
					profit_for_parent3 = $8
				 WHERE id = $9`,
				b.PlayerProfit, b.Company, b.Staff, b.MasterIB, b.Agent,
				b.Parent1, b.Parent2, b.Parent3, p.PlayID); err != nil {
				return fmt.Errorf("failed to record legs for play %d: %w", p.PlayID, err)
			}

			if _, err := s.db(ctx).Exec(ctx,
				`UPDATE users SET
					balance_satoshis = balance_satoshis + $1,
					gross_profit = gross_profit + GREATEST($2, 0),
					net_profit = net_profit + $2,
					agent_profit = agent_profit + $3
				 WHERE id = $4`,
				b.PlayerCredit, b.PlayerProfit, b.Agent, p.UserID); err != nil {
				return fmt.Errorf("failed to credit user %d: %w", p.UserID, err)
			}

			// Demo plays keep the bookkeeping but move no house money.
			if !b.Demo {
				companyTotal += b.Company
				staffTotal += b.Staff

				legs := []struct {
					username string
					amount   int64
				}{
					{b.Lineage.MasterIB, b.MasterIB},
					{b.Lineage.Parent1, b.Parent1},
					{b.Lineage.Parent2, b.Parent2},
					{b.Lineage.Parent3, b.Parent3},
				}
				for _, leg := range legs {
					if leg.amount == 0 || leg.username == "" {
						continue
					}
					credited, err := s.creditReferral(ctx, leg.username, leg.amount)
					if err != nil {
						return err
					}
					if !credited {
						log.Printf("⚠️ Referral %s has no account, leg of %d goes to company", leg.username, leg.amount)
						companyTotal += leg.amount
					}
				}
			}

			if prev, ok := profit[p.Username]; ok {
				b = mergeBreakdowns(prev, b)
			}
			profit[p.Username] = b
		}

		if _, err := s.db(ctx).Exec(ctx,
			`UPDATE games SET ended = TRUE, game_crash = $1,
				company_profit = $2, staff_profit = $3
			 WHERE id = $4`, crashPoint, companyTotal, staffTotal, roundID); err != nil {
			return fmt.Errorf("failed to end game %d: %w", roundID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	hash, err := s.GameHash(ctx, roundID)
	if err == nil {
		s.PushHistory(ctx, HistoryRecord{
			GameID:    roundID,
			GameCrash: crashPoint,
			Hash:      hash,
			Created:   time.Now(),
		})
	}

	return profit, nil
}

// roundPlays loads every play of the round with the player's class and
// referral lineage.
func (s *Store) roundPlays(ctx context.Context, roundID int64) ([]game.PlayRow, error) {
	const q = `
		SELECT p.id, p.user_id, u.username, u.userclass,
		       p.bet, p.extra_bet, p.range_bet_amount,
		       p.auto_cash_out, p.cash_out, p.demo,
		       COALESCE(u.master_ib, ''), COALESCE(u.parent1, ''),
		       COALESCE(u.parent2, ''), COALESCE(u.parent3, '')
		FROM plays p
		JOIN users u ON u.id = p.user_id
		WHERE p.game_id = $1
		ORDER BY p.id`

	rows, err := s.db(ctx).Query(ctx, q, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to load plays for game %d: %w", roundID, err)
	}
	defer rows.Close()

	var plays []game.PlayRow
	for rows.Next() {
		var p game.PlayRow
		if err := rows.Scan(&p.PlayID, &p.UserID, &p.Username, &p.Userclass,
			&p.Bet, &p.ExtraBet, &p.RangeBetAmount,
			&p.AutoCashOut, &p.CashOut, &p.Demo,
			&p.Lineage.MasterIB, &p.Lineage.Parent1,
			&p.Lineage.Parent2, &p.Lineage.Parent3); err != nil {
			return nil, err
		}
		plays = append(plays, p)
	}
	return plays, rows.Err()
}

// creditReferral pays a commission leg to the named upline account.
// Reports whether an account was actually credited; the caller
// redirects the leg to the company when the recipient does not exist.
func (s *Store) creditReferral(ctx context.Context, username string, amount int64) (bool, error) {
	tag, err := s.db(ctx).Exec(ctx,
		`UPDATE users SET
			balance_satoshis = balance_satoshis + $1,
			agent_profit = agent_profit + $1
		 WHERE username = $2`, amount, username)
	if err != nil {
		return false, fmt.Errorf("failed to credit referral %s: %w", username, err)
	}
	return tag.RowsAffected() > 0, nil
}

// mergeBreakdowns folds a second play of the same player (multi-range
// bets) into one broadcast entry.
func mergeBreakdowns(a, b game.Breakdown) game.Breakdown {
	a.PlayerCredit += b.PlayerCredit
	a.PlayerProfit += b.PlayerProfit
	a.Company += b.Company
	a.Staff += b.Staff
	a.Agent += b.Agent
	a.MasterIB += b.MasterIB
	a.Parent1 += b.Parent1
	a.Parent2 += b.Parent2
	a.Parent3 += b.Parent3
	return a
}
