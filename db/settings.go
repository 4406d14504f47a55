package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"goCrashServer/game"
)

const (
	settingsTable = "settings"
	colName       = "name"
	colValue      = "value"
)

// setting reads one named setting, falling back to def when the row is
// missing. Values go through the Redis cache.
func (s *Store) setting(ctx context.Context, name, def string) (string, error) {
	return s.cachedSetting(ctx, name, func(ctx context.Context) (string, error) {
		query := psql.Select(colValue).From(settingsTable).Where(sq.Eq{colName: name})

		sqlStr, args, err := query.ToSql()
		if err != nil {
			return "", err
		}

		var val string
		err = s.db(ctx).QueryRow(ctx, sqlStr, args...).Scan(&val)
		if errors.Is(err, pgx.ErrNoRows) {
			return def, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to read setting %s: %w", name, err)
		}
		return val, nil
	})
}

func (s *Store) settingInt64(ctx context.Context, name string, def int64) (int64, error) {
	val, err := s.setting(ctx, name, strconv.FormatInt(def, 10))
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("setting %s is not an integer: %q", name, val)
	}
	return n, nil
}

func (s *Store) settingFloat(ctx context.Context, name string, def float64) (float64, error) {
	val, err := s.setting(ctx, name, strconv.FormatFloat(def, 'f', -1, 64))
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("setting %s is not a number: %q", name, val)
	}
	return f, nil
}

// SetSetting upserts a named setting and drops its cache entry.
func (s *Store) SetSetting(ctx context.Context, name, value string) error {
	sqlStr, args, err := psql.Insert(settingsTable).
		Columns(colName, colValue).
		Values(name, value).
		Suffix("ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value").
		ToSql()
	if err != nil {
		return err
	}

	if _, err := s.db(ctx).Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("failed to set setting %s: %w", name, err)
	}

	if s.cache != nil {
		s.cache.Del(ctx, fmt.Sprintf(settingCacheKey, name))
	}
	return nil
}

// MaxProfitPercent is the per-round risk percentage of the bankroll.
func (s *Store) MaxProfitPercent(ctx context.Context) (float64, error) {
	return s.settingFloat(ctx, "max_profit", 3)
}

// ExtraBetMultiplier is the payout factor of the instant-crash side bet.
func (s *Store) ExtraBetMultiplier(ctx context.Context) (int64, error) {
	return s.settingInt64(ctx, "extrabet_multiplier", 2)
}

// SyncInfo assembles the bet limits and display flags pushed to clients
// at every round transition.
func (s *Store) SyncInfo(ctx context.Context) (game.SyncInfo, error) {
	var info game.SyncInfo
	var err error

	read := func(dst *int64, name string, def int64) {
		if err != nil {
			return
		}
		*dst, err = s.settingInt64(ctx, name, def)
	}

	read(&info.MinBetAmount, "min_bet_amount", 100)
	read(&info.MaxBetAmount, "max_bet_amount", 100000000)
	read(&info.MinExtraBetAmount, "min_extra_bet_amount", 100)
	read(&info.MaxExtraBetAmount, "max_extra_bet_amount", 10000000)
	read(&info.ExtraBetMultiplier, "extrabet_multiplier", 2)
	read(&info.MinRangeBetAmount, "min_range_bet_amount", 100)
	read(&info.MaxRangeBetAmount, "max_range_bet_amount", 10000000)
	if err != nil {
		return game.SyncInfo{}, err
	}

	if info.BetMode, err = s.setting(ctx, "bet_mode", "normal"); err != nil {
		return game.SyncInfo{}, err
	}
	if info.BetModeMobile, err = s.setting(ctx, "bet_mode_mobile", "normal"); err != nil {
		return game.SyncInfo{}, err
	}

	showHash, err := s.setting(ctx, "show_hash", "true")
	if err != nil {
		return game.SyncInfo{}, err
	}
	info.ShowHash = showHash == "true" || showHash == "1"

	return info, nil
}

// CommissionPercents is the configured multi-tier commission split.
func (s *Store) CommissionPercents(ctx context.Context) (game.CommissionPercents, error) {
	var pct game.CommissionPercents
	var err error

	read := func(dst *float64, name string) {
		if err != nil {
			return
		}
		*dst, err = s.settingFloat(ctx, name, 0)
	}

	read(&pct.Staff, "staff_percent")
	read(&pct.MasterIB, "master_ib_percent")
	read(&pct.Agent, "agent_percent")
	read(&pct.Parent1, "parent1_percent")
	read(&pct.Parent2, "parent2_percent")
	read(&pct.Parent3, "parent3_percent")
	if err != nil {
		return game.CommissionPercents{}, err
	}
	return pct, nil
}

// NoCommissionBand is the multiplier band whose plays earn no
// commission legs. The -1 defaults disable the band entirely.
func (s *Store) NoCommissionBand(ctx context.Context) (game.Band, error) {
	from, err := s.settingFloat(ctx, "no_commission_from", -1)
	if err != nil {
		return game.Band{}, err
	}
	to, err := s.settingFloat(ctx, "no_commission_to", -1)
	if err != nil {
		return game.Band{}, err
	}
	return game.Band{From: from, To: to}, nil
}

// Bankroll is the real money pool: all fundings minus all real
// balances, plus the operator's gaming pool top-up.
func (s *Store) Bankroll(ctx context.Context) (int64, error) {
	const q = `
		SELECT COALESCE((SELECT SUM(amount) FROM fundings), 0)
		     - COALESCE((SELECT SUM(balance_satoshis) FROM users WHERE demo = FALSE), 0)`

	var bankroll int64
	if err := s.db(ctx).QueryRow(ctx, q).Scan(&bankroll); err != nil {
		return 0, fmt.Errorf("failed to compute bankroll: %w", err)
	}

	pool, err := s.settingInt64(ctx, "add_gaming_pool", 0)
	if err != nil {
		return 0, err
	}
	return bankroll + pool, nil
}

// DemoPool is the play-money pool: the configured demo deposit minus
// all demo balances.
func (s *Store) DemoPool(ctx context.Context) (int64, error) {
	deposit, err := s.settingInt64(ctx, "deposit_fakepool", 0)
	if err != nil {
		return 0, err
	}

	const q = `SELECT COALESCE(SUM(balance_satoshis), 0) FROM users WHERE demo = TRUE`

	var balances int64
	if err := s.db(ctx).QueryRow(ctx, q).Scan(&balances); err != nil {
		return 0, fmt.Errorf("failed to compute demo pool: %w", err)
	}
	return deposit - balances, nil
}

// RangeTable returns the enabled range-bet slots.
func (s *Store) RangeTable(ctx context.Context) ([]game.RangeInfo, error) {
	sqlStr, args, err := psql.Select("id", "range_from", "range_to", "range_multiplier").
		From("range_bet").
		Where(sq.Eq{"enabled": true}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db(ctx).Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read range table: %w", err)
	}
	defer rows.Close()

	var table []game.RangeInfo
	for rows.Next() {
		var ri game.RangeInfo
		if err := rows.Scan(&ri.ID, &ri.From, &ri.To, &ri.Multiplier); err != nil {
			return nil, err
		}
		table = append(table, ri)
	}
	return table, rows.Err()
}

// IntervalTable returns the weighted crash-point table in row order.
func (s *Store) IntervalTable(ctx context.Context) ([]game.IntervalRow, error) {
	sqlStr, args, err := psql.Select("interval_start", "interval_end", "percentage").
		From("intervals").
		OrderBy("interval_start").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db(ctx).Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read intervals: %w", err)
	}
	defer rows.Close()

	var table []game.IntervalRow
	for rows.Next() {
		var row game.IntervalRow
		if err := rows.Scan(&row.Start, &row.End, &row.Weight); err != nil {
			return nil, err
		}
		table = append(table, row)
	}
	return table, rows.Err()
}
