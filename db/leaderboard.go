package db

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// LeaderboardEntry is one row of the winners board.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	Username    string `json:"username"`
	GrossProfit int64  `json:"gross_profit"`
	NetProfit   int64  `json:"net_profit"`
}

// Leaderboard returns the top real-money winners by gross profit.
func (s *Store) Leaderboard(ctx context.Context, limit uint64) ([]LeaderboardEntry, error) {
	sqlStr, args, err := psql.Select("username", "gross_profit", "net_profit").
		From(usersTable).
		Where(sq.Eq{"demo": false}).
		Where(sq.Gt{"gross_profit": 0}).
		OrderBy("gross_profit DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db(ctx).Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.GrossProfit, &e.NetProfit); err != nil {
			return nil, err
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
