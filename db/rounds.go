package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"goCrashServer/game"
)

const (
	gamesTable  = "games"
	hashesTable = "game_hashes"
)

// HistoryRecord is one finished round as served by the history API.
type HistoryRecord struct {
	GameID    int64     `json:"game_id"`
	GameCrash int64     `json:"game_crash"`
	Hash      string    `json:"hash"`
	Created   time.Time `json:"created"`
}

// CreateRound allocates the next round id, draws its precomputed hash
// and derives the crash point. With interval mode on, the weighted
// table is validated before use and a broken table fails the round
// creation outright.
func (s *Store) CreateRound(ctx context.Context, forceZero bool) (game.RoundRecord, error) {
	var rec game.RoundRecord

	err := s.inTx(ctx, func(ctx context.Context) error {
		var nextID int64
		if err := s.db(ctx).QueryRow(ctx,
			`SELECT COALESCE(MAX(id), 0) + 1 FROM games`).Scan(&nextID); err != nil {
			return fmt.Errorf("failed to allocate game id: %w", err)
		}

		hash, err := s.GameHash(ctx, nextID)
		if err != nil {
			return err
		}

		crashPoint, err := s.deriveCrashPoint(ctx, hash)
		if err != nil {
			return err
		}
		if forceZero {
			crashPoint = 0
		}

		sqlStr, args, err := psql.Insert(gamesTable).
			Columns("id", "hash", "game_crash").
			Values(nextID, hash, crashPoint).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := s.db(ctx).Exec(ctx, sqlStr, args...); err != nil {
			return fmt.Errorf("failed to insert game %d: %w", nextID, err)
		}

		rec = game.RoundRecord{ID: nextID, Hash: hash, CrashPoint: crashPoint}
		return nil
	})
	return rec, err
}

func (s *Store) deriveCrashPoint(ctx context.Context, hash string) (int64, error) {
	mode, err := s.setting(ctx, "interval_status", "off")
	if err != nil {
		return 0, err
	}
	if mode != "on" && mode != "1" {
		return game.CrashPointFromHash(hash), nil
	}

	table, err := s.IntervalTable(ctx)
	if err != nil {
		return 0, err
	}
	if err := game.ValidateIntervals(table); err != nil {
		return 0, err
	}
	return game.CrashPointFromHashWeighted(hash, table), nil
}

// GameHash returns the chain hash reserved for the given round.
func (s *Store) GameHash(ctx context.Context, gameID int64) (string, error) {
	sqlStr, args, err := psql.Select("hash").
		From(hashesTable).
		Where(sq.Eq{"game_id": gameID}).
		ToSql()
	if err != nil {
		return "", err
	}

	var hash string
	err = s.db(ctx).QueryRow(ctx, sqlStr, args...).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", game.ErrNoGameHash
	}
	if err != nil {
		return "", fmt.Errorf("failed to read hash for game %d: %w", gameID, err)
	}
	return hash, nil
}

// InsertGameHashes loads a hash chain into game_hashes, assigning
// consecutive game ids starting after the highest one present.
func (s *Store) InsertGameHashes(ctx context.Context, chain []string) error {
	return s.inTx(ctx, func(ctx context.Context) error {
		var lastID int64
		if err := s.db(ctx).QueryRow(ctx,
			`SELECT COALESCE(MAX(game_id), 0) FROM game_hashes`).Scan(&lastID); err != nil {
			return fmt.Errorf("failed to read last hash id: %w", err)
		}

		builder := psql.Insert(hashesTable).Columns("game_id", "hash")
		for i, hash := range chain {
			builder = builder.Values(lastID+int64(i)+1, hash)
		}

		sqlStr, args, err := builder.ToSql()
		if err != nil {
			return err
		}
		if _, err := s.db(ctx).Exec(ctx, sqlStr, args...); err != nil {
			return fmt.Errorf("failed to insert game hashes: %w", err)
		}
		return nil
	})
}

// RecentHistory returns the latest finished rounds, newest first. The
// Redis list is tried first; on a miss the rounds come from Postgres
// and refill the cache.
func (s *Store) RecentHistory(ctx context.Context, limit int64) ([]HistoryRecord, error) {
	if cached, err := s.CachedHistory(ctx, limit); err == nil && len(cached) > 0 {
		return cached, nil
	}

	sqlStr, args, err := psql.Select("id", "game_crash", "hash", "created").
		From(gamesTable).
		Where(sq.Eq{"ended": true}).
		OrderBy("id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db(ctx).Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read game history: %w", err)
	}
	defer rows.Close()

	var records []HistoryRecord
	for rows.Next() {
		var rec HistoryRecord
		if err := rows.Scan(&rec.GameID, &rec.GameCrash, &rec.Hash, &rec.Created); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := len(records) - 1; i >= 0; i-- {
		s.PushHistory(ctx, records[i])
	}
	return records, nil
}
