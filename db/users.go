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

const usersTable = "users"

// UserRecord is a full user row as the boundary needs it.
type UserRecord struct {
	ID              int64  `json:"id"`
	Username        string `json:"username"`
	Userclass       string `json:"userclass"`
	BalanceSatoshis int64  `json:"balance_satoshis"`
	Demo            bool   `json:"demo"`
}

// GetUser looks a user up by name.
func (s *Store) GetUser(ctx context.Context, username string) (UserRecord, error) {
	sqlStr, args, err := psql.Select("id", "username", "userclass", "balance_satoshis", "demo").
		From(usersTable).
		Where(sq.Eq{"username": username}).
		ToSql()
	if err != nil {
		return UserRecord{}, err
	}

	var u UserRecord
	err = s.db(ctx).QueryRow(ctx, sqlStr, args...).
		Scan(&u.ID, &u.Username, &u.Userclass, &u.BalanceSatoshis, &u.Demo)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserRecord{}, err
	}
	if err != nil {
		return UserRecord{}, fmt.Errorf("failed to read user %s: %w", username, err)
	}
	return u, nil
}

// GetOrCreateUser returns the named user, creating a fresh account on
// first contact.
func (s *Store) GetOrCreateUser(ctx context.Context, username string, demo bool) (UserRecord, error) {
	u, err := s.GetUser(ctx, username)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return UserRecord{}, err
	}

	sqlStr, args, err := psql.Insert(usersTable).
		Columns("username", "demo").
		Values(username, demo).
		Suffix("ON CONFLICT (username) DO UPDATE SET username = EXCLUDED.username RETURNING id, username, userclass, balance_satoshis, demo").
		ToSql()
	if err != nil {
		return UserRecord{}, err
	}

	err = s.db(ctx).QueryRow(ctx, sqlStr, args...).
		Scan(&u.ID, &u.Username, &u.Userclass, &u.BalanceSatoshis, &u.Demo)
	if err != nil {
		return UserRecord{}, fmt.Errorf("failed to create user %s: %w", username, err)
	}
	return u, nil
}

// Balance reads a user's current balance.
func (s *Store) Balance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := s.db(ctx).QueryRow(ctx,
		`SELECT balance_satoshis FROM users WHERE id = $1`, userID).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("failed to read balance of user %d: %w", userID, err)
	}
	return balance, nil
}

// AddFunding records a deposit, which grows the bankroll.
func (s *Store) AddFunding(ctx context.Context, userID, amount int64) error {
	return s.inTx(ctx, func(ctx context.Context) error {
		if _, err := s.db(ctx).Exec(ctx,
			`INSERT INTO fundings (user_id, amount) VALUES ($1, $2)`, userID, amount); err != nil {
			return fmt.Errorf("failed to record funding: %w", err)
		}
		if _, err := s.db(ctx).Exec(ctx,
			`UPDATE users SET balance_satoshis = balance_satoshis + $1 WHERE id = $2`,
			amount, userID); err != nil {
			return fmt.Errorf("failed to credit funding: %w", err)
		}
		return nil
	})
}

/* ===== CHAT ===== */

// ChatRecord is one persisted chat line.
type ChatRecord struct {
	Username string    `json:"username"`
	Message  string    `json:"message"`
	Created  time.Time `json:"created"`
}

// SaveChatMessage appends a chat line to the durable history.
func (s *Store) SaveChatMessage(ctx context.Context, username, message string) error {
	if _, err := s.db(ctx).Exec(ctx,
		`INSERT INTO chat_history (username, message) VALUES ($1, $2)`, username, message); err != nil {
		return fmt.Errorf("failed to save chat message: %w", err)
	}
	return nil
}

// RecentChat returns the latest chat lines, oldest first.
func (s *Store) RecentChat(ctx context.Context, limit int64) ([]ChatRecord, error) {
	rows, err := s.db(ctx).Query(ctx,
		`SELECT username, message, created FROM chat_history ORDER BY created DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read chat history: %w", err)
	}
	defer rows.Close()

	var records []ChatRecord
	for rows.Next() {
		var rec ChatRecord
		if err := rows.Scan(&rec.Username, &rec.Message, &rec.Created); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into chronological order for replay.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

var _ game.Store = (*Store)(nil)
