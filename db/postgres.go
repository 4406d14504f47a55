package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// PostgresPool is the global PostgreSQL connection pool
	PostgresPool *pgxpool.Pool
)

// InitPostgres initializes the PostgreSQL connection pool
func InitPostgres() error {
	log.Println("🔌 Connecting to PostgreSQL...")

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Configure pool settings
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 5 * time.Minute

	PostgresPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := PostgresPool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ PostgreSQL connected successfully")

	if err := InitSchema(context.Background()); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// ClosePostgres closes the PostgreSQL connection pool
func ClosePostgres() {
	if PostgresPool != nil {
		log.Println("🔌 Closing PostgreSQL connection...")
		PostgresPool.Close()
	}
}

// InitSchema creates the database tables if they don't exist
func InitSchema(ctx context.Context) error {
	log.Println("📋 Initializing database schema...")

	usersSchema := `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		userclass TEXT NOT NULL DEFAULT 'user',
		balance_satoshis BIGINT NOT NULL DEFAULT 0 CHECK (balance_satoshis >= 0),
		gross_profit BIGINT NOT NULL DEFAULT 0,
		net_profit BIGINT NOT NULL DEFAULT 0,
		agent_profit BIGINT NOT NULL DEFAULT 0,
		demo BOOLEAN NOT NULL DEFAULT FALSE,
		master_ib TEXT,
		parent1 TEXT,
		parent2 TEXT,
		parent3 TEXT,
		created TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);
	`

	if _, err := PostgresPool.Exec(ctx, usersSchema); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	gamesSchema := `
	CREATE TABLE IF NOT EXISTS games (
		id BIGINT PRIMARY KEY,
		hash TEXT NOT NULL,
		game_crash BIGINT NOT NULL DEFAULT 0,
		ended BOOLEAN NOT NULL DEFAULT FALSE,
		company_profit BIGINT NOT NULL DEFAULT 0,
		staff_profit BIGINT NOT NULL DEFAULT 0,
		created TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS game_hashes (
		game_id BIGINT PRIMARY KEY,
		hash TEXT NOT NULL
	);

	-- Index on created for history queries
	CREATE INDEX IF NOT EXISTS idx_games_created ON games(created DESC);
	`

	if _, err := PostgresPool.Exec(ctx, gamesSchema); err != nil {
		return fmt.Errorf("failed to create games tables: %w", err)
	}

	playsSchema := `
	CREATE TABLE IF NOT EXISTS plays (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		game_id BIGINT NOT NULL,
		bet BIGINT NOT NULL DEFAULT 0,
		extra_bet BIGINT NOT NULL DEFAULT 0,
		range_bet_amount BIGINT NOT NULL DEFAULT 0,
		range_from BIGINT NOT NULL DEFAULT -1,
		range_to BIGINT NOT NULL DEFAULT -1,
		range_bet_multiplier BIGINT NOT NULL DEFAULT 0,
		range_id BIGINT NOT NULL DEFAULT -1,
		auto_cash_out BIGINT NOT NULL DEFAULT 0,
		cash_out BIGINT NOT NULL DEFAULT 0,
		extra_bet_success BOOLEAN NOT NULL DEFAULT FALSE,
		profit_for_player BIGINT,
		profit_for_company BIGINT NOT NULL DEFAULT 0,
		profit_for_staff BIGINT NOT NULL DEFAULT 0,
		profit_for_master_ib BIGINT NOT NULL DEFAULT 0,
		profit_for_agent BIGINT NOT NULL DEFAULT 0,
		profit_for_parent1 BIGINT NOT NULL DEFAULT 0,
		profit_for_parent2 BIGINT NOT NULL DEFAULT 0,
		profit_for_parent3 BIGINT NOT NULL DEFAULT 0,
		demo BOOLEAN NOT NULL DEFAULT FALSE,
		created TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_plays_game_id ON plays(game_id);
	CREATE INDEX IF NOT EXISTS idx_plays_user_id ON plays(user_id);
	`

	if _, err := PostgresPool.Exec(ctx, playsSchema); err != nil {
		return fmt.Errorf("failed to create plays table: %w", err)
	}

	configSchema := `
	CREATE TABLE IF NOT EXISTS settings (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS range_bet (
		id BIGSERIAL PRIMARY KEY,
		range_from BIGINT NOT NULL,
		range_to BIGINT NOT NULL,
		range_multiplier BIGINT NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS intervals (
		id BIGSERIAL PRIMARY KEY,
		interval_start BIGINT NOT NULL,
		interval_end BIGINT NOT NULL,
		percentage BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS fundings (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT REFERENCES users(id),
		amount BIGINT NOT NULL,
		created TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`

	if _, err := PostgresPool.Exec(ctx, configSchema); err != nil {
		return fmt.Errorf("failed to create settings tables: %w", err)
	}

	chatSchema := `
	CREATE TABLE IF NOT EXISTS chat_history (
		id SERIAL PRIMARY KEY,
		username TEXT NOT NULL,
		message TEXT NOT NULL,
		created TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_chat_history_created ON chat_history(created DESC);
	`

	if _, err := PostgresPool.Exec(ctx, chatSchema); err != nil {
		return fmt.Errorf("failed to create chat_history table: %w", err)
	}

	log.Println("✅ Database schema initialized")
	return nil
}
