package db

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"

	"goCrashServer/crypto"
	"goCrashServer/game"
)

// Full bet lifecycle against a live database. Needs DATABASE_URL; the
// Redis cache is optional.
func TestStoreBetLifecycle(t *testing.T) {
	_ = godotenv.Load("../.env")

	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set")
	}

	if err := InitPostgres(); err != nil {
		t.Fatalf("Failed to init postgres: %v", err)
	}
	defer ClosePostgres()

	store, err := NewStore(PostgresPool, nil)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	ctx := context.Background()
	username := fmt.Sprintf("testuser_%d", time.Now().UnixNano())

	user, err := store.GetOrCreateUser(ctx, username, false)
	if err != nil {
		t.Fatalf("GetOrCreateUser failed: %v", err)
	}
	defer func() {
		_, _ = PostgresPool.Exec(ctx, "DELETE FROM plays WHERE user_id = $1", user.ID)
		_, _ = PostgresPool.Exec(ctx, "DELETE FROM fundings WHERE user_id = $1", user.ID)
		_, _ = PostgresPool.Exec(ctx, "DELETE FROM users WHERE id = $1", user.ID)
	}()

	if err := store.AddFunding(ctx, user.ID, 10000); err != nil {
		t.Fatalf("AddFunding failed: %v", err)
	}

	// Seed a hash for the exact id the next round will claim.
	var nextID int64
	if err := PostgresPool.QueryRow(ctx,
		"SELECT COALESCE(MAX(id), 0) + 1 FROM games").Scan(&nextID); err != nil {
		t.Fatalf("Failed to read next game id: %v", err)
	}
	chain := crypto.GenerateHashChain(1)
	if _, err := PostgresPool.Exec(ctx,
		"INSERT INTO game_hashes (game_id, hash) VALUES ($1, $2) ON CONFLICT (game_id) DO NOTHING",
		nextID, chain[0]); err != nil {
		t.Fatalf("Failed to seed game hash: %v", err)
	}

	rec, err := store.CreateRound(ctx, false)
	if err != nil {
		t.Fatalf("CreateRound failed: %v", err)
	}
	if rec.Hash == "" {
		t.Fatal("CreateRound returned empty hash")
	}
	defer func() {
		_, _ = PostgresPool.Exec(ctx, "DELETE FROM games WHERE id = $1", rec.ID)
	}()

	var playID int64

	t.Run("PlaceBet", func(t *testing.T) {
		playID, err = store.PlaceBet(ctx, rec.ID,
			game.User{ID: user.ID, Username: user.Username}, 1000, 0, 200, nil)
		if err != nil {
			t.Fatalf("PlaceBet failed: %v", err)
		}
		if playID <= 0 {
			t.Fatalf("play id = %d, want positive", playID)
		}

		balance, err := store.Balance(ctx, user.ID)
		if err != nil {
			t.Fatalf("Balance failed: %v", err)
		}
		if balance != 9000 {
			t.Errorf("balance after bet = %d, want 9000", balance)
		}
	})

	t.Run("OverdraftRejected", func(t *testing.T) {
		_, err := store.PlaceBet(ctx, rec.ID,
			game.User{ID: user.ID, Username: user.Username}, 1_000_000, 0, 200, nil)
		if err != game.ErrNotEnoughMoney {
			t.Errorf("overdraft error = %v, want %v", err, game.ErrNotEnoughMoney)
		}
	})

	t.Run("CashOutGuarded", func(t *testing.T) {
		if err := store.CashOut(ctx, user.ID, playID, 2000, 0, false, false); err != nil {
			t.Fatalf("CashOut failed: %v", err)
		}
		if err := store.CashOut(ctx, user.ID, playID, 2000, 0, false, false); err != game.ErrAlreadyCashedOut {
			t.Errorf("double cashout error = %v, want %v", err, game.ErrAlreadyCashedOut)
		}
	})

	t.Run("SettleRound", func(t *testing.T) {
		// Route a 3% leg to an upline without an account: the leg must
		// still land on the play row and the company absorbs the money.
		ghost := fmt.Sprintf("ghost_%d", time.Now().UnixNano())
		if _, err := PostgresPool.Exec(ctx,
			"UPDATE users SET master_ib = $1 WHERE id = $2", ghost, user.ID); err != nil {
			t.Fatalf("Failed to set lineage: %v", err)
		}
		if err := store.SetSetting(ctx, "master_ib_percent", "3"); err != nil {
			t.Fatalf("Failed to set commission: %v", err)
		}
		defer func() {
			_ = store.SetSetting(ctx, "master_ib_percent", "0")
		}()

		profit, err := store.SettleRound(ctx, rec.ID, 250, 2)
		if err != nil {
			t.Fatalf("SettleRound failed: %v", err)
		}

		b, ok := profit[user.Username]
		if !ok {
			t.Fatalf("no breakdown for %s", user.Username)
		}
		if b.PlayerCredit < 2000 {
			t.Errorf("player credit = %d, want at least 2000", b.PlayerCredit)
		}
		if b.MasterIB != 30 {
			t.Errorf("master_ib leg = %d, want 30", b.MasterIB)
		}

		var legPlayer, legMasterIB int64
		if err := PostgresPool.QueryRow(ctx,
			"SELECT profit_for_player, profit_for_master_ib FROM plays WHERE id = $1",
			playID).Scan(&legPlayer, &legMasterIB); err != nil {
			t.Fatalf("Failed to read play legs: %v", err)
		}
		if legPlayer != b.PlayerProfit {
			t.Errorf("persisted player profit = %d, want %d", legPlayer, b.PlayerProfit)
		}
		if legMasterIB != b.MasterIB {
			t.Errorf("persisted master_ib leg = %d, want %d", legMasterIB, b.MasterIB)
		}

		var companyProfit int64
		if err := PostgresPool.QueryRow(ctx,
			"SELECT company_profit FROM games WHERE id = $1", rec.ID).Scan(&companyProfit); err != nil {
			t.Fatalf("Failed to read company profit: %v", err)
		}
		if companyProfit != b.Company+b.MasterIB {
			t.Errorf("company profit = %d, want %d after absorbing the unplaceable leg",
				companyProfit, b.Company+b.MasterIB)
		}

		balance, err := store.Balance(ctx, user.ID)
		if err != nil {
			t.Fatalf("Balance failed: %v", err)
		}
		if balance != 9000+b.PlayerCredit {
			t.Errorf("balance after settle = %d, want %d", balance, 9000+b.PlayerCredit)
		}
	})
}
