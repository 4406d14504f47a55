package game

import (
	"context"
	"sync"
	"testing"
	"time"
)

/* ===== STUB STORE ===== */

type stubStore struct {
	mu         sync.Mutex
	crashPoint int64
	roundSeq   int64
	playSeq    int64
	cashOuts   map[int64]int64 // playID -> won
	settled    []int64
	placeErr   error
}

func newStubStore(crashPoint int64) *stubStore {
	return &stubStore{
		crashPoint: crashPoint,
		cashOuts:   make(map[int64]int64),
	}
}

func (s *stubStore) CreateRound(ctx context.Context, forceZero bool) (RoundRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roundSeq++
	cp := s.crashPoint
	if forceZero {
		cp = 0
	}
	return RoundRecord{ID: s.roundSeq, Hash: "aa11", CrashPoint: cp}, nil
}

func (s *stubStore) MaxProfitPercent(ctx context.Context) (float64, error) { return 3, nil }
func (s *stubStore) Bankroll(ctx context.Context) (int64, error)           { return 100_000_000, nil }
func (s *stubStore) DemoPool(ctx context.Context) (int64, error)           { return 1_000_000, nil }

func (s *stubStore) SyncInfo(ctx context.Context) (SyncInfo, error) {
	return SyncInfo{MinBetAmount: 100, MaxBetAmount: 1_000_000}, nil
}

func (s *stubStore) RangeTable(ctx context.Context) ([]RangeInfo, error) { return nil, nil }

func (s *stubStore) ExtraBetMultiplier(ctx context.Context) (int64, error) { return 2, nil }

func (s *stubStore) PlaceBet(ctx context.Context, roundID int64, u User, bet, extraBet, autoCashOut int64, ranges []RangeBet) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.placeErr != nil {
		return 0, s.placeErr
	}
	s.playSeq++
	return s.playSeq, nil
}

func (s *stubStore) CashOut(ctx context.Context, userID, playID, won, extraPayout int64, extraSuccess, demo bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cashOuts[playID] = won + extraPayout
	return nil
}

func (s *stubStore) SettleRound(ctx context.Context, roundID, crashPoint, extraBetMultiplier int64) (ProfitMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settled = append(s.settled, roundID)
	return ProfitMap{}, nil
}

/* ===== HARNESS ===== */

func testConfig() Config {
	return Config{
		TickInterval:   5 * time.Millisecond,
		RestartTime:    60 * time.Millisecond,
		BlockingPoll:   5 * time.Millisecond,
		AfterCrashTime: 10 * time.Millisecond,
		CreateRetry:    10 * time.Millisecond,
		SettleWarn:     time.Second,
		CashOutWorkers: 4,
		EventBuffer:    1024,
	}
}

// waitEvent drains the engine stream until an event of the wanted type
// arrives.
func waitEvent(t *testing.T, ch <-chan Event, typ string) Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Type == typ {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}

/* ===== TESTS ===== */

func TestEngineRoundLifecycle(t *testing.T) {
	store := newStubStore(0) // instant crash keeps the round short
	g := New(store, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go g.Run(ctx)

	ev := waitEvent(t, g.Events(), EvGameStarting)
	starting := ev.Data.(GameStartingPayload)
	if starting.RoundID != 1 {
		t.Errorf("first round id = %d, want 1", starting.RoundID)
	}
	if starting.MaxWin != 3_000_000 {
		t.Errorf("max win = %d, want 3000000", starting.MaxWin)
	}

	waitEvent(t, g.Events(), EvGameStarted)
	crash := waitEvent(t, g.Events(), EvGameCrash).Data.(GameCrashPayload)
	if crash.GameCrash != 0 {
		t.Errorf("crash point = %d, want 0", crash.GameCrash)
	}
	if crash.Hash != "aa11" {
		t.Errorf("crash hash = %q, want aa11", crash.Hash)
	}
	waitEvent(t, g.Events(), EvAddSatoshis)

	// Rounds restart on their own.
	ev = waitEvent(t, g.Events(), EvGameStarting)
	if got := ev.Data.(GameStartingPayload).RoundID; got != 2 {
		t.Errorf("second round id = %d, want 2", got)
	}
}

func TestEnginePlaceBet(t *testing.T) {
	store := newStubStore(0)
	g := New(store, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go g.Run(ctx)

	waitEvent(t, g.Events(), EvGameStarting)

	alice := User{ID: 1, Username: "alice"}

	t.Run("Accepted", func(t *testing.T) {
		if err := g.PlaceBet(ctx, alice, 1000, 0, 200, nil); err != nil {
			t.Fatalf("PlaceBet: %v", err)
		}
		ev := waitEvent(t, g.Events(), EvPlayerBet)
		if got := ev.Data.(PlayerBetPayload).Username; got != "alice" {
			t.Errorf("player_bet username = %q, want alice", got)
		}
	})

	t.Run("DuplicateRejected", func(t *testing.T) {
		if err := g.PlaceBet(ctx, alice, 1000, 0, 200, nil); err != ErrAlreadyPlacedBet {
			t.Errorf("duplicate bet error = %v, want %v", err, ErrAlreadyPlacedBet)
		}
	})

	t.Run("BothStakeClassesRejected", func(t *testing.T) {
		ranges := []RangeBet{{ID: 1, From: 100, To: 200, Multiplier: 5, Amount: 500}}
		if err := g.PlaceBet(ctx, User{ID: 2, Username: "bob"}, 1000, 0, 0, ranges); err != ErrPlaceBet {
			t.Errorf("mixed bet error = %v, want %v", err, ErrPlaceBet)
		}
	})

	t.Run("AutoCashOutBelowOneRejected", func(t *testing.T) {
		if err := g.PlaceBet(ctx, User{ID: 3, Username: "carol"}, 1000, 0, 99, nil); err != ErrPlaceBet {
			t.Errorf("low auto-cashout error = %v, want %v", err, ErrPlaceBet)
		}
	})

	t.Run("RejectedOnceRunning", func(t *testing.T) {
		started := waitEvent(t, g.Events(), EvGameStarted).Data.(GameStartedPayload)
		if _, ok := started.Bets["alice"]; !ok {
			t.Error("alice missing from game_started bets")
		}
		if err := g.PlaceBet(ctx, User{ID: 4, Username: "dave"}, 1000, 0, 200, nil); err != ErrGameInProgress {
			t.Errorf("late bet error = %v, want %v", err, ErrGameInProgress)
		}
	})
}

func TestEngineExtraBetInstantCrash(t *testing.T) {
	store := newStubStore(0)
	g := New(store, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go g.Run(ctx)

	waitEvent(t, g.Events(), EvGameStarting)
	if err := g.PlaceBet(ctx, User{ID: 1, Username: "alice"}, 1000, 100, 200, nil); err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}

	// The side bet wins the instant crash: stake back plus 2x on the
	// side stake.
	ev := waitEvent(t, g.Events(), EvCashedOut)
	payload := ev.Data.(CashedOutPayload)
	if !payload.ExtraSuccess {
		t.Error("expected extraSuccess on instant crash")
	}
	if payload.StoppedAt != 0 {
		t.Errorf("stopped_at = %d, want 0", payload.StoppedAt)
	}
	if payload.AddBits != 1300 {
		t.Errorf("add_bits = %d, want 1300", payload.AddBits)
	}
}

func TestEngineManualCashOut(t *testing.T) {
	store := newStubStore(105) // about a second of flight time
	g := New(store, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go g.Run(ctx)

	waitEvent(t, g.Events(), EvGameStarting)
	if err := g.PlaceBet(ctx, User{ID: 1, Username: "alice"}, 1000, 0, 30000, nil); err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	waitEvent(t, g.Events(), EvGameStarted)

	t.Run("NoPlayRejected", func(t *testing.T) {
		if err := g.CashOut(ctx, "nobody"); err != ErrNoBetPlaced {
			t.Errorf("cashout without play = %v, want %v", err, ErrNoBetPlaced)
		}
	})

	t.Run("PaysAtCurrentMultiplier", func(t *testing.T) {
		if err := g.CashOut(ctx, "alice"); err != nil {
			t.Fatalf("CashOut: %v", err)
		}
		ev := waitEvent(t, g.Events(), EvCashedOut)
		payload := ev.Data.(CashedOutPayload)
		if payload.Username != "alice" {
			t.Errorf("username = %q, want alice", payload.Username)
		}
		if payload.StoppedAt < 100 || payload.StoppedAt > 105 {
			t.Errorf("stopped_at = %d, want within [100, 105]", payload.StoppedAt)
		}
	})

	t.Run("SecondCashOutRejected", func(t *testing.T) {
		if err := g.CashOut(ctx, "alice"); err != ErrAlreadyCashedOut {
			t.Errorf("double cashout = %v, want %v", err, ErrAlreadyCashedOut)
		}
	})
}

func TestEngineAutoCashOut(t *testing.T) {
	store := newStubStore(105)
	g := New(store, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go g.Run(ctx)

	waitEvent(t, g.Events(), EvGameStarting)
	if err := g.PlaceBet(ctx, User{ID: 1, Username: "alice"}, 1000, 0, 100, nil); err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}

	ev := waitEvent(t, g.Events(), EvCashedOut)
	payload := ev.Data.(CashedOutPayload)
	if payload.StoppedAt != 100 {
		t.Errorf("auto cashout stopped_at = %d, want 100", payload.StoppedAt)
	}
	if payload.AddBits != 1000 {
		t.Errorf("add_bits = %d, want 1000", payload.AddBits)
	}
}

func TestEngineSetNextZero(t *testing.T) {
	store := newStubStore(105)
	g := New(store, testConfig())
	g.SetNextZero()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go g.Run(ctx)

	crash := waitEvent(t, g.Events(), EvGameCrash).Data.(GameCrashPayload)
	if crash.GameCrash != 0 {
		t.Errorf("overridden crash point = %d, want 0", crash.GameCrash)
	}
}

func TestEngineShutdown(t *testing.T) {
	store := newStubStore(0)
	g := New(store, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		g.Run(ctx)
		close(done)
	}()

	waitEvent(t, g.Events(), EvGameStarting)
	g.Shutdown()

	waitEvent(t, g.Events(), EvShuttingDown)
	waitEvent(t, g.Events(), EvShutdown)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop after shutdown")
	}
}

func TestEngineInfo(t *testing.T) {
	store := newStubStore(105)
	g := New(store, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go g.Run(ctx)

	waitEvent(t, g.Events(), EvGameStarting)
	if err := g.PlaceBet(ctx, User{ID: 1, Username: "alice"}, 1000, 0, 200, nil); err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	waitEvent(t, g.Events(), EvGameStarted)

	info := g.Info()
	if info.State != StateInProgress {
		t.Errorf("state = %s, want %s", info.State, StateInProgress)
	}
	pi, ok := info.PlayerInfo["alice"]
	if !ok {
		t.Fatal("alice missing from player info")
	}
	if pi.Bet != 1000 {
		t.Errorf("bet = %d, want 1000", pi.Bet)
	}
}
