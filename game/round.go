package game

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

/* ===== ENGINE CONFIG ===== */

// Config holds the engine timings. Tests shrink these to keep rounds
// fast; production uses DefaultConfig.
type Config struct {
	TickInterval   time.Duration // multiplier broadcast cadence
	RestartTime    time.Duration // betting window before lift-off
	BlockingPoll   time.Duration // recheck cadence while joins are pending
	AfterCrashTime time.Duration // pause between crash and next round
	CreateRetry    time.Duration // wait before retrying round creation
	SettleWarn     time.Duration // heartbeat while settlement is running
	CashOutWorkers int           // parallel cashouts in CashOutAll
	EventBuffer    int           // outbound event channel capacity
}

func DefaultConfig() Config {
	return Config{
		TickInterval:   150 * time.Millisecond,
		RestartTime:    8000 * time.Millisecond,
		BlockingPoll:   100 * time.Millisecond,
		AfterCrashTime: 3000 * time.Millisecond,
		CreateRetry:    2 * time.Second,
		SettleWarn:     time.Second,
		CashOutWorkers: 4,
		EventBuffer:    256,
	}
}

/* ===== ENGINE ===== */

// Engine drives the round lifecycle: STARTING (bets open), BLOCKING
// (waiting for in-flight joins), IN_PROGRESS (multiplier running),
// ENDED (settling). All mutable state is guarded by mu; boundary calls
// like PlaceBet and CashOut are safe from any goroutine.
type Engine struct {
	store Store
	cfg   Config

	events chan Event

	mu           sync.Mutex
	state        State
	roundID      int64
	hash         string
	lastHash     string
	crashPoint   int64
	forcePoint   int64
	prevForce    int64
	duration     int64
	maxWin       int64
	bankroll     int64
	demoPool     int64
	startTime    time.Time
	nextZero     bool
	forceFinish  bool
	shuttingDown bool

	pending      map[string]struct{}
	pendingCount int
	joined       []*Play
	players      map[string]*Play
}

func New(store Store, cfg Config) *Engine {
	return &Engine{
		store:      store,
		cfg:        cfg,
		events:     make(chan Event, cfg.EventBuffer),
		state:      StateEnded,
		forcePoint: NoForcePoint,
		pending:    make(map[string]struct{}),
		players:    make(map[string]*Play),
	}
}

// Events is the outbound notification stream consumed by the hub.
func (g *Engine) Events() <-chan Event { return g.events }

func (g *Engine) emit(typ string, data any) {
	select {
	case g.events <- Event{Type: typ, Data: data}:
	default:
		log.Printf("⚠️ Event buffer full, dropping %s", typ)
	}
}

// sleep waits for d or until ctx is cancelled. Reports whether the full
// wait completed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

/* ===== ROUND LOOP ===== */

// Run drives rounds back to back until the context is cancelled or a
// shutdown request drains through the current round.
func (g *Engine) Run(ctx context.Context) {
	log.Println("🚀 Crash engine started")
	for g.runRound(ctx) {
	}
	log.Println("🛑 Crash engine stopped")
}

func (g *Engine) runRound(ctx context.Context) bool {
	var rec RoundRecord
	var maxProfit float64

	for {
		var err error
		rec, err = g.createRound(ctx)
		if err == nil {
			maxProfit, err = g.store.MaxProfitPercent(ctx)
		}
		if err == nil {
			break
		}
		log.Printf("❌ Could not create game: %v, retrying in %v", err, g.cfg.CreateRetry)
		if !sleep(ctx, g.cfg.CreateRetry) {
			return false
		}
	}

	bankroll, err := g.store.Bankroll(ctx)
	if err != nil {
		log.Printf("❌ Error fetching bankroll: %v", err)
	}

	g.mu.Lock()
	g.state = StateStarting
	g.roundID = rec.ID
	g.hash = rec.Hash
	g.crashPoint = rec.CrashPoint
	g.bankroll = bankroll
	g.duration = RoundDuration(g.crashPoint)
	g.maxWin = MaxWin(g.bankroll, maxProfit)
	g.forcePoint = NoForcePoint
	g.prevForce = NoForcePoint
	g.forceFinish = false
	g.startTime = time.Now().Add(g.cfg.RestartTime)
	g.players = make(map[string]*Play)
	maxWin := g.maxWin
	roundID := g.roundID
	g.mu.Unlock()

	g.emit(EvGameStarting, GameStartingPayload{
		RoundID:       roundID,
		MaxWin:        maxWin,
		TimeTillStart: g.cfg.RestartTime.Milliseconds(),
	})
	g.emitBetInfo(ctx)

	if !sleep(ctx, g.cfg.RestartTime) {
		return false
	}

	// Wait out bets that are still being written before lift-off.
	g.mu.Lock()
	g.state = StateBlocking
	g.mu.Unlock()
	for {
		g.mu.Lock()
		n := g.pendingCount
		g.mu.Unlock()
		if n == 0 {
			break
		}
		log.Printf("⏳ Delaying game by %v for %d joins", g.cfg.BlockingPoll, n)
		if !sleep(ctx, g.cfg.BlockingPoll) {
			return false
		}
	}

	g.startRound(ctx)
	return g.tickLoop(ctx)
}

func (g *Engine) createRound(ctx context.Context) (RoundRecord, error) {
	g.mu.Lock()
	forceZero := g.nextZero
	g.nextZero = false
	g.mu.Unlock()

	rec, err := g.store.CreateRound(ctx, forceZero)
	if err != nil && forceZero {
		// Put the flag back so the override survives the retry.
		g.mu.Lock()
		g.nextZero = true
		g.mu.Unlock()
	}
	return rec, err
}

func (g *Engine) startRound(ctx context.Context) {
	g.mu.Lock()
	g.state = StateInProgress
	g.startTime = time.Now()
	g.pending = make(map[string]struct{})
	g.pendingCount = 0

	bets := make(map[string]int64)
	extraBets := make(map[string]int64)
	rangeBets := make(map[string][]RangeBet)
	demos := make(map[string]bool)

	for _, p := range g.joined {
		bets[p.User.Username] = p.Bet
		extraBets[p.User.Username] = p.ExtraBet
		rangeBets[p.User.Username] = p.RangeBets
		demos[p.User.Username] = p.User.Demo
		g.players[p.User.Username] = p
	}
	g.joined = nil
	g.setForcePointLocked()
	g.mu.Unlock()

	g.emit(EvGameStarted, GameStartedPayload{
		Bets:      bets,
		ExtraBets: extraBets,
		RangeBets: rangeBets,
		Demos:     demos,
	})
	g.emitBetInfo(ctx)
}

func (g *Engine) tickLoop(ctx context.Context) bool {
	for {
		g.mu.Lock()
		elapsed := time.Since(g.startTime).Milliseconds()
		at := Growth(elapsed)

		g.runCashOutsLocked(ctx, at)

		if g.forcePoint <= at && g.forcePoint <= g.crashPoint {
			log.Printf("⚡ Game forced out - game_id:%d force_point:%d at:%d crash_point:%d",
				g.roundID, g.forcePoint, at, g.crashPoint)
			g.crashPoint = g.forcePoint
			g.mu.Unlock()
			return g.endRound(ctx, true)
		}

		if g.forceFinish {
			g.forceFinish = false
			log.Printf("🛑 Administrator stopped game - game_id:%d crash_point:%d", g.roundID, g.crashPoint)
			g.mu.Unlock()
			return g.endRound(ctx, true)
		}

		if at > g.crashPoint {
			g.mu.Unlock()
			return g.endRound(ctx, false)
		}

		duration := g.duration
		g.mu.Unlock()
		g.emit(EvGameTick, GameTickPayload{ElapsedMs: elapsed, At: at})

		left := duration - elapsed
		next := min(left, g.cfg.TickInterval.Milliseconds())
		if next < 0 {
			next = 0
		}
		if !sleep(ctx, time.Duration(next)*time.Millisecond) {
			return false
		}
	}
}

func (g *Engine) endRound(ctx context.Context, forced bool) bool {
	crashTime := time.Now()

	g.mu.Lock()
	g.state = StateEnded
	g.lastHash = g.hash
	roundID := g.roundID
	crashPoint := g.crashPoint
	duration := g.duration
	lastHash := g.lastHash
	g.mu.Unlock()

	g.emit(EvGameCrash, GameCrashPayload{
		Forced:    forced,
		ElapsedMs: duration,
		GameCrash: crashPoint,
		Hash:      lastHash,
	})
	g.emitBetInfo(ctx)
	g.refreshBankroll(ctx)

	// Heartbeat so a stuck settlement is visible in the logs.
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(g.cfg.SettleWarn)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				log.Printf("⚠️ Game %d is still ending... time since crash: %.3fs",
					roundID, time.Since(crashTime).Seconds())
			}
		}
	}()

	extraMult, err := g.store.ExtraBetMultiplier(ctx)
	if err != nil {
		log.Printf("❌ Error fetching extra bet multiplier: %v", err)
	}
	profit, err := g.store.SettleRound(ctx, roundID, crashPoint, extraMult)
	close(done)
	if err != nil {
		log.Printf("❌ Could not end game id %d: %v", roundID, err)
	} else {
		g.emit(EvAddSatoshis, profit)
	}

	g.mu.Lock()
	down := g.shuttingDown
	g.mu.Unlock()
	if down {
		g.emit(EvShutdown, nil)
		return false
	}

	return sleep(ctx, g.cfg.AfterCrashTime-time.Since(crashTime))
}

/* ===== SIDE CHANNEL REFRESHES ===== */

func (g *Engine) emitBetInfo(ctx context.Context) {
	info, err := g.store.SyncInfo(ctx)
	if err != nil {
		log.Printf("❌ Error fetching sync info: %v", err)
	} else {
		g.emit(EvUpdateBetInfo, info)
	}

	ranges, err := g.store.RangeTable(ctx)
	if err != nil {
		log.Printf("❌ Error fetching range info: %v", err)
	} else {
		g.emit(EvUpdateRangeInfo, ranges)
	}
}

func (g *Engine) refreshBankroll(ctx context.Context) {
	bankroll, err := g.store.Bankroll(ctx)
	if err != nil {
		log.Printf("❌ Error fetching bankroll: %v", err)
		return
	}
	demoPool, err := g.store.DemoPool(ctx)
	if err != nil {
		log.Printf("❌ Error fetching demo pool: %v", err)
		return
	}

	g.mu.Lock()
	g.bankroll = bankroll
	g.demoPool = demoPool
	g.mu.Unlock()

	g.emit(EvUpdateBankroll, UpdateBankrollPayload{Bankroll: bankroll, DemoPool: demoPool})
}

/* ===== BETTING ===== */

// PlaceBet admits a bet into the round now collecting them. Range-only
// plays carry no auto-cashout; all other plays must have one at or
// above 1.00x. Stakes were validated at the boundary; here only the
// round state and duplicate joins are checked.
func (g *Engine) PlaceBet(ctx context.Context, u User, bet, extraBet, autoCashOut int64, ranges []RangeBet) error {
	hasRange := len(ranges) > 0
	if (bet == 0 && !hasRange) || (bet > 0 && hasRange) {
		return ErrPlaceBet
	}
	if hasRange {
		if autoCashOut != 0 {
			return ErrPlaceBet
		}
	} else if autoCashOut < 100 {
		return ErrPlaceBet
	}

	g.mu.Lock()
	if g.state != StateStarting {
		g.mu.Unlock()
		return ErrGameInProgress
	}
	if _, ok := g.pending[u.Username]; ok {
		g.mu.Unlock()
		return ErrAlreadyPlacedBet
	}
	if _, ok := g.players[u.Username]; ok {
		g.mu.Unlock()
		return ErrAlreadyPlacedBet
	}
	g.pending[u.Username] = struct{}{}
	g.pendingCount++
	roundID := g.roundID
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.pendingCount--
		g.mu.Unlock()
	}()

	playID, err := g.store.PlaceBet(ctx, roundID, u, bet, extraBet, autoCashOut, ranges)
	if err != nil {
		g.mu.Lock()
		delete(g.pending, u.Username)
		g.mu.Unlock()
		return err
	}

	g.mu.Lock()
	g.joined = append(g.joined, &Play{
		User:        u,
		PlayID:      playID,
		Bet:         bet,
		ExtraBet:    extraBet,
		RangeBets:   ranges,
		AutoCashOut: autoCashOut,
		Status:      StatusPlaying,
	})
	index := len(g.joined) - 1
	g.mu.Unlock()

	g.emit(EvPlayerBet, PlayerBetPayload{Username: u.Username, Index: index, Demo: u.Demo})
	g.refreshBankroll(ctx)
	return nil
}

/* ===== CASHING OUT ===== */

// doCashOutLocked pays a play out at the given multiplier. Caller holds
// the engine lock and has verified the play is still PLAYING.
func (g *Engine) doCashOutLocked(ctx context.Context, play *Play, at int64, extraSuccess bool) error {
	play.Status = StatusCashedOut
	play.StoppedAt = at

	extraMult, err := g.store.ExtraBetMultiplier(ctx)
	if err != nil {
		return err
	}

	won := play.Bet / 100 * at
	extraPayout := play.ExtraBet * (extraMult + 1)
	if extraSuccess {
		won = play.Bet
	} else {
		extraPayout = 0
	}

	if err := g.store.CashOut(ctx, play.User.ID, play.PlayID, won, extraPayout, extraSuccess, play.User.Demo); err != nil {
		log.Printf("❌ Could not cash out %s at %d: %v", play.User.Username, at, err)
		return err
	}

	g.emit(EvCashedOut, CashedOutPayload{
		Username:     play.User.Username,
		StoppedAt:    at,
		ExtraSuccess: extraSuccess,
		AddBits:      won + extraPayout,
	})
	return nil
}

// runCashOutsLocked fires every auto-cashout that the current
// multiplier has reached, plus instant-crash side-bet wins.
func (g *Engine) runCashOutsLocked(ctx context.Context, at int64) {
	update := false

	for name, play := range g.players {
		if play.Status == StatusCashedOut {
			continue
		}
		if play.Bet == 0 { // range-only plays settle at round end
			continue
		}

		switch {
		case play.ExtraBet > 0 && g.crashPoint == 0:
			if err := g.doCashOutLocked(ctx, play, 0, true); err != nil {
				log.Printf("❌ Could not auto cashout %s: %v", name, err)
			}
			update = true
		case play.AutoCashOut <= at && play.AutoCashOut <= g.crashPoint && play.AutoCashOut <= g.forcePoint:
			if err := g.doCashOutLocked(ctx, play, play.AutoCashOut, false); err != nil {
				log.Printf("❌ Could not auto cashout %s: %v", name, err)
			}
			update = true
		}
	}

	if update {
		g.setForcePointLocked()
	}
}

// setForcePointLocked recomputes the cap from the stakes still in
// action and the winnings already paid.
func (g *Engine) setForcePointLocked() {
	var totalBet, totalCashedOut int64

	for _, play := range g.players {
		if play.Status == StatusCashedOut {
			totalCashedOut += play.Bet * (play.StoppedAt - 100) / 100
		} else {
			totalBet += play.Bet
		}
	}

	g.forcePoint = ForcePoint(totalBet, totalCashedOut, g.maxWin)
	if g.forcePoint != g.prevForce {
		if g.forcePoint == NoForcePoint {
			log.Printf("📍 Set forced point - total_bet:%d game_id:%d forced_point:Infinity", totalBet, g.roundID)
		} else {
			log.Printf("📍 Set forced point - total_bet:%d game_id:%d forced_point:%d", totalBet, g.roundID, g.forcePoint)
		}
	}
	g.prevForce = g.forcePoint
}

// CashOut is the manual cashout. The payout multiplier is clamped to
// the player's auto-cashout and the force point, and rejected once the
// round has crashed.
func (g *Engine) CashOut(ctx context.Context, username string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateInProgress {
		return ErrGameNotInProgress
	}

	elapsed := time.Since(g.startTime).Milliseconds()
	at := Growth(elapsed)

	play, ok := g.players[username]
	if !ok {
		return ErrNoBetPlaced
	}

	if play.AutoCashOut <= at {
		at = play.AutoCashOut
	}
	if g.forcePoint <= at {
		at = g.forcePoint
	}

	if at > g.crashPoint {
		return ErrGameCrashed
	}
	if play.Status == StatusCashedOut {
		return ErrAlreadyCashedOut
	}

	if err := g.doCashOutLocked(ctx, play, at, false); err != nil {
		return err
	}
	g.setForcePointLocked()
	return nil
}

// CashOutAll force-cashes every live play at the given multiplier, for
// emergency shutdowns. No-op unless a round is in progress or when the
// round already crashed below at.
func (g *Engine) CashOutAll(ctx context.Context, at int64) error {
	g.mu.Lock()

	if g.state != StateInProgress {
		g.mu.Unlock()
		return nil
	}
	if at < 100 {
		g.mu.Unlock()
		return ErrPlaceBet
	}

	log.Printf("🚨 Cashing everyone out at: %d", at)
	g.runCashOutsLocked(ctx, at)

	if at > g.crashPoint {
		g.mu.Unlock()
		return nil
	}

	// Reserve the remaining plays under the lock, settle them in
	// parallel without it.
	var remaining []*Play
	for _, play := range g.players {
		if play.Status == StatusPlaying {
			play.Status = StatusCashedOut
			play.StoppedAt = at
			remaining = append(remaining, play)
		}
	}
	g.mu.Unlock()

	log.Printf("🚨 Needing to force cash out: %d players", len(remaining))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.CashOutWorkers)
	for _, play := range remaining {
		play := play
		eg.Go(func() error {
			won := play.Bet / 100 * at
			if err := g.store.CashOut(egCtx, play.User.ID, play.PlayID, won, 0, false, play.User.Demo); err != nil {
				return err
			}
			g.emit(EvCashedOut, CashedOutPayload{
				Username:  play.User.Username,
				StoppedAt: at,
				AddBits:   won,
			})
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		log.Printf("❌ Unable to cash out all players in %d at %d: %v", g.roundID, at, err)
		return err
	}

	log.Printf("🚨 Emergency cashed out all players in game_id: %d", g.roundID)
	g.mu.Lock()
	g.setForcePointLocked()
	g.mu.Unlock()
	return nil
}

/* ===== ADMIN ===== */

// FinishRound lets an administrator end the running round. With a
// matching round id and a known multiplier the round crashes right
// there; otherwise only the crash point is rewritten to 10.00x.
func (g *Engine) FinishRound(roundID, at int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if at <= 0 || roundID != g.roundID {
		g.crashPoint = 1000
		return
	}
	g.forceFinish = true
	g.crashPoint = at
	g.duration = time.Since(g.startTime).Milliseconds()
}

// SetNextZero makes the next created round crash instantly.
func (g *Engine) SetNextZero() {
	g.mu.Lock()
	g.nextZero = true
	g.mu.Unlock()
}

// Shutdown asks the engine to stop after the current round settles.
func (g *Engine) Shutdown() {
	g.mu.Lock()
	g.shuttingDown = true
	ended := g.state == StateEnded
	g.mu.Unlock()

	g.emit(EvShuttingDown, nil)
	if ended {
		g.emit(EvShutdown, nil)
	}
}

/* ===== SNAPSHOT ===== */

// Info returns the public snapshot of the current round.
func (g *Engine) Info() RoundInfo {
	g.mu.Lock()
	defer g.mu.Unlock()

	playerInfo := make(map[string]PlayerInfo, len(g.players))
	for name, play := range g.players {
		info := PlayerInfo{
			Bet:       play.Bet,
			ExtraBet:  play.ExtraBet,
			RangeBets: play.RangeBets,
			Demo:      play.User.Demo,
		}
		if play.Status == StatusCashedOut {
			info.StoppedAt = play.StoppedAt
		}
		playerInfo[name] = info
	}

	joined := make([]string, len(g.joined))
	for i, p := range g.joined {
		joined[i] = p.User.Username
	}

	res := RoundInfo{
		RoundID:    g.roundID,
		State:      g.state,
		LastHash:   g.lastHash,
		MaxWin:     g.maxWin,
		ElapsedMs:  time.Since(g.startTime).Milliseconds(),
		Created:    g.startTime,
		Joined:     joined,
		PlayerInfo: playerInfo,
	}
	if g.state == StateEnded {
		res.CrashedAt = g.crashPoint
	}
	return res
}
