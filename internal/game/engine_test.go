package game

import (
	"sync"
	"testing"
	"time"

	"spacewar/internal/game/geom"
)

// startEngine readies both keyboard players and steps into InGame
func startEngine(t *testing.T, e *Engine) {
	t.Helper()
	e.KeyUp("W")
	e.KeyUp("I")
	e.Step(0.016)
	if got := e.Lifecycle().State; got != "game" {
		t.Fatalf("expected game state, got %q", got)
	}
}

// killPlayer removes a player's ship directly from the world
func killPlayer(e *Engine, index int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	w := e.match.World()
	w.Registry.Destroy(e.match.Players()[index].Ship)
}

// TestNewEngine verifies engine creation with defaults
func TestNewEngine(t *testing.T) {
	e := NewEngine(0)

	if e.tickRate != DefaultTickRate {
		t.Errorf("tickRate = %d, want %d", e.tickRate, DefaultTickRate)
	}
	if e.GetLimits() != DefaultLimits {
		t.Errorf("limits = %+v, want defaults", e.GetLimits())
	}

	snap := e.GetSnapshot()
	if snap.Sequence == 0 {
		t.Error("a snapshot should be published at construction")
	}
	if snap.WorldWidth != DefaultWorldSize[0] || snap.WorldHeight != DefaultWorldSize[1] {
		t.Errorf("world = %vx%v, want default", snap.WorldWidth, snap.WorldHeight)
	}
	if snap.Lifecycle.State != "starting" || len(snap.Lifecycle.Players) != 2 {
		t.Errorf("unexpected lifecycle %+v", snap.Lifecycle)
	}
}

// TestNewEngineWithOptions verifies options reach the world and match
func TestNewEngineWithOptions(t *testing.T) {
	ship := DefaultShipParams()
	ship.ColliderRadius = 20
	limits := ResourceLimits{MaxShips: 3, MaxProjectiles: 10, MaxWells: 1}

	e := NewEngineWithOptions(EngineOptions{
		TickRate:    30,
		WorldSize:   geom.V(800, 600),
		Players:     3,
		AIPlayers:   []int{2, 7},
		RestartTime: 3,
		Ship:        &ship,
		Limits:      &limits,
	})

	if e.tickRate != 30 || e.GetLimits() != limits {
		t.Errorf("options not applied: rate=%d limits=%+v", e.tickRate, e.GetLimits())
	}

	lc := e.Lifecycle()
	if len(lc.Players) != 3 {
		t.Fatalf("expected 3 players, got %d", len(lc.Players))
	}
	if lc.Players[0].IsAI || lc.Players[1].IsAI || !lc.Players[2].IsAI {
		t.Errorf("AI flags wrong: %+v", lc.Players)
	}

	// Players 0 and 1 ready by key, player 2 already ready as AI
	e.KeyUp("A")
	e.KeyUp("J")
	e.Step(0.016)

	snap := e.GetSnapshot()
	if snap.Lifecycle.State != "game" {
		t.Fatalf("expected game, got %q", snap.Lifecycle.State)
	}
	if snap.WorldWidth != 800 || snap.WorldHeight != 600 {
		t.Errorf("world = %vx%v, want 800x600", snap.WorldWidth, snap.WorldHeight)
	}
	if len(snap.Ships) != 3 {
		t.Fatalf("expected 3 ships, got %d", len(snap.Ships))
	}
	for _, s := range snap.Ships {
		if s.Radius != 20 {
			t.Errorf("ship radius = %v, want 20", s.Radius)
		}
	}
}

// TestEngineStartStop verifies the ticker loop runs and stops cleanly
func TestEngineStartStop(t *testing.T) {
	e := NewEngine(120)
	e.Start()
	e.Start() // second start is a no-op

	deadline := time.Now().Add(2 * time.Second)
	for e.TickCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if e.TickCount() < 3 {
		t.Fatalf("engine did not tick, count=%d", e.TickCount())
	}

	e.Stop()
	e.Stop() // idempotent

	stopped := e.TickCount()
	time.Sleep(50 * time.Millisecond)
	if e.TickCount() > stopped+1 {
		t.Errorf("engine kept ticking after Stop: %d -> %d", stopped, e.TickCount())
	}
}

// TestEngineKeyInput verifies keys reach both the ready check and the ships
func TestEngineKeyInput(t *testing.T) {
	e := NewEngine(60)
	startEngine(t, e)

	e.KeyDown("W")
	e.Step(0.016)

	snap := e.GetSnapshot()
	thrusting := map[int]bool{}
	for _, s := range snap.Ships {
		thrusting[s.Player] = s.Thrusting
	}
	if !thrusting[0] || thrusting[1] {
		t.Errorf("thrusting = %v, want only player 0", thrusting)
	}

	e.KeyUp("W")
	e.Step(0.016)
	for _, s := range e.GetSnapshot().Ships {
		if s.Thrusting {
			t.Errorf("player %d still thrusting after key up", s.Player)
		}
	}
}

// TestEngineMatchOverCallbacks verifies callbacks fire outside the lock
func TestEngineMatchOverCallbacks(t *testing.T) {
	e := NewEngine(60)
	startEngine(t, e)

	var (
		destroyed []ShipDestroyed
		result    *MatchResult
		scores    []int
	)
	e.SetCallbacks(
		func(sd ShipDestroyed) {
			destroyed = append(destroyed, sd)
			e.Scores() // must not deadlock
		},
		func(r MatchResult, s []int) {
			result = &r
			scores = s
			_ = e.GetSnapshot() // must not deadlock
		},
	)

	killPlayer(e, 1)
	events := e.Step(0.016)

	if events.Result == nil {
		t.Fatal("expected a verdict this tick")
	}
	if result == nil || *result != WinFor(0) {
		t.Fatalf("onMatchOver result = %v, want WinFor(0)", result)
	}
	if len(scores) != 2 || scores[0] != 1 {
		t.Errorf("scores = %v, want [1 0]", scores)
	}
	// The ship was removed outside the simulation, so no destroy event
	if len(destroyed) != 0 {
		t.Errorf("unexpected destroy events %+v", destroyed)
	}
	if got := e.Lifecycle().State; got != "gameover" {
		t.Errorf("state = %q, want gameover", got)
	}
}

// TestEngineRequestRestart verifies restart acceptance per state
func TestEngineRequestRestart(t *testing.T) {
	e := NewEngine(60)
	if e.RequestRestart() {
		t.Error("restart accepted while starting")
	}

	startEngine(t, e)
	killPlayer(e, 0)
	e.Step(0.016)

	if !e.RequestRestart() {
		t.Fatal("restart rejected after match over")
	}
	e.Step(0.016)

	if got := e.Lifecycle().State; got != "game" {
		t.Errorf("state = %q, want game", got)
	}
	if scores := e.Scores(); scores[1] != 1 {
		t.Errorf("scores = %v, want player 1 to keep the win", scores)
	}
}

// TestEngineSetPlayerAI verifies AI toggling through the engine
func TestEngineSetPlayerAI(t *testing.T) {
	e := NewEngine(60)

	if err := e.SetPlayerAI(5, true); err == nil {
		t.Error("expected error for unknown player")
	}
	if err := e.SetPlayerAI(0, true); err != nil {
		t.Fatalf("SetPlayerAI: %v", err)
	}
	if err := e.SetPlayerAI(1, true); err != nil {
		t.Fatalf("SetPlayerAI: %v", err)
	}

	e.Step(0.016)
	lc := e.Lifecycle()
	if lc.State != "game" {
		t.Errorf("all-AI match should start, state %q", lc.State)
	}
	for _, p := range lc.Players {
		if !p.IsAI {
			t.Errorf("player %d should be AI", p.Index)
		}
	}
}

// TestEngineSnapshotIsolation verifies returned snapshots are private copies
func TestEngineSnapshotIsolation(t *testing.T) {
	e := NewEngine(60)
	startEngine(t, e)

	snap := e.GetSnapshot()
	if len(snap.Ships) == 0 {
		t.Fatal("expected ships")
	}
	snap.Ships[0].X = -999
	snap.Lifecycle.Players[0].Score = 42

	again := e.GetSnapshot()
	if again.Ships[0].X == -999 || again.Lifecycle.Players[0].Score == 42 {
		t.Error("mutating a returned snapshot leaked into the engine")
	}
}

// TestEngineSnapshotSequence verifies every step publishes a newer snapshot
func TestEngineSnapshotSequence(t *testing.T) {
	e := NewEngine(60)
	prev := e.GetSnapshot().Sequence

	for i := 0; i < 5; i++ {
		e.Step(0.016)
		snap := e.GetSnapshot()
		if snap.Sequence <= prev {
			t.Fatalf("sequence did not advance: %d -> %d", prev, snap.Sequence)
		}
		if snap.TickNumber != uint64(i+1) {
			t.Errorf("tick = %d, want %d", snap.TickNumber, i+1)
		}
		prev = snap.Sequence
	}
}

type countingObserver struct {
	mu    sync.Mutex
	ticks int
	ships []int
}

func (o *countingObserver) ObserveTick(_ time.Duration, snap *GameSnapshot, _ *FrameEvents) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ticks++
	o.ships = append(o.ships, snap.ShipCount)
}

// TestEngineTickObserver verifies the observer sees every tick
func TestEngineTickObserver(t *testing.T) {
	e := NewEngine(60)
	obs := &countingObserver{}
	e.SetTickObserver(obs)

	startEngine(t, e)
	e.Step(0.016)

	if obs.ticks != 2 {
		t.Errorf("observer saw %d ticks, want 2", obs.ticks)
	}
	if obs.ships[1] != 2 {
		t.Errorf("ship count = %d, want 2", obs.ships[1])
	}

	e.SetTickObserver(nil)
	e.Step(0.016)
	if obs.ticks != 2 {
		t.Error("removed observer still called")
	}
}

// TestEngineEventLog verifies ticks and transitions reach the event log
func TestEngineEventLog(t *testing.T) {
	e := NewEngine(60)
	if err := e.StartEventLog(""); err != nil {
		t.Fatalf("StartEventLog: %v", err)
	}
	defer e.StopEventLog()

	startEngine(t, e)
	e.SetPlayerAI(0, true)

	total, dropped := e.EventLogCounts()
	// One tick, one state change, one AI switch
	if total < 3 {
		t.Errorf("total events = %d, want at least 3", total)
	}
	if dropped != 0 {
		t.Errorf("dropped = %d, want 0", dropped)
	}

	stats := e.GetEventLogStats()
	if stats["running"] != true {
		t.Errorf("stats = %+v", stats)
	}
}
