package game

import (
	"fmt"
	"log"
	"sync"
	"time"

	"spacewar/internal/game/geom"
)

// TickObserver receives per-tick measurements, e.g. for metrics export.
type TickObserver interface {
	ObserveTick(duration time.Duration, snap *GameSnapshot, events *FrameEvents)
}

// EngineOptions configure a new engine. Zero fields take defaults.
type EngineOptions struct {
	TickRate    int
	WorldSize   geom.Vec2
	Players     int
	AIPlayers   []int // indices that start under AI control
	RestartTime float64
	RestartKey  Key
	Ship        *ShipParams
	Well        *WellParams
	Limits      *ResourceLimits
	EventLog    EventLogOptions
}

// DefaultTickRate is the simulation rate in ticks per second.
const DefaultTickRate = 60

// Engine runs a match on a ticker and serves thread-safe access to it
type Engine struct {
	mu    sync.RWMutex
	match *Match
	keys  *KeyState

	tickRate  int
	running   bool
	ticker    *time.Ticker
	stopChan  chan struct{}
	lastTick  time.Time
	tickCount uint64

	// DoS Protection: Resource limits
	limits ResourceLimits

	// Snapshot system for render separation
	snapshotPool *SnapshotPool

	// Event sourcing for replay and debugging
	eventLog *EventLog

	observer TickObserver

	// Event callbacks, invoked after the tick releases the lock
	onShipDestroyed func(ShipDestroyed)
	onMatchOver     func(result MatchResult, scores []int)
}

// NewEngine creates a new game engine with default settings
func NewEngine(tickRate int) *Engine {
	return NewEngineWithOptions(EngineOptions{TickRate: tickRate})
}

// NewEngineWithOptions creates a new game engine
func NewEngineWithOptions(opts EngineOptions) *Engine {
	if opts.TickRate <= 0 {
		opts.TickRate = DefaultTickRate
	}
	if opts.Players <= 0 {
		opts.Players = 2
	}

	limits := DefaultLimits
	if opts.Limits != nil {
		limits = *opts.Limits
	}

	world := NewWorld(opts.WorldSize)
	if opts.Ship != nil {
		world.Ship = *opts.Ship
	}
	if opts.Well != nil {
		world.Well = *opts.Well
	}

	players := make([]*Player, opts.Players)
	for i := range players {
		players[i] = NewPlayer(i, PlayerOptions{})
	}
	for _, idx := range opts.AIPlayers {
		if idx >= 0 && idx < len(players) {
			players[idx].IsAI = true
		}
	}

	e := &Engine{
		match:        NewMatch(world, players, WithRestartTime(opts.RestartTime), WithRestartKey(opts.RestartKey)),
		keys:         NewKeyState(),
		tickRate:     opts.TickRate,
		stopChan:     make(chan struct{}),
		limits:       limits,
		snapshotPool: NewSnapshotPool(limits),
		eventLog:     NewEventLogWithOptions(opts.EventLog),
	}
	e.publishSnapshot()

	return e
}

// Start begins the game loop
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.lastTick = time.Now()
	e.mu.Unlock()

	e.ticker = time.NewTicker(time.Second / time.Duration(e.tickRate))

	go func() {
		for {
			select {
			case now := <-e.ticker.C:
				e.mu.Lock()
				dt := now.Sub(e.lastTick).Seconds()
				e.lastTick = now
				e.mu.Unlock()

				e.Step(dt)
			case <-e.stopChan:
				return
			}
		}
	}()

	log.Printf("🎮 Game engine started at %d TPS", e.tickRate)
}

// Stop stops the game loop
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	e.running = false
	if e.ticker != nil {
		e.ticker.Stop()
	}
	close(e.stopChan)
	log.Println("🛑 Game engine stopped")
}

// Step advances the match by dt seconds of wall time. The ticker calls it;
// tests call it directly for deterministic stepping.
func (e *Engine) Step(dt float64) FrameEvents {
	start := time.Now()

	e.mu.Lock()
	e.tickCount++
	tick := e.tickCount
	before := e.match.State().Kind()

	events := e.match.Update(dt, e.keys)

	after := e.match.State().Kind()
	scores := e.match.Scores()
	e.logFrame(tick, dt, before, after, scores, &events)
	snap := e.publishSnapshot()

	observer := e.observer
	onShipDestroyed := e.onShipDestroyed
	onMatchOver := e.onMatchOver
	e.mu.Unlock()

	if observer != nil {
		observer.ObserveTick(time.Since(start), snap, &events)
	}
	if onShipDestroyed != nil {
		for _, sd := range events.ShipsDestroyed {
			onShipDestroyed(sd)
		}
	}
	if onMatchOver != nil && events.Result != nil {
		onMatchOver(*events.Result, scores)
	}

	return events
}

// logFrame records the tick's events in the event log
func (e *Engine) logFrame(tick uint64, dt float64, before, after StateKind, scores []int, events *FrameEvents) {
	w := e.match.World()
	e.eventLog.EmitSimple(EventTypeTick, tick, "", TickPayload{
		DeltaTimeNs: int64(ClampDelta(dt) * 1e9),
		EntityCount: w.Registry.Len(),
		ShipCount:   w.Ships.Len(),
		State:       after.String(),
	})

	for _, sd := range events.ShipsDestroyed {
		e.eventLog.EmitSimple(EventTypeShipDestroyed, tick, playerSource(sd.Player), sd)
	}
	for _, pc := range events.ProjectilesCreated {
		e.eventLog.EmitSimple(EventTypeProjectileCreated, tick, playerSource(pc.Owner), pc)
	}
	for _, pd := range events.ProjectilesDestroyed {
		e.eventLog.EmitSimple(EventTypeProjectileDestroyed, tick, playerSource(pd.Owner), pd)
	}
	for _, imp := range events.ImpulsesFired {
		e.eventLog.EmitSimple(EventTypeImpulse, tick, playerSource(imp.Player), imp)
	}
	if events.Result != nil {
		e.eventLog.EmitSimple(EventTypeMatchOver, tick, "", MatchOverPayload{Result: *events.Result, Scores: scores})
	}
	if before != after {
		e.eventLog.EmitSimple(EventTypeStateChange, tick, "", StateChangePayload{
			From:   before.String(),
			To:     after.String(),
			Scores: scores,
		})
	}
}

func playerSource(player int) string {
	if player < 0 {
		return ""
	}
	return fmt.Sprintf("player:%d", player)
}

// publishSnapshot captures the match into the next snapshot slot.
// Caller holds the write lock.
func (e *Engine) publishSnapshot() *GameSnapshot {
	snap := e.snapshotPool.AcquireWrite()
	snap.TickNumber = e.tickCount
	snap.capture(e.match, e.limits)
	e.snapshotPool.PublishWrite()
	return snap
}

// KeyDown records a key press from any transport.
func (e *Engine) KeyDown(key Key) {
	e.keys.Set(key, true)
}

// KeyUp records a key release and feeds it to the ready check.
func (e *Engine) KeyUp(key Key) {
	e.keys.Set(key, false)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.match.HandleKeyReleased(key)
}

// RequestRestart restarts a finished match on the next tick.
// Returns false if no match is over.
func (e *Engine) RequestRestart() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.match.RequestRestart()
}

// SetPlayerAI switches a player between keyboard and AI control.
func (e *Engine) SetPlayerAI(index int, ai bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.match.SetPlayerAI(index, ai); err != nil {
		return err
	}
	e.eventLog.EmitSimple(EventTypePlayerAI, e.tickCount, playerSource(index), PlayerAIPayload{Player: index, IsAI: ai})
	log.Printf("🤖 Player %d AI=%v", index, ai)
	return nil
}

// GetSnapshot returns a copy of the latest published snapshot.
func (e *Engine) GetSnapshot() GameSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotPool.AcquireRead().Clone()
}

// Lifecycle returns the current lifecycle view.
func (e *Engine) Lifecycle() LifecycleSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.match.Snapshot()
}

// Scores returns each player's score in index order.
func (e *Engine) Scores() []int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.match.Scores()
}

// SetCallbacks sets event callbacks
func (e *Engine) SetCallbacks(onShipDestroyed func(ShipDestroyed), onMatchOver func(MatchResult, []int)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onShipDestroyed = onShipDestroyed
	e.onMatchOver = onMatchOver
}

// SetTickObserver installs a per-tick observer (nil removes it)
func (e *Engine) SetTickObserver(o TickObserver) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observer = o
}

// TickCount returns the number of ticks simulated
func (e *Engine) TickCount() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tickCount
}

// StartEventLog starts the event logging system
func (e *Engine) StartEventLog(filePath string) error {
	return e.eventLog.Start(filePath)
}

// StopEventLog stops the event logging system
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}

// GetEventLogStats returns event log statistics
func (e *Engine) GetEventLogStats() map[string]interface{} {
	return e.eventLog.GetStats()
}

// GetLimits returns the resource limits
func (e *Engine) GetLimits() ResourceLimits {
	return e.limits
}

// EventLogCounts returns accepted and dropped event totals
func (e *Engine) EventLogCounts() (total, dropped uint64) {
	return e.eventLog.GetTotalCount(), e.eventLog.GetDroppedCount()
}
