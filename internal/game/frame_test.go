package game

import (
	"math"
	"testing"

	"spacewar/internal/game/ecs"
	"spacewar/internal/game/geom"
)

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func approxVec(a, b geom.Vec2, tol float64) bool {
	return approx(a[0], b[0], tol) && approx(a[1], b[1], tol)
}

// newTestWorld returns an empty 1000x1000 arena without a gravity well
func newTestWorld() *World {
	return NewWorld(geom.V(1000, 1000))
}

// spawnTestShip spawns a ship with default params and a custom collider radius
func spawnTestShip(w *World, player int, pos geom.Vec2, rot, radius float64) ecs.Entity {
	params := DefaultShipParams()
	params.ColliderRadius = radius
	return w.SpawnShip(player, pos, rot, params)
}

// spawnDrifter spawns an entity that only moves: no collider, no gravity
func spawnDrifter(w *World, pos, vel geom.Vec2) ecs.Entity {
	e := w.Registry.Create()
	w.Positions.Set(e, pos)
	w.Velocities.Set(e, vel)
	return e
}

// TestSimulate_ProjectileKillsShip verifies a swept projectile destroys a
// ship and both leave the world in the same tick
func TestSimulate_ProjectileKillsShip(t *testing.T) {
	w := newTestWorld()
	ship := spawnTestShip(w, 0, geom.V(500, 500), 0, 5)
	proj := w.SpawnProjectile(geom.V(400, 500), geom.V(200, 0), 0, 5)

	// One tick moves the projectile from x=400 to x=520, straight through the ship
	events := Simulate(w, 0.6)

	if w.Valid(ship) {
		t.Error("ship should be destroyed")
	}
	if w.Valid(proj) {
		t.Error("projectile should be destroyed")
	}
	if len(events.ShipsDestroyed) != 1 || events.ShipsDestroyed[0].Cause != CauseCollision {
		t.Fatalf("expected one ship destroyed by collision, got %+v", events.ShipsDestroyed)
	}
	if len(events.ProjectilesDestroyed) != 1 {
		t.Fatalf("expected one projectile destroyed, got %+v", events.ProjectilesDestroyed)
	}

	result, ok := EvaluateResult(w, 1)
	if !ok || !result.Tie {
		t.Errorf("expected tie with no ships left, got %v ok=%v", result, ok)
	}
}

// TestSimulate_ShipsCollideMutually verifies overlapping ships destroy each
// other and the match ends in a tie
func TestSimulate_ShipsCollideMutually(t *testing.T) {
	w := newTestWorld()
	a := spawnTestShip(w, 0, geom.V(100, 100), 0, 15)
	b := spawnTestShip(w, 1, geom.V(120, 100), 180, 15)

	events := Simulate(w, 0.016)

	if w.Valid(a) || w.Valid(b) {
		t.Fatal("both ships should be destroyed")
	}
	if len(events.ShipsDestroyed) != 2 {
		t.Errorf("expected 2 ship events, got %d", len(events.ShipsDestroyed))
	}

	result, ok := EvaluateResult(w, 2)
	if !ok || result != TieResult {
		t.Errorf("expected tie, got %v ok=%v", result, ok)
	}
}

// TestSimulate_PlayerWinsByShooting verifies a full shot from firing to kill
func TestSimulate_PlayerWinsByShooting(t *testing.T) {
	w := newTestWorld()
	shooter := spawnTestShip(w, 0, geom.V(100, 500), 0, 15)
	target := spawnTestShip(w, 1, geom.V(300, 500), 0, 15)

	gun, _ := w.Weapons.Get(shooter)
	gun.Active = true

	var (
		result  MatchResult
		decided bool
		ticks   int
	)
	for ticks = 1; ticks <= 20 && !decided; ticks++ {
		Simulate(w, 0.1)
		result, decided = EvaluateResult(w, 2)
	}

	if !decided {
		t.Fatal("match should be decided within 20 ticks")
	}
	if result != WinFor(0) {
		t.Errorf("expected player 0 to win, got %v", result)
	}
	if !w.Valid(shooter) {
		t.Error("shooter must survive its own shot")
	}
	if w.Valid(target) {
		t.Error("target should be destroyed")
	}
}

// TestSimulate_TimerDestroysProjectile verifies lifetimes count down per tick
func TestSimulate_TimerDestroysProjectile(t *testing.T) {
	w := newTestWorld()
	proj := w.SpawnProjectile(geom.V(100, 100), geom.V(0, 0), 0, 1.0)

	Simulate(w, 0.1)
	timer, ok := w.DestroyTimers.Get(proj)
	if !ok || !approx(timer.TimeLeft, 0.9, 1e-9) {
		t.Fatalf("expected 0.9s left, got %+v", timer)
	}

	Simulate(w, 0.7)
	timer, _ = w.DestroyTimers.Get(proj)
	if !approx(timer.TimeLeft, 0.2, 1e-9) {
		t.Fatalf("expected 0.2s left, got %v", timer.TimeLeft)
	}

	events := Simulate(w, 0.25)
	if w.Valid(proj) {
		t.Fatal("projectile should expire")
	}
	if len(events.ProjectilesDestroyed) != 1 || events.ProjectilesDestroyed[0].Cause != CauseTimer {
		t.Errorf("expected one timer destruction, got %+v", events.ProjectilesDestroyed)
	}
}

// TestSimulate_CollisionWithoutDestroySurvives verifies the collision marker
// alone never removes an entity and is cleared at the end of the tick
func TestSimulate_CollisionWithoutDestroySurvives(t *testing.T) {
	w := newTestWorld()
	a := spawnDrifter(w, geom.V(100, 100), geom.Vec2{})
	b := spawnDrifter(w, geom.V(105, 100), geom.Vec2{})
	w.Colliders.Set(a, CircleCollider{Radius: 10})
	w.Colliders.Set(b, CircleCollider{Radius: 10})

	Simulate(w, 0.016)

	if !w.Valid(a) || !w.Valid(b) {
		t.Fatal("entities without DestroyOnCollision must survive")
	}
	if w.CollisionHappened.Len() != 0 {
		t.Errorf("collision markers should be cleared, %d left", w.CollisionHappened.Len())
	}
}

// TestSimulate_DoomedShipIsNotTeleported pins the system order: a ship
// killed by collision inside the well core is removed where it died
func TestSimulate_DoomedShipIsNotTeleported(t *testing.T) {
	w := newTestWorld()
	w.SpawnGravityWell(DefaultWellParams())
	center := geom.V(500, 500)

	a := spawnTestShip(w, 0, center, 0, 15)
	b := spawnTestShip(w, 1, geom.V(510, 500), 0, 15)

	events := Simulate(w, 0.016)

	if w.Valid(a) || w.Valid(b) {
		t.Fatal("both ships should be destroyed")
	}
	for _, sd := range events.ShipsDestroyed {
		if geom.Dist(sd.Position, center) > 20 {
			t.Errorf("player %d died at %v, expected near the well core", sd.Player, sd.Position)
		}
	}
}

// TestSimulate_TeleportRelocatesAndRescales verifies the well core sends a
// ship to the destination at exit speed
func TestSimulate_TeleportRelocatesAndRescales(t *testing.T) {
	w := newTestWorld()
	w.SpawnGravityWell(DefaultWellParams())

	ship := spawnTestShip(w, 0, geom.V(505, 500), 0, 15)
	vel, _ := w.Velocities.Get(ship)
	*vel = geom.V(30, 0)

	Simulate(w, 0.01)

	pos, _ := w.Position(ship)
	if !approxVec(pos, w.Size, 1e-9) {
		t.Errorf("expected ship at %v, got %v", w.Size, pos)
	}
	vel, _ = w.Velocities.Get(ship)
	if !approx(vel.Len(), DefaultWellParams().ExitSpeed, 1e-9) {
		t.Errorf("expected exit speed %v, got %v", DefaultWellParams().ExitSpeed, vel.Len())
	}
}

// TestSimulate_ImpulseMarkerIsOneShot verifies ImpulseApplied never
// survives a tick while the event still reports the burst
func TestSimulate_ImpulseMarkerIsOneShot(t *testing.T) {
	w := newTestWorld()
	ship := spawnTestShip(w, 0, geom.V(500, 500), 0, 15)
	imp, _ := w.Impulses.Get(ship)
	imp.Active = true

	events := Simulate(w, 0.01)

	if len(events.ImpulsesFired) != 1 || events.ImpulsesFired[0].Player != 0 {
		t.Fatalf("expected one burst from player 0, got %+v", events.ImpulsesFired)
	}
	if w.ImpulseApplied.Has(ship) {
		t.Error("ImpulseApplied should be cleared at end of tick")
	}
}

// TestFrameEventsEmpty checks the empty helper
func TestFrameEventsEmpty(t *testing.T) {
	var ev FrameEvents
	if !ev.Empty() {
		t.Error("zero FrameEvents should be empty")
	}
	ev.ImpulsesFired = append(ev.ImpulsesFired, ImpulseFired{Player: 1})
	if ev.Empty() {
		t.Error("FrameEvents with an impulse should not be empty")
	}
}

// TestClampDelta verifies frame deltas are limited to [0, MaxDelta]
func TestClampDelta(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.016, 0.016},
		{-1, 0},
		{0.1, 0.1},
		{3, MaxDelta},
	}
	for _, tt := range tests {
		if got := ClampDelta(tt.in); got != tt.want {
			t.Errorf("ClampDelta(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
