package game

import (
	"spacewar/internal/game/ecs"
	"spacewar/internal/game/geom"
)

// MaxDelta bounds a single tick so a stall cannot simulate an unbounded span.
const MaxDelta = 0.1

// ClampDelta limits a frame delta to [0, MaxDelta] seconds.
func ClampDelta(dt float64) float64 {
	return geom.Clamp(dt, 0, MaxDelta)
}

// DestroyCause tells why an entity was removed.
type DestroyCause uint8

const (
	CauseCollision DestroyCause = iota + 1
	CauseTimer
)

// String returns the cause name
func (c DestroyCause) String() string {
	switch c {
	case CauseCollision:
		return "collision"
	case CauseTimer:
		return "timer"
	default:
		return "unknown"
	}
}

// ShipDestroyed reports a ship removed during a tick.
type ShipDestroyed struct {
	Entity   ecs.Entity   `json:"entity"`
	Player   int          `json:"player"`
	Position geom.Vec2    `json:"position"`
	Cause    DestroyCause `json:"cause"`
}

// ProjectileEvent reports a projectile created or destroyed during a tick.
// Owner is the shooter's player index, -1 when unknown.
type ProjectileEvent struct {
	Entity   ecs.Entity   `json:"entity"`
	Owner    int          `json:"owner"`
	Position geom.Vec2    `json:"position,omitempty"`
	Cause    DestroyCause `json:"cause,omitempty"`
}

// ImpulseFired reports a burst; Player is -1 for non-ship entities.
type ImpulseFired struct {
	Entity ecs.Entity `json:"entity"`
	Player int        `json:"player"`
}

// FrameEvents are the consumable signals of one tick.
type FrameEvents struct {
	ShipsDestroyed       []ShipDestroyed   `json:"shipsDestroyed,omitempty"`
	ProjectilesCreated   []ProjectileEvent `json:"projectilesCreated,omitempty"`
	ProjectilesDestroyed []ProjectileEvent `json:"projectilesDestroyed,omitempty"`
	ImpulsesFired        []ImpulseFired    `json:"impulsesFired,omitempty"`

	// Result is set by the match lifecycle on the tick a verdict is reached.
	Result *MatchResult `json:"result,omitempty"`
}

// Empty reports whether nothing happened.
func (ev *FrameEvents) Empty() bool {
	return len(ev.ShipsDestroyed) == 0 && len(ev.ProjectilesCreated) == 0 &&
		len(ev.ProjectilesDestroyed) == 0 && len(ev.ImpulsesFired) == 0 && ev.Result == nil
}

// Simulate advances the world by dt seconds and returns what happened.
//
// Systems run in a fixed order. Collision systems only mark entities; all
// removal happens in the cleanup systems at the end, so every system in the
// tick sees the same set of entities. Teleport runs after both collision
// passes and before destroy-by-collision.
func Simulate(w *World, dt float64) FrameEvents {
	var events FrameEvents

	// Forces and steering
	gravityWellSystem(w, dt)
	rotateByInputSystem(w)
	accelerateByInputSystem(w, dt)
	accelerateImpulseSystem(w, dt, &events)

	// Integration
	applyRotationSpeedSystem(w, dt)
	applyVelocitySystem(w, dt)
	wrapPositionSystem(w)

	// Weapons and collision
	shootingSystem(w, dt, &events)
	projectileMoveSystem(w, dt)
	circleVsCircleSystem(w)
	teleportSystem(w)

	// Cleanup
	clearImpulseAppliedSystem(w)
	destroyByCollisionSystem(w, &events)
	destroyTimerSystem(w, dt, &events)

	return events
}
