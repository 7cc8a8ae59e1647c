package game

import (
	"spacewar/internal/game/ecs"
	"spacewar/internal/game/geom"
)

// Components are plain data; an entity's capabilities are the set of
// components it carries.

// Rotation is the facing in degrees, kept in [0, 360).
type Rotation struct {
	Angle float64
}

// RotationSpeed is the angular velocity in degrees per second.
type RotationSpeed struct {
	Speed float64
}

// AccelerateByInput applies continuous thrust while Active.
type AccelerateByInput struct {
	Active       bool
	Acceleration float64
}

// AccelerateImpulse is a cooldown-gated one-shot velocity burst.
type AccelerateImpulse struct {
	Active       bool
	Cooldown     float64
	CooldownLeft float64
	Power        float64
}

// RotateByInput turns the entity at TurnSpeed scaled by Axis in [-1, 1].
type RotateByInput struct {
	Axis      float64
	TurnSpeed float64
}

// Shooting spawns Projectile prototypes while Active, gated by Cooldown.
type Shooting struct {
	Active          bool
	Cooldown        float64
	CooldownLeft    float64
	MuzzleOffset    float64
	ProjectileSpeed float64
	Projectile      Prototype
}

// CircleCollider makes the entity a target for both collision systems.
type CircleCollider struct {
	Radius float64
}

// IsShip marks a ship and records the index of the player flying it.
type IsShip struct {
	Player int
}

// Owner records which player fired a projectile.
type Owner struct {
	Player int
}

// DestroyTimer removes the entity when TimeLeft runs out.
type DestroyTimer struct {
	TimeLeft float64
}

// GravityWell pulls SusceptibleToGravity entities and drags them near the core.
type GravityWell struct {
	MaxRadius       float64
	MaxPower        float64
	DragRadius      float64
	DragCoefficient float64
}

// Teleport relocates Teleportable entities that reach the well's core.
// Only meaningful on an entity that also carries GravityWell.
type Teleport struct {
	Radius      float64
	Destination geom.Vec2
	ExitSpeed   float64
}

// Tag is a zero-size marker component.
type Tag struct{}

// World is the entity store for one arena plus its dimensions.
type World struct {
	Registry *ecs.Registry
	Size     geom.Vec2

	Positions      *ecs.Store[geom.Vec2]
	Velocities     *ecs.Store[geom.Vec2]
	Rotations      *ecs.Store[Rotation]
	RotationSpeeds *ecs.Store[RotationSpeed]

	Thrusters *ecs.Store[AccelerateByInput]
	Impulses  *ecs.Store[AccelerateImpulse]
	Steering  *ecs.Store[RotateByInput]
	Weapons   *ecs.Store[Shooting]

	Colliders     *ecs.Store[CircleCollider]
	Ships         *ecs.Store[IsShip]
	Owners        *ecs.Store[Owner]
	DestroyTimers *ecs.Store[DestroyTimer]
	Wells         *ecs.Store[GravityWell]
	Teleports     *ecs.Store[Teleport]

	// Markers
	Projectiles          *ecs.Store[Tag]
	WrapsAroundWorld     *ecs.Store[Tag]
	DestroyOnCollision   *ecs.Store[Tag]
	SusceptibleToGravity *ecs.Store[Tag]
	Teleportable         *ecs.Store[Tag]

	// One-shot markers, cleared every tick
	CollisionHappened *ecs.Store[Tag]
	ImpulseApplied    *ecs.Store[Tag]

	// Settings used by RecreateWorld
	Ship ShipParams
	Well WellParams

	collide collisionScratch
}

// NewWorld creates an empty world of the given size.
// Non-positive dimensions fall back to the default arena size.
func NewWorld(size geom.Vec2) *World {
	if size[0] <= 0 || size[1] <= 0 {
		size = DefaultWorldSize
	}

	reg := ecs.NewRegistry()
	return &World{
		Registry: reg,
		Size:     size,

		Positions:      ecs.NewStore[geom.Vec2](reg),
		Velocities:     ecs.NewStore[geom.Vec2](reg),
		Rotations:      ecs.NewStore[Rotation](reg),
		RotationSpeeds: ecs.NewStore[RotationSpeed](reg),

		Thrusters: ecs.NewStore[AccelerateByInput](reg),
		Impulses:  ecs.NewStore[AccelerateImpulse](reg),
		Steering:  ecs.NewStore[RotateByInput](reg),
		Weapons:   ecs.NewStore[Shooting](reg),

		Colliders:     ecs.NewStore[CircleCollider](reg),
		Ships:         ecs.NewStore[IsShip](reg),
		Owners:        ecs.NewStore[Owner](reg),
		DestroyTimers: ecs.NewStore[DestroyTimer](reg),
		Wells:         ecs.NewStore[GravityWell](reg),
		Teleports:     ecs.NewStore[Teleport](reg),

		Projectiles:          ecs.NewStore[Tag](reg),
		WrapsAroundWorld:     ecs.NewStore[Tag](reg),
		DestroyOnCollision:   ecs.NewStore[Tag](reg),
		SusceptibleToGravity: ecs.NewStore[Tag](reg),
		Teleportable:         ecs.NewStore[Tag](reg),

		CollisionHappened: ecs.NewStore[Tag](reg),
		ImpulseApplied:    ecs.NewStore[Tag](reg),

		Ship: DefaultShipParams(),
		Well: DefaultWellParams(),
	}
}

// Valid reports whether the handle refers to a live entity in this world.
func (w *World) Valid(e ecs.Entity) bool {
	return w.Registry.Valid(e)
}

// Position returns an entity's position, or false if it has none.
func (w *World) Position(e ecs.Entity) (geom.Vec2, bool) {
	p, ok := w.Positions.Get(e)
	if !ok {
		return geom.Vec2{}, false
	}
	return *p, true
}

// ShipCount returns the number of live ships.
func (w *World) ShipCount() int {
	return w.Ships.Len()
}

// ShipOf returns the live ship flown by a player, if any.
func (w *World) ShipOf(player int) (ecs.Entity, bool) {
	found := ecs.Nil
	w.Ships.Each(func(e ecs.Entity, s *IsShip) {
		if found.IsNil() && s.Player == player {
			found = e
		}
	})
	return found, !found.IsNil()
}

// doomed reports whether an entity is marked for removal at the end of the tick.
func (w *World) doomed(e ecs.Entity) bool {
	return w.CollisionHappened.Has(e) && w.DestroyOnCollision.Has(e)
}
