package game

import (
	"math"

	"spacewar/internal/game/ecs"
	"spacewar/internal/game/geom"
)

// DefaultWorldSize is the arena size used when none is configured.
var DefaultWorldSize = geom.V(1280, 720)

// Prototype selects an entity template for weapons to spawn.
// Weapons reference templates by value instead of carrying spawn closures.
type Prototype uint8

const (
	PrototypeNone Prototype = iota
	PrototypeProjectile
)

// String returns the template name
func (p Prototype) String() string {
	switch p {
	case PrototypeProjectile:
		return "projectile"
	default:
		return "none"
	}
}

// ShipParams are the tunables of a freshly spawned ship.
type ShipParams struct {
	Acceleration     float64 // units/s² while thrusting
	TurnSpeed        float64 // degrees/s at full axis
	ShootCooldown    float64 // seconds between shots
	MuzzleOffset     float64 // spawn distance of projectiles from the hull centre
	ProjectileSpeed  float64
	ImpulseCooldown  float64 // seconds between bursts
	ImpulsePower     float64 // instantaneous velocity change of a burst
	ColliderRadius   float64
	ProjectileLife   float64 // seconds before a projectile expires
	ProjectileRadius float64 // 0 = projectile has no collider
}

// DefaultShipParams returns the arena's standard ship.
func DefaultShipParams() ShipParams {
	return ShipParams{
		Acceleration:    25,
		TurnSpeed:       180,
		ShootCooldown:   1,
		MuzzleOffset:    40,
		ProjectileSpeed: 200,
		ImpulseCooldown: 3,
		ImpulsePower:    75,
		ColliderRadius:  15,
		ProjectileLife:  5,
	}
}

// WellParams describe the central gravity well and its teleport core.
type WellParams struct {
	MaxPower        float64
	DragRadius      float64
	DragCoefficient float64
	TeleportRadius  float64
	ExitSpeed       float64
}

// DefaultWellParams returns the arena's standard well.
func DefaultWellParams() WellParams {
	return WellParams{
		MaxPower:        1500,
		DragRadius:      50,
		DragCoefficient: 0.3,
		TeleportRadius:  10,
		ExitSpeed:       20,
	}
}

// SpawnParams position a spawned prototype.
type SpawnParams struct {
	Position geom.Vec2
	Velocity geom.Vec2
	Rotation float64
	Owner    int // player index of the shooter, -1 for none
}

// Spawn creates an entity from a prototype. Returns ecs.Nil for PrototypeNone.
func (w *World) Spawn(proto Prototype, p SpawnParams) ecs.Entity {
	switch proto {
	case PrototypeProjectile:
		e := w.SpawnProjectile(p.Position, p.Velocity, p.Rotation, w.Ship.ProjectileLife)
		if p.Owner >= 0 {
			w.Owners.Set(e, Owner{Player: p.Owner})
		}
		return e
	default:
		return ecs.Nil
	}
}

// SpawnShip creates a ship for a player.
func (w *World) SpawnShip(player int, pos geom.Vec2, rotation float64, params ShipParams) ecs.Entity {
	e := w.Registry.Create()

	w.Positions.Set(e, pos)
	w.Velocities.Set(e, geom.Vec2{})
	w.Rotations.Set(e, Rotation{Angle: geom.NormalizeAngle(rotation)})
	w.RotationSpeeds.Set(e, RotationSpeed{})

	w.Thrusters.Set(e, AccelerateByInput{Acceleration: params.Acceleration})
	w.Steering.Set(e, RotateByInput{TurnSpeed: params.TurnSpeed})
	w.Impulses.Set(e, AccelerateImpulse{
		Cooldown: params.ImpulseCooldown,
		Power:    params.ImpulsePower,
	})
	w.Weapons.Set(e, Shooting{
		Cooldown:        params.ShootCooldown,
		MuzzleOffset:    params.MuzzleOffset,
		ProjectileSpeed: params.ProjectileSpeed,
		Projectile:      PrototypeProjectile,
	})

	w.Colliders.Set(e, CircleCollider{Radius: params.ColliderRadius})
	w.Ships.Set(e, IsShip{Player: player})

	w.DestroyOnCollision.Set(e, Tag{})
	w.SusceptibleToGravity.Set(e, Tag{})
	w.Teleportable.Set(e, Tag{})
	w.WrapsAroundWorld.Set(e, Tag{})

	return e
}

// SpawnProjectile creates a projectile. Projectiles carry no collider of
// their own, so they never hit each other; they are swept against colliders
// by the projectile move system.
func (w *World) SpawnProjectile(pos, vel geom.Vec2, rotation, lifetime float64) ecs.Entity {
	e := w.Registry.Create()

	w.Positions.Set(e, pos)
	w.Velocities.Set(e, vel)
	w.Rotations.Set(e, Rotation{Angle: geom.NormalizeAngle(rotation)})

	w.Projectiles.Set(e, Tag{})
	w.WrapsAroundWorld.Set(e, Tag{})
	w.DestroyOnCollision.Set(e, Tag{})
	w.SetLifetime(e, lifetime)

	if w.Ship.ProjectileRadius > 0 {
		w.Colliders.Set(e, CircleCollider{Radius: w.Ship.ProjectileRadius})
	}

	return e
}

// SetLifetime attaches a destroy countdown to an entity.
func (w *World) SetLifetime(e ecs.Entity, seconds float64) {
	w.DestroyTimers.Set(e, DestroyTimer{TimeLeft: math.Max(0, seconds)})
}

// SpawnGravityWell creates the central well with its teleport core.
func (w *World) SpawnGravityWell(params WellParams) ecs.Entity {
	e := w.Registry.Create()
	center := w.Size.Mul(0.5)

	w.Positions.Set(e, center)
	w.Wells.Set(e, GravityWell{
		MaxRadius:       center.Len(),
		MaxPower:        params.MaxPower,
		DragRadius:      params.DragRadius,
		DragCoefficient: params.DragCoefficient,
	})
	w.Teleports.Set(e, Teleport{
		Radius:      params.TeleportRadius,
		Destination: w.Size,
		ExitSpeed:   params.ExitSpeed,
	})

	return e
}

// SpawnPoint returns the start position and facing for player i of n.
// The first two players start on opposite diagonals of the well; any further
// players are spread on a ring around it.
func (w *World) SpawnPoint(i, n int) (geom.Vec2, float64) {
	center := w.Size.Mul(0.5)
	quarter := w.Size.Mul(0.25)

	switch {
	case i == 0:
		return center.Sub(quarter), 225
	case i == 1:
		return center.Add(quarter), 45
	}

	angle := 360 * float64(i) / float64(n)
	radius := math.Min(quarter[0], quarter[1])
	pos := center.Add(geom.Forward(angle).Mul(radius))
	return pos, geom.NormalizeAngle(angle + 180)
}

// RecreateWorld wipes the store and sets up a fresh match: one ship per
// player and the gravity well. Each player's ship reference is updated.
func (w *World) RecreateWorld(players []*Player) {
	w.Registry.Clear()

	for i, p := range players {
		pos, rot := w.SpawnPoint(i, len(players))
		p.Ship = w.SpawnShip(p.Index, pos, rot, w.Ship)
	}

	w.SpawnGravityWell(w.Well)
}
