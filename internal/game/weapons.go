package game

import (
	"math"

	"spacewar/internal/game/ecs"
	"spacewar/internal/game/geom"
)

// shootingSystem fires weapons whose cooldown has elapsed.
// A weapon fires at most once per tick, so a long tick never produces a burst.
func shootingSystem(w *World, dt float64, events *FrameEvents) {
	w.Weapons.Each(func(e ecs.Entity, gun *Shooting) {
		gun.CooldownLeft = math.Max(0, gun.CooldownLeft-dt)
		if gun.CooldownLeft > 0 || !gun.Active {
			return
		}

		pos, ok := w.Position(e)
		if !ok {
			return
		}
		rot, ok := w.Rotations.Get(e)
		if !ok {
			return
		}
		angle := rot.Angle
		dir := geom.Forward(angle)

		gun.CooldownLeft = gun.Cooldown
		speed := gun.ProjectileSpeed
		proto := gun.Projectile

		owner := -1
		if ship, ok := w.Ships.Get(e); ok {
			owner = ship.Player
		}

		// Spawning may grow the shared stores; gun and rot are not used past here.
		proj := w.Spawn(proto, SpawnParams{
			Position: pos.Add(dir.Mul(w.muzzleOffset(e))),
			Velocity: dir.Mul(speed),
			Rotation: angle,
			Owner:    owner,
		})
		if proj.IsNil() {
			return
		}

		events.ProjectilesCreated = append(events.ProjectilesCreated, ProjectileEvent{Entity: proj, Owner: owner})
	})
}

// muzzleOffset returns how far ahead of the hull a weapon spawns projectiles.
// The offset is pushed past the shooter's own collider so a shot can never
// hit the ship that fired it.
func (w *World) muzzleOffset(e ecs.Entity) float64 {
	gun, ok := w.Weapons.Get(e)
	if !ok {
		return 0
	}
	offset := gun.MuzzleOffset
	if col, ok := w.Colliders.Get(e); ok && offset <= col.Radius {
		offset = col.Radius + w.Ship.ProjectileRadius + geom.SegmentPrecision
	}
	return offset
}

// projectileMoveSystem advances projectiles with swept collision: the path
// from the old to the new position is tested against every collider so fast
// shots cannot tunnel through thin targets. A hit marks both sides; it never
// blocks movement.
func projectileMoveSystem(w *World, dt float64) {
	w.Projectiles.Each(func(e ecs.Entity, _ *Tag) {
		pos, ok := w.Positions.Get(e)
		if !ok {
			return
		}
		vel, ok := w.Velocities.Get(e)
		if !ok {
			return
		}

		from := *pos
		to := from.Add(vel.Mul(dt))

		w.Colliders.Each(func(target ecs.Entity, col *CircleCollider) {
			if target == e {
				return
			}
			center, ok := w.Position(target)
			if !ok {
				return
			}
			if geom.SegmentIntersectsCircle(from, to, center, col.Radius) {
				w.CollisionHappened.Set(e, Tag{})
				w.CollisionHappened.Set(target, Tag{})
			}
		})

		*pos = to
	})
}
