package game

import (
	"math"

	"spacewar/internal/game/ecs"
	"spacewar/internal/game/geom"
)

// Gravity falloff shape: power = maxPower * gravityScale / (r/maxRadius + gravitySoftening)²
const (
	gravityScale      = 0.0025
	gravitySoftening  = 0.045
	gravityMinDist    = 0.001
	minVelocityLength = 0.001
)

// GravityPowerAtRadius returns the pull strength of a well at distance r.
func GravityPowerAtRadius(well GravityWell, r float64) float64 {
	normalized := geom.Clamp(r/well.MaxRadius, 0, 1)
	k := normalized + gravitySoftening
	return well.MaxPower * gravityScale / (k * k)
}

// GravityAtPoint returns the acceleration a well applies at a point.
// Zero at the well's centre to avoid the singularity.
func GravityAtPoint(well GravityWell, wellPos, point geom.Vec2) geom.Vec2 {
	diff := wellPos.Sub(point)
	dist := diff.Len()
	if dist <= gravityMinDist {
		return geom.Vec2{}
	}
	return diff.Mul(GravityPowerAtRadius(well, dist) / dist)
}

// gravityWellSystem pulls every susceptible entity toward every well and
// applies drag inside the well's drag radius.
func gravityWellSystem(w *World, dt float64) {
	w.Wells.Each(func(we ecs.Entity, well *GravityWell) {
		wellPos, ok := w.Position(we)
		if !ok {
			return
		}

		w.SusceptibleToGravity.Each(func(e ecs.Entity, _ *Tag) {
			pos, ok := w.Position(e)
			if !ok {
				return
			}
			vel, ok := w.Velocities.Get(e)
			if !ok {
				return
			}

			if geom.Dist(wellPos, pos) < well.DragRadius {
				*vel = vel.Sub(vel.Mul(dt * well.DragCoefficient))
			}
			*vel = vel.Add(GravityAtPoint(*well, wellPos, pos).Mul(dt))
		})
	})
}

// rotateByInputSystem converts the steering axis into a rotation speed.
// It does not rotate; applyRotationSpeedSystem integrates.
func rotateByInputSystem(w *World) {
	w.Steering.Each(func(e ecs.Entity, in *RotateByInput) {
		if rs, ok := w.RotationSpeeds.Get(e); ok {
			rs.Speed = geom.Clamp(in.Axis, -1, 1) * in.TurnSpeed
		}
	})
}

// accelerateByInputSystem applies continuous thrust along the facing.
func accelerateByInputSystem(w *World, dt float64) {
	w.Thrusters.Each(func(e ecs.Entity, th *AccelerateByInput) {
		if !th.Active {
			return
		}
		rot, ok := w.Rotations.Get(e)
		if !ok {
			return
		}
		vel, ok := w.Velocities.Get(e)
		if !ok {
			return
		}
		*vel = vel.Add(geom.Forward(rot.Angle).Mul(th.Acceleration * dt))
	})
}

// accelerateImpulseSystem fires cooldown-gated velocity bursts.
func accelerateImpulseSystem(w *World, dt float64, events *FrameEvents) {
	w.Impulses.Each(func(e ecs.Entity, imp *AccelerateImpulse) {
		imp.CooldownLeft = math.Max(0, imp.CooldownLeft-dt)
		if imp.CooldownLeft > 0 || !imp.Active {
			return
		}

		rot, ok := w.Rotations.Get(e)
		if !ok {
			return
		}
		vel, ok := w.Velocities.Get(e)
		if !ok {
			return
		}

		*vel = vel.Add(geom.Forward(rot.Angle).Mul(imp.Power))
		imp.CooldownLeft = imp.Cooldown
		w.ImpulseApplied.Set(e, Tag{})

		player := -1
		if ship, ok := w.Ships.Get(e); ok {
			player = ship.Player
		}
		events.ImpulsesFired = append(events.ImpulsesFired, ImpulseFired{Entity: e, Player: player})
	})
}

// applyRotationSpeedSystem integrates angular velocity.
func applyRotationSpeedSystem(w *World, dt float64) {
	w.RotationSpeeds.Each(func(e ecs.Entity, rs *RotationSpeed) {
		if rot, ok := w.Rotations.Get(e); ok {
			rot.Angle = geom.NormalizeAngle(rot.Angle + rs.Speed*dt)
		}
	})
}

// applyVelocitySystem integrates velocity for everything except projectiles,
// which move in projectileMoveSystem with swept collision.
func applyVelocitySystem(w *World, dt float64) {
	w.Velocities.Each(func(e ecs.Entity, vel *geom.Vec2) {
		if w.Projectiles.Has(e) {
			return
		}
		if pos, ok := w.Positions.Get(e); ok {
			*pos = pos.Add(vel.Mul(dt))
		}
	})
}

// wrapPositionSystem keeps wrapping entities inside the toroidal arena.
func wrapPositionSystem(w *World) {
	w.WrapsAroundWorld.Each(func(e ecs.Entity, _ *Tag) {
		if pos, ok := w.Positions.Get(e); ok {
			*pos = geom.Wrap(*pos, w.Size)
		}
	})
}
