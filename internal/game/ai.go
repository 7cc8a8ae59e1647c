package game

import (
	"math"

	"spacewar/internal/game/ecs"
	"spacewar/internal/game/geom"
)

// AI tuning: angles in degrees, distances in world units.
const (
	AIThrustCone   = 40.0
	AIShootCone    = 10.0
	AINearDistance = 150.0
	AIFarDistance  = 600.0
)

// AIInput steers a ship at the first other ship in the world.
// Turns the short way toward it, thrusts when roughly facing and not too
// close, bursts when far, and shoots when lined up. Returns zero input when
// the ship is gone or has no opponent.
func AIInput(w *World, self ecs.Entity) ShipInput {
	selfPos, ok := w.Position(self)
	if !ok {
		return ShipInput{}
	}
	rot, ok := w.Rotations.Get(self)
	if !ok {
		return ShipInput{}
	}

	enemy := ecs.Nil
	w.Ships.Each(func(e ecs.Entity, _ *IsShip) {
		if enemy.IsNil() && e != self {
			enemy = e
		}
	})
	enemyPos, ok := w.Position(enemy)
	if !ok {
		return ShipInput{}
	}

	toEnemy := enemyPos.Sub(selfPos)
	dist := toEnemy.Len()
	diff := geom.AngleDelta(rot.Angle, geom.DirToAngle(toEnemy))
	absDiff := math.Abs(diff)

	var in ShipInput
	if diff > 0 {
		in.Rotate = 1
	} else {
		in.Rotate = -1
	}

	if absDiff < AIThrustCone {
		in.Thrust = dist > AINearDistance
		in.ThrustBurst = dist > AIFarDistance
	}
	in.Shoot = absDiff < AIShootCone

	return in
}
