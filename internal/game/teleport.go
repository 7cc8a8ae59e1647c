package game

import (
	"spacewar/internal/game/ecs"
	"spacewar/internal/game/geom"
)

// teleportSystem moves Teleportable entities that fall into a well's core to
// the teleport destination, keeping their heading at a fixed exit speed.
//
// Runs after the collision passes. Entities already marked to die this tick
// are left where they are; destroyByCollisionSystem removes them next.
func teleportSystem(w *World) {
	w.Teleports.Each(func(we ecs.Entity, tp *Teleport) {
		if !w.Wells.Has(we) {
			return
		}
		wellPos, ok := w.Position(we)
		if !ok {
			return
		}

		w.Teleportable.Each(func(e ecs.Entity, _ *Tag) {
			if w.doomed(e) {
				return
			}
			pos, ok := w.Positions.Get(e)
			if !ok || !geom.PointInCircle(*pos, wellPos, tp.Radius) {
				return
			}

			*pos = tp.Destination

			if vel, ok := w.Velocities.Get(e); ok {
				if speed := vel.Len(); speed > minVelocityLength {
					*vel = vel.Mul(tp.ExitSpeed / speed)
				}
			}
		})
	})
}
