package game

import (
	"spacewar/internal/game/ecs"
)

// clearImpulseAppliedSystem strips the one-shot burst markers. Runs after any
// downstream reader has had the chance to see them this tick.
func clearImpulseAppliedSystem(w *World) {
	w.ImpulseApplied.Clear()
}

// destroyByCollisionSystem removes every collided entity that dies on contact.
// Collided entities without DestroyOnCollision survive and lose the marker.
func destroyByCollisionSystem(w *World, events *FrameEvents) {
	for _, e := range w.CollisionHappened.Entities() {
		if w.DestroyOnCollision.Has(e) {
			w.destroy(e, CauseCollision, events)
		}
	}
	w.CollisionHappened.Clear()
}

// destroyTimerSystem counts down lifetimes and removes expired entities.
func destroyTimerSystem(w *World, dt float64, events *FrameEvents) {
	var expired []ecs.Entity
	w.DestroyTimers.Each(func(e ecs.Entity, t *DestroyTimer) {
		t.TimeLeft -= dt
		if t.TimeLeft <= 0 {
			t.TimeLeft = 0
			expired = append(expired, e)
		}
	})

	for _, e := range expired {
		w.destroy(e, CauseTimer, events)
	}
}

// destroy removes an entity and reports what was lost.
// This is the only place the simulation destroys entities.
func (w *World) destroy(e ecs.Entity, cause DestroyCause, events *FrameEvents) {
	pos, _ := w.Position(e)

	if ship, ok := w.Ships.Get(e); ok {
		events.ShipsDestroyed = append(events.ShipsDestroyed, ShipDestroyed{
			Entity:   e,
			Player:   ship.Player,
			Position: pos,
			Cause:    cause,
		})
	} else if w.Projectiles.Has(e) {
		owner := -1
		if o, ok := w.Owners.Get(e); ok {
			owner = o.Player
		}
		events.ProjectilesDestroyed = append(events.ProjectilesDestroyed, ProjectileEvent{
			Entity:   e,
			Owner:    owner,
			Position: pos,
			Cause:    cause,
		})
	}

	w.Registry.Destroy(e)
}
