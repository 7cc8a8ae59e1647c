package game

import (
	"spacewar/internal/game/ecs"
	"spacewar/internal/game/geom"
	"spacewar/internal/game/spatial"
)

// collisionScratch holds reusable buffers for the circle-vs-circle pass.
type collisionScratch struct {
	sap      *spatial.SweepAndPrune
	entities []ecs.Entity
	centers  []geom.Vec2
	radii    []float64
	circles  []spatial.Circle
}

// circleVsCircleSystem is the discrete pass run after all movement settled.
// Every overlapping pair of colliders is marked CollisionHappened on both
// sides. Sweep-and-prune only discards pairs whose X intervals cannot
// overlap; each candidate still gets the exact circle test, so the outcome
// matches a full pairwise check.
func circleVsCircleSystem(w *World) {
	sc := &w.collide
	if sc.sap == nil {
		sc.sap = spatial.NewSweepAndPrune(64)
	}

	sc.entities = sc.entities[:0]
	sc.centers = sc.centers[:0]
	sc.radii = sc.radii[:0]
	sc.circles = sc.circles[:0]

	w.Colliders.Each(func(e ecs.Entity, col *CircleCollider) {
		pos, ok := w.Position(e)
		if !ok {
			return
		}
		sc.entities = append(sc.entities, e)
		sc.centers = append(sc.centers, pos)
		sc.radii = append(sc.radii, col.Radius)
		sc.circles = append(sc.circles, spatial.Circle{X: pos[0], Radius: col.Radius})
	})

	if len(sc.circles) < 2 {
		return
	}

	for _, pair := range sc.sap.Update(sc.circles) {
		a, b := pair.A, pair.B
		if geom.CirclesIntersect(sc.centers[a], sc.radii[a], sc.centers[b], sc.radii[b]) {
			w.CollisionHappened.Set(sc.entities[a], Tag{})
			w.CollisionHappened.Set(sc.entities[b], Tag{})
		}
	}
}
