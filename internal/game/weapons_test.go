package game

import (
	"testing"

	"spacewar/internal/game/geom"
)

// TestShootingCooldown verifies shots are spaced by the weapon cooldown
func TestShootingCooldown(t *testing.T) {
	w := newTestWorld()
	ship := spawnTestShip(w, 0, geom.V(500, 500), 0, 15)
	gun, _ := w.Weapons.Get(ship)
	gun.Active = true

	shots := 0
	// 0.25s ticks with a 1s cooldown fire on ticks 1, 5 and 9
	for i := 0; i < 10; i++ {
		events := Simulate(w, 0.25)
		shots += len(events.ProjectilesCreated)
	}
	if shots != 3 {
		t.Errorf("expected 3 shots, got %d", shots)
	}
	if w.Projectiles.Len() != 3 {
		t.Errorf("expected 3 live projectiles, got %d", w.Projectiles.Len())
	}
}

// TestShootingOncePerTick verifies a long tick never produces a burst of shots
func TestShootingOncePerTick(t *testing.T) {
	w := newTestWorld()
	ship := spawnTestShip(w, 0, geom.V(500, 500), 0, 15)
	gun, _ := w.Weapons.Get(ship)
	gun.Active = true
	gun.Cooldown = 0.01

	events := Simulate(w, 1)
	if len(events.ProjectilesCreated) != 1 {
		t.Errorf("expected exactly one shot, got %d", len(events.ProjectilesCreated))
	}
}

// TestShootingInactiveStillCoolsDown verifies the cooldown runs while the trigger is released
func TestShootingInactiveStillCoolsDown(t *testing.T) {
	w := newTestWorld()
	ship := spawnTestShip(w, 0, geom.V(500, 500), 0, 15)
	gun, _ := w.Weapons.Get(ship)
	gun.CooldownLeft = 0.5

	events := Simulate(w, 0.25)
	gun, _ = w.Weapons.Get(ship)
	if len(events.ProjectilesCreated) != 0 {
		t.Fatal("inactive weapon must not fire")
	}
	if !approx(gun.CooldownLeft, 0.25, 1e-9) {
		t.Errorf("cooldown = %v, want 0.25", gun.CooldownLeft)
	}

	Simulate(w, 1)
	gun, _ = w.Weapons.Get(ship)
	if gun.CooldownLeft != 0 {
		t.Errorf("cooldown should bottom out at 0, got %v", gun.CooldownLeft)
	}
}

// TestProjectileSpawn verifies muzzle placement, velocity, owner and lifetime
func TestProjectileSpawn(t *testing.T) {
	w := newTestWorld()
	ship := spawnTestShip(w, 1, geom.V(500, 500), 90, 15)
	gun, _ := w.Weapons.Get(ship)
	gun.Active = true

	events := Simulate(w, 0.1)
	if len(events.ProjectilesCreated) != 1 {
		t.Fatalf("expected one projectile, got %d", len(events.ProjectilesCreated))
	}
	created := events.ProjectilesCreated[0]
	if created.Owner != 1 {
		t.Errorf("owner = %d, want 1", created.Owner)
	}

	proj := created.Entity
	// Spawned 40 ahead, then moved 200*0.1 in the same tick
	pos, _ := w.Position(proj)
	if !approxVec(pos, geom.V(500, 560), 1e-9) {
		t.Errorf("position = %v, want (500, 560)", pos)
	}
	vel, _ := w.Velocities.Get(proj)
	if !approxVec(*vel, geom.V(0, 200), 1e-9) {
		t.Errorf("velocity = %v, want (0, 200)", *vel)
	}
	timer, ok := w.DestroyTimers.Get(proj)
	if !ok || !approx(timer.TimeLeft, DefaultShipParams().ProjectileLife-0.1, 1e-9) {
		t.Errorf("unexpected lifetime %+v", timer)
	}
	if owner, ok := w.Owners.Get(proj); !ok || owner.Player != 1 {
		t.Errorf("owner component = %+v", owner)
	}
}

// TestMuzzleOffsetClearsOwnHull verifies a short muzzle is pushed outside the
// shooter's collider so a ship never shoots itself
func TestMuzzleOffsetClearsOwnHull(t *testing.T) {
	w := newTestWorld()
	ship := spawnTestShip(w, 0, geom.V(500, 500), 0, 15)
	gun, _ := w.Weapons.Get(ship)
	gun.MuzzleOffset = 5

	if got, want := w.muzzleOffset(ship), 15+geom.SegmentPrecision; !approx(got, want, 1e-12) {
		t.Errorf("muzzleOffset = %v, want %v", got, want)
	}

	gun.Active = true
	for i := 0; i < 5; i++ {
		Simulate(w, 0.25)
	}
	if !w.Valid(ship) {
		t.Fatal("ship destroyed by its own projectile")
	}
}

// TestMuzzleOffsetKeepsLongBarrel verifies offsets already past the hull are untouched
func TestMuzzleOffsetKeepsLongBarrel(t *testing.T) {
	w := newTestWorld()
	ship := spawnTestShip(w, 0, geom.V(500, 500), 0, 15)

	if got := w.muzzleOffset(ship); got != 40 {
		t.Errorf("muzzleOffset = %v, want 40", got)
	}
}

// TestProjectileSweptHitDoesNotTunnel verifies a projectile crossing a thin
// target within one tick still hits it
func TestProjectileSweptHitDoesNotTunnel(t *testing.T) {
	w := newTestWorld()
	target := spawnTestShip(w, 0, geom.V(500, 500), 0, 2)
	w.SpawnProjectile(geom.V(100, 500), geom.V(8000, 0), 0, 5)

	Simulate(w, 0.1)

	if w.Valid(target) {
		t.Error("fast projectile tunnelled through the target")
	}
}

// TestProjectilesIgnoreEachOther verifies projectiles without colliders never collide
func TestProjectilesIgnoreEachOther(t *testing.T) {
	w := newTestWorld()
	a := w.SpawnProjectile(geom.V(100, 500), geom.V(100, 0), 0, 5)
	b := w.SpawnProjectile(geom.V(120, 500), geom.V(-100, 0), 180, 5)

	Simulate(w, 0.2)

	if !w.Valid(a) || !w.Valid(b) {
		t.Error("projectiles should pass through each other")
	}
}

// TestProjectileColliderRadius verifies a configured radius gives projectiles a collider
func TestProjectileColliderRadius(t *testing.T) {
	w := newTestWorld()
	w.Ship.ProjectileRadius = 3

	p := w.SpawnProjectile(geom.V(100, 100), geom.Vec2{}, 0, 1)
	col, ok := w.Colliders.Get(p)
	if !ok || col.Radius != 3 {
		t.Errorf("expected collider of radius 3, got %+v ok=%v", col, ok)
	}
}

// TestSpawnPrototype verifies spawning by template
func TestSpawnPrototype(t *testing.T) {
	w := newTestWorld()

	if e := w.Spawn(PrototypeNone, SpawnParams{}); !e.IsNil() {
		t.Errorf("PrototypeNone should spawn nothing, got %v", e)
	}

	e := w.Spawn(PrototypeProjectile, SpawnParams{Position: geom.V(1, 2), Owner: -1})
	if !w.Projectiles.Has(e) {
		t.Fatal("expected a projectile")
	}
	if w.Owners.Has(e) {
		t.Error("owner -1 should not attach an Owner component")
	}
}
