package game

import (
	"slices"
	"sync/atomic"
	"time"

	"spacewar/internal/game/ecs"
)

// ResourceLimits caps what a snapshot carries so a runaway world cannot
// blow up the wire payload.
type ResourceLimits struct {
	MaxShips       int
	MaxProjectiles int
	MaxWells       int
}

// DefaultLimits provides production-safe default limits
var DefaultLimits = ResourceLimits{
	MaxShips:       16,
	MaxProjectiles: 512,
	MaxWells:       4,
}

// ShipSnapshot is an immutable copy of a ship for rendering
type ShipSnapshot struct {
	Entity         ecs.Entity `json:"entity" msgpack:"entity"`
	Player         int        `json:"player" msgpack:"player"`
	X              float64    `json:"x" msgpack:"x"`
	Y              float64    `json:"y" msgpack:"y"`
	VX             float64    `json:"vx" msgpack:"vx"`
	VY             float64    `json:"vy" msgpack:"vy"`
	Rotation       float64    `json:"rotation" msgpack:"rotation"`
	Radius         float64    `json:"radius" msgpack:"radius"`
	Thrusting      bool       `json:"thrusting" msgpack:"thrusting"`
	ImpulseApplied bool       `json:"impulseApplied" msgpack:"impulseApplied"`
	ShootCooldown  float64    `json:"shootCooldown" msgpack:"shootCooldown"`
	BurstCooldown  float64    `json:"burstCooldown" msgpack:"burstCooldown"`
}

// ProjectileSnapshot is an immutable projectile for rendering
type ProjectileSnapshot struct {
	Entity   ecs.Entity `json:"entity" msgpack:"entity"`
	Owner    int        `json:"owner" msgpack:"owner"`
	X        float64    `json:"x" msgpack:"x"`
	Y        float64    `json:"y" msgpack:"y"`
	VX       float64    `json:"vx" msgpack:"vx"`
	VY       float64    `json:"vy" msgpack:"vy"`
	TimeLeft float64    `json:"timeLeft" msgpack:"timeLeft"`
}

// WellSnapshot is the gravity well and its teleport core
type WellSnapshot struct {
	X              float64 `json:"x" msgpack:"x"`
	Y              float64 `json:"y" msgpack:"y"`
	MaxRadius      float64 `json:"maxRadius" msgpack:"maxRadius"`
	DragRadius     float64 `json:"dragRadius" msgpack:"dragRadius"`
	TeleportRadius float64 `json:"teleportRadius" msgpack:"teleportRadius"`
}

// GameSnapshot is a complete immutable game state for rendering.
// All slices are pre-allocated and capped by ResourceLimits.
type GameSnapshot struct {
	Sequence   uint64    `json:"sequence" msgpack:"sequence"`
	Timestamp  time.Time `json:"timestamp" msgpack:"timestamp"`
	TickNumber uint64    `json:"tick" msgpack:"tick"`

	WorldWidth  float64 `json:"worldWidth" msgpack:"worldWidth"`
	WorldHeight float64 `json:"worldHeight" msgpack:"worldHeight"`

	Lifecycle LifecycleSnapshot `json:"lifecycle" msgpack:"lifecycle"`

	Ships       []ShipSnapshot       `json:"ships" msgpack:"ships"`
	Projectiles []ProjectileSnapshot `json:"projectiles" msgpack:"projectiles"`
	Wells       []WellSnapshot       `json:"wells" msgpack:"wells"`

	// Totals before capping
	EntityCount     int `json:"entityCount" msgpack:"entityCount"`
	ShipCount       int `json:"shipCount" msgpack:"shipCount"`
	ProjectileCount int `json:"projectileCount" msgpack:"projectileCount"`
}

// Clone returns a deep copy safe to hand to another goroutine
func (s *GameSnapshot) Clone() GameSnapshot {
	c := *s
	c.Lifecycle.Players = slices.Clone(s.Lifecycle.Players)
	if s.Lifecycle.Result != nil {
		r := *s.Lifecycle.Result
		c.Lifecycle.Result = &r
	}
	c.Ships = slices.Clone(s.Ships)
	c.Projectiles = slices.Clone(s.Projectiles)
	c.Wells = slices.Clone(s.Wells)
	return c
}

// capture fills the snapshot from a match, respecting limits
func (s *GameSnapshot) capture(m *Match, limits ResourceLimits) {
	w := m.World()

	s.WorldWidth = w.Size[0]
	s.WorldHeight = w.Size[1]
	s.Lifecycle = m.Snapshot()
	s.EntityCount = w.Registry.Len()
	s.ShipCount = w.Ships.Len()
	s.ProjectileCount = w.Projectiles.Len()

	w.Ships.Each(func(e ecs.Entity, ship *IsShip) {
		if len(s.Ships) >= limits.MaxShips {
			return
		}
		snap := ShipSnapshot{
			Entity:         e,
			Player:         ship.Player,
			ImpulseApplied: w.ImpulseApplied.Has(e),
		}
		if p, ok := w.Positions.Get(e); ok {
			snap.X, snap.Y = p[0], p[1]
		}
		if v, ok := w.Velocities.Get(e); ok {
			snap.VX, snap.VY = v[0], v[1]
		}
		if r, ok := w.Rotations.Get(e); ok {
			snap.Rotation = r.Angle
		}
		if c, ok := w.Colliders.Get(e); ok {
			snap.Radius = c.Radius
		}
		if th, ok := w.Thrusters.Get(e); ok {
			snap.Thrusting = th.Active
		}
		if gun, ok := w.Weapons.Get(e); ok {
			snap.ShootCooldown = gun.CooldownLeft
		}
		if imp, ok := w.Impulses.Get(e); ok {
			snap.BurstCooldown = imp.CooldownLeft
		}
		s.Ships = append(s.Ships, snap)
	})

	w.Projectiles.Each(func(e ecs.Entity, _ *Tag) {
		if len(s.Projectiles) >= limits.MaxProjectiles {
			return
		}
		snap := ProjectileSnapshot{Entity: e, Owner: -1}
		if o, ok := w.Owners.Get(e); ok {
			snap.Owner = o.Player
		}
		if p, ok := w.Positions.Get(e); ok {
			snap.X, snap.Y = p[0], p[1]
		}
		if v, ok := w.Velocities.Get(e); ok {
			snap.VX, snap.VY = v[0], v[1]
		}
		if t, ok := w.DestroyTimers.Get(e); ok {
			snap.TimeLeft = t.TimeLeft
		}
		s.Projectiles = append(s.Projectiles, snap)
	})

	w.Wells.Each(func(e ecs.Entity, well *GravityWell) {
		if len(s.Wells) >= limits.MaxWells {
			return
		}
		snap := WellSnapshot{MaxRadius: well.MaxRadius, DragRadius: well.DragRadius}
		if p, ok := w.Positions.Get(e); ok {
			snap.X, snap.Y = p[0], p[1]
		}
		if tp, ok := w.Teleports.Get(e); ok {
			snap.TeleportRadius = tp.Radius
		}
		s.Wells = append(s.Wells, snap)
	})
}

// SnapshotPool pre-allocates snapshots to avoid GC pressure
// Uses triple buffering for producer/consumer handoff
type SnapshotPool struct {
	snapshots [3]GameSnapshot // Triple buffer
	limits    ResourceLimits
	writeIdx  uint32 // atomic - producer index
	readIdx   uint32 // atomic - consumer index
	sequence  uint64 // atomic - monotonic sequence
}

// NewSnapshotPool creates a pool with pre-allocated slices
func NewSnapshotPool(limits ResourceLimits) *SnapshotPool {
	pool := &SnapshotPool{limits: limits}

	for i := range pool.snapshots {
		pool.snapshots[i] = GameSnapshot{
			Ships:       make([]ShipSnapshot, 0, limits.MaxShips),
			Projectiles: make([]ProjectileSnapshot, 0, limits.MaxProjectiles),
			Wells:       make([]WellSnapshot, 0, limits.MaxWells),
		}
	}

	return pool
}

// AcquireWrite gets the next write slot (producer only, called from game tick)
// Returns a snapshot with reset slices but preserved capacity
func (p *SnapshotPool) AcquireWrite() *GameSnapshot {
	idx := atomic.AddUint32(&p.writeIdx, 1) % 3
	snap := &p.snapshots[idx]

	snap.Ships = snap.Ships[:0]
	snap.Projectiles = snap.Projectiles[:0]
	snap.Wells = snap.Wells[:0]

	snap.Sequence = atomic.AddUint64(&p.sequence, 1)
	snap.Timestamp = time.Now()

	return snap
}

// PublishWrite marks write complete and advances read pointer
// Called after snapshot is fully populated
func (p *SnapshotPool) PublishWrite() {
	atomic.StoreUint32(&p.readIdx, atomic.LoadUint32(&p.writeIdx))
}

// AcquireRead gets the latest complete snapshot (consumer only)
func (p *SnapshotPool) AcquireRead() *GameSnapshot {
	idx := atomic.LoadUint32(&p.readIdx) % 3
	return &p.snapshots[idx]
}

// GetLimits returns the resource limits
func (p *SnapshotPool) GetLimits() ResourceLimits {
	return p.limits
}
