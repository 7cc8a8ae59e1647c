// Package ecs is a small entity-component store.
//
// Entities are generation-checked handles into a slot map: destroying an
// entity bumps the slot's generation so every copy of the old handle stops
// resolving. Handles therefore work as weak references; callers check Valid
// (or the ok result of a lookup) instead of tracking ownership.
//
// Components live in typed Stores that register themselves with a Registry so
// Destroy can strip them. A Registry and its stores are single-writer: the
// simulation tick owns them and readers look only between ticks.
package ecs

import "fmt"

// Entity is a handle to an entity in a Registry.
type Entity struct {
	Index      uint32 `json:"index" msgpack:"index"`
	Generation uint32 `json:"generation" msgpack:"generation"`
}

// Nil is the zero handle. Generation 0 is never issued so Nil is never valid.
var Nil = Entity{}

// IsNil reports whether the handle is the zero handle.
func (e Entity) IsNil() bool {
	return e.Generation == 0
}

func (e Entity) String() string {
	return fmt.Sprintf("%d:%d", e.Index, e.Generation)
}

// componentStore is the type-erased view of a Store the Registry needs.
type componentStore interface {
	removeIndex(index uint32)
	clear()
}

// Registry allocates entity handles and tracks which are alive.
type Registry struct {
	generations []uint32 // current generation per slot
	alive       []bool
	free        []uint32 // recycled slot indices (LIFO)
	stores      []componentStore
	count       int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		generations: make([]uint32, 0, 64),
		alive:       make([]bool, 0, 64),
	}
}

// Create allocates a new entity, reusing a freed slot when possible.
func (r *Registry) Create() Entity {
	r.count++

	if n := len(r.free); n > 0 {
		idx := r.free[n-1]
		r.free = r.free[:n-1]
		r.alive[idx] = true
		return Entity{Index: idx, Generation: r.generations[idx]}
	}

	idx := uint32(len(r.generations))
	r.generations = append(r.generations, 1)
	r.alive = append(r.alive, true)
	return Entity{Index: idx, Generation: 1}
}

// Valid reports whether the handle still refers to a live entity.
func (r *Registry) Valid(e Entity) bool {
	if e.IsNil() || int(e.Index) >= len(r.generations) {
		return false
	}
	return r.alive[e.Index] && r.generations[e.Index] == e.Generation
}

// Destroy removes an entity and all of its components.
// Returns false if the handle was already stale.
func (r *Registry) Destroy(e Entity) bool {
	if !r.Valid(e) {
		return false
	}

	for _, s := range r.stores {
		s.removeIndex(e.Index)
	}

	r.alive[e.Index] = false
	r.generations[e.Index]++
	if r.generations[e.Index] == 0 {
		// Skip generation 0 on wraparound so Nil stays invalid
		r.generations[e.Index] = 1
	}
	r.free = append(r.free, e.Index)
	r.count--
	return true
}

// Len returns the number of live entities.
func (r *Registry) Len() int {
	return r.count
}

// Each calls fn for every live entity in slot order.
func (r *Registry) Each(fn func(e Entity)) {
	for i, ok := range r.alive {
		if ok {
			fn(Entity{Index: uint32(i), Generation: r.generations[i]})
		}
	}
}

// Clear destroys every entity. All outstanding handles become invalid.
func (r *Registry) Clear() {
	for _, s := range r.stores {
		s.clear()
	}
	r.free = r.free[:0]
	for i := len(r.alive) - 1; i >= 0; i-- {
		if r.alive[i] {
			r.alive[i] = false
			r.generations[i]++
			if r.generations[i] == 0 {
				r.generations[i] = 1
			}
		}
		r.free = append(r.free, uint32(i))
	}
	r.count = 0
}

func (r *Registry) register(s componentStore) {
	r.stores = append(r.stores, s)
}

// entityAt returns the live handle for a slot index.
func (r *Registry) entityAt(index uint32) Entity {
	return Entity{Index: index, Generation: r.generations[index]}
}
