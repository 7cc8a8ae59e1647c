package ecs

// Store holds one component type for the entities of a Registry.
// Uses the sparse set pattern: a sparse index from entity slot to a packed
// dense array, so iteration is cache-friendly and deterministic.
//
// Pointers returned by Get and Each stay valid until the next Set of a new
// entity into the same store or any removal from it.
type Store[T any] struct {
	reg    *Registry
	sparse []int32 // entity index -> dense position, -1 when absent
	dense  []T
	owners []uint32 // dense position -> entity index
}

// NewStore creates a store for T and registers it with the registry.
func NewStore[T any](reg *Registry) *Store[T] {
	s := &Store[T]{
		reg:    reg,
		dense:  make([]T, 0, 16),
		owners: make([]uint32, 0, 16),
	}
	reg.register(s)
	return s
}

// Set inserts or replaces the component for e.
// Returns false (and stores nothing) if e is not a live entity.
func (s *Store[T]) Set(e Entity, val T) bool {
	if !s.reg.Valid(e) {
		return false
	}

	if pos, ok := s.position(e.Index); ok {
		s.dense[pos] = val
		return true
	}

	for int(e.Index) >= len(s.sparse) {
		s.sparse = append(s.sparse, -1)
	}
	s.sparse[e.Index] = int32(len(s.dense))
	s.dense = append(s.dense, val)
	s.owners = append(s.owners, e.Index)
	return true
}

// Get returns a pointer to the component of e for in-place mutation.
func (s *Store[T]) Get(e Entity) (*T, bool) {
	if !s.reg.Valid(e) {
		return nil, false
	}
	pos, ok := s.position(e.Index)
	if !ok {
		return nil, false
	}
	return &s.dense[pos], true
}

// Has reports whether e is live and carries this component.
func (s *Store[T]) Has(e Entity) bool {
	if !s.reg.Valid(e) {
		return false
	}
	_, ok := s.position(e.Index)
	return ok
}

// Remove detaches the component from e. Returns false if it was absent.
func (s *Store[T]) Remove(e Entity) bool {
	if !s.reg.Valid(e) {
		return false
	}
	if _, ok := s.position(e.Index); !ok {
		return false
	}
	s.removeIndex(e.Index)
	return true
}

// Len returns the number of entities carrying the component.
func (s *Store[T]) Len() int {
	return len(s.dense)
}

// Each calls fn for every entity carrying the component, in dense order.
// fn may add components to other stores and may Set existing entries, but
// must not remove from this store; use Entities for destructive loops.
func (s *Store[T]) Each(fn func(e Entity, c *T)) {
	for i := 0; i < len(s.dense); i++ {
		fn(s.reg.entityAt(s.owners[i]), &s.dense[i])
	}
}

// Entities returns a copy of the handles carrying the component.
func (s *Store[T]) Entities() []Entity {
	out := make([]Entity, len(s.owners))
	for i, idx := range s.owners {
		out[i] = s.reg.entityAt(idx)
	}
	return out
}

// Clear removes the component from every entity.
func (s *Store[T]) Clear() {
	s.clear()
}

func (s *Store[T]) position(index uint32) (int32, bool) {
	if int(index) >= len(s.sparse) {
		return -1, false
	}
	pos := s.sparse[index]
	return pos, pos >= 0
}

// removeIndex swap-removes the entry for a slot index, if present.
func (s *Store[T]) removeIndex(index uint32) {
	pos, ok := s.position(index)
	if !ok {
		return
	}

	last := int32(len(s.dense) - 1)
	if pos != last {
		s.dense[pos] = s.dense[last]
		s.owners[pos] = s.owners[last]
		s.sparse[s.owners[pos]] = pos
	}

	var zero T
	s.dense[last] = zero
	s.dense = s.dense[:last]
	s.owners = s.owners[:last]
	s.sparse[index] = -1
}

func (s *Store[T]) clear() {
	for _, idx := range s.owners {
		s.sparse[idx] = -1
	}
	clear(s.dense)
	s.dense = s.dense[:0]
	s.owners = s.owners[:0]
}
