// Package spatial provides broad-phase collision helpers.
//
// Structures use preallocated slices with integer indices (not pointers) and
// reuse their buffers between ticks to keep the simulation allocation-free.
package spatial

import (
	"sort"
)

// SweepAndPrune implements 1-axis sweep with temporal coherence for broad-phase collision detection.
// It projects each circle's bounding interval onto the X-axis, sorts endpoints, and reports
// every pair whose intervals overlap. Callers run the exact narrow-phase test on each pair.
//
// With temporal coherence (entities move little between ticks), insertion sort approaches O(n).
type SweepAndPrune struct {
	endpoints  []SAPEndpoint   // All min/max endpoints
	pairs      []CollisionPair // Output buffer (reused)
	active     []uint32        // Active interval set (reused)
	useInsSort bool            // Use insertion sort for temporal coherence
}

// SAPEndpoint represents one end of a bounding interval on the sweep axis.
type SAPEndpoint struct {
	Value float64 // X coordinate
	ID    uint32  // Caller's index for the circle
	IsMin bool    // true = start of interval, false = end
}

// CollisionPair holds two caller indices whose bounding intervals overlap.
// A is always the smaller index.
type CollisionPair struct {
	A, B uint32
}

// Circle is a broad-phase input: centre X and radius.
// Only the sweep axis is needed; the Y test happens in the narrow phase.
type Circle struct {
	X      float64
	Radius float64
}

// NewSweepAndPrune creates a new sweep-and-prune broad phase.
// maxEntities is used to preallocate buffers.
func NewSweepAndPrune(maxEntities int) *SweepAndPrune {
	return &SweepAndPrune{
		endpoints:  make([]SAPEndpoint, 0, maxEntities*2),
		pairs:      make([]CollisionPair, 0, maxEntities),
		active:     make([]uint32, 0, maxEntities/4+1),
		useInsSort: true,
	}
}

// Update refreshes endpoints from circles and returns overlapping pairs.
// circles[i] is reported as ID i. Touching intervals count as overlapping so
// touching circles reach the narrow phase.
//
// When the circle count matches the previous call the endpoint list is kept
// in last tick's sorted order and only its values are refreshed, so the
// insertion sort sees nearly-sorted input. A count change rebuilds the list.
//
// The returned slice is reused on subsequent calls and sorted by (A, B) so
// the caller sees a deterministic order.
func (s *SweepAndPrune) Update(circles []Circle) []CollisionPair {
	s.pairs = s.pairs[:0]

	if len(s.endpoints) == 2*len(circles) {
		for i := range s.endpoints {
			ep := &s.endpoints[i]
			c := circles[ep.ID]
			if ep.IsMin {
				ep.Value = c.X - c.Radius
			} else {
				ep.Value = c.X + c.Radius
			}
		}
	} else {
		s.endpoints = s.endpoints[:0]
		for i, c := range circles {
			s.endpoints = append(s.endpoints,
				SAPEndpoint{c.X - c.Radius, uint32(i), true},
				SAPEndpoint{c.X + c.Radius, uint32(i), false},
			)
		}
	}

	if s.useInsSort && len(s.endpoints) > 1 {
		// Insertion sort: O(n) for nearly-sorted data (temporal coherence)
		insertionSortEndpoints(s.endpoints)
	} else {
		sort.SliceStable(s.endpoints, func(i, j int) bool {
			return endpointLess(s.endpoints[i], s.endpoints[j])
		})
	}

	// Sweep: track active intervals
	s.active = s.active[:0]

	for _, ep := range s.endpoints {
		if ep.IsMin {
			// Starting new interval - pair with all active intervals
			for _, other := range s.active {
				a, b := ep.ID, other
				if a > b {
					a, b = b, a
				}
				s.pairs = append(s.pairs, CollisionPair{a, b})
			}
			s.active = append(s.active, ep.ID)
		} else {
			// Ending interval - remove from active set
			for i, id := range s.active {
				if id == ep.ID {
					s.active[i] = s.active[len(s.active)-1]
					s.active = s.active[:len(s.active)-1]
					break
				}
			}
		}
	}

	sort.Slice(s.pairs, func(i, j int) bool {
		if s.pairs[i].A != s.pairs[j].A {
			return s.pairs[i].A < s.pairs[j].A
		}
		return s.pairs[i].B < s.pairs[j].B
	})

	return s.pairs
}

// SetInsertionSort enables/disables insertion sort optimization.
// When true (default), uses insertion sort which is O(n) for nearly-sorted data.
// When false, uses Go's standard sort which is O(n log n).
func (s *SweepAndPrune) SetInsertionSort(enabled bool) {
	s.useInsSort = enabled
}

// endpointLess orders endpoints by value; at equal values a min endpoint
// sorts before a max endpoint so touching intervals overlap.
func endpointLess(a, b SAPEndpoint) bool {
	if a.Value != b.Value {
		return a.Value < b.Value
	}
	return a.IsMin && !b.IsMin
}

// insertionSortEndpoints sorts endpoints in-place using insertion sort.
// This is O(n) for nearly-sorted data due to temporal coherence.
func insertionSortEndpoints(eps []SAPEndpoint) {
	for i := 1; i < len(eps); i++ {
		key := eps[i]
		j := i - 1
		for j >= 0 && endpointLess(key, eps[j]) {
			eps[j+1] = eps[j]
			j--
		}
		eps[j+1] = key
	}
}
