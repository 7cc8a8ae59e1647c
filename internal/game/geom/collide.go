package geom

import "math"

// SegmentPrecision is the tolerance used when deciding whether a point lies on
// a segment.
const SegmentPrecision = 0.0001

// PointInCircle reports whether p lies inside or on the circle.
func PointInCircle(p, center Vec2, radius float64) bool {
	return DistSq(p, center) <= radius*radius
}

// PointOnSegment reports whether p lies on the segment ab.
// The point must be collinear with ab (within SegmentPrecision) and inside
// the segment's bounding range.
func PointOnSegment(p, a, b Vec2) bool {
	ab := b.Sub(a)
	ap := p.Sub(a)

	cross := ab[0]*ap[1] - ab[1]*ap[0]
	if math.Abs(cross) > SegmentPrecision*math.Max(1, ab.Len()) {
		return false
	}

	minX, maxX := math.Min(a[0], b[0]), math.Max(a[0], b[0])
	minY, maxY := math.Min(a[1], b[1]), math.Max(a[1], b[1])

	return p[0] >= minX-SegmentPrecision && p[0] <= maxX+SegmentPrecision &&
		p[1] >= minY-SegmentPrecision && p[1] <= maxY+SegmentPrecision
}

// SegmentIntersectsCircle reports whether the segment ab touches the circle.
// Used for swept (continuous) collision of fast movers.
func SegmentIntersectsCircle(a, b, center Vec2, radius float64) bool {
	if PointInCircle(a, center, radius) || PointInCircle(b, center, radius) {
		return true
	}

	ab := b.Sub(a)
	lenSq := ab.Dot(ab)
	if lenSq == 0 {
		// Degenerate segment and the point is outside
		return false
	}

	// Closest point on the infinite line through ab
	t := center.Sub(a).Dot(ab) / lenSq
	closest := a.Add(ab.Mul(t))

	if !PointOnSegment(closest, a, b) {
		return false
	}

	return DistSq(closest, center) <= radius*radius
}

// CirclesIntersect reports whether two circles overlap or touch.
func CirclesIntersect(c1 Vec2, r1 float64, c2 Vec2, r2 float64) bool {
	sum := r1 + r2
	return DistSq(c1, c2) <= sum*sum
}
