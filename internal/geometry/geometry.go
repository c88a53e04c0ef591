package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Positions live on the ground plane: X() is world x and Y() is world z.

// Distance calculates Euclidean distance between two points
func Distance(p, other orb.Point) float64 {
	return planar.Distance(p, other)
}

// LineSegment represents a line segment between two points
type LineSegment struct {
	P1, P2 orb.Point
}

// Bound returns the axis-aligned bounding box of the segment
func (s LineSegment) Bound() orb.Bound {
	return s.P1.Bound().Extend(s.P2)
}

// Length returns the Euclidean length of the segment
func (s LineSegment) Length() float64 {
	return Distance(s.P1, s.P2)
}

// SegmentsCross reports whether two segments properly cross each other.
//
// Each segment's endpoints must lie strictly on opposite sides of the other
// segment's supporting line. Collinear overlaps and touching endpoints are not
// crossings; the road generator relies on that tolerance when it accepts new
// edges next to existing ones.
func SegmentsCross(seg1, seg2 LineSegment) bool {
	p1, p2 := seg1.P1, seg1.P2
	p3, p4 := seg2.P1, seg2.P2

	d1 := direction(p3, p4, p1)
	d2 := direction(p3, p4, p2)
	d3 := direction(p1, p2, p3)
	d4 := direction(p1, p2, p4)

	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

// direction calculates the cross product to determine orientation of p3
// relative to the directed line p1->p2
func direction(p1, p2, p3 orb.Point) float64 {
	return (p3.X()-p1.X())*(p2.Y()-p1.Y()) - (p2.X()-p1.X())*(p3.Y()-p1.Y())
}
