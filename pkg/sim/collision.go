package sim

import "github.com/go-gl/mathgl/mgl32"

// Segment is a static wall from (X1,Y1) to (X2,Y2).
type Segment struct {
	X1, Y1, X2, Y2 float32
}

func (s Segment) A() mgl32.Vec2 { return mgl32.Vec2{s.X1, s.Y1} }
func (s Segment) B() mgl32.Vec2 { return mgl32.Vec2{s.X2, s.Y2} }

const (
	// Gaps smaller than this are treated as contact.
	contactEpsilon float32 = 1e-3
	// Velocities shorter than this are snapped to zero.
	restEpsilon float32 = 1e-4
	// Rounding left over after a slide.
	slideTolerance float32 = 1e-5
)

// ClosestPoint returns the point of s nearest to p.
func (s Segment) ClosestPoint(p mgl32.Vec2) mgl32.Vec2 {
	a, b := s.A(), s.B()
	ab := b.Sub(a)

	l2 := ab.LenSqr()
	if l2 == 0 {
		return a
	}

	t := p.Sub(a).Dot(ab) / l2
	t = mgl32.Clamp(t, 0, 1)
	return a.Add(ab.Mul(t))
}

func cross(a, b mgl32.Vec2) float32 {
	return a.X()*b.Y() - a.Y()*b.X()
}

// crosses reports whether the path p->q touches s.
func (s Segment) crosses(p, q mgl32.Vec2) bool {
	a, b := s.A(), s.B()
	r := q.Sub(p)
	e := b.Sub(a)

	denom := cross(r, e)
	if denom == 0 {
		return false
	}

	ap := a.Sub(p)
	t := cross(ap, e) / denom
	u := cross(ap, r) / denom
	return t >= 0 && t <= 1 && u >= 0 && u <= 1
}

// contact reports whether moving pos by vel brings a circle of the
// given radius into seg. n is the unit normal from the wall towards the
// circle and gap the free distance along it.
func contact(pos, vel mgl32.Vec2, radius float32, seg Segment) (n mgl32.Vec2, gap float32, ok bool) {
	end := pos.Add(vel)
	hit := end.Sub(seg.ClosestPoint(end)).LenSqr() < radius*radius
	if !hit && !seg.crosses(pos, end) {
		return mgl32.Vec2{}, 0, false
	}

	n = pos.Sub(seg.ClosestPoint(pos))
	dist := n.Len()
	if dist < contactEpsilon {
		// centre sits on the wall: push back against the motion
		e := seg.B().Sub(seg.A())
		n = mgl32.Vec2{-e.Y(), e.X()}
		if n.LenSqr() == 0 {
			n = vel.Mul(-1)
		}
		if n.Dot(vel) > 0 {
			n = n.Mul(-1)
		}
		dist = 0
	}

	gap = dist - radius
	if gap < contactEpsilon {
		gap = 0
	}
	return n.Normalize(), gap, true
}

// SlideVelocity clips vel so that a circle of the given radius at pos
// does not move into seg. The part of vel along the wall is kept, so
// the circle slides instead of stopping. The circle may still close the
// remaining gap to the wall in this step.
func SlideVelocity(pos, vel mgl32.Vec2, radius float32, seg Segment) mgl32.Vec2 {
	if vel.LenSqr() == 0 {
		return vel
	}

	n, gap, ok := contact(pos, vel, radius, seg)
	if !ok {
		return vel
	}

	vn := vel.Dot(n)
	if vn >= 0 || -vn <= gap {
		return vel
	}

	// inward normal speed is limited to the gap
	out := vel.Sub(n.Mul(vn + gap))
	if out.LenSqr() < restEpsilon*restEpsilon {
		return mgl32.Vec2{}
	}
	return out
}

// ResolveVelocity runs SlideVelocity against every line, passes times.
// A velocity clipped by one wall can then be clipped again by a wall it
// now points into. If the passes end with the velocity still pointing
// into any wall, the circle does not move at all.
func ResolveVelocity(pos, vel mgl32.Vec2, radius float32, lines []Segment, passes int) mgl32.Vec2 {
	for range passes {
		for _, seg := range lines {
			vel = SlideVelocity(pos, vel, radius, seg)
		}
	}

	if vel.LenSqr() == 0 {
		return vel
	}
	for _, seg := range lines {
		n, gap, ok := contact(pos, vel, radius, seg)
		if ok && -vel.Dot(n) > gap+slideTolerance {
			return mgl32.Vec2{}
		}
	}
	return vel
}
