package world

import (
	"math"

	"github.com/asteroids-sim/engine/internal/core/ecs"
	"github.com/asteroids-sim/engine/internal/geom"
)

// overlapTolerance is how far (km) two edges must interpenetrate before the
// bodies count as overlapping. Contact within float noise is not overlap.
const overlapTolerance = 0.01

// Body is the component every entity carries: a circular rigid body.
// Fields are only mutated through State so that world membership, cargo
// and termination stay consistent.
type Body struct {
	id         ecs.EntityID
	kind       Kind
	pos        geom.Vec2
	vel        geom.Vec2
	radius     float64
	mass       float64
	maxSpeed   float64
	world      WorldID
	terminated bool
}

func (b *Body) ID() ecs.EntityID    { return b.id }
func (b *Body) Kind() Kind          { return b.kind }
func (b *Body) Position() geom.Vec2 { return b.pos }
func (b *Body) Velocity() geom.Vec2 { return b.vel }
func (b *Body) Speed() float64      { return b.vel.Len() }
func (b *Body) Radius() float64     { return b.radius }
func (b *Body) MaxSpeed() float64   { return b.maxSpeed }
func (b *Body) Terminated() bool    { return b.terminated }
func (b *Body) Attached() bool      { return b.world != 0 }

// Mass is the body's own mass. For ships see State.TotalMass.
func (b *Body) Mass() float64 { return b.mass }

// World returns the world the body is registered in.
func (b *Body) World() (WorldID, bool) {
	return b.world, b.world != 0
}

// advance moves the body along its velocity for dt seconds.
func (b *Body) advance(dt float64) {
	b.pos = b.pos.Add(b.vel.Scale(dt))
}

// setVelocity stores v, replacing a non-finite vector with zero and scaling
// an over-fast one back onto the max-speed circle.
func (b *Body) setVelocity(v geom.Vec2) {
	if !v.IsFinite() {
		b.vel = geom.Vec2{}
		return
	}
	if speed := v.Len(); speed > b.maxSpeed {
		v = v.Scale(b.maxSpeed / speed)
	}
	b.vel = v
}

// DistanceBetweenCenters returns the Euclidean distance between the two centers.
func (b *Body) DistanceBetweenCenters(other *Body) (float64, error) {
	if b.id == other.id {
		return 0, invalidArg("distance from entity %d to itself", b.id)
	}
	return b.pos.Dist(other.pos), nil
}

// DistanceBetweenEdges is the center distance minus both radii. Negative when
// the bodies interpenetrate.
func (b *Body) DistanceBetweenEdges(other *Body) (float64, error) {
	d, err := b.DistanceBetweenCenters(other)
	if err != nil {
		return 0, err
	}
	return d - b.radius - other.radius, nil
}

// Overlaps reports whether the two bodies interpenetrate. A body always
// overlaps itself.
func (b *Body) Overlaps(other *Body) bool {
	if b.id == other.id {
		return true
	}
	d, _ := b.DistanceBetweenEdges(other)
	return d <= -overlapTolerance
}

// TimeToCollision returns the smallest non-negative time after which the two
// bodies touch, or +Inf when they never will. Bodies that are not registered
// in the same world never collide; bodies already in contact return 0.
func (b *Body) TimeToCollision(other *Body) float64 {
	inf := math.Inf(1)
	if b.id == other.id || b.world == 0 || b.world != other.world {
		return inf
	}
	dp := other.pos.Sub(b.pos)
	dv := other.vel.Sub(b.vel)

	a := dv.LenSq()
	if a == 0 {
		return inf
	}
	sigma := b.radius + other.radius
	lo, hi, ok := geom.SolveQuadratic(a, 2*dp.Dot(dv), dp.LenSq()-sigma*sigma)
	switch {
	case !ok:
		return inf
	case hi < 0:
		return inf
	case lo <= 0:
		return 0
	default:
		return lo
	}
}

// CollisionPosition returns the point on b's circumference that touches other
// at their next collision. ok is false when they never collide.
func (b *Body) CollisionPosition(other *Body) (pos geom.Vec2, ok bool, err error) {
	if b.Overlaps(other) {
		return geom.Vec2{}, false, illegalState("entities %d and %d already overlap", b.id, other.id)
	}
	t := b.TimeToCollision(other)
	if math.IsInf(t, 1) {
		return geom.Vec2{}, false, nil
	}
	pa := b.pos.Add(b.vel.Scale(t))
	pb := other.pos.Add(other.vel.Scale(t))
	bearing := pb.Sub(pa).Angle()
	return pa.Add(geom.FromAngle(bearing, b.radius)), true, nil
}

// Converging reports whether the gap between the two bodies is shrinking.
func (b *Body) Converging(other *Body) bool {
	dp := other.pos.Sub(b.pos)
	dv := other.vel.Sub(b.vel)
	return dp.Dot(dv) < 0
}
