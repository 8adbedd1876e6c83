package world

import (
	"math"

	"github.com/asteroids-sim/engine/internal/core/ecs"
	"github.com/asteroids-sim/engine/internal/core/event"
	"github.com/asteroids-sim/engine/internal/geom"
	"go.uber.org/zap"
)

// boundaryTolerance is how close (km) an edge must be to a wall to count as touching it.
const boundaryTolerance = 0.01

// axisTime returns when an edge moving at v along one axis reaches the wall
// ahead of it, for a center at p, radius r and a world [0, size].
func axisTime(p, v, r, size float64) float64 {
	switch {
	case v > 0:
		return math.Max(0, (size-r-p)/v)
	case v < 0:
		return math.Max(0, (p-r)/-v)
	default:
		return math.Inf(1)
	}
}

// TimeToBoundary returns when the entity next touches a wall of its world, or
// +Inf when it is unattached or at rest.
func (s *State) TimeToBoundary(id ecs.EntityID) (float64, error) {
	b, err := s.Body(id)
	if err != nil {
		return 0, err
	}
	if b.world == 0 || b.vel.IsZero() {
		return math.Inf(1), nil
	}
	w := s.worlds[b.world]
	tx := axisTime(b.pos.X, b.vel.X, b.radius, w.width)
	ty := axisTime(b.pos.Y, b.vel.Y, b.radius, w.height)
	return math.Min(tx, ty), nil
}

// BoundaryCollisionPosition returns the point where the entity's edge meets
// the wall at its next boundary collision.
func (s *State) BoundaryCollisionPosition(id ecs.EntityID) (geom.Vec2, bool, error) {
	t, err := s.TimeToBoundary(id)
	if err != nil || math.IsInf(t, 1) {
		return geom.Vec2{}, false, err
	}
	b, _ := s.Body(id)
	w := s.worlds[b.world]
	center := b.pos.Add(b.vel.Scale(t))
	tx := axisTime(b.pos.X, b.vel.X, b.radius, w.width)
	ty := axisTime(b.pos.Y, b.vel.Y, b.radius, w.height)
	if tx <= ty {
		return center.Add(geom.V(math.Copysign(b.radius, b.vel.X), 0)), true, nil
	}
	return center.Add(geom.V(0, math.Copysign(b.radius, b.vel.Y))), true, nil
}

// CollideBoundary reflects the entity off every wall its edge touches while
// moving into it. A bullet counts one bounce per wall hit; the bounce past
// the limit terminates it after its velocity has been flipped.
func (s *State) CollideBoundary(id ecs.EntityID) error {
	b, err := s.Body(id)
	if err != nil {
		return err
	}
	if b.terminated {
		return illegalState("entity %d is terminated", id)
	}
	if b.world == 0 {
		return illegalState("entity %d is not in a world", id)
	}
	w := s.worlds[b.world]

	hits := 0
	v := b.vel
	if (v.X < 0 && b.pos.X-b.radius <= boundaryTolerance) ||
		(v.X > 0 && b.pos.X+b.radius >= w.width-boundaryTolerance) {
		v.X = -v.X
		hits++
	}
	if (v.Y < 0 && b.pos.Y-b.radius <= boundaryTolerance) ||
		(v.Y > 0 && b.pos.Y+b.radius >= w.height-boundaryTolerance) {
		v.Y = -v.Y
		hits++
	}
	if hits == 0 {
		return nil
	}
	b.vel = v
	event.Emit(s.bus, event.BoundaryBounced{EntityID: id, Axes: hits})

	if bs, ok := s.bullets.Get(id); ok {
		n := int(bs.bounces) + hits
		if n > maxBounces {
			s.log.Debug("bullet exhausted bounces", zap.Uint64("id", uint64(id)))
			s.terminate(b, "bounce limit")
			return nil
		}
		bs.bounces = uint8(n)
	}
	return nil
}
