package world

import (
	"math"

	"github.com/asteroids-sim/engine/internal/core/ecs"
	"github.com/asteroids-sim/engine/internal/geom"
	"go.uber.org/zap"
)

func (s *State) NewAsteroid(pos, vel geom.Vec2, radius float64) (ecs.EntityID, error) {
	return s.newMinorPlanet(KindAsteroid, pos, vel, radius)
}

func (s *State) NewPlanetoid(pos, vel geom.Vec2, radius float64) (ecs.EntityID, error) {
	return s.newMinorPlanet(KindPlanetoid, pos, vel, radius)
}

func (s *State) newMinorPlanet(kind Kind, pos, vel geom.Vec2, radius float64) (ecs.EntityID, error) {
	if err := validateBody(kind, pos, radius); err != nil {
		return 0, err
	}
	return s.spawn(kind, pos, vel, radius, massFor(kind, radius)).id, nil
}

type fragment struct {
	pos, vel geom.Vec2
	radius   float64
}

// planSplit computes the two asteroids a large planetoid breaks into when it
// is terminated inside a world. Must run before the planetoid is detached.
func (s *State) planSplit(b *Body) []fragment {
	if b.kind != KindPlanetoid || b.world == 0 || !s.phys.SplitPlanetoids {
		return nil
	}
	if b.radius < s.phys.SplitRadius {
		return nil
	}
	r := b.radius / 2
	if r < KindAsteroid.MinRadius() {
		return nil
	}
	angle := s.rng.Float64() * 2 * math.Pi
	offset := geom.FromAngle(angle, r)
	speed := b.vel.Len() * s.phys.SplitSpeedFactor
	return []fragment{
		{pos: b.pos.Add(offset), vel: geom.FromAngle(angle, speed), radius: r},
		{pos: b.pos.Sub(offset), vel: geom.FromAngle(angle+math.Pi, speed), radius: r},
	}
}

// spawnSplit admits the fragments into wid. A fragment that cannot be
// admitted is discarded.
func (s *State) spawnSplit(wid WorldID, frags []fragment) {
	for _, f := range frags {
		id, err := s.NewAsteroid(f.pos, f.vel, f.radius)
		if err != nil {
			s.log.Debug("planetoid fragment invalid", zap.Error(err))
			continue
		}
		if err := s.Add(wid, id); err != nil {
			s.log.Debug("planetoid fragment discarded", zap.Error(err))
			b, _ := s.bodies.Get(id)
			s.terminate(b, "fragment discarded")
		}
	}
}
