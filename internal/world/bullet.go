package world

import (
	"github.com/asteroids-sim/engine/internal/core/ecs"
	"github.com/asteroids-sim/engine/internal/geom"
)

// maxBounces is the number of wall bounces a bullet survives.
const maxBounces = 2

// BulletState is the component that makes a body a bullet. A bullet is either
// carried (source set, no world), free-flying (world set) or terminated.
type BulletState struct {
	source  ecs.EntityID // ship that fired or carries it
	bounces uint8
}

// NewBullet creates an unattached bullet with no source.
func (s *State) NewBullet(pos, vel geom.Vec2, radius float64) (ecs.EntityID, error) {
	if err := validateBody(KindBullet, pos, radius); err != nil {
		return 0, err
	}
	b := s.spawn(KindBullet, pos, vel, radius, massFor(KindBullet, radius))
	s.bullets.Set(b.id, &BulletState{})
	return b.id, nil
}

func (s *State) bullet(id ecs.EntityID) (*Body, *BulletState, error) {
	b, err := s.Body(id)
	if err != nil {
		return nil, nil, err
	}
	bs, ok := s.bullets.Get(id)
	if !ok {
		return nil, nil, invalidArg("entity %d is a %s, not a bullet", id, b.kind)
	}
	return b, bs, nil
}

// Source returns the ship that fired or carries the bullet.
func (s *State) Source(id ecs.EntityID) (ecs.EntityID, bool, error) {
	_, bs, err := s.bullet(id)
	if err != nil {
		return 0, false, err
	}
	return bs.source, bs.source != 0, nil
}

func (s *State) Bounces(id ecs.EntityID) (int, error) {
	_, bs, err := s.bullet(id)
	if err != nil {
		return 0, err
	}
	return int(bs.bounces), nil
}

// Carrier returns the ship whose cargo holds the bullet.
func (s *State) Carrier(id ecs.EntityID) (ecs.EntityID, bool, error) {
	b, _, err := s.bullet(id)
	if err != nil {
		return 0, false, err
	}
	ship, _, ok := s.carrierOf(b)
	if !ok {
		return 0, false, nil
	}
	return ship.id, true, nil
}

// carrierOf finds the ship carrying b, if any.
func (s *State) carrierOf(b *Body) (*Body, *ShipState, bool) {
	bs, ok := s.bullets.Get(b.id)
	if !ok || bs.source == 0 || b.world != 0 {
		return nil, nil, false
	}
	ss, ok := s.ships.Get(bs.source)
	if !ok {
		return nil, nil, false
	}
	if _, carried := ss.cargo[b.id]; !carried {
		return nil, nil, false
	}
	sb, _ := s.bodies.Get(bs.source)
	return sb, ss, true
}
