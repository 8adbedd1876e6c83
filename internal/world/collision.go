package world

import (
	"fmt"

	"github.com/asteroids-sim/engine/internal/core/ecs"
	"github.com/asteroids-sim/engine/internal/core/event"
	"github.com/asteroids-sim/engine/internal/geom"
	"go.uber.org/zap"
)

// Outcome is what a resolved entity-entity collision did.
type Outcome uint8

const (
	OutcomeNone Outcome = iota
	OutcomeElastic
	OutcomeShipDestroyed
	OutcomeShipRelocated
	OutcomeBulletReloaded
	OutcomeMutualDestruction
)

func (o Outcome) String() string {
	switch o {
	case OutcomeElastic:
		return "elastic"
	case OutcomeShipDestroyed:
		return "ship-destroyed"
	case OutcomeShipRelocated:
		return "ship-relocated"
	case OutcomeBulletReloaded:
		return "bullet-reloaded"
	case OutcomeMutualDestruction:
		return "mutual-destruction"
	}
	return "none"
}

// Resolve applies the collision response for two live members of the same
// world. The pair is unordered.
//
//	ship-ship, planet-planet   elastic bounce
//	ship-asteroid              ship destroyed
//	ship-planetoid             ship relocated at random
//	bullet-own source ship     bullet reloaded into the ship
//	bullet-anything else       both destroyed
func (s *State) Resolve(aID, bID ecs.EntityID) (Outcome, error) {
	a, err := s.Body(aID)
	if err != nil {
		return OutcomeNone, err
	}
	b, err := s.Body(bID)
	if err != nil {
		return OutcomeNone, err
	}
	switch {
	case aID == bID:
		return OutcomeNone, invalidArg("entity %d collides with itself", aID)
	case a.terminated || b.terminated:
		return OutcomeNone, illegalState("collision with terminated entity (%d, %d)", aID, bID)
	case a.world == 0 || a.world != b.world:
		return OutcomeNone, illegalState("entities %d and %d are not in the same world", aID, bID)
	}
	if a.kind > b.kind {
		a, b = b, a
	}

	var out Outcome
	switch p := pairOf(a.kind, b.kind); {
	case p == pair{KindShip, KindShip},
		a.kind.IsMinorPlanet() && b.kind.IsMinorPlanet():
		s.bounce(a, b)
		out = OutcomeElastic

	case p == pair{KindShip, KindBullet}:
		if bs, _ := s.bullets.Get(b.id); bs.source == a.id {
			if err := s.Load(a.id, b.id); err != nil {
				return OutcomeNone, fmt.Errorf("reload bullet %d: %w", b.id, err)
			}
			out = OutcomeBulletReloaded
		} else {
			s.destroyBoth(b, a)
			out = OutcomeMutualDestruction
		}

	case p == pair{KindShip, KindAsteroid}:
		s.terminate(a, "hit asteroid")
		out = OutcomeShipDestroyed

	case p == pair{KindShip, KindPlanetoid}:
		s.relocate(a)
		out = OutcomeShipRelocated

	case a.kind == KindBullet && (b.kind == KindBullet || b.kind.IsMinorPlanet()):
		s.destroyBoth(a, b)
		out = OutcomeMutualDestruction

	default:
		panic(fmt.Sprintf("world: unhandled collision pair %s-%s", a.kind, b.kind))
	}

	event.Emit(s.bus, event.CollisionResolved{A: aID, B: bID, Outcome: out.String()})
	s.log.Debug("collision resolved",
		zap.Uint64("a", uint64(aID)), zap.Uint64("b", uint64(bID)),
		zap.Stringer("outcome", out))
	return out, nil
}

// destroyBoth terminates the bullet first so that fragments of a split
// planetoid do not land on it.
func (s *State) destroyBoth(bullet, other *Body) {
	s.terminate(bullet, "collision")
	s.terminate(other, "hit by bullet")
}

// bounce applies the elastic two-body response along the line of centers.
func (s *State) bounce(a, b *Body) {
	ma := s.effectiveMass(a)
	mb := s.effectiveMass(b)
	sigma := a.radius + b.radius
	dx := b.pos.Sub(a.pos)
	dv := b.vel.Sub(a.vel)

	j := 2 * ma * mb * dv.Dot(dx) / (sigma * (ma + mb))
	jv := dx.Scale(j / sigma)

	a.setVelocity(a.vel.Add(jv.Scale(1 / ma)))
	b.setVelocity(b.vel.Sub(jv.Scale(1 / mb)))
}

// relocate moves a ship to a uniformly random spot inside its world. Other
// entities are not checked.
func (s *State) relocate(b *Body) {
	w := s.worlds[b.world]
	pick := func(size float64) float64 {
		span := size - 2*b.radius
		if span <= 0 {
			return size / 2
		}
		return b.radius + s.rng.Float64()*span
	}
	b.pos = geom.V(pick(w.width), pick(w.height))
	if ss, ok := s.ships.Get(b.id); ok {
		s.pinCargo(b, ss)
	}
}
