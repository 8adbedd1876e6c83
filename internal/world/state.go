package world

import (
	"math/rand"

	"github.com/asteroids-sim/engine/internal/config"
	"github.com/asteroids-sim/engine/internal/core/ecs"
	"github.com/asteroids-sim/engine/internal/core/event"
	"github.com/asteroids-sim/engine/internal/geom"
	"go.uber.org/zap"
)

// State is the arena that owns every entity and world. Relationships between
// them (world membership, bullet source, ship cargo) are stored as ids, and
// every operation that touches both sides of a relationship goes through State.
// Single-goroutine access only: a concurrent driver must serialize all calls.
type State struct {
	ecs     *ecs.World
	bodies  *ecs.PtrComponentStore[Body]
	ships   *ecs.PtrComponentStore[ShipState]
	bullets *ecs.PtrComponentStore[BulletState]

	worlds    map[WorldID]*World
	nextWorld WorldID

	phys config.PhysicsConfig
	bus  *event.Bus // optional
	rng  *rand.Rand
	log  *zap.Logger
}

// NewState creates an empty arena. bus may be nil.
func NewState(phys config.PhysicsConfig, bus *event.Bus, log *zap.Logger) *State {
	s := &State{
		ecs:     ecs.NewWorld(),
		bodies:  ecs.NewPtrComponentStore[Body](),
		ships:   ecs.NewPtrComponentStore[ShipState](),
		bullets: ecs.NewPtrComponentStore[BulletState](),
		worlds:  make(map[WorldID]*World, 4),
		phys:    phys,
		bus:     bus,
		rng:     rand.New(rand.NewSource(phys.Seed)),
		log:     log,
	}
	s.ecs.Registry().Register(s.bodies, s.ships, s.bullets)
	return s
}

// ECS exposes the underlying entity container (destroy queue flushing).
func (s *State) ECS() *ecs.World { return s.ecs }

func (s *State) Physics() config.PhysicsConfig { return s.phys }

// Body returns the body of a live entity.
func (s *State) Body(id ecs.EntityID) (*Body, error) {
	b, ok := s.bodies.Get(id)
	if !ok || !s.ecs.Alive(id) {
		return nil, illegalState("unknown entity %d", id)
	}
	return b, nil
}

// IsTerminated reports whether id is terminated. Ids whose storage has
// already been reclaimed count as terminated.
func (s *State) IsTerminated(id ecs.EntityID) bool {
	b, err := s.Body(id)
	return err != nil || b.terminated
}

// Entities returns the ids of every stored entity, terminated ones included
// until the next cleanup.
func (s *State) Entities() []ecs.EntityID {
	return s.bodies.IDs()
}

// validateBody checks the arguments shared by every constructor.
func validateBody(kind Kind, pos geom.Vec2, radius float64) error {
	if !pos.IsFinite() {
		return invalidArg("%s position %v is not finite", kind, pos)
	}
	if !geom.IsFinite(radius) || radius < kind.MinRadius() {
		return invalidArg("%s radius %v below minimum %v", kind, radius, kind.MinRadius())
	}
	return nil
}

// spawn allocates an id and stores the body. Callers validate first.
func (s *State) spawn(kind Kind, pos, vel geom.Vec2, radius, mass float64) *Body {
	id := s.ecs.CreateEntity()
	b := &Body{
		id:       id,
		kind:     kind,
		pos:      pos,
		radius:   radius,
		mass:     mass,
		maxSpeed: s.phys.SpeedOfLight,
	}
	b.setVelocity(vel)
	s.bodies.Set(id, b)
	return b
}

// Move advances an entity by dt seconds along its velocity. No boundary checks
// are made; ships carry their cargo along.
func (s *State) Move(id ecs.EntityID, dt float64) error {
	if !geom.IsFinite(dt) || dt < 0 {
		return invalidArg("move by dt %v", dt)
	}
	b, err := s.Body(id)
	if err != nil {
		return err
	}
	if b.terminated {
		return illegalState("move terminated entity %d", id)
	}
	b.advance(dt)
	if b.kind == KindShip {
		if ss, ok := s.ships.Get(id); ok {
			s.pinCargo(b, ss)
		}
	}
	return nil
}

// SetVelocity replaces an entity's velocity. Invalid vectors become zero and
// vectors faster than the max speed are scaled down.
func (s *State) SetVelocity(id ecs.EntityID, v geom.Vec2) error {
	b, err := s.Body(id)
	if err != nil {
		return err
	}
	if b.terminated {
		return illegalState("set velocity of terminated entity %d", id)
	}
	if b.kind == KindBullet {
		if _, _, carried := s.carrierOf(b); carried {
			return illegalState("bullet %d is carried", id)
		}
	}
	b.setVelocity(v)
	return nil
}

// Terminate ends an entity's life. Repeating it is a no-op.
func (s *State) Terminate(id ecs.EntityID) error {
	b, err := s.Body(id)
	if err != nil {
		return nil // reclaimed ids are terminated already
	}
	s.terminate(b, "terminated")
	return nil
}

func (s *State) terminate(b *Body, cause string) {
	if b.terminated {
		return
	}
	wid := b.world
	children := s.planSplit(b)
	if wid != 0 {
		s.detach(b)
	}

	switch b.kind {
	case KindShip:
		if ss, ok := s.ships.Get(b.id); ok {
			for _, bid := range sortedCargo(ss) {
				if bb, err := s.Body(bid); err == nil {
					s.terminate(bb, "carrier terminated")
				}
			}
			s.bullets.Each(func(_ ecs.EntityID, bs *BulletState) {
				if bs.source == b.id {
					bs.source = 0
				}
			})
		}
	case KindBullet:
		if carrier, ss, ok := s.carrierOf(b); ok {
			delete(ss.cargo, b.id)
			s.recomputeMass(carrier, ss)
		}
		if bs, ok := s.bullets.Get(b.id); ok {
			bs.source = 0
		}
	}

	b.terminated = true
	s.ecs.MarkForDestruction(b.id)
	event.Emit(s.bus, event.EntityTerminated{EntityID: b.id, Kind: b.kind.String(), Cause: cause})
	s.log.Debug("entity terminated",
		zap.Uint64("id", uint64(b.id)),
		zap.Stringer("kind", b.kind),
		zap.String("cause", cause))

	if len(children) > 0 {
		s.spawnSplit(wid, children)
	}
}

func (s *State) attach(w *World, b *Body) {
	w.members[b.id] = struct{}{}
	b.world = w.id
}

func (s *State) detach(b *Body) {
	if w, ok := s.worlds[b.world]; ok {
		delete(w.members, b.id)
	}
	b.world = 0
}
