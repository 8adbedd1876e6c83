package world

import (
	"math"

	"github.com/asteroids-sim/engine/internal/core/ecs"
	"github.com/asteroids-sim/engine/internal/core/event"
	"github.com/asteroids-sim/engine/internal/geom"
	"go.uber.org/zap"
)

// ShipState is the component that makes a body a ship.
type ShipState struct {
	direction  float64 // radians, [0, 2π)
	thrusterOn bool
	cargo      map[ecs.EntityID]struct{}
	totalMass  float64 // own mass + carried bullets, recomputed on every cargo change
}

// NewShip creates an unattached ship. A mass below the density-derived minimum
// for the radius is raised to that minimum.
func (s *State) NewShip(pos, vel geom.Vec2, radius, direction, mass float64) (ecs.EntityID, error) {
	if err := validateBody(KindShip, pos, radius); err != nil {
		return 0, err
	}
	if !geom.IsFinite(direction) || direction < 0 || direction >= 2*math.Pi {
		return 0, invalidArg("ship direction %v outside [0, 2π)", direction)
	}
	if !geom.IsFinite(mass) || mass <= 0 {
		return 0, invalidArg("ship mass %v", mass)
	}
	if minMass := massFor(KindShip, radius); mass < minMass {
		mass = minMass
	}
	b := s.spawn(KindShip, pos, vel, radius, mass)
	s.ships.Set(b.id, &ShipState{
		direction: direction,
		cargo:     make(map[ecs.EntityID]struct{}, 8),
		totalMass: mass,
	})
	return b.id, nil
}

// ship resolves id to a ship body and its component.
func (s *State) ship(id ecs.EntityID) (*Body, *ShipState, error) {
	b, err := s.Body(id)
	if err != nil {
		return nil, nil, err
	}
	ss, ok := s.ships.Get(id)
	if !ok {
		return nil, nil, invalidArg("entity %d is a %s, not a ship", id, b.kind)
	}
	return b, ss, nil
}

// liveShip is ship plus the "no mutation after termination" rule.
func (s *State) liveShip(id ecs.EntityID) (*Body, *ShipState, error) {
	b, ss, err := s.ship(id)
	if err != nil {
		return nil, nil, err
	}
	if b.terminated {
		return nil, nil, illegalState("ship %d is terminated", id)
	}
	return b, ss, nil
}

func (s *State) Direction(id ecs.EntityID) (float64, error) {
	_, ss, err := s.ship(id)
	if err != nil {
		return 0, err
	}
	return ss.direction, nil
}

func (s *State) ThrusterActive(id ecs.EntityID) (bool, error) {
	_, ss, err := s.ship(id)
	if err != nil {
		return false, err
	}
	return ss.thrusterOn, nil
}

// TotalMass returns a ship's own mass plus the mass of its cargo, or the plain
// mass for any other kind.
func (s *State) TotalMass(id ecs.EntityID) (float64, error) {
	b, err := s.Body(id)
	if err != nil {
		return 0, err
	}
	return s.effectiveMass(b), nil
}

func (s *State) effectiveMass(b *Body) float64 {
	if ss, ok := s.ships.Get(b.id); ok {
		return ss.totalMass
	}
	return b.mass
}

// Cargo returns the carried bullet ids in ascending order.
func (s *State) Cargo(id ecs.EntityID) ([]ecs.EntityID, error) {
	_, ss, err := s.ship(id)
	if err != nil {
		return nil, err
	}
	return sortedCargo(ss), nil
}

func (s *State) CargoCount(id ecs.EntityID) (int, error) {
	_, ss, err := s.ship(id)
	if err != nil {
		return 0, err
	}
	return len(ss.cargo), nil
}

func sortedCargo(ss *ShipState) []ecs.EntityID {
	ids := make([]ecs.EntityID, 0, len(ss.cargo))
	for id := range ss.cargo {
		ids = append(ids, id)
	}
	ecs.SortIDs(ids)
	return ids
}

// Turn adds angle to the ship's heading, wrapping into [0, 2π).
func (s *State) Turn(id ecs.EntityID, angle float64) error {
	if !geom.IsFinite(angle) {
		return invalidArg("turn by %v", angle)
	}
	_, ss, err := s.liveShip(id)
	if err != nil {
		return err
	}
	ss.direction = geom.NormalizeAngle(ss.direction + angle)
	return nil
}

func (s *State) ThrustOn(id ecs.EntityID) error {
	return s.setThruster(id, true)
}

func (s *State) ThrustOff(id ecs.EntityID) error {
	return s.setThruster(id, false)
}

func (s *State) setThruster(id ecs.EntityID, on bool) error {
	_, ss, err := s.liveShip(id)
	if err != nil {
		return err
	}
	ss.thrusterOn = on
	return nil
}

// Accelerate applies dt seconds of thrust when the thruster is active:
// a = ThrusterForce / totalMass along the heading.
func (s *State) Accelerate(id ecs.EntityID, dt float64) error {
	if !geom.IsFinite(dt) || dt < 0 {
		return invalidArg("accelerate by dt %v", dt)
	}
	b, ss, err := s.liveShip(id)
	if err != nil {
		return err
	}
	if !ss.thrusterOn || dt == 0 {
		return nil
	}
	a := s.phys.ThrusterForce / ss.totalMass
	b.setVelocity(b.vel.Add(geom.FromAngle(ss.direction, a*dt)))
	return nil
}

// Load puts bullets into the ship's cargo. Bullets already carried by this
// ship are skipped. If any other bullet fails its check (terminated, carried
// by another ship, in another world, or out of loading range) nothing is loaded.
func (s *State) Load(shipID ecs.EntityID, bulletIDs ...ecs.EntityID) error {
	sb, ss, err := s.liveShip(shipID)
	if err != nil {
		return err
	}

	pending := make([]*Body, 0, len(bulletIDs))
	seen := make(map[ecs.EntityID]struct{}, len(bulletIDs))
	for _, id := range bulletIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, carried := ss.cargo[id]; carried {
			continue
		}
		bb, _, err := s.bullet(id)
		if err != nil {
			return err
		}
		if bb.terminated {
			return illegalState("bullet %d is terminated", id)
		}
		if carrier, _, ok := s.carrierOf(bb); ok {
			return illegalState("bullet %d is carried by ship %d", id, carrier.id)
		}
		if bb.world != 0 && bb.world != sb.world {
			return rejected("bullet %d is in world %d, ship %d is not", id, bb.world, shipID)
		}
		gap, _ := bb.DistanceBetweenEdges(sb)
		if !(gap <= s.phys.LoadingRange) {
			return rejected("bullet %d is %.3f km from ship %d", id, gap, shipID)
		}
		pending = append(pending, bb)
	}

	for _, bb := range pending {
		if bb.world != 0 {
			s.detach(bb)
		}
		bs, _ := s.bullets.Get(bb.id)
		bb.pos = sb.pos
		bb.vel = geom.Vec2{}
		bs.bounces = 0
		bs.source = sb.id
		ss.cargo[bb.id] = struct{}{}
		event.Emit(s.bus, event.BulletLoaded{ShipID: sb.id, BulletID: bb.id})
	}
	if len(pending) > 0 {
		s.recomputeMass(sb, ss)
		s.log.Debug("bullets loaded", zap.Uint64("ship", uint64(shipID)),
			zap.Int("count", len(pending)), zap.Int("cargo", len(ss.cargo)))
	}
	return nil
}

// Unload takes a bullet out of the cargo. The bullet is left unattached at the
// ship's position with no source.
func (s *State) Unload(shipID, bulletID ecs.EntityID) error {
	sb, ss, err := s.liveShip(shipID)
	if err != nil {
		return err
	}
	if _, ok := ss.cargo[bulletID]; !ok {
		return illegalState("bullet %d is not carried by ship %d", bulletID, shipID)
	}
	delete(ss.cargo, bulletID)
	if bs, ok := s.bullets.Get(bulletID); ok {
		bs.source = 0
	}
	s.recomputeMass(sb, ss)
	return nil
}

// Fire launches the lowest-id carried bullet along the ship's heading. It is a
// no-op for an empty cargo or an unattached ship. A bullet whose spawn point
// lies outside the world is destroyed; one that would spawn inside another
// entity destroys that entity along with itself.
func (s *State) Fire(shipID ecs.EntityID) error {
	sb, ss, err := s.liveShip(shipID)
	if err != nil {
		return err
	}
	if len(ss.cargo) == 0 || sb.world == 0 {
		return nil
	}
	w := s.worlds[sb.world]
	bid := sortedCargo(ss)[0]
	bb, _ := s.bodies.Get(bid)

	spawnAt := sb.pos.Add(geom.FromAngle(ss.direction, sb.radius+bb.radius))
	if !w.fits(spawnAt, bb.radius) {
		s.terminate(bb, "fired out of bounds")
		return nil
	}
	if hit := s.overlapAt(w, spawnAt, bb.radius, bid); hit != nil {
		s.terminate(bb, "fired into entity")
		s.terminate(hit, "hit at launch")
		return nil
	}

	delete(ss.cargo, bid)
	s.recomputeMass(sb, ss)
	bb.pos = spawnAt
	bb.setVelocity(geom.FromAngle(ss.direction, s.phys.BulletSpeed))
	s.attach(w, bb)
	// Source stays set so the bullet can be picked up again by this ship.
	event.Emit(s.bus, event.BulletFired{ShipID: shipID, BulletID: bid})
	s.log.Debug("bullet fired", zap.Uint64("ship", uint64(shipID)), zap.Uint64("bullet", uint64(bid)))
	return nil
}

func (s *State) pinCargo(sb *Body, ss *ShipState) {
	for id := range ss.cargo {
		if bb, ok := s.bodies.Get(id); ok {
			bb.pos = sb.pos
			bb.vel = geom.Vec2{}
		}
	}
}

func (s *State) recomputeMass(sb *Body, ss *ShipState) {
	total := sb.mass
	for id := range ss.cargo {
		if bb, ok := s.bodies.Get(id); ok {
			total += bb.mass
		}
	}
	ss.totalMass = total
}
