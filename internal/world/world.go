package world

import (
	"math"
	"sort"

	"github.com/asteroids-sim/engine/internal/core/ecs"
	"github.com/asteroids-sim/engine/internal/geom"
	"go.uber.org/zap"
)

// WorldID identifies a World within a State. Zero means "no world".
type WorldID uint32

// boundsFactor is the share of a body's radius that must lie inside the walls
// for it to be admitted.
const boundsFactor = 0.99

// World is a bounded rectangle [0,width]×[0,height] and the exclusive
// membership registry of the entities inside it.
type World struct {
	id      WorldID
	width   float64
	height  float64
	members map[ecs.EntityID]struct{}
}

func (w *World) ID() WorldID     { return w.id }
func (w *World) Width() float64  { return w.width }
func (w *World) Height() float64 { return w.height }
func (w *World) Count() int      { return len(w.members) }

func (w *World) Has(id ecs.EntityID) bool {
	_, ok := w.members[id]
	return ok
}

// fits reports whether a body of radius r centered at pos lies within the walls.
func (w *World) fits(pos geom.Vec2, r float64) bool {
	m := boundsFactor * r
	return pos.X-m >= 0 && pos.X+m <= w.width &&
		pos.Y-m >= 0 && pos.Y+m <= w.height
}

func (w *World) sortedMembers() []ecs.EntityID {
	ids := make([]ecs.EntityID, 0, len(w.members))
	for id := range w.members {
		ids = append(ids, id)
	}
	ecs.SortIDs(ids)
	return ids
}

// NewWorld creates an empty world of the given size.
func (s *State) NewWorld(width, height float64) (WorldID, error) {
	if !geom.IsFinite(width) || !geom.IsFinite(height) || width <= 0 || height <= 0 {
		return 0, invalidArg("world size %vx%v", width, height)
	}
	s.nextWorld++
	w := &World{
		id:      s.nextWorld,
		width:   width,
		height:  height,
		members: make(map[ecs.EntityID]struct{}, 32),
	}
	s.worlds[w.id] = w
	s.log.Debug("world created", zap.Uint32("world", uint32(w.id)),
		zap.Float64("width", width), zap.Float64("height", height))
	return w.id, nil
}

// World returns the world with the given id.
func (s *State) World(id WorldID) (*World, error) {
	w, ok := s.worlds[id]
	if !ok {
		return nil, illegalState("unknown world %d", id)
	}
	return w, nil
}

// Worlds returns every world id in ascending order.
func (s *State) Worlds() []WorldID {
	ids := make([]WorldID, 0, len(s.worlds))
	for id := range s.worlds {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Add admits an entity into a world. The entity must be live, unattached,
// not carried, inside the walls and clear of every current member. Nothing
// changes when admission fails.
func (s *State) Add(wid WorldID, id ecs.EntityID) error {
	w, err := s.World(wid)
	if err != nil {
		return err
	}
	b, err := s.Body(id)
	if err != nil {
		return err
	}
	switch {
	case b.terminated:
		return illegalState("entity %d is terminated", id)
	case b.world != 0:
		return illegalState("entity %d already belongs to world %d", id, b.world)
	}
	if b.kind == KindBullet {
		if carrier, _, ok := s.carrierOf(b); ok {
			return illegalState("bullet %d is carried by ship %d", id, carrier.id)
		}
	}
	if !w.fits(b.pos, b.radius) {
		return rejected("entity %d at %v does not fit in world %d", id, b.pos, wid)
	}
	for _, mid := range w.sortedMembers() {
		m, _ := s.bodies.Get(mid)
		if b.Overlaps(m) {
			return rejected("entity %d overlaps entity %d", id, mid)
		}
	}
	s.attach(w, b)
	s.log.Debug("entity admitted", zap.Uint64("id", uint64(id)),
		zap.Stringer("kind", b.kind), zap.Uint32("world", uint32(wid)))
	return nil
}

// Remove takes a member out of the world and terminates it.
func (s *State) Remove(wid WorldID, id ecs.EntityID) error {
	w, err := s.World(wid)
	if err != nil {
		return err
	}
	b, err := s.Body(id)
	if err != nil {
		return err
	}
	if !w.Has(id) {
		return illegalState("entity %d is not a member of world %d", id, wid)
	}
	s.terminate(b, "removed")
	return nil
}

// Members returns a snapshot of the world's members in ascending id order.
func (s *State) Members(wid WorldID) ([]ecs.EntityID, error) {
	w, err := s.World(wid)
	if err != nil {
		return nil, err
	}
	return w.sortedMembers(), nil
}

// EntityAt returns the member centered exactly at pos. ok is false when no
// member or more than one member sits there.
func (s *State) EntityAt(wid WorldID, pos geom.Vec2) (ecs.EntityID, bool, error) {
	w, err := s.World(wid)
	if err != nil {
		return 0, false, err
	}
	var found ecs.EntityID
	n := 0
	for id := range w.members {
		b, _ := s.bodies.Get(id)
		if b.pos == pos {
			found = id
			n++
		}
	}
	if n != 1 {
		return 0, false, nil
	}
	return found, true, nil
}

// EntitiesOfKind returns the members whose kind is one of kinds, in ascending
// id order. No kinds means every member.
func (s *State) EntitiesOfKind(wid WorldID, kinds ...Kind) ([]ecs.EntityID, error) {
	w, err := s.World(wid)
	if err != nil {
		return nil, err
	}
	var out []ecs.EntityID
	for _, id := range w.sortedMembers() {
		b, _ := s.bodies.Get(id)
		if matchKind(b.kind, kinds) {
			out = append(out, id)
		}
	}
	return out, nil
}

// Nearest returns the member of from's world, other than from, whose center is
// closest to from's center and whose kind is one of kinds. ok is false when
// from is unattached or no candidate exists.
func (s *State) Nearest(from ecs.EntityID, kinds ...Kind) (ecs.EntityID, bool, error) {
	b, err := s.Body(from)
	if err != nil {
		return 0, false, err
	}
	if b.world == 0 {
		return 0, false, nil
	}
	ids, err := s.EntitiesOfKind(b.world, kinds...)
	if err != nil {
		return 0, false, err
	}
	best := math.Inf(1)
	var bestID ecs.EntityID
	for _, id := range ids {
		if id == from {
			continue
		}
		o, _ := s.bodies.Get(id)
		d, _ := b.DistanceBetweenCenters(o)
		if d < best {
			best, bestID = d, id
		}
	}
	return bestID, bestID != 0, nil
}

func matchKind(k Kind, kinds []Kind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

// overlapAt returns the first member (by id) that a body of radius r at pos
// would overlap, skipping exclude.
func (s *State) overlapAt(w *World, pos geom.Vec2, r float64, exclude ecs.EntityID) *Body {
	for _, id := range w.sortedMembers() {
		if id == exclude {
			continue
		}
		m, _ := s.bodies.Get(id)
		if pos.Dist(m.pos)-r-m.radius <= -overlapTolerance {
			return m
		}
	}
	return nil
}
