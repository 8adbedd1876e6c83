package system

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/asteroids-sim/engine/internal/core/ecs"
	coresys "github.com/asteroids-sim/engine/internal/core/system"
	"github.com/asteroids-sim/engine/internal/geom"
	"github.com/asteroids-sim/engine/internal/world"
	"go.uber.org/zap"
)

// ErrResolutionLimit is returned by Evolve when a step needs more collision
// resolutions than allowed. The rest of the step is still advanced.
var ErrResolutionLimit = errors.New("collision resolution limit reached")

// Collision is the next contact in a world. B is zero for a wall contact.
type Collision struct {
	Time float64
	A, B ecs.EntityID
}

// Boundary reports whether the collision is with a wall of the world.
func (c Collision) Boundary() bool { return c.B == 0 }

// NextCollision finds the earliest pending contact among the members of wid.
// Ties go to the lowest ids, wall contacts before pair contacts. A zero-time
// contact between bodies that are already separating is ignored.
func NextCollision(ws *world.State, wid world.WorldID) (Collision, bool) {
	return nextCollision(ws, wid, math.Inf(1))
}

// nextCollision is NextCollision restricted to contacts within horizon
// seconds. A finite horizon prunes pairs through the sweep grid; the result
// may then be later than horizon but never misses an earlier contact.
func nextCollision(ws *world.State, wid world.WorldID, horizon float64) (Collision, bool) {
	ids, err := ws.Members(wid)
	if err != nil || len(ids) == 0 {
		return Collision{}, false
	}
	bodies := make([]*world.Body, len(ids))
	for i, id := range ids {
		bodies[i], _ = ws.Body(id)
	}

	var pairs [][2]int
	if math.IsInf(horizon, 1) {
		pairs = allPairs(len(bodies))
	} else {
		pairs = newSweepGrid(bodies, horizon).pairs()
	}

	best := Collision{Time: math.Inf(1)}
	next := 0
	for i, a := range bodies {
		if t, _ := ws.TimeToBoundary(a.ID()); t < best.Time {
			best = Collision{Time: t, A: a.ID()}
		}
		for ; next < len(pairs) && pairs[next][0] == i; next++ {
			b := bodies[pairs[next][1]]
			t := a.TimeToCollision(b)
			if t == 0 && !a.Converging(b) {
				continue
			}
			if t < best.Time {
				best = Collision{Time: t, A: a.ID(), B: b.ID()}
			}
		}
	}
	if math.IsInf(best.Time, 1) {
		return Collision{}, false
	}
	return best, true
}

func allPairs(n int) [][2]int {
	out := make([][2]int, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			out = append(out, [2]int{i, j})
		}
	}
	return out
}

// Evolve advances world wid by dt seconds, stopping at every collision on the
// way to resolve it. At most limit collisions are resolved; a non-positive
// limit means no limit. It returns the number of collisions resolved.
func Evolve(ws *world.State, wid world.WorldID, dt float64, limit int) (int, error) {
	if !geom.IsFinite(dt) || dt < 0 {
		return 0, fmt.Errorf("evolve world %d by dt %v: %w", wid, dt, world.ErrInvalidArgument)
	}
	remaining := dt
	resolved := 0
	for {
		c, ok := nextCollision(ws, wid, remaining)
		if !ok || c.Time > remaining {
			return resolved, advance(ws, wid, remaining)
		}
		if limit > 0 && resolved >= limit {
			if err := advance(ws, wid, remaining); err != nil {
				return resolved, err
			}
			return resolved, fmt.Errorf("world %d: %w after %d", wid, ErrResolutionLimit, resolved)
		}
		if err := advance(ws, wid, c.Time); err != nil {
			return resolved, err
		}
		remaining -= c.Time
		if err := resolve(ws, c); err != nil {
			return resolved, err
		}
		resolved++
	}
}

// advance moves every member by dt and then applies ship thrust for dt.
func advance(ws *world.State, wid world.WorldID, dt float64) error {
	if dt == 0 {
		return nil
	}
	ids, err := ws.Members(wid)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := ws.Move(id, dt); err != nil {
			return fmt.Errorf("advance entity %d: %w", id, err)
		}
		if b, _ := ws.Body(id); b.Kind() == world.KindShip {
			if err := ws.Accelerate(id, dt); err != nil {
				return fmt.Errorf("thrust ship %d: %w", id, err)
			}
		}
	}
	return nil
}

func resolve(ws *world.State, c Collision) error {
	if c.Boundary() {
		if err := ws.CollideBoundary(c.A); err != nil {
			return fmt.Errorf("wall contact of %d: %w", c.A, err)
		}
		return nil
	}
	if _, err := ws.Resolve(c.A, c.B); err != nil {
		return fmt.Errorf("collision %d-%d: %w", c.A, c.B, err)
	}
	return nil
}

// PhysicsSystem evolves every world by the tick duration.
// Phase 2 (Update).
type PhysicsSystem struct {
	state    *world.State
	limit    int
	log      *zap.Logger
	resolved uint64
}

func NewPhysicsSystem(ws *world.State, maxResolutions int, log *zap.Logger) *PhysicsSystem {
	return &PhysicsSystem{state: ws, limit: maxResolutions, log: log}
}

func (s *PhysicsSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *PhysicsSystem) Update(dt time.Duration) {
	secs := dt.Seconds()
	for _, wid := range s.state.Worlds() {
		n, err := Evolve(s.state, wid, secs, s.limit)
		s.resolved += uint64(n)
		if err != nil {
			s.log.Warn("evolve failed", zap.Uint32("world", uint32(wid)), zap.Error(err))
		}
	}
}

// Resolved returns the number of collisions resolved since start.
func (s *PhysicsSystem) Resolved() uint64 { return s.resolved }
