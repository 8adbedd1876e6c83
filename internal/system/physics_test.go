package system

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/asteroids-sim/engine/internal/config"
	"github.com/asteroids-sim/engine/internal/core/ecs"
	"github.com/asteroids-sim/engine/internal/core/event"
	coresys "github.com/asteroids-sim/engine/internal/core/system"
	"github.com/asteroids-sim/engine/internal/geom"
	"github.com/asteroids-sim/engine/internal/world"
	"go.uber.org/zap"
)

const shipMass = 1.1e18

func newState(t *testing.T, bus *event.Bus) (*world.State, world.WorldID) {
	t.Helper()
	ws := world.NewState(config.Default().Physics, bus, zap.NewNop())
	wid, err := ws.NewWorld(1000, 800)
	if err != nil {
		t.Fatal(err)
	}
	return ws, wid
}

func add(t *testing.T, ws *world.State, wid world.WorldID, id ecs.EntityID, err error) ecs.EntityID {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Add(wid, id); err != nil {
		t.Fatalf("Add(%d): %v", id, err)
	}
	return id
}

func pos(t *testing.T, ws *world.State, id ecs.EntityID) geom.Vec2 {
	t.Helper()
	b, err := ws.Body(id)
	if err != nil {
		t.Fatal(err)
	}
	return b.Position()
}

func vel(t *testing.T, ws *world.State, id ecs.EntityID) geom.Vec2 {
	t.Helper()
	b, err := ws.Body(id)
	if err != nil {
		t.Fatal(err)
	}
	return b.Velocity()
}

func near(a, b float64) bool { return math.Abs(a-b) <= 1e-6 }

func TestNextCollision(t *testing.T) {
	ws, wid := newState(t, nil)
	if _, ok := NextCollision(ws, wid); ok {
		t.Fatal("collision found in an empty world")
	}

	id, err := ws.NewShip(geom.V(100, 120), geom.V(10, 0), 50, 0, shipMass)
	a := add(t, ws, wid, id, err)
	id, err = ws.NewShip(geom.V(500, 120), geom.V(-10, 0), 50, 0, shipMass)
	b := add(t, ws, wid, id, err)

	c, ok := NextCollision(ws, wid)
	if !ok || c.Boundary() || c.A != a || c.B != b || !near(c.Time, 15) {
		t.Fatalf("NextCollision = %+v, %v", c, ok)
	}

	id, err = ws.NewAsteroid(geom.V(990, 700), geom.V(10, 0), 5)
	rock := add(t, ws, wid, id, err)
	c, ok = NextCollision(ws, wid)
	if !ok || !c.Boundary() || c.A != rock || !near(c.Time, 0.5) {
		t.Errorf("NextCollision = %+v, %v; want wall contact of %d at 0.5", c, ok, rock)
	}
}

func TestEvolveHeadOn(t *testing.T) {
	ws, wid := newState(t, nil)
	id, err := ws.NewShip(geom.V(100, 120), geom.V(10, 0), 50, 0, shipMass)
	a := add(t, ws, wid, id, err)
	id, err = ws.NewShip(geom.V(500, 120), geom.V(-10, 0), 50, 0, shipMass)
	b := add(t, ws, wid, id, err)

	n, err := Evolve(ws, wid, 20, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("resolved %d collisions, want 1", n)
	}
	if p := pos(t, ws, a); !near(p.X, 200) || p.Y != 120 {
		t.Errorf("ship a at %v, want (200, 120)", p)
	}
	if p := pos(t, ws, b); !near(p.X, 400) {
		t.Errorf("ship b at %v, want (400, 120)", p)
	}
	if v := vel(t, ws, a); !near(v.X, -10) {
		t.Errorf("ship a velocity %v", v)
	}
}

func TestEvolveBulletBouncesOut(t *testing.T) {
	ws, _ := newState(t, nil)
	wid, _ := ws.NewWorld(100, 100)
	id, err := ws.NewBullet(geom.V(50, 50), geom.V(10, 0), 1)
	bullet := add(t, ws, wid, id, err)

	n, err := Evolve(ws, wid, 30, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("resolved %d, want 3 wall contacts", n)
	}
	if !ws.IsTerminated(bullet) {
		t.Error("bullet survived three wall contacts")
	}
}

func TestEvolveFireAndCatch(t *testing.T) {
	ws, wid := newState(t, nil)
	id, err := ws.NewShip(geom.V(500, 400), geom.Vec2{}, 20, 0, shipMass)
	ship := add(t, ws, wid, id, err)
	bullet, err := ws.NewBullet(geom.V(500, 400), geom.Vec2{}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Load(ship, bullet); err != nil {
		t.Fatal(err)
	}
	if err := ws.Fire(ship); err != nil {
		t.Fatal(err)
	}

	// Launched bullets touch their ship but are leaving it.
	if _, err := Evolve(ws, wid, 0.01, 0); err != nil {
		t.Fatal(err)
	}
	if n, _ := ws.CargoCount(ship); n != 0 || ws.IsTerminated(bullet) {
		t.Fatalf("bullet caught at launch: cargo=%d terminated=%v", n, ws.IsTerminated(bullet))
	}

	// Off the far wall and straight back into the hold.
	n, err := Evolve(ws, wid, 4, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("resolved %d, want wall + reload", n)
	}
	if c, _ := ws.CargoCount(ship); c != 1 {
		t.Errorf("cargo = %d, want 1", c)
	}
	if b, _ := ws.Bounces(bullet); b != 0 {
		t.Errorf("reloaded bullet keeps %d bounces", b)
	}
}

func TestEvolveAppliesThrust(t *testing.T) {
	ws, wid := newState(t, nil)
	id, err := ws.NewShip(geom.V(500, 400), geom.Vec2{}, 20, 0, shipMass)
	ship := add(t, ws, wid, id, err)
	if err := ws.ThrustOn(ship); err != nil {
		t.Fatal(err)
	}

	if _, err := Evolve(ws, wid, 2, 0); err != nil {
		t.Fatal(err)
	}
	want := ws.Physics().ThrusterForce / shipMass * 2
	if v := vel(t, ws, ship); !near(v.X, want) {
		t.Errorf("velocity after thrust = %v, want %v", v, want)
	}
}

func TestEvolveLimit(t *testing.T) {
	ws, wid := newState(t, nil)
	id, err := ws.NewShip(geom.V(100, 120), geom.V(10, 0), 50, 0, shipMass)
	add(t, ws, wid, id, err)
	id, err = ws.NewShip(geom.V(500, 120), geom.V(-10, 0), 50, 0, shipMass)
	add(t, ws, wid, id, err)

	n, err := Evolve(ws, wid, 100, 1)
	if !errors.Is(err, ErrResolutionLimit) {
		t.Fatalf("err = %v, want ErrResolutionLimit", err)
	}
	if n != 1 {
		t.Errorf("resolved %d, want 1", n)
	}

	if _, err := Evolve(ws, wid, -1, 0); !errors.Is(err, world.ErrInvalidArgument) {
		t.Errorf("negative dt err = %v", err)
	}
}

func TestEvolveRejectsNonFiniteDt(t *testing.T) {
	ws, wid := newState(t, nil)
	rest, err := ws.NewShip(geom.V(100, 100), geom.Vec2{}, 20, 0, shipMass)
	add(t, ws, wid, rest, err)
	moving, err := ws.NewAsteroid(geom.V(500, 400), geom.V(3, 4), 10)
	add(t, ws, wid, moving, err)

	for _, dt := range []float64{math.Inf(1), math.NaN()} {
		if n, err := Evolve(ws, wid, dt, 0); !errors.Is(err, world.ErrInvalidArgument) || n != 0 {
			t.Errorf("Evolve(%v) = %d, %v", dt, n, err)
		}
	}
	if p := pos(t, ws, rest); p != geom.V(100, 100) {
		t.Errorf("ship at rest moved to %v", p)
	}
	if p := pos(t, ws, moving); p != geom.V(500, 400) {
		t.Errorf("asteroid moved to %v", p)
	}
}

type recordingPrograms struct{ calls []float64 }

func (r *recordingPrograms) RunPrograms(_ *world.State, dt float64) { r.calls = append(r.calls, dt) }

func TestRunnerTick(t *testing.T) {
	bus := event.NewBus()
	ws, wid := newState(t, bus)
	tally := NewTally(bus)
	progs := &recordingPrograms{}

	id, err := ws.NewBullet(geom.V(100, 100), geom.V(10, 0), 1)
	bullet := add(t, ws, wid, id, err)
	id, err = ws.NewAsteroid(geom.V(131, 100), geom.Vec2{}, 10)
	rock := add(t, ws, wid, id, err)

	physics := NewPhysicsSystem(ws, 100, zap.NewNop())
	cleanup := NewCleanupSystem(ws, zap.NewNop())
	r := coresys.NewRunner()
	r.Register(cleanup)
	r.Register(physics)
	r.Register(NewEventSystem(bus))
	r.Register(NewProgramSystem(ws, progs))

	r.Tick(3 * time.Second)
	if physics.Resolved() != 1 {
		t.Errorf("resolved = %d", physics.Resolved())
	}
	if cleanup.Flushed() != 2 || len(ws.Entities()) != 0 {
		t.Errorf("flushed = %d, entities left = %v", cleanup.Flushed(), ws.Entities())
	}
	if !ws.IsTerminated(bullet) || !ws.IsTerminated(rock) {
		t.Error("bullet and asteroid should be gone")
	}
	if len(tally.Terminated) != 0 {
		t.Error("events delivered in the tick they were emitted")
	}

	r.Tick(3 * time.Second)
	if tally.Terminated["bullet"] != 1 || tally.Terminated["asteroid"] != 1 {
		t.Errorf("terminated tally = %v", tally.Terminated)
	}
	if tally.Outcomes["mutual-destruction"] != 1 {
		t.Errorf("outcome tally = %v", tally.Outcomes)
	}
	if len(progs.calls) != 2 || progs.calls[0] != 3 {
		t.Errorf("program calls = %v", progs.calls)
	}
	if r.Ticks() != 2 {
		t.Errorf("ticks = %d", r.Ticks())
	}
}

func TestSubscribeLogging(t *testing.T) {
	bus := event.NewBus()
	SubscribeLogging(bus, zap.NewNop())
	event.Emit(bus, event.EntityTerminated{EntityID: 1, Kind: "ship", Cause: "test"})
	event.Emit(bus, event.BoundaryBounced{EntityID: 1, Axes: 2})
	bus.SwapBuffers()
	if n := bus.DispatchAll(); n != 2 {
		t.Errorf("dispatched %d, want 2", n)
	}
}
