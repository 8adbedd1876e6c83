package world

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/asteroids-sim/engine/internal/config"
	"github.com/asteroids-sim/engine/internal/core/ecs"
	"github.com/asteroids-sim/engine/internal/core/event"
	"github.com/asteroids-sim/engine/internal/geom"
	"go.uber.org/zap"
)

func mustAdd(t *testing.T, s *State, w WorldID, create func() (ecs.EntityID, error)) ecs.EntityID {
	t.Helper()
	id, err := create()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Add(w, id); err != nil {
		t.Fatalf("Add(%d): %v", id, err)
	}
	return id
}

func TestResolveElasticShips(t *testing.T) {
	s := newTestState(t)
	w := mustWorld(t, s, 1000, 800)
	a := mustShip(t, s, w, geom.V(100, 120), geom.V(10, 0), 50)
	b := mustShip(t, s, w, geom.V(500, 120), geom.V(-10, 0), 50)
	ba, bb := mustBody(t, s, a), mustBody(t, s, b)

	dt := ba.TimeToCollision(bb)
	_ = s.Move(a, dt)
	_ = s.Move(b, dt)
	before := ba.Velocity().Scale(shipMass).Add(bb.Velocity().Scale(shipMass))

	out, err := s.Resolve(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if out != OutcomeElastic {
		t.Fatalf("outcome = %v", out)
	}
	va, vb := ba.Velocity(), bb.Velocity()
	if !almostEqual(va.X, -10, 1e-9) || !almostEqual(vb.X, 10, 1e-9) {
		t.Errorf("velocities after bounce = %v, %v", va, vb)
	}
	after := va.Scale(shipMass).Add(vb.Scale(shipMass))
	if !almostEqual(after.X/shipMass, before.X/shipMass, 1e-9) || !almostEqual(after.Y, before.Y, 1e-3) {
		t.Errorf("momentum %v -> %v", before, after)
	}
	if ba.Converging(bb) {
		t.Error("ships still converging after bounce")
	}
}

func TestResolveElasticMinorPlanets(t *testing.T) {
	s := newTestState(t)
	w := mustWorld(t, s, 1000, 800)
	// A heavy planetoid barely notices a light asteroid.
	big := mustAdd(t, s, w, func() (ecs.EntityID, error) { return s.NewPlanetoid(geom.V(300, 400), geom.V(0, 0), 20) })
	small := mustAdd(t, s, w, func() (ecs.EntityID, error) { return s.NewAsteroid(geom.V(325, 400), geom.V(-10, 0), 5) })

	out, err := s.Resolve(small, big)
	if err != nil || out != OutcomeElastic {
		t.Fatalf("Resolve = %v, %v", out, err)
	}
	mb, ms := mustBody(t, s, big).Mass(), mustBody(t, s, small).Mass()
	p := mustBody(t, s, big).Velocity().X*mb + mustBody(t, s, small).Velocity().X*ms
	if !almostEqual(p/ms, -10, 1e-9) {
		t.Errorf("momentum/ms = %v, want -10", p/ms)
	}
	if v := mustBody(t, s, small).Velocity(); v.X <= 0 {
		t.Errorf("asteroid did not rebound: %v", v)
	}
}

// Random off-center approaches between bodies of unequal mass: the contact time
// is the same from either side, moving by it closes the gap, and the bounce
// conserves momentum and kinetic energy.
func TestElasticRandomPairs(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	kinds := []struct {
		name   string
		create func(s *State, pos, vel geom.Vec2, r float64) (ecs.EntityID, error)
	}{
		{"ship", func(s *State, pos, vel geom.Vec2, r float64) (ecs.EntityID, error) {
			return s.NewShip(pos, vel, r, 0, 1e17+rng.Float64()*5e18)
		}},
		{"asteroid", func(s *State, pos, vel geom.Vec2, r float64) (ecs.EntityID, error) {
			return s.NewAsteroid(pos, vel, r)
		}},
		{"planetoid", func(s *State, pos, vel geom.Vec2, r float64) (ecs.EntityID, error) {
			return s.NewPlanetoid(pos, vel, r)
		}},
	}
	pairs := [][2]int{{0, 0}, {1, 1}, {1, 2}, {2, 2}}

	for trial := 0; trial < 40; trial++ {
		kp := pairs[trial%len(pairs)]
		ka, kb := kinds[kp[0]], kinds[kp[1]]
		s := newTestState(t)
		w := mustWorld(t, s, 100000, 100000)

		ra, rb := 10+rng.Float64()*30, 10+rng.Float64()*30
		pa := geom.V(40000+rng.Float64()*20000, 40000+rng.Float64()*20000)
		u := geom.FromAngle(rng.Float64()*2*math.Pi, 1)
		pb := pa.Add(u.Scale(ra + rb + 50 + rng.Float64()*400))
		// b heads for a point beside a's center, off the line of centers.
		offset := (rng.Float64()*1.8 - 0.9) * (ra + rb)
		aim := pa.Add(geom.V(-u.Y, u.X).Scale(offset))
		va := geom.V(rng.Float64()*40-20, rng.Float64()*40-20)
		heading := aim.Sub(pb)
		vb := va.Add(heading.Scale((5 + rng.Float64()*45) / heading.Len()))

		a := mustAdd(t, s, w, func() (ecs.EntityID, error) { return ka.create(s, pa, va, ra) })
		b := mustAdd(t, s, w, func() (ecs.EntityID, error) { return kb.create(s, pb, vb, rb) })
		ba, bb := mustBody(t, s, a), mustBody(t, s, b)

		ttc := ba.TimeToCollision(bb)
		if math.IsInf(ttc, 1) || ttc <= 0 {
			t.Fatalf("trial %d (%s-%s): TimeToCollision = %v", trial, ka.name, kb.name, ttc)
		}
		if rev := bb.TimeToCollision(ba); !almostEqual(rev, ttc, 1e-9*ttc) {
			t.Errorf("trial %d: asymmetric %v vs %v", trial, ttc, rev)
		}

		if err := s.Move(a, ttc); err != nil {
			t.Fatal(err)
		}
		if err := s.Move(b, ttc); err != nil {
			t.Fatal(err)
		}
		gap, err := ba.DistanceBetweenEdges(bb)
		if err != nil {
			t.Fatal(err)
		}
		if !almostEqual(gap, 0, 1e-6) {
			t.Errorf("trial %d: gap at contact = %v", trial, gap)
		}

		ma, mb := ba.Mass(), bb.Mass()
		momentum := func() geom.Vec2 { return ba.Velocity().Scale(ma).Add(bb.Velocity().Scale(mb)) }
		energy := func() float64 {
			return 0.5*ma*ba.Velocity().Dot(ba.Velocity()) + 0.5*mb*bb.Velocity().Dot(bb.Velocity())
		}
		p0, e0 := momentum(), energy()

		out, err := s.Resolve(a, b)
		if err != nil || out != OutcomeElastic {
			t.Fatalf("trial %d: Resolve = %v, %v", trial, out, err)
		}
		p1, e1 := momentum(), energy()
		scale := ma*va.Len() + mb*vb.Len()
		if p1.Sub(p0).Len() > 1e-9*scale {
			t.Errorf("trial %d (%s-%s): momentum %v -> %v", trial, ka.name, kb.name, p0, p1)
		}
		if math.Abs(e1-e0) > 1e-9*e0 {
			t.Errorf("trial %d (%s-%s): energy %v -> %v", trial, ka.name, kb.name, e0, e1)
		}
		if ba.Converging(bb) {
			t.Errorf("trial %d: still converging after bounce", trial)
		}
	}
}

func TestResolveShipAsteroid(t *testing.T) {
	s := newTestState(t)
	w := mustWorld(t, s, 1000, 800)
	ship := mustShip(t, s, w, geom.V(100, 100), geom.V(5, 0), 20)
	rock := mustAdd(t, s, w, func() (ecs.EntityID, error) { return s.NewAsteroid(geom.V(130, 100), geom.Vec2{}, 10) })

	// Argument order does not matter.
	out, err := s.Resolve(rock, ship)
	if err != nil || out != OutcomeShipDestroyed {
		t.Fatalf("Resolve = %v, %v", out, err)
	}
	if !s.IsTerminated(ship) || s.IsTerminated(rock) {
		t.Errorf("ship terminated=%v asteroid terminated=%v", s.IsTerminated(ship), s.IsTerminated(rock))
	}
}

func TestResolveShipPlanetoid(t *testing.T) {
	s := newTestState(t)
	w := mustWorld(t, s, 1000, 800)
	ship := mustShip(t, s, w, geom.V(100, 100), geom.V(5, 0), 20)
	rock := mustAdd(t, s, w, func() (ecs.EntityID, error) { return s.NewPlanetoid(geom.V(130, 100), geom.Vec2{}, 10) })

	out, err := s.Resolve(ship, rock)
	if err != nil || out != OutcomeShipRelocated {
		t.Fatalf("Resolve = %v, %v", out, err)
	}
	b := mustBody(t, s, ship)
	if b.Terminated() || b.Velocity() != geom.V(5, 0) {
		t.Errorf("relocated ship terminated=%v velocity=%v", b.Terminated(), b.Velocity())
	}
	p := b.Position()
	if p.X < 20 || p.X > 980 || p.Y < 20 || p.Y > 780 {
		t.Errorf("relocated to %v, outside the world", p)
	}
}

func TestResolveBullets(t *testing.T) {
	t.Run("own bullet reloads", func(t *testing.T) {
		s := newTestState(t)
		w := mustWorld(t, s, 1000, 800)
		ship, bullets := armedShip(t, s, w, geom.V(500, 400), 1)
		if err := s.Fire(ship); err != nil {
			t.Fatal(err)
		}
		out, err := s.Resolve(bullets[0], ship)
		if err != nil || out != OutcomeBulletReloaded {
			t.Fatalf("Resolve = %v, %v", out, err)
		}
		if n, _ := s.CargoCount(ship); n != 1 {
			t.Errorf("cargo = %d", n)
		}
		if mustBody(t, s, bullets[0]).Attached() {
			t.Error("reloaded bullet still in world")
		}
	})

	t.Run("foreign bullet destroys ship", func(t *testing.T) {
		s := newTestState(t)
		w := mustWorld(t, s, 1000, 800)
		ship := mustShip(t, s, w, geom.V(500, 400), geom.Vec2{}, 20)
		b := addBullet(t, s, w, geom.V(521, 400), geom.V(-10, 0))
		out, err := s.Resolve(ship, b)
		if err != nil || out != OutcomeMutualDestruction {
			t.Fatalf("Resolve = %v, %v", out, err)
		}
		if !s.IsTerminated(ship) || !s.IsTerminated(b) {
			t.Error("ship and bullet should both be terminated")
		}
	})

	for _, other := range []Kind{KindBullet, KindAsteroid, KindPlanetoid} {
		t.Run("bullet-"+other.String(), func(t *testing.T) {
			s := newTestState(t)
			w := mustWorld(t, s, 1000, 800)
			b := addBullet(t, s, w, geom.V(489, 400), geom.V(10, 0))
			create := map[Kind]func(geom.Vec2, geom.Vec2, float64) (ecs.EntityID, error){
				KindBullet:    s.NewBullet,
				KindAsteroid:  s.NewAsteroid,
				KindPlanetoid: s.NewPlanetoid,
			}[other]
			id := mustAdd(t, s, w, func() (ecs.EntityID, error) { return create(geom.V(500, 400), geom.Vec2{}, 10) })
			out, err := s.Resolve(id, b)
			if err != nil || out != OutcomeMutualDestruction {
				t.Fatalf("Resolve = %v, %v", out, err)
			}
			if !s.IsTerminated(id) || !s.IsTerminated(b) {
				t.Error("both should be terminated")
			}
			if ww, _ := s.World(w); ww.Count() != 0 {
				t.Errorf("world still has %d members", ww.Count())
			}
		})
	}
}

func TestPlanetoidSplits(t *testing.T) {
	bus := event.NewBus()
	s := NewState(config.Default().Physics, bus, zap.NewNop())
	w := mustWorld(t, s, 1000, 800)
	planet := mustAdd(t, s, w, func() (ecs.EntityID, error) { return s.NewPlanetoid(geom.V(500, 400), geom.V(10, 0), 40) })
	b := mustAdd(t, s, w, func() (ecs.EntityID, error) { return s.NewBullet(geom.V(458, 400), geom.V(10, 0), 2) })

	if _, err := s.Resolve(b, planet); err != nil {
		t.Fatal(err)
	}
	if !s.IsTerminated(planet) {
		t.Fatal("planetoid survived")
	}
	frags, _ := s.EntitiesOfKind(w)
	if len(frags) != 2 {
		t.Fatalf("world members = %v, want two fragments", frags)
	}
	for _, id := range frags {
		f := mustBody(t, s, id)
		if f.Kind() != KindAsteroid || f.Radius() != 20 {
			t.Errorf("fragment %d: %s r=%v", id, f.Kind(), f.Radius())
		}
		if !almostEqual(f.Speed(), 15, 1e-9) {
			t.Errorf("fragment %d speed = %v, want 15", id, f.Speed())
		}
		if d := f.Position().Dist(geom.V(500, 400)); !almostEqual(d, 20, 1e-9) {
			t.Errorf("fragment %d is %v from the split point", id, d)
		}
	}
	if got := event.Pending[event.EntityTerminated](bus); got != 2 {
		t.Errorf("EntityTerminated events = %d, want 2", got)
	}
}

func TestSmallPlanetoidDoesNotSplit(t *testing.T) {
	s := newTestState(t)
	w := mustWorld(t, s, 1000, 800)
	planet := mustAdd(t, s, w, func() (ecs.EntityID, error) { return s.NewPlanetoid(geom.V(500, 400), geom.Vec2{}, 29) })
	if err := s.Remove(w, planet); err != nil {
		t.Fatal(err)
	}
	if ww, _ := s.World(w); ww.Count() != 0 {
		t.Errorf("small planetoid left %d fragments", ww.Count())
	}
}

func TestResolveErrors(t *testing.T) {
	s := newTestState(t)
	w := mustWorld(t, s, 1000, 800)
	other := mustWorld(t, s, 1000, 800)
	a := mustShip(t, s, w, geom.V(100, 100), geom.Vec2{}, 20)
	b := mustShip(t, s, other, geom.V(140, 100), geom.Vec2{}, 20)
	loose := mustShip(t, s, 0, geom.V(140, 100), geom.Vec2{}, 20)
	dead := mustShip(t, s, w, geom.V(500, 100), geom.Vec2{}, 20)
	_ = s.Terminate(dead)

	tests := []struct {
		name string
		a, b ecs.EntityID
		want error
	}{
		{"self", a, a, ErrInvalidArgument},
		{"different worlds", a, b, ErrIllegalState},
		{"unattached", a, loose, ErrIllegalState},
		{"terminated", a, dead, ErrIllegalState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Resolve(tt.a, tt.b); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}
