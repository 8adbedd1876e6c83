package data

import (
	"fmt"
	"os"

	"github.com/asteroids-sim/engine/internal/core/ecs"
	"github.com/asteroids-sim/engine/internal/geom"
	"github.com/asteroids-sim/engine/internal/world"
	"gopkg.in/yaml.v3"
)

// WorldSpec is the size of the scenario's world, in km.
type WorldSpec struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// ShipSpec defines a ship, its starting cargo and its control program.
type ShipSpec struct {
	Name         string    `yaml:"name"`
	Position     geom.Vec2 `yaml:"position"`
	Velocity     geom.Vec2 `yaml:"velocity"`
	Radius       float64   `yaml:"radius"`
	Direction    float64   `yaml:"direction"` // radians
	Mass         float64   `yaml:"mass"`      // kg; 0 = lightest allowed for the radius
	Bullets      int       `yaml:"bullets"`
	BulletRadius float64   `yaml:"bullet_radius"` // 0 = smallest bullet
	Program      string    `yaml:"program"`       // Lua function name, empty = drifting hulk
}

// BodySpec defines a bullet, asteroid or planetoid.
type BodySpec struct {
	Position geom.Vec2 `yaml:"position"`
	Velocity geom.Vec2 `yaml:"velocity"`
	Radius   float64   `yaml:"radius"`
}

// Scenario is the initial population of one world.
type Scenario struct {
	World      WorldSpec  `yaml:"world"`
	Ships      []ShipSpec `yaml:"ships"`
	Asteroids  []BodySpec `yaml:"asteroids"`
	Planetoids []BodySpec `yaml:"planetoids"`
	Bullets    []BodySpec `yaml:"bullets"`
}

// Spawned describes what Spawn created.
type Spawned struct {
	World    world.WorldID
	Ships    []ecs.EntityID
	Programs map[ecs.EntityID]string // ship -> program name, programmed ships only
	Entities int                     // world members plus carried bullets
}

// LoadScenario loads a scenario yaml file.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if sc.World.Width <= 0 || sc.World.Height <= 0 {
		return nil, fmt.Errorf("scenario %s: world size %vx%v", path, sc.World.Width, sc.World.Height)
	}
	for i, s := range sc.Ships {
		if s.Bullets < 0 {
			return nil, fmt.Errorf("scenario %s: ship %d has %d bullets", path, i, s.Bullets)
		}
	}
	return &sc, nil
}

// Spawn creates the scenario's world in ws and admits every entity into it.
// Ships come first, then planetoids, asteroids and free bullets. Any failure
// aborts the spawn; entities already created are left in place.
func (sc *Scenario) Spawn(ws *world.State) (*Spawned, error) {
	wid, err := ws.NewWorld(sc.World.Width, sc.World.Height)
	if err != nil {
		return nil, err
	}
	out := &Spawned{
		World:    wid,
		Ships:    make([]ecs.EntityID, 0, len(sc.Ships)),
		Programs: make(map[ecs.EntityID]string, len(sc.Ships)),
	}

	for i, s := range sc.Ships {
		id, err := sc.spawnShip(ws, wid, s)
		if err != nil {
			return nil, fmt.Errorf("ship %d (%s): %w", i, s.Name, err)
		}
		out.Ships = append(out.Ships, id)
		if s.Program != "" {
			out.Programs[id] = s.Program
		}
		out.Entities += 1 + s.Bullets
	}

	groups := []struct {
		name   string
		specs  []BodySpec
		create func(pos, vel geom.Vec2, radius float64) (ecs.EntityID, error)
	}{
		{"planetoid", sc.Planetoids, ws.NewPlanetoid},
		{"asteroid", sc.Asteroids, ws.NewAsteroid},
		{"bullet", sc.Bullets, ws.NewBullet},
	}
	for _, g := range groups {
		for i, b := range g.specs {
			id, err := g.create(b.Position, b.Velocity, b.Radius)
			if err != nil {
				return nil, fmt.Errorf("%s %d: %w", g.name, i, err)
			}
			if err := ws.Add(wid, id); err != nil {
				return nil, fmt.Errorf("%s %d: %w", g.name, i, err)
			}
			out.Entities++
		}
	}
	return out, nil
}

func (sc *Scenario) spawnShip(ws *world.State, wid world.WorldID, s ShipSpec) (ecs.EntityID, error) {
	mass := s.Mass
	if mass == 0 {
		mass = 1 // raised to the density minimum
	}
	id, err := ws.NewShip(s.Position, s.Velocity, s.Radius, s.Direction, mass)
	if err != nil {
		return 0, err
	}
	if err := ws.Add(wid, id); err != nil {
		return 0, err
	}

	br := s.BulletRadius
	if br == 0 {
		br = world.KindBullet.MinRadius()
	}
	cargo := make([]ecs.EntityID, 0, s.Bullets)
	for n := 0; n < s.Bullets; n++ {
		bid, err := ws.NewBullet(s.Position, geom.Vec2{}, br)
		if err != nil {
			return 0, fmt.Errorf("bullet %d: %w", n, err)
		}
		cargo = append(cargo, bid)
	}
	if len(cargo) > 0 {
		if err := ws.Load(id, cargo...); err != nil {
			return 0, err
		}
	}
	return id, nil
}
