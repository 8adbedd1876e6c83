package event

import "github.com/asteroids-sim/engine/internal/core/ecs"

// EntityTerminated fires once per entity, when it is terminated.
type EntityTerminated struct {
	EntityID ecs.EntityID
	Kind     string
	Cause    string
}

// BulletFired fires when a ship launches a bullet into its world.
type BulletFired struct {
	ShipID   ecs.EntityID
	BulletID ecs.EntityID
}

// BulletLoaded fires for every bullet that enters a ship's cargo.
type BulletLoaded struct {
	ShipID   ecs.EntityID
	BulletID ecs.EntityID
}

// CollisionResolved fires after the dispatcher has applied a pair outcome.
type CollisionResolved struct {
	A, B    ecs.EntityID
	Outcome string
}

// BoundaryBounced fires when a body reflects off one or two walls.
type BoundaryBounced struct {
	EntityID ecs.EntityID
	Axes     int
}
