package system

import (
	"time"

	"github.com/asteroids-sim/engine/internal/core/event"
	coresys "github.com/asteroids-sim/engine/internal/core/system"
	"go.uber.org/zap"
)

// EventSystem delivers the events emitted during the previous tick.
// Phase 1 (PreUpdate).
type EventSystem struct {
	bus *event.Bus
}

func NewEventSystem(bus *event.Bus) *EventSystem {
	return &EventSystem{bus: bus}
}

func (s *EventSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *EventSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}

// SubscribeLogging logs every engine event. Terminations and collisions go to
// info, the chattier cargo and wall events to debug.
func SubscribeLogging(bus *event.Bus, log *zap.Logger) {
	event.Subscribe(bus, func(e event.EntityTerminated) {
		log.Info("entity terminated",
			zap.Uint64("id", uint64(e.EntityID)),
			zap.String("kind", e.Kind),
			zap.String("cause", e.Cause))
	})
	event.Subscribe(bus, func(e event.CollisionResolved) {
		log.Info("collision",
			zap.Uint64("a", uint64(e.A)),
			zap.Uint64("b", uint64(e.B)),
			zap.String("outcome", e.Outcome))
	})
	event.Subscribe(bus, func(e event.BulletFired) {
		log.Debug("bullet fired", zap.Uint64("ship", uint64(e.ShipID)), zap.Uint64("bullet", uint64(e.BulletID)))
	})
	event.Subscribe(bus, func(e event.BulletLoaded) {
		log.Debug("bullet loaded", zap.Uint64("ship", uint64(e.ShipID)), zap.Uint64("bullet", uint64(e.BulletID)))
	})
	event.Subscribe(bus, func(e event.BoundaryBounced) {
		log.Debug("wall bounce", zap.Uint64("id", uint64(e.EntityID)), zap.Int("axes", e.Axes))
	})
}

// Tally counts delivered events for the end-of-run summary.
type Tally struct {
	Terminated map[string]int // by kind
	Outcomes   map[string]int // by collision outcome
	Fired      int
	Loaded     int
	Bounces    int
}

// NewTally subscribes a fresh Tally to bus.
func NewTally(bus *event.Bus) *Tally {
	t := &Tally{
		Terminated: make(map[string]int, 4),
		Outcomes:   make(map[string]int, 6),
	}
	event.Subscribe(bus, func(e event.EntityTerminated) { t.Terminated[e.Kind]++ })
	event.Subscribe(bus, func(e event.CollisionResolved) { t.Outcomes[e.Outcome]++ })
	event.Subscribe(bus, func(event.BulletFired) { t.Fired++ })
	event.Subscribe(bus, func(event.BulletLoaded) { t.Loaded++ })
	event.Subscribe(bus, func(e event.BoundaryBounced) { t.Bounces += e.Axes })
	return t
}
