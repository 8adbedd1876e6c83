package system

import (
	"time"

	coresys "github.com/asteroids-sim/engine/internal/core/system"
	"github.com/asteroids-sim/engine/internal/world"
	"go.uber.org/zap"
)

// CleanupSystem flushes the deferred entity destruction queue at tick end.
// Terminated entities stay readable for the rest of the tick they died in.
// Phase 4 (Cleanup).
type CleanupSystem struct {
	state   *world.State
	log     *zap.Logger
	flushed uint64
}

func NewCleanupSystem(ws *world.State, log *zap.Logger) *CleanupSystem {
	return &CleanupSystem{state: ws, log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	n := s.state.ECS().FlushDestroyQueue()
	if n > 0 {
		s.flushed += uint64(n)
		s.log.Debug("entities reclaimed", zap.Int("count", n))
	}
}

// Flushed returns how many entity ids have been reclaimed so far.
func (s *CleanupSystem) Flushed() uint64 { return s.flushed }
