package system

import (
	"time"

	coresys "github.com/asteroids-sim/engine/internal/core/system"
	"github.com/asteroids-sim/engine/internal/world"
)

// Programs runs the control programs bound to ships.
type Programs interface {
	RunPrograms(ws *world.State, dt float64)
}

// ProgramSystem lets ship programs steer, thrust and fire before physics runs.
// Phase 0 (Input).
type ProgramSystem struct {
	state    *world.State
	programs Programs
}

func NewProgramSystem(ws *world.State, programs Programs) *ProgramSystem {
	return &ProgramSystem{state: ws, programs: programs}
}

func (s *ProgramSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *ProgramSystem) Update(dt time.Duration) {
	s.programs.RunPrograms(s.state, dt.Seconds())
}
