package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: run ship programs (thrust, turn, fire)
	PhasePreUpdate               // 1: deliver last tick's events
	PhaseUpdate                  // 2: advance kinematics, resolve collisions
	PhasePostUpdate              // 3: reporting
	PhaseCleanup                 // 4: destroy terminated entities
)

// System is the interface every driver system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
