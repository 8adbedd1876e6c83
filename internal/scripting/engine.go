package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/asteroids-sim/engine/internal/core/ecs"
	"github.com/asteroids-sim/engine/internal/world"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM that runs ship control programs.
// A program is a global Lua function called once per tick with dt in seconds.
// Single-goroutine access only (driver loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger

	programs map[ecs.EntityID]string // ship -> global function name
	failures uint64

	// Set for the duration of one program call.
	state *world.State
	self  ecs.EntityID
}

// NewEngine creates a Lua engine, registers the ship API and loads every
// script in scriptsDir. An empty scriptsDir loads nothing.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{
		vm:       vm,
		log:      log,
		programs: make(map[ecs.EntityID]string, 8),
	}
	e.registerAPI()

	if scriptsDir != "" {
		if err := e.loadDir(scriptsDir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load ship scripts: %w", err)
		}
	}
	return e, nil
}

// loadDir loads all .lua files in a directory, in name order.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

func (e *Engine) Close() { e.vm.Close() }

// DoString runs a chunk of Lua source, typically to define programs inline.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

// HasProgram reports whether name is a global Lua function.
func (e *Engine) HasProgram(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// Bind attaches the global function name as the program of ship.
func (e *Engine) Bind(ship ecs.EntityID, name string) error {
	if !e.HasProgram(name) {
		return fmt.Errorf("bind ship %d: lua function %q not found", ship, name)
	}
	e.programs[ship] = name
	return nil
}

func (e *Engine) Unbind(ship ecs.EntityID) { delete(e.programs, ship) }

// Bound returns the number of ships with a program.
func (e *Engine) Bound() int { return len(e.programs) }

// Failures returns how many program calls have raised an error.
func (e *Engine) Failures() uint64 { return e.failures }

// RunPrograms calls every bound program once, in ship id order. Programs of
// terminated ships are dropped. A failing program is logged and runs again
// next tick.
func (e *Engine) RunPrograms(ws *world.State, dt float64) {
	ships := make([]ecs.EntityID, 0, len(e.programs))
	for id := range e.programs {
		ships = append(ships, id)
	}
	sort.Slice(ships, func(i, j int) bool { return ships[i] < ships[j] })

	e.state = ws
	defer func() { e.state, e.self = nil, 0 }()

	for _, ship := range ships {
		if ws.IsTerminated(ship) {
			delete(e.programs, ship)
			continue
		}
		name := e.programs[ship]
		e.self = ship
		if err := e.vm.CallByParam(lua.P{
			Fn:      e.vm.GetGlobal(name),
			NRet:    0,
			Protect: true,
		}, lua.LNumber(dt)); err != nil {
			e.failures++
			e.log.Warn("ship program error",
				zap.Uint64("ship", uint64(ship)),
				zap.String("program", name),
				zap.Error(err))
		}
	}
}
