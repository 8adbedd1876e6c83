package scripting

import (
	"math"

	"github.com/asteroids-sim/engine/internal/core/ecs"
	"github.com/asteroids-sim/engine/internal/world"
	lua "github.com/yuin/gopher-lua"
)

// registerAPI installs the globals ship programs use. Entity ids cross into
// Lua as numbers. Query functions take an optional id and default to the
// ship whose program is running; commands always act on that ship.
func (e *Engine) registerAPI() {
	api := map[string]lua.LGFunction{
		"self":        e.luaSelf,
		"position":    e.luaPosition,
		"velocity":    e.luaVelocity,
		"radius":      e.luaRadius,
		"mass":        e.luaMass,
		"total_mass":  e.luaTotalMass,
		"direction":   e.luaDirection,
		"cargo_count": e.luaCargoCount,
		"terminated":  e.luaTerminated,
		"distance":    e.luaDistance,
		"closest":     e.luaClosest,
		"turn":        e.luaTurn,
		"thrust_on":   e.luaThrustOn,
		"thrust_off":  e.luaThrustOff,
		"fire":        e.luaFire,
	}
	for name, fn := range api {
		e.vm.SetGlobal(name, e.vm.NewFunction(fn))
	}
}

// running guards every API call: the API is only live inside RunPrograms.
func (e *Engine) running(L *lua.LState) *world.State {
	if e.state == nil {
		L.RaiseError("ship API called outside a program")
	}
	return e.state
}

// target reads the optional id argument at idx.
func (e *Engine) target(L *lua.LState, idx int) ecs.EntityID {
	if L.GetTop() >= idx {
		return checkID(L, idx)
	}
	return e.self
}

// checkID reads an entity id argument. Ids are positive integers; a Lua
// number keeps them exact up to 2^53.
func checkID(L *lua.LState, idx int) ecs.EntityID {
	n := float64(L.CheckNumber(idx))
	if n < 1 || n > 1<<53 || n != math.Trunc(n) {
		L.ArgError(idx, "entity id must be a positive integer")
	}
	return ecs.EntityID(n)
}

func (e *Engine) body(L *lua.LState, idx int) *world.Body {
	ws := e.running(L)
	id := e.target(L, idx)
	b, err := ws.Body(id)
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
	return b
}

func check(L *lua.LState, err error) {
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
}

func (e *Engine) luaSelf(L *lua.LState) int {
	e.running(L)
	L.Push(lua.LNumber(e.self))
	return 1
}

func (e *Engine) luaPosition(L *lua.LState) int {
	p := e.body(L, 1).Position()
	L.Push(lua.LNumber(p.X))
	L.Push(lua.LNumber(p.Y))
	return 2
}

func (e *Engine) luaVelocity(L *lua.LState) int {
	v := e.body(L, 1).Velocity()
	L.Push(lua.LNumber(v.X))
	L.Push(lua.LNumber(v.Y))
	return 2
}

func (e *Engine) luaRadius(L *lua.LState) int {
	L.Push(lua.LNumber(e.body(L, 1).Radius()))
	return 1
}

func (e *Engine) luaMass(L *lua.LState) int {
	L.Push(lua.LNumber(e.body(L, 1).Mass()))
	return 1
}

func (e *Engine) luaTotalMass(L *lua.LState) int {
	ws := e.running(L)
	m, err := ws.TotalMass(e.target(L, 1))
	check(L, err)
	L.Push(lua.LNumber(m))
	return 1
}

func (e *Engine) luaDirection(L *lua.LState) int {
	ws := e.running(L)
	d, err := ws.Direction(e.target(L, 1))
	check(L, err)
	L.Push(lua.LNumber(d))
	return 1
}

func (e *Engine) luaCargoCount(L *lua.LState) int {
	ws := e.running(L)
	n, err := ws.CargoCount(e.target(L, 1))
	check(L, err)
	L.Push(lua.LNumber(n))
	return 1
}

func (e *Engine) luaTerminated(L *lua.LState) int {
	ws := e.running(L)
	L.Push(lua.LBool(ws.IsTerminated(e.target(L, 1))))
	return 1
}

// distance(id) is the edge-to-edge distance from the running ship to id.
func (e *Engine) luaDistance(L *lua.LState) int {
	ws := e.running(L)
	self, err := ws.Body(e.self)
	check(L, err)
	other, err := ws.Body(checkID(L, 1))
	check(L, err)
	d, err := self.DistanceBetweenEdges(other)
	check(L, err)
	L.Push(lua.LNumber(d))
	return 1
}

// closest([kind...]) returns the id of the nearest member of the running
// ship's world with one of the given kinds, or nil.
func (e *Engine) luaClosest(L *lua.LState) int {
	ws := e.running(L)
	kinds := make([]world.Kind, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		name := L.CheckString(i)
		k, ok := world.ParseKind(name)
		if !ok {
			L.ArgError(i, "unknown kind "+name)
		}
		kinds = append(kinds, k)
	}
	id, ok, err := ws.Nearest(e.self, kinds...)
	check(L, err)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(id))
	return 1
}

func (e *Engine) luaTurn(L *lua.LState) int {
	ws := e.running(L)
	check(L, ws.Turn(e.self, float64(L.CheckNumber(1))))
	return 0
}

func (e *Engine) luaThrustOn(L *lua.LState) int {
	check(L, e.running(L).ThrustOn(e.self))
	return 0
}

func (e *Engine) luaThrustOff(L *lua.LState) int {
	check(L, e.running(L).ThrustOff(e.self))
	return 0
}

func (e *Engine) luaFire(L *lua.LState) int {
	check(L, e.running(L).Fire(e.self))
	return 0
}
