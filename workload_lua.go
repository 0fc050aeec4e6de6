// workload_lua.go - Lua-scripted user workloads

/*
workload_lua.go - Scripted Workloads

User programs for the machine can be written as Lua scripts. A script
runs inside one kernel process with the three device services bound as
globals, so exercising the layer does not require recompiling:

    sleep(seconds)          -> status
    term_write(unit, s)     -> bytes_written, status
    term_read(unit [, cap]) -> line, status   (line is nil on error)
    ticks()                 -> current clock tick
*/

package main

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// LuaWorkload runs scripts against one machine.
type LuaWorkload struct {
	machine *Machine
}

// NewLuaWorkload creates a workload runner for the machine.
func NewLuaWorkload(m *Machine) *LuaWorkload {
	return &LuaWorkload{machine: m}
}

// RunFile spawns a kernel process that executes the script at path and
// waits for it to finish.
func (w *LuaWorkload) RunFile(name, path string) error {
	return w.run(name, func(L *lua.LState) error { return L.DoFile(path) })
}

// RunString is RunFile for in-memory script source. Tests use it.
func (w *LuaWorkload) RunString(name, src string) error {
	return w.run(name, func(L *lua.LState) error { return L.DoString(src) })
}

func (w *LuaWorkload) run(name string, exec func(*lua.LState) error) error {
	errCh := make(chan error, 1)
	proc := w.machine.Kern.Spawn(name, 3, func(p *Proc) {
		L := lua.NewState()
		defer L.Close()
		w.bind(L, p)
		errCh <- exec(L)
	})
	<-proc.Done()
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("lua workload %s: %w", name, err)
		}
		return nil
	default:
		return fmt.Errorf("lua workload %s: exited without result", name)
	}
}

// bind installs the service bindings for the process running the script.
func (w *LuaWorkload) bind(L *lua.LState, p *Proc) {
	L.SetGlobal("sleep", L.NewFunction(func(L *lua.LState) int {
		status := Sleep(p, L.CheckInt(1))
		L.Push(lua.LNumber(status))
		return 1
	}))

	L.SetGlobal("term_write", L.NewFunction(func(L *lua.LState) int {
		unit := L.CheckInt(1)
		s := L.CheckString(2)
		n, status := TermWrite(p, unit, []byte(s))
		L.Push(lua.LNumber(n))
		L.Push(lua.LNumber(status))
		return 2
	}))

	L.SetGlobal("term_read", L.NewFunction(func(L *lua.LState) int {
		unit := L.CheckInt(1)
		capacity := MAX_LINE_LENGTH
		if L.GetTop() >= 2 {
			capacity = L.CheckInt(2)
		}
		if capacity < 0 {
			capacity = 0
		}
		buf := make([]byte, capacity)
		n, status := TermRead(p, unit, buf)
		if status != 0 {
			L.Push(lua.LNil)
		} else {
			L.Push(lua.LString(buf[:n]))
		}
		L.Push(lua.LNumber(status))
		return 2
	}))

	L.SetGlobal("ticks", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(w.machine.Svc.Ticks()))
		return 1
	}))
}
