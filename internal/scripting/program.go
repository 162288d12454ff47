package scripting

import (
	"fmt"
	"os"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"go.uber.org/zap"
)

// Program is a compiled Lua chunk. It is immutable after Compile and may be
// shared by any number of VMs across goroutines.
type Program struct {
	name      string
	proto     *lua.FunctionProto
	instLimit int
	logger    *zap.Logger
}

// Compile parses and compiles source under name.
//
// Precondition: logger must be non-nil; instLimit >= 0 (0 = DefaultInstructionLimit).
// Postcondition: Returns a non-nil Program or a syntax error.
func Compile(name, source string, instLimit int, logger *zap.Logger) (*Program, error) {
	if logger == nil {
		panic("scripting: Compile: logger must not be nil")
	}
	chunk, err := parse.Parse(strings.NewReader(source), name)
	if err != nil {
		return nil, fmt.Errorf("scripting: parsing %q: %w", name, err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, fmt.Errorf("scripting: compiling %q: %w", name, err)
	}
	return &Program{name: name, proto: proto, instLimit: instLimit, logger: logger}, nil
}

// CompileFile reads path and compiles its contents.
//
// Precondition: path must be a readable Lua source file.
// Postcondition: Returns a non-nil Program or an error.
func CompileFile(path string, instLimit int, logger *zap.Logger) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scripting: reading %q: %w", path, err)
	}
	return Compile(path, string(data), instLimit, logger)
}

// Name returns the chunk name the program was compiled under.
func (p *Program) Name() string { return p.name }

// NewVM creates a sandboxed VM and executes the program's top-level chunk in it,
// defining whatever global hook functions the script declares.
//
// Postcondition: Returns a ready VM or an error if the chunk fails at load time.
func (p *Program) NewVM() (*VM, error) {
	L := NewSandboxedState(p.instLimit)
	release := withBudget(L, p.instLimit)
	fn := L.NewFunctionFromProto(p.proto)
	L.Push(fn)
	err := L.PCall(0, lua.MultRet, nil)
	release()
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("scripting: loading %q: %w", p.name, err)
	}
	L.SetTop(0)
	return &VM{prog: p, L: L}, nil
}

// VM is one sandboxed Lua state running a Program. Globals set by the script
// persist across calls, so a VM carries per-instance script state.
// It is not safe for concurrent use.
type VM struct {
	prog *Program
	L    *lua.LState
}

// HasHook reports whether the script defines a global function named hook.
func (vm *VM) HasHook(hook string) bool {
	_, ok := vm.L.GetGlobal(hook).(*lua.LFunction)
	return ok
}

// Call invokes the global function hook with args under a fresh instruction
// budget and returns up to nret results. A missing hook returns nil. Lua
// runtime errors are logged at Warn level and never propagated.
//
// Precondition: nret >= 0.
// Postcondition: Returns nil or a slice of exactly nret values.
func (vm *VM) Call(hook string, nret int, args ...lua.LValue) []lua.LValue {
	fn, ok := vm.L.GetGlobal(hook).(*lua.LFunction)
	if !ok {
		return nil
	}

	release := withBudget(vm.L, vm.prog.instLimit)
	defer release()

	base := vm.L.GetTop()
	if err := vm.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    nret,
		Protect: true,
	}, args...); err != nil {
		vm.prog.logger.Warn("scripting: Lua runtime error",
			zap.String("script", vm.prog.name),
			zap.String("hook", hook),
			zap.Error(err),
		)
		vm.L.SetTop(base)
		return nil
	}

	out := make([]lua.LValue, nret)
	for i := 0; i < nret; i++ {
		out[i] = vm.L.Get(base + 1 + i)
	}
	vm.L.SetTop(base)
	return out
}

// Table builds a Lua table from numeric fields. Fields whose name appears in
// nils are set to nil, which lets callers express "never happened".
func (vm *VM) Table(fields map[string]float64, nils ...string) *lua.LTable {
	t := vm.L.NewTable()
	for k, v := range fields {
		t.RawSetString(k, lua.LNumber(v))
	}
	for _, k := range nils {
		t.RawSetString(k, lua.LNil)
	}
	return t
}

// Close releases the underlying Lua state. Safe to call multiple times.
func (vm *VM) Close() {
	if vm.L != nil {
		vm.L.Close()
		vm.L = nil
	}
}
