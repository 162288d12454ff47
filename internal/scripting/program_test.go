package scripting_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/dpsim/internal/scripting"
)

func compile(t testing.TB, src string, limit int) (*scripting.Program, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	prog, err := scripting.Compile("test.lua", src, limit, zap.New(core))
	require.NoError(t, err)
	return prog, logs
}

func TestCompile_SyntaxError(t *testing.T) {
	_, err := scripting.Compile("bad.lua", `this is not valid lua @@@@`, 0, zap.NewNop())
	assert.Error(t, err)
}

func TestCompile_PanicsOnNilLogger(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = scripting.Compile("x.lua", `x = 1`, 0, nil)
	})
}

func TestCompileFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hook.lua")
	require.NoError(t, os.WriteFile(path, []byte(`function on_hit() return 1 end`), 0644))
	prog, err := scripting.CompileFile(path, 0, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, path, prog.Name())

	_, err = scripting.CompileFile(filepath.Join(dir, "missing.lua"), 0, zap.NewNop())
	assert.Error(t, err)
}

func TestVM_CallReturnsValues(t *testing.T) {
	prog, _ := compile(t, `
		function add(a, b)
			return a + b, "sum"
		end
	`, 0)
	vm, err := prog.NewVM()
	require.NoError(t, err)
	defer vm.Close()

	assert.True(t, vm.HasHook("add"))
	ret := vm.Call("add", 2, lua.LNumber(3), lua.LNumber(4))
	require.Len(t, ret, 2)
	assert.Equal(t, lua.LNumber(7), ret[0])
	assert.Equal(t, lua.LString("sum"), ret[1])
}

func TestVM_MissingHookReturnsNil(t *testing.T) {
	prog, _ := compile(t, `-- no functions`, 0)
	vm, err := prog.NewVM()
	require.NoError(t, err)
	defer vm.Close()

	assert.False(t, vm.HasHook("on_hit"))
	assert.Nil(t, vm.Call("on_hit", 1))
}

func TestVM_RuntimeErrorLogsWarn(t *testing.T) {
	prog, logs := compile(t, `
		function bad_hook()
			error("intentional error")
		end
	`, 0)
	vm, err := prog.NewVM()
	require.NoError(t, err)
	defer vm.Close()

	assert.Nil(t, vm.Call("bad_hook", 1))
	found := false
	for _, e := range logs.All() {
		if e.Level == zap.WarnLevel {
			found = true
			break
		}
	}
	assert.True(t, found, "expected Warn log for Lua runtime error")
}

func TestVM_GlobalsPersistPerVM(t *testing.T) {
	prog, _ := compile(t, `
		count = 0
		function bump()
			count = count + 1
			return count
		end
	`, 0)
	a, err := prog.NewVM()
	require.NoError(t, err)
	defer a.Close()
	b, err := prog.NewVM()
	require.NoError(t, err)
	defer b.Close()

	a.Call("bump", 1)
	a.Call("bump", 1)
	assert.Equal(t, lua.LNumber(3), a.Call("bump", 1)[0])
	assert.Equal(t, lua.LNumber(1), b.Call("bump", 1)[0], "VMs must not share script state")
}

func TestVM_BudgetResetsPerCall(t *testing.T) {
	prog, _ := compile(t, `
		function work()
			local s = 0
			for i = 1, 20 do s = s + i end
			return s
		end
	`, 500)
	vm, err := prog.NewVM()
	require.NoError(t, err)
	defer vm.Close()

	// Many calls together far exceed the per-call limit.
	for i := 0; i < 50; i++ {
		ret := vm.Call("work", 1)
		require.NotNil(t, ret, "call %d exhausted the budget", i)
		assert.Equal(t, lua.LNumber(210), ret[0])
	}
}

func TestVM_InfiniteLoopStopped(t *testing.T) {
	prog, logs := compile(t, `function spin() while true do end end`, 100)
	vm, err := prog.NewVM()
	require.NoError(t, err)
	defer vm.Close()

	assert.Nil(t, vm.Call("spin", 1))
	assert.Equal(t, 1, logs.FilterLevelExact(zap.WarnLevel).Len())
}

func TestVM_Table(t *testing.T) {
	prog, _ := compile(t, `
		function read(t)
			if t.last == nil then return t.now end
			return t.now - t.last
		end
	`, 0)
	vm, err := prog.NewVM()
	require.NoError(t, err)
	defer vm.Close()

	assert.Equal(t, lua.LNumber(5), vm.Call("read", 1, vm.Table(map[string]float64{"now": 5}, "last"))[0])
	assert.Equal(t, lua.LNumber(2), vm.Call("read", 1, vm.Table(map[string]float64{"now": 5, "last": 3}))[0])
}

func TestProgram_LoadErrorFailsNewVM(t *testing.T) {
	prog, _ := compile(t, `error("boom at load")`, 0)
	_, err := prog.NewVM()
	assert.Error(t, err)
}

func TestProgram_SharedAcrossGoroutines(t *testing.T) {
	prog, _ := compile(t, `function twice(x) return x * 2 end`, 0)

	const goroutines = 8
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			vm, err := prog.NewVM()
			if !assert.NoError(t, err) {
				return
			}
			defer vm.Close()
			assert.Equal(t, lua.LNumber(2*i), vm.Call("twice", 1, lua.LNumber(i))[0])
		}(i)
	}
	wg.Wait()
}
