// Package filter runs user-provided Lua scripts over raw checker
// findings before they enter the annotation set. A script can suppress
// a finding or rewrite its message and replacement choices; offsets are
// never rewritable, so a script cannot break offset validity.
package filter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/redline/internal/checker"
)

// filterFn is the global function each script must define.
const filterFn = "filter"

// Chain applies an ordered list of Lua filter scripts to findings. A
// script that errors at call time is disabled for the rest of the
// session; the check itself is never failed by a script.
type Chain struct {
	mu      sync.Mutex
	scripts []*script
	errs    []error
}

// script is one loaded Lua filter with its own sandboxed state.
type script struct {
	name   string
	state  *lua.LState
	failed bool
}

// New creates an empty chain.
func New() *Chain {
	return &Chain{}
}

// LoadDir loads every *.lua file in dir, in name order. A missing
// directory yields an empty chain. Scripts that fail to load are
// recorded in Errs and skipped.
func LoadDir(dir string) (*Chain, error) {
	c := New()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("reading filter directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".lua") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			c.errs = append(c.errs, fmt.Errorf("reading filter %s: %w", name, err))
			continue
		}
		if err := c.Add(name, string(data)); err != nil {
			c.errs = append(c.errs, err)
		}
	}

	return c, nil
}

// Add compiles and registers one filter script. The source must define
// a global function named "filter".
func (c *Chain) Add(name, source string) error {
	L := newSandbox()

	if err := L.DoString(source); err != nil {
		L.Close()
		return fmt.Errorf("loading filter %s: %w", name, err)
	}

	if _, ok := L.GetGlobal(filterFn).(*lua.LFunction); !ok {
		L.Close()
		return fmt.Errorf("filter %s does not define a %q function", name, filterFn)
	}

	c.mu.Lock()
	c.scripts = append(c.scripts, &script{name: name, state: L})
	c.mu.Unlock()
	return nil
}

// Len returns the number of loaded scripts, including disabled ones.
func (c *Chain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.scripts)
}

// Errs returns errors collected while loading scripts.
func (c *Chain) Errs() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]error(nil), c.errs...)
}

// Close releases all Lua states.
func (c *Chain) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.scripts {
		s.state.Close()
	}
	c.scripts = nil
}

// Filter runs the finding through every script in order. It matches
// the engine's FindingFilter signature.
func (c *Chain) Filter(f checker.Finding) (checker.Finding, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range c.scripts {
		if s.failed {
			continue
		}

		out, keep, err := s.run(f)
		if err != nil {
			// A broken script must not break checking.
			s.failed = true
			c.errs = append(c.errs, fmt.Errorf("filter %s: %w", s.name, err))
			continue
		}
		if !keep {
			return f, false
		}
		f = out
	}

	return f, true
}

// run invokes the script's filter function for one finding.
func (s *script) run(f checker.Finding) (checker.Finding, bool, error) {
	L := s.state

	tbl := L.NewTable()
	tbl.RawSetString("message", lua.LString(f.Message))
	tbl.RawSetString("offset", lua.LNumber(f.Offset))
	tbl.RawSetString("length", lua.LNumber(f.Length))

	repls := L.NewTable()
	for _, r := range f.Replacements {
		repls.Append(lua.LString(r))
	}
	tbl.RawSetString("replacements", repls)

	err := L.CallByParam(lua.P{
		Fn:      L.GetGlobal(filterFn),
		NRet:    1,
		Protect: true,
	}, tbl)
	if err != nil {
		return f, false, err
	}

	ret := L.Get(-1)
	L.Pop(1)

	switch v := ret.(type) {
	case lua.LBool:
		return f, bool(v), nil
	case *lua.LTable:
		return applyRewrite(f, v), true, nil
	default:
		// Anything else keeps the finding unchanged.
		return f, true, nil
	}
}

// applyRewrite merges the rewritable fields from a returned table.
func applyRewrite(f checker.Finding, tbl *lua.LTable) checker.Finding {
	if msg, ok := tbl.RawGetString("message").(lua.LString); ok {
		f.Message = string(msg)
	}

	if repls, ok := tbl.RawGetString("replacements").(*lua.LTable); ok {
		var out []string
		repls.ForEach(func(_, v lua.LValue) {
			if s, ok := v.(lua.LString); ok {
				out = append(out, string(s))
			}
		})
		f.Replacements = out
	}

	return f
}

// newSandbox creates a Lua state with only the safe standard
// libraries opened. Filters have no access to I/O or the OS.
func newSandbox() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	return L
}
