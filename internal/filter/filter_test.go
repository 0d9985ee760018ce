package filter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dshills/redline/internal/checker"
)

func newTestChain(t *testing.T, sources ...string) *Chain {
	t.Helper()
	c := New()
	t.Cleanup(c.Close)
	for i, src := range sources {
		if err := c.Add("test.lua", src); err != nil {
			t.Fatalf("add script %d: %v", i, err)
		}
	}
	return c
}

func TestEmptyChainPassesThrough(t *testing.T) {
	c := newTestChain(t)

	in := checker.Finding{Message: "typo", Offset: 3, Length: 4, Replacements: []string{"fix"}}
	out, keep := c.Filter(in)
	if !keep {
		t.Fatal("empty chain suppressed a finding")
	}
	if out.Message != in.Message || out.Offset != in.Offset {
		t.Errorf("empty chain modified finding: %+v", out)
	}
}

func TestSuppressFinding(t *testing.T) {
	c := newTestChain(t, `
		function filter(f)
			return f.length >= 5
		end
	`)

	if _, keep := c.Filter(checker.Finding{Length: 3}); keep {
		t.Error("short finding should be suppressed")
	}
	if _, keep := c.Filter(checker.Finding{Length: 7}); !keep {
		t.Error("long finding should be kept")
	}
}

func TestRewriteMessageAndReplacements(t *testing.T) {
	c := newTestChain(t, `
		function filter(f)
			return {
				message = "rewritten: " .. f.message,
				replacements = { f.replacements[1] },
			}
		end
	`)

	in := checker.Finding{
		Message:      "typo",
		Offset:       2,
		Length:       3,
		Replacements: []string{"first", "second"},
	}
	out, keep := c.Filter(in)
	if !keep {
		t.Fatal("rewrite suppressed the finding")
	}
	if out.Message != "rewritten: typo" {
		t.Errorf("unexpected message %q", out.Message)
	}
	if len(out.Replacements) != 1 || out.Replacements[0] != "first" {
		t.Errorf("unexpected replacements %v", out.Replacements)
	}
}

func TestOffsetsAreNotRewritable(t *testing.T) {
	c := newTestChain(t, `
		function filter(f)
			return { offset = 99, length = 99 }
		end
	`)

	out, keep := c.Filter(checker.Finding{Offset: 2, Length: 3})
	if !keep {
		t.Fatal("rewrite suppressed the finding")
	}
	if out.Offset != 2 || out.Length != 3 {
		t.Errorf("script rewrote offsets: %+v", out)
	}
}

func TestScriptsRunInOrder(t *testing.T) {
	c := newTestChain(t,
		`function filter(f) return { message = f.message .. "-a" } end`,
		`function filter(f) return { message = f.message .. "-b" } end`,
	)

	out, _ := c.Filter(checker.Finding{Message: "m"})
	if out.Message != "m-a-b" {
		t.Errorf("expected %q, got %q", "m-a-b", out.Message)
	}
}

func TestFailingScriptIsDisabled(t *testing.T) {
	c := newTestChain(t,
		`function filter(f) error("boom") end`,
		`function filter(f) return { message = "survived" } end`,
	)

	out, keep := c.Filter(checker.Finding{Message: "m"})
	if !keep {
		t.Fatal("a broken script must not suppress findings")
	}
	if out.Message != "survived" {
		t.Errorf("later script did not run: %+v", out)
	}
	if len(c.Errs()) != 1 {
		t.Errorf("expected one recorded error, got %v", c.Errs())
	}

	// The broken script stays disabled and records no further errors.
	c.Filter(checker.Finding{Message: "m"})
	if len(c.Errs()) != 1 {
		t.Errorf("disabled script ran again: %v", c.Errs())
	}
}

func TestAddRejectsScriptWithoutFilterFunction(t *testing.T) {
	c := New()
	t.Cleanup(c.Close)

	if err := c.Add("bad.lua", `x = 1`); err == nil {
		t.Error("expected error for script without a filter function")
	}
	if err := c.Add("broken.lua", `this is not lua`); err == nil {
		t.Error("expected error for unparseable script")
	}
	if c.Len() != 0 {
		t.Errorf("broken scripts were registered: %d", c.Len())
	}
}

func TestSandboxBlocksOS(t *testing.T) {
	c := newTestChain(t, `
		function filter(f)
			if os ~= nil or io ~= nil then
				return { message = "escaped" }
			end
			return true
		end
	`)

	out, keep := c.Filter(checker.Finding{Message: "m"})
	if !keep {
		t.Fatal("finding suppressed")
	}
	if out.Message == "escaped" {
		t.Error("sandbox exposed os or io libraries")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, src string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("10-first.lua", `function filter(f) return { message = f.message .. "-1" } end`)
	write("20-second.lua", `function filter(f) return { message = f.message .. "-2" } end`)
	write("30-broken.lua", `nonsense(`)
	write("notes.txt", `not a script`)

	c, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	t.Cleanup(c.Close)

	if c.Len() != 2 {
		t.Fatalf("expected 2 scripts, got %d", c.Len())
	}
	if len(c.Errs()) != 1 {
		t.Errorf("expected one load error, got %v", c.Errs())
	}

	out, _ := c.Filter(checker.Finding{Message: "m"})
	if out.Message != "m-1-2" {
		t.Errorf("scripts not applied in name order: %q", out.Message)
	}
}

func TestLoadDirMissingDirectory(t *testing.T) {
	c, err := LoadDir(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("missing directory should load an empty chain, got %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty chain, got %d scripts", c.Len())
	}
}
