package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"src.sniprun.dev/pkg/env"
)

type cleanuper struct{ fns []func() }

func (c *cleanuper) Cleanup(fn func()) { c.fns = append(c.fns, fn) }

func (c *cleanuper) runCleanups() {
	for i := len(c.fns) - 1; i >= 0; i-- {
		c.fns[i]()
	}
}

func TestTempDir_CleanupRemovesDirRecursively(t *testing.T) {
	c := &cleanuper{}
	dir := TempDir(c)

	err := os.WriteFile(filepath.Join(dir, "a"), []byte("test"), 0600)
	if err != nil {
		panic(err)
	}

	c.runCleanups()
	if _, err := os.Stat(dir); err == nil {
		t.Errorf("Dir %q still exists after cleanup", dir)
	}
}

func TestInTempDir(t *testing.T) {
	original, _ := os.Getwd()
	c := &cleanuper{}
	dir := InTempDir(c)

	if wd, _ := os.Getwd(); wd != dir {
		t.Errorf("pwd is now %q, want %q", wd, dir)
	}
	c.runCleanups()
	if wd, _ := os.Getwd(); wd != original {
		t.Errorf("pwd restored to %q, want %q", wd, original)
	}
}

func TestSetenv(t *testing.T) {
	c := &cleanuper{}
	Setenv(c, "SNIPRUN_TESTUTIL_VAR", "value")
	if got := os.Getenv("SNIPRUN_TESTUTIL_VAR"); got != "value" {
		t.Errorf("env is %q, want %q", got, "value")
	}
	c.runCleanups()
	if _, ok := os.LookupEnv("SNIPRUN_TESTUTIL_VAR"); ok {
		t.Errorf("env var still set after cleanup")
	}
}

func TestScaled(t *testing.T) {
	Setenv(t, env.SNIPRUN_TEST_TIME_SCALE, "2")
	if got := Scaled(time.Second); got != 2*time.Second {
		t.Errorf("Scaled(1s) -> %v, want 2s", got)
	}
	Setenv(t, env.SNIPRUN_TEST_TIME_SCALE, "bad")
	if got := Scaled(time.Second); got != time.Second {
		t.Errorf("Scaled(1s) with bad scale -> %v, want 1s", got)
	}
}

func TestSet(t *testing.T) {
	x := 1
	c := &cleanuper{}
	Set(c, &x, 2)
	if x != 2 {
		t.Errorf("x = %d, want 2", x)
	}
	c.runCleanups()
	if x != 1 {
		t.Errorf("x = %d after cleanup, want 1", x)
	}
}
