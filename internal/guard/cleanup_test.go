package guard

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCleanupRemovesRegisteredPaths(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "concat.txt")
	sub := filepath.Join(dir, "work")
	if err := os.WriteFile(file, []byte("file 'a.mp3'\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(sub, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}

	g := NewCleanup(nil)
	g.AddPath(file)
	g.AddPath(sub)

	if err := g.CleanupNow(); err != nil {
		t.Fatalf("CleanupNow: %v", err)
	}
	for _, path := range []string{file, sub} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("path %q still exists", path)
		}
	}
	if g.PathCount() != 0 {
		t.Fatalf("PathCount = %d after cleanup, want 0", g.PathCount())
	}
}

func TestCleanupDeduplicatesPaths(t *testing.T) {
	g := NewCleanup(nil)
	g.AddPath("/tmp/bindery-test/a")
	g.AddPath("/tmp/bindery-test/a")
	g.AddPaths([]string{"/tmp/bindery-test/a", "/tmp/bindery-test/b"})
	if g.PathCount() != 2 {
		t.Fatalf("PathCount = %d, want 2", g.PathCount())
	}
}

func TestCleanupMissingPathIsClean(t *testing.T) {
	g := NewCleanup(nil)
	g.AddPath(filepath.Join(t.TempDir(), "never-created"))
	if err := g.CleanupNow(); err != nil {
		t.Fatalf("CleanupNow on missing path: %v", err)
	}
}

func TestCleanupRemovePathKeepsFile(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "merged.m4b")
	drop := filepath.Join(dir, "concat.txt")
	for _, p := range []string{keep, drop} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	g := NewCleanup(nil)
	g.AddPaths([]string{keep, drop})
	g.RemovePath(keep)
	g.Close()

	if _, err := os.Stat(keep); err != nil {
		t.Fatalf("kept file removed: %v", err)
	}
	if _, err := os.Stat(drop); !os.IsNotExist(err) {
		t.Fatal("registered file survived cleanup")
	}
}

func TestCleanupDisableSkipsRemoval(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "debug.log")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	g := NewCleanup(nil)
	g.AddPath(file)
	g.Disable()
	g.Close()
	if _, err := os.Stat(file); err != nil {
		t.Fatal("disabled guard removed file")
	}

	g.Enable()
	g.Close()
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Fatal("re-enabled guard did not remove file")
	}
}

func TestCleanupContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()
	locked := filepath.Join(dir, "locked")
	inner := filepath.Join(locked, "inner")
	if err := os.MkdirAll(inner, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(inner, "f"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Make the directory unwritable so removal of its contents fails.
	if err := os.Chmod(locked, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0o755) })
	if os.Getuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	survivor := filepath.Join(dir, "survivor.txt")
	if err := os.WriteFile(survivor, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	g := NewCleanup(nil)
	g.AddPath(inner)
	g.AddPath(survivor)

	err := g.CleanupNow()
	if err == nil {
		t.Fatal("expected error removing locked directory")
	}
	if _, statErr := os.Stat(survivor); !os.IsNotExist(statErr) {
		t.Fatal("cleanup stopped at first failure")
	}
	// The set drains even for failed removals.
	if g.PathCount() != 0 {
		t.Fatalf("PathCount = %d after cleanup, want 0", g.PathCount())
	}
	if err := g.CleanupNow(); err != nil {
		t.Fatalf("CleanupNow on drained guard: %v", err)
	}
}
