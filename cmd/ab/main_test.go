package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindAbacusDir(t *testing.T) {
	oldDir := configDir
	defer func() { configDir = oldDir }()

	t.Run("explicit config dir wins", func(t *testing.T) {
		configDir = "/custom/.abacus"
		if got := findAbacusDir(); got != "/custom/.abacus" {
			t.Errorf("findAbacusDir() = %q, want /custom/.abacus", got)
		}
	})

	t.Run("walks up from cwd", func(t *testing.T) {
		configDir = ""
		root := t.TempDir()
		if err := os.MkdirAll(filepath.Join(root, ".abacus"), 0o750); err != nil {
			t.Fatal(err)
		}
		nested := filepath.Join(root, "a", "b")
		if err := os.MkdirAll(nested, 0o750); err != nil {
			t.Fatal(err)
		}
		t.Chdir(nested)

		got := findAbacusDir()
		resolved, err := filepath.EvalSymlinks(got)
		if err != nil {
			t.Fatalf("EvalSymlinks(%q): %v", got, err)
		}
		want, _ := filepath.EvalSymlinks(filepath.Join(root, ".abacus"))
		if resolved != want {
			t.Errorf("findAbacusDir() = %q, want %q", resolved, want)
		}
	})
}

func TestShortCommit(t *testing.T) {
	if got := shortCommit("0123456789abcdef"); got != "01234567" {
		t.Errorf("shortCommit = %q, want 01234567", got)
	}
	if got := shortCommit("abc"); got != "abc" {
		t.Errorf("shortCommit short input = %q, want abc", got)
	}
}
