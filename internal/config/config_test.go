package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitializeAt(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "home", ".todoload")

	if err := InitializeAt(dir); err != nil {
		t.Fatalf("InitializeAt: %v", err)
	}

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("config dir not created: %v", err)
	}
	if DatabasePath != filepath.Join(dir, "todoload.db") {
		t.Errorf("DatabasePath = %s", DatabasePath)
	}
}

func TestResolveDatabasePath(t *testing.T) {
	dir := t.TempDir()
	if err := InitializeAt(dir); err != nil {
		t.Fatal(err)
	}

	got, err := ResolveDatabasePath("")
	if err != nil || got != DatabasePath {
		t.Errorf("ResolveDatabasePath(\"\") = %s, %v", got, err)
	}

	override := filepath.Join(dir, "nested", "runs.db")
	got, err = ResolveDatabasePath(override)
	if err != nil || got != override {
		t.Errorf("ResolveDatabasePath(override) = %s, %v", got, err)
	}
	if _, err := os.Stat(filepath.Dir(override)); err != nil {
		t.Errorf("override parent not created: %v", err)
	}

	if got, _ := ResolveDatabasePath(":memory:"); got != ":memory:" {
		t.Errorf("ResolveDatabasePath(:memory:) = %s", got)
	}
}
