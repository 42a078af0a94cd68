package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func writeMigration(t *testing.T, dir, name, sql string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644); err != nil {
		t.Fatalf("write migration: %v", err)
	}
}

func TestMigratorLoad(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "002_add_history.sql", "CREATE TABLE b (id INT);")
	writeMigration(t, dir, "001_init.sql", "CREATE TABLE a (id INT);")
	writeMigration(t, dir, "notes.txt", "not a migration")

	m := NewMigrator(nil, dir, zerolog.Nop())
	migrations, err := m.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[1].Version != 2 {
		t.Errorf("migrations not ordered by version: %+v", migrations)
	}
	if migrations[0].Name != "init" {
		t.Errorf("expected name init, got %s", migrations[0].Name)
	}
}

func TestMigratorLoadRejectsMalformedName(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "first.sql", "SELECT 1;")

	m := NewMigrator(nil, dir, zerolog.Nop())
	if _, err := m.Load(); err == nil {
		t.Fatal("expected error for malformed file name")
	}
}

func TestMigratorLoadRejectsDuplicateVersion(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "001_init.sql", "SELECT 1;")
	writeMigration(t, dir, "001_again.sql", "SELECT 1;")

	m := NewMigrator(nil, dir, zerolog.Nop())
	if _, err := m.Load(); err == nil {
		t.Fatal("expected error for duplicate version")
	}
}
