package db

import (
	"testing"
	"testing/fstest"
)

func TestLoadMigrationsSortsAndSkips(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/002_turnos.sql":   {Data: []byte("CREATE TABLE turnos ();")},
		"migrations/001_horarios.sql": {Data: []byte("CREATE TABLE horarios_turnos ();")},
		"migrations/README.md":        {Data: []byte("docs")},
		"migrations/seed.sql":         {Data: []byte("-- no version")},
		"migrations/abc_bad.sql":      {Data: []byte("-- bad prefix")},
	}

	got, err := LoadMigrations(fsys, "migrations")
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(got))
	}
	if got[0].Version != 1 || got[0].Name != "001_horarios.sql" || got[1].Version != 2 {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[1].SQL != "CREATE TABLE turnos ();" {
		t.Fatalf("unexpected sql %q", got[1].SQL)
	}
}

func TestLoadMigrationsRejectsDuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"m/001_a.sql": {Data: []byte("SELECT 1;")},
		"m/1_b.sql":   {Data: []byte("SELECT 2;")},
	}
	if _, err := LoadMigrations(fsys, "m"); err == nil {
		t.Fatal("expected duplicate version error")
	}
}
