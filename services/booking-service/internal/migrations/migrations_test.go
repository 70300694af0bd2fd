package migrations

import (
	"strings"
	"testing"

	"github.com/clinica-estetica/turnos/libs/db"
)

func TestEmbeddedMigrationsLoad(t *testing.T) {
	migs, err := db.LoadMigrations(FS, Dir)
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	if len(migs) != 4 {
		t.Fatalf("expected 4 migrations, got %d", len(migs))
	}
	for i, m := range migs {
		if m.Version != i+1 {
			t.Fatalf("migration %s has version %d, want %d", m.Name, m.Version, i+1)
		}
	}
	if !strings.Contains(migs[2].SQL, "turnos_slot_unique") {
		t.Fatal("turnos migration must create the slot uniqueness index")
	}
}
