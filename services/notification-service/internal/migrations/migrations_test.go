package migrations

import (
	"testing"

	"github.com/clinica-estetica/turnos/libs/db"
)

func TestEmbeddedMigrationsLoad(t *testing.T) {
	migs, err := db.LoadMigrations(FS, Dir)
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	if len(migs) != 3 || migs[0].Name != "001_inbox.sql" || migs[2].Name != "003_reminder_jobs.sql" {
		t.Fatalf("unexpected migrations %+v", migs)
	}
}
