package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/clinica-estetica/turnos/libs/db"
)

func TestPrintStatus(t *testing.T) {
	at := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	var buf bytes.Buffer
	PrintStatus(&buf, []db.MigrationStatus{
		{Version: 1, Name: "catalog", AppliedAt: &at},
		{Version: 2, Name: "turnos"},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %q", buf.String())
	}
	if !strings.Contains(lines[1], "applied") || !strings.Contains(lines[1], "2030-01-02 03:04:05") {
		t.Fatalf("unexpected applied row %q", lines[1])
	}
	if !strings.Contains(lines[2], "pending") {
		t.Fatalf("unexpected pending row %q", lines[2])
	}
}

func TestSourceReadsConfigFlag(t *testing.T) {
	file := filepath.Join(t.TempDir(), "svc.env")
	if err := os.WriteFile(file, []byte("CLI_TEST_GREETING=hola\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	root := NewRoot("svc", "test")
	var got string
	root.AddCommand(&cobra.Command{
		Use: "show",
		RunE: func(cmd *cobra.Command, _ []string) error {
			got = Source(cmd).String("CLI_TEST_GREETING", "")
			return nil
		},
	})
	root.SetArgs([]string{"show", "--config", file})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got != "hola" {
		t.Fatalf("expected value from file, got %q", got)
	}
}

func TestMigrateRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	root := NewRoot("svc", "test")
	root.AddCommand(MigrateCommand(os.DirFS(t.TempDir()), "."))
	root.SetArgs([]string{"migrate", "up", "--config", filepath.Join(t.TempDir(), "missing.env")})
	if err := root.Execute(); err == nil {
		t.Fatal("expected missing DATABASE_URL error")
	}
}
