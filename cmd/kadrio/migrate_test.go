package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func setSqliteEnv(t *testing.T) string {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "kadrio-test.db")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", dsn)
	return dsn
}

func TestMigrateCmd(t *testing.T) {
	setSqliteEnv(t)

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"migrate"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("migrate command failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Migration complete.") {
		t.Errorf("expected completion message, got: %s", out)
	}
	if !strings.Contains(out, "models.Session") || !strings.Contains(out, "models.Turn") {
		t.Errorf("expected migrated models listed, got: %s", out)
	}
}

func TestMigrateCmdIsIdempotent(t *testing.T) {
	setSqliteEnv(t)

	for i := 0; i < 2; i++ {
		cmd := newRootCmd()
		buf := new(bytes.Buffer)
		cmd.SetOut(buf)
		cmd.SetArgs([]string{"migrate"})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("migrate run %d failed: %v", i+1, err)
		}
	}
}
