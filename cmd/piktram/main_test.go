package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func useTempDB(t *testing.T) {
	t.Helper()
	t.Setenv("PIKTRAM_DB_DRIVER", "sqlite3")
	t.Setenv("PIKTRAM_DB_DSN", filepath.Join(t.TempDir(), "piktram.db"))
	t.Setenv("PIKTRAM_LOG_LEVEL", "ERROR")
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	want := []string{"version", "serve", "migrate", "reconcile", "seed"}
	for _, name := range want {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := runCmd(t, "version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "piktram dev") {
		t.Errorf("output = %q", out)
	}
}

func TestMigrateCmd(t *testing.T) {
	useTempDB(t)
	out, err := runCmd(t, "migrate")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "schema up to date (sqlite3)") {
		t.Errorf("output = %q", out)
	}
}

func TestMigrateCmd_BadConfig(t *testing.T) {
	t.Setenv("PIKTRAM_DB_DRIVER", "mysql")
	if _, err := runCmd(t, "migrate"); err == nil {
		t.Fatal("expected config error")
	}
}

func TestSeedAndReconcileCmd(t *testing.T) {
	useTempDB(t)
	fixture := filepath.Join(t.TempDir(), "seed.yaml")
	body := `
projects:
  - owner: 3f1c2a9e-0000-4000-8000-000000000001
    name: Rebrand
    tasks:
      - title: Logo
        status: completed
      - title: Palette
        status: todo
`
	if err := os.WriteFile(fixture, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCmd(t, "seed", fixture)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !strings.Contains(out, "1 projects (0 skipped), 2 tasks") {
		t.Errorf("seed output = %q", out)
	}

	out, err = runCmd(t, "reconcile")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !strings.Contains(out, "1 projects checked, 0 updated") {
		t.Errorf("reconcile output = %q", out)
	}
}

func TestSeedCmd_RequiresPath(t *testing.T) {
	if _, err := runCmd(t, "seed"); err == nil {
		t.Fatal("expected args error")
	}
}
