package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "suivifi.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
app_id: ledger-prod
project_id: my-project
admin_emails:
  - chef@example.fr
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AppID != "ledger-prod" {
		t.Errorf("AppID = %q", cfg.AppID)
	}
	if cfg.ProjectID != "my-project" {
		t.Errorf("ProjectID = %q", cfg.ProjectID)
	}
	if len(cfg.AdminEmails) != 1 || cfg.AdminEmails[0] != "chef@example.fr" {
		t.Errorf("AdminEmails = %v", cfg.AdminEmails)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "project_id: from-file\n")
	t.Setenv("SUIVIFI_PROJECT_ID", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ProjectID != "from-env" {
		t.Errorf("ProjectID = %q, want env to win", cfg.ProjectID)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "project_id: p\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AppID != "fsadev-suivifi" {
		t.Errorf("default AppID = %q", cfg.AppID)
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("an explicitly named missing file must fail loudly")
	}
}

func TestPaths(t *testing.T) {
	paths := Config{AppID: "demo"}.Paths()
	want := "artifacts/demo/public/data/transactions"
	if paths.Transactions != want {
		t.Errorf("Transactions = %q, want %q", paths.Transactions, want)
	}
	if paths.Counters != "artifacts/demo/public/data/counters" {
		t.Errorf("Counters = %q", paths.Counters)
	}
}
