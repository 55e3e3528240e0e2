package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"harvest-fleet-monitor/internal/models"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
db_path: /tmp/x.db
rules:
  gap_cap_minutes: 20
  gap_policy: discard
aliases:
  "Vel": "Velocidade"
equipment:
  transporter:
    columns: ["Equipamento", "Data/Hora"]
    excluded_groups: ["Perdida"]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("FLEET_OUTPUT_DIR", "/tmp/out")
	t.Setenv("FLEET_STORE_ENABLED", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "/tmp/x.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.OutputDir != "/tmp/out" {
		t.Errorf("OutputDir = %q, want env override", cfg.OutputDir)
	}
	if cfg.StoreEnabled {
		t.Error("StoreEnabled should be overridden to false")
	}
	if cfg.Rules.GapCapMinutes != 20 || cfg.Rules.GapPolicy != GapDiscard {
		t.Errorf("rules not loaded: %+v", cfg.Rules)
	}
	// untouched defaults survive
	if cfg.Rules.IdleToleranceMinutes != 1 {
		t.Errorf("IdleToleranceMinutes = %v", cfg.Rules.IdleToleranceMinutes)
	}
	if cfg.Aliases["Vel"] != "Velocidade" || cfg.Aliases["RTK"] == "" {
		t.Errorf("aliases not merged: %v", cfg.Aliases)
	}
	tr, err := cfg.For(models.Transporter)
	if err != nil {
		t.Fatal(err)
	}
	if len(tr.Columns) != 2 {
		t.Errorf("transporter columns = %v", tr.Columns)
	}
	if _, err := cfg.For(models.Harvester); err != nil {
		t.Errorf("harvester settings lost: %v", err)
	}
}

func TestLoadPartialEquipmentKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
equipment:
  harvester:
    excluded_groups: ["Perdida"]
  transporter:
    columns: ["Equipamento", "Data/Hora", "Velocidade"]
    excluded_operations: []
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Default()

	h, err := cfg.For(models.Harvester)
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Columns) != len(def.Equipment[models.Harvester].Columns) {
		t.Errorf("harvester columns = %v, want defaults", h.Columns)
	}
	if len(h.Required) != len(requiredColumns) {
		t.Errorf("harvester required = %v, want defaults", h.Required)
	}
	if len(h.ExcludedGroups) != 1 || h.ExcludedGroups[0] != "Perdida" {
		t.Errorf("harvester excluded groups = %v", h.ExcludedGroups)
	}
	if len(h.ExcludedOperations) == 0 {
		t.Error("harvester excluded operations lost")
	}

	tr, err := cfg.For(models.Transporter)
	if err != nil {
		t.Fatal(err)
	}
	if len(tr.Columns) != 3 {
		t.Errorf("transporter columns = %v", tr.Columns)
	}
	if len(tr.Required) != len(requiredColumns) {
		t.Errorf("transporter required = %v, want defaults", tr.Required)
	}
	if len(tr.ExcludedOperations) != 0 {
		t.Errorf("explicit empty exclusion list replaced: %v", tr.ExcludedOperations)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad policy", func(c *Config) { c.Rules.GapPolicy = "drop" }},
		{"zero cap", func(c *Config) { c.Rules.GapCapMinutes = 0 }},
		{"negative tolerance", func(c *Config) { c.Rules.IdleToleranceMinutes = -1 }},
		{"no columns", func(c *Config) { delete(c.Equipment, models.Harvester) }},
		{"influx without bucket", func(c *Config) { c.Influx.Enabled = true; c.Influx.Bucket = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestOperatorMapSimple(t *testing.T) {
	m, err := ParseOperatorMap([]byte(`{"9999 - NAO CADASTRADO": "1234 - JOAO"}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Resolve("9999 - NAO CADASTRADO", time.Now()); got != "1234 - JOAO" {
		t.Errorf("Resolve = %q", got)
	}
	if got := m.Resolve("1 - OUTRO", time.Now()); got != "1 - OUTRO" {
		t.Errorf("unmapped operator changed: %q", got)
	}
}

func TestOperatorMapWindowed(t *testing.T) {
	data := []byte(`[
		{"de": "9999 - X", "para": "1 - MANHA", "inicio": "2024-05-01 06:00:00", "fim": "2024-05-01 14:00:00"},
		{"de": "9999 - X", "para": "2 - MAIO", "inicio": "2024-05-01", "fim": "2024-05-31"},
		{"de": "9999 - X", "para": "3 - PADRAO"}
	]`)
	m, err := ParseOperatorMap(data)
	if err != nil {
		t.Fatal(err)
	}
	if m.Len() != 3 {
		t.Fatalf("Len = %d", m.Len())
	}

	tests := []struct {
		ts   string
		want string
	}{
		{"2024-05-01 08:00:00", "1 - MANHA"},
		{"2024-05-01 20:00:00", "2 - MAIO"},
		{"2024-05-31 23:59:00", "2 - MAIO"},
		{"2024-06-01 00:00:01", "3 - PADRAO"},
	}
	for _, tt := range tests {
		ts, _ := time.Parse("2006-01-02 15:04:05", tt.ts)
		if got := m.Resolve("9999 - X", ts); got != tt.want {
			t.Errorf("Resolve at %s = %q, want %q", tt.ts, got, tt.want)
		}
	}
}

func TestOperatorMapErrors(t *testing.T) {
	for _, bad := range []string{
		`[{"de": "", "para": "x"}]`,
		`[{"de": "a", "para": "b", "inicio": "ontem"}]`,
		`{"a": 1}`,
	} {
		if _, err := ParseOperatorMap([]byte(bad)); err == nil {
			t.Errorf("expected error for %s", bad)
		}
	}

	m, err := LoadOperatorMap("")
	if err != nil || m.Len() != 0 {
		t.Errorf("empty path: %v %v", m, err)
	}
}
