package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ibis-project/ibis-examples/models"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ArchivePath() != filepath.Join("data", "indiv18.zip") {
		t.Fatalf("unexpected archive path %s", cfg.ArchivePath())
	}
	if cfg.ExtractedPath() != filepath.Join("data", "itcont.txt") || cfg.OutputPath() != filepath.Join("data", "itcont.parquet") {
		t.Fatalf("unexpected stage paths %s, %s", cfg.ExtractedPath(), cfg.OutputPath())
	}
	if cfg.TutorialPath() != "geography.db" {
		t.Fatalf("unexpected tutorial path %s", cfg.TutorialPath())
	}
	if len(cfg.Campaign.Header) != 21 || len(cfg.Campaign.Columns) != 7 {
		t.Fatalf("unexpected layout: %d header columns, %d projected", len(cfg.Campaign.Header), len(cfg.Campaign.Columns))
	}
	if cfg.Campaign.Compression != "zstd" {
		t.Fatalf("expected zstd, got %s", cfg.Campaign.Compression)
	}
	if cfg.Database.Enabled() {
		t.Fatalf("ledger should be disabled by default")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
data_dir: /srv/fec
http:
  timeout: 90s
campaign:
  delimiter: "|"
  columns: [CMTE_ID, TRANSACTION_AMT]
database:
  host: db.internal
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "/srv/fec" || cfg.HTTP.Timeout != 90*time.Second {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if len(cfg.Campaign.Columns) != 2 || cfg.Campaign.Columns[1] != "TRANSACTION_AMT" {
		t.Fatalf("columns not overridden: %v", cfg.Campaign.Columns)
	}
	if len(cfg.Campaign.Header) != 21 {
		t.Fatalf("header default should survive a partial file")
	}
	if !cfg.Database.Enabled() || cfg.Database.Port != "3306" {
		t.Fatalf("unexpected database config %+v", cfg.Database)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("PREP_DATA_DIR", "/tmp/prep")
	t.Setenv("PREP_SERVER_PORT", "9090")
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "/tmp/prep" || cfg.Server.Port != "9090" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadConfigHeaderWithoutDefaultTypes(t *testing.T) {
	path := writeConfig(t, `
campaign:
  header: [A, B, C]
  columns: [A, C]
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Campaign.ColumnTypes) != 0 {
		t.Fatalf("default types for columns outside the header must be dropped, got %v", cfg.Campaign.ColumnTypes)
	}
}

func TestLoadConfigColumnTypesReplaceDefaults(t *testing.T) {
	path := writeConfig(t, `
campaign:
  column_types:
    TRANSACTION_DT: int64
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Campaign.ColumnTypes) != 1 || cfg.Campaign.ColumnTypes["TRANSACTION_DT"] != "int64" {
		t.Fatalf("expected file column types to replace the defaults, got %v", cfg.Campaign.ColumnTypes)
	}
	if _, ok := cfg.Campaign.ColumnTypes["TRANSACTION_AMT"]; ok {
		t.Fatalf("default TRANSACTION_AMT type should not survive, got %v", cfg.Campaign.ColumnTypes)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected missing config file to fail")
	}
}

func TestValidateUnknownProjectionColumn(t *testing.T) {
	path := writeConfig(t, "campaign:\n  columns: [CMTE_ID, DONOR_ID]\n")
	_, err := LoadConfig(path)
	if !errors.Is(err, models.ErrSchema) {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"duplicate header": func(c *Config) { c.Campaign.Header[1] = c.Campaign.Header[0] },
		"bad codec":        func(c *Config) { c.Campaign.Compression = "lz77" },
		"bad type":         func(c *Config) { c.Campaign.ColumnTypes["CITY"] = "geo" },
		"bad scheme":       func(c *Config) { c.Tutorial.SourceURL = "ftp://example.com/geography.db" },
		"bad delimiter":    func(c *Config) { c.Campaign.Delimiter = ";" },
		"empty data dir":   func(c *Config) { c.DataDir = "" },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
