package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "rules.yaml", `
default_lang: de-DE
disabled: [mixed-script]
lists:
  min_run: 3
scripts:
  - name: needs-title
    severity: warning
    message: title missing
    source: doc.title !== ""
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DefaultLang != "de-DE" || cfg.Lists.MinRun != 3 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Lists.BulletTolerance != 3.0 {
		t.Fatal("defaults must survive partial files")
	}
	if cfg.Enabled("mixed-script") || !cfg.Enabled("list-items") {
		t.Fatal("disabled list ignored")
	}
	if len(cfg.Scripts) != 1 || cfg.Scripts[0].Name != "needs-title" {
		t.Fatalf("scripts %+v", cfg.Scripts)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "rules.toml", `
max_passes = 3

[decorative]
max_width = 12.5

[[scripts]]
name = "pages"
source = "doc.pageCount < 500"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxPasses != 3 || cfg.Decorative.MaxWidth != 12.5 || cfg.Decorative.MaxHeight != 30 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if len(cfg.Scripts) != 1 {
		t.Fatalf("scripts %+v", cfg.Scripts)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"default_lang":   func(c *Config) { c.DefaultLang = "not a tag!" },
		"min_run":        func(c *Config) { c.Lists.MinRun = 1 },
		"patterns":       func(c *Config) { c.Artifacts.Patterns = []string{"("} },
		"source":         func(c *Config) { c.Scripts = []ScriptRule{{Name: "x"}} },
		"duplicate name": func(c *Config) { c.Scripts = []ScriptRule{{Name: "x", Source: "1"}, {Name: "x", Source: "1"}} },
		"severity":       func(c *Config) { c.Scripts = []ScriptRule{{Name: "x", Source: "1", Severity: "loud"}} },
	}
	for want, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Errorf("%s: got %v", want, err)
		}
	}
}

func TestLoadUnknownExtension(t *testing.T) {
	if _, err := Load(writeFile(t, "rules.ini", "x=1")); err == nil {
		t.Fatal("expected error")
	}
}
