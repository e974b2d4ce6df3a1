package config

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate points every lookup at an empty temp dir so a developer's own
// config never leaks into a test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	t.Setenv(ConfigPathEnvVar, "")
	for _, k := range []string{
		"SNIP_SAVE_DIRECTORY", "SNIP_FILENAME_FORMAT", "SNIP_COPY_TO_CLIPBOARD",
		"SNIP_AUTO_SAVE", "SNIP_DEFAULT_COLOR", "SNIP_LINE_WIDTH", "SNIP_FONT_SIZE",
		"SNIP_ALWAYS_ON_TOP", "ENABLE_FILE_LOGGING", "SNIP_ENABLE_FILE_LOGGING",
		"SNIP_EXTERNAL_TIMEOUT_SEC",
	} {
		t.Setenv(k, "")
	}
	return dir
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	def := Default()
	if cfg.Screenshot != def.Screenshot || cfg.Annotation != def.Annotation || cfg.Pin != def.Pin {
		t.Fatalf("Expected defaults, got %+v", cfg)
	}
	if cfg.Path != "" {
		t.Errorf("Expected no source path, got %q", cfg.Path)
	}
}

func TestLoadJSONDocument(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, ".config", "snip", "config.json")
	writeFile(t, path, `{
  "screenshot": {"save_directory": "/shots", "auto_save": true},
  "annotation": {"default_color": "#00ff00", "default_line_width": 5},
  "pin": {"border_width": 4}
}`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Path != path {
		t.Errorf("Expected path %q, got %q", path, cfg.Path)
	}
	if cfg.Screenshot.SaveDirectory != "/shots" || !cfg.Screenshot.AutoSave {
		t.Errorf("Screenshot section not applied: %+v", cfg.Screenshot)
	}
	if !cfg.Screenshot.CopyToClipboard {
		t.Error("Unset keys should keep their defaults")
	}
	if cfg.Annotation.DefaultLineWidth != 5 || cfg.Pin.BorderWidth != 4 {
		t.Errorf("Unexpected values %+v %+v", cfg.Annotation, cfg.Pin)
	}
	if got := cfg.AnnotationStyle().Color; got != (color.RGBA{G: 0xff, A: 0xff}) {
		t.Errorf("Unexpected style color %v", got)
	}
}

func TestLoadYAMLDocumentFromEnvPath(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	writeFile(t, path, "pin:\n  always_on_top: false\n  border_color: '#0000ff'\n")
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Pin.AlwaysOnTop {
		t.Error("Expected always_on_top=false")
	}
	if got := cfg.RenderOptions().BorderColor; got != (color.RGBA{B: 0xff, A: 0xff}) {
		t.Errorf("Unexpected border color %v", got)
	}
}

func TestLoadMalformedFallsBackToDefaults(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "broken.json")
	writeFile(t, path, `{"screenshot": {"save_directory": "/x"`)

	cfg, err := LoadWithOptions(LoadOptions{ConfigPathOverride: path})
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("Expected *ConfigError, got %v", err)
	}
	if cerr.Path != path {
		t.Errorf("Expected error path %q, got %q", path, cerr.Path)
	}
	if cfg == nil {
		t.Fatal("Config must be usable alongside the warning")
	}
	if cfg.Screenshot.SaveDirectory != Default().Screenshot.SaveDirectory {
		t.Errorf("Expected default save directory, got %q", cfg.Screenshot.SaveDirectory)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("SNIP_SAVE_DIRECTORY", "/env/dir")
	t.Setenv("SNIP_COPY_TO_CLIPBOARD", "false")
	t.Setenv("ENABLE_FILE_LOGGING", "true")
	t.Setenv("SNIP_EXTERNAL_TIMEOUT_SEC", "3")
	t.Setenv("SNIP_LINE_WIDTH", "7.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Screenshot.SaveDirectory != "/env/dir" || cfg.Screenshot.CopyToClipboard {
		t.Errorf("Env overrides not applied: %+v", cfg.Screenshot)
	}
	if !cfg.EnableFileLogging {
		t.Error("Expected file logging enabled")
	}
	if cfg.ExternalTimeout() != 3*time.Second {
		t.Errorf("Expected 3s timeout, got %v", cfg.ExternalTimeout())
	}
	if cfg.Annotation.DefaultLineWidth != 7.5 {
		t.Errorf("Expected line width 7.5, got %v", cfg.Annotation.DefaultLineWidth)
	}
}

func TestOptionsOverrideEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("SNIP_SAVE_DIRECTORY", "/env/dir")
	off := false
	t.Setenv("ENABLE_FILE_LOGGING", "true")

	cfg, _ := LoadWithOptions(LoadOptions{SaveDirectoryOverride: "/flag/dir", EnableFileLogging: &off})
	if cfg.Screenshot.SaveDirectory != "/flag/dir" {
		t.Errorf("Expected flag override, got %q", cfg.Screenshot.SaveDirectory)
	}
	if cfg.EnableFileLogging {
		t.Error("Expected file logging disabled by option")
	}
}

func TestNormalizeRepairsInvalidValues(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "c.yaml")
	writeFile(t, path, "annotation:\n  default_color: nope\n  font_size: -1\npin:\n  min_scale: 9\n  max_scale: 2\n")

	cfg, err := LoadWithOptions(LoadOptions{ConfigPathOverride: path})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	def := Default()
	if cfg.Annotation.DefaultColor != def.Annotation.DefaultColor || cfg.Annotation.FontSize != def.Annotation.FontSize {
		t.Errorf("Invalid annotation values not repaired: %+v", cfg.Annotation)
	}
	tr := cfg.Transform()
	if tr.MinScale != def.Pin.MinScale || tr.MaxScale != def.Pin.MaxScale {
		t.Errorf("Invalid zoom bounds not repaired: %v..%v", tr.MinScale, tr.MaxScale)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := isolate(t)
	for _, name := range []string{"out.json", "out.yaml"} {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			cfg.Screenshot.FilenameFormat = "shot_%H.png"
			path := filepath.Join(dir, "nested", name)
			if err := Save(cfg, path); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			got, err := LoadWithOptions(LoadOptions{ConfigPathOverride: path})
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if got.Screenshot.FilenameFormat != "shot_%H.png" {
				t.Errorf("Unexpected filename format %q", got.Screenshot.FilenameFormat)
			}
		})
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"#FF0000", color.RGBA{R: 0xff, A: 0xff}, false},
		{"00ff00", color.RGBA{G: 0xff, A: 0xff}, false},
		{"#f00", color.RGBA{R: 0xff, A: 0xff}, false},
		{"#11223380", color.RGBA{R: 0x08, G: 0x11, B: 0x19, A: 0x80}, false},
		{"#FF000000", color.RGBA{}, false},
		{"#12345", color.RGBA{}, true},
		{"#zzzzzz", color.RGBA{}, true},
	}
	for _, tt := range tests {
		got, err := ParseHexColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseHexColor(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseHexColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
