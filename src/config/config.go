package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ConfigPathEnvVar          = "SNIP_CONFIG"
	DefaultExternalTimeoutSec = 10
)

// ConfigError reports a configuration file that exists but could not be
// used. Load returns it together with a usable default Config.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

type LoadOptions struct {
	ConfigPathOverride    string
	SaveDirectoryOverride string
	EnableFileLogging     *bool
}

type ScreenshotConfig struct {
	SaveDirectory   string `yaml:"save_directory" json:"save_directory"`
	FilenameFormat  string `yaml:"filename_format" json:"filename_format"`
	CopyToClipboard bool   `yaml:"copy_to_clipboard" json:"copy_to_clipboard"`
	AutoSave        bool   `yaml:"auto_save" json:"auto_save"`
}

type ShortcutsConfig struct {
	CaptureRegion     string `yaml:"capture_region" json:"capture_region"`
	CaptureFullscreen string `yaml:"capture_fullscreen" json:"capture_fullscreen"`
	CaptureWindow     string `yaml:"capture_window" json:"capture_window"`
}

type AnnotationConfig struct {
	DefaultColor     string  `yaml:"default_color" json:"default_color"`
	DefaultLineWidth float64 `yaml:"default_line_width" json:"default_line_width"`
	FontSize         float64 `yaml:"font_size" json:"font_size"`
	FontFamily       string  `yaml:"font_family" json:"font_family"`
}

type PinConfig struct {
	BorderWidth float64 `yaml:"border_width" json:"border_width"`
	BorderColor string  `yaml:"border_color" json:"border_color"`
	AlwaysOnTop bool    `yaml:"always_on_top" json:"always_on_top"`
	MinScale    float64 `yaml:"min_scale" json:"min_scale"`
	MaxScale    float64 `yaml:"max_scale" json:"max_scale"`
}

type Config struct {
	Screenshot ScreenshotConfig `yaml:"screenshot" json:"screenshot"`
	Shortcuts  ShortcutsConfig  `yaml:"shortcuts" json:"shortcuts"`
	Annotation AnnotationConfig `yaml:"annotation" json:"annotation"`
	Pin        PinConfig        `yaml:"pin" json:"pin"`

	EnableFileLogging  bool `yaml:"enable_file_logging" json:"enable_file_logging"`
	ExternalTimeoutSec int  `yaml:"external_timeout_sec" json:"external_timeout_sec"`

	// Path is the file the values were read from, empty for defaults.
	Path string `yaml:"-" json:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Screenshot: ScreenshotConfig{
			SaveDirectory:   "~/Pictures/Snip",
			FilenameFormat:  "snip_%Y%m%d_%H%M%S.png",
			CopyToClipboard: true,
		},
		Shortcuts: ShortcutsConfig{
			CaptureRegion:     "Super+Shift+A",
			CaptureFullscreen: "Super+Shift+S",
			CaptureWindow:     "Super+Shift+W",
		},
		Annotation: AnnotationConfig{
			DefaultColor:     "#FF0000",
			DefaultLineWidth: 3,
			FontSize:         14,
			FontFamily:       "Sans",
		},
		Pin: PinConfig{
			BorderWidth: 2,
			BorderColor: "#00FF00",
			AlwaysOnTop: true,
			MinScale:    0.1,
			MaxScale:    5.0,
		},
		ExternalTimeoutSec: DefaultExternalTimeoutSec,
	}
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

// LoadWithOptions builds the configuration from, in increasing priority:
// built-in defaults, the config document, .env / SNIP_* environment
// variables, and opts. A malformed document yields defaults plus a
// *ConfigError; the returned Config is always usable.
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	if envPath := resolveEnvPath(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	cfg := Default()
	var warn error

	path := resolveConfigPath(opts)
	if path != "" {
		if err := readDocument(path, cfg); err != nil {
			cfg = Default()
			warn = &ConfigError{Path: path, Err: err}
		} else {
			cfg.Path = path
		}
	}

	applyEnv(cfg)

	if dir := strings.TrimSpace(opts.SaveDirectoryOverride); dir != "" {
		cfg.Screenshot.SaveDirectory = dir
	}
	if opts.EnableFileLogging != nil {
		cfg.EnableFileLogging = *opts.EnableFileLogging
	}
	normalize(cfg)

	return cfg, warn
}

// Save writes cfg as JSON or YAML depending on the extension of path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// DefaultPath is ~/.config/snip/config.json, or the XDG equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "snip", "config.json")
}

func readDocument(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil
	}
	// yaml.v3 accepts JSON documents as well.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse: %w", err)
	}
	return nil
}

func resolveConfigPath(opts LoadOptions) string {
	if p := strings.TrimSpace(opts.ConfigPathOverride); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv(ConfigPathEnvVar)); p != "" {
		return p
	}
	def := DefaultPath()
	if def == "" {
		return ""
	}
	for _, candidate := range []string{def, strings.TrimSuffix(def, ".json") + ".yaml"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func resolveEnvPath() string {
	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}
	if _, err := os.Stat(".env"); err == nil {
		return ".env"
	}
	return ""
}

func applyEnv(cfg *Config) {
	setString("SNIP_SAVE_DIRECTORY", &cfg.Screenshot.SaveDirectory)
	setString("SNIP_FILENAME_FORMAT", &cfg.Screenshot.FilenameFormat)
	setBool("SNIP_COPY_TO_CLIPBOARD", &cfg.Screenshot.CopyToClipboard)
	setBool("SNIP_AUTO_SAVE", &cfg.Screenshot.AutoSave)
	setString("SNIP_DEFAULT_COLOR", &cfg.Annotation.DefaultColor)
	setFloat("SNIP_LINE_WIDTH", &cfg.Annotation.DefaultLineWidth)
	setFloat("SNIP_FONT_SIZE", &cfg.Annotation.FontSize)
	setBool("SNIP_ALWAYS_ON_TOP", &cfg.Pin.AlwaysOnTop)
	setBool("ENABLE_FILE_LOGGING", &cfg.EnableFileLogging)
	setBool("SNIP_ENABLE_FILE_LOGGING", &cfg.EnableFileLogging)
	if v := os.Getenv("SNIP_EXTERNAL_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ExternalTimeoutSec = n
		}
	}
}

func normalize(cfg *Config) {
	def := Default()
	if cfg.ExternalTimeoutSec <= 0 {
		cfg.ExternalTimeoutSec = def.ExternalTimeoutSec
	}
	if cfg.Annotation.DefaultLineWidth <= 0 {
		cfg.Annotation.DefaultLineWidth = def.Annotation.DefaultLineWidth
	}
	if cfg.Annotation.FontSize <= 0 {
		cfg.Annotation.FontSize = def.Annotation.FontSize
	}
	if _, err := ParseHexColor(cfg.Annotation.DefaultColor); err != nil {
		cfg.Annotation.DefaultColor = def.Annotation.DefaultColor
	}
	if _, err := ParseHexColor(cfg.Pin.BorderColor); err != nil {
		cfg.Pin.BorderColor = def.Pin.BorderColor
	}
	if cfg.Pin.BorderWidth < 0 {
		cfg.Pin.BorderWidth = 0
	}
	if cfg.Pin.MinScale <= 0 || cfg.Pin.MaxScale <= 0 || cfg.Pin.MinScale > cfg.Pin.MaxScale {
		cfg.Pin.MinScale, cfg.Pin.MaxScale = def.Pin.MinScale, def.Pin.MaxScale
	}
	if strings.TrimSpace(cfg.Screenshot.FilenameFormat) == "" {
		cfg.Screenshot.FilenameFormat = def.Screenshot.FilenameFormat
	}
	if strings.TrimSpace(cfg.Screenshot.SaveDirectory) == "" {
		cfg.Screenshot.SaveDirectory = def.Screenshot.SaveDirectory
	}
}

var errBadColor = errors.New("expected #RGB, #RRGGBB or #RRGGBBAA")

// ParseHexColor parses #RGB, #RRGGBB and #RRGGBBAA. The alpha channel is
// straight in the text and premultiplied in the result.
func ParseHexColor(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.RGBA{}, fmt.Errorf("color %q: %w", s, errBadColor)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("color %q: %w", s, errBadColor)
	}
	c := color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
	return color.RGBAModel.Convert(c).(color.RGBA), nil
}

func setString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setBool(key string, dst *bool) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setFloat(key string, dst *float64) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
