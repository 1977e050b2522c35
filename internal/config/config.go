// Package config holds interpreter settings, as loaded from a zvm.toml
// file before command line flags and environment apply.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	"github.com/jcorbin/zvm/internal/diag"
)

// FileName is the configuration file looked for by Find.
const FileName = "zvm.toml"

// Config is the complete set of interpreter settings.
type Config struct {
	Undo        Undo        `toml:"undo"`
	Diagnostics Diagnostics `toml:"diagnostics"`
	Screen      Screen      `toml:"screen"`

	StackLimit int      `toml:"stack-limit"`
	Seed       int64    `toml:"seed"`
	Transcript string   `toml:"transcript"`
	Record     string   `toml:"record"`
	Scripts    []string `toml:"scripts"`
	NoColor    bool     `toml:"no-color"`

	// Path is the file the settings were loaded from, if any.
	Path string `toml:"-"`
}

// Undo bounds the undo history.
type Undo struct {
	Slots int  `toml:"slots"`
	Bytes int  `toml:"bytes"`
	Auto  bool `toml:"auto"`
}

// Diagnostics selects where reports go and how severe they must be.
type Diagnostics struct {
	Mode  string `toml:"mode"`
	Level string `toml:"level"`
}

// Screen is the size reported to stories.
type Screen struct {
	Rows int `toml:"rows"`
	Cols int `toml:"cols"`
}

// Diagnostic modes.
const (
	ModeInline = "inline"
	ModeStderr = "stderr"
	ModeOff    = "off"
)

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		Undo:        Undo{Slots: 32, Auto: true},
		Diagnostics: Diagnostics{Mode: ModeInline, Level: "warn"},
		Screen:      Screen{Rows: 25, Cols: 80},
		StackLimit:  1024,
	}
}

// Load reads the file at path over the defaults. Keys the file sets but
// Config does not know are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("cannot read %s: %w", path, err)
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		sort.Strings(keys)
		return cfg, fmt.Errorf("unknown settings in %s: %s", path, strings.Join(keys, ", "))
	}
	cfg.Path = path
	return cfg, cfg.Validate()
}

// Find returns the first configuration file present in dir or the user's
// configuration directory.
func Find(dir string) (string, bool) {
	candidates := []string{filepath.Join(dir, FileName)}
	if home, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, "zvm", FileName))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// Validate returns every problem with the settings.
func (cfg Config) Validate() error {
	var errs *multierror.Error
	switch cfg.Diagnostics.Mode {
	case ModeInline, ModeStderr, ModeOff:
	default:
		errs = multierror.Append(errs, fmt.Errorf("diagnostics mode %q is not inline, stderr or off", cfg.Diagnostics.Mode))
	}
	if _, err := diag.ParseLevel(cfg.Diagnostics.Level); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.Undo.Slots < 0 || cfg.Undo.Bytes < 0 {
		errs = multierror.Append(errs, errors.New("undo limits may not be negative"))
	}
	if cfg.StackLimit < 0 {
		errs = multierror.Append(errs, errors.New("stack limit may not be negative"))
	}
	if cfg.Screen.Rows < 1 || cfg.Screen.Rows > 255 || cfg.Screen.Cols < 1 || cfg.Screen.Cols > 255 {
		errs = multierror.Append(errs, fmt.Errorf("screen size %dx%d out of range", cfg.Screen.Rows, cfg.Screen.Cols))
	}
	return errs.ErrorOrNil()
}

// Level returns the minimum diagnostic level, or warnings if it is invalid.
func (cfg Config) Level() diag.Level {
	lvl, err := diag.ParseLevel(cfg.Diagnostics.Level)
	if err != nil {
		return diag.LevelWarn
	}
	return lvl
}
