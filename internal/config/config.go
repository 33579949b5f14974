package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvPath overrides the config file location.
const EnvPath = "ASB_CONFIG"

type Config struct {
	Roots         []string `toml:"roots"`
	Extension     string   `toml:"extension"`
	MaxDepth      int      `toml:"max_depth"`
	ScanTimeout   Duration `toml:"scan_timeout"`
	Workers       int      `toml:"workers"`
	ProgressEvery int      `toml:"progress_every"`
	MaxLineBytes  int      `toml:"max_line_bytes"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	LogFile   string `toml:"log_file"`

	Aux      Aux                 `toml:"aux"`
	Watch    Watch               `toml:"watch"`
	Search   Search              `toml:"search"`
	Keywords map[string][]string `toml:"keywords"`

	// Path is the file the config was read from, empty if defaults only.
	Path string `toml:"-"`
}

type Aux struct {
	Enabled       bool    `toml:"enabled"`
	ResurrectDir  string  `toml:"resurrect_dir"`
	MinConfidence float64 `toml:"min_confidence"`
}

// Watch controls live reload in the browser. Debounce is how long a file
// must stay quiet before it counts as changed; MinInterval spaces reloads.
type Watch struct {
	Enabled     bool     `toml:"enabled"`
	Debounce    Duration `toml:"debounce"`
	MinInterval Duration `toml:"min_interval"`
}

// Search holds ranking weights. The fuzzy divisors and caps are tuning
// knobs; only their ordering relative to the base weights matters.
type Search struct {
	Limit                 int `toml:"limit"`
	PrimaryBase           int `toml:"primary_base"`
	PrimaryExactBonus     int `toml:"primary_exact_bonus"`
	PrimaryFuzzyDivisor   int `toml:"primary_fuzzy_divisor"`
	PrimaryFuzzyCap       int `toml:"primary_fuzzy_cap"`
	NameBase              int `toml:"name_base"`
	NameFuzzyDivisor      int `toml:"name_fuzzy_divisor"`
	NameFuzzyCap          int `toml:"name_fuzzy_cap"`
	CommandBase           int `toml:"command_base"`
	DirectoryBase         int `toml:"directory_base"`
	DirectoryFuzzyDivisor int `toml:"directory_fuzzy_divisor"`
	DirectoryFuzzyCap     int `toml:"directory_fuzzy_cap"`
	SnippetContext        int `toml:"snippet_context"`
}

// Duration decodes TOML strings such as "30s" or "1m30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func DefaultSearch() Search {
	return Search{
		Limit:                 200,
		PrimaryBase:           1000,
		PrimaryExactBonus:     500,
		PrimaryFuzzyDivisor:   10,
		PrimaryFuzzyCap:       250,
		NameBase:              80,
		NameFuzzyDivisor:      10,
		NameFuzzyCap:          20,
		CommandBase:           60,
		DirectoryBase:         40,
		DirectoryFuzzyDivisor: 10,
		DirectoryFuzzyCap:     10,
		SnippetContext:        60,
	}
}

// Default returns the built-in configuration with ~ left unexpanded.
func Default() *Config {
	workers := runtime.NumCPU()
	if workers > 16 {
		workers = 16
	}
	return &Config{
		Roots:         []string{"~/.claude/projects", "~/.codex/sessions"},
		Extension:     ".jsonl",
		MaxDepth:      6,
		ScanTimeout:   Duration{30 * time.Second},
		Workers:       workers,
		ProgressEvery: 100,
		MaxLineBytes:  20 << 20,
		LogLevel:      "info",
		LogFormat:     "text",
		LogFile:       "~/.config/asb/asb.log",
		Aux: Aux{
			Enabled:      true,
			ResurrectDir: "~/.local/share/tmux/resurrect",
		},
		Watch: Watch{
			Enabled:     true,
			Debounce:    Duration{300 * time.Millisecond},
			MinInterval: Duration{2 * time.Second},
		},
		Search: DefaultSearch(),
	}
}

// DefaultPath is where Load looks when ASB_CONFIG is unset.
func DefaultPath(home string) string {
	return filepath.Join(home, ".config", "asb", "config.toml")
}

// Load reads the file named by ASB_CONFIG, or the default path.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv(EnvPath))
}

// LoadFrom reads path, which must exist. An empty path falls back to the
// default location, where a missing file means built-in defaults.
func LoadFrom(path string) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	explicit := path != ""
	if !explicit {
		path = DefaultPath(home)
	}
	path = expandHome(path, home)

	cfg, err := LoadFile(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		cfg = Default()
		err = nil
	}
	if err != nil {
		return nil, err
	}
	cfg.Expand(home)
	return cfg, nil
}

// LoadFile decodes path on top of Default. Paths are not expanded.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Expand replaces a leading ~/ in every path setting.
func (c *Config) Expand(home string) {
	for i, r := range c.Roots {
		c.Roots[i] = expandHome(r, home)
	}
	c.LogFile = expandHome(c.LogFile, home)
	c.Aux.ResurrectDir = expandHome(c.Aux.ResurrectDir, home)
}

func (c *Config) Validate() error {
	var problems []string
	if len(c.Roots) == 0 {
		problems = append(problems, "roots must not be empty")
	}
	if !strings.HasPrefix(c.Extension, ".") {
		problems = append(problems, fmt.Sprintf("extension %q must start with a dot", c.Extension))
	}
	if c.MaxDepth < 0 {
		problems = append(problems, "max_depth must be >= 0")
	}
	if c.ScanTimeout.Duration <= 0 {
		problems = append(problems, "scan_timeout must be positive")
	}
	if c.Workers < 1 {
		problems = append(problems, "workers must be >= 1")
	}
	if c.MaxLineBytes < 1024 {
		problems = append(problems, "max_line_bytes must be >= 1024")
	}
	if c.Aux.MinConfidence < 0 || c.Aux.MinConfidence >= 1 {
		problems = append(problems, "aux.min_confidence must be in [0,1)")
	}
	if c.Watch.Debounce.Duration <= 0 || c.Watch.MinInterval.Duration < 0 {
		problems = append(problems, "watch.debounce must be positive and watch.min_interval >= 0")
	}
	problems = append(problems, c.Search.validate()...)
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func (s Search) validate() []string {
	var problems []string
	if s.Limit < 1 {
		problems = append(problems, "search.limit must be >= 1")
	}
	if s.PrimaryFuzzyDivisor < 1 || s.NameFuzzyDivisor < 1 || s.DirectoryFuzzyDivisor < 1 {
		problems = append(problems, "search fuzzy divisors must be >= 1")
	}
	if s.PrimaryFuzzyCap >= s.PrimaryExactBonus {
		problems = append(problems, "search.primary_fuzzy_cap must be below search.primary_exact_bonus")
	}
	if s.PrimaryBase <= s.NameBase+s.NameFuzzyCap {
		problems = append(problems, "search.primary_base must exceed name_base + name_fuzzy_cap")
	}
	if s.SnippetContext < 0 {
		problems = append(problems, "search.snippet_context must be >= 0")
	}
	return problems
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
