package blockview

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Assets    AssetsConfig    `yaml:"assets"`
	Layout    Layout          `yaml:"layout"`
	Limits    Limits          `yaml:"limits"`
	Selection SelectionConfig `yaml:"selection"`
	World     WorldConfig     `yaml:"world"`
	Log       LogConfig       `yaml:"log"`
	Window    WindowConfig    `yaml:"window"`
}

// AssetsConfig picks the asset source. Exactly one of Root, BaseURL or
// Archive is used, in that order of preference.
type AssetsConfig struct {
	Root       string `yaml:"root"`
	BaseURL    string `yaml:"base_url"`
	Archive    string `yaml:"archive"`
	Compressed bool   `yaml:"compressed"`
	Watch      bool   `yaml:"watch"`
	Validate   bool   `yaml:"validate"`
}

type Limits struct {
	MaxParentDepth    int `yaml:"max_parent_depth"`
	MaxMultipartParts int `yaml:"max_multipart_parts"`
	MaxTextureChase   int `yaml:"max_texture_chase"`
	Concurrency       int `yaml:"concurrency"`
}

type SelectionConfig struct {
	Policy string `yaml:"policy"`
	Seed   int64  `yaml:"seed"`
}

type WorldConfig struct {
	Name        string   `yaml:"name"`
	Chunks      [][2]int `yaml:"chunks"`
	Placeholder bool     `yaml:"placeholder"`
}

type LogConfig struct {
	Prefix string `yaml:"prefix"`
	Debug  bool   `yaml:"debug"`
}

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

func DefaultLimits() Limits {
	return Limits{
		MaxParentDepth:    32,
		MaxMultipartParts: 64,
		MaxTextureChase:   10,
		Concurrency:       8,
	}
}

// WithDefaults fills every unset (zero or negative) limit from DefaultLimits.
func (l Limits) WithDefaults() Limits {
	d := DefaultLimits()
	if l.MaxParentDepth <= 0 {
		l.MaxParentDepth = d.MaxParentDepth
	}
	if l.MaxMultipartParts <= 0 {
		l.MaxMultipartParts = d.MaxMultipartParts
	}
	if l.MaxTextureChase <= 0 {
		l.MaxTextureChase = d.MaxTextureChase
	}
	if l.Concurrency <= 0 {
		l.Concurrency = d.Concurrency
	}
	return l
}

func Defaults() Config {
	return Config{
		Assets:    AssetsConfig{Root: "data", Validate: true},
		Layout:    DefaultLayout(),
		Limits:    DefaultLimits(),
		Selection: SelectionConfig{Policy: "positional"},
		World:     WorldConfig{Chunks: [][2]int{{0, 0}}, Placeholder: true},
		Log:       LogConfig{Prefix: "blockview"},
		Window:    WindowConfig{Width: 1280, Height: 720, Title: "blockview"},
	}
}

// LoadConfig reads a YAML file over Defaults.
func LoadConfig(path string) (Config, error) {
	cfg := Defaults()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Assets.Root == "" && c.Assets.BaseURL == "" && c.Assets.Archive == "" {
		return fmt.Errorf("assets: one of root, base_url or archive is required")
	}
	if c.Limits.MaxParentDepth <= 0 {
		return fmt.Errorf("limits.max_parent_depth must be positive")
	}
	if c.Limits.MaxMultipartParts <= 0 {
		return fmt.Errorf("limits.max_multipart_parts must be positive")
	}
	if c.Limits.MaxTextureChase <= 0 {
		return fmt.Errorf("limits.max_texture_chase must be positive")
	}
	if c.Limits.Concurrency <= 0 {
		return fmt.Errorf("limits.concurrency must be positive")
	}
	switch c.Selection.Policy {
	case "first", "weighted", "positional":
	default:
		return fmt.Errorf("selection.policy %q: want first, weighted or positional", c.Selection.Policy)
	}
	return nil
}

// Selector builds the configured variant selection policy.
func (c Config) Selector() Selector {
	switch c.Selection.Policy {
	case "first":
		return FirstSelector{}
	case "weighted":
		return NewWeightedSelector(c.Selection.Seed)
	default:
		return PositionalSelector{Seed: uint64(c.Selection.Seed)}
	}
}

// ChunkList converts the configured [x, z] pairs.
func (c Config) ChunkList() []ChunkPos {
	out := make([]ChunkPos, 0, len(c.World.Chunks))
	for _, p := range c.World.Chunks {
		out = append(out, ChunkPos{X: p[0], Z: p[1]})
	}
	return out
}
