package blockview

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	require.NoError(t, Defaults().Validate())
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blockview.yaml")
	yml := `
assets:
  archive: assets.db
  compressed: true
limits:
  max_parent_depth: 4
selection:
  policy: weighted
  seed: 7
world:
  name: overworld
  chunks: [[0, 0], [-1, 2]]
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "assets.db", cfg.Assets.Archive)
	assert.True(t, cfg.Assets.Compressed)
	assert.Equal(t, 4, cfg.Limits.MaxParentDepth)
	assert.Equal(t, DefaultLimits().MaxMultipartParts, cfg.Limits.MaxMultipartParts)
	assert.Equal(t, "models/block", cfg.Layout.Models)
	assert.Equal(t, []ChunkPos{{0, 0}, {-1, 2}}, cfg.ChunkList())
	assert.IsType(t, &WeightedSelector{}, cfg.Selector())
}

func TestConfigValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"no source":   func(c *Config) { c.Assets = AssetsConfig{} },
		"depth":       func(c *Config) { c.Limits.MaxParentDepth = 0 },
		"parts":       func(c *Config) { c.Limits.MaxMultipartParts = -1 },
		"chase":       func(c *Config) { c.Limits.MaxTextureChase = 0 },
		"concurrency": func(c *Config) { c.Limits.Concurrency = 0 },
		"policy":      func(c *Config) { c.Selection.Policy = "random" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Defaults()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("limits: [1, 2"), 0o644))
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "bad.yaml")
}

func TestLayoutPaths(t *testing.T) {
	l := DefaultLayout()
	assert.Equal(t, "blockstates/grass_block.json", l.BlockStatePath("minecraft:grass_block"))
	assert.Equal(t, "models/block/stone.json", l.ModelPath("minecraft:block/stone"))
	assert.Equal(t, "models/block/cube_all.json", l.ModelPath("block/cube_all"))
	assert.Equal(t, "textures/block/dirt.png", l.TexturePath("block/dirt"))
	assert.Equal(t, "overworld/-1.3.json", l.ChunkPath("overworld", ChunkPos{X: -1, Z: 3}))
	assert.Equal(t, "stone", StripNamespace("minecraft:stone"))
	assert.Equal(t, "stone", StripNamespace("stone"))
}
