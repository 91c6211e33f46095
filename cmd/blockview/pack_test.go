package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gekko3d/blockview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "blockstates"), 0o755))
	doc := []byte(`{"variants":{"":{"model":"block/stone"}}}`)
	require.NoError(t, os.WriteFile(filepath.Join(src, "blockstates", "stone.json"), doc, 0o644))

	out := filepath.Join(dir, "assets.db")
	require.NoError(t, packCmd([]string{"-out", out, "-zstd", src}))

	f, closeFn, err := blockview.OpenFetcher(blockview.AssetsConfig{Archive: out, Compressed: true})
	require.NoError(t, err)
	defer closeFn()
	got, err := f.Fetch(context.Background(), "blockstates/stone.json")
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestPackUsage(t *testing.T) {
	assert.Error(t, packCmd(nil))
}

func TestParseOptionsOverrides(t *testing.T) {
	opts, err := parseOptions([]string{"-assets", "export", "-world", "nether", "-radius", "2", "-headless", "-debug"})
	require.NoError(t, err)
	assert.Equal(t, "export", opts.cfg.Assets.Root)
	assert.Equal(t, "nether", opts.cfg.World.Name)
	assert.Equal(t, 2, opts.radius)
	assert.True(t, opts.headless)
	assert.True(t, opts.cfg.Log.Debug)
}

func TestPickWorldFallsBackToConfig(t *testing.T) {
	cfg := blockview.Defaults()
	cfg.World.Name = "overworld"
	f := blockview.FetcherFunc(func(ctx context.Context, uri string) ([]byte, error) {
		return nil, os.ErrNotExist
	})
	name, chunks, _, err := pickWorld(context.Background(), f, cfg, -1, blockview.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, "overworld", name)
	assert.Equal(t, []blockview.ChunkPos{{X: 0, Z: 0}}, chunks)
}
