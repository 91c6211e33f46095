package blockview

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupRequiresLoad(t *testing.T) {
	l := NewLookup(testAssets(), DefaultLayout())
	_, err := l.MaterialName(1)
	assert.ErrorIs(t, err, ErrLookupNotLoaded)
	_, err = l.BiomeName(0)
	assert.ErrorIs(t, err, ErrLookupNotLoaded)
	assert.False(t, l.Loaded())
}

func TestLookupNames(t *testing.T) {
	l := NewLookup(testAssets(), DefaultLayout())
	require.NoError(t, l.Load(context.Background()))

	name, err := l.MaterialName(1)
	require.NoError(t, err)
	assert.Equal(t, "minecraft:stone", name)

	biome, err := l.BiomeName(1)
	require.NoError(t, err)
	assert.Equal(t, "minecraft:swamp", biome)

	_, err = l.MaterialName(99)
	assert.Error(t, err)
}

func TestLookupBiomesOptional(t *testing.T) {
	assets := testAssets()
	delete(assets, "biomes.json")
	l := NewLookup(assets, DefaultLayout())
	require.NoError(t, l.Load(context.Background()))
	_, err := l.BiomeName(0)
	assert.Error(t, err)
}

func TestLookupMissingMaterials(t *testing.T) {
	l := NewLookup(mapFetcher{}, DefaultLayout())
	err := l.Load(context.Background())
	var assetErr *AssetLoadError
	require.ErrorAs(t, err, &assetErr)
	assert.Equal(t, "materials.json", assetErr.URI)
}

func TestIsVisibleMaterial(t *testing.T) {
	assert.False(t, IsVisibleMaterial("minecraft:air"))
	assert.False(t, IsVisibleMaterial("cave_air"))
	assert.False(t, IsVisibleMaterial("minecraft:void_air"))
	assert.False(t, IsVisibleMaterial(""))
	assert.True(t, IsVisibleMaterial("minecraft:stone"))
}
