package blockview

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScene(t *testing.T, f Fetcher) (*Scene, *AssetServer) {
	t.Helper()
	server := NewAssetServer()
	s, err := NewScene(SceneConfig{Backend: server, Fetcher: f, Validate: true})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, server
}

func TestResolveVariantSnowy(t *testing.T) {
	s, server := newTestScene(t, testAssets())
	rs, err := s.Resolve(context.Background(), "minecraft:grass_block", "snowy=true")
	require.NoError(t, err)

	require.Len(t, rs.Groups, 1)
	require.Len(t, rs.Groups[0], 1)
	entry := rs.Groups[0][0]
	assert.Equal(t, "block/grass_block_snow", entry.Ref.Model)
	assert.Equal(t, 1.0, entry.Weight)
	assert.Equal(t, 36, len(entry.Mesh.Indices))
	assert.False(t, entry.Mesh.MultiMaterial())

	mesh, ok := server.Mesh(entry.Asset)
	require.True(t, ok)
	assert.Same(t, entry.Mesh, mesh.Mesh)
	assert.Equal(t, StateCached, s.State("minecraft:grass_block", "snowy=true"))
}

func TestResolveWeightsNormalized(t *testing.T) {
	s, _ := newTestScene(t, testAssets())
	rs, err := s.Resolve(context.Background(), "minecraft:grass_block", "snowy=false")
	require.NoError(t, err)
	require.Len(t, rs.Groups[0], 2)
	sum := 0.0
	for _, e := range rs.Groups[0] {
		sum += e.Weight
		assert.Equal(t, 0.5, e.Weight)
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	grass := rs.Groups[0][0].Mesh
	require.True(t, grass.MultiMaterial())
	var tinted int
	for _, m := range grass.Materials {
		if m.Key.Tinted {
			tinted++
			assert.Equal(t, RGB(0x91bd59), m.Key.Tint)
		}
	}
	assert.Equal(t, 1, tinted)
}

func TestResolveMultipartGroups(t *testing.T) {
	s, _ := newTestScene(t, testAssets())
	rs, err := s.Resolve(context.Background(), "minecraft:fence", "east=false,north=true,south=false,west=false")
	require.NoError(t, err)
	require.Len(t, rs.Groups, 2)
	assert.Equal(t, "block/fence_post", rs.Groups[0][0].Ref.Model)
	assert.Equal(t, "block/fence_side", rs.Groups[1][0].Ref.Model)
	assert.Equal(t, 1.0, rs.Groups[1][0].Weight)
}

func TestResolveConcurrentSingleFetch(t *testing.T) {
	counting := NewCountingFetcher(slowFetcher{next: testAssets(), delay: 5 * time.Millisecond})
	s, server := newTestScene(t, counting)

	var wg sync.WaitGroup
	results := make([]*ResolvedBlockState, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rs, err := s.Resolve(context.Background(), "minecraft:stone", "")
			assert.NoError(t, err)
			results[i] = rs
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, counting.Count("blockstates/stone.json"))
	assert.Equal(t, 1, counting.Count("models/block/stone.json"))
	assert.Equal(t, 1, counting.Count("textures/block/stone.png"))
	assert.Equal(t, 1, server.Calls("CreateMesh"))
	assert.Equal(t, 1, server.Calls("LoadTexture"))
	for _, rs := range results {
		assert.Same(t, results[0], rs)
	}
}

func TestResolveSharedModelSurvivesFailingBlock(t *testing.T) {
	assets := testAssets()
	assets["blockstates/bad.json"] = []byte(`{"variants":{"":[{"model":"block/missing"},{"model":"block/stone"}]}}`)
	s, _ := newTestScene(t, delayFetcher{next: assets, delays: map[string]time.Duration{
		"models/block/missing.json": 100 * time.Millisecond,
		"models/block/stone.json":   400 * time.Millisecond,
	}})
	ctx := context.Background()

	badErr := make(chan error, 1)
	go func() {
		_, err := s.Resolve(ctx, "minecraft:bad", "")
		badErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	rs, err := s.Resolve(ctx, "minecraft:stone", "")
	require.NoError(t, err)
	assert.NotNil(t, rs)
	assert.Equal(t, "asset_load", ErrorKind(<-badErr))
}

func TestResolveCallerDeadlineDoesNotFailOthers(t *testing.T) {
	counting := NewCountingFetcher(delayFetcher{next: testAssets(), delays: map[string]time.Duration{
		"blockstates/stone.json": 100 * time.Millisecond,
	}})
	s, _ := newTestScene(t, counting)

	short, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	shortErr := make(chan error, 1)
	go func() {
		_, err := s.Resolve(short, "minecraft:stone", "")
		shortErr <- err
	}()
	time.Sleep(5 * time.Millisecond)

	rs, err := s.Resolve(context.Background(), "minecraft:stone", "")
	require.NoError(t, err)
	assert.NotNil(t, rs)
	assert.ErrorIs(t, <-shortErr, context.DeadlineExceeded)
	assert.Equal(t, 1, counting.Count("blockstates/stone.json"))
}

func TestResolveCachedIsIdempotent(t *testing.T) {
	counting := NewCountingFetcher(testAssets())
	s, _ := newTestScene(t, counting)
	ctx := context.Background()

	first, err := s.Resolve(ctx, "minecraft:stone", "")
	require.NoError(t, err)
	before := counting.Total()

	second, err := s.Resolve(ctx, "minecraft:stone", "")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, before, counting.Total())
}

func TestResolveFailureNotCached(t *testing.T) {
	flaky := &flakyFetcher{next: testAssets(), n: 1}
	counting := NewCountingFetcher(flaky)
	s, _ := newTestScene(t, counting)
	ctx := context.Background()

	_, err := s.Resolve(ctx, "minecraft:stone", "")
	var assetErr *AssetLoadError
	require.ErrorAs(t, err, &assetErr)
	assert.Equal(t, StateFailed, s.State("minecraft:stone", ""))

	rs, err := s.Resolve(ctx, "minecraft:stone", "")
	require.NoError(t, err)
	assert.NotNil(t, rs)
	assert.Equal(t, 2, counting.Count("blockstates/stone.json"))
}

func TestResolveErrors(t *testing.T) {
	s, _ := newTestScene(t, testAssets())
	ctx := context.Background()

	_, err := s.Resolve(ctx, "minecraft:broken", "")
	assert.Equal(t, "asset_load", ErrorKind(err))

	_, err = s.Resolve(ctx, "minecraft:both", "")
	assert.Equal(t, "invalid_block_state", ErrorKind(err))

	_, err = s.Resolve(ctx, "minecraft:grass_block", "snowy=maybe")
	assert.Equal(t, "no_matching_variant", ErrorKind(err))

	_, err = s.Resolve(ctx, "minecraft:unknown", "")
	assert.Equal(t, "asset_load", ErrorKind(err))
}

func TestResolveBlockInvisible(t *testing.T) {
	s, server := newTestScene(t, testAssets())
	inst, err := s.ResolveBlock(context.Background(), BlockRecord{Material: "minecraft:cave_air"})
	require.NoError(t, err)
	assert.Nil(t, inst)
	assert.Zero(t, server.Calls("CloneMesh"))
}

func TestResolveBlockFreshInstances(t *testing.T) {
	s, server := newTestScene(t, testAssets())
	ctx := context.Background()
	rec := BlockRecord{Pos: BlockPos{1, 2, 3}, Material: "minecraft:stone"}

	a, err := s.ResolveBlock(ctx, rec)
	require.NoError(t, err)
	b, err := s.ResolveBlock(ctx, rec)
	require.NoError(t, err)

	require.Len(t, a.Parts, 1)
	assert.NotEqual(t, a.Parts[0].Asset, b.Parts[0].Asset)
	assert.Same(t, a.Parts[0].Mesh, b.Parts[0].Mesh)
	assert.Equal(t, 1, server.Calls("CreateMesh"))
	assert.Equal(t, 2, server.Calls("CloneMesh"))

	inst, ok := server.Instance(a.Parts[0].Asset)
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, inst.Origin)
}

func TestResolveBlockLightAndBiome(t *testing.T) {
	s, server := newTestScene(t, testAssets())
	ctx := context.Background()
	inst, err := s.ResolveBlock(ctx, BlockRecord{
		Material: "minecraft:water",
		Biome:    "minecraft:swamp",
		SkyLight: intp(4),
	})
	require.NoError(t, err)
	require.Len(t, inst.Parts, 1)
	key := inst.Parts[0].Materials[0]
	assert.Equal(t, LightLevel(4), key.Light)
	assert.Equal(t, RGB(0x617b64), key.Tint)

	placed, ok := server.Instance(inst.Parts[0].Asset)
	require.True(t, ok)
	mat, ok := server.Material(placed.Materials[0])
	require.True(t, ok)
	assert.Equal(t, LightLevel(4).Shade(), mat.Desc.Shade)

	// Same key in another biome reuses the cached geometry.
	_, err = s.ResolveBlock(ctx, BlockRecord{Material: "minecraft:water", Biome: "minecraft:plains"})
	require.NoError(t, err)
	assert.Equal(t, 1, server.Calls("CreateMesh"))
}

func TestPositionalSelectionStable(t *testing.T) {
	server := NewAssetServer()
	s, err := NewScene(SceneConfig{Backend: server, Fetcher: testAssets(), Selector: PositionalSelector{Seed: 9}})
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	pick := func(pos BlockPos) *BatchedMesh {
		inst, err := s.ResolveBlock(ctx, BlockRecord{Pos: pos, Material: "minecraft:grass_block", Props: "snowy=false"})
		require.NoError(t, err)
		return inst.Parts[0].Mesh
	}
	seen := make(map[*BatchedMesh]bool)
	for x := 0; x < 64; x++ {
		p := BlockPos{X: x, Y: 70, Z: -x}
		m := pick(p)
		assert.Same(t, m, pick(p))
		seen[m] = true
	}
	assert.Len(t, seen, 2)
}

func TestSetContextResetsCaches(t *testing.T) {
	counting := NewCountingFetcher(testAssets())
	s, first := newTestScene(t, counting)
	ctx := context.Background()

	_, err := s.ResolveBlock(ctx, BlockRecord{Material: "minecraft:stone"})
	require.NoError(t, err)
	require.NoError(t, s.SetContext(first))
	assert.Equal(t, 1, s.Stats().BlockStates, "same backend keeps caches")

	second := NewAssetServer()
	require.NoError(t, s.SetContext(second))
	assert.Equal(t, Stats{}, s.Stats())

	textures, materials, meshes, instances := first.Live()
	assert.Zero(t, textures)
	assert.Zero(t, materials)
	assert.Zero(t, meshes)
	assert.Zero(t, instances)

	_, err = s.Resolve(ctx, "minecraft:stone", "")
	require.NoError(t, err)
	assert.Equal(t, 2, counting.Count("blockstates/stone.json"))
	assert.Equal(t, 1, second.Calls("CreateMesh"))
}

func TestInvalidateKeepsBackend(t *testing.T) {
	counting := NewCountingFetcher(testAssets())
	s, server := newTestScene(t, counting)
	ctx := context.Background()
	_, err := s.Resolve(ctx, "minecraft:stone", "")
	require.NoError(t, err)

	require.NoError(t, s.Invalidate())
	assert.Same(t, server, s.Backend())
	_, err = s.Resolve(ctx, "minecraft:stone", "")
	require.NoError(t, err)
	assert.Equal(t, 2, counting.Count("blockstates/stone.json"))
}

func TestSceneClosed(t *testing.T) {
	s, _ := newTestScene(t, testAssets())
	s.Close()
	_, err := s.Resolve(context.Background(), "minecraft:stone", "")
	assert.ErrorIs(t, err, ErrSceneClosed)
	assert.ErrorIs(t, s.SetContext(NewAssetServer()), ErrSceneClosed)
}

func TestPlaceholderBlock(t *testing.T) {
	s, server := newTestScene(t, testAssets())
	a, err := s.PlaceholderBlock(BlockPos{0, 0, 0}, "minecraft:broken")
	require.NoError(t, err)
	b, err := s.PlaceholderBlock(BlockPos{1, 0, 0}, "minecraft:broken")
	require.NoError(t, err)
	assert.True(t, a.Placeholder)
	assert.Equal(t, Placeholder, a.Parts[0].Materials[0].Tint)
	assert.NotEqual(t, a.Parts[0].Asset, b.Parts[0].Asset)
	assert.Equal(t, 1, server.Calls("CreateMesh"))
}

func TestNewScenePartialLimits(t *testing.T) {
	server := NewAssetServer()
	s, err := NewScene(SceneConfig{Backend: server, Fetcher: testAssets(), Limits: Limits{MaxParentDepth: 8}})
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = s.Resolve(ctx, "minecraft:stone", "")
	require.NoError(t, err)
	_, err = s.Resolve(ctx, "minecraft:fence", "east=false,north=true,south=false,west=false")
	require.NoError(t, err)
}

func TestNewSceneRequiresBackendAndFetcher(t *testing.T) {
	_, err := NewScene(SceneConfig{Fetcher: testAssets()})
	assert.Error(t, err)
	_, err = NewScene(SceneConfig{Backend: NewAssetServer()})
	assert.Error(t, err)
}
