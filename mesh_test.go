package blockview

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quadWith(tex string, tint Color) Quad {
	q := CubeQuads(tint)[1]
	q.Texture = &Texture{URI: tex, Width: 16, Height: 16}
	return q
}

func TestMergeSingleMaterial(t *testing.T) {
	a := QuadMesh(quadWith("block/stone", White), MaxLightLevel)
	b := QuadMesh(quadWith("block/stone", White), MaxLightLevel)
	m, err := Merge([]*SmallMesh{a, b})
	require.NoError(t, err)

	assert.False(t, m.MultiMaterial())
	require.Len(t, m.Materials, 1)
	assert.Equal(t, "block/stone", m.Materials[0].Key.Texture)
	assert.Equal(t, 8, m.VertexCount())
	assert.Equal(t, []uint32{0, 1, 2, 2, 3, 0, 4, 5, 6, 6, 7, 4}, m.Indices)
	assert.Equal(t, []SubMesh{{Material: 0, IndexStart: 0, IndexCount: 12}}, m.SubMeshes)

	assert.Nil(t, a.Positions)
	assert.Nil(t, b.Indices)
}

func TestMergeGroupsByMaterial(t *testing.T) {
	meshes := []*SmallMesh{
		QuadMesh(quadWith("block/dirt", White), MaxLightLevel),
		QuadMesh(quadWith("block/grass", RGB(0x91bd59)), MaxLightLevel),
		QuadMesh(quadWith("block/dirt", White), MaxLightLevel),
		QuadMesh(quadWith("block/dirt", White), 3),
	}
	m, err := Merge(meshes)
	require.NoError(t, err)
	require.True(t, m.MultiMaterial())
	require.Len(t, m.Materials, 3)
	require.Len(t, m.SubMeshes, 3)

	assert.Equal(t, SubMesh{Material: 0, IndexStart: 0, IndexCount: 12}, m.SubMeshes[0])
	assert.Equal(t, SubMesh{Material: 1, IndexStart: 12, IndexCount: 6}, m.SubMeshes[1])
	assert.Equal(t, SubMesh{Material: 2, IndexStart: 18, IndexCount: 6}, m.SubMeshes[2])
	assert.Equal(t, LightLevel(3), m.Materials[2].Key.Light)
	assert.Equal(t, 8, m.TriangleCount())
	for _, i := range m.Indices {
		assert.Less(t, int(i), m.VertexCount())
	}
}

func TestMergeEmpty(t *testing.T) {
	m, err := Merge(nil)
	require.NoError(t, err)
	assert.Zero(t, m.VertexCount())
	assert.Empty(t, m.Materials)
}

func TestMergeRejectsBadInput(t *testing.T) {
	bad := &SmallMesh{
		Positions: []mgl32.Vec3{{0, 0, 0}},
		Normals:   []mgl32.Vec3{{0, 1, 0}},
		UVs:       []mgl32.Vec2{{0, 0}},
		Indices:   []uint32{0, 1, 2},
	}
	_, err := Merge([]*SmallMesh{bad})
	assert.Error(t, err)
}

func TestBatchedMeshClone(t *testing.T) {
	m, err := MergeQuads(CubeQuads(Placeholder), MaxLightLevel)
	require.NoError(t, err)
	c := m.Clone()
	c.Positions[0] = mgl32.Vec3{9, 9, 9}
	assert.NotEqual(t, c.Positions[0], m.Positions[0])
	assert.Equal(t, 36, len(m.Indices))
}
