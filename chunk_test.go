package blockview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockPosChunk(t *testing.T) {
	cases := []struct {
		pos  BlockPos
		want ChunkPos
	}{
		{BlockPos{0, 64, 0}, ChunkPos{0, 0}},
		{BlockPos{15, 0, 15}, ChunkPos{0, 0}},
		{BlockPos{16, 0, 31}, ChunkPos{1, 1}},
		{BlockPos{-1, 0, -16}, ChunkPos{-1, -1}},
		{BlockPos{-17, 0, 0}, ChunkPos{-2, 0}},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.pos.Chunk(), "pos %v", c.pos)
	}
}

func TestDecodeChunk(t *testing.T) {
	data := []byte(`{"blocks":{
		"64":{"3":{"5":{"m":1}}},
		"63":{"0":{"0":{"m":2,"d":"snowy=false","s":15,"b":1,"t":0.8,"h":0.4}}}}}`)
	blocks, err := DecodeChunk(ChunkPos{X: -1, Z: 2}, data)
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	first := blocks[0]
	assert.Equal(t, BlockPos{X: -16, Y: 63, Z: 32}, first.Pos)
	assert.Equal(t, 2, first.Material)
	assert.Equal(t, "snowy=false", first.Data)
	require.NotNil(t, first.SkyLight)
	assert.Equal(t, 15, *first.SkyLight)
	assert.Nil(t, first.EmittedLight)
	require.NotNil(t, first.Biome)
	assert.Equal(t, 1, *first.Biome)
	assert.InDelta(t, 0.8, *first.Temperature, 1e-9)

	assert.Equal(t, BlockPos{X: -13, Y: 64, Z: 37}, blocks[1].Pos)
}

func TestDecodeChunkRejects(t *testing.T) {
	_, err := DecodeChunk(ChunkPos{}, []byte(`{"blocks":{"0":{"16":{"0":{"m":1}}}}}`))
	assert.Error(t, err)
	_, err = DecodeChunk(ChunkPos{}, []byte(`[]`))
	assert.Error(t, err)
}
