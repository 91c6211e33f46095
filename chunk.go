package blockview

import (
	"encoding/json"
	"fmt"
	"sort"
)

const (
	ChunkWidth = 16
	ChunkDepth = 16
)

type BlockPos struct {
	X, Y, Z int
}

type ChunkPos struct {
	X, Z int
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Chunk returns the chunk containing p.
func (p BlockPos) Chunk() ChunkPos {
	return ChunkPos{X: floorDiv(p.X, ChunkWidth), Z: floorDiv(p.Z, ChunkDepth)}
}

// Origin is the chunk's minimum block corner at y.
func (c ChunkPos) Origin(y int) BlockPos {
	return BlockPos{X: c.X * ChunkWidth, Y: y, Z: c.Z * ChunkDepth}
}

// RawBlock is a chunk entry before ordinals are mapped to names.
type RawBlock struct {
	Pos          BlockPos
	Material     int
	Data         string
	SkyLight     *int
	EmittedLight *int
	Biome        *int
	Temperature  *float64
	Humidity     *float64
}

type chunkBlockDoc struct {
	M int      `json:"m"`
	D string   `json:"d,omitempty"`
	S *int     `json:"s,omitempty"`
	E *int     `json:"e,omitempty"`
	T *float64 `json:"t,omitempty"`
	H *float64 `json:"h,omitempty"`
	B *int     `json:"b,omitempty"`
}

type chunkDoc struct {
	Blocks map[int]map[int]map[int]chunkBlockDoc `json:"blocks"`
}

// DecodeChunk parses a chunk document keyed y, then chunk-local x, then
// chunk-local z. Blocks come back ordered by y, x, z.
func DecodeChunk(pos ChunkPos, data []byte) ([]RawBlock, error) {
	var doc chunkDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	var out []RawBlock
	for y, xs := range doc.Blocks {
		for x, zs := range xs {
			if x < 0 || x >= ChunkWidth {
				return nil, fmt.Errorf("chunk %d.%d: x %d outside chunk", pos.X, pos.Z, x)
			}
			for z, b := range zs {
				if z < 0 || z >= ChunkDepth {
					return nil, fmt.Errorf("chunk %d.%d: z %d outside chunk", pos.X, pos.Z, z)
				}
				o := pos.Origin(y)
				out = append(out, RawBlock{
					Pos:          BlockPos{X: o.X + x, Y: y, Z: o.Z + z},
					Material:     b.M,
					Data:         b.D,
					SkyLight:     b.S,
					EmittedLight: b.E,
					Biome:        b.B,
					Temperature:  b.T,
					Humidity:     b.H,
				})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Pos, out[j].Pos
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Z < b.Z
	})
	return out, nil
}
