package blockview

import "fmt"

// Color is linear RGBA in [0, 1].
type Color [4]float32

var White = Color{1, 1, 1, 1}

// Placeholder marks blocks whose state could not be resolved.
var Placeholder = Color{1, 0, 1, 1}

func RGB(hex uint32) Color {
	return Color{
		float32(hex>>16&0xff) / 255,
		float32(hex>>8&0xff) / 255,
		float32(hex&0xff) / 255,
		1,
	}
}

func (c Color) Mul(o Color) Color {
	return Color{c[0] * o[0], c[1] * o[1], c[2] * o[2], c[3] * o[3]}
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", to8(c[0]), to8(c[1]), to8(c[2]), to8(c[3]))
}

func to8(f float32) uint8 {
	switch {
	case f <= 0:
		return 0
	case f >= 1:
		return 255
	}
	return uint8(f*255 + 0.5)
}

// TintProvider returns the color multiplier for tinted faces of block in biome.
type TintProvider interface {
	Tint(block, biome string) Color
}

type TintFunc func(block, biome string) Color

func (f TintFunc) Tint(block, biome string) Color { return f(block, biome) }

// TintTable is a fixed tint table: per-block colors plus per-biome overrides
// for the blocks listed in ByBiome.
type TintTable struct {
	Blocks  map[string]Color
	ByBiome map[string]map[string]Color
}

func (t TintTable) Tint(block, biome string) Color {
	block = StripNamespace(block)
	if biomes, ok := t.ByBiome[block]; ok {
		if c, ok := biomes[StripNamespace(biome)]; ok {
			return c
		}
	}
	if c, ok := t.Blocks[block]; ok {
		return c
	}
	return White
}

// DefaultTints colors grass and foliage with plains values and water by biome.
func DefaultTints() TintTable {
	grass := RGB(0x91bd59)
	foliage := RGB(0x77ab2f)
	water := RGB(0x3f76e4)
	return TintTable{
		Blocks: map[string]Color{
			"grass_block":     grass,
			"short_grass":     grass,
			"grass":           grass,
			"tall_grass":      grass,
			"fern":            grass,
			"large_fern":      grass,
			"sugar_cane":      grass,
			"oak_leaves":      foliage,
			"jungle_leaves":   foliage,
			"acacia_leaves":   foliage,
			"dark_oak_leaves": foliage,
			"mangrove_leaves": RGB(0x92c648),
			"vine":            foliage,
			"spruce_leaves":   RGB(0x619961),
			"birch_leaves":    RGB(0x80a755),
			"lily_pad":        RGB(0x208030),
			"water":           water,
			"bubble_column":   water,
			"water_cauldron":  water,
		},
		ByBiome: map[string]map[string]Color{
			"water":          waterByBiome,
			"bubble_column":  waterByBiome,
			"water_cauldron": waterByBiome,
		},
	}
}

var waterByBiome = map[string]Color{
	"swamp":               RGB(0x617b64),
	"mangrove_swamp":      RGB(0x3a7a6a),
	"warm_ocean":          RGB(0x43d5ee),
	"lukewarm_ocean":      RGB(0x45adf2),
	"deep_lukewarm_ocean": RGB(0x45adf2),
	"cold_ocean":          RGB(0x3d57d6),
	"deep_cold_ocean":     RGB(0x3d57d6),
	"frozen_ocean":        RGB(0x3938c9),
	"deep_frozen_ocean":   RGB(0x3938c9),
	"frozen_river":        RGB(0x3938c9),
}
