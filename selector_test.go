package blockview

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func group(weights ...float64) WeightedGroup {
	g := make(WeightedGroup, len(weights))
	for i, w := range weights {
		g[i] = WeightedMesh{Weight: w}
	}
	return g
}

func TestWeightedGroupPick(t *testing.T) {
	g := group(0.25, 0.5, 0.25)
	assert.Equal(t, 0, g.pick(0))
	assert.Equal(t, 0, g.pick(0.2499))
	assert.Equal(t, 1, g.pick(0.25))
	assert.Equal(t, 1, g.pick(0.74))
	assert.Equal(t, 2, g.pick(0.75))
	assert.Equal(t, 2, g.pick(0.999999))
}

func TestFirstSelector(t *testing.T) {
	assert.Equal(t, 0, FirstSelector{}.Select(group(0.1, 0.9), BlockPos{X: 4}))
}

func TestWeightedSelectorSeeded(t *testing.T) {
	g := group(0.5, 0.5)
	a, b := NewWeightedSelector(42), NewWeightedSelector(42)
	counts := make([]int, 2)
	for i := 0; i < 1000; i++ {
		x := a.Select(g, BlockPos{})
		assert.Equal(t, x, b.Select(g, BlockPos{}))
		counts[x]++
	}
	assert.InDelta(t, 500, counts[0], 100)
}

func TestPositionalSelector(t *testing.T) {
	g := group(0.3, 0.7)
	s := PositionalSelector{Seed: 1}
	counts := make([]int, 2)
	for x := -50; x < 50; x++ {
		for z := -50; z < 50; z++ {
			pos := BlockPos{X: x, Y: 64, Z: z}
			i := s.Select(g, pos)
			assert.Equal(t, i, s.Select(g, pos))
			counts[i]++
		}
	}
	assert.InDelta(t, 3000, counts[0], 300)

	other := PositionalSelector{Seed: 2}
	var differ bool
	for x := 0; x < 64 && !differ; x++ {
		pos := BlockPos{X: x}
		differ = s.Select(g, pos) != other.Select(g, pos)
	}
	assert.True(t, differ, "seed should change the draw")
}

func TestSelectorFromConfig(t *testing.T) {
	cfg := Defaults()
	_, ok := cfg.Selector().(PositionalSelector)
	assert.True(t, ok)

	cfg.Selection.Policy = "first"
	assert.IsType(t, FirstSelector{}, cfg.Selector())

	cfg.Selection.Policy = "weighted"
	assert.IsType(t, &WeightedSelector{}, cfg.Selector())
}
