package blockview

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand"
	"sync"
)

// Selector picks one entry of a weighted group for a block at pos.
type Selector interface {
	Select(group WeightedGroup, pos BlockPos) int
}

// FirstSelector always picks the first entry.
type FirstSelector struct{}

func (FirstSelector) Select(group WeightedGroup, pos BlockPos) int { return 0 }

// WeightedSelector draws from a seeded random source.
type WeightedSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewWeightedSelector(seed int64) *WeightedSelector {
	return &WeightedSelector{rng: rand.New(rand.NewSource(seed))}
}

func (s *WeightedSelector) Select(group WeightedGroup, pos BlockPos) int {
	s.mu.Lock()
	r := s.rng.Float64()
	s.mu.Unlock()
	return group.pick(r)
}

// PositionalSelector derives the draw from the block coordinates, so a
// world selects the same alternatives on every load.
type PositionalSelector struct {
	Seed uint64
}

func (s PositionalSelector) Select(group WeightedGroup, pos BlockPos) int {
	h := fnv.New64a()
	var buf [32]byte
	binary.LittleEndian.PutUint64(buf[0:], s.Seed)
	binary.LittleEndian.PutUint64(buf[8:], uint64(int64(pos.X)))
	binary.LittleEndian.PutUint64(buf[16:], uint64(int64(pos.Y)))
	binary.LittleEndian.PutUint64(buf[24:], uint64(int64(pos.Z)))
	h.Write(buf[:])
	r := float64(h.Sum64()>>11) / (1 << 53)
	return group.pick(r)
}

// pick maps r in [0, 1) onto the cumulative normalized weights.
func (g WeightedGroup) pick(r float64) int {
	acc := 0.0
	for i, e := range g {
		acc += e.Weight
		if r < acc {
			return i
		}
	}
	return len(g) - 1
}
