package blockview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ServerManifest lists the exported worlds.
type ServerManifest struct {
	Motd   string          `json:"motd"`
	Worlds []WorldManifest `json:"worlds"`
}

type WorldManifest struct {
	Name      string   `json:"name"`
	Spawn     Vector3i `json:"spawn"`
	MinHeight int      `json:"minHeight"`
	MaxHeight int      `json:"maxHeight"`
}

type Vector3i struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (v Vector3i) BlockPos() BlockPos { return BlockPos{X: v.X, Y: v.Y, Z: v.Z} }

func LoadServerManifest(ctx context.Context, f Fetcher, layout Layout) (*ServerManifest, error) {
	data, err := f.Fetch(ctx, layout.Server)
	if err != nil {
		return nil, &AssetLoadError{URI: layout.Server, Err: err}
	}
	var m ServerManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &AssetLoadError{URI: layout.Server, Err: err}
	}
	return &m, nil
}

// World returns the named world, or the first one when name is empty.
func (m *ServerManifest) World(name string) (WorldManifest, error) {
	for _, w := range m.Worlds {
		if name == "" || w.Name == name {
			return w, nil
		}
	}
	return WorldManifest{}, fmt.Errorf("world %q not in server manifest", name)
}

// ChunksAround lists the chunks within radius chunks of center, nearest
// rings first.
func ChunksAround(center BlockPos, radius int) []ChunkPos {
	c := center.Chunk()
	var out []ChunkPos
	for dx := -radius; dx <= radius; dx++ {
		for dz := -radius; dz <= radius; dz++ {
			out = append(out, ChunkPos{X: c.X + dx, Z: c.Z + dz})
		}
	}
	ring := func(p ChunkPos) int { return max(abs(p.X-c.X), abs(p.Z-c.Z)) }
	sort.SliceStable(out, func(i, j int) bool { return ring(out[i]) < ring(out[j]) })
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Diagnostic records a block that could not be placed.
type Diagnostic struct {
	Pos  BlockPos
	Key  string
	Kind string
	Err  error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%v %s: %s: %v", d.Pos, d.Key, d.Kind, d.Err)
}

type LoadResult struct {
	Instances   []*BlockInstance
	Diagnostics []Diagnostic
	// Keys is the number of distinct (block, properties) pairs seen.
	Keys          int
	Chunks        int
	MissingChunks []ChunkPos
	Skipped       int
}

// FailureCounts groups diagnostics by error kind.
func (r *LoadResult) FailureCounts() map[string]int {
	out := make(map[string]int)
	for _, d := range r.Diagnostics {
		out[d.Kind]++
	}
	return out
}

// WorldLoader places the blocks of exported chunks into a scene.
type WorldLoader struct {
	Scene       *Scene
	Lookup      *Lookup
	Fetcher     Fetcher
	Layout      Layout
	Concurrency int
	Placeholder bool
	Logger      Logger
}

// LoadChunks decodes the chunks, resolves each distinct key once with
// bounded concurrency, then places one instance per visible block. Block
// failures become diagnostics; only infrastructure errors abort the load.
func (w *WorldLoader) LoadChunks(ctx context.Context, world string, chunks []ChunkPos) (*LoadResult, error) {
	log := orNop(w.Logger)
	if !w.Lookup.Loaded() {
		if err := w.Lookup.Load(ctx); err != nil {
			return nil, err
		}
	}
	limit := w.Concurrency
	if limit <= 0 {
		limit = DefaultLimits().Concurrency
	}

	res := &LoadResult{}
	decoded := make([][]RawBlock, len(chunks))
	missing := make([]bool, len(chunks))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for i, c := range chunks {
		eg.Go(func() error {
			path := w.Layout.ChunkPath(world, c)
			data, err := w.Fetcher.Fetch(egCtx, path)
			if errors.Is(err, fs.ErrNotExist) {
				missing[i] = true
				return nil
			}
			if err != nil {
				return &AssetLoadError{URI: path, Err: err}
			}
			blocks, err := DecodeChunk(c, data)
			if err != nil {
				return &AssetLoadError{URI: path, Err: err}
			}
			decoded[i] = blocks
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var records []BlockRecord
	for i, blocks := range decoded {
		if missing[i] {
			res.MissingChunks = append(res.MissingChunks, chunks[i])
			log.Debugf("chunk %s/%d.%d not exported", world, chunks[i].X, chunks[i].Z)
			continue
		}
		res.Chunks++
		for _, b := range blocks {
			rec, err := w.record(b)
			if err != nil {
				res.Diagnostics = append(res.Diagnostics, Diagnostic{Pos: b.Pos, Kind: ErrorKind(err), Err: err})
				continue
			}
			if !IsVisibleMaterial(rec.Material) {
				res.Skipped++
				continue
			}
			records = append(records, rec)
		}
	}

	failed := w.resolveKeys(ctx, records, limit)
	seen := make(map[string]bool)
	for _, rec := range records {
		seen[rec.Key()] = true
	}
	res.Keys = len(seen)

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err, bad := failed[rec.Key()]
		var inst *BlockInstance
		if !bad {
			inst, err = w.Scene.ResolveBlock(ctx, rec)
		}
		if err != nil {
			if errors.Is(err, ErrSceneClosed) {
				return nil, err
			}
			res.Diagnostics = append(res.Diagnostics, Diagnostic{Pos: rec.Pos, Key: rec.Key(), Kind: ErrorKind(err), Err: err})
			if w.Placeholder {
				if inst, err = w.Scene.PlaceholderBlock(rec.Pos, rec.Key()); err != nil {
					return nil, err
				}
			}
		}
		if inst != nil {
			res.Instances = append(res.Instances, inst)
		}
	}
	log.Infof("world %s: %d chunks, %d blocks placed, %d distinct states, %d failures",
		world, res.Chunks, len(res.Instances), res.Keys, len(res.Diagnostics))
	return res, nil
}

// resolveKeys warms the block-state cache for every distinct key and
// returns the keys that failed.
func (w *WorldLoader) resolveKeys(ctx context.Context, records []BlockRecord, limit int) map[string]error {
	type key struct{ block, props string }
	var keys []key
	seen := make(map[string]bool)
	for _, rec := range records {
		if k := rec.Key(); !seen[k] {
			seen[k] = true
			keys = append(keys, key{rec.Material, rec.Props})
		}
	}

	var mu sync.Mutex
	failed := make(map[string]error)
	var eg errgroup.Group
	eg.SetLimit(limit)
	for _, k := range keys {
		eg.Go(func() error {
			if _, err := w.Scene.Resolve(ctx, k.block, k.props); err != nil {
				mu.Lock()
				failed[BlockKey(k.block, k.props)] = err
				mu.Unlock()
			}
			return nil
		})
	}
	eg.Wait()
	return failed
}

func (w *WorldLoader) record(b RawBlock) (BlockRecord, error) {
	name, err := w.Lookup.MaterialName(b.Material)
	if err != nil {
		return BlockRecord{}, err
	}
	rec := BlockRecord{
		Pos:          b.Pos,
		Material:     name,
		Props:        b.Data,
		SkyLight:     b.SkyLight,
		EmittedLight: b.EmittedLight,
		Temperature:  b.Temperature,
		Humidity:     b.Humidity,
	}
	if b.Biome != nil {
		if biome, err := w.Lookup.BiomeName(*b.Biome); err == nil {
			rec.Biome = biome
		}
	}
	return rec, nil
}
