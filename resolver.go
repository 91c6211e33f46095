package blockview

import (
	"context"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/sync/errgroup"
)

// ResolveState tracks one cache key through resolution.
type ResolveState int

const (
	StateUncached ResolveState = iota
	StateFetching
	StateMatching
	StateResolvingModels
	StateMerging
	StateCached
	StateFailed
)

func (s ResolveState) String() string {
	switch s {
	case StateUncached:
		return "uncached"
	case StateFetching:
		return "fetching"
	case StateMatching:
		return "matching"
	case StateResolvingModels:
		return "resolving_models"
	case StateMerging:
		return "merging"
	case StateCached:
		return "cached"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("ResolveState(%d)", int(s))
}

// WeightedMesh is one alternative of a group: the model reference, its
// normalized weight and its uploaded geometry.
type WeightedMesh struct {
	Ref       ModelRef
	Weight    float64
	Mesh      *BatchedMesh
	Asset     AssetId
	Materials []AssetId
}

// WeightedGroup holds alternatives whose weights sum to 1. One is drawn
// per placed block.
type WeightedGroup []WeightedMesh

// ResolvedBlockState is the cached result for one (block, properties) key.
// A variants document yields one group; a multipart document yields one
// group per matching case.
type ResolvedBlockState struct {
	Key    string
	Block  string
	Props  string
	Groups []WeightedGroup
}

// BlockKey is the cache key of a block with a property string.
func BlockKey(block, props string) string {
	if props == "" {
		return block
	}
	return block + "[" + props + "]"
}

// BlockStateResolver turns (block, properties) pairs into weighted,
// uploaded geometry. Each key is resolved at most once until Release.
type BlockStateResolver struct {
	fetcher   Fetcher
	layout    Layout
	limits    Limits
	schema    *jsonschema.Schema
	log       Logger
	backend   Backend
	models    *ModelLoader
	synth     *Synthesizer
	materials *MaterialCache

	docs  *flightCache[*BlockStateDoc]
	cache *flightCache[*ResolvedBlockState]

	mu     sync.Mutex
	states map[string]ResolveState
}

type ResolverConfig struct {
	Fetcher   Fetcher
	Layout    Layout
	Limits    Limits
	Validate  bool
	Logger    Logger
	Backend   Backend
	Models    *ModelLoader
	Synth     *Synthesizer
	Materials *MaterialCache
}

func NewBlockStateResolver(cfg ResolverConfig) *BlockStateResolver {
	r := &BlockStateResolver{
		fetcher:   cfg.Fetcher,
		layout:    cfg.Layout,
		limits:    cfg.Limits.WithDefaults(),
		log:       orNop(cfg.Logger),
		backend:   cfg.Backend,
		models:    cfg.Models,
		synth:     cfg.Synth,
		materials: cfg.Materials,
		docs:      newFlightCache[*BlockStateDoc](),
		cache:     newFlightCache[*ResolvedBlockState](),
		states:    make(map[string]ResolveState),
	}
	if cfg.Validate {
		r.schema = blockStateSchema
	}
	return r
}

// Resolve returns the cached result for (block, props), resolving it once
// for all concurrent callers on a miss. Failures are returned to every
// waiting caller and are not cached.
func (r *BlockStateResolver) Resolve(ctx context.Context, block, props string) (*ResolvedBlockState, error) {
	key := BlockKey(block, props)
	rs, _, err := r.cache.do(ctx, key, func(ctx context.Context) (*ResolvedBlockState, error) {
		rs, err := r.resolve(ctx, key, block, props)
		if err != nil {
			r.setState(key, StateFailed)
			r.log.Warnf("block %s: %v", key, err)
			return nil, err
		}
		r.setState(key, StateCached)
		return rs, nil
	})
	return rs, err
}

// Cached returns the result for a key without resolving it.
func (r *BlockStateResolver) Cached(block, props string) (*ResolvedBlockState, bool) {
	return r.cache.get(BlockKey(block, props))
}

func (r *BlockStateResolver) State(block, props string) ResolveState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[BlockKey(block, props)]
}

func (r *BlockStateResolver) setState(key string, s ResolveState) {
	r.mu.Lock()
	r.states[key] = s
	r.mu.Unlock()
}

func (r *BlockStateResolver) Len() int { return r.cache.len() }

func (r *BlockStateResolver) doc(ctx context.Context, block string) (*BlockStateDoc, error) {
	path := r.layout.BlockStatePath(block)
	doc, _, err := r.docs.do(ctx, path, func(ctx context.Context) (*BlockStateDoc, error) {
		data, err := r.fetcher.Fetch(ctx, path)
		if err != nil {
			return nil, &AssetLoadError{URI: path, Err: err}
		}
		return ParseBlockState(block, data, r.schema)
	})
	return doc, err
}

func (r *BlockStateResolver) resolve(ctx context.Context, key, block, props string) (*ResolvedBlockState, error) {
	r.setState(key, StateFetching)
	doc, err := r.doc(ctx, block)
	if err != nil {
		return nil, err
	}

	r.setState(key, StateMatching)
	matched, err := doc.Match(block, props, r.limits.MaxMultipartParts)
	if err != nil {
		return nil, err
	}

	r.setState(key, StateResolvingModels)
	quads := make([][][]Quad, len(matched))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.limits.Concurrency)
	for gi, refs := range matched {
		quads[gi] = make([][]Quad, len(refs))
		for i, ref := range refs {
			eg.Go(func() error {
				model, err := r.models.Resolve(egCtx, ref.Model)
				if err != nil {
					return err
				}
				qs, err := r.synth.ModelQuads(egCtx, model, ref, TintContext{Block: block})
				if err != nil {
					return fmt.Errorf("model %s: %w", ref.Model, err)
				}
				quads[gi][i] = qs
				return nil
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	r.setState(key, StateMerging)
	rs := &ResolvedBlockState{Key: key, Block: block, Props: props, Groups: make([]WeightedGroup, len(matched))}
	for gi, refs := range matched {
		total := 0
		for _, ref := range refs {
			total += ref.weight()
		}
		group := make(WeightedGroup, len(refs))
		rs.Groups[gi] = group
		for i, ref := range refs {
			mesh, err := MergeQuads(quads[gi][i], MaxLightLevel)
			if err != nil {
				r.releaseState(rs)
				return nil, fmt.Errorf("model %s: %w", ref.Model, err)
			}
			entry := WeightedMesh{Ref: ref, Weight: float64(ref.weight()) / float64(total), Mesh: mesh}
			if entry.Materials, err = r.materials.GetAll(mesh.Materials); err != nil {
				r.releaseState(rs)
				return nil, err
			}
			if entry.Asset, err = r.backend.CreateMesh(mesh, entry.Materials); err != nil {
				r.releaseState(rs)
				return nil, fmt.Errorf("upload %s: %w", ref.Model, err)
			}
			group[i] = entry
		}
	}
	r.log.Debugf("block %s resolved into %d group(s)", key, len(rs.Groups))
	return rs, nil
}

func (r *BlockStateResolver) releaseState(rs *ResolvedBlockState) {
	for _, g := range rs.Groups {
		for _, e := range g {
			if e.Asset != "" {
				r.backend.Release(e.Asset)
			}
		}
	}
}

// Release drops every cached result and frees its meshes. Materials and
// textures belong to their own caches.
func (r *BlockStateResolver) Release() {
	for _, rs := range r.cache.reset() {
		r.releaseState(rs)
	}
	r.docs.reset()
	r.mu.Lock()
	r.states = make(map[string]ResolveState)
	r.mu.Unlock()
}
