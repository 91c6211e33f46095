package blockview

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// BlockRecord is one block of world data with its material resolved to a name.
type BlockRecord struct {
	Pos          BlockPos
	Material     string
	Props        string
	Biome        string
	SkyLight     *int
	EmittedLight *int
	Temperature  *float64
	Humidity     *float64
}

func (r BlockRecord) Key() string { return BlockKey(r.Material, r.Props) }

// InstancePart is one placed mesh of a block: the alternative drawn from
// one weighted group.
type InstancePart struct {
	Model     string
	Weight    float64
	Mesh      *BatchedMesh
	Materials []MaterialKey
	Asset     AssetId
}

// BlockInstance is a placed block. Every call that places a block returns
// a fresh instance with its own backend assets.
type BlockInstance struct {
	Key         string
	Pos         BlockPos
	Placeholder bool
	Parts       []InstancePart
}

type SceneConfig struct {
	Backend  Backend
	Fetcher  Fetcher
	Layout   Layout
	Limits   Limits
	Tints    TintProvider
	Selector Selector
	Validate bool
	Logger   Logger
}

// Scene binds the resolution caches to one backend. Changing the backend
// through SetContext releases everything created in the old one.
type Scene struct {
	cfg SceneConfig
	log Logger

	mu     sync.RWMutex
	closed bool
	state  *sceneState
}

type sceneState struct {
	backend   Backend
	textures  *TextureCache
	models    *ModelLoader
	materials *MaterialCache
	resolver  *BlockStateResolver

	mu          sync.Mutex
	instances   []AssetId
	placeholder AssetId
}

func NewScene(cfg SceneConfig) (*Scene, error) {
	if cfg.Backend == nil {
		return nil, errors.New("scene: backend is required")
	}
	if cfg.Fetcher == nil {
		return nil, errors.New("scene: fetcher is required")
	}
	if cfg.Layout == (Layout{}) {
		cfg.Layout = DefaultLayout()
	}
	cfg.Limits = cfg.Limits.WithDefaults()
	if cfg.Tints == nil {
		cfg.Tints = DefaultTints()
	}
	if cfg.Selector == nil {
		cfg.Selector = FirstSelector{}
	}
	s := &Scene{cfg: cfg, log: orNop(cfg.Logger)}
	s.state = s.newState(cfg.Backend)
	return s, nil
}

func (s *Scene) newState(backend Backend) *sceneState {
	textures := NewTextureCache(s.cfg.Fetcher, s.cfg.Layout, backend, s.log)
	models := NewModelLoader(s.cfg.Fetcher, s.cfg.Layout, s.cfg.Limits, s.cfg.Validate, s.log)
	materials := NewMaterialCache(backend)
	synth := &Synthesizer{Textures: textures, Tints: s.cfg.Tints, MaxTextureChase: s.cfg.Limits.MaxTextureChase}
	resolver := NewBlockStateResolver(ResolverConfig{
		Fetcher:   s.cfg.Fetcher,
		Layout:    s.cfg.Layout,
		Limits:    s.cfg.Limits,
		Validate:  s.cfg.Validate,
		Logger:    s.log,
		Backend:   backend,
		Models:    models,
		Synth:     synth,
		Materials: materials,
	})
	return &sceneState{
		backend:   backend,
		textures:  textures,
		models:    models,
		materials: materials,
		resolver:  resolver,
	}
}

// release frees instances, meshes, materials and textures, in that order.
func (st *sceneState) release() {
	st.mu.Lock()
	for _, id := range st.instances {
		st.backend.Release(id)
	}
	st.instances = nil
	if st.placeholder != "" {
		st.backend.Release(st.placeholder)
		st.placeholder = ""
	}
	st.mu.Unlock()
	st.resolver.Release()
	st.models.Reset()
	st.materials.Release()
	st.textures.Release()
}

func (s *Scene) current() (*sceneState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrSceneClosed
	}
	return s.state, nil
}

func (s *Scene) Backend() Backend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.backend
}

// SetContext moves the scene to backend. A different backend invalidates
// every cache; the same backend is a no-op.
func (s *Scene) SetContext(backend Backend) error {
	if backend == nil {
		return errors.New("scene: backend is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSceneClosed
	}
	if s.state.backend == backend {
		return nil
	}
	s.state.release()
	s.state = s.newState(backend)
	s.log.Infof("scene context changed, caches reset")
	return nil
}

// Invalidate drops every cache but keeps the backend, for reloading
// changed assets.
func (s *Scene) Invalidate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSceneClosed
	}
	s.state.release()
	s.state = s.newState(s.state.backend)
	s.log.Infof("scene caches invalidated")
	return nil
}

func (s *Scene) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.state.release()
	s.closed = true
}

// Resolve returns the cached block-state result for (block, props).
func (s *Scene) Resolve(ctx context.Context, block, props string) (*ResolvedBlockState, error) {
	st, err := s.current()
	if err != nil {
		return nil, err
	}
	return st.resolver.Resolve(ctx, block, props)
}

// State reports where a key is in resolution.
func (s *Scene) State(block, props string) ResolveState {
	st, err := s.current()
	if err != nil {
		return StateUncached
	}
	return st.resolver.State(block, props)
}

// ResolveBlock places rec. Non-visible materials yield a nil instance. The
// block's light and biome tint specialize the cached materials per instance.
func (s *Scene) ResolveBlock(ctx context.Context, rec BlockRecord) (*BlockInstance, error) {
	if !IsVisibleMaterial(rec.Material) {
		return nil, nil
	}
	st, err := s.current()
	if err != nil {
		return nil, err
	}
	rs, err := st.resolver.Resolve(ctx, rec.Material, rec.Props)
	if err != nil {
		return nil, err
	}

	light := EffectiveLight(rec.SkyLight, rec.EmittedLight)
	origin := rec.Pos.Vec3()
	inst := &BlockInstance{Key: rs.Key, Pos: rec.Pos}
	for _, group := range rs.Groups {
		if len(group) == 0 {
			continue
		}
		entry := group[s.cfg.Selector.Select(group, rec.Pos)]
		slots := make([]MaterialSlot, len(entry.Mesh.Materials))
		keys := make([]MaterialKey, len(slots))
		for i, slot := range entry.Mesh.Materials {
			slot.Key.Light = light
			if slot.Key.Tinted {
				slot.Key.Tint = s.cfg.Tints.Tint(rec.Material, rec.Biome)
			}
			slots[i], keys[i] = slot, slot.Key
		}
		mats, err := st.materials.GetAll(slots)
		if err != nil {
			s.releaseInstance(st, inst)
			return nil, err
		}
		id, err := st.backend.CloneMesh(entry.Asset, mats, origin)
		if err != nil {
			s.releaseInstance(st, inst)
			return nil, fmt.Errorf("place %s at %v: %w", rs.Key, rec.Pos, err)
		}
		st.track(id)
		inst.Parts = append(inst.Parts, InstancePart{
			Model:     entry.Ref.Model,
			Weight:    entry.Weight,
			Mesh:      entry.Mesh,
			Materials: keys,
			Asset:     id,
		})
	}
	return inst, nil
}

// PlaceholderBlock places an untextured magenta cube at pos.
func (s *Scene) PlaceholderBlock(pos BlockPos, key string) (*BlockInstance, error) {
	st, err := s.current()
	if err != nil {
		return nil, err
	}
	mesh, meshID, err := st.placeholderMesh()
	if err != nil {
		return nil, err
	}
	mats, err := st.materials.GetAll(mesh.Materials)
	if err != nil {
		return nil, err
	}
	id, err := st.backend.CloneMesh(meshID, mats, pos.Vec3())
	if err != nil {
		return nil, err
	}
	st.track(id)
	return &BlockInstance{
		Key:         key,
		Pos:         pos,
		Placeholder: true,
		Parts:       []InstancePart{{Model: "placeholder", Weight: 1, Mesh: mesh, Materials: []MaterialKey{mesh.Materials[0].Key}, Asset: id}},
	}, nil
}

var placeholderCube *BatchedMesh

func init() {
	m, err := MergeQuads(CubeQuads(Placeholder), MaxLightLevel)
	if err != nil {
		panic(err)
	}
	placeholderCube = m
}

func (st *sceneState) placeholderMesh() (*BatchedMesh, AssetId, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.placeholder != "" {
		return placeholderCube, st.placeholder, nil
	}
	mats, err := st.materials.GetAll(placeholderCube.Materials)
	if err != nil {
		return nil, "", err
	}
	id, err := st.backend.CreateMesh(placeholderCube, mats)
	if err != nil {
		return nil, "", err
	}
	st.placeholder = id
	return placeholderCube, id, nil
}

func (st *sceneState) track(id AssetId) {
	st.mu.Lock()
	st.instances = append(st.instances, id)
	st.mu.Unlock()
}

func (s *Scene) releaseInstance(st *sceneState, inst *BlockInstance) {
	for _, p := range inst.Parts {
		st.backend.Release(p.Asset)
	}
}

// Stats reports cache sizes.
type Stats struct {
	BlockStates int
	Textures    int
	Materials   int
	Instances   int
}

func (s *Scene) Stats() Stats {
	st, err := s.current()
	if err != nil {
		return Stats{}
	}
	st.mu.Lock()
	n := len(st.instances)
	st.mu.Unlock()
	return Stats{
		BlockStates: st.resolver.Len(),
		Textures:    st.textures.Len(),
		Materials:   st.materials.Len(),
		Instances:   n,
	}
}

// Vec3 is the block's minimum corner in world block units.
func (p BlockPos) Vec3() mgl32.Vec3 {
	return mgl32.Vec3{float32(p.X), float32(p.Y), float32(p.Z)}
}
