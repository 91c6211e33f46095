package blockview

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// AssetServer is an in-memory Backend. It keeps every created asset so
// headless runs and tests can inspect what a renderer would have received.
type AssetServer struct {
	mu        sync.Mutex
	meshes    map[AssetId]MeshAsset
	instances map[AssetId]InstanceAsset
	materials map[AssetId]MaterialAsset
	textures  map[AssetId]TextureAsset
	calls     map[string]int
}

type MeshAsset struct {
	Mesh      *BatchedMesh
	Materials []AssetId
}

type InstanceAsset struct {
	Mesh      AssetId
	Materials []AssetId
	Origin    mgl32.Vec3
}

type MaterialAsset struct {
	Desc MaterialDesc
}

type TextureAsset struct {
	uri    string
	texels []uint8
	width  uint32
	height uint32
	format TextureFormat
}

func NewAssetServer() *AssetServer {
	return &AssetServer{
		meshes:    make(map[AssetId]MeshAsset),
		instances: make(map[AssetId]InstanceAsset),
		materials: make(map[AssetId]MaterialAsset),
		textures:  make(map[AssetId]TextureAsset),
		calls:     make(map[string]int),
	}
}

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}

func (s *AssetServer) LoadTexture(tex TextureData) (AssetId, error) {
	if int(tex.Width*tex.Height*4) != len(tex.Texels) {
		return "", fmt.Errorf("texture %s: %dx%d does not match %d bytes", tex.URI, tex.Width, tex.Height, len(tex.Texels))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["LoadTexture"]++
	id := makeAssetId()
	s.textures[id] = TextureAsset{
		uri:    tex.URI,
		texels: tex.Texels,
		width:  tex.Width,
		height: tex.Height,
		format: tex.Format,
	}
	return id, nil
}

func (s *AssetServer) CreateMaterial(desc MaterialDesc) (AssetId, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["CreateMaterial"]++
	if desc.Texture != "" {
		if _, ok := s.textures[desc.Texture]; !ok {
			return "", fmt.Errorf("material %s: unknown texture %s", desc.Key, desc.Texture)
		}
	}
	id := makeAssetId()
	s.materials[id] = MaterialAsset{Desc: desc}
	return id, nil
}

func (s *AssetServer) CreateMesh(mesh *BatchedMesh, materials []AssetId) (AssetId, error) {
	if len(materials) != len(mesh.Materials) {
		return "", fmt.Errorf("mesh has %d material slots, got %d materials", len(mesh.Materials), len(materials))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["CreateMesh"]++
	id := makeAssetId()
	s.meshes[id] = MeshAsset{Mesh: mesh, Materials: materials}
	return id, nil
}

func (s *AssetServer) CloneMesh(mesh AssetId, materials []AssetId, origin mgl32.Vec3) (AssetId, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["CloneMesh"]++
	src, ok := s.meshes[mesh]
	if !ok {
		return "", fmt.Errorf("clone: unknown mesh %s", mesh)
	}
	if materials == nil {
		materials = src.Materials
	}
	if len(materials) != len(src.Materials) {
		return "", fmt.Errorf("clone %s: want %d materials, got %d", mesh, len(src.Materials), len(materials))
	}
	id := makeAssetId()
	s.instances[id] = InstanceAsset{Mesh: mesh, Materials: materials, Origin: origin}
	return id, nil
}

func (s *AssetServer) Release(id AssetId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["Release"]++
	delete(s.meshes, id)
	delete(s.instances, id)
	delete(s.materials, id)
	delete(s.textures, id)
}

// Calls returns how often method was invoked.
func (s *AssetServer) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *AssetServer) Mesh(id AssetId) (MeshAsset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meshes[id]
	return m, ok
}

func (s *AssetServer) Instance(id AssetId) (InstanceAsset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[id]
	return inst, ok
}

func (s *AssetServer) Material(id AssetId) (MaterialAsset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.materials[id]
	return m, ok
}

// Texture returns the upload a texture was created from.
func (s *AssetServer) Texture(id AssetId) (TextureData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.textures[id]
	if !ok {
		return TextureData{}, false
	}
	return TextureData{URI: t.uri, Width: t.width, Height: t.height, Format: t.format, Texels: t.texels}, true
}

// Live counts assets that have not been released.
func (s *AssetServer) Live() (textures, materials, meshes, instances int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.textures), len(s.materials), len(s.meshes), len(s.instances)
}
