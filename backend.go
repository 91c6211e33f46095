package blockview

import "github.com/go-gl/mathgl/mgl32"

type AssetId string

type TextureFormat uint32

const (
	TextureFormatRGBA8Unorm     TextureFormat = 0x00000012
	TextureFormatRGBA8UnormSrgb TextureFormat = 0x00000013
)

// TextureData is a decoded RGBA8 image ready for upload.
type TextureData struct {
	URI    string
	Width  uint32
	Height uint32
	Format TextureFormat
	Texels []uint8
}

// MaterialDesc describes one material slot: texture, tint and light shade.
// Texture is empty for untextured materials such as the placeholder cube.
type MaterialDesc struct {
	Key     MaterialKey
	Texture AssetId
	Tint    Color
	Shade   Color
}

// Backend is the rendering context the engine creates assets in. The
// headless AssetServer and gpu.Backend implement it.
type Backend interface {
	LoadTexture(tex TextureData) (AssetId, error)
	CreateMaterial(desc MaterialDesc) (AssetId, error)
	// CreateMesh uploads merged geometry; materials[i] backs mesh.Materials[i].
	CreateMesh(mesh *BatchedMesh, materials []AssetId) (AssetId, error)
	// CloneMesh places a new instance sharing the mesh's buffers, with its
	// own material assignment, at origin in world block units.
	CloneMesh(mesh AssetId, materials []AssetId, origin mgl32.Vec3) (AssetId, error)
	Release(id AssetId)
}
