package blockview

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// MaterialKey identifies a material: texture, tint and light level.
type MaterialKey struct {
	Texture string
	Tinted  bool
	Tint    Color
	Light   LightLevel
}

func (k MaterialKey) String() string {
	return fmt.Sprintf("%s|tinted=%t|%s|light=%d", k.Texture, k.Tinted, k.Tint, k.Light)
}

// MaterialSlot is one material of a mesh, with the texture it samples.
type MaterialSlot struct {
	Key     MaterialKey
	Texture *Texture
}

// SmallMesh is the geometry of a single quad.
type SmallMesh struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2
	Indices   []uint32
	Material  MaterialSlot
}

// QuadMesh converts q to a mesh lit at light.
func QuadMesh(q Quad, light LightLevel) *SmallMesh {
	m := &SmallMesh{
		Positions: q.Positions[:],
		Normals:   []mgl32.Vec3{q.Normal, q.Normal, q.Normal, q.Normal},
		UVs:       q.UVs[:],
		Indices:   append([]uint32(nil), QuadIndices[:]...),
		Material: MaterialSlot{
			Key:     MaterialKey{Tinted: q.Tinted, Tint: q.Tint, Light: light},
			Texture: q.Texture,
		},
	}
	if q.Texture != nil {
		m.Material.Key.Texture = q.Texture.URI
	}
	return m
}

// Reset releases the mesh's buffers after it has been absorbed.
func (m *SmallMesh) Reset() {
	m.Positions, m.Normals, m.UVs, m.Indices = nil, nil, nil, nil
}

func (m *SmallMesh) check() error {
	n := len(m.Positions)
	if len(m.Normals) != n || len(m.UVs) != n {
		return fmt.Errorf("mesh buffers disagree: %d positions, %d normals, %d uvs", n, len(m.Normals), len(m.UVs))
	}
	for _, i := range m.Indices {
		if int(i) >= n {
			return fmt.Errorf("index %d out of range for %d vertices", i, n)
		}
	}
	return nil
}

// SubMesh is the index range drawn with one material slot.
type SubMesh struct {
	Material   int
	IndexStart int
	IndexCount int
}

// BatchedMesh is merged geometry with one slot per distinct material. With
// a single slot the whole mesh uses it directly.
type BatchedMesh struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2
	Indices   []uint32
	Materials []MaterialSlot
	SubMeshes []SubMesh
}

func (m *BatchedMesh) MultiMaterial() bool { return len(m.Materials) > 1 }

func (m *BatchedMesh) VertexCount() int { return len(m.Positions) }

func (m *BatchedMesh) TriangleCount() int { return len(m.Indices) / 3 }

// Merge concatenates meshes, offsetting indices, and groups their index
// ranges by material so each slot is drawn as one contiguous range. Inputs
// are Reset once absorbed.
func Merge(meshes []*SmallMesh) (*BatchedMesh, error) {
	out := &BatchedMesh{}
	slotOf := make(map[MaterialKey]int)
	bySlot := make([][]*SmallMesh, 0)
	for i, m := range meshes {
		if err := m.check(); err != nil {
			return nil, fmt.Errorf("merge input %d: %w", i, err)
		}
		slot, ok := slotOf[m.Material.Key]
		if !ok {
			slot = len(out.Materials)
			slotOf[m.Material.Key] = slot
			out.Materials = append(out.Materials, m.Material)
			bySlot = append(bySlot, nil)
		}
		bySlot[slot] = append(bySlot[slot], m)
	}

	for slot, group := range bySlot {
		sub := SubMesh{Material: slot, IndexStart: len(out.Indices)}
		for _, m := range group {
			base := uint32(len(out.Positions))
			out.Positions = append(out.Positions, m.Positions...)
			out.Normals = append(out.Normals, m.Normals...)
			out.UVs = append(out.UVs, m.UVs...)
			for _, i := range m.Indices {
				out.Indices = append(out.Indices, base+i)
			}
			m.Reset()
		}
		sub.IndexCount = len(out.Indices) - sub.IndexStart
		out.SubMeshes = append(out.SubMeshes, sub)
	}
	return out, nil
}

// MergeQuads builds one batched mesh from quads lit at light.
func MergeQuads(quads []Quad, light LightLevel) (*BatchedMesh, error) {
	meshes := make([]*SmallMesh, len(quads))
	for i, q := range quads {
		meshes[i] = QuadMesh(q, light)
	}
	return Merge(meshes)
}

func (m *BatchedMesh) Clone() *BatchedMesh {
	return &BatchedMesh{
		Positions: append([]mgl32.Vec3(nil), m.Positions...),
		Normals:   append([]mgl32.Vec3(nil), m.Normals...),
		UVs:       append([]mgl32.Vec2(nil), m.UVs...),
		Indices:   append([]uint32(nil), m.Indices...),
		Materials: append([]MaterialSlot(nil), m.Materials...),
		SubMeshes: append([]SubMesh(nil), m.SubMeshes...),
	}
}
