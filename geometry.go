package blockview

import (
	"context"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Quad is one textured face in block units ([0, 1] per axis for a full
// block). Corners run top-left, bottom-left, bottom-right, top-right as seen
// from outside, which is counter-clockwise around Normal.
type Quad struct {
	Positions [4]mgl32.Vec3
	UVs       [4]mgl32.Vec2
	Normal    mgl32.Vec3
	Facing    Direction
	CullFace  Direction
	Texture   *Texture
	Tinted    bool
	Tint      Color
}

// QuadIndices triangulates a quad's corners.
var QuadIndices = [6]uint32{0, 1, 2, 2, 3, 0}

// TextureSource resolves texture URIs to loaded textures.
type TextureSource interface {
	Get(ctx context.Context, uri string) (*Texture, error)
}

// TintContext identifies the block being built for the tint provider.
type TintContext struct {
	Block string
	Biome string
}

// Synthesizer turns flattened models into quads.
type Synthesizer struct {
	Textures        TextureSource
	Tints           TintProvider
	MaxTextureChase int
}

// ModelQuads builds every face of model placed by ref.
func (s *Synthesizer) ModelQuads(ctx context.Context, model *ResolvedModel, ref ModelRef, tc TintContext) ([]Quad, error) {
	rot := modelRotation(ref.X, ref.Y)
	var quads []Quad
	for i, el := range model.Elements {
		qs, err := s.elementQuads(ctx, model, el, tc, rot, ref.UVLock)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		quads = append(quads, qs...)
	}
	return quads, nil
}

// ElementQuads builds the faces of one element without model rotation. UVs
// are block-model 0-16 coordinates divided by 16, independent of the texture's
// pixel size; V is further scaled to the first frame of an animated strip.
func (s *Synthesizer) ElementQuads(ctx context.Context, model *ResolvedModel, el Element, tc TintContext) ([]Quad, error) {
	return s.elementQuads(ctx, model, el, tc, nil, false)
}

func (s *Synthesizer) elementQuads(ctx context.Context, model *ResolvedModel, el Element, tc TintContext, rot *mgl32.Mat4, uvlock bool) ([]Quad, error) {
	elRot := elementTransform(el.Rotation)
	chase := s.MaxTextureChase
	if chase <= 0 {
		chase = DefaultLimits().MaxTextureChase
	}
	quads := make([]Quad, 0, len(el.Faces))
	for _, dir := range Directions {
		face, ok := el.Faces[dir]
		if !ok {
			continue
		}
		texURI, err := model.ResolveTexture(face.Texture, chase)
		if err != nil {
			return nil, err
		}
		tex, err := s.Textures.Get(ctx, texURI)
		if err != nil {
			return nil, err
		}

		corners := FaceCorners(dir, el.From, el.To)
		var uv [4]float32
		if face.UV != nil {
			uv = *face.UV
		} else {
			uv = DefaultUV(dir, el.From, el.To)
		}
		uvs := uvCorners(uv)

		q := Quad{
			Normal:   dir.Normal(),
			Facing:   dir,
			CullFace: face.CullFace,
			Texture:  tex,
			Tinted:   face.Tinted(),
			Tint:     White,
		}
		if q.Tinted && s.Tints != nil {
			q.Tint = s.Tints.Tint(tc.Block, tc.Biome)
		}

		for i, c := range corners {
			q.Positions[i] = c
		}
		if elRot != nil {
			for i := range q.Positions {
				q.Positions[i] = transformPoint(*elRot, q.Positions[i])
			}
			q.Normal = transformNormal(*elRot, q.Normal)
		}
		if rot != nil {
			for i := range q.Positions {
				q.Positions[i] = snap(transformPoint(*rot, q.Positions[i]))
			}
			q.Normal = snap(transformNormal(*rot, q.Normal))
			q.Facing = directionOf(q.Normal)
			if q.CullFace != "" {
				q.CullFace = directionOf(transformNormal(*rot, q.CullFace.Normal()))
			}
			if uvlock && face.UV == nil {
				for i, c := range corners {
					uvs[i] = projectUV(q.Facing, snap(transformPoint(*rot, c)))
				}
			}
		}

		uvs = rotateUVs(uvs, face.Rotation)
		scale := tex.FrameScale()
		for i := range q.Positions {
			q.Positions[i] = q.Positions[i].Mul(1.0 / 16)
			q.UVs[i] = mgl32.Vec2{uvs[i][0] / 16, uvs[i][1] / 16 * scale}
		}
		quads = append(quads, q)
	}
	return quads, nil
}

// FaceCorners returns the pixel-space corners of an element face in
// top-left, bottom-left, bottom-right, top-right order seen from outside.
func FaceCorners(dir Direction, from, to mgl32.Vec3) [4]mgl32.Vec3 {
	x0, y0, z0 := from[0], from[1], from[2]
	x1, y1, z1 := to[0], to[1], to[2]
	switch dir {
	case Down:
		return [4]mgl32.Vec3{{x0, y0, z1}, {x0, y0, z0}, {x1, y0, z0}, {x1, y0, z1}}
	case Up:
		return [4]mgl32.Vec3{{x0, y1, z0}, {x0, y1, z1}, {x1, y1, z1}, {x1, y1, z0}}
	case North:
		return [4]mgl32.Vec3{{x1, y1, z0}, {x1, y0, z0}, {x0, y0, z0}, {x0, y1, z0}}
	case South:
		return [4]mgl32.Vec3{{x0, y1, z1}, {x0, y0, z1}, {x1, y0, z1}, {x1, y1, z1}}
	case West:
		return [4]mgl32.Vec3{{x0, y1, z0}, {x0, y0, z0}, {x0, y0, z1}, {x0, y1, z1}}
	case East:
		return [4]mgl32.Vec3{{x1, y1, z1}, {x1, y0, z1}, {x1, y0, z0}, {x1, y1, z0}}
	}
	return [4]mgl32.Vec3{}
}

// projectUV maps a pixel-space point to the texture coordinate it shows on
// a face of direction dir.
func projectUV(dir Direction, p mgl32.Vec3) mgl32.Vec2 {
	switch dir {
	case Down:
		return mgl32.Vec2{p[0], 16 - p[2]}
	case Up:
		return mgl32.Vec2{p[0], p[2]}
	case North:
		return mgl32.Vec2{16 - p[0], 16 - p[1]}
	case South:
		return mgl32.Vec2{p[0], 16 - p[1]}
	case West:
		return mgl32.Vec2{p[2], 16 - p[1]}
	case East:
		return mgl32.Vec2{16 - p[2], 16 - p[1]}
	}
	return mgl32.Vec2{}
}

// DefaultUV is the [u0, v0, u1, v1] rectangle of the element's extent
// projected onto the face plane.
func DefaultUV(dir Direction, from, to mgl32.Vec3) [4]float32 {
	c := FaceCorners(dir, from, to)
	tl, br := projectUV(dir, c[0]), projectUV(dir, c[2])
	return [4]float32{tl[0], tl[1], br[0], br[1]}
}

func uvCorners(uv [4]float32) [4]mgl32.Vec2 {
	return [4]mgl32.Vec2{{uv[0], uv[1]}, {uv[0], uv[3]}, {uv[2], uv[3]}, {uv[2], uv[1]}}
}

// rotateUVs turns the texture clockwise on the face in 90 degree steps.
func rotateUVs(uvs [4]mgl32.Vec2, degrees int) [4]mgl32.Vec2 {
	k := ((degrees/90)%4 + 4) % 4
	if k == 0 {
		return uvs
	}
	var out [4]mgl32.Vec2
	for i := range out {
		out[i] = uvs[(i+k)%4]
	}
	return out
}

var blockCenter = mgl32.Vec3{8, 8, 8}

// modelRotation rotates x then y degrees clockwise about the block center,
// so y=90 turns north to east.
func modelRotation(x, y int) *mgl32.Mat4 {
	if x%360 == 0 && y%360 == 0 {
		return nil
	}
	r := mgl32.HomogRotate3DY(mgl32.DegToRad(float32(-y))).Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(float32(-x))))
	m := mgl32.Translate3D(blockCenter[0], blockCenter[1], blockCenter[2]).
		Mul4(r).
		Mul4(mgl32.Translate3D(-blockCenter[0], -blockCenter[1], -blockCenter[2]))
	return &m
}

// elementTransform rotates about the element origin, stretching the other
// two axes by 1/cos(angle) when rescale is set.
func elementTransform(r *ElementRotation) *mgl32.Mat4 {
	if r == nil || r.Angle == 0 {
		return nil
	}
	rad := mgl32.DegToRad(r.Angle)
	var rot mgl32.Mat4
	scale := mgl32.Vec3{1, 1, 1}
	s := float32(1 / math.Cos(float64(rad)))
	switch r.Axis {
	case "x":
		rot = mgl32.HomogRotate3DX(rad)
		scale = mgl32.Vec3{1, s, s}
	case "y":
		rot = mgl32.HomogRotate3DY(rad)
		scale = mgl32.Vec3{s, 1, s}
	case "z":
		rot = mgl32.HomogRotate3DZ(rad)
		scale = mgl32.Vec3{s, s, 1}
	default:
		return nil
	}
	if !r.Rescale {
		scale = mgl32.Vec3{1, 1, 1}
	}
	o := r.Origin
	m := mgl32.Translate3D(o[0], o[1], o[2]).
		Mul4(mgl32.Scale3D(scale[0], scale[1], scale[2])).
		Mul4(rot).
		Mul4(mgl32.Translate3D(-o[0], -o[1], -o[2]))
	return &m
}

func transformPoint(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

func transformNormal(m mgl32.Mat4, n mgl32.Vec3) mgl32.Vec3 {
	return m.Mat3().Mul3x1(n).Normalize()
}

// snap removes float noise left by right-angle rotations.
func snap(v mgl32.Vec3) mgl32.Vec3 {
	for i := range v {
		v[i] = float32(math.Round(float64(v[i])*1e4) / 1e4)
	}
	return v
}

// CubeQuads is an untextured unit cube, used for placeholders.
func CubeQuads(tint Color) []Quad {
	from, to := mgl32.Vec3{0, 0, 0}, mgl32.Vec3{16, 16, 16}
	quads := make([]Quad, 0, len(Directions))
	for _, dir := range Directions {
		q := Quad{Normal: dir.Normal(), Facing: dir, CullFace: dir, Tint: tint}
		uvs := uvCorners(DefaultUV(dir, from, to))
		for i, c := range FaceCorners(dir, from, to) {
			q.Positions[i] = c.Mul(1.0 / 16)
			q.UVs[i] = uvs[i].Mul(1.0 / 16)
		}
		quads = append(quads, q)
	}
	return quads
}
