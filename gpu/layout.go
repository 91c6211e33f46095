package gpu

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/blockview"
)

// Vertex is the interleaved layout uploaded for block meshes. Fields tagged
// `gpu:"layout"` become vertex attributes.
type Vertex struct {
	Position [3]float32 `gpu:"layout" format:"float3" location:"0"`
	UV       [2]float32 `gpu:"layout" format:"float2" location:"1"`
	Normal   [3]float32 `gpu:"layout" format:"float3" location:"2"`
}

func parseFormat(name string) (wgpu.VertexFormat, error) {
	switch name {
	case "float2":
		return wgpu.VertexFormatFloat32x2, nil
	case "float3":
		return wgpu.VertexFormatFloat32x3, nil
	case "float4":
		return wgpu.VertexFormatFloat32x4, nil
	}
	return 0, fmt.Errorf("unsupported vertex layout format %q", name)
}

// vertexLayout derives a buffer layout from the tagged fields of a vertex
// struct, in declaration order.
func vertexLayout(vertexType any) (wgpu.VertexBufferLayout, error) {
	t := reflect.TypeOf(vertexType)
	if t.Kind() != reflect.Struct {
		return wgpu.VertexBufferLayout{}, fmt.Errorf("vertex type %v is not a struct", t)
	}

	var attributes []wgpu.VertexAttribute
	var offset uint64
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Tag.Get("gpu") == "layout" {
			format, err := parseFormat(field.Tag.Get("format"))
			if err != nil {
				return wgpu.VertexBufferLayout{}, fmt.Errorf("field %s: %w", field.Name, err)
			}
			location, err := strconv.Atoi(field.Tag.Get("location"))
			if err != nil {
				return wgpu.VertexBufferLayout{}, fmt.Errorf("field %s: location: %w", field.Name, err)
			}
			attributes = append(attributes, wgpu.VertexAttribute{
				ShaderLocation: uint32(location),
				Offset:         offset,
				Format:         format,
			})
		}
		offset += uint64(field.Type.Size())
	}

	return wgpu.VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attributes,
	}, nil
}

// interleave packs a batched mesh into vertices.
func interleave(m *blockview.BatchedMesh) []Vertex {
	out := make([]Vertex, len(m.Positions))
	for i := range out {
		out[i] = Vertex{Position: m.Positions[i], UV: m.UVs[i], Normal: m.Normals[i]}
	}
	return out
}

func bytesPerPixel(format wgpu.TextureFormat) (uint32, error) {
	switch format {
	case wgpu.TextureFormatR8Unorm:
		return 1, nil
	case wgpu.TextureFormatRG8Unorm:
		return 2, nil
	case wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatRGBA8UnormSrgb,
		wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatBGRA8UnormSrgb:
		return 4, nil
	case wgpu.TextureFormatRGBA16Float:
		return 8, nil
	case wgpu.TextureFormatRGBA32Float:
		return 16, nil
	}
	return 0, fmt.Errorf("unsupported texture format %v", format)
}
