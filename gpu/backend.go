package gpu

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/blockview"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

type cameraUniform struct {
	ViewProj mgl32.Mat4
}

type materialUniform struct {
	Tint  [4]float32
	Shade [4]float32
}

type modelUniform struct {
	Origin [4]float32
}

type texture struct {
	tex  *wgpu.Texture
	view *wgpu.TextureView
}

type material struct {
	uniform *wgpu.Buffer
	group   *wgpu.BindGroup
}

type mesh struct {
	vertices  *wgpu.Buffer
	indices   *wgpu.Buffer
	subMeshes []blockview.SubMesh
	materials []blockview.AssetId
}

type instance struct {
	mesh      blockview.AssetId
	materials []blockview.AssetId
	uniform   *wgpu.Buffer
	group     *wgpu.BindGroup
}

// Backend uploads block assets to a WebGPU device and draws every placed
// instance. Asset methods may be called from any goroutine; Draw runs on
// the render thread.
type Backend struct {
	ctx      *Context
	pipeline *wgpu.RenderPipeline
	sampler  *wgpu.Sampler
	white    *texture

	camera      *wgpu.Buffer
	cameraGroup *wgpu.BindGroup

	mu        sync.Mutex
	textures  map[blockview.AssetId]*texture
	materials map[blockview.AssetId]*material
	meshes    map[blockview.AssetId]*mesh
	instances map[blockview.AssetId]*instance
}

var _ blockview.Backend = (*Backend)(nil)

func NewBackend(ctx *Context) (*Backend, error) {
	b := &Backend{
		ctx:       ctx,
		textures:  make(map[blockview.AssetId]*texture),
		materials: make(map[blockview.AssetId]*material),
		meshes:    make(map[blockview.AssetId]*mesh),
		instances: make(map[blockview.AssetId]*instance),
	}
	var err error
	if b.pipeline, err = createPipeline(ctx); err != nil {
		return nil, err
	}
	b.sampler, err = ctx.device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeNearest,
		MinFilter:     wgpu.FilterModeNearest,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("sampler: %w", err)
	}
	b.white, err = b.uploadTexture(blockview.TextureData{
		URI:    "white",
		Width:  1,
		Height: 1,
		Format: blockview.TextureFormatRGBA8Unorm,
		Texels: []uint8{255, 255, 255, 255},
	})
	if err != nil {
		return nil, err
	}
	if b.camera, err = b.createBuffer("camera", wgpu.ToBytes([]cameraUniform{{ViewProj: mgl32.Ident4()}}), wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst); err != nil {
		return nil, err
	}
	if b.cameraGroup, err = b.bindGroup(0, []wgpu.BindGroupEntry{{Binding: 0, Buffer: b.camera, Size: wgpu.WholeSize}}); err != nil {
		return nil, err
	}
	return b, nil
}

func createPipeline(ctx *Context) (*wgpu.RenderPipeline, error) {
	shader, err := ctx.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "block shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: blockWGSL},
	})
	if err != nil {
		return nil, fmt.Errorf("block shader: %w", err)
	}
	defer shader.Release()

	layout, err := vertexLayout(Vertex{})
	if err != nil {
		return nil, err
	}
	pipeline, err := ctx.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "block pipeline",
		Vertex: wgpu.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
			Buffers:    []wgpu.VertexBufferLayout{layout},
		},
		Fragment: &wgpu.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    ctx.Format(),
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeBack,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("block pipeline: %w", err)
	}
	return pipeline, nil
}

func makeAssetId() blockview.AssetId {
	return blockview.AssetId(uuid.NewString())
}

func (b *Backend) createBuffer(label string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	buf, err := b.ctx.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label,
		Contents: data,
		Usage:    usage,
	})
	if err != nil {
		return nil, fmt.Errorf("buffer %s: %w", label, err)
	}
	return buf, nil
}

func (b *Backend) bindGroup(group uint32, entries []wgpu.BindGroupEntry) (*wgpu.BindGroup, error) {
	layout := b.pipeline.GetBindGroupLayout(group)
	defer layout.Release()
	return b.ctx.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout:  layout,
		Entries: entries,
	})
}

func (b *Backend) uploadTexture(data blockview.TextureData) (*texture, error) {
	format := wgpu.TextureFormat(data.Format)
	bpp, err := bytesPerPixel(format)
	if err != nil {
		return nil, err
	}
	if uint32(len(data.Texels)) != data.Width*data.Height*bpp {
		return nil, fmt.Errorf("texture %s: %dx%d does not match %d bytes", data.URI, data.Width, data.Height, len(data.Texels))
	}
	extent := wgpu.Extent3D{Width: data.Width, Height: data.Height, DepthOrArrayLayers: 1}
	tex, err := b.ctx.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         data.URI,
		Size:          extent,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("texture %s: %w", data.URI, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("texture %s view: %w", data.URI, err)
	}
	err = b.ctx.queue.WriteTexture(
		tex.AsImageCopy(),
		data.Texels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  data.Width * bpp,
			RowsPerImage: data.Height,
		},
		&extent,
	)
	if err != nil {
		view.Release()
		tex.Release()
		return nil, fmt.Errorf("texture %s upload: %w", data.URI, err)
	}
	return &texture{tex: tex, view: view}, nil
}

func (b *Backend) LoadTexture(data blockview.TextureData) (blockview.AssetId, error) {
	t, err := b.uploadTexture(data)
	if err != nil {
		return "", err
	}
	id := makeAssetId()
	b.mu.Lock()
	b.textures[id] = t
	b.mu.Unlock()
	return id, nil
}

func (b *Backend) CreateMaterial(desc blockview.MaterialDesc) (blockview.AssetId, error) {
	b.mu.Lock()
	tex := b.white
	if desc.Texture != "" {
		var ok bool
		if tex, ok = b.textures[desc.Texture]; !ok {
			b.mu.Unlock()
			return "", fmt.Errorf("material %s: unknown texture %s", desc.Key, desc.Texture)
		}
	}
	b.mu.Unlock()

	u := materialUniform{Tint: desc.Tint, Shade: desc.Shade}
	buf, err := b.createBuffer("material", wgpu.ToBytes([]materialUniform{u}), wgpu.BufferUsageUniform)
	if err != nil {
		return "", err
	}
	group, err := b.bindGroup(1, []wgpu.BindGroupEntry{
		{Binding: 0, Buffer: buf, Size: wgpu.WholeSize},
		{Binding: 1, TextureView: tex.view, Size: wgpu.WholeSize},
		{Binding: 2, Sampler: b.sampler, Size: wgpu.WholeSize},
	})
	if err != nil {
		buf.Release()
		return "", fmt.Errorf("material %s: %w", desc.Key, err)
	}
	id := makeAssetId()
	b.mu.Lock()
	b.materials[id] = &material{uniform: buf, group: group}
	b.mu.Unlock()
	return id, nil
}

func (b *Backend) CreateMesh(m *blockview.BatchedMesh, materials []blockview.AssetId) (blockview.AssetId, error) {
	if len(materials) != len(m.Materials) {
		return "", fmt.Errorf("mesh has %d material slots, got %d materials", len(m.Materials), len(materials))
	}
	if len(m.Indices) == 0 {
		return "", fmt.Errorf("mesh has no indices")
	}
	vertices, err := b.createBuffer("vertices", wgpu.ToBytes(interleave(m)), wgpu.BufferUsageVertex)
	if err != nil {
		return "", err
	}
	indices, err := b.createBuffer("indices", wgpu.ToBytes(m.Indices), wgpu.BufferUsageIndex)
	if err != nil {
		vertices.Release()
		return "", err
	}
	id := makeAssetId()
	b.mu.Lock()
	b.meshes[id] = &mesh{
		vertices:  vertices,
		indices:   indices,
		subMeshes: append([]blockview.SubMesh(nil), m.SubMeshes...),
		materials: materials,
	}
	b.mu.Unlock()
	return id, nil
}

func (b *Backend) CloneMesh(meshID blockview.AssetId, materials []blockview.AssetId, origin mgl32.Vec3) (blockview.AssetId, error) {
	b.mu.Lock()
	src, ok := b.meshes[meshID]
	b.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("clone: unknown mesh %s", meshID)
	}
	if materials == nil {
		materials = src.materials
	}
	if len(materials) != len(src.materials) {
		return "", fmt.Errorf("clone %s: want %d materials, got %d", meshID, len(src.materials), len(materials))
	}
	u := modelUniform{Origin: [4]float32{origin[0], origin[1], origin[2], 1}}
	buf, err := b.createBuffer("model", wgpu.ToBytes([]modelUniform{u}), wgpu.BufferUsageUniform)
	if err != nil {
		return "", err
	}
	group, err := b.bindGroup(2, []wgpu.BindGroupEntry{{Binding: 0, Buffer: buf, Size: wgpu.WholeSize}})
	if err != nil {
		buf.Release()
		return "", fmt.Errorf("clone %s: %w", meshID, err)
	}
	id := makeAssetId()
	b.mu.Lock()
	b.instances[id] = &instance{mesh: meshID, materials: materials, uniform: buf, group: group}
	b.mu.Unlock()
	return id, nil
}

// Release frees the GPU objects behind id. Unknown ids are ignored.
func (b *Backend) Release(id blockview.AssetId) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if inst, ok := b.instances[id]; ok {
		inst.group.Release()
		inst.uniform.Release()
		delete(b.instances, id)
	}
	if m, ok := b.meshes[id]; ok {
		m.vertices.Release()
		m.indices.Release()
		delete(b.meshes, id)
	}
	if mat, ok := b.materials[id]; ok {
		mat.group.Release()
		mat.uniform.Release()
		delete(b.materials, id)
	}
	if t, ok := b.textures[id]; ok {
		t.view.Release()
		t.tex.Release()
		delete(b.textures, id)
	}
}

// SetCamera uploads the view-projection matrix used by the next Draw.
func (b *Backend) SetCamera(viewProj mgl32.Mat4) {
	b.ctx.queue.WriteBuffer(b.camera, 0, wgpu.ToBytes([]cameraUniform{{ViewProj: viewProj}}))
}

// Draw records every placed instance into pass.
func (b *Backend) Draw(pass *wgpu.RenderPassEncoder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pass.SetPipeline(b.pipeline)
	pass.SetBindGroup(0, b.cameraGroup, nil)
	for _, inst := range b.instances {
		m, ok := b.meshes[inst.mesh]
		if !ok {
			continue
		}
		pass.SetBindGroup(2, inst.group, nil)
		pass.SetVertexBuffer(0, m.vertices, 0, m.vertices.GetSize())
		pass.SetIndexBuffer(m.indices, wgpu.IndexFormatUint32, 0, m.indices.GetSize())
		for _, sub := range m.subMeshes {
			mat, ok := b.materials[inst.materials[sub.Material]]
			if !ok {
				continue
			}
			pass.SetBindGroup(1, mat.group, nil)
			pass.DrawIndexed(uint32(sub.IndexCount), 1, uint32(sub.IndexStart), 0, 0)
		}
	}
}

// Counts reports live assets by kind.
func (b *Backend) Counts() (textures, materials, meshes, instances int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.textures), len(b.materials), len(b.meshes), len(b.instances)
}

func (b *Backend) Close() {
	b.mu.Lock()
	ids := make([]blockview.AssetId, 0, len(b.textures)+len(b.materials)+len(b.meshes)+len(b.instances))
	for id := range b.instances {
		ids = append(ids, id)
	}
	for id := range b.meshes {
		ids = append(ids, id)
	}
	for id := range b.materials {
		ids = append(ids, id)
	}
	for id := range b.textures {
		ids = append(ids, id)
	}
	b.mu.Unlock()
	for _, id := range ids {
		b.Release(id)
	}
	b.cameraGroup.Release()
	b.camera.Release()
	b.white.view.Release()
	b.white.tex.Release()
	b.sampler.Release()
	b.pipeline.Release()
}
