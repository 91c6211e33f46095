package gpu

// blockWGSL draws block meshes: texture sample times tint, light shade and
// a fixed per-face factor. Texels with alpha below one half are cut out.
const blockWGSL = `
struct Camera {
    view_proj: mat4x4<f32>,
};
@group(0) @binding(0) var<uniform> camera: Camera;

struct Material {
    tint: vec4<f32>,
    shade: vec4<f32>,
};
@group(1) @binding(0) var<uniform> material: Material;
@group(1) @binding(1) var block_texture: texture_2d<f32>;
@group(1) @binding(2) var block_sampler: sampler;

struct Model {
    origin: vec4<f32>,
};
@group(2) @binding(0) var<uniform> model: Model;

struct VertexInput {
    @location(0) position: vec3<f32>,
    @location(1) uv: vec2<f32>,
    @location(2) normal: vec3<f32>,
};

struct VertexOutput {
    @builtin(position) clip: vec4<f32>,
    @location(0) uv: vec2<f32>,
    @location(1) normal: vec3<f32>,
};

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    let world = in.position + model.origin.xyz;
    out.clip = camera.view_proj * vec4<f32>(world, 1.0);
    out.uv = in.uv;
    out.normal = in.normal;
    return out;
}

fn face_factor(n: vec3<f32>) -> f32 {
    let a = abs(n);
    var y = 0.5;
    if (n.y > 0.0) {
        y = 1.0;
    }
    return a.x * 0.6 + a.z * 0.8 + a.y * y;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    let texel = textureSample(block_texture, block_sampler, in.uv);
    if (texel.a < 0.5) {
        discard;
    }
    let rgb = texel.rgb * material.tint.rgb * material.shade.rgb * face_factor(normalize(in.normal));
    return vec4<f32>(rgb, 1.0);
}
`
