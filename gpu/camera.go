package gpu

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// glToWebGPU remaps OpenGL clip depth [-1, 1] to WebGPU's [0, 1].
var glToWebGPU = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// OrbitCamera looks at Target from Distance away. Yaw 0 looks from +Z
// (south) toward -Z (north); +Y is up.
type OrbitCamera struct {
	Target      mgl32.Vec3
	Yaw         float32
	Pitch       float32
	Distance    float32
	FovY        float32
	Near, Far   float32
	Sensitivity float32
}

func NewOrbitCamera(target mgl32.Vec3) *OrbitCamera {
	return &OrbitCamera{
		Target:      target,
		Pitch:       0.6,
		Distance:    48,
		FovY:        mgl32.DegToRad(60),
		Near:        0.1,
		Far:         2000,
		Sensitivity: 0.005,
	}
}

func (c *OrbitCamera) Eye() mgl32.Vec3 {
	cp := float32(math.Cos(float64(c.Pitch)))
	dir := mgl32.Vec3{
		cp * float32(math.Sin(float64(c.Yaw))),
		float32(math.Sin(float64(c.Pitch))),
		cp * float32(math.Cos(float64(c.Yaw))),
	}
	return c.Target.Add(dir.Mul(c.Distance))
}

func (c *OrbitCamera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Eye(), c.Target, mgl32.Vec3{0, 1, 0})
}

func (c *OrbitCamera) ViewProj(aspect float32) mgl32.Mat4 {
	proj := mgl32.Perspective(c.FovY, aspect, c.Near, c.Far)
	return glToWebGPU.Mul4(proj).Mul4(c.View())
}

// Orbit turns the camera by a cursor delta in pixels.
func (c *OrbitCamera) Orbit(dx, dy float32) {
	c.Yaw -= dx * c.Sensitivity
	c.Pitch += dy * c.Sensitivity
	const limit = math.Pi/2 - 0.01
	c.Pitch = mgl32.Clamp(c.Pitch, -limit, limit)
}

// Zoom scales the distance; positive steps move closer.
func (c *OrbitCamera) Zoom(steps float32) {
	c.Distance *= float32(math.Pow(0.9, float64(steps)))
	c.Distance = mgl32.Clamp(c.Distance, 2, c.Far/2)
}

// Pan moves the target in the horizontal plane relative to the view.
func (c *OrbitCamera) Pan(right, forward float32) {
	sin, cos := float32(math.Sin(float64(c.Yaw))), float32(math.Cos(float64(c.Yaw)))
	fwd := mgl32.Vec3{-sin, 0, -cos}
	side := mgl32.Vec3{cos, 0, -sin}
	c.Target = c.Target.Add(side.Mul(right)).Add(fwd.Mul(forward))
}
