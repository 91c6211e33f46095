package gpu

import (
	"context"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/blockview"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// Viewer runs the window's frame loop: input, camera upload and one
// render pass drawing the backend's instances.
type Viewer struct {
	Window  *Window
	Context *Context
	Backend *Backend
	Camera  *OrbitCamera
	Log     blockview.Logger

	dragging     bool
	lastX, lastY float64
	resized      bool
}

func NewViewer(win *Window, ctx *Context, backend *Backend, camera *OrbitCamera, log blockview.Logger) *Viewer {
	v := &Viewer{Window: win, Context: ctx, Backend: backend, Camera: camera, Log: log}
	if v.Log == nil {
		v.Log = blockview.NewNopLogger()
	}
	v.installCallbacks()
	return v
}

func (v *Viewer) installCallbacks() {
	w := v.Window.glfw
	w.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		v.resized = true
	})
	w.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button == glfw.MouseButtonLeft {
			v.dragging = action == glfw.Press
			v.lastX, v.lastY = w.GetCursorPos()
		}
	})
	w.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		if v.dragging {
			v.Camera.Orbit(float32(x-v.lastX), float32(y-v.lastY))
		}
		v.lastX, v.lastY = x, y
	})
	w.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		v.Camera.Zoom(float32(yoff))
	})
	w.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press && action != glfw.Repeat {
			return
		}
		step := v.Camera.Distance * 0.05
		switch key {
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		case glfw.KeyW:
			v.Camera.Pan(0, step)
		case glfw.KeyS:
			v.Camera.Pan(0, -step)
		case glfw.KeyA:
			v.Camera.Pan(-step, 0)
		case glfw.KeyD:
			v.Camera.Pan(step, 0)
		case glfw.KeySpace:
			v.Camera.Target[1] += step
		case glfw.KeyLeftShift:
			v.Camera.Target[1] -= step
		}
	})
}

// Run polls events and renders until the window closes or ctx is done.
func (v *Viewer) Run(ctx context.Context) error {
	for !v.Window.ShouldClose() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		glfw.PollEvents()
		if v.resized {
			v.resized = false
			if err := v.Context.Resize(v.Window.FramebufferSize()); err != nil {
				return err
			}
		}
		if err := v.render(); err != nil {
			v.Log.Warnf("frame: %v", err)
		}
	}
	return nil
}

func (v *Viewer) render() error {
	c := v.Context
	next, err := c.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("surface texture: %w", err)
	}
	defer next.Release()
	view, err := next.CreateView(nil)
	if err != nil {
		return fmt.Errorf("surface view: %w", err)
	}
	defer view.Release()

	v.Backend.SetCamera(v.Camera.ViewProj(c.Aspect()))

	encoder, err := c.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("command encoder: %w", err)
	}
	defer encoder.Release()
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0.53, G: 0.71, B: 0.92, A: 1},
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            c.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1,
		},
	})
	v.Backend.Draw(pass)
	if err := pass.End(); err != nil {
		return fmt.Errorf("render pass: %w", err)
	}
	pass.Release()

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish: %w", err)
	}
	defer cmd.Release()
	c.queue.Submit(cmd)
	c.surface.Present()
	return nil
}
