package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
)

const depthFormat = wgpu.TextureFormatDepth24Plus

// Context owns the surface, device and depth buffer of one window.
type Context struct {
	surface *wgpu.Surface
	adapter *wgpu.Adapter
	device  *wgpu.Device
	queue   *wgpu.Queue
	config  *wgpu.SurfaceConfiguration

	depth     *wgpu.Texture
	depthView *wgpu.TextureView
}

func NewContext(win *Window) (*Context, error) {
	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(win.glfw))
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: "blockview device"})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}

	width, height := win.FramebufferSize()
	caps := surface.GetCapabilities(adapter)
	config := &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo, // vsync
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, device, config)

	c := &Context{
		surface: surface,
		adapter: adapter,
		device:  device,
		queue:   device.GetQueue(),
		config:  config,
	}
	if err := c.createDepth(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Context) Format() wgpu.TextureFormat { return c.config.Format }

func (c *Context) Aspect() float32 {
	if c.config.Height == 0 {
		return 1
	}
	return float32(c.config.Width) / float32(c.config.Height)
}

// Resize reconfigures the surface and depth buffer. Zero sizes (minimized
// windows) are ignored.
func (c *Context) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	c.config.Width = uint32(width)
	c.config.Height = uint32(height)
	c.surface.Configure(c.adapter, c.device, c.config)
	return c.createDepth()
}

func (c *Context) createDepth() error {
	if c.depthView != nil {
		c.depthView.Release()
		c.depth.Release()
	}
	tex, err := c.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "depth",
		Size:          wgpu.Extent3D{Width: c.config.Width, Height: c.config.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        depthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("depth texture: %w", err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return fmt.Errorf("depth view: %w", err)
	}
	c.depth, c.depthView = tex, view
	return nil
}

func (c *Context) Release() {
	if c.depthView != nil {
		c.depthView.Release()
		c.depth.Release()
	}
	c.device.Release()
	c.adapter.Release()
	c.surface.Release()
}
