package gpu

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// Window is a GLFW window without a client API; WebGPU draws into it.
// Create and use it on the main OS thread.
type Window struct {
	glfw   *glfw.Window
	Width  int
	Height int
	Title  string
}

func NewWindow(width, height int, title string) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init: %w", err)
	}
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}
	if title == "" {
		title = "blockview"
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // no OpenGL context
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}
	return &Window{glfw: win, Width: width, Height: height, Title: title}, nil
}

func (w *Window) ShouldClose() bool { return w.glfw.ShouldClose() }

func (w *Window) FramebufferSize() (int, int) { return w.glfw.GetFramebufferSize() }

func (w *Window) Destroy() {
	w.glfw.Destroy()
	glfw.Terminate()
}
