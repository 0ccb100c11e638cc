package glcompute

import (
	"fmt"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glContext owns a hidden 1x1 window whose only purpose is to carry an
// OpenGL 4.3 core context. All calls must stay on the creating OS thread.
type glContext struct {
	window *glfw.Window
}

func newContext() (*glContext, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize glfw: %w", err)
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)

	window, err := glfw.CreateWindow(1, 1, "voxgrass-compute", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create compute context: %w", err)
	}
	window.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	return &glContext{window: window}, nil
}

func (c *glContext) version() string {
	return gl.GoStr(gl.GetString(gl.VERSION))
}

func (c *glContext) close() {
	if c.window == nil {
		return
	}
	c.window.Destroy()
	c.window = nil
	glfw.Terminate()
}

func glError(label string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("gl error %s: 0x%x", label, code)
	}
	return nil
}
