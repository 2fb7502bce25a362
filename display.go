package neutronvk

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
)

// Display is a glfw window set up for Vulkan presentation. glfw requires
// its calls on the main thread; callers lock the OS thread first.
type Display struct {
	window *glfw.Window
}

// NewDisplay initializes glfw and opens a window without a client API.
func NewDisplay(title string, width, height int) (*Display, error) {
	if err := glfw.Init(); err != nil {
		return nil, errors.Wrap(&Error{Kind: ErrInitialization, Op: "init glfw"}, err.Error())
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return nil, failf(ErrInitialization, "glfw reports no vulkan support")
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, errors.Wrap(&Error{Kind: ErrInitialization, Op: "create window"}, err.Error())
	}
	return &Display{window: window}, nil
}

// Window returns the glfw window. It satisfies the Window interface.
func (d *Display) Window() *glfw.Window { return d.window }

// AppInfo returns an application description carrying the instance
// extensions and loader entry point glfw needs for presentation.
func (d *Display) AppInfo(name string) *AppInfo {
	return &AppInfo{
		Name:       name,
		Extensions: d.window.GetRequiredInstanceExtensions(),
		ProcAddr:   glfw.GetVulkanGetInstanceProcAddress(),
	}
}

// ShouldClose reports whether the user asked to close the window.
func (d *Display) ShouldClose() bool { return d.window.ShouldClose() }

// PollEvents processes pending window events.
func (d *Display) PollEvents() { glfw.PollEvents() }

// Destroy closes the window and terminates glfw. Surfaces created for the
// window must be released first.
func (d *Display) Destroy() {
	d.window.Destroy()
	glfw.Terminate()
}
