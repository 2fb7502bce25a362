package neutronvk

import (
	"sync"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Window is the display target a Surface presents to. *glfw.Window
// satisfies it.
type Window interface {
	CreateWindowSurface(instance interface{}, allocCallbacks unsafe.Pointer) (surface uintptr, err error)
	GetFramebufferSize() (width, height int)
}

// SurfaceInfo is the result of negotiating with the display subsystem for
// one device. It is stale once the window is resized.
type SurfaceInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode

	// Chosen values.
	Format      vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D

	width, height int
}

// Surface binds a window to the context. It retains the context.
type Surface struct {
	refCounted

	ctx    *Context
	handle vk.Surface
	window Window

	mu    sync.RWMutex
	infos *SurfaceInfo
}

func NewSurface(ctx *Context, window Window) (*Surface, error) {
	ptr, err := window.CreateWindowSurface(ctx.instance, nil)
	if err != nil {
		return nil, failf(ErrInitialization, "create window surface: %v", err)
	}
	s := &Surface{
		ctx:    ctx,
		handle: vk.SurfaceFromPointer(ptr),
		window: window,
	}
	ctx.Retain()
	s.init(s.destroy)
	return s, nil
}

func (s *Surface) destroy() {
	vk.DestroySurface(s.ctx.instance, s.handle, nil)
	s.ctx.Release()
}

// Handle returns the native surface.
func (s *Surface) Handle() vk.Surface { return s.handle }

func (s *Surface) Window() Window { return s.window }

func (s *Surface) supports(pd *PhysicalDevice, family uint32) bool {
	var supported vk.Bool32
	ret := vk.GetPhysicalDeviceSurfaceSupport(pd.handle, family, s.handle, &supported)
	return !isError(ret) && supported == vk.True
}

// SetupInfos queries the surface capabilities for d and caches them. Call it
// again after every resize.
func (s *Surface) SetupInfos(d *Device) (*SurfaceInfo, error) {
	gpu := d.physical.handle

	info := &SurfaceInfo{}
	ret := vk.GetPhysicalDeviceSurfaceCapabilities(gpu, s.handle, &info.Capabilities)
	if isError(ret) {
		return nil, surfaceError("query surface capabilities", ret)
	}
	info.Capabilities.Deref()
	info.Capabilities.CurrentExtent.Deref()
	info.Capabilities.MinImageExtent.Deref()
	info.Capabilities.MaxImageExtent.Deref()

	var count uint32
	ret = vk.GetPhysicalDeviceSurfaceFormats(gpu, s.handle, &count, nil)
	if isError(ret) {
		return nil, surfaceError("query surface formats", ret)
	}
	info.Formats = make([]vk.SurfaceFormat, count)
	ret = vk.GetPhysicalDeviceSurfaceFormats(gpu, s.handle, &count, info.Formats)
	if isError(ret) && ret != vk.Incomplete {
		return nil, surfaceError("query surface formats", ret)
	}
	info.Formats = info.Formats[:count]
	for i := range info.Formats {
		info.Formats[i].Deref()
	}

	count = 0
	ret = vk.GetPhysicalDeviceSurfacePresentModes(gpu, s.handle, &count, nil)
	if isError(ret) {
		return nil, surfaceError("query present modes", ret)
	}
	info.PresentModes = make([]vk.PresentMode, count)
	ret = vk.GetPhysicalDeviceSurfacePresentModes(gpu, s.handle, &count, info.PresentModes)
	if isError(ret) && ret != vk.Incomplete {
		return nil, surfaceError("query present modes", ret)
	}
	info.PresentModes = info.PresentModes[:count]

	format, ok := chooseSurfaceFormat(info.Formats)
	if !ok {
		return nil, failf(ErrSwapchainCreation, "surface reports no formats")
	}
	info.Format = format
	info.PresentMode = choosePresentMode(info.PresentModes)
	info.width, info.height = s.window.GetFramebufferSize()
	info.Extent = chooseExtent(info.Capabilities, info.width, info.height)

	s.mu.Lock()
	s.infos = info
	s.mu.Unlock()
	return info, nil
}

// Infos returns the cached negotiation result, nil before SetupInfos.
func (s *Surface) Infos() *SurfaceInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.infos
}

// Stale reports whether the cached infos are missing or were taken at a
// different window size.
func (s *Surface) Stale() bool {
	s.mu.RLock()
	infos := s.infos
	s.mu.RUnlock()
	if infos == nil {
		return true
	}
	w, h := s.window.GetFramebufferSize()
	return w != infos.width || h != infos.height
}

func surfaceError(op string, ret vk.Result) error {
	return newCreateError(ErrSwapchainCreation, op, ret)
}
