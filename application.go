package neutronvk

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Application describes the program creating a Context.
type Application interface {
	VulkanAppName() string
	VulkanAppVersion() uint32
	VulkanAPIVersion() uint32
	VulkanInstanceExtensions() []string

	// DECORATORS:
	// ApplicationVulkanLayers
	// ApplicationVulkanDebug
	// ApplicationDeviceExtensions
	// ApplicationProcAddr
}

type ApplicationVulkanLayers interface {
	VulkanLayers() []string
}

// ApplicationVulkanDebug enables the debug report extension and the delivery
// of driver diagnostics to the context's debug handler.
type ApplicationVulkanDebug interface {
	VulkanDebug() bool
}

type ApplicationDeviceExtensions interface {
	VulkanDeviceExtensions() []string
}

// ApplicationProcAddr supplies the vkGetInstanceProcAddr entry point, for
// example glfw.GetVulkanGetInstanceProcAddress(). Without it the system
// loader is used.
type ApplicationProcAddr interface {
	VulkanProcAddr() unsafe.Pointer
}

var (
	DefaultAppVersion = vk.MakeVersion(1, 0, 0)
	DefaultAPIVersion = vk.MakeVersion(1, 1, 0)
	DefaultEngineName = "neutron"
)

// ValidationLayer is enabled when AppInfo.Debug is set and no layers were
// given.
const ValidationLayer = "VK_LAYER_KHRONOS_validation"

// AppInfo is a plain Application implementing every decorator.
type AppInfo struct {
	Name       string
	Version    uint32
	APIVersion uint32
	// Extensions are instance extensions, e.g. the ones a window system
	// requires for presentation.
	Extensions       []string
	DeviceExtensions []string
	Layers           []string
	Debug            bool
	ProcAddr         unsafe.Pointer
}

func (a *AppInfo) VulkanAppName() string {
	if a.Name == "" {
		return DefaultEngineName
	}
	return a.Name
}

func (a *AppInfo) VulkanAppVersion() uint32 {
	if a.Version == 0 {
		return DefaultAppVersion
	}
	return a.Version
}

func (a *AppInfo) VulkanAPIVersion() uint32 {
	if a.APIVersion == 0 {
		return DefaultAPIVersion
	}
	return a.APIVersion
}

func (a *AppInfo) VulkanInstanceExtensions() []string { return a.Extensions }

func (a *AppInfo) VulkanDeviceExtensions() []string { return a.DeviceExtensions }

func (a *AppInfo) VulkanLayers() []string {
	if len(a.Layers) == 0 && a.Debug {
		return []string{ValidationLayer}
	}
	return a.Layers
}

func (a *AppInfo) VulkanDebug() bool { return a.Debug }

func (a *AppInfo) VulkanProcAddr() unsafe.Pointer { return a.ProcAddr }
