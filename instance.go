package neutronvk

import (
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

const debugReportExtension = "VK_EXT_debug_report"

var loader struct {
	sync.Mutex
	ready bool
}

// initLoader resolves the Vulkan entry points once per process. A failed
// attempt is retried by the next Context.
func initLoader(procAddr unsafe.Pointer) error {
	loader.Lock()
	defer loader.Unlock()
	if loader.ready {
		return nil
	}
	if procAddr != nil {
		vk.SetGetInstanceProcAddr(procAddr)
	} else if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return errors.Wrap(&Error{Kind: ErrInitialization, Op: "load vulkan library"}, err.Error())
	}
	if err := vk.Init(); err != nil {
		return errors.Wrap(&Error{Kind: ErrInitialization, Op: "init vulkan"}, err.Error())
	}
	loader.ready = true
	return nil
}

// Context is the connection to the driver and the root of the ownership
// tree. Devices and surfaces retain it; the instance is destroyed when the
// last of them and the caller have released it.
type Context struct {
	refCounted

	instance      vk.Instance
	debugCallback vk.DebugReportCallback
	debug         *debugger

	name             string
	apiVersion       uint32
	extensions       []string
	layers           []string
	deviceExtensions []string
}

// NewContext loads the driver and creates an instance for app. Instance
// extensions requested by app must exist; layers and the debug extension are
// dropped with a warning when unavailable.
func NewContext(app Application) (*Context, error) {
	var procAddr unsafe.Pointer
	if iface, ok := app.(ApplicationProcAddr); ok {
		procAddr = iface.VulkanProcAddr()
	}
	if err := initLoader(procAddr); err != nil {
		return nil, err
	}

	debug := false
	if iface, ok := app.(ApplicationVulkanDebug); ok {
		debug = iface.VulkanDebug()
	}

	actual, err := InstanceExtensions()
	if err != nil {
		return nil, err
	}
	exts := extensionSet{
		kind:     "instance extension",
		required: app.VulkanInstanceExtensions(),
		actual:   actual,
	}
	if debug {
		exts.wanted = []string{debugReportExtension}
	}
	if missing := exts.missing(); len(missing) > 0 {
		return nil, failf(ErrInitialization, "missing instance extensions %v", missing)
	}
	extensions := exts.enabled()

	var layers []string
	if iface, ok := app.(ApplicationVulkanLayers); ok && len(iface.VulkanLayers()) > 0 {
		actualLayers, err := ValidationLayers()
		if err != nil {
			return nil, err
		}
		set := extensionSet{kind: "layer", wanted: iface.VulkanLayers(), actual: actualLayers}
		layers = set.enabled()
	}

	var instance vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			ApiVersion:         app.VulkanAPIVersion(),
			ApplicationVersion: app.VulkanAppVersion(),
			PApplicationName:   safeString(app.VulkanAppName()),
			PEngineName:        safeString(DefaultEngineName),
		},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     safeStrings(layers),
	}, nil, &instance)
	if isError(ret) {
		return nil, newError(ErrInitialization, "create instance", ret)
	}
	vk.InitInstance(instance)

	c := &Context{
		instance:      instance,
		debugCallback: vk.NullDebugReportCallback,
		debug:         newDebugger(),
		name:          app.VulkanAppName(),
		apiVersion:    app.VulkanAPIVersion(),
		extensions:    extensions,
		layers:        layers,
	}
	if iface, ok := app.(ApplicationDeviceExtensions); ok {
		c.deviceExtensions = iface.VulkanDeviceExtensions()
	}

	if debug && contains(extensions, debugReportExtension) {
		ret := vk.CreateDebugReportCallback(instance, &vk.DebugReportCallbackCreateInfo{
			SType: vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit |
				vk.DebugReportPerformanceWarningBit | vk.DebugReportInformationBit | vk.DebugReportDebugBit),
			PfnCallback: c.debug.callback,
		}, nil, &c.debugCallback)
		if isError(ret) {
			vk.DestroyInstance(instance, nil)
			return nil, newError(ErrInitialization, "create debug report callback", ret)
		}
	}

	c.init(c.destroy)
	Logger().Info("instance created",
		"app", c.name, "extensions", len(extensions), "layers", len(layers), "debug", c.Debugging())
	return c, nil
}

func (c *Context) destroy() {
	if c.debugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(c.instance, c.debugCallback, nil)
		c.debugCallback = vk.NullDebugReportCallback
	}
	vk.DestroyInstance(c.instance, nil)
	c.instance = nil
	Logger().Info("instance destroyed", "app", c.name)
}

// Handle returns the native instance.
func (c *Context) Handle() vk.Instance { return c.instance }

// Extensions returns the enabled instance extensions.
func (c *Context) Extensions() []string { return c.extensions }

// Layers returns the enabled layers.
func (c *Context) Layers() []string { return c.layers }

// Debugging reports whether driver diagnostics reach the debug handler.
func (c *Context) Debugging() bool {
	return c.debugCallback != vk.NullDebugReportCallback
}

// SetDebugHandler replaces the receiver of driver diagnostics. nil restores
// LogDebugMessage. Messages arrive one at a time in emission order.
func (c *Context) SetDebugHandler(fn func(DebugMessage)) {
	c.debug.setHandler(fn)
}

// PhysicalDevice is an accelerator reported by the driver. It is valid while
// its Context lives.
type PhysicalDevice struct {
	handle vk.PhysicalDevice

	Name          string
	Type          vk.PhysicalDeviceType
	APIVersion    uint32
	DriverVersion uint32
	VendorID      uint32
	DeviceID      uint32

	memory   vk.PhysicalDeviceMemoryProperties
	families []vk.QueueFamilyProperties
}

// PhysicalDevices enumerates the accelerators in driver order.
func (c *Context) PhysicalDevices() ([]*PhysicalDevice, error) {
	var count uint32
	ret := vk.EnumeratePhysicalDevices(c.instance, &count, nil)
	if isError(ret) {
		return nil, newError(ErrNoSuitableDevice, "enumerate physical devices", ret)
	}
	if count == 0 {
		return nil, failf(ErrNoSuitableDevice, "enumerate physical devices: none found")
	}
	gpus := make([]vk.PhysicalDevice, count)
	ret = vk.EnumeratePhysicalDevices(c.instance, &count, gpus)
	if isError(ret) && ret != vk.Incomplete {
		return nil, newError(ErrNoSuitableDevice, "enumerate physical devices", ret)
	}
	out := make([]*PhysicalDevice, 0, count)
	for _, gpu := range gpus[:count] {
		out = append(out, newPhysicalDevice(gpu))
	}
	return out, nil
}

func newPhysicalDevice(gpu vk.PhysicalDevice) *PhysicalDevice {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(gpu, &props)
	props.Deref()

	pd := &PhysicalDevice{
		handle:        gpu,
		Name:          vk.ToString(props.DeviceName[:]),
		Type:          props.DeviceType,
		APIVersion:    props.ApiVersion,
		DriverVersion: props.DriverVersion,
		VendorID:      props.VendorID,
		DeviceID:      props.DeviceID,
	}

	vk.GetPhysicalDeviceMemoryProperties(gpu, &pd.memory)
	pd.memory.Deref()
	for i := uint32(0); i < pd.memory.MemoryTypeCount; i++ {
		pd.memory.MemoryTypes[i].Deref()
	}

	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, nil)
	pd.families = make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, pd.families)
	for i := range pd.families {
		pd.families[i].Deref()
	}
	return pd
}

// Handle returns the native physical device.
func (pd *PhysicalDevice) Handle() vk.PhysicalDevice { return pd.handle }

// MemoryProperties returns the memory types and heaps of the device.
func (pd *PhysicalDevice) MemoryProperties() vk.PhysicalDeviceMemoryProperties { return pd.memory }

// QueueFamilies returns the queue family properties in index order.
func (pd *PhysicalDevice) QueueFamilies() []vk.QueueFamilyProperties { return pd.families }

// Extensions lists the device extensions the accelerator supports.
func (pd *PhysicalDevice) Extensions() ([]string, error) {
	return DeviceExtensions(pd.handle)
}
