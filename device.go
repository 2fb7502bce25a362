package neutronvk

import (
	vk "github.com/vulkan-go/vulkan"
)

const swapchainExtension = "VK_KHR_swapchain"

// Device is a logical device on one accelerator with its graphics and
// compute queues, both drawn from a single queue family. It retains its
// Context; every object created from it retains the device.
type Device struct {
	refCounted

	ctx      *Context
	physical *PhysicalDevice
	handle   vk.Device
	family   uint32

	graphics   *Queue
	compute    *Queue
	extensions []string
}

// NewDevice selects the first accelerator with a queue family that supports
// graphics and, when surface is not nil, presentation to it. Accelerators
// lacking the swapchain extension are skipped when a surface is given. When
// some accelerator has the extensions but no matching family the error is
// ErrNoSuitableQueue, which also matches ErrNoSuitableDevice.
func NewDevice(ctx *Context, surface *Surface) (*Device, error) {
	gpus, err := ctx.PhysicalDevices()
	if err != nil {
		return nil, err
	}

	kind := ErrNoSuitableDevice
	for _, pd := range gpus {
		available, err := pd.Extensions()
		if err != nil {
			return nil, err
		}
		exts := extensionSet{
			kind:   "device extension",
			wanted: ctx.deviceExtensions,
			actual: available,
		}
		var present func(uint32) bool
		if surface != nil {
			exts.required = []string{swapchainExtension}
			present = func(family uint32) bool {
				return surface.supports(pd, family)
			}
		}
		if len(exts.missing()) > 0 {
			Logger().Debug("skipping device without required extensions", "device", pd.Name, "missing", exts.missing())
			continue
		}
		family, ok := selectQueueFamily(pd.families, present)
		if !ok {
			Logger().Debug("skipping device without a suitable queue family", "device", pd.Name)
			kind = ErrNoSuitableQueue
			continue
		}
		return createDevice(ctx, pd, family, exts.enabled())
	}
	if surface != nil {
		return nil, failf(kind, "no device supports graphics and presentation")
	}
	return nil, failf(kind, "no device supports graphics")
}

func createDevice(ctx *Context, pd *PhysicalDevice, family uint32, extensions []string) (*Device, error) {
	count, graphicsIndex, computeIndex := queueRoles(pd.families[family].QueueCount)
	priorities := make([]float32, count)
	for i := range priorities {
		priorities[i] = 1.0
	}
	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: family,
		QueueCount:       count,
		PQueuePriorities: priorities,
	}}

	var device vk.Device
	ret := vk.CreateDevice(pd.handle, &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		EnabledLayerCount:       uint32(len(ctx.layers)),
		PpEnabledLayerNames:     safeStrings(ctx.layers),
	}, nil, &device)
	if isError(ret) {
		switch ret {
		case vk.ErrorFeatureNotPresent, vk.ErrorExtensionNotPresent:
			return nil, newError(ErrNoSuitableDevice, "create device", ret)
		}
		return nil, newCreateError(ErrInitialization, "create device", ret)
	}

	d := &Device{
		ctx:        ctx,
		physical:   pd,
		handle:     device,
		family:     family,
		extensions: extensions,
	}
	d.graphics = d.queue(graphicsIndex, RoleGraphics)
	d.compute = d.queue(computeIndex, RoleCompute)

	ctx.Retain()
	d.init(d.destroy)
	Logger().Info("device created",
		"device", pd.Name, "family", family, "queues", count, "extensions", len(extensions))
	return d, nil
}

func (d *Device) queue(index uint32, role string) *Queue {
	q := &Queue{device: d, family: d.family, index: index, role: role}
	vk.GetDeviceQueue(d.handle, d.family, index, &q.handle)
	return q
}

// destroy drains all queued work before the device handle goes away.
func (d *Device) destroy() {
	if err := d.WaitIdle(); err != nil {
		Logger().Warn("device wait idle failed during teardown", "error", err)
	}
	vk.DestroyDevice(d.handle, nil)
	d.handle = nil
	Logger().Info("device destroyed", "device", d.physical.Name)
	d.ctx.Release()
}

// Handle returns the native device.
func (d *Device) Handle() vk.Device { return d.handle }

// Context returns the context the device was created from.
func (d *Device) Context() *Context { return d.ctx }

// PhysicalDevice returns the selected accelerator.
func (d *Device) PhysicalDevice() *PhysicalDevice { return d.physical }

// QueueFamily returns the family both queues belong to.
func (d *Device) QueueFamily() uint32 { return d.family }

func (d *Device) GraphicsQueue() *Queue { return d.graphics }

// ComputeQueue may be the same queue as GraphicsQueue when the family
// exposes only one.
func (d *Device) ComputeQueue() *Queue { return d.compute }

// MemoryProperties returns the memory types of the selected accelerator.
func (d *Device) MemoryProperties() vk.PhysicalDeviceMemoryProperties { return d.physical.memory }

// Extensions returns the enabled device extensions.
func (d *Device) Extensions() []string { return d.extensions }

// WaitIdle blocks until all queues of the device are idle.
func (d *Device) WaitIdle() error {
	return newError(ErrSynchronization, "device wait idle", vk.DeviceWaitIdle(d.handle))
}
