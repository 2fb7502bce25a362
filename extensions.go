package neutronvk

import (
	vk "github.com/vulkan-go/vulkan"
)

// InstanceExtensions gets a list of instance extensions available on the platform.
func InstanceExtensions() (names []string, err error) {
	var count uint32
	ret := vk.EnumerateInstanceExtensionProperties("", &count, nil)
	if isError(ret) {
		return nil, newError(ErrInitialization, "enumerate instance extensions", ret)
	}
	list := make([]vk.ExtensionProperties, count)
	ret = vk.EnumerateInstanceExtensionProperties("", &count, list)
	if isError(ret) && ret != vk.Incomplete {
		return nil, newError(ErrInitialization, "enumerate instance extensions", ret)
	}
	for _, ext := range list[:count] {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

// DeviceExtensions gets a list of extensions available on the provided physical device.
func DeviceExtensions(gpu vk.PhysicalDevice) (names []string, err error) {
	var count uint32
	ret := vk.EnumerateDeviceExtensionProperties(gpu, "", &count, nil)
	if isError(ret) {
		return nil, newError(ErrNoSuitableDevice, "enumerate device extensions", ret)
	}
	list := make([]vk.ExtensionProperties, count)
	ret = vk.EnumerateDeviceExtensionProperties(gpu, "", &count, list)
	if isError(ret) && ret != vk.Incomplete {
		return nil, newError(ErrNoSuitableDevice, "enumerate device extensions", ret)
	}
	for _, ext := range list[:count] {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

// ValidationLayers gets a list of layers available on the platform.
func ValidationLayers() (names []string, err error) {
	var count uint32
	ret := vk.EnumerateInstanceLayerProperties(&count, nil)
	if isError(ret) {
		return nil, newError(ErrInitialization, "enumerate instance layers", ret)
	}
	list := make([]vk.LayerProperties, count)
	ret = vk.EnumerateInstanceLayerProperties(&count, list)
	if isError(ret) && ret != vk.Incomplete {
		return nil, newError(ErrInitialization, "enumerate instance layers", ret)
	}
	for _, layer := range list[:count] {
		layer.Deref()
		names = append(names, vk.ToString(layer.LayerName[:]))
	}
	return names, nil
}

// extensionSet splits requested names into required ones, whose absence is
// an error, and wanted ones, which are dropped with a warning.
type extensionSet struct {
	kind     string
	required []string
	wanted   []string
	actual   []string
}

// missing returns the required names the platform lacks.
func (e *extensionSet) missing() []string {
	var out []string
	for _, name := range e.required {
		if !contains(e.actual, name) {
			out = append(out, name)
		}
	}
	return out
}

// enabled returns the required names followed by the available wanted
// names, without duplicates.
func (e *extensionSet) enabled() []string {
	out := appendUnique(nil, e.required...)
	for _, name := range e.wanted {
		if contains(out, name) {
			continue
		}
		if !contains(e.actual, name) {
			Logger().Warn("dropping unavailable "+e.kind, "name", name)
			continue
		}
		out = append(out, name)
	}
	return out
}
