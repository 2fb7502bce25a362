package neutronvk

import (
	"os"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// ShaderModule holds precompiled SPIR-V.
type ShaderModule struct {
	refCounted

	device *Device
	handle vk.ShaderModule
}

// NewShaderModule creates a module from SPIR-V bytes.
func NewShaderModule(d *Device, spirv []byte) (*ShaderModule, error) {
	if len(spirv) == 0 || len(spirv)%4 != 0 {
		return nil, failf(ErrResourceCreation, "create shader module: %d bytes is not SPIR-V", len(spirv))
	}
	var module vk.ShaderModule
	ret := vk.CreateShaderModule(d.handle, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(spirv)),
		PCode:    sliceUint32(spirv),
	}, nil, &module)
	if isError(ret) {
		return nil, newCreateError(ErrResourceCreation, "create shader module", ret)
	}
	m := &ShaderModule{device: d, handle: module}
	d.Retain()
	m.init(m.destroy)
	return m, nil
}

// LoadShaderModule reads a SPIR-V file and creates a module from it.
func LoadShaderModule(d *Device, path string) (*ShaderModule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load shader module %s", path)
	}
	return NewShaderModule(d, data)
}

func (m *ShaderModule) destroy() {
	vk.DestroyShaderModule(m.device.handle, m.handle, nil)
	m.device.Release()
}

// Handle returns the native shader module.
func (m *ShaderModule) Handle() vk.ShaderModule { return m.handle }
