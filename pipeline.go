package neutronvk

import (
	vk "github.com/vulkan-go/vulkan"
)

// PipelineLayout is the ordered list of descriptor set layouts a pipeline
// binds. It retains the layouts.
type PipelineLayout struct {
	refCounted

	device  *Device
	handle  vk.PipelineLayout
	layouts []*DescriptorSetLayout
}

func NewPipelineLayout(d *Device, layouts ...*DescriptorSetLayout) (*PipelineLayout, error) {
	handles := make([]vk.DescriptorSetLayout, len(layouts))
	for i, l := range layouts {
		handles[i] = l.handle
	}
	var layout vk.PipelineLayout
	ret := vk.CreatePipelineLayout(d.handle, &vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(handles)),
		PSetLayouts:    handles,
	}, nil, &layout)
	if isError(ret) {
		return nil, newCreateError(ErrResourceCreation, "create pipeline layout", ret)
	}
	for _, l := range layouts {
		l.Retain()
	}
	pl := &PipelineLayout{device: d, handle: layout, layouts: layouts}
	d.Retain()
	pl.init(pl.destroy)
	return pl, nil
}

func (pl *PipelineLayout) destroy() {
	vk.DestroyPipelineLayout(pl.device.handle, pl.handle, nil)
	for i := len(pl.layouts) - 1; i >= 0; i-- {
		pl.layouts[i].Release()
	}
	pl.device.Release()
}

// Handle returns the native pipeline layout.
func (pl *PipelineLayout) Handle() vk.PipelineLayout { return pl.handle }

// ComputePipeline runs one compute shader entry point. It retains its
// layout; the shader module may be released once the pipeline exists.
type ComputePipeline struct {
	refCounted

	layout *PipelineLayout
	handle vk.Pipeline
}

// NewComputePipeline builds a pipeline from module's entry function. An
// empty entry means "main".
func NewComputePipeline(layout *PipelineLayout, module *ShaderModule, entry string) (*ComputePipeline, error) {
	if entry == "" {
		entry = "main"
	}
	d := layout.device
	pipelines := make([]vk.Pipeline, 1)
	ret := vk.CreateComputePipelines(d.handle, vk.PipelineCache(vk.NullHandle), 1, []vk.ComputePipelineCreateInfo{{
		SType: vk.StructureTypeComputePipelineCreateInfo,
		Stage: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageComputeBit,
			Module: module.handle,
			PName:  safeString(entry),
		},
		Layout: layout.handle,
	}}, nil, pipelines)
	if isError(ret) {
		return nil, newCreateError(ErrResourceCreation, "create compute pipeline", ret)
	}
	layout.Retain()
	p := &ComputePipeline{layout: layout, handle: pipelines[0]}
	p.init(p.destroy)
	return p, nil
}

func (p *ComputePipeline) destroy() {
	vk.DestroyPipeline(p.layout.device.handle, p.handle, nil)
	p.layout.Release()
}

// Handle returns the native pipeline.
func (p *ComputePipeline) Handle() vk.Pipeline { return p.handle }

func (p *ComputePipeline) Layout() *PipelineLayout { return p.layout }
