package neutronvk

import (
	"fmt"
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

// CommandPool allocates command buffers for the device's queue family.
// Allocation and freeing are serialized by the pool.
type CommandPool struct {
	refCounted

	device *Device
	handle vk.CommandPool
	family uint32
	mu     sync.Mutex
}

// NewCommandPool creates a pool whose buffers can be reset individually.
func NewCommandPool(d *Device) (*CommandPool, error) {
	var pool vk.CommandPool
	ret := vk.CreateCommandPool(d.handle, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: d.family,
		// ResetCommandBufferBit allows command buffers to be reset individually.
		Flags: vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit | vk.CommandPoolCreateTransientBit),
	}, nil, &pool)
	if isError(ret) {
		return nil, newCreateError(ErrResourceCreation, "create command pool", ret)
	}
	p := &CommandPool{device: d, handle: pool, family: d.family}
	d.Retain()
	p.init(p.destroy)
	return p, nil
}

func (p *CommandPool) destroy() {
	vk.DestroyCommandPool(p.device.handle, p.handle, nil)
	p.device.Release()
}

// Handle returns the native pool.
func (p *CommandPool) Handle() vk.CommandPool { return p.handle }

// Allocate returns one primary command buffer in the Initial state.
func (p *CommandPool) Allocate() (*CommandBuffer, error) {
	buffers, err := p.AllocateN(1)
	if err != nil {
		return nil, err
	}
	return buffers[0], nil
}

// AllocateN returns n primary command buffers in the Initial state.
func (p *CommandPool) AllocateN(n int) ([]*CommandBuffer, error) {
	if n <= 0 {
		contract("allocation of %d command buffers", n)
	}
	handles := make([]vk.CommandBuffer, n)
	p.mu.Lock()
	ret := vk.AllocateCommandBuffers(p.device.handle, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        p.handle,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(n),
	}, handles)
	p.mu.Unlock()
	if isError(ret) {
		return nil, newCreateError(ErrAllocation, "allocate command buffers", ret)
	}

	out := make([]*CommandBuffer, n)
	for i, h := range handles {
		p.Retain()
		c := &CommandBuffer{pool: p, handle: h}
		c.init(c.destroy)
		out[i] = c
	}
	return out, nil
}

func (p *CommandPool) free(h vk.CommandBuffer) {
	p.mu.Lock()
	vk.FreeCommandBuffers(p.device.handle, p.handle, 1, []vk.CommandBuffer{h})
	p.mu.Unlock()
}

// CommandBufferState is the recording state of a CommandBuffer.
type CommandBufferState int32

const (
	StateInitial CommandBufferState = iota
	StateRecording
	StateExecutable
	// StatePending means submitted and not yet observed complete.
	StatePending
)

func (s CommandBufferState) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateRecording:
		return "recording"
	case StateExecutable:
		return "executable"
	case StatePending:
		return "pending"
	default:
		return fmt.Sprintf("CommandBufferState(%d)", int32(s))
	}
}

// CommandBuffer records work for one queue family. Everything passed to a
// recording call is retained until the buffer is re-recorded, reset or
// destroyed. A buffer must be recorded from one goroutine at a time.
type CommandBuffer struct {
	refCounted

	pool   *CommandPool
	handle vk.CommandBuffer

	mu     sync.Mutex
	state  CommandBufferState
	target *RenderTarget
	refs   []Resource
}

func (c *CommandBuffer) destroy() {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	if state == StatePending {
		contract("destroying a pending command buffer")
	}
	c.dropRefs()
	if c.pool != nil {
		c.pool.free(c.handle)
		c.pool.Release()
	}
}

// Handle returns the native command buffer.
func (c *CommandBuffer) Handle() vk.CommandBuffer { return c.handle }

// State returns the current state.
func (c *CommandBuffer) State() CommandBufferState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *CommandBuffer) dropRefs() {
	refs := c.refs
	c.refs = nil
	c.target = nil
	releaseAll(refs)
}

// use retains r for as long as the recorded commands may run.
func (c *CommandBuffer) use(r Resource) {
	r.Retain()
	c.refs = append(c.refs, r)
}

func (c *CommandBuffer) expect(op string, want CommandBufferState) {
	if s := c.State(); s != want {
		contract("%s on a %s command buffer", op, s)
	}
}

func (c *CommandBuffer) recording(op string) {
	c.expect(op, StateRecording)
}

func (c *CommandBuffer) insidePass(op string) {
	c.recording(op)
	if c.target == nil {
		contract("%s outside a render pass", op)
	}
}

func (c *CommandBuffer) outsidePass(op string) {
	c.recording(op)
	if c.target != nil {
		contract("%s inside a render pass", op)
	}
}

// Begin starts recording. The buffer must be Initial. References held from
// a previous recording are released.
func (c *CommandBuffer) Begin() error {
	c.expect("begin", StateInitial)
	c.dropRefs()
	ret := vk.BeginCommandBuffer(c.handle, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	if isError(ret) {
		return newCreateError(ErrResourceCreation, "begin command buffer", ret)
	}
	c.setState(StateRecording)
	return nil
}

// End finishes recording. A render pass left open is a contract violation.
func (c *CommandBuffer) End() error {
	c.recording("end")
	if c.target != nil {
		contract("end with an open render pass")
	}
	ret := vk.EndCommandBuffer(c.handle)
	if isError(ret) {
		c.dropRefs()
		c.setState(StateInitial)
		return newCreateError(ErrResourceCreation, "end command buffer", ret)
	}
	c.setState(StateExecutable)
	return nil
}

// Reset returns an Initial or Executable buffer to Initial and drops its
// references.
func (c *CommandBuffer) Reset() error {
	switch s := c.State(); s {
	case StateInitial, StateExecutable:
	default:
		contract("reset on a %s command buffer", s)
	}
	c.dropRefs()
	ret := vk.ResetCommandBuffer(c.handle, vk.CommandBufferResetFlags(vk.CommandBufferResetReleaseResourcesBit))
	if isError(ret) {
		return newCreateError(ErrResourceCreation, "reset command buffer", ret)
	}
	c.setState(StateInitial)
	return nil
}

func (c *CommandBuffer) setState(s CommandBufferState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// markPending moves an Executable buffer to Pending. It reports false when
// the buffer is in any other state.
func (c *CommandBuffer) markPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateExecutable {
		return false
	}
	c.state = StatePending
	return true
}

// completed is called once the fence guarding the buffer was observed.
func (c *CommandBuffer) completed() {
	c.mu.Lock()
	if c.state == StatePending {
		c.state = StateInitial
	}
	c.mu.Unlock()
}

// BeginRenderPass opens target's render pass, clearing its colour
// attachment to clear.
func (c *CommandBuffer) BeginRenderPass(target *RenderTarget, clear [4]float32) {
	c.outsidePass("begin render pass")
	c.use(target)
	c.target = target
	clearValues := []vk.ClearValue{vk.NewClearValue(clear[:])}
	vk.CmdBeginRenderPass(c.handle, &vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      target.pass.handle,
		Framebuffer:     target.handle,
		RenderArea:      vk.Rect2D{Extent: target.extent},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}, vk.SubpassContentsInline)
}

func (c *CommandBuffer) EndRenderPass() {
	c.insidePass("end render pass")
	vk.CmdEndRenderPass(c.handle)
	c.target = nil
}

// ClearColor clears the colour attachment of the open render pass.
func (c *CommandBuffer) ClearColor(color [4]float32) {
	c.insidePass("clear color")
	vk.CmdClearAttachments(c.handle, 1, []vk.ClearAttachment{{
		AspectMask:      vk.ImageAspectFlags(vk.ImageAspectColorBit),
		ColorAttachment: 0,
		ClearValue:      vk.NewClearValue(color[:]),
	}}, 1, []vk.ClearRect{{
		Rect:       vk.Rect2D{Extent: c.target.extent},
		LayerCount: 1,
	}})
}

func (c *CommandBuffer) BindComputePipeline(p *ComputePipeline) {
	c.recording("bind compute pipeline")
	c.use(p)
	vk.CmdBindPipeline(c.handle, vk.PipelineBindPointCompute, p.handle)
}

// BindDescriptorSets binds every set of sets starting at index first.
func (c *CommandBuffer) BindDescriptorSets(bindPoint vk.PipelineBindPoint, layout *PipelineLayout, first uint32, sets *DescriptorSets) {
	c.recording("bind descriptor sets")
	c.use(layout)
	c.use(sets)
	vk.CmdBindDescriptorSets(c.handle, bindPoint, layout.handle,
		first, uint32(len(sets.handles)), sets.handles, 0, nil)
}

func (c *CommandBuffer) Dispatch(x, y, z uint32) {
	c.outsidePass("dispatch")
	vk.CmdDispatch(c.handle, x, y, z)
}

func (c *CommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	c.insidePass("draw")
	vk.CmdDraw(c.handle, vertexCount, instanceCount, firstVertex, firstInstance)
}

// CopyBuffer copies size bytes from the start of src to the start of dst.
func (c *CommandBuffer) CopyBuffer(src, dst *Buffer, size int) {
	c.outsidePass("copy buffer")
	if size > src.size || size > dst.size {
		contract("copy of %d bytes between buffers of %d and %d", size, src.size, dst.size)
	}
	c.use(src)
	c.use(dst)
	vk.CmdCopyBuffer(c.handle, src.handle, dst.handle, 1, []vk.BufferCopy{{
		Size: vk.DeviceSize(size),
	}})
}

// TransitionImage records a barrier moving img from one layout to another.
func (c *CommandBuffer) TransitionImage(img *Image, aspect vk.ImageAspectFlags, from, to vk.ImageLayout) {
	c.outsidePass("transition image")
	c.use(img)
	srcAccess, srcStage := layoutAccess(from)
	dstAccess, dstStage := layoutAccess(to)
	vk.CmdPipelineBarrier(c.handle, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		OldLayout:           from,
		NewLayout:           to,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img.handle,
		SubresourceRange:    img.fullRange(aspect),
	}})
}

// layoutAccess returns the accesses and stages that use an image in layout.
func layoutAccess(layout vk.ImageLayout) (vk.AccessFlags, vk.PipelineStageFlags) {
	switch layout {
	case vk.ImageLayoutUndefined:
		return 0, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
	case vk.ImageLayoutGeneral:
		return vk.AccessFlags(vk.AccessShaderReadBit | vk.AccessShaderWriteBit),
			vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit)
	case vk.ImageLayoutColorAttachmentOptimal:
		return vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	case vk.ImageLayoutTransferSrcOptimal:
		return vk.AccessFlags(vk.AccessTransferReadBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case vk.ImageLayoutTransferDstOptimal:
		return vk.AccessFlags(vk.AccessTransferWriteBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case vk.ImageLayoutShaderReadOnlyOptimal:
		return vk.AccessFlags(vk.AccessShaderReadBit),
			vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit | vk.PipelineStageComputeShaderBit)
	case vk.ImageLayoutPresentSrc:
		return 0, vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)
	default:
		return vk.AccessFlags(vk.AccessMemoryReadBit | vk.AccessMemoryWriteBit),
			vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
	}
}
