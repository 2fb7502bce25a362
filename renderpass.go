package neutronvk

import (
	vk "github.com/vulkan-go/vulkan"
)

// RenderPass has a single colour attachment that is cleared on load and
// stored, ending in finalLayout.
type RenderPass struct {
	refCounted

	device      *Device
	handle      vk.RenderPass
	format      vk.Format
	finalLayout vk.ImageLayout
}

func NewRenderPass(d *Device, format vk.Format, finalLayout vk.ImageLayout) (*RenderPass, error) {
	attachments := []vk.AttachmentDescription{{
		Format:         format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    finalLayout,
	}}
	colorRefs := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}
	subpasses := []vk.SubpassDescription{{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorRefs)),
		PColorAttachments:    colorRefs,
	}}
	dependencies := []vk.SubpassDependency{{
		SrcSubpass:    vk.MaxUint32,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}}

	var pass vk.RenderPass
	ret := vk.CreateRenderPass(d.handle, &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    uint32(len(subpasses)),
		PSubpasses:      subpasses,
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}, nil, &pass)
	if isError(ret) {
		return nil, newCreateError(ErrResourceCreation, "create render pass", ret)
	}
	rp := &RenderPass{device: d, handle: pass, format: format, finalLayout: finalLayout}
	d.Retain()
	rp.init(rp.destroy)
	return rp, nil
}

func (rp *RenderPass) destroy() {
	vk.DestroyRenderPass(rp.device.handle, rp.handle, nil)
	rp.device.Release()
}

// Handle returns the native render pass.
func (rp *RenderPass) Handle() vk.RenderPass { return rp.handle }

func (rp *RenderPass) Format() vk.Format { return rp.format }

// RenderTarget is a framebuffer binding one image view to a render pass. It
// retains both.
type RenderTarget struct {
	refCounted

	pass   *RenderPass
	view   *ImageView
	handle vk.Framebuffer
	extent vk.Extent2D
}

func NewRenderTarget(pass *RenderPass, view *ImageView) (*RenderTarget, error) {
	extent := view.image.extent
	views := []vk.ImageView{view.handle}

	var framebuffer vk.Framebuffer
	ret := vk.CreateFramebuffer(pass.device.handle, &vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      pass.handle,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}, nil, &framebuffer)
	if isError(ret) {
		return nil, newCreateError(ErrResourceCreation, "create framebuffer", ret)
	}
	pass.Retain()
	view.Retain()
	t := &RenderTarget{pass: pass, view: view, handle: framebuffer, extent: extent}
	t.init(t.destroy)
	return t, nil
}

func (t *RenderTarget) destroy() {
	vk.DestroyFramebuffer(t.pass.device.handle, t.handle, nil)
	t.view.Release()
	t.pass.Release()
}

// Handle returns the native framebuffer.
func (t *RenderTarget) Handle() vk.Framebuffer { return t.handle }

func (t *RenderTarget) Extent() vk.Extent2D { return t.extent }

func (t *RenderTarget) View() *ImageView { return t.view }
