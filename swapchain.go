package neutronvk

import (
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

// imageCount asks for one image above the minimum, clamped to the maximum
// when the surface has one.
func imageCount(caps vk.SurfaceCapabilities) uint32 {
	n := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && n > caps.MaxImageCount {
		n = caps.MaxImageCount
	}
	return n
}

// preTransform prefers the identity transform and otherwise keeps the
// surface's current one.
func preTransform(caps vk.SurfaceCapabilities) vk.SurfaceTransformFlagBits {
	if caps.SupportedTransforms&vk.SurfaceTransformFlags(vk.SurfaceTransformIdentityBit) != 0 {
		return vk.SurfaceTransformIdentityBit
	}
	return caps.CurrentTransform
}

// compositeAlpha returns the first supported mode; one of these is
// guaranteed to be set.
func compositeAlpha(caps vk.SurfaceCapabilities) vk.CompositeAlphaFlagBits {
	for _, mode := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if caps.SupportedCompositeAlpha&vk.CompositeAlphaFlags(mode) != 0 {
			return mode
		}
	}
	return vk.CompositeAlphaOpaqueBit
}

// choosePresentMode prefers mailbox and falls back to FIFO, which every
// surface supports.
func choosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, m := range modes {
		if m == vk.PresentModeMailbox {
			return m
		}
	}
	return vk.PresentModeFifo
}

// chooseSurfaceFormat takes the first reported format. A lone undefined
// format means any format is accepted.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) (vk.SurfaceFormat, bool) {
	if len(formats) == 0 {
		return vk.SurfaceFormat{}, false
	}
	format := formats[0]
	if format.Format == vk.FormatUndefined {
		format.Format = vk.FormatB8g8r8a8Unorm
	}
	return format, true
}

// chooseExtent uses the surface's current extent unless the surface leaves
// it to the swapchain, in which case the window size is clamped to the
// supported range.
func chooseExtent(caps vk.SurfaceCapabilities, width, height int) vk.Extent2D {
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		return caps.CurrentExtent
	}
	clamp := func(v int, lo, hi uint32) uint32 {
		switch {
		case v < int(lo):
			return lo
		case hi > 0 && v > int(hi):
			return hi
		}
		return uint32(v)
	}
	return vk.Extent2D{
		Width:  clamp(width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

func checkImageIndex(index uint32, count int) error {
	if int(index) >= count {
		return failf(ErrInvalidImageIndex, "image index %d of %d", index, count)
	}
	return nil
}

// swapchainGen owns one native swapchain. Its images retain it, so a
// generation replaced by Recreate lives until the last pending use of its
// images has been observed.
type swapchainGen struct {
	refCounted

	device *Device
	handle vk.Swapchain
}

func (g *swapchainGen) destroy() {
	vk.DestroySwapchain(g.device.handle, g.handle, nil)
	g.device.Release()
}

// Swapchain is the presentable image set of a surface. Acquire signals
// AcquireSemaphore; Present waits on PresentSemaphore.
type Swapchain struct {
	refCounted

	device  *Device
	surface *Surface
	acquire *Semaphore
	present *Semaphore

	mu     sync.Mutex
	gen    *swapchainGen
	images []*Image
	views  []*ImageView
	format vk.SurfaceFormat
	extent vk.Extent2D
	mode   vk.PresentMode
}

// NewSwapchain negotiates a swapchain for surface on d.
func NewSwapchain(d *Device, surface *Surface) (*Swapchain, error) {
	acquire, err := NewSemaphore(d)
	if err != nil {
		return nil, err
	}
	present, err := NewSemaphore(d)
	if err != nil {
		acquire.Release()
		return nil, err
	}
	sc := &Swapchain{device: d, surface: surface, acquire: acquire, present: present}
	if err := sc.build(); err != nil {
		present.Release()
		acquire.Release()
		return nil, err
	}
	d.Retain()
	surface.Retain()
	sc.init(sc.destroy)
	return sc, nil
}

// build creates a new generation, retiring the current one. Called with mu
// held or before the swapchain is shared.
func (sc *Swapchain) build() error {
	d := sc.device
	info, err := sc.surface.SetupInfos(d)
	if err != nil {
		return err
	}
	caps := info.Capabilities
	if info.Extent.Width == 0 || info.Extent.Height == 0 {
		return failf(ErrSurfaceOutOfDate, "create swapchain: surface has zero extent")
	}
	colorAttachment := vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	if caps.SupportedUsageFlags&colorAttachment == 0 {
		return failf(ErrSwapchainCreation, "create swapchain: surface lacks color attachment usage")
	}
	usage := colorAttachment
	for _, extra := range []vk.ImageUsageFlagBits{vk.ImageUsageStorageBit, vk.ImageUsageTransferDstBit} {
		if caps.SupportedUsageFlags&vk.ImageUsageFlags(extra) != 0 {
			usage |= vk.ImageUsageFlags(extra)
		}
	}

	old := vk.NullSwapchain
	if sc.gen != nil {
		old = sc.gen.handle
	}
	var handle vk.Swapchain
	ret := vk.CreateSwapchain(d.handle, &vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          sc.surface.handle,
		MinImageCount:    imageCount(caps),
		ImageFormat:      info.Format.Format,
		ImageColorSpace:  info.Format.ColorSpace,
		ImageExtent:      info.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       usage,
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     preTransform(caps),
		CompositeAlpha:   compositeAlpha(caps),
		PresentMode:      info.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     old,
	}, nil, &handle)
	if isError(ret) {
		if ret == vk.ErrorOutOfDate {
			return newError(ErrSurfaceOutOfDate, "create swapchain", ret)
		}
		return newCreateError(ErrSwapchainCreation, "create swapchain", ret)
	}
	gen := &swapchainGen{device: d, handle: handle}
	d.Retain()
	gen.init(gen.destroy)

	var count uint32
	ret = vk.GetSwapchainImages(d.handle, handle, &count, nil)
	if isError(ret) {
		gen.Release()
		return newError(ErrSwapchainCreation, "get swapchain images", ret)
	}
	handles := make([]vk.Image, count)
	ret = vk.GetSwapchainImages(d.handle, handle, &count, handles)
	if isError(ret) && ret != vk.Incomplete {
		gen.Release()
		return newError(ErrSwapchainCreation, "get swapchain images", ret)
	}

	images := make([]*Image, 0, count)
	views := make([]*ImageView, 0, count)
	for _, h := range handles[:count] {
		img := newBorrowedImage(d, h, info.Format.Format, info.Extent, gen)
		view, err := NewImageView(img, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			img.Release()
			for i := len(views) - 1; i >= 0; i-- {
				views[i].Release()
				images[i].Release()
			}
			gen.Release()
			return err
		}
		images = append(images, img)
		views = append(views, view)
	}

	sc.retire()
	sc.gen = gen
	sc.images = images
	sc.views = views
	sc.format = info.Format
	sc.extent = info.Extent
	sc.mode = info.PresentMode
	Logger().Debug("swapchain created",
		"images", len(images), "width", info.Extent.Width, "height", info.Extent.Height, "mode", int(info.PresentMode))
	return nil
}

// retire drops the swapchain's own references to the current generation.
func (sc *Swapchain) retire() {
	for i := len(sc.views) - 1; i >= 0; i-- {
		sc.views[i].Release()
	}
	for i := len(sc.images) - 1; i >= 0; i-- {
		sc.images[i].Release()
	}
	if sc.gen != nil {
		sc.gen.Release()
	}
	sc.gen, sc.images, sc.views = nil, nil, nil
}

func (sc *Swapchain) destroy() {
	sc.mu.Lock()
	sc.retire()
	sc.mu.Unlock()
	sc.present.Release()
	sc.acquire.Release()
	sc.surface.Release()
	sc.device.Release()
}

// Recreate rebuilds the swapchain after a resize or an out of date result.
// Images and views of the previous generation stay valid for pending work
// that retained them.
func (sc *Swapchain) Recreate() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.build()
}

// Acquire returns the index of the next presentable image and whether the
// swapchain is suboptimal. ErrSurfaceOutOfDate means Recreate and retry.
func (sc *Swapchain) Acquire() (index uint32, suboptimal bool, err error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	ret := vk.AcquireNextImage(sc.device.handle, sc.gen.handle, vk.MaxUint64, sc.acquire.handle, vk.NullFence, &index)
	switch ret {
	case vk.Success:
	case vk.Suboptimal:
		suboptimal = true
	case vk.ErrorOutOfDate:
		return 0, false, newError(ErrSurfaceOutOfDate, "acquire next image", ret)
	default:
		return 0, false, newError(ErrSynchronization, "acquire next image", ret)
	}
	if err := checkImageIndex(index, len(sc.images)); err != nil {
		return 0, false, err
	}
	return index, suboptimal, nil
}

// Present queues image index for display on q after PresentSemaphore is
// signaled. It reports whether the swapchain is suboptimal.
func (sc *Swapchain) Present(q *Queue, index uint32) (suboptimal bool, err error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if err := checkImageIndex(index, len(sc.images)); err != nil {
		return false, err
	}
	ret := vk.QueuePresent(q.handle, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{sc.present.handle},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc.gen.handle},
		PImageIndices:      []uint32{index},
	})
	switch ret {
	case vk.Success:
		return false, nil
	case vk.Suboptimal:
		return true, nil
	case vk.ErrorOutOfDate:
		return false, newError(ErrSurfaceOutOfDate, "queue present", ret)
	default:
		return false, newError(ErrSynchronization, "queue present", ret)
	}
}

// Handle returns the current native swapchain.
func (sc *Swapchain) Handle() vk.Swapchain {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.gen.handle
}

// Len returns the number of images.
func (sc *Swapchain) Len() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.images)
}

// Images returns the images of the current generation. Retain any image
// kept past the next Recreate.
func (sc *Swapchain) Images() []*Image {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return append([]*Image(nil), sc.images...)
}

// Views returns one colour view per image, in image order.
func (sc *Swapchain) Views() []*ImageView {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return append([]*ImageView(nil), sc.views...)
}

func (sc *Swapchain) Extent() vk.Extent2D {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.extent
}

func (sc *Swapchain) Format() vk.SurfaceFormat {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.format
}

func (sc *Swapchain) PresentMode() vk.PresentMode {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.mode
}

// AcquireSemaphore is signaled when an acquired image is ready to be
// written. Submissions using the image should wait on it.
func (sc *Swapchain) AcquireSemaphore() *Semaphore { return sc.acquire }

// PresentSemaphore must be signaled by the submission that finishes the
// image. Present waits on it.
func (sc *Swapchain) PresentSemaphore() *Semaphore { return sc.present }
