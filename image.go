package neutronvk

import vk "github.com/vulkan-go/vulkan"

// ImageDesc describes a 2D image. Zero MipLevels, ArrayLayers and Samples
// default to one; a zero Memory defaults to DeviceLocal.
type ImageDesc struct {
	Format        vk.Format
	Extent        vk.Extent2D
	MipLevels     uint32
	ArrayLayers   uint32
	Samples       vk.SampleCountFlagBits
	Tiling        vk.ImageTiling
	Usage         vk.ImageUsageFlags
	Memory        vk.MemoryPropertyFlags
	QueueFamilies []uint32
}

// Image is a native image. Images created with NewImage own their handle
// and memory; swapchain images are borrowed and keep their swapchain
// generation alive instead.
type Image struct {
	refCounted

	device *Device
	handle vk.Image
	memory *MemoryBlock
	owner  Resource

	format vk.Format
	extent vk.Extent2D
	levels uint32
	layers uint32
	req    vk.MemoryRequirements
}

func NewImage(d *Device, desc ImageDesc) (*Image, error) {
	if desc.MipLevels == 0 {
		desc.MipLevels = 1
	}
	if desc.ArrayLayers == 0 {
		desc.ArrayLayers = 1
	}
	if desc.Samples == 0 {
		desc.Samples = vk.SampleCount1Bit
	}
	if desc.Memory == 0 {
		desc.Memory = DeviceLocal
	}
	mode, families := sharing(desc.QueueFamilies)

	var image vk.Image
	ret := vk.CreateImage(d.handle, &vk.ImageCreateInfo{
		SType:                 vk.StructureTypeImageCreateInfo,
		ImageType:             vk.ImageType2d,
		Format:                desc.Format,
		Extent:                vk.Extent3D{Width: desc.Extent.Width, Height: desc.Extent.Height, Depth: 1},
		MipLevels:             desc.MipLevels,
		ArrayLayers:           desc.ArrayLayers,
		Samples:               desc.Samples,
		Tiling:                desc.Tiling,
		Usage:                 desc.Usage,
		SharingMode:           mode,
		QueueFamilyIndexCount: uint32(len(families)),
		PQueueFamilyIndices:   families,
		InitialLayout:         vk.ImageLayoutUndefined,
	}, nil, &image)
	if isError(ret) {
		return nil, newCreateError(ErrResourceCreation, "create image", ret)
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.handle, image, &req)
	req.Deref()

	memory, err := AllocateMemory(d, req, desc.Memory)
	if err != nil {
		vk.DestroyImage(d.handle, image, nil)
		return nil, err
	}
	ret = vk.BindImageMemory(d.handle, image, memory.Handle(), 0)
	if isError(ret) {
		memory.Release()
		vk.DestroyImage(d.handle, image, nil)
		return nil, newCreateError(ErrResourceCreation, "bind image memory", ret)
	}

	img := &Image{
		device: d,
		handle: image,
		memory: memory,
		format: desc.Format,
		extent: desc.Extent,
		levels: desc.MipLevels,
		layers: desc.ArrayLayers,
		req:    req,
	}
	d.Retain()
	img.init(img.destroy)
	return img, nil
}

// newBorrowedImage wraps an image owned by owner, which is retained for the
// wrapper's lifetime.
func newBorrowedImage(d *Device, handle vk.Image, format vk.Format, extent vk.Extent2D, owner Resource) *Image {
	owner.Retain()
	img := &Image{
		device: d,
		handle: handle,
		owner:  owner,
		format: format,
		extent: extent,
		levels: 1,
		layers: 1,
	}
	img.init(img.destroy)
	return img
}

func (img *Image) destroy() {
	if img.owner != nil {
		img.owner.Release()
		return
	}
	vk.DestroyImage(img.device.handle, img.handle, nil)
	img.memory.Release()
	img.device.Release()
}

// Handle returns the native image.
func (img *Image) Handle() vk.Image { return img.handle }

func (img *Image) Format() vk.Format { return img.format }

func (img *Image) Extent() vk.Extent2D { return img.extent }

// Requirements returns the memory requirements reported at creation. It is
// zero for swapchain images.
func (img *Image) Requirements() vk.MemoryRequirements { return img.req }

// Memory returns the backing block, nil for swapchain images.
func (img *Image) Memory() *MemoryBlock { return img.memory }

func (img *Image) fullRange(aspect vk.ImageAspectFlags) vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask: aspect,
		LevelCount: img.levels,
		LayerCount: img.layers,
	}
}

// ImageView is a 2D view of a whole image. It retains the image.
type ImageView struct {
	refCounted

	image  *Image
	handle vk.ImageView
	aspect vk.ImageAspectFlags
}

func NewImageView(img *Image, aspect vk.ImageAspectFlags) (*ImageView, error) {
	var view vk.ImageView
	ret := vk.CreateImageView(img.device.handle, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img.handle,
		ViewType: vk.ImageViewType2d,
		Format:   img.format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleR,
			G: vk.ComponentSwizzleG,
			B: vk.ComponentSwizzleB,
			A: vk.ComponentSwizzleA,
		},
		SubresourceRange: img.fullRange(aspect),
	}, nil, &view)
	if isError(ret) {
		return nil, newCreateError(ErrResourceCreation, "create image view", ret)
	}
	img.Retain()
	v := &ImageView{image: img, handle: view, aspect: aspect}
	v.init(v.destroy)
	return v, nil
}

func (v *ImageView) destroy() {
	vk.DestroyImageView(v.image.device.handle, v.handle, nil)
	v.image.Release()
}

// Handle returns the native image view.
func (v *ImageView) Handle() vk.ImageView { return v.handle }

// Image returns the viewed image.
func (v *ImageView) Image() *Image { return v.image }
