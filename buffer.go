package neutronvk

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// BufferDesc describes a buffer. With more than one queue family the buffer
// is shared concurrently between them, otherwise it is exclusive.
type BufferDesc struct {
	Size          int
	Usage         vk.BufferUsageFlags
	Memory        vk.MemoryPropertyFlags
	QueueFamilies []uint32
}

// Buffer is a native buffer bound to its own MemoryBlock.
type Buffer struct {
	refCounted

	device *Device
	handle vk.Buffer
	memory *MemoryBlock
	size   int
	usage  vk.BufferUsageFlags
	req    vk.MemoryRequirements
}

func sharing(families []uint32) (vk.SharingMode, []uint32) {
	if len(families) > 1 {
		return vk.SharingModeConcurrent, families
	}
	return vk.SharingModeExclusive, nil
}

// NewBuffer creates a buffer and allocates memory for it. A zero size buffer
// is backed by a one byte native buffer but reports Size 0.
func NewBuffer(d *Device, desc BufferDesc) (*Buffer, error) {
	if desc.Size < 0 {
		contract("negative buffer size %d", desc.Size)
	}
	nativeSize := desc.Size
	if nativeSize == 0 {
		nativeSize = 1
	}
	mode, families := sharing(desc.QueueFamilies)

	var buffer vk.Buffer
	ret := vk.CreateBuffer(d.handle, &vk.BufferCreateInfo{
		SType:                 vk.StructureTypeBufferCreateInfo,
		Size:                  vk.DeviceSize(nativeSize),
		Usage:                 desc.Usage,
		SharingMode:           mode,
		QueueFamilyIndexCount: uint32(len(families)),
		PQueueFamilyIndices:   families,
	}, nil, &buffer)
	if isError(ret) {
		return nil, newCreateError(ErrResourceCreation, "create buffer", ret)
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.handle, buffer, &req)
	req.Deref()

	memory, err := AllocateMemory(d, req, desc.Memory)
	if err != nil {
		vk.DestroyBuffer(d.handle, buffer, nil)
		return nil, err
	}
	ret = vk.BindBufferMemory(d.handle, buffer, memory.Handle(), 0)
	if isError(ret) {
		memory.Release()
		vk.DestroyBuffer(d.handle, buffer, nil)
		return nil, newCreateError(ErrResourceCreation, "bind buffer memory", ret)
	}

	b := &Buffer{
		device: d,
		handle: buffer,
		memory: memory,
		size:   desc.Size,
		usage:  desc.Usage,
		req:    req,
	}
	d.Retain()
	b.init(b.destroy)
	return b, nil
}

func (b *Buffer) destroy() {
	vk.DestroyBuffer(b.device.handle, b.handle, nil)
	b.memory.Release()
	b.device.Release()
}

// Handle returns the native buffer.
func (b *Buffer) Handle() vk.Buffer { return b.handle }

// Size returns the requested size in bytes.
func (b *Buffer) Size() int { return b.size }

func (b *Buffer) Usage() vk.BufferUsageFlags { return b.usage }

// Requirements returns the memory requirements reported at creation.
func (b *Buffer) Requirements() vk.MemoryRequirements { return b.req }

// Memory returns the block backing the buffer.
func (b *Buffer) Memory() *MemoryBlock { return b.memory }

// Bytes returns the mapped contents, Size bytes long. It is nil when the
// buffer is not host visible.
func (b *Buffer) Bytes() []byte {
	return b.memory.Bytes(b.size)
}

// Write copies data to the start of a host visible buffer and flushes it.
func (b *Buffer) Write(data []byte) error {
	if b.memory.Mapped() == nil {
		contract("write to a buffer that is not host visible")
	}
	if len(data) > b.size {
		contract("write of %d bytes to a buffer of %d", len(data), b.size)
	}
	if len(data) == 0 {
		return nil
	}
	vk.Memcopy(b.memory.Mapped(), data)
	return b.memory.Flush()
}

// SliceBuffer is a host visible buffer holding Len values of T.
type SliceBuffer[T any] struct {
	*Buffer
	n int
}

// NewBufferFromData creates a host visible buffer of exactly
// len(data)*sizeof(T) bytes holding a copy of data.
func NewBufferFromData[T any](d *Device, usage vk.BufferUsageFlags, data []T) (*SliceBuffer[T], error) {
	var zero T
	size := len(data) * int(unsafe.Sizeof(zero))
	b, err := NewBuffer(d, BufferDesc{
		Size:   size,
		Usage:  usage,
		Memory: HostVisible,
	})
	if err != nil {
		return nil, err
	}
	sb := &SliceBuffer[T]{Buffer: b, n: len(data)}
	if size > 0 {
		copy(sb.View(), data)
		if err := b.memory.Flush(); err != nil {
			b.Release()
			return nil, err
		}
	}
	return sb, nil
}

// Len returns the number of elements.
func (b *SliceBuffer[T]) Len() int { return b.n }

// View aliases the mapped memory. It is valid while the buffer lives.
func (b *SliceBuffer[T]) View() []T {
	if b.n == 0 {
		return []T{}
	}
	return unsafe.Slice((*T)(b.memory.Mapped()), b.n)
}

// Read invalidates the mapped range and returns a copy of the contents.
func (b *SliceBuffer[T]) Read() ([]T, error) {
	if err := b.memory.Invalidate(); err != nil {
		return nil, err
	}
	out := make([]T, b.n)
	copy(out, b.View())
	return out, nil
}
