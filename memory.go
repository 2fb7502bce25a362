package neutronvk

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Visibility policies for SelectMemoryType.
const (
	DeviceLocal = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	HostVisible = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)
	// HostCoherent needs no Flush or Invalidate.
	HostCoherent = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
)

// findMemoryType returns the lowest index allowed by typeBits whose flags
// contain every bit of want.
func findMemoryType(typeBits uint32, flags []vk.MemoryPropertyFlags, want vk.MemoryPropertyFlags) (uint32, bool) {
	for i := 0; i < len(flags) && i < vk.MaxMemoryTypes; i++ {
		if typeBits&(1<<uint(i)) == 0 {
			continue
		}
		if flags[i]&want == want {
			return uint32(i), true
		}
	}
	return 0, false
}

// SelectMemoryType picks the memory type for a resource. There is no
// fallback: when no type satisfies both the requirement and want the call
// fails with ErrMemoryTypeNotFound.
func SelectMemoryType(req vk.MemoryRequirements, props vk.PhysicalDeviceMemoryProperties, want vk.MemoryPropertyFlags) (uint32, error) {
	flags := make([]vk.MemoryPropertyFlags, props.MemoryTypeCount)
	for i := range flags {
		flags[i] = props.MemoryTypes[i].PropertyFlags
	}
	index, ok := findMemoryType(req.MemoryTypeBits, flags, want)
	if !ok {
		return 0, failf(ErrMemoryTypeNotFound, "select memory type (bits %#x, flags %#x)", req.MemoryTypeBits, want)
	}
	return index, nil
}

// MemoryBlock is one allocation from one memory type. Host visible blocks
// are mapped for their whole lifetime.
type MemoryBlock struct {
	refCounted

	device    *Device
	memory    vk.DeviceMemory
	size      vk.DeviceSize
	typeIndex uint32
	flags     vk.MemoryPropertyFlags
	mapped    unsafe.Pointer
}

// AllocateMemory allocates req.Size bytes from the memory type chosen for
// want and maps it when want includes HostVisible.
func AllocateMemory(d *Device, req vk.MemoryRequirements, want vk.MemoryPropertyFlags) (*MemoryBlock, error) {
	index, err := SelectMemoryType(req, d.physical.memory, want)
	if err != nil {
		return nil, err
	}

	var memory vk.DeviceMemory
	ret := vk.AllocateMemory(d.handle, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: index,
	}, nil, &memory)
	if isError(ret) {
		return nil, newCreateError(ErrAllocation, "allocate memory", ret)
	}

	m := &MemoryBlock{
		device:    d,
		memory:    memory,
		size:      req.Size,
		typeIndex: index,
		flags:     d.physical.memory.MemoryTypes[index].PropertyFlags,
	}
	if want&HostVisible != 0 {
		var ptr unsafe.Pointer
		ret = vk.MapMemory(d.handle, memory, 0, vk.DeviceSize(vk.WholeSize), 0, &ptr)
		if isError(ret) {
			vk.FreeMemory(d.handle, memory, nil)
			return nil, newCreateError(ErrAllocation, "map memory", ret)
		}
		m.mapped = ptr
	}
	d.Retain()
	m.init(m.destroy)
	Logger().Debug("memory allocated", "size", uint64(req.Size), "type", index, "mapped", m.mapped != nil)
	return m, nil
}

func (m *MemoryBlock) destroy() {
	if m.mapped != nil {
		vk.UnmapMemory(m.device.handle, m.memory)
		m.mapped = nil
	}
	vk.FreeMemory(m.device.handle, m.memory, nil)
	m.device.Release()
}

// Handle returns the native memory object.
func (m *MemoryBlock) Handle() vk.DeviceMemory { return m.memory }

// Size returns the allocation size, which may exceed the requested data size.
func (m *MemoryBlock) Size() vk.DeviceSize { return m.size }

// TypeIndex returns the memory type the block was allocated from.
func (m *MemoryBlock) TypeIndex() uint32 { return m.typeIndex }

// Flags returns the property flags of the block's memory type.
func (m *MemoryBlock) Flags() vk.MemoryPropertyFlags { return m.flags }

// Mapped returns the host address of the block, nil when not host visible.
func (m *MemoryBlock) Mapped() unsafe.Pointer { return m.mapped }

// Coherent reports whether host writes are visible without Flush.
func (m *MemoryBlock) Coherent() bool {
	return m.flags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit) != 0
}

// Bytes returns the first n mapped bytes, nil when the block is not mapped.
func (m *MemoryBlock) Bytes(n int) []byte {
	if m.mapped == nil || n == 0 {
		return nil
	}
	if vk.DeviceSize(n) > m.size {
		contract("mapped view of %d bytes exceeds block of %d", n, m.size)
	}
	return unsafe.Slice((*byte)(m.mapped), n)
}

func (m *MemoryBlock) wholeRange() []vk.MappedMemoryRange {
	return []vk.MappedMemoryRange{{
		SType:  vk.StructureTypeMappedMemoryRange,
		Memory: m.memory,
		Offset: 0,
		Size:   vk.DeviceSize(vk.WholeSize),
	}}
}

// Flush makes host writes visible to the device. It is a no-op for
// coherent or unmapped memory.
func (m *MemoryBlock) Flush() error {
	if m.mapped == nil || m.Coherent() {
		return nil
	}
	ret := vk.FlushMappedMemoryRanges(m.device.handle, 1, m.wholeRange())
	return newError(ErrSynchronization, "flush mapped memory", ret)
}

// Invalidate makes device writes visible to the host. It is a no-op for
// coherent or unmapped memory.
func (m *MemoryBlock) Invalidate() error {
	if m.mapped == nil || m.Coherent() {
		return nil
	}
	ret := vk.InvalidateMappedMemoryRanges(m.device.handle, 1, m.wholeRange())
	return newError(ErrSynchronization, "invalidate mapped memory", ret)
}
