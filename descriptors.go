package neutronvk

import (
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

// Out of pool memory results, VK_ERROR_OUT_OF_POOL_MEMORY and
// VK_ERROR_FRAGMENTED_POOL.
const (
	errorOutOfPoolMemory = vk.Result(-1000069000)
	errorFragmentedPool  = vk.Result(-12)
)

// Binding is one entry of a descriptor set layout.
type Binding struct {
	Binding uint32
	Type    vk.DescriptorType
	Count   uint32
	Stages  vk.ShaderStageFlags
}

// DescriptorSetLayout is the schema of a descriptor set: binding index to
// type, count and visible stages.
type DescriptorSetLayout struct {
	refCounted

	device   *Device
	handle   vk.DescriptorSetLayout
	bindings []Binding
}

// NewDescriptorSetLayout creates a layout. A zero Count means one.
func NewDescriptorSetLayout(d *Device, bindings ...Binding) (*DescriptorSetLayout, error) {
	native := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i := range bindings {
		if bindings[i].Count == 0 {
			bindings[i].Count = 1
		}
		b := bindings[i]
		native[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  b.Type,
			DescriptorCount: b.Count,
			StageFlags:      b.Stages,
		}
	}
	var layout vk.DescriptorSetLayout
	ret := vk.CreateDescriptorSetLayout(d.handle, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(native)),
		PBindings:    native,
	}, nil, &layout)
	if isError(ret) {
		return nil, newCreateError(ErrResourceCreation, "create descriptor set layout", ret)
	}
	l := &DescriptorSetLayout{device: d, handle: layout, bindings: bindings}
	d.Retain()
	l.init(l.destroy)
	return l, nil
}

func (l *DescriptorSetLayout) destroy() {
	vk.DestroyDescriptorSetLayout(l.device.handle, l.handle, nil)
	l.device.Release()
}

// Handle returns the native layout.
func (l *DescriptorSetLayout) Handle() vk.DescriptorSetLayout { return l.handle }

func (l *DescriptorSetLayout) Bindings() []Binding { return l.bindings }

func (l *DescriptorSetLayout) binding(index uint32) (Binding, bool) {
	for _, b := range l.bindings {
		if b.Binding == index {
			return b, true
		}
	}
	return Binding{}, false
}

// PoolSize reserves Count descriptors of Type in a pool.
type PoolSize struct {
	Type  vk.DescriptorType
	Count uint32
}

// poolCapacity tracks what a pool has left so over-allocation is reported
// as ErrPoolExhausted whether or not the driver enforces it.
type poolCapacity struct {
	sets      uint32
	maxSets   uint32
	remaining map[vk.DescriptorType]uint32
}

func newPoolCapacity(maxSets uint32, sizes []PoolSize) *poolCapacity {
	c := &poolCapacity{maxSets: maxSets, remaining: make(map[vk.DescriptorType]uint32)}
	for _, s := range sizes {
		c.remaining[s.Type] += s.Count
	}
	return c
}

func demand(layouts []*DescriptorSetLayout) map[vk.DescriptorType]uint32 {
	need := make(map[vk.DescriptorType]uint32)
	for _, l := range layouts {
		for _, b := range l.bindings {
			need[b.Type] += b.Count
		}
	}
	return need
}

// reserve accounts for one set per layout, or fails leaving the capacity
// unchanged.
func (c *poolCapacity) reserve(layouts []*DescriptorSetLayout) error {
	if c.sets+uint32(len(layouts)) > c.maxSets {
		return failf(ErrPoolExhausted, "allocate %d descriptor sets: %d of %d in use", len(layouts), c.sets, c.maxSets)
	}
	need := demand(layouts)
	for t, n := range need {
		if c.remaining[t] < n {
			return failf(ErrPoolExhausted, "allocate %d descriptors of type %d: %d left", n, t, c.remaining[t])
		}
	}
	for t, n := range need {
		c.remaining[t] -= n
	}
	c.sets += uint32(len(layouts))
	return nil
}

func (c *poolCapacity) release(layouts []*DescriptorSetLayout) {
	for t, n := range demand(layouts) {
		c.remaining[t] += n
	}
	c.sets -= uint32(len(layouts))
}

// DescriptorPool reserves capacity for descriptor sets. Sets can be freed
// individually.
type DescriptorPool struct {
	refCounted

	device *Device
	handle vk.DescriptorPool

	mu       sync.Mutex
	capacity *poolCapacity
}

// NewDescriptorPool creates a pool. A zero maxSets allows as many sets as
// there are descriptors in sizes.
func NewDescriptorPool(d *Device, maxSets uint32, sizes ...PoolSize) (*DescriptorPool, error) {
	if maxSets == 0 {
		for _, s := range sizes {
			maxSets += s.Count
		}
	}
	native := make([]vk.DescriptorPoolSize, len(sizes))
	for i, s := range sizes {
		native[i] = vk.DescriptorPoolSize{Type: s.Type, DescriptorCount: s.Count}
	}
	var pool vk.DescriptorPool
	ret := vk.CreateDescriptorPool(d.handle, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(native)),
		PPoolSizes:    native,
	}, nil, &pool)
	if isError(ret) {
		return nil, newCreateError(ErrResourceCreation, "create descriptor pool", ret)
	}
	p := &DescriptorPool{device: d, handle: pool, capacity: newPoolCapacity(maxSets, sizes)}
	d.Retain()
	p.init(p.destroy)
	return p, nil
}

func (p *DescriptorPool) destroy() {
	vk.DestroyDescriptorPool(p.device.handle, p.handle, nil)
	p.device.Release()
}

// Handle returns the native pool.
func (p *DescriptorPool) Handle() vk.DescriptorPool { return p.handle }

// DescriptorSets are sets allocated together from one pool, one per layout.
// They retain the pool, the layouts and every resource written into them.
type DescriptorSets struct {
	refCounted

	pool    *DescriptorPool
	layouts []*DescriptorSetLayout
	handles []vk.DescriptorSet

	mu      sync.Mutex
	written []Resource
}

// NewDescriptorSets allocates one set per layout from pool.
func NewDescriptorSets(pool *DescriptorPool, layouts ...*DescriptorSetLayout) (*DescriptorSets, error) {
	if len(layouts) == 0 {
		contract("descriptor set allocation without layouts")
	}
	pool.mu.Lock()
	defer pool.mu.Unlock()
	if err := pool.capacity.reserve(layouts); err != nil {
		return nil, err
	}

	native := make([]vk.DescriptorSetLayout, len(layouts))
	for i, l := range layouts {
		native[i] = l.handle
	}
	handles := make([]vk.DescriptorSet, len(layouts))
	ret := vk.AllocateDescriptorSets(pool.device.handle, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool.handle,
		DescriptorSetCount: uint32(len(native)),
		PSetLayouts:        native,
	}, &handles[0])
	if isError(ret) {
		pool.capacity.release(layouts)
		switch ret {
		case errorOutOfPoolMemory, errorFragmentedPool:
			return nil, newError(ErrPoolExhausted, "allocate descriptor sets", ret)
		}
		return nil, newCreateError(ErrResourceCreation, "allocate descriptor sets", ret)
	}

	pool.Retain()
	for _, l := range layouts {
		l.Retain()
	}
	s := &DescriptorSets{pool: pool, layouts: layouts, handles: handles}
	s.init(s.destroy)
	return s, nil
}

func (s *DescriptorSets) destroy() {
	p := s.pool
	p.mu.Lock()
	vk.FreeDescriptorSets(p.device.handle, p.handle, uint32(len(s.handles)), &s.handles[0])
	p.capacity.release(s.layouts)
	p.mu.Unlock()

	releaseAll(s.written)
	for i := len(s.layouts) - 1; i >= 0; i-- {
		s.layouts[i].Release()
	}
	p.Release()
}

// Len returns the number of sets.
func (s *DescriptorSets) Len() int { return len(s.handles) }

// Handle returns the native set at index i.
func (s *DescriptorSets) Handle(i int) vk.DescriptorSet { return s.handles[i] }

func (s *DescriptorSets) check(set int, binding uint32, want ...vk.DescriptorType) {
	if set < 0 || set >= len(s.handles) {
		contract("descriptor set %d out of %d", set, len(s.handles))
	}
	b, ok := s.layouts[set].binding(binding)
	if !ok {
		contract("set %d has no binding %d", set, binding)
	}
	for _, t := range want {
		if b.Type == t {
			return
		}
	}
	contract("binding %d of set %d has type %d", binding, set, b.Type)
}

func (s *DescriptorSets) keep(r Resource) {
	r.Retain()
	s.mu.Lock()
	s.written = append(s.written, r)
	s.mu.Unlock()
}

// WriteBuffer points a uniform or storage buffer binding at the whole of b.
// The sets must not be in use by pending work.
func (s *DescriptorSets) WriteBuffer(set int, binding uint32, b *Buffer) {
	s.check(set, binding, vk.DescriptorTypeUniformBuffer, vk.DescriptorTypeStorageBuffer)
	dtype, _ := s.layouts[set].binding(binding)
	s.keep(b)
	vk.UpdateDescriptorSets(s.pool.device.handle, 1, []vk.WriteDescriptorSet{{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          s.handles[set],
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  dtype.Type,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: b.handle,
			Range:  vk.DeviceSize(vk.WholeSize),
		}},
	}}, 0, nil)
}

// WriteStorageImage points a storage image binding at v, accessed in layout.
func (s *DescriptorSets) WriteStorageImage(set int, binding uint32, v *ImageView, layout vk.ImageLayout) {
	s.check(set, binding, vk.DescriptorTypeStorageImage)
	s.keep(v)
	vk.UpdateDescriptorSets(s.pool.device.handle, 1, []vk.WriteDescriptorSet{{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          s.handles[set],
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeStorageImage,
		PImageInfo: []vk.DescriptorImageInfo{{
			ImageView:   v.handle,
			ImageLayout: layout,
		}},
	}}, 0, nil)
}
