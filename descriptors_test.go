package neutronvk

import (
	"testing"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

func layoutOf(bindings ...Binding) *DescriptorSetLayout {
	return &DescriptorSetLayout{bindings: bindings}
}

func TestPoolCapacity(t *testing.T) {
	uniform := layoutOf(Binding{Binding: 0, Type: vk.DescriptorTypeUniformBuffer, Count: 1})
	storage := layoutOf(
		Binding{Binding: 0, Type: vk.DescriptorTypeStorageImage, Count: 1},
		Binding{Binding: 1, Type: vk.DescriptorTypeStorageBuffer, Count: 2},
	)
	c := newPoolCapacity(3, []PoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, Count: 2},
		{Type: vk.DescriptorTypeStorageImage, Count: 1},
		{Type: vk.DescriptorTypeStorageBuffer, Count: 1},
		{Type: vk.DescriptorTypeStorageBuffer, Count: 1},
	})

	if err := c.reserve([]*DescriptorSetLayout{uniform, storage}); err != nil {
		t.Fatalf("reserve within capacity: have %v, want nil", err)
	}
	if c.sets != 2 || c.remaining[vk.DescriptorTypeStorageBuffer] != 0 {
		t.Fatalf("have %d sets and %d storage buffers left, want 2 and 0",
			c.sets, c.remaining[vk.DescriptorTypeStorageBuffer])
	}

	// A second storage set needs descriptors the pool no longer has.
	if err := c.reserve([]*DescriptorSetLayout{storage}); !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("over descriptor capacity: have %v, want ErrPoolExhausted", err)
	}
	if c.sets != 2 || c.remaining[vk.DescriptorTypeUniformBuffer] != 1 {
		t.Fatalf("failed reserve changed the capacity: %d sets, %d uniform left",
			c.sets, c.remaining[vk.DescriptorTypeUniformBuffer])
	}

	// Descriptors left but too many sets.
	if err := c.reserve([]*DescriptorSetLayout{uniform, uniform}); !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("over set capacity: have %v, want ErrPoolExhausted", err)
	}
	if err := c.reserve([]*DescriptorSetLayout{uniform}); err != nil {
		t.Fatalf("last set: have %v, want nil", err)
	}

	c.release([]*DescriptorSetLayout{uniform, storage})
	if err := c.reserve([]*DescriptorSetLayout{storage}); err != nil {
		t.Fatalf("reserve after release: have %v, want nil", err)
	}
}

func TestPoolCapacityUnknownType(t *testing.T) {
	c := newPoolCapacity(4, []PoolSize{{Type: vk.DescriptorTypeUniformBuffer, Count: 4}})
	sampler := layoutOf(Binding{Binding: 0, Type: vk.DescriptorTypeCombinedImageSampler, Count: 1})
	if err := c.reserve([]*DescriptorSetLayout{sampler}); !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("have %v, want ErrPoolExhausted", err)
	}
}

func TestDemand(t *testing.T) {
	l := layoutOf(
		Binding{Binding: 0, Type: vk.DescriptorTypeStorageBuffer, Count: 3},
		Binding{Binding: 1, Type: vk.DescriptorTypeStorageBuffer, Count: 1},
	)
	need := demand([]*DescriptorSetLayout{l, l})
	if have := need[vk.DescriptorTypeStorageBuffer]; have != 8 {
		t.Fatalf("have %d, want 8", have)
	}
}

func TestDescriptorSetsCheck(t *testing.T) {
	s := &DescriptorSets{
		layouts: []*DescriptorSetLayout{layoutOf(
			Binding{Binding: 2, Type: vk.DescriptorTypeStorageImage, Count: 1},
		)},
		handles: make([]vk.DescriptorSet, 1),
	}
	s.check(0, 2, vk.DescriptorTypeStorageImage)
	expectPanic(t, "descriptor set 1 out of 1", func() { s.check(1, 2, vk.DescriptorTypeStorageImage) })
	expectPanic(t, "has no binding 0", func() { s.check(0, 0, vk.DescriptorTypeStorageImage) })
	expectPanic(t, "binding 2 of set 0 has type", func() {
		s.check(0, 2, vk.DescriptorTypeUniformBuffer, vk.DescriptorTypeStorageBuffer)
	})
}
