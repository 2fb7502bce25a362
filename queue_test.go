package neutronvk

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func family(flags vk.QueueFlagBits, count uint32) vk.QueueFamilyProperties {
	return vk.QueueFamilyProperties{QueueFlags: vk.QueueFlags(flags), QueueCount: count}
}

func TestSelectQueueFamily(t *testing.T) {
	families := []vk.QueueFamilyProperties{
		family(vk.QueueTransferBit, 2),
		family(vk.QueueGraphicsBit|vk.QueueComputeBit, 0),
		family(vk.QueueComputeBit, 4),
		family(vk.QueueGraphicsBit|vk.QueueComputeBit, 16),
		family(vk.QueueGraphicsBit, 1),
	}
	for _, tc := range []struct {
		name    string
		present func(uint32) bool
		want    uint32
		ok      bool
	}{
		{"no surface", nil, 3, true},
		{"presents everywhere", func(uint32) bool { return true }, 3, true},
		{"presents on last", func(f uint32) bool { return f == 4 }, 4, true},
		{"presents on compute only", func(f uint32) bool { return f == 2 }, 0, false},
		{"presents nowhere", func(uint32) bool { return false }, 0, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			have, ok := selectQueueFamily(families, tc.present)
			if ok != tc.ok || (ok && have != tc.want) {
				t.Fatalf("have (%d, %t), want (%d, %t)", have, ok, tc.want, tc.ok)
			}
		})
	}

	if _, ok := selectQueueFamily(nil, nil); ok {
		t.Fatalf("no families: have ok, want failure")
	}
}

func TestQueueRoles(t *testing.T) {
	for _, tc := range []struct {
		available                uint32
		count, graphics, compute uint32
	}{
		{1, 1, 0, 0},
		{2, 2, 0, 1},
		{16, 2, 0, 1},
	} {
		count, graphics, compute := queueRoles(tc.available)
		if count != tc.count || graphics != tc.graphics || compute != tc.compute {
			t.Errorf("%d available: have (%d, %d, %d), want (%d, %d, %d)",
				tc.available, count, graphics, compute, tc.count, tc.graphics, tc.compute)
		}
		if graphics >= count || compute >= count {
			t.Errorf("%d available: role index outside the %d created queues", tc.available, count)
		}
	}
}
