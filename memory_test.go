package neutronvk

import (
	"testing"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

var testMemoryFlags = []vk.MemoryPropertyFlags{
	DeviceLocal,
	HostVisible,
	HostCoherent,
	DeviceLocal | HostCoherent,
	vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCachedBit),
	0,
}

func TestFindMemoryType(t *testing.T) {
	for _, tc := range []struct {
		name  string
		bits  uint32
		want  vk.MemoryPropertyFlags
		index uint32
		ok    bool
	}{
		{"device local", 0x3f, DeviceLocal, 0, true},
		{"host visible", 0x3f, HostVisible, 1, true},
		{"coherent", 0x3f, HostCoherent, 2, true},
		{"bits exclude lower", 0x3c, HostVisible, 2, true},
		{"superset", 0x3f, DeviceLocal | HostVisible, 3, true},
		{"no flags", 0x20, 0, 5, true},
		{"none allowed", 0, 0, 0, false},
		{"bits without match", 0x01, HostVisible, 0, false},
		{"unknown type bits", 0xffffffc0, 0, 0, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			index, ok := findMemoryType(tc.bits, testMemoryFlags, tc.want)
			if ok != tc.ok || (ok && index != tc.index) {
				t.Fatalf("have (%d, %t), want (%d, %t)", index, ok, tc.index, tc.ok)
			}
		})
	}
}

// Every selection satisfies both constraints, and a failure means no index
// could have.
func TestFindMemoryTypeProperty(t *testing.T) {
	wants := []vk.MemoryPropertyFlags{0, DeviceLocal, HostVisible, HostCoherent,
		DeviceLocal | HostVisible, vk.MemoryPropertyFlags(vk.MemoryPropertyHostCachedBit)}
	for bits := uint32(0); bits < 1<<len(testMemoryFlags); bits++ {
		for _, want := range wants {
			index, ok := findMemoryType(bits, testMemoryFlags, want)
			first := -1
			for i, f := range testMemoryFlags {
				if bits&(1<<uint(i)) != 0 && f&want == want {
					first = i
					break
				}
			}
			if !ok {
				if first >= 0 {
					t.Fatalf("bits %#x want %#x: have no match, want %d", bits, want, first)
				}
				continue
			}
			if bits&(1<<index) == 0 {
				t.Fatalf("bits %#x: have index %d outside the type bits", bits, index)
			}
			if testMemoryFlags[index]&want != want {
				t.Fatalf("want %#x: have index %d with flags %#x", want, index, testMemoryFlags[index])
			}
			if int(index) != first {
				t.Fatalf("bits %#x want %#x: have %d, want lowest index %d", bits, want, index, first)
			}
		}
	}
}

func TestSelectMemoryType(t *testing.T) {
	var props vk.PhysicalDeviceMemoryProperties
	props.MemoryTypeCount = uint32(len(testMemoryFlags))
	for i, f := range testMemoryFlags {
		props.MemoryTypes[i].PropertyFlags = f
	}

	index, err := SelectMemoryType(vk.MemoryRequirements{MemoryTypeBits: 0x06}, props, HostCoherent)
	if err != nil || index != 2 {
		t.Fatalf("have (%d, %v), want (2, nil)", index, err)
	}

	_, err = SelectMemoryType(vk.MemoryRequirements{MemoryTypeBits: 0x01}, props, HostVisible)
	if !errors.Is(err, ErrMemoryTypeNotFound) {
		t.Fatalf("have %v, want ErrMemoryTypeNotFound", err)
	}

	// Types past MemoryTypeCount are never considered.
	props.MemoryTypeCount = 1
	_, err = SelectMemoryType(vk.MemoryRequirements{MemoryTypeBits: 0x3f}, props, HostVisible)
	if !errors.Is(err, ErrMemoryTypeNotFound) {
		t.Fatalf("have %v, want ErrMemoryTypeNotFound", err)
	}
}
