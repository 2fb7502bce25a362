package neutronvk

import (
	"encoding/binary"
	"reflect"
	"testing"
	"unsafe"
)

func TestSafeString(t *testing.T) {
	for in, want := range map[string]string{
		"":          "\x00",
		"main":      "main\x00",
		"main\x00": "main\x00",
		"a\x00b":    "a\x00b\x00",
	} {
		if have := safeString(in); have != want {
			t.Errorf("safeString(%q): have %q, want %q", in, have, want)
		}
	}
	have := safeStrings([]string{"VK_KHR_surface", "VK_KHR_swapchain\x00"})
	want := []string{"VK_KHR_surface\x00", "VK_KHR_swapchain\x00"}
	if !reflect.DeepEqual(have, want) {
		t.Errorf("safeStrings: have %q, want %q", have, want)
	}
}

func nativeOrder() binary.ByteOrder {
	x := uint16(1)
	if *(*byte)(unsafe.Pointer(&x)) == 1 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

func TestSliceUint32(t *testing.T) {
	words := []uint32{0x07230203, 0x00010000, 0xdeadbeef}
	data := make([]byte, 4*len(words)+2)
	for i, w := range words {
		nativeOrder().PutUint32(data[4*i:], w)
	}
	// Start at an odd offset so the input is not word aligned.
	shifted := append([]byte{0}, data...)[1:]
	if have := sliceUint32(shifted); !reflect.DeepEqual(have, words) {
		t.Fatalf("have %#x, want %#x", have, words)
	}
	if have := sliceUint32([]byte{1, 2, 3}); have != nil {
		t.Fatalf("short input: have %v, want nil", have)
	}
}

func TestAppendUnique(t *testing.T) {
	have := appendUnique([]string{"a"}, "b", "a", "c", "b")
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(have, want) {
		t.Fatalf("have %v, want %v", have, want)
	}
}
