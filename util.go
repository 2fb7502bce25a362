package neutronvk

import "unsafe"

func safeString(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\x00' {
		return s + "\x00"
	}
	return s
}

func safeStrings(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, safeString(s))
	}
	return out
}

// sliceUint32 copies SPIR-V bytes into native endian words. A trailing
// partial word is dropped.
func sliceUint32(data []byte) []uint32 {
	n := len(data) / 4
	if n == 0 {
		return nil
	}
	words := make([]uint32, n)
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), n*4), data)
	return words
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// appendUnique appends the values of add not already in list.
func appendUnique(list []string, add ...string) []string {
	for _, s := range add {
		if !contains(list, s) {
			list = append(list, s)
		}
	}
	return list
}
