package neutronvk

import (
	"testing"
	"unsafe"
)

type fakeWindow struct {
	width, height int
}

func (w *fakeWindow) CreateWindowSurface(interface{}, unsafe.Pointer) (uintptr, error) {
	return 0, nil
}

func (w *fakeWindow) GetFramebufferSize() (int, int) { return w.width, w.height }

func TestSurfaceStale(t *testing.T) {
	w := &fakeWindow{width: 640, height: 480}
	s := &Surface{window: w}
	if !s.Stale() {
		t.Fatalf("without infos: have fresh, want stale")
	}
	s.infos = &SurfaceInfo{width: 640, height: 480}
	if s.Stale() {
		t.Fatalf("same size: have stale, want fresh")
	}
	w.width = 800
	if !s.Stale() {
		t.Fatalf("after resize: have fresh, want stale")
	}
	if s.Infos() == nil {
		t.Fatalf("Infos: have nil, want the cached result")
	}
}
