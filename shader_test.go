package neutronvk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

func TestNewShaderModuleRejectsMalformed(t *testing.T) {
	for _, code := range [][]byte{nil, {}, {0x03, 0x02, 0x23}, make([]byte, 10)} {
		if _, err := NewShaderModule(nil, code); !errors.Is(err, ErrResourceCreation) {
			t.Errorf("%d bytes: have %v, want ErrResourceCreation", len(code), err)
		}
	}
}

func TestLoadShaderModuleMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.spv")
	_, err := LoadShaderModule(nil, path)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("have %v, want a not-exist error", err)
	}
}
