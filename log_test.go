package neutronvk

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

func TestLogDebugMessage(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer SetLogger(nil)

	LogDebugMessage(DebugMessage{
		Flags:      vk.DebugReportFlags(vk.DebugReportErrorBit),
		ObjectType: vk.DebugReportObjectTypeImage,
		Code:       17,
		Layer:      "Validation",
		Text:       "image used in wrong layout",
	})

	var rec map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	for key, want := range map[string]interface{}{
		"level":    "ERROR",
		"msg":      "image used in wrong layout",
		"severity": "error",
		"category": float64(vk.DebugReportObjectTypeImage),
		"code":     float64(17),
		"layer":    "Validation",
	} {
		if have := rec[key]; have != want {
			t.Errorf("%s: have %v, want %v", key, have, want)
		}
	}
}

func TestSilentByDefault(t *testing.T) {
	SetLogger(nil)
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("default logger: have enabled, want silent")
	}
}

func TestExtensionSetWarnsOnDrop(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	defer SetLogger(nil)

	set := extensionSet{kind: "layer", wanted: []string{"VK_LAYER_missing"}}
	if have := set.enabled(); len(have) != 0 {
		t.Fatalf("have %v enabled, want none", have)
	}
	if !bytes.Contains(buf.Bytes(), []byte("VK_LAYER_missing")) {
		t.Fatalf("have log %q, want a warning naming the layer", buf.String())
	}
}
