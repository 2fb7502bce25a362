package neutronvk

import (
	"fmt"
	"sync"
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestDebuggerDeliversVerbatimInOrder(t *testing.T) {
	d := newDebugger()
	var have []DebugMessage
	d.setHandler(func(m DebugMessage) { have = append(have, m) })

	var want []DebugMessage
	for i := 0; i < 5; i++ {
		m := DebugMessage{
			Flags:      vk.DebugReportFlags(vk.DebugReportWarningBit),
			ObjectType: vk.DebugReportObjectTypeBuffer,
			Object:     uint64(0x1000 + i),
			Location:   uint(i),
			Code:       int32(-i),
			Layer:      "Validation",
			Text:       fmt.Sprintf("message %d %%s\x00 kept", i),
		}
		want = append(want, m)
		ret := d.callback(m.Flags, m.ObjectType, m.Object, m.Location, m.Code, m.Layer, m.Text, nil)
		if ret != vk.Bool32(vk.False) {
			t.Fatalf("callback: have %d, want false so the call is not aborted", ret)
		}
	}

	if len(have) != len(want) {
		t.Fatalf("have %d messages, want %d", len(have), len(want))
	}
	for i := range want {
		if have[i] != want[i] {
			t.Fatalf("message %d: have %+v, want %+v", i, have[i], want[i])
		}
	}
}

func TestDebuggerSerializesHandler(t *testing.T) {
	d := newDebugger()
	var (
		inside int
		peak   int
		count  int
	)
	d.setHandler(func(DebugMessage) {
		inside++
		if inside > peak {
			peak = inside
		}
		count++
		inside--
	})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				d.deliver(DebugMessage{Text: "x"})
			}
		}()
	}
	wg.Wait()
	if count != 800 || peak != 1 {
		t.Fatalf("have %d deliveries with %d concurrent, want 800 with 1", count, peak)
	}
}

func TestDebuggerNilHandlerRestoresDefault(t *testing.T) {
	d := newDebugger()
	called := false
	d.setHandler(func(DebugMessage) { called = true })
	d.setHandler(nil)
	d.deliver(DebugMessage{Text: "to the logger"})
	if called {
		t.Fatalf("have the replaced handler called, want the default")
	}
}

func TestDebugMessageSeverity(t *testing.T) {
	for _, tc := range []struct {
		flags vk.DebugReportFlagBits
		want  string
	}{
		{vk.DebugReportErrorBit | vk.DebugReportWarningBit, "error"},
		{vk.DebugReportWarningBit, "warning"},
		{vk.DebugReportPerformanceWarningBit, "performance"},
		{vk.DebugReportDebugBit, "debug"},
		{vk.DebugReportInformationBit, "information"},
	} {
		m := DebugMessage{Flags: vk.DebugReportFlags(tc.flags)}
		if have := m.Severity(); have != tc.want {
			t.Errorf("flags %#x: have %s, want %s", tc.flags, have, tc.want)
		}
	}
}
