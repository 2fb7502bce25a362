package neutronvk

import (
	"context"
	"sync"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

// DebugMessage is one diagnostic emitted by the driver or a layer. Fields
// are delivered exactly as reported.
type DebugMessage struct {
	Flags      vk.DebugReportFlags
	ObjectType vk.DebugReportObjectType
	Object     uint64
	Location   uint
	Code       int32
	Layer      string
	Text       string
}

// Severity names the most severe flag set on the message.
func (m DebugMessage) Severity() string {
	switch {
	case m.Flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		return "error"
	case m.Flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		return "warning"
	case m.Flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		return "performance"
	case m.Flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		return "debug"
	default:
		return "information"
	}
}

func (m DebugMessage) level() slog.Level {
	switch m.Severity() {
	case "error":
		return slog.LevelError
	case "warning", "performance":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// LogDebugMessage is the default debug handler. It writes the message to
// the package logger.
func LogDebugMessage(m DebugMessage) {
	Logger().Log(context.Background(), m.level(), m.Text,
		"severity", m.Severity(),
		"category", int(m.ObjectType),
		"code", m.Code,
		"layer", m.Layer,
	)
}

// debugger serializes delivery so a handler sees messages in the order the
// driver emitted them, even when the driver reports from several threads.
type debugger struct {
	mu      sync.Mutex
	handler func(DebugMessage)
}

func newDebugger() *debugger {
	return &debugger{handler: LogDebugMessage}
}

func (d *debugger) setHandler(fn func(DebugMessage)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if fn == nil {
		fn = LogDebugMessage
	}
	d.handler = fn
}

func (d *debugger) deliver(m DebugMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler(m)
}

func (d *debugger) callback(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	d.deliver(DebugMessage{
		Flags:      flags,
		ObjectType: objectType,
		Object:     object,
		Location:   location,
		Code:       messageCode,
		Layer:      pLayerPrefix,
		Text:       pMessage,
	})
	return vk.Bool32(vk.False)
}
