package neutronvk

import (
	"fmt"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

var (
	// ErrInitialization means the Vulkan loader could not be initialized or
	// the instance could not be created.
	ErrInitialization = errors.New("neutronvk: initialization failed")
	// ErrNoSuitableDevice means no physical device satisfies the requested
	// capabilities.
	ErrNoSuitableDevice = errors.New("neutronvk: no suitable device")
	// ErrNoSuitableQueue means the selected device exposes no queue family for
	// the requested work.
	ErrNoSuitableQueue = errors.New("neutronvk: no suitable queue")
	// ErrMemoryTypeNotFound means no memory type matches both the resource
	// requirements and the requested visibility.
	ErrMemoryTypeNotFound = errors.New("neutronvk: memory type not found")
	// ErrAllocation means the device or host ran out of memory.
	ErrAllocation = errors.New("neutronvk: allocation failure")
	// ErrResourceCreation means a native object could not be created.
	ErrResourceCreation = errors.New("neutronvk: resource creation failed")
	// ErrPoolExhausted means a descriptor pool has no capacity left for the
	// requested sets.
	ErrPoolExhausted = errors.New("neutronvk: descriptor pool exhausted")
	// ErrSynchronization means a fence or queue operation failed.
	ErrSynchronization = errors.New("neutronvk: synchronization error")
	// ErrTimeout means a bounded wait expired before the device signaled.
	ErrTimeout = errors.New("neutronvk: wait timed out")
	// ErrSwapchainCreation means the surface capabilities could not be met.
	ErrSwapchainCreation = errors.New("neutronvk: swapchain creation failed")
	// ErrSurfaceOutOfDate means the swapchain no longer matches its surface.
	// It is recoverable: recreate the swapchain and retry.
	ErrSurfaceOutOfDate = errors.New("neutronvk: surface out of date")
	// ErrInvalidImageIndex means a swapchain image index is out of range.
	ErrInvalidImageIndex = errors.New("neutronvk: invalid swapchain image index")
	// ErrDeviceLost means the device is unusable. Everything created from it
	// must be released and the device recreated.
	ErrDeviceLost = errors.New("neutronvk: device lost")
)

// Error is a failure reported by a native call or by client side checks.
type Error struct {
	// Kind is one of the Err* sentinels.
	Kind error
	// Op names the failed operation.
	Op string
	// Result is the native result, vk.Success for client side failures.
	Result vk.Result
}

func (e *Error) Error() string {
	if e.Result == vk.Success {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s (%d)", e.Op, e.Kind, vk.Error(e.Result).Error(), e.Result)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Is reports device loss regardless of Kind. A missing queue family is
// also a missing device.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrDeviceLost:
		return e.Result == vk.ErrorDeviceLost
	case ErrNoSuitableDevice:
		return e.Kind == ErrNoSuitableQueue
	}
	return false
}

func isError(ret vk.Result) bool {
	return ret != vk.Success
}

// newError wraps a failed result into an *Error of the given kind with a
// stack trace attached. It returns nil on vk.Success.
func newError(kind error, op string, ret vk.Result) error {
	if ret == vk.Success {
		return nil
	}
	return errors.WithStack(&Error{Kind: kind, Op: op, Result: ret})
}

// newCreateError classifies creation failures: out of memory results become
// ErrAllocation, everything else the given kind.
func newCreateError(kind error, op string, ret vk.Result) error {
	switch ret {
	case vk.ErrorOutOfDeviceMemory, vk.ErrorOutOfHostMemory:
		kind = ErrAllocation
	}
	return newError(kind, op, ret)
}

// failf builds a client side error without a native result.
func failf(kind error, format string, args ...interface{}) error {
	return errors.WithStack(&Error{Kind: kind, Op: fmt.Sprintf(format, args...)})
}

// contract panics on programmer errors: recording in the wrong state,
// releasing a destroyed object and similar.
func contract(format string, args ...interface{}) {
	panic("neutronvk: " + fmt.Sprintf(format, args...))
}
