package neutronvk

import (
	"testing"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

func TestErrorKinds(t *testing.T) {
	for _, tc := range []struct {
		name string
		err  error
		is   []error
		not  []error
	}{
		{
			name: "success",
			err:  newError(ErrSynchronization, "wait", vk.Success),
		},
		{
			name: "device lost",
			err:  newError(ErrSynchronization, "wait for fence", vk.ErrorDeviceLost),
			is:   []error{ErrSynchronization, ErrDeviceLost},
			not:  []error{ErrAllocation},
		},
		{
			name: "out of device memory",
			err:  newCreateError(ErrResourceCreation, "create buffer", vk.ErrorOutOfDeviceMemory),
			is:   []error{ErrAllocation},
			not:  []error{ErrResourceCreation, ErrDeviceLost},
		},
		{
			name: "out of host memory",
			err:  newCreateError(ErrResourceCreation, "create image", vk.ErrorOutOfHostMemory),
			is:   []error{ErrAllocation},
		},
		{
			name: "creation failure",
			err:  newCreateError(ErrResourceCreation, "create image", vk.ErrorFormatNotSupported),
			is:   []error{ErrResourceCreation},
			not:  []error{ErrAllocation},
		},
		{
			name: "client side",
			err:  failf(ErrPoolExhausted, "allocate %d sets", 3),
			is:   []error{ErrPoolExhausted},
			not:  []error{ErrDeviceLost},
		},
		{
			name: "queue implies device",
			err:  failf(ErrNoSuitableQueue, "no family"),
			is:   []error{ErrNoSuitableQueue, ErrNoSuitableDevice},
		},
		{
			name: "wrapped",
			err:  errors.Wrap(newError(ErrSynchronization, "submit", vk.ErrorDeviceLost), "frame 3"),
			is:   []error{ErrSynchronization, ErrDeviceLost},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if len(tc.is) == 0 && tc.err != nil {
				t.Fatalf("have %v, want nil", tc.err)
			}
			for _, kind := range tc.is {
				if !errors.Is(tc.err, kind) {
					t.Errorf("errors.Is(%v, %v): have false, want true", tc.err, kind)
				}
			}
			for _, kind := range tc.not {
				if errors.Is(tc.err, kind) {
					t.Errorf("errors.Is(%v, %v): have true, want false", tc.err, kind)
				}
			}
		})
	}
}

func TestErrorAs(t *testing.T) {
	err := newError(ErrSwapchainCreation, "create swapchain", vk.ErrorInitializationFailed)
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("errors.As: have false, want true")
	}
	if e.Op != "create swapchain" || e.Result != vk.ErrorInitializationFailed {
		t.Fatalf("have %+v, want op create swapchain with its result", e)
	}
}
