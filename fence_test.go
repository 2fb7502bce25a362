package neutronvk

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

func TestFencePinsUntilObserved(t *testing.T) {
	var log []string
	f := &Fence{}
	a := detachedBuffer(StateExecutable)
	b := detachedBuffer(StateExecutable)
	sem := newNode("semaphore", nil, &log)
	tracked := newNode("buffer contents", nil, &log)
	a.use(tracked)
	tracked.Release()

	f.pin([]*CommandBuffer{a, b}, []Resource{sem})
	if have := f.Pinned(); have != 3 {
		t.Fatalf("pinned: have %d, want 3", have)
	}
	for _, c := range []*CommandBuffer{a, b} {
		if have := c.State(); have != StatePending {
			t.Fatalf("state after submit: have %v, want pending", have)
		}
	}

	// The caller drops everything; the fence keeps it alive.
	a.Release()
	b.Release()
	sem.Release()
	if len(log) != 0 {
		t.Fatalf("have %v destroyed before completion was observed, want none", log)
	}
	if have := a.RefCount(); have != 1 {
		t.Fatalf("buffer refs held by the fence: have %d, want 1", have)
	}

	f.mu.Lock()
	f.observe()
	f.mu.Unlock()
	if have := f.Pinned(); have != 0 {
		t.Fatalf("pinned after observe: have %d, want 0", have)
	}
	if have := strings.Join(log, ","); have != "semaphore,buffer contents" {
		t.Fatalf("released after observe: have %s, want semaphore,buffer contents", have)
	}
}

func TestFenceObserveReturnsBuffersToInitial(t *testing.T) {
	f := &Fence{}
	c := detachedBuffer(StateExecutable)
	f.pin([]*CommandBuffer{c}, nil)
	f.observe()
	if have := c.State(); have != StateInitial {
		t.Fatalf("have %v, want initial", have)
	}
	if have := c.RefCount(); have != 1 {
		t.Fatalf("refs: have %d, want the caller's 1", have)
	}
	c.Release()
}

func TestFenceSubmitRejections(t *testing.T) {
	t.Run("unobserved work", func(t *testing.T) {
		f := &Fence{pending: true}
		err := f.Submit(nil, detachedBuffer(StateExecutable))
		if !errors.Is(err, ErrSynchronization) {
			t.Fatalf("have %v, want ErrSynchronization", err)
		}
	})
	t.Run("not executable", func(t *testing.T) {
		f := &Fence{}
		expectPanic(t, "submit of a recording command buffer", func() {
			f.Submit(nil, detachedBuffer(StateRecording))
		})
		if f.Pinned() != 0 {
			t.Fatalf("have pins after a rejected submit, want none")
		}
	})
	t.Run("initial", func(t *testing.T) {
		f := &Fence{}
		expectPanic(t, "submit of a initial command buffer", func() {
			f.Submit(nil, detachedBuffer(StateInitial))
		})
	})
	t.Run("wait stage count", func(t *testing.T) {
		f := &Fence{}
		expectPanic(t, "2 wait stages for 1 wait semaphores", func() {
			f.SubmitWith(nil, Submission{
				Buffers:    []*CommandBuffer{detachedBuffer(StateExecutable)},
				Wait:       []*Semaphore{{}},
				WaitStages: make([]vk.PipelineStageFlags, 2),
			})
		})
	})
}

func TestFenceWaitsWithoutWork(t *testing.T) {
	f := &Fence{}
	if err := f.Wait(); err != nil {
		t.Fatalf("Wait: have %v, want nil", err)
	}
	if err := f.WaitTimeout(0); err != nil {
		t.Fatalf("WaitTimeout: have %v, want nil", err)
	}
	if done, err := f.Status(); !done || err != nil {
		t.Fatalf("Status: have (%t, %v), want (true, nil)", done, err)
	}
	if err := WaitAll(f, &Fence{}); err != nil {
		t.Fatalf("WaitAll: have %v, want nil", err)
	}
}

func TestFenceWaitContextCancelled(t *testing.T) {
	var log []string
	f := &Fence{}
	f.pin(nil, []Resource{newNode("pinned", nil, &log)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := f.WaitContext(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("have %v, want context.Canceled", err)
	}
	if have := f.Pinned(); have != 1 {
		t.Fatalf("pinned after cancellation: have %d, want 1", have)
	}
	if len(log) != 0 {
		t.Fatalf("have %v released on cancellation, want none", log)
	}
}

func TestIsTimeout(t *testing.T) {
	if !isTimeout(errors.WithStack(&Error{Kind: ErrTimeout, Op: "wait"})) {
		t.Fatalf("wrapped timeout: have false, want true")
	}
	if isTimeout(failf(ErrSynchronization, "wait")) {
		t.Fatalf("synchronization error: have true, want false")
	}
}
