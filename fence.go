package neutronvk

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// waitSlice bounds each native wait issued by WaitContext.
const waitSlice = 10 * time.Millisecond

// Submission is one batch of command buffers with the semaphores it waits
// on and signals. WaitStages defaults to all commands for every wait
// semaphore.
type Submission struct {
	Buffers    []*CommandBuffer
	Wait       []*Semaphore
	WaitStages []vk.PipelineStageFlags
	Signal     []*Semaphore
}

// Fence guards a submission and pins everything it references. The pins
// are dropped only once a wait has observed completion, so nothing reachable
// from submitted work can be destroyed while the device may still use it.
type Fence struct {
	refCounted

	device *Device
	handle vk.Fence

	mu      sync.Mutex
	pending bool
	buffers []*CommandBuffer
	pinned  []Resource
}

// NewFence creates a signaled fence; the first wait returns at once.
func NewFence(d *Device) (*Fence, error) {
	var fence vk.Fence
	ret := vk.CreateFence(d.handle, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}, nil, &fence)
	if isError(ret) {
		return nil, newCreateError(ErrResourceCreation, "create fence", ret)
	}
	f := &Fence{device: d, handle: fence}
	d.Retain()
	f.init(f.destroy)
	return f, nil
}

// destroy waits out pending work before the fence and its pins go away.
func (f *Fence) destroy() {
	if err := f.Wait(); err != nil {
		Logger().Warn("fence wait failed during teardown", "error", err)
		f.mu.Lock()
		f.observe()
		f.mu.Unlock()
	}
	vk.DestroyFence(f.device.handle, f.handle, nil)
	f.device.Release()
}

// Handle returns the native fence.
func (f *Fence) Handle() vk.Fence { return f.handle }

// Pinned returns the number of resources held for unobserved work.
func (f *Fence) Pinned() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pinned)
}

// Submit issues buffers to q guarded by the fence.
func (f *Fence) Submit(q *Queue, buffers ...*CommandBuffer) error {
	return f.SubmitWith(q, Submission{Buffers: buffers})
}

// SubmitWith issues s to q guarded by the fence. Every buffer must be
// Executable. Submitting again before the previous submission was waited on
// fails with ErrSynchronization.
func (f *Fence) SubmitWith(q *Queue, s Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending {
		return failf(ErrSynchronization, "submit to a fence with unobserved work")
	}
	for _, b := range s.Buffers {
		if st := b.State(); st != StateExecutable {
			contract("submit of a %s command buffer", st)
		}
	}
	stages := s.WaitStages
	if len(stages) == 0 && len(s.Wait) > 0 {
		stages = make([]vk.PipelineStageFlags, len(s.Wait))
		for i := range stages {
			stages[i] = vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
		}
	}
	if len(stages) != len(s.Wait) {
		contract("%d wait stages for %d wait semaphores", len(stages), len(s.Wait))
	}

	handles := make([]vk.CommandBuffer, len(s.Buffers))
	for i, b := range s.Buffers {
		handles[i] = b.handle
	}
	ret := vk.ResetFences(f.device.handle, 1, []vk.Fence{f.handle})
	if isError(ret) {
		return newError(ErrSynchronization, "reset fence", ret)
	}
	ret = vk.QueueSubmit(q.handle, 1, []vk.SubmitInfo{{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(s.Wait)),
		PWaitSemaphores:      semaphoreHandles(s.Wait),
		PWaitDstStageMask:    stages,
		CommandBufferCount:   uint32(len(handles)),
		PCommandBuffers:      handles,
		SignalSemaphoreCount: uint32(len(s.Signal)),
		PSignalSemaphores:    semaphoreHandles(s.Signal),
	}}, f.handle)
	if isError(ret) {
		return newError(ErrSynchronization, "queue submit", ret)
	}

	var extra []Resource
	for _, sem := range s.Wait {
		extra = append(extra, sem)
	}
	for _, sem := range s.Signal {
		extra = append(extra, sem)
	}
	f.pin(s.Buffers, extra)
	return nil
}

// pin takes a reference on every submitted object and marks the buffers
// Pending. Called with mu held.
func (f *Fence) pin(buffers []*CommandBuffer, extra []Resource) {
	for _, b := range buffers {
		b.Retain()
		b.markPending()
		f.buffers = append(f.buffers, b)
		f.pinned = append(f.pinned, b)
	}
	for _, r := range extra {
		r.Retain()
		f.pinned = append(f.pinned, r)
	}
	f.pending = true
}

// observe records completion: buffers return to Initial and the pins are
// released. Called with mu held.
func (f *Fence) observe() {
	for _, b := range f.buffers {
		b.completed()
	}
	pinned := f.pinned
	f.buffers = nil
	f.pinned = nil
	f.pending = false
	releaseAll(pinned)
}

// Wait blocks until the guarded work has completed, then releases the pins.
func (f *Fence) Wait() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.pending {
		return nil
	}
	ret := vk.WaitForFences(f.device.handle, 1, []vk.Fence{f.handle}, vk.True, vk.MaxUint64)
	if isError(ret) {
		return newError(ErrSynchronization, "wait for fence", ret)
	}
	f.observe()
	return nil
}

// WaitTimeout is Wait bounded by d. On expiry it returns ErrTimeout and the
// pins stay in place.
func (f *Fence) WaitTimeout(d time.Duration) error {
	if d < 0 {
		d = 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.pending {
		return nil
	}
	return f.waitNative(uint64(d.Nanoseconds()))
}

// waitNative issues one bounded wait. Called with mu held.
func (f *Fence) waitNative(timeout uint64) error {
	ret := vk.WaitForFences(f.device.handle, 1, []vk.Fence{f.handle}, vk.True, timeout)
	switch ret {
	case vk.Success:
		f.observe()
		return nil
	case vk.Timeout:
		return &Error{Kind: ErrTimeout, Op: "wait for fence", Result: ret}
	default:
		return newError(ErrSynchronization, "wait for fence", ret)
	}
}

// WaitContext waits until the work completes or ctx is done. Cancellation
// returns ctx.Err() and keeps the pins.
func (f *Fence) WaitContext(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		slice := waitSlice
		if deadline, ok := ctx.Deadline(); ok {
			if left := time.Until(deadline); left < slice {
				slice = left
			}
		}
		err := f.WaitTimeout(slice)
		if err == nil || !isTimeout(err) {
			return err
		}
	}
}

func isTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// Status reports whether the guarded work has completed without blocking.
// It never releases pins; only a wait does.
func (f *Fence) Status() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.pending {
		return true, nil
	}
	switch ret := vk.GetFenceStatus(f.device.handle, f.handle); ret {
	case vk.Success:
		return true, nil
	case vk.NotReady:
		return false, nil
	default:
		return false, newError(ErrSynchronization, "get fence status", ret)
	}
}

// WaitAll waits for every fence with pending work and observes each. The
// fences must be distinct and belong to one device.
func WaitAll(fences ...*Fence) error {
	var (
		device  vk.Device
		handles []vk.Fence
		waiting []*Fence
	)
	for _, f := range fences {
		f.mu.Lock()
		if f.pending {
			device = f.device.handle
			handles = append(handles, f.handle)
			waiting = append(waiting, f)
		} else {
			f.mu.Unlock()
		}
	}
	defer func() {
		for _, f := range waiting {
			f.mu.Unlock()
		}
	}()
	if len(handles) == 0 {
		return nil
	}
	ret := vk.WaitForFences(device, uint32(len(handles)), handles, vk.True, vk.MaxUint64)
	if isError(ret) {
		return newError(ErrSynchronization, "wait for fences", ret)
	}
	for _, f := range waiting {
		f.observe()
	}
	return nil
}
