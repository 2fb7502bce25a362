package neutronvk

// Frame is one slot of a FrameRing: a primary command buffer and the fence
// guarding its last submission.
type Frame struct {
	Commands *CommandBuffer
	Fence    *Fence
}

// Submit issues the frame's command buffer to q guarded by its fence.
func (f *Frame) Submit(q *Queue, wait, signal []*Semaphore) error {
	return f.Fence.SubmitWith(q, Submission{
		Buffers: []*CommandBuffer{f.Commands},
		Wait:    wait,
		Signal:  signal,
	})
}

// FrameRing cycles through a fixed number of frames so the host can record
// one frame while earlier ones are still executing. It is not safe for
// concurrent use.
type FrameRing struct {
	pool    *CommandPool
	frames  []*Frame
	current int
}

// NewFrameRing allocates depth frames from pool. The ring retains the pool
// through its command buffers.
func NewFrameRing(pool *CommandPool, depth int) (*FrameRing, error) {
	if depth <= 0 {
		contract("frame ring of depth %d", depth)
	}
	buffers, err := pool.AllocateN(depth)
	if err != nil {
		return nil, err
	}
	r := &FrameRing{pool: pool, frames: make([]*Frame, 0, depth), current: -1}
	for _, b := range buffers {
		fence, err := NewFence(pool.device)
		if err != nil {
			built := len(r.frames)
			r.Release()
			for _, rest := range buffers[built:] {
				rest.Release()
			}
			return nil, err
		}
		r.frames = append(r.frames, &Frame{Commands: b, Fence: fence})
	}
	return r, nil
}

// Len returns the ring depth.
func (r *FrameRing) Len() int { return len(r.frames) }

// Next advances to the following frame, waits out its previous submission
// and returns it with the command buffer ready for Begin.
func (r *FrameRing) Next() (*Frame, error) {
	r.current = (r.current + 1) % len(r.frames)
	f := r.frames[r.current]
	if err := f.Fence.Wait(); err != nil {
		return nil, err
	}
	if f.Commands.State() != StateInitial {
		// Recorded but never submitted.
		if err := f.Commands.Reset(); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Current returns the frame last handed out by Next, or nil before the
// first call.
func (r *FrameRing) Current() *Frame {
	if r.current < 0 {
		return nil
	}
	return r.frames[r.current]
}

// WaitAll blocks until every frame's work has completed.
func (r *FrameRing) WaitAll() error {
	fences := make([]*Fence, len(r.frames))
	for i, f := range r.frames {
		fences[i] = f.Fence
	}
	return WaitAll(fences...)
}

// Release waits for all frames and releases their fences and command
// buffers.
func (r *FrameRing) Release() {
	if err := r.WaitAll(); err != nil {
		Logger().Warn("frame ring wait failed during release", "error", err)
	}
	for i := len(r.frames) - 1; i >= 0; i-- {
		f := r.frames[i]
		f.Fence.Release()
		f.Commands.Release()
	}
	r.frames = nil
}
