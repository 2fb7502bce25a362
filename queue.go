package neutronvk

import (
	vk "github.com/vulkan-go/vulkan"
)

// Queue roles requested from the selected family.
const (
	RoleGraphics = "graphics"
	RoleCompute  = "compute"
)

// Queue is a device work queue. It belongs to its Device and is valid while
// the device lives. Submissions to one queue from several goroutines must be
// serialized by the caller.
type Queue struct {
	device *Device
	handle vk.Queue
	family uint32
	index  uint32
	role   string
}

// Handle returns the native queue.
func (q *Queue) Handle() vk.Queue { return q.handle }

// Family returns the queue family index.
func (q *Queue) Family() uint32 { return q.family }

// Index returns the queue index within its family.
func (q *Queue) Index() uint32 { return q.index }

// Role returns RoleGraphics or RoleCompute.
func (q *Queue) Role() string { return q.role }

// WaitIdle blocks until all work submitted to the queue has completed.
func (q *Queue) WaitIdle() error {
	return newError(ErrSynchronization, "queue wait idle", vk.QueueWaitIdle(q.handle))
}

// selectQueueFamily returns the first family supporting graphics work and,
// when present is given, presentation.
func selectQueueFamily(families []vk.QueueFamilyProperties, present func(family uint32) bool) (uint32, bool) {
	for i, fam := range families {
		if fam.QueueCount == 0 {
			continue
		}
		if fam.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) == 0 {
			continue
		}
		if present != nil && !present(uint32(i)) {
			continue
		}
		return uint32(i), true
	}
	return 0, false
}

// queueRoles returns how many queues to create in a family exposing
// available queues, and the queue index for each role. Compute gets its own
// queue when the family has a second one and shares the graphics queue
// otherwise.
func queueRoles(available uint32) (count, graphics, compute uint32) {
	switch {
	case available >= 2:
		return 2, 0, 1
	default:
		return 1, 0, 0
	}
}
