package neutronvk

import vk "github.com/vulkan-go/vulkan"

// Semaphore orders work between queue submissions and presentation.
type Semaphore struct {
	refCounted

	device *Device
	handle vk.Semaphore
}

func NewSemaphore(d *Device) (*Semaphore, error) {
	var sem vk.Semaphore
	ret := vk.CreateSemaphore(d.handle, &vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}, nil, &sem)
	if isError(ret) {
		return nil, newCreateError(ErrResourceCreation, "create semaphore", ret)
	}
	s := &Semaphore{device: d, handle: sem}
	d.Retain()
	s.init(s.destroy)
	return s, nil
}

func (s *Semaphore) destroy() {
	vk.DestroySemaphore(s.device.handle, s.handle, nil)
	s.device.Release()
}

// Handle returns the native semaphore.
func (s *Semaphore) Handle() vk.Semaphore { return s.handle }

func semaphoreHandles(sems []*Semaphore) []vk.Semaphore {
	if len(sems) == 0 {
		return nil
	}
	out := make([]vk.Semaphore, len(sems))
	for i, s := range sems {
		out[i] = s.handle
	}
	return out
}
