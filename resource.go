package neutronvk

import "sync/atomic"

// Resource is an owned object that needs no further operations beyond
// having its lifetime extended. Every wrapper in this package implements it.
//
// Retain adds a reference; Release drops one. When the last reference is
// dropped the native handle is destroyed and the references the object holds
// on its parents are released in turn.
type Resource interface {
	Retain()
	Release()
}

// refCounted is embedded by every wrapper. The zero value is a released
// object; init arms it with one reference.
type refCounted struct {
	refs    int32
	destroy func()
}

func (r *refCounted) init(destroy func()) {
	r.destroy = destroy
	atomic.StoreInt32(&r.refs, 1)
}

// Retain adds a reference. Retaining a destroyed object panics.
func (r *refCounted) Retain() {
	if atomic.AddInt32(&r.refs, 1) <= 1 {
		contract("retain of a destroyed object")
	}
}

// Release drops a reference and destroys the object when it was the last.
// Releasing a destroyed object panics.
func (r *refCounted) Release() {
	switch n := atomic.AddInt32(&r.refs, -1); {
	case n == 0:
		if r.destroy != nil {
			r.destroy()
		}
	case n < 0:
		contract("release of a destroyed object")
	}
}

// RefCount returns the number of live references.
func (r *refCounted) RefCount() int {
	return int(atomic.LoadInt32(&r.refs))
}

// releaseAll drops one reference on each non-nil resource, last first, so
// that children go before the parents they were created from.
func releaseAll(rs []Resource) {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] != nil {
			rs[i].Release()
		}
	}
}
