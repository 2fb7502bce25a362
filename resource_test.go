package neutronvk

import (
	"strings"
	"testing"
)

// node is a fake wrapper that retains a parent, like every real one.
type node struct {
	refCounted

	name   string
	parent *node
	log    *[]string
}

func newNode(name string, parent *node, log *[]string) *node {
	n := &node{name: name, parent: parent, log: log}
	if parent != nil {
		parent.Retain()
	}
	n.init(func() {
		*n.log = append(*n.log, n.name)
		if n.parent != nil {
			n.parent.Release()
		}
	})
	return n
}

func expectPanic(t *testing.T, contains string, fn func()) {
	t.Helper()
	defer func() {
		v := recover()
		if v == nil {
			t.Fatalf("have no panic, want one containing %q", contains)
		}
		msg, _ := v.(string)
		if !strings.HasPrefix(msg, "neutronvk: ") || !strings.Contains(msg, contains) {
			t.Fatalf("have panic %v, want one containing %q", v, contains)
		}
	}()
	fn()
}

func TestReleaseOrder(t *testing.T) {
	var log []string
	ctx := newNode("context", nil, &log)
	dev := newNode("device", ctx, &log)
	buf := newNode("buffer", dev, &log)
	view := newNode("view", buf, &log)

	// The caller drops its handles parent first; children keep parents alive.
	ctx.Release()
	dev.Release()
	buf.Release()
	if len(log) != 0 {
		t.Fatalf("have %v destroyed while a child holds them, want none", log)
	}
	if have := dev.RefCount(); have != 1 {
		t.Fatalf("device refs: have %d, want 1", have)
	}

	view.Release()
	want := []string{"view", "buffer", "device", "context"}
	if strings.Join(log, ",") != strings.Join(want, ",") {
		t.Fatalf("destroy order: have %v, want %v", log, want)
	}
}

func TestReleaseDestroyedPanics(t *testing.T) {
	var log []string
	n := newNode("n", nil, &log)
	n.Release()
	expectPanic(t, "release of a destroyed object", n.Release)
}

func TestRetainDestroyedPanics(t *testing.T) {
	var log []string
	n := newNode("n", nil, &log)
	n.Release()
	expectPanic(t, "retain of a destroyed object", n.Retain)
}

func TestReleaseAll(t *testing.T) {
	var log []string
	a := newNode("a", nil, &log)
	b := newNode("b", nil, &log)
	c := newNode("c", nil, &log)
	releaseAll([]Resource{a, nil, b, c})
	if have, want := strings.Join(log, ","), "c,b,a"; have != want {
		t.Fatalf("have %s, want %s", have, want)
	}
}
