package runtime

import "reflect"

// Lifecycle is implemented by components that hold resources outside their
// hook scope. Mount runs when a component instance enters the tree and
// Unmount when it leaves, including when a parent swaps in a new instance
// at the same position.
type Lifecycle interface {
	Mount()
	Unmount()
}

func attachComponent(c Component, loop Loop) {
	bindComponent(c, loop)
	if m, ok := c.(Lifecycle); ok {
		m.Mount()
	}
}

func detachComponent(c Component) {
	if m, ok := c.(Lifecycle); ok {
		m.Unmount()
	}
	unbindComponent(c)
}

// sameInstance reports whether a and b are the same component instance.
// Values of non-comparable types are never the same instance.
func sameInstance(a, b Component) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Func:
		return false
	}
	return va.Comparable() && vb.Comparable() && va.Equal(vb)
}
