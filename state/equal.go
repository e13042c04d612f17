package state

import (
	"reflect"
	"unsafe"
)

// EqualFunc compares two values for equality.
type EqualFunc[T any] func(a, b T) bool

// EqualComparable compares comparable values with ==.
func EqualComparable[T comparable](a, b T) bool {
	return a == b
}

// Is reports whether a and b are the same value by identity.
//
// Comparable values use ==, except that NaN equals NaN. Slices, maps,
// funcs, chans and pointers compare by reference; two slices are identical
// when they share backing array and length. Values of non-comparable
// composite types (structs holding slices, for example) are never
// identical, so selectors returning freshly built composites notify on
// every transition unless given Shallow or a custom EqualFunc.
func Is[T any](a, b T) bool {
	return identical(reflect.ValueOf(&a).Elem(), reflect.ValueOf(&b).Elem())
}

// Shallow compares one level deep: struct fields, map entries, and slice or
// array elements are compared with Is. Pointers to structs compare their
// pointees.
func Shallow[T any](a, b T) bool {
	va, vb := reflect.ValueOf(&a).Elem(), reflect.ValueOf(&b).Elem()
	if identical(va, vb) {
		return true
	}
	va, vb, ok := unwrap(va, vb)
	if !ok {
		return false
	}
	if va.Kind() == reflect.Pointer {
		if va.IsNil() || vb.IsNil() {
			return false
		}
		va, vb = va.Elem(), vb.Elem()
	}
	switch va.Kind() {
	case reflect.Struct:
		for i := 0; i < va.NumField(); i++ {
			if !identical(va.Field(i), vb.Field(i)) {
				return false
			}
		}
		return true
	case reflect.Map:
		if va.IsNil() != vb.IsNil() || va.Len() != vb.Len() {
			return false
		}
		iter := va.MapRange()
		for iter.Next() {
			other := vb.MapIndex(iter.Key())
			if !other.IsValid() || !identical(iter.Value(), other) {
				return false
			}
		}
		return true
	case reflect.Slice, reflect.Array:
		if va.Len() != vb.Len() {
			return false
		}
		for i := 0; i < va.Len(); i++ {
			if !identical(va.Index(i), vb.Index(i)) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func identical(a, b reflect.Value) bool {
	a, b, ok := unwrap(a, b)
	if !ok {
		return false
	}
	if !a.IsValid() {
		return true
	}
	switch a.Kind() {
	case reflect.Float32, reflect.Float64:
		x, y := a.Float(), b.Float()
		return x == y || (x != x && y != y)
	case reflect.Slice:
		return a.IsNil() == b.IsNil() && a.Len() == b.Len() && a.Pointer() == b.Pointer()
	case reflect.Func:
		return funcIdentity(a) == funcIdentity(b)
	case reflect.Map, reflect.Chan, reflect.Pointer, reflect.UnsafePointer:
		return a.Pointer() == b.Pointer()
	}
	if a.Comparable() && b.Comparable() {
		return a.Equal(b)
	}
	return false
}

// unwrap strips interfaces and reports whether both sides share a type.
// Two nil interfaces come back as invalid values.
func unwrap(a, b reflect.Value) (reflect.Value, reflect.Value, bool) {
	for a.Kind() == reflect.Interface && b.Kind() == reflect.Interface {
		if a.IsNil() || b.IsNil() {
			return reflect.Value{}, reflect.Value{}, a.IsNil() && b.IsNil()
		}
		a, b = a.Elem(), b.Elem()
	}
	if a.Type() != b.Type() {
		return a, b, false
	}
	return a, b, true
}

// funcIdentity returns the closure pointer held by a func value, so two
// closures built from the same literal with different captures differ.
// reflect.Value.Pointer only exposes the shared code pointer.
func funcIdentity(v reflect.Value) uintptr {
	if v.IsNil() {
		return 0
	}
	if v.CanAddr() {
		return *(*uintptr)(unsafe.Pointer(v.UnsafeAddr()))
	}
	return v.Pointer()
}

// SameFunc reports whether a and b hold the same func value by closure
// identity.
func SameFunc[F any](a, b F) bool {
	va, vb := reflect.ValueOf(&a).Elem(), reflect.ValueOf(&b).Elem()
	if va.Kind() != reflect.Func {
		return identical(va, vb)
	}
	return funcIdentity(va) == funcIdentity(vb)
}
