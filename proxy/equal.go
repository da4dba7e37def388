package proxy

import (
	"reflect"

	"ncss/host"
)

// ShallowEqual reports whether a and b have the same keys with identical
// values. Maps, slices and pointers are compared by reference, functions are
// never equal unless both are nil. Go offers no identity for closures, so a
// handler which should not trigger recompute has to be passed behind a stable
// pointer (a *func or a pointer to the struct holding it).
func ShallowEqual(a, b host.Props) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !identical(av, bv) {
			return false
		}
	}
	return true
}

func identical(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Func:
		return va.IsNil() && vb.IsNil()
	case reflect.Slice:
		if va.Len() != vb.Len() {
			return false
		}
		return va.Len() == 0 || va.Pointer() == vb.Pointer()
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	}
	// struct or array may hold uncomparable values in interface fields
	if !va.Comparable() || !vb.Comparable() {
		return false
	}
	return a == b
}
