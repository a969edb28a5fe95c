package cache

import "reflect"

// isNil reports whether v is an absent value: a nil interface, pointer,
// channel or function. Nil slices and maps are valid empty values.
func isNil[T any](v T) bool {
	if any(v) == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
