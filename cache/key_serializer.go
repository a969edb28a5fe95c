package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// KeySerializer builds the cache key a store is bound to from a namespace
// and the arguments that identify the value. Keys must be stable across
// process restarts because persistent stores are looked up by them.
type KeySerializer interface {
	SerializeKey(namespace string, args ...any) string
}

type defaultKeySerializer struct{}

// NewDefaultKeySerializer returns the reflection based serializer.
//
// Scalars are written with %v, pointers are followed, slices and arrays are
// written element by element, maps are sorted by their serialized keys and
// structs list their exported fields. Anything else falls back to JSON.
// Functions and channels are rejected with a fixed marker since their
// identity does not survive a restart.
func NewDefaultKeySerializer() KeySerializer {
	return defaultKeySerializer{}
}

func (s defaultKeySerializer) SerializeKey(namespace string, args ...any) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, namespace)
	for _, arg := range args {
		parts = append(parts, s.value(reflect.ValueOf(arg)))
	}
	return strings.Join(parts, KeySeparator)
}

func (s defaultKeySerializer) value(rv reflect.Value) string {
	if !rv.IsValid() {
		return "nil"
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return s.value(rv.Elem())
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprint(rv.Interface())
	case reflect.Slice:
		if rv.IsNil() {
			return "[]"
		}
		return s.sequence(rv)
	case reflect.Array:
		return s.sequence(rv)
	case reflect.Map:
		return s.mapping(rv)
	case reflect.Struct:
		return s.structure(rv)
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return "unstable:" + rv.Type().String()
	}

	if rv.CanInterface() {
		if data, err := json.Marshal(rv.Interface()); err == nil {
			return string(data)
		}
	}
	return rv.Type().String()
}

func (s defaultKeySerializer) sequence(rv reflect.Value) string {
	items := make([]string, rv.Len())
	for i := range items {
		items[i] = s.value(rv.Index(i))
	}
	return "[" + strings.Join(items, ",") + "]"
}

func (s defaultKeySerializer) mapping(rv reflect.Value) string {
	pairs := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, s.value(iter.Key())+"="+s.value(iter.Value()))
	}
	sort.Strings(pairs)
	return "{" + strings.Join(pairs, ",") + "}"
}

func (s defaultKeySerializer) structure(rv reflect.Value) string {
	rt := rv.Type()
	fields := make([]string, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		fields = append(fields, field.Name+":"+s.value(rv.Field(i)))
	}
	return rt.Name() + "{" + strings.Join(fields, ",") + "}"
}
