package util

import (
	"iter"
	"reflect"
)

// Flatten returns a lazy depth-first walk over items. Slices, arrays and
// iter.Seq[any] values are descended into; strings, byte slices, maps and
// scalars are yielded as leaves. Each range over the result walks the inputs
// again.
func Flatten(items ...any) iter.Seq[any] {
	return func(yield func(any) bool) {
		for _, item := range items {
			if !walk(item, yield) {
				return
			}
		}
	}
}

func walk(v any, yield func(any) bool) bool {
	switch t := v.(type) {
	case nil, string, []byte:
		return yield(t)
	case []any:
		for _, e := range t {
			if !walk(e, yield) {
				return false
			}
		}
		return true
	case iter.Seq[any]:
		for e := range t {
			if !walk(e, yield) {
				return false
			}
		}
		return true
	}

	rv := reflect.ValueOf(v)
	if !isSequenceKind(rv) {
		return yield(v)
	}
	for i := 0; i < rv.Len(); i++ {
		if !walk(rv.Index(i).Interface(), yield) {
			return false
		}
	}
	return true
}

// IsSequence reports whether v would be descended into by Flatten.
func IsSequence(v any) bool {
	switch v.(type) {
	case nil, string, []byte:
		return false
	case []any, iter.Seq[any]:
		return true
	}
	return isSequenceKind(reflect.ValueOf(v))
}

func isSequenceKind(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Slice:
		return rv.Type().Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return true
	default:
		return false
	}
}

var seqType = reflect.TypeFor[iter.Seq[any]]()

// Materialize collects lazy sequences into slices so encoders only ever see
// concrete values. Sequences nested in []any, or in slices and arrays of
// interface or sequence elements, are collected too. Other values are
// returned unchanged.
func Materialize(v any) any {
	switch t := v.(type) {
	case nil, string, []byte:
		return v
	case iter.Seq[any]:
		out := make([]any, 0)
		for e := range t {
			out = append(out, Materialize(e))
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Materialize(e)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	if !isSequenceKind(rv) {
		return v
	}
	if elem := rv.Type().Elem(); elem.Kind() != reflect.Interface && elem != seqType {
		return v
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = Materialize(rv.Index(i).Interface())
	}
	return out
}
