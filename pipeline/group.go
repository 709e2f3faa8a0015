package pipeline

import (
	"context"
	"iter"
	"reflect"
)

// Group is a run of adjacent source values sharing one key.
type Group[K, V any] struct {
	Key    K
	Values *Values[V]
}

// Values streams the values of one Group. It is only readable while its group
// is the cursor's current group; once the cursor has moved on it reports
// exhaustion.
type Values[V any] struct {
	src valueSource[V]
	gen uint64
	err error
}

type valueSource[V any] interface {
	nextValue(ctx context.Context, gen uint64) (V, bool, error)
}

// Next returns the next value of the group.
func (v *Values[V]) Next(ctx context.Context) (V, bool, error) {
	val, ok, err := v.src.nextValue(ctx, v.gen)
	if err != nil {
		v.err = err
	}
	return val, ok, err
}

// Close is a no-op; the source belongs to the group cursor.
func (v *Values[V]) Close() error { return nil }

// All returns the remaining values as a sequence. A source error ends the
// sequence and is reported by Err.
func (v *Values[V]) All(ctx context.Context) iter.Seq[V] {
	return func(yield func(V) bool) {
		for {
			val, ok, err := v.Next(ctx)
			if err != nil || !ok {
				return
			}
			if !yield(val) {
				return
			}
		}
	}
}

// Err returns the first source error seen while reading values.
func (v *Values[V]) Err() error { return v.err }

// GroupBy splits p into runs of adjacent values whose keys are equal. It does
// not sort: equal keys separated by another key form separate groups. Unread
// values of a group are skipped when the next group is pulled. A nil equal
// compares keys with reflect.DeepEqual.
func GroupBy[T, K, V any](p *Pipeline[T], key func(T) K, value func(T) V, equal func(a, b K) bool) *Pipeline[Group[K, V]] {
	if equal == nil {
		equal = func(a, b K) bool { return reflect.DeepEqual(a, b) }
	}
	return &Pipeline[Group[K, V]]{
		create: func(ctx context.Context) Iterator[Group[K, V]] {
			return &groupIter[T, K, V]{source: p.create(ctx), key: key, value: value, equal: equal}
		},
	}
}

type groupIter[T, K, V any] struct {
	source Iterator[T]
	key    func(T) K
	value  func(T) V
	equal  func(a, b K) bool

	gen     uint64
	current K
	open    bool
	// first is set until the group's head value has been handed out. The
	// head always belongs to its own group, whatever equal reports.
	first bool

	head    T
	hasHead bool
	done    bool
	err     error
}

func (it *groupIter[T, K, V]) Next(ctx context.Context) (Group[K, V], bool, error) {
	var zero Group[K, V]
	if it.err != nil {
		return zero, false, it.err
	}
	for it.open {
		if _, ok, err := it.nextValue(ctx, it.gen); err != nil {
			return zero, false, err
		} else if !ok {
			break
		}
	}
	it.gen++

	if !it.hasHead {
		ok, err := it.pull(ctx)
		if err != nil || !ok {
			return zero, false, err
		}
	}
	it.current = it.key(it.head)
	it.open = true
	it.first = true
	return Group[K, V]{Key: it.current, Values: &Values[V]{src: it, gen: it.gen}}, true, nil
}

func (it *groupIter[T, K, V]) nextValue(ctx context.Context, gen uint64) (V, bool, error) {
	var zero V
	if gen != it.gen || !it.open {
		return zero, false, nil
	}
	if it.err != nil {
		return zero, false, it.err
	}
	if !it.hasHead {
		ok, err := it.pull(ctx)
		if err != nil {
			return zero, false, err
		}
		if !ok {
			it.open = false
			return zero, false, nil
		}
	}
	if !it.first && !it.equal(it.current, it.key(it.head)) {
		it.open = false
		return zero, false, nil
	}
	it.first = false
	it.hasHead = false
	return it.value(it.head), true, nil
}

func (it *groupIter[T, K, V]) pull(ctx context.Context) (bool, error) {
	if it.done {
		return false, nil
	}
	val, ok, err := it.source.Next(ctx)
	if err != nil {
		it.err = err
		return false, err
	}
	if !ok {
		it.done = true
		return false, nil
	}
	it.head = val
	it.hasHead = true
	return true, nil
}

func (it *groupIter[T, K, V]) Close() error { return it.source.Close() }
