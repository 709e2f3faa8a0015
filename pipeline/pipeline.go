package pipeline

import "context"

// Iterator is a pull-based stream. Next returns (zero, false, nil) once the
// stream is exhausted; Close may be called at any point and releases the
// underlying reader or subprocess pipe.
type Iterator[T any] interface {
	Next(ctx context.Context) (T, bool, error)
	Close() error
}

// Pipeline is a lazy stream description. Each call to Iter opens a fresh
// iterator, so sources such as files are only touched while being pulled.
type Pipeline[T any] struct {
	create func(ctx context.Context) Iterator[T]
}

// Iter opens the pipeline. The caller owns the iterator and must Close it.
func (p *Pipeline[T]) Iter(ctx context.Context) Iterator[T] {
	return p.create(ctx)
}

// FromSlice streams items in order. Stage outputs held in memory between
// runner steps are fed back in this way.
func FromSlice[T any](items []T) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(context.Context) Iterator[T] {
			return &sliceIter[T]{items: items}
		},
	}
}

// ForEach pulls every value and hands it to fn. The first error from the
// source or from fn stops the pull and is returned, as does cancellation of
// ctx.
func ForEach[T any](ctx context.Context, p *Pipeline[T], fn func(context.Context, T) error) error {
	it := p.Iter(ctx)
	defer it.Close()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		val, ok, err := it.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := fn(ctx, val); err != nil {
			return err
		}
	}
}

// Collect buffers the whole stream. On error the values read so far are
// returned with it.
func Collect[T any](ctx context.Context, p *Pipeline[T]) ([]T, error) {
	var out []T
	err := ForEach(ctx, p, func(_ context.Context, v T) error {
		out = append(out, v)
		return nil
	})
	return out, err
}

type sliceIter[T any] struct {
	items []T
	pos   int
}

func (it *sliceIter[T]) Next(context.Context) (T, bool, error) {
	if it.pos >= len(it.items) {
		var zero T
		return zero, false, nil
	}
	v := it.items[it.pos]
	it.pos++
	return v, true, nil
}

func (it *sliceIter[T]) Close() error { return nil }
