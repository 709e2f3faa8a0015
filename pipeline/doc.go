// Package pipeline provides composable, pull-based stream operators.
//
// Pipelines are lazy. No work happens until values are pulled via Collect,
// ForEach or Iter, and each operator pulls from the previous one on demand.
//
// # Sources
//
//   - FromSlice: values already held in memory
//   - Lines, OpenLines: newline-delimited byte streams
//
// # Operators
//
//   - Map: transform each value
//   - Tap: side-effect without altering the value (counting lines)
//   - TakeWhile: stop at the first rejected value
//   - Concat: join pipelines sequentially, opening each on demand
//   - GroupBy: split a key-contiguous stream into groups
//
// # Usage
//
//	lines := pipeline.Lines(os.Stdin)
//	records := pipeline.Map(lines, decode)
//	groups := pipeline.GroupBy(records, keyOf, valueOf, nil)
//	err := pipeline.ForEach(ctx, groups, func(ctx context.Context, g pipeline.Group[any, any]) error {
//	    for v := range g.Values.All(ctx) {
//	        ...
//	    }
//	    return g.Values.Err()
//	})
package pipeline
