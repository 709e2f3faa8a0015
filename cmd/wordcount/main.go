// Command wordcount counts lines and words of its input.
//
//	wordcount --input 'data/*.txt'            # local run, subprocess workers
//	wordcount -r inline --input data.txt      # local run, in-process workers
//	wordcount -r streaming --input /logs --output /out -D mapred.reduce.tasks=4
package main

import (
	"context"
	"strings"

	"github.com/spf13/cast"

	"github.com/kbukum/mrstream/job"
	"github.com/kbukum/mrstream/pipeline"
)

func main() {
	job.Execute(newJob())
}

func newJob() *job.Job {
	return &job.Job{
		Name:     "wordcount",
		Mapper:   &job.Stage{Process: job.PerRecord(countLine)},
		Combiner: &job.Stage{Process: sum},
		Reducer:  &job.Stage{Process: sum},
	}
}

func countLine(_ context.Context, _, value any, emit job.Emitter) error {
	line := cast.ToString(value)
	if err := emit("line", 1); err != nil {
		return err
	}
	return emit("word", len(strings.Fields(line)))
}

func sum(ctx context.Context, key any, values *pipeline.Values[any], emit job.Emitter) error {
	var total int64
	for v := range values.All(ctx) {
		n, err := cast.ToInt64E(v)
		if err != nil {
			return err
		}
		total += n
	}
	if err := values.Err(); err != nil {
		return err
	}
	return emit(key, total)
}
