// Package job defines map/combine/reduce jobs and runs their stages.
//
// A Job holds up to three stages. Each stage reads lines from a reader,
// decodes them with the phase's protocol, groups adjacent records with equal
// keys and calls the stage's Process function once per group:
//
//	wc := &job.Job{
//	    Name: "wordcount",
//	    Mapper: &job.Stage{Process: job.PerRecord(func(ctx context.Context, _, line any, emit job.Emitter) error {
//	        return emit("words", len(strings.Fields(line.(string))))
//	    })},
//	    Reducer: &job.Stage{Process: sum},
//	}
//	job.Execute(wc)
//
// The same binary acts as the driver and as every worker: --mapper,
// --combiner and --reducer run one stage over stdin and stdout, which is how
// both the local runner and Hadoop streaming invoke it.
package job
