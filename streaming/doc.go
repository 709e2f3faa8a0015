// Package streaming submits jobs to a Hadoop cluster through the streaming
// client.
//
// The job binary is shipped with -file and each task runs it with its phase
// flag, so the cluster drives the same stage code as the local runner:
//
//	r := streaming.New(cfg.Streaming)
//	err := r.Run(ctx, streaming.Job{Name: "wordcount", Binary: exe, Phases: []string{"mapper", "reducer"}})
//
// Output is written to "<output>__tmp_mrstream" first and moved over the
// output only after the job succeeded.
package streaming
