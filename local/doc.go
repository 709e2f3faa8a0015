// Package local runs a job's stages on one host.
//
// Each stage is a worker.Worker: a subprocess or an in-process function. The
// runner streams the input into the first worker from its own goroutine while
// draining the worker's output, sorts that output by key and feeds it to the
// next worker. Only the last stage's output reaches the configured sink, and
// only when every stage succeeded.
//
//	r := local.New(local.Config{Input: []string{"data/*.txt"}})
//	report, err := r.Run(ctx, job.InProcessWorkers())
//
// Input beyond Config.MaxInputLines or Config.MaxInputBytes is dropped with a
// RESOURCE_LIMIT warning in the report.
package local
