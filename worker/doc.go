// Package worker abstracts a pipeline stage as a byte-stream transformer.
//
// A Worker is started once per run and exposes its input and output streams
// through a Session. NewProcess runs a subprocess (the job binary invoked with
// --mapper, --combiner or --reducer); NewFunc runs a stage in-process over
// io.Pipe. Both follow the same contract: write input, close it, read output
// to EOF, then Wait for the exit status.
package worker
