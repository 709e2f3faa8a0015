package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/kbukum/mrstream/job"
	"github.com/kbukum/mrstream/local"
)

func runPhase(t *testing.T, phase job.Phase, input string) string {
	t.Helper()
	var out bytes.Buffer
	if err := newJob().RunStage(context.Background(), phase, strings.NewReader(input), &out); err != nil {
		t.Fatalf("%s failed: %v", phase, err)
	}
	return out.String()
}

func TestMapperEmitsTwoRecordsPerLine(t *testing.T) {
	out := runPhase(t, job.Mapper, "a b c\nd e f\n")
	if n := strings.Count(out, "\n"); n != 4 {
		t.Errorf("expected 4 mapper records, got %d: %q", n, out)
	}
}

func TestWordCountThroughStages(t *testing.T) {
	mapped := runPhase(t, job.Mapper, "hello big world\nfoo bar baz\n")

	// Emulate the shuffle: "line" records before "word" records.
	var lineRecs, wordRecs []string
	for _, l := range strings.SplitAfter(mapped, "\n") {
		switch {
		case l == "":
		case strings.Contains(l, "line"):
			lineRecs = append(lineRecs, l)
		default:
			wordRecs = append(wordRecs, l)
		}
	}
	shuffled := strings.Join(append(lineRecs, wordRecs...), "")

	combined := runPhase(t, job.Combiner, shuffled)
	if got := runPhase(t, job.Reducer, combined); got != "line\t2\nword\t6\n" {
		t.Errorf("reducer output = %q", got)
	}
}

func TestWordCountLocalRun(t *testing.T) {
	var out bytes.Buffer
	r := local.New(local.Config{},
		local.WithStdin(strings.NewReader("the cat sat\nthe dog ran\n")),
		local.WithStdout(&out),
	)
	report, err := r.Run(context.Background(), newJob().InProcessWorkers())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got := out.String(); got != "line\t2\nword\t6\n" {
		t.Errorf("output = %q", got)
	}
	if len(report.Stages) != 3 {
		t.Errorf("expected 3 stages, got %d", len(report.Stages))
	}
}

func TestSumRejectsNonNumbers(t *testing.T) {
	var out bytes.Buffer
	// msgpack "word" key with the string "abc" where a count is expected.
	err := newJob().RunStage(context.Background(), job.Reducer, strings.NewReader("\xa4word\t\xa3abc\n"), &out)
	if err == nil {
		t.Fatal("expected an error for a non-numeric count")
	}
}
