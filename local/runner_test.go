package local

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/kbukum/mrstream/errors"
	"github.com/kbukum/mrstream/process"
	"github.com/kbukum/mrstream/worker"
)

// identity streams its input back line by line without waiting for EOF.
func identity(name string) worker.Worker {
	return worker.NewFunc(name, func(_ context.Context, r io.Reader, w io.Writer) error {
		_, err := io.Copy(w, r)
		return err
	})
}

// readAll consumes its whole input before writing anything.
func readAll(name string) worker.Worker {
	return worker.NewFunc(name, func(_ context.Context, r io.Reader, w io.Writer) error {
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	})
}

func failing(name string, err error) worker.Worker {
	return worker.NewFunc(name, func(_ context.Context, r io.Reader, w io.Writer) error {
		_, _ = io.WriteString(w, "partial\n")
		return err
	})
}

func newRunner(cfg Config, stdin string, fs afero.Fs) (*Runner, *bytes.Buffer) {
	var out bytes.Buffer
	return New(cfg, WithStdin(strings.NewReader(stdin)), WithStdout(&out), WithFs(fs)), &out
}

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRun_SingleStage(t *testing.T) {
	r, out := newRunner(Config{}, "x\ny", afero.NewMemMapFs())
	report, err := r.Run(context.Background(), []worker.Worker{identity("mapper")})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out.String() != "x\ny\n" {
		t.Errorf("output = %q, want unterminated last line completed", out.String())
	}
	if report.RunID == "" {
		t.Error("expected a run id")
	}
	if len(report.Stages) != 1 || report.Stages[0].LinesIn != 2 || report.Stages[0].LinesOut != 2 {
		t.Errorf("stages = %+v", report.Stages)
	}
	if report.InputLines != 2 || report.Truncated {
		t.Errorf("report = %+v", report)
	}
}

func TestRun_SortsBetweenStages(t *testing.T) {
	r, out := newRunner(Config{}, "b\t1\na\t2\nb\t0\nab\t9\n", afero.NewMemMapFs())
	_, err := r.Run(context.Background(), []worker.Worker{identity("mapper"), identity("reducer")})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// Stable on equal keys; "a" sorts before "ab".
	if want := "a\t2\nab\t9\nb\t1\nb\t0\n"; out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestRun_FirstStageOutputIsNotSorted(t *testing.T) {
	r, out := newRunner(Config{}, "b\na\n", afero.NewMemMapFs())
	if _, err := r.Run(context.Background(), []worker.Worker{identity("mapper")}); err != nil {
		t.Fatal(err)
	}
	if out.String() != "b\na\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestRun_LargeStreamsDoNotDeadlock(t *testing.T) {
	var input strings.Builder
	const n = 200_000
	for i := n; i > 0; i-- {
		fmt.Fprintf(&input, "key%07d\tsome padding to make the stream several megabytes\n", i)
	}

	tests := []struct {
		name    string
		workers []worker.Worker
	}{
		{"streaming worker", []worker.Worker{identity("mapper"), identity("reducer")}},
		{"read-all worker", []worker.Worker{readAll("mapper")}},
		{"subprocess sort", []worker.Worker{worker.NewProcess("sort", process.Command{Binary: "sort"}), identity("reducer")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, out := newRunner(Config{}, input.String(), afero.NewMemMapFs())
			report, err := r.Run(context.Background(), tc.workers)
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if got := bytes.Count(out.Bytes(), []byte("\n")); got != n {
				t.Errorf("got %d output lines, want %d", got, n)
			}
			if report.Truncated {
				t.Error("input should not be truncated")
			}
		})
	}
}

func TestRun_LineCap(t *testing.T) {
	r, out := newRunner(Config{MaxInputLines: 2}, "1\n2\n3\n4\n5\n", afero.NewMemMapFs())
	report, err := r.Run(context.Background(), []worker.Worker{identity("mapper")})
	if err != nil {
		t.Fatalf("truncation must not fail the run: %v", err)
	}
	if out.String() != "1\n2\n" {
		t.Errorf("output = %q", out.String())
	}
	if !report.Truncated || report.InputLines != 2 {
		t.Errorf("report = %+v", report)
	}
	if len(report.Warnings) != 1 || report.Warnings[0].Code != errors.ErrCodeResourceLimit {
		t.Fatalf("warnings = %v", report.Warnings)
	}
	if report.Warnings[0].Fatal {
		t.Error("resource limit warnings are not fatal")
	}
}

func TestRun_LineCapNotHitAtExactCount(t *testing.T) {
	r, _ := newRunner(Config{MaxInputLines: 2}, "1\n2\n", afero.NewMemMapFs())
	report, err := r.Run(context.Background(), []worker.Worker{identity("mapper")})
	if err != nil {
		t.Fatal(err)
	}
	if report.Truncated {
		t.Error("input with exactly the cap should not be truncated")
	}
}

func TestRun_ByteCap(t *testing.T) {
	r, out := newRunner(Config{MaxInputBytes: 5}, "abc\ndef\n", afero.NewMemMapFs())
	report, err := r.Run(context.Background(), []worker.Worker{identity("mapper")})
	if err != nil {
		t.Fatal(err)
	}
	if out.String() != "abc\n" {
		t.Errorf("output = %q", out.String())
	}
	if !report.Truncated || report.InputBytes != 4 {
		t.Errorf("report = %+v", report)
	}
}

func TestRun_Inputs(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "in/a.txt", "a1\na2\n")
	writeFile(t, fs, "in/b.txt", "b1")
	writeFile(t, fs, "other.log", "o1\n")
	if err := fs.MkdirAll("in/dir.txt", 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		input []string
		want  string
	}{
		{"single file", []string{"in/a.txt"}, "a1\na2\n"},
		{"glob skips directories", []string{"in/*.txt"}, "a1\na2\nb1\n"},
		{"duplicates read once", []string{"in/a.txt", "in/*.txt"}, "a1\na2\nb1\n"},
		{"order kept", []string{"other.log", "in/b.txt"}, "o1\nb1\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, out := newRunner(Config{Input: tc.input}, "stdin is ignored\n", fs)
			if _, err := r.Run(context.Background(), []worker.Worker{identity("mapper")}); err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if out.String() != tc.want {
				t.Errorf("output = %q, want %q", out.String(), tc.want)
			}
		})
	}
}

func TestRun_StdinDash(t *testing.T) {
	r, out := newRunner(Config{Input: []string{"-"}}, "from stdin\n", afero.NewMemMapFs())
	if _, err := r.Run(context.Background(), []worker.Worker{identity("mapper")}); err != nil {
		t.Fatal(err)
	}
	if out.String() != "from stdin\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestRun_InvalidInputs(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "in/a.txt", "a\n")

	tests := []struct {
		name   string
		input  []string
		errMsg string
	}{
		{"no match", []string{"in/*.csv"}, "does not exist"},
		{"missing file", []string{"nope.txt"}, "does not exist"},
		{"dash mixed with files", []string{"in/a.txt", "-"}, "cannot be combined"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, _ := newRunner(Config{Input: tc.input}, "", fs)
			_, err := r.Run(context.Background(), []worker.Worker{identity("mapper")})
			if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
				t.Fatalf("expected INVALID_INPUT, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("expected %q in %q", tc.errMsg, err.Error())
			}
		})
	}
}

func TestRun_Output(t *testing.T) {
	t.Run("writes file", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		r, stdout := newRunner(Config{Output: "out/result.txt"}, "a\n", fs)
		if _, err := r.Run(context.Background(), []worker.Worker{identity("mapper")}); err != nil {
			t.Fatal(err)
		}
		got, err := afero.ReadFile(fs, "out/result.txt")
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "a\n" || stdout.Len() != 0 {
			t.Errorf("file = %q, stdout = %q", got, stdout.String())
		}
	})

	t.Run("empty existing file is reused", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "out.txt", "")
		r, _ := newRunner(Config{Output: "out.txt"}, "a\n", fs)
		if _, err := r.Run(context.Background(), []worker.Worker{identity("mapper")}); err != nil {
			t.Fatal(err)
		}
	})

	refusals := []struct {
		name  string
		setup func(fs afero.Fs)
	}{
		{"non-empty file", func(fs afero.Fs) { _ = afero.WriteFile(fs, "out.txt", []byte("old\n"), 0o644) }},
		{"directory", func(fs afero.Fs) { _ = fs.MkdirAll("out.txt", 0o755) }},
	}
	for _, tc := range refusals {
		t.Run(tc.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			tc.setup(fs)
			r, _ := newRunner(Config{Output: "out.txt"}, "a\n", fs)
			_, err := r.Run(context.Background(), []worker.Worker{identity("mapper")})
			if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
				t.Fatalf("expected INVALID_INPUT, got %v", err)
			}
		})
	}
}

func TestRun_StageFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	boom := stderrors.New("bad record on line 1")
	r, _ := newRunner(Config{Output: "out.txt"}, "a\nb\n", fs)

	report, err := r.Run(context.Background(), []worker.Worker{identity("mapper"), failing("reducer", boom)})
	if !errors.HasCode(err, errors.ErrCodeProcessFailure) {
		t.Fatalf("expected PROCESS_FAILURE, got %v", err)
	}
	appErr, _ := errors.AsAppError(err)
	if appErr.Details["worker"] != "reducer" {
		t.Errorf("details = %v", appErr.Details)
	}
	if !strings.Contains(fmt.Sprint(appErr.Details["stderr"]), "bad record on line 1") {
		t.Errorf("expected worker diagnostics in details, got %v", appErr.Details)
	}
	if !stderrors.Is(err, boom) {
		t.Error("expected the worker error as cause")
	}
	if ok, _ := afero.Exists(fs, "out.txt"); ok {
		t.Error("no output may be written when a stage fails")
	}
	if failed, ok := report.Failed(); !ok || failed.Name != "reducer" {
		t.Errorf("Failed() = %+v, %v", failed, ok)
	}
}

func TestRun_SubprocessFailure(t *testing.T) {
	w := worker.NewProcess("mapper", process.Command{
		Binary: "sh",
		Args:   []string{"-c", "cat >/dev/null; echo 'Traceback: oops' >&2; exit 3"},
	})
	r, out := newRunner(Config{}, "a\n", afero.NewMemMapFs())
	report, err := r.Run(context.Background(), []worker.Worker{w})
	if !errors.HasCode(err, errors.ErrCodeProcessFailure) {
		t.Fatalf("expected PROCESS_FAILURE, got %v", err)
	}
	appErr, _ := errors.AsAppError(err)
	if appErr.Details["exit_code"] != 3 {
		t.Errorf("details = %v", appErr.Details)
	}
	if !strings.Contains(fmt.Sprint(appErr.Details["stderr"]), "Traceback: oops") {
		t.Errorf("stderr detail = %v", appErr.Details["stderr"])
	}
	if report.Stages[0].ExitCode != 3 {
		t.Errorf("stage = %+v", report.Stages[0])
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestRun_WorkerStopsReadingEarly(t *testing.T) {
	head := worker.NewFunc("mapper", func(_ context.Context, r io.Reader, w io.Writer) error {
		buf := make([]byte, 2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return err
		}
		_, err := w.Write(append(buf, '\n'))
		return err
	})
	var input strings.Builder
	for i := 0; i < 100_000; i++ {
		input.WriteString("line\n")
	}
	r, out := newRunner(Config{}, input.String(), afero.NewMemMapFs())
	if _, err := r.Run(context.Background(), []worker.Worker{head}); err != nil {
		t.Fatalf("a worker ignoring input is not a failure: %v", err)
	}
	if out.String() != "li\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestRun_NoWorkers(t *testing.T) {
	r, _ := newRunner(Config{}, "", afero.NewMemMapFs())
	_, err := r.Run(context.Background(), nil)
	if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
}

func TestRun_NegativeCapRejected(t *testing.T) {
	r, _ := newRunner(Config{MaxInputLines: -1}, "", afero.NewMemMapFs())
	_, err := r.Run(context.Background(), []worker.Worker{identity("mapper")})
	if err == nil || !strings.Contains(err.Error(), "max_input_lines") {
		t.Fatalf("expected cap validation error, got %v", err)
	}
}

func TestLineKey(t *testing.T) {
	tests := []struct{ line, want string }{
		{"k\tv\n", "k"},
		{"k\tv\tw", "k"},
		{"novalue\r\n", "novalue"},
		{"\tv", ""},
	}
	for _, tc := range tests {
		if got := string(lineKey([]byte(tc.line))); got != tc.want {
			t.Errorf("lineKey(%q) = %q, want %q", tc.line, got, tc.want)
		}
	}
}
