package process

import (
	"io"
	"slices"
	"strings"
	"time"
)

// Command describes a subprocess: a job binary running one stage, or a call
// to the hadoop client.
type Command struct {
	// Binary is the executable path or name (resolved via PATH).
	Binary string
	Args   []string
	// Dir is the working directory. If empty, uses the current directory.
	Dir string
	// Env holds extra KEY=VALUE pairs added to the inherited environment.
	Env []string
	// Stdin feeds Run. Start always attaches a pipe instead.
	Stdin io.Reader
	// Stderr receives a live copy of standard error, which is captured in
	// the Result either way.
	Stderr io.Writer
	// GracePeriod is how long to wait after SIGTERM before SIGKILL.
	// Defaults to 5 seconds if zero.
	GracePeriod time.Duration
}

// With returns a copy of c with args appended. The copy never shares its
// argument slice with c.
func (c Command) With(args ...string) Command {
	c.Args = append(slices.Clone(c.Args), args...)
	return c
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.Join(append([]string{c.Binary}, c.Args...), " ")
}
