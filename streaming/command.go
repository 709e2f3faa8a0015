package streaming

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"

	"github.com/kbukum/mrstream/logger"
	"github.com/kbukum/mrstream/process"
	"github.com/kbukum/mrstream/util"
)

// Jobconf keys the runner reads or sets.
const (
	KeyJobName     = "mapred.job.name"
	KeyJobPriority = "mapred.job.priority"
	KeyQueueName   = "mapred.job.queue.name"
	KeyJobTracker  = "mapred.job.tracker"
	KeyReduceTasks = "mapred.reduce.tasks"
)

// Job describes what to submit.
type Job struct {
	Name string
	// Binary is the job executable. It is shipped with -file and runs the
	// tasks unless the config overrides their commands.
	Binary string
	// Phases lists the job's phases: "mapper", "combiner", "reducer".
	Phases []string
}

// jobconf is an insertion-ordered set of -D properties.
type jobconf struct {
	keys   []string
	values map[string]string
}

func newJobconf() *jobconf {
	return &jobconf{values: make(map[string]string)}
}

func (c *jobconf) set(key, value string) {
	if _, ok := c.values[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.values[key] = value
}

func (c *jobconf) get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

func (c *jobconf) args() []string {
	args := make([]string, 0, 2*len(c.keys))
	for _, k := range c.keys {
		args = append(args, "-D", k+"="+c.values[k])
	}
	return args
}

// jobconf merges the defaults, the configured entries and the preset of the
// selected queue, in that order.
func (r *Runner) jobconf(job Job) *jobconf {
	conf := newJobconf()
	conf.set(KeyJobPriority, "NORMAL")
	for _, kv := range r.cfg.Jobconf {
		k, v, ok := splitPair(kv)
		if !ok {
			r.log.Warn("invalid jobconf entry ignored", logger.Fields("entry", kv))
			continue
		}
		conf.set(k, v)
	}
	if queue, ok := conf.get(KeyQueueName); ok {
		for _, kv := range r.cfg.Queues[queue] {
			if k, v, ok := splitPair(kv); ok {
				conf.set(k, v)
			}
		}
	}
	if _, ok := conf.get(KeyJobName); !ok {
		conf.set(KeyJobName, "mrstream-"+job.Name)
	}
	return conf
}

// Command builds the streaming command for job writing to output.
func (r *Runner) Command(job Job, output string) process.Command {
	return r.command(r.jobconf(job), job, output)
}

func (r *Runner) command(conf *jobconf, job Job, output string) process.Command {
	args := r.entry()
	args = append(args, conf.args()...)

	for _, opt := range []struct{ flag, value string }{
		{"-inputformat", r.cfg.InputFormat},
		{"-outputformat", r.cfg.OutputFormat},
		{"-partitioner", r.cfg.Partitioner},
	} {
		if opt.value != "" {
			args = append(args, opt.flag, opt.value)
		}
	}
	for _, in := range util.Unique(r.cfg.Input) {
		args = append(args, "-input", in)
	}
	args = append(args, "-output", output)
	for _, kv := range r.cfg.Cmdenv {
		args = append(args, "-cmdenv", kv)
	}
	for _, archive := range util.Unique(r.cfg.CacheArchives) {
		args = append(args, "-cacheArchive", archive)
	}
	files := r.cfg.Files
	if job.Binary != "" {
		files = append(files[:len(files):len(files)], job.Binary)
	}
	for _, f := range util.Unique(files) {
		args = append(args, "-file", f)
	}
	for _, phase := range []string{"mapper", "combiner", "reducer"} {
		if task := r.task(job, phase); task != "" {
			args = append(args, "-"+phase, task)
		}
	}
	args = append(args, r.cfg.Others...)

	return r.jobCommand(args)
}

// client is the hadoop client command with no arguments.
func (r *Runner) client() process.Command {
	return process.Command{Binary: r.cfg.Hadoop}
}

// jobCommand is a client call whose progress output is shown live.
func (r *Runner) jobCommand(args []string) process.Command {
	cmd := r.client().With(args...)
	cmd.Stderr = r.stderr
	return cmd
}

// task returns the command a phase runs on the cluster.
func (r *Runner) task(job Job, phase string) string {
	override := map[string]string{
		"mapper":   r.cfg.Mapper,
		"combiner": r.cfg.Combiner,
		"reducer":  r.cfg.Reducer,
	}[phase]
	if override != "" {
		return override
	}
	if job.Binary == "" {
		return ""
	}
	for _, p := range job.Phases {
		if p == phase {
			// Shipped files land in the task's working directory.
			return fmt.Sprintf("./%s --%s", filepath.Base(job.Binary), phase)
		}
	}
	return ""
}

// mergeCommand builds the identity job that rewrites tmp into n files.
func (r *Runner) mergeCommand(conf *jobconf, tmp, output string, n int) process.Command {
	args := r.entry()
	for _, key := range []string{KeyQueueName, KeyJobTracker} {
		if v, ok := conf.get(key); ok {
			args = append(args, "-D", key+"="+v)
		}
	}
	args = append(args,
		"-D", fmt.Sprintf("%s=%d", KeyReduceTasks, n),
		"-input", tmp,
		"-output", output,
		"-mapper", "cat",
	)
	return r.jobCommand(args)
}

// needsMerge reports whether the output has more files than MergeOutput.
func (r *Runner) needsMerge(conf *jobconf) bool {
	if r.cfg.MergeOutput <= 0 {
		return false
	}
	raw, _ := conf.get(KeyReduceTasks)
	tasks, err := cast.ToIntE(raw)
	if err != nil {
		return false
	}
	return r.cfg.MergeOutput < tasks
}

func (r *Runner) entry() []string {
	if r.cfg.Jar != "" {
		return []string{"jar", r.cfg.Jar}
	}
	return []string{"streaming"}
}

// Pretty renders cmd one option per line for logs.
func Pretty(cmd process.Command) string {
	var b strings.Builder
	b.WriteString(cmd.Binary)
	for _, a := range cmd.Args {
		if strings.HasPrefix(a, "-") {
			b.WriteString(" \\\n\t")
		} else {
			b.WriteByte(' ')
		}
		b.WriteString(quote(a))
	}
	return b.String()
}

func quote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"\\$`*?[]{}()<>|&;") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
