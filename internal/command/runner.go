package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/MrWong99/vibeline/internal/observe"
)

// ErrNotFound reports that the command's executable does not exist.
var ErrNotFound = errors.New("command: executable not found")

// exitNotFound is the POSIX shell exit status for an unknown command.
const exitNotFound = 127

// waitDelay bounds how long Run waits for output pipes after the process was
// killed, since background children of the shell may hold them open.
const waitDelay = 2 * time.Second

// Result is the captured outcome of a command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Failure is returned for a command that ran but exited non-zero.
type Failure struct {
	Display  string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("command: %q exited with status %d", f.Display, f.ExitCode)
	if s := strings.TrimSpace(f.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// Is lets errors.Is(err, ErrNotFound) match a shell's "command not found"
// status.
func (f *Failure) Is(target error) bool {
	return target == ErrNotFound && f.ExitCode == exitNotFound
}

// Runner executes rendered commands through a shell.
type Runner struct {
	shell   string
	timeout time.Duration
	env     []string
}

// Option configures a [Runner].
type Option func(*Runner)

// WithShell sets the shell binary. Default: "sh".
func WithShell(shell string) Option {
	return func(r *Runner) {
		r.shell = shell
	}
}

// WithTimeout bounds every command. Zero means no limit beyond the caller's
// context.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithEnv appends KEY=VALUE entries to the inherited environment.
func WithEnv(env ...string) Option {
	return func(r *Runner) {
		r.env = append(r.env, env...)
	}
}

// NewRunner returns a Runner with the given options applied.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{shell: "sh"}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run executes cmd with "<shell> -c". A non-zero exit is returned as a
// *Failure alongside the populated Result. Only cmd.Display is logged.
func (r *Runner) Run(ctx context.Context, cmd Rendered) (Result, error) {
	if strings.TrimSpace(cmd.Command) == "" {
		return Result{}, fmt.Errorf("command: empty command")
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	log := observe.Logger(ctx)
	log.Info("command: executing", "cmd", cmd.Display)

	c := exec.CommandContext(ctx, r.shell, "-c", cmd.Command)
	if len(r.env) > 0 {
		c.Env = append(os.Environ(), r.env...)
	}
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	c.WaitDelay = waitDelay

	start := time.Now()
	err := c.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err == nil {
		log.Debug("command: finished", "cmd", cmd.Display, "duration", res.Duration)
		return res, nil
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		res.ExitCode = -1
		return res, fmt.Errorf("%w: shell %q: %v", ErrNotFound, r.shell, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, fmt.Errorf("command: %q aborted: %w", cmd.Display, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, &Failure{
			Display:  cmd.Display,
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
		}
	}
	res.ExitCode = -1
	return res, fmt.Errorf("command: run %q: %w", cmd.Display, err)
}
