// Package runner supervises the command that watch mode restarts after every
// successful build, so the rewritten output can be exercised right away.
package runner

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"
)

// DefaultGracePeriod is how long Stop waits after asking the command to exit
// before killing it.
const DefaultGracePeriod = 5 * time.Second

// Runner runs one command at a time. The command never reads the
// supervisor's stdin.
type Runner struct {
	name  string
	args  []string
	dir   string
	out   io.Writer
	errw  io.Writer
	grace time.Duration

	mu      sync.Mutex
	cmd     *exec.Cmd
	done    chan struct{}
	exitErr error
}

// Option configures a Runner.
type Option func(*Runner)

// WithDir sets the working directory of the command.
func WithDir(dir string) Option {
	return func(r *Runner) { r.dir = dir }
}

// WithOutput sends the command's stdout and stderr to the given writers.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(r *Runner) { r.out, r.errw = stdout, stderr }
}

// WithGracePeriod overrides DefaultGracePeriod.
func WithGracePeriod(d time.Duration) Option {
	return func(r *Runner) { r.grace = d }
}

// New returns a runner for name with args. Nothing is started yet.
func New(name string, args []string, opts ...Option) *Runner {
	r := &Runner{name: name, args: args, grace: DefaultGracePeriod}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Shell returns a runner for a shell command line, as given to watch --exec.
func Shell(command string, opts ...Option) *Runner {
	name, args := shellCommand(command)
	return New(name, args, opts...)
}

// Start starts the command. Starting while a previous one still runs is an
// error; use Restart.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running() {
		return errors.New("runner: command already running")
	}
	cmd := exec.Command(r.name, r.args...)
	cmd.Dir = r.dir
	cmd.Stdout = r.out
	cmd.Stderr = r.errw
	configure(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", r.name, err)
	}

	done := make(chan struct{})
	r.cmd, r.done, r.exitErr = cmd, done, nil
	go func() {
		err := cmd.Wait()
		r.mu.Lock()
		if r.cmd == cmd {
			r.exitErr = err
		}
		r.mu.Unlock()
		close(done)
	}()
	return nil
}

// Stop asks the command and its children to exit, killing them after the
// grace period. Stopping a runner that is not running does nothing.
func (r *Runner) Stop() error {
	r.mu.Lock()
	cmd, done := r.cmd, r.done
	r.mu.Unlock()
	if cmd == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	default:
	}
	if err := terminate(cmd.Process); err != nil {
		return fmt.Errorf("stopping %s: %w", r.name, err)
	}
	select {
	case <-done:
	case <-time.After(r.grace):
		kill(cmd.Process)
		<-done
	}
	return nil
}

// Restart stops the running command, if any, and starts it again.
func (r *Runner) Restart() error {
	if err := r.Stop(); err != nil {
		return err
	}
	return r.Start()
}

// Wait blocks until the current command exits and returns its exit error.
func (r *Runner) Wait() error {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exitErr
}

// Running reports whether the command has been started and not yet exited.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running()
}

func (r *Runner) running() bool {
	if r.done == nil {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}
