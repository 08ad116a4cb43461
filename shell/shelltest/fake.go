// Package shelltest provides a scripted shell.Runner for tests.
package shelltest

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/shamanec/GADS-xctest-runner/shell"
)

// Response is what a faked command produces
type Response struct {
	Stdout string
	Stderr string
	Err    error
	// Do is called with the command before the response is returned
	Do func(cmd shell.Command)
}

// Call is a recorded invocation
type Call struct {
	Command shell.Command
	Started bool
}

func (c Call) String() string {
	return c.Command.String()
}

// Runner answers commands by their full command line, e.g. "xcrun simctl boot X".
// Commands with no scripted response succeed with empty output.
type Runner struct {
	mu        sync.Mutex
	responses map[string]Response
	calls     []Call
	processes []*Process
}

func NewRunner() *Runner {
	return &Runner{responses: map[string]Response{}}
}

// On scripts the response for a command line
func (f *Runner) On(commandLine string, resp Response) *Runner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[commandLine] = resp
	return f
}

func (f *Runner) respond(cmd shell.Command, started bool) Response {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Command: cmd, Started: started})
	resp := f.responses[cmd.String()]
	f.mu.Unlock()

	if resp.Do != nil {
		resp.Do(cmd)
	}
	return resp
}

// Calls returns the recorded command lines in order
func (f *Runner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		lines = append(lines, c.String())
	}
	return lines
}

// Commands returns the recorded commands in order
func (f *Runner) Commands() []shell.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmds := make([]shell.Command, 0, len(f.calls))
	for _, c := range f.calls {
		cmds = append(cmds, c.Command)
	}
	return cmds
}

// Processes returns the processes handed out by Start
func (f *Runner) Processes() []*Process {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Process(nil), f.processes...)
}

func (f *Runner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	resp := f.respond(shell.Command{Name: name, Args: args}, false)
	if resp.Err != nil && resp.Stderr != "" {
		return []byte(resp.Stdout), fmt.Errorf("%w - %s", resp.Err, strings.TrimSpace(resp.Stderr))
	}
	return []byte(resp.Stdout), resp.Err
}

func (f *Runner) Run(ctx context.Context, cmd shell.Command) error {
	resp := f.respond(cmd, false)
	write(cmd.Stdout, resp.Stdout)
	write(cmd.Stderr, resp.Stderr)
	return resp.Err
}

func (f *Runner) Start(ctx context.Context, cmd shell.Command) (shell.Process, error) {
	resp := f.respond(cmd, true)
	write(cmd.Stdout, resp.Stdout)
	write(cmd.Stderr, resp.Stderr)

	p := &Process{Command: cmd, exited: make(chan struct{}), err: resp.Err}
	f.mu.Lock()
	f.processes = append(f.processes, p)
	f.mu.Unlock()
	return p, nil
}

func write(w io.Writer, s string) {
	if w != nil && s != "" {
		io.WriteString(w, s)
	}
}

// Process exits on the first signal it receives
type Process struct {
	Command shell.Command

	mu      sync.Mutex
	signals []os.Signal
	once    sync.Once
	exited  chan struct{}
	err     error
}

func (p *Process) Signal(sig os.Signal) error {
	p.mu.Lock()
	p.signals = append(p.signals, sig)
	p.mu.Unlock()
	p.once.Do(func() { close(p.exited) })
	return nil
}

func (p *Process) Wait() error {
	<-p.exited
	return p.err
}

// Signals returns the signals delivered so far
func (p *Process) Signals() []os.Signal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]os.Signal(nil), p.signals...)
}

// ExitError is a failure carrying a process exit code
type ExitError struct {
	Code int
}

func (e ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e ExitError) ExitCode() int {
	return e.Code
}
