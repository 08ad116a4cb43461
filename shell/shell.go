package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	sh "github.com/codeskyblue/go-sh"
	"github.com/shamanec/GADS-xctest-runner/logger"
)

// Command describes a process to execute
type Command struct {
	Name   string
	Args   []string
	Dir    string
	Env    map[string]string
	Stdout io.Writer
	Stderr io.Writer
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Process is a command started in the background
type Process interface {
	// Signal delivers sig to the process
	Signal(sig os.Signal) error
	// Wait blocks until the process exits
	Wait() error
}

// Runner executes external commands. The default implementation is backed by go-sh,
// tests replace it with a fake.
type Runner interface {
	// Output runs the command and returns what it wrote to stdout
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	// Run runs the command to completion with its streams attached to the given writers
	Run(ctx context.Context, cmd Command) error
	// Start starts the command without waiting for it
	Start(ctx context.Context, cmd Command) (Process, error)
}

type goShRunner struct{}

// NewRunner returns the Runner used outside of tests
func NewRunner() Runner {
	return goShRunner{}
}

func newSession(cmd Command) *sh.Session {
	session := sh.NewSession()
	for key, value := range cmd.Env {
		session.SetEnv(key, value)
	}
	if cmd.Dir != "" {
		session.SetDir(cmd.Dir)
	}
	if cmd.Stdout != nil {
		session.Stdout = cmd.Stdout
	}
	if cmd.Stderr != nil {
		session.Stderr = cmd.Stderr
	}

	args := make([]interface{}, 0, len(cmd.Args))
	for _, arg := range cmd.Args {
		args = append(args, arg)
	}
	return session.Command(cmd.Name, args...)
}

func (goShRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	err := goShRunner{}.Run(ctx, Command{Name: name, Args: args, Stdout: &stdout, Stderr: &stderr})
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.Bytes(), fmt.Errorf("%w - %s", err, msg)
		}
		return stdout.Bytes(), err
	}
	return stdout.Bytes(), nil
}

func (g goShRunner) Run(ctx context.Context, cmd Command) error {
	process, err := g.Start(ctx, cmd)
	if err != nil {
		return err
	}
	return process.Wait()
}

func (goShRunner) Start(ctx context.Context, cmd Command) (Process, error) {
	logger.RunnerLogger.LogDebug("shell", fmt.Sprintf("Executing `%s`", cmd))

	session := newSession(cmd)
	if err := session.Start(); err != nil {
		return nil, fmt.Errorf("Could not start `%s` - %w", cmd.Name, err)
	}

	p := &sessionProcess{session: session, done: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			session.Kill(os.Kill)
		case <-p.done:
		}
	}()
	return p, nil
}

type sessionProcess struct {
	session  *sh.Session
	done     chan struct{}
	waitOnce sync.Once
	waitErr  error
}

func (p *sessionProcess) Signal(sig os.Signal) error {
	p.session.Kill(sig)
	return nil
}

func (p *sessionProcess) Wait() error {
	p.waitOnce.Do(func() {
		p.waitErr = p.session.Wait()
		close(p.done)
	})
	return p.waitErr
}

// ExitCode extracts the exit status of a finished command from the error returned by it.
// A nil error is exit code 0, an error that did not come from the process is -1.
// Any error with an ExitCode method counts, *exec.ExitError included.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exited interface{ ExitCode() int }
	if errors.As(err, &exited) {
		return exited.ExitCode()
	}
	return -1
}
