package xcodebuild

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/shamanec/GADS-xctest-runner/destination"
	"github.com/shamanec/GADS-xctest-runner/logger"
	"github.com/shamanec/GADS-xctest-runner/models"
	"github.com/shamanec/GADS-xctest-runner/shell"
)

// ExitCodeTestsFailed is returned by `xcodebuild test` when the build succeeded but tests failed
const ExitCodeTestsFailed = 65

var (
	ErrUnexpectedExitCode = errors.New("xcodebuild test failed with unexpected exit code")
	ErrNoSchemes          = errors.New("xcodebuild listed no schemes")
)

// Options are the xcodebuild inputs of a run. Empty fields are left out of the invocation.
type Options struct {
	Workspace        string
	Project          string
	Scheme           string
	Configuration    string
	SDK              string
	Arch             string
	Destination      destination.Destination
	CodeSignIdentity string
	DevelopmentTeam  string
	ResultBundlePath string
}

func (o Options) containerArgs() []string {
	var args []string
	if o.Workspace != "" {
		args = append(args, "-workspace", o.Workspace)
	}
	if o.Project != "" {
		args = append(args, "-project", o.Project)
	}
	return args
}

// CommonArgs returns the options shared by every action
func (o Options) CommonArgs() []string {
	args := o.containerArgs()
	if o.Scheme != "" {
		args = append(args, "-scheme", o.Scheme)
	}
	if o.Configuration != "" {
		args = append(args, "-configuration", o.Configuration)
	}
	if !o.Destination.IsEmpty() {
		args = append(args, "-destination", destination.Encode(o.Destination))
	}
	if o.SDK != "" {
		args = append(args, "-sdk", o.SDK)
	}
	if o.Arch != "" {
		args = append(args, "-arch", o.Arch)
	}
	return args
}

// BuildSettings returns the build setting overrides passed after the action
func (o Options) BuildSettings() []string {
	var settings []string
	if o.CodeSignIdentity != "" {
		settings = append(settings, "CODE_SIGN_IDENTITY="+o.CodeSignIdentity)
	}
	if o.DevelopmentTeam != "" {
		settings = append(settings, "DEVELOPMENT_TEAM="+o.DevelopmentTeam)
	}
	return settings
}

// TestArgs returns the full argument list of `xcodebuild test`
func (o Options) TestArgs() []string {
	args := append(o.CommonArgs(), "test")
	if o.ResultBundlePath != "" {
		args = append(args, "-resultBundlePath", o.ResultBundlePath)
	}
	return append(args, o.BuildSettings()...)
}

// Xcodebuild runs xcodebuild actions
type Xcodebuild struct {
	runner shell.Runner
}

func New(runner shell.Runner) *Xcodebuild {
	return &Xcodebuild{runner: runner}
}

// ProjectInfo lists the schemes, targets and configurations with `xcodebuild -list -json`
func (x *Xcodebuild) ProjectInfo(ctx context.Context, opts Options) (models.XcodeProjectInfo, error) {
	args := append(opts.containerArgs(), "-list", "-json")
	output, err := x.runner.Output(ctx, "xcodebuild", args...)
	if err != nil {
		return models.XcodeProjectInfo{}, fmt.Errorf("Could not list project info - %w", err)
	}

	var info models.XcodeProjectInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return models.XcodeProjectInfo{}, fmt.Errorf("Could not unmarshal project info - %w", err)
	}
	return info, nil
}

// DefaultScheme returns the first scheme of the project or workspace
func (x *Xcodebuild) DefaultScheme(ctx context.Context, opts Options) (string, error) {
	info, err := x.ProjectInfo(ctx, opts)
	if err != nil {
		return "", err
	}
	schemes := info.Schemes()
	if len(schemes) == 0 {
		return "", ErrNoSchemes
	}
	return schemes[0], nil
}

// TestResult is the outcome of `xcodebuild test` when it finished with an accepted exit code
type TestResult struct {
	ExitCode    int
	TestsFailed bool
}

// Test runs `xcodebuild test` with its output written to stdout and stderr.
// Exit codes 0 and 65 are results, anything else is an error.
func (x *Xcodebuild) Test(ctx context.Context, opts Options, stdout, stderr io.Writer) (TestResult, error) {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	cmd := shell.Command{
		Name:   "xcodebuild",
		Args:   opts.TestArgs(),
		Env:    map[string]string{"NSUnbufferedIO": "YES"},
		Stdout: stdout,
		Stderr: stderr,
	}
	logger.RunnerLogger.LogInfo("xcodebuild_test", fmt.Sprintf("Executing `%s`", cmd))

	err := x.runner.Run(ctx, cmd)
	exitCode := shell.ExitCode(err)
	switch exitCode {
	case 0:
		return TestResult{ExitCode: 0}, nil
	case ExitCodeTestsFailed:
		logger.RunnerLogger.LogWarn("xcodebuild_test", "Tests failed")
		return TestResult{ExitCode: exitCode, TestsFailed: true}, nil
	case -1:
		return TestResult{ExitCode: exitCode}, fmt.Errorf("Could not run xcodebuild test - %w", err)
	default:
		return TestResult{ExitCode: exitCode}, fmt.Errorf("%w %d", ErrUnexpectedExitCode, exitCode)
	}
}

// ShowDestinations lists the destinations the scheme can run on.
// ok is false when xcodebuild printed no destination blocks at all.
func (x *Xcodebuild) ShowDestinations(ctx context.Context, opts Options) ([]destination.Destination, bool, error) {
	args := append(opts.containerArgs(), "-showdestinations")
	if opts.Scheme != "" {
		args = append(args, "-scheme", opts.Scheme)
	}

	output, err := x.runner.Output(ctx, "xcodebuild", args...)
	if err != nil {
		return nil, false, fmt.Errorf("Could not show destinations - %w", err)
	}

	destinations, ok := destination.ExtractDestinations(string(output), func(block string, err error) {
		if err != nil {
			logger.RunnerLogger.LogDebug("show_destinations", fmt.Sprintf("Skipping destination `%s` - %s", block, err))
			return
		}
		logger.RunnerLogger.LogDebug("show_destinations", fmt.Sprintf("Found destination `%s`", block))
	})
	return destinations, ok, nil
}
